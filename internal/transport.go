package internal

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// TransportConfig configures the default HTTPTransport.
type TransportConfig struct {
	UserAgent      string
	ProxyURL       string
	RequestTimeout time.Duration
	Logger         *Logger // optional; when set, requests/responses are logged at debug level
}

// HTTPTransport is the default Transport implementation, backed by
// net/http. Its Head/GetRange methods each issue exactly one request;
// retry policy belongs to the caller (the Worker), per §4.4.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
	logger    *Logger
}

// NewHTTPTransport builds an HTTPTransport, wiring an optional HTTP/HTTPS/
// SOCKS5 proxy the same way the teacher repo's utils/http.go does.
func NewHTTPTransport(cfg TransportConfig) (*HTTPTransport, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: false},
	}

	if cfg.ProxyURL != "" {
		if err := configureProxy(transport, cfg.ProxyURL); err != nil {
			return nil, fmt.Errorf("configure proxy %s: %w", cfg.ProxyURL, err)
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "parafetch/1.0"
	}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
	if cfg.RequestTimeout > 0 {
		client.Timeout = cfg.RequestTimeout
	}

	return &HTTPTransport{client: client, userAgent: userAgent, logger: cfg.Logger}, nil
}

func configureProxy(transport *http.Transport, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	case "socks5":
		dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, nil, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", parsedURL.Scheme)
	}

	return nil
}

func (t *HTTPTransport) Head(ctx context.Context, rawURL string) (ResourceDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return ResourceDescriptor{}, NewProbeFailedError("failed to build HEAD request", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	if t.logger != nil {
		t.logger.LogHTTPRequest(req)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return ResourceDescriptor{}, NewProbeFailedError("HEAD request failed", err)
	}
	defer resp.Body.Close()
	if t.logger != nil {
		t.logger.LogHTTPResponse(resp)
	}

	if resp.StatusCode != http.StatusOK {
		return ResourceDescriptor{TotalBytes: 0, RangeSupported: false}, nil
	}

	total, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	rangeSupported := strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes")

	return ResourceDescriptor{TotalBytes: total, RangeSupported: rangeSupported}, nil
}

func (t *HTTPTransport) GetRange(ctx context.Context, rawURL string, start, end int64) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, NewTransportError("failed to build GET request", err)
	}
	req.Header.Set("User-Agent", t.userAgent)

	if end >= 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	} else if start > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	}
	if t.logger != nil {
		t.logger.LogHTTPRequest(req)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, NewTransportError("GET request failed", err)
	}
	if t.logger != nil {
		t.logger.LogHTTPResponse(resp)
	}

	return resp.Body, resp.StatusCode, nil
}
