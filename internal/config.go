package internal

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds process-wide defaults. CLI flags override these fields at
// startup; nothing in the download path reads Config directly — values are
// copied into a DownloadRequest or a Logger once, at construction time.
type Config struct {
	DefaultSegments int
	DefaultWorkers  int
	DefaultRetries  int
	RequestTimeout  int // seconds, per worker GET attempt
	ConnectTimeout  int // seconds, sequential mode initial connect
	UserAgent       string
	ProxyURL        string

	LogLevel    string
	EnableDebug bool
	QuietMode   bool
	LogFile     string
}

func DefaultConfig() *Config {
	return &Config{
		DefaultSegments: 4,
		DefaultWorkers:  4,
		DefaultRetries:  3,
		RequestTimeout:  60,
		ConnectTimeout:  30,
		UserAgent:       "parafetch/1.0",

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "",
	}
}

// LoadFromEnv overlays environment variables onto an existing Config.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("PARAFETCH_SEGMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.DefaultSegments = n
		}
	}
	if v := os.Getenv("PARAFETCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.DefaultWorkers = n
		}
	}
	if v := os.Getenv("PARAFETCH_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.DefaultRetries = n
		}
	}
	if v := os.Getenv("PARAFETCH_REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RequestTimeout = n
		}
	}
	if v := os.Getenv("PARAFETCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PARAFETCH_DEBUG"); v != "" {
		c.EnableDebug = v == "true" || v == "1"
	}
	if v := os.Getenv("PARAFETCH_QUIET"); v != "" {
		c.QuietMode = v == "true" || v == "1"
	}
	if v := os.Getenv("PARAFETCH_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("PARAFETCH_PROXY"); v != "" {
		c.ProxyURL = v
	}
}

func (c *Config) ValidateConfig() error {
	if c.DefaultSegments < 1 {
		return fmt.Errorf("invalid default segments: %d (must be >= 1)", c.DefaultSegments)
	}
	if c.DefaultWorkers < 1 {
		return fmt.Errorf("invalid default workers: %d (must be >= 1)", c.DefaultWorkers)
	}
	if c.DefaultRetries < 0 {
		return fmt.Errorf("invalid default retries: %d (must be >= 0)", c.DefaultRetries)
	}
	if c.RequestTimeout < 1 {
		return fmt.Errorf("invalid request timeout: %d (must be > 0)", c.RequestTimeout)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent must not be empty")
	}
	return nil
}
