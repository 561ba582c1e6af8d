package downloader

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"parafetch/internal"
	"parafetch/utils"
)

// SequentialDownloader implements the single-stream mode (§4.6): one GET
// (ranged if resuming, full otherwise) writing directly to the final
// destination path.
type SequentialDownloader struct {
	transport      internal.Transport
	connectTimeout time.Duration
	logger         *internal.Logger
	fs             *utils.FileOperations
}

func NewSequentialDownloader(transport internal.Transport, connectTimeout time.Duration, logger *internal.Logger) *SequentialDownloader {
	return &SequentialDownloader{transport: transport, connectTimeout: connectTimeout, logger: logger, fs: utils.NewFileOperations()}
}

// Download writes resource at url to destPath. If allowResume and the
// destination already exists and rangeSupported, it resumes from the
// existing length; if the existing length already equals total, it
// reports completion without issuing a GET.
func (s *SequentialDownloader) Download(ctx context.Context, url, destPath string, total int64, rangeSupported, allowResume bool, onProgress func(float64)) error {
	var start int64

	if allowResume && rangeSupported && s.fs.FileExists(destPath) {
		if err := s.fs.ValidatePartialFile(destPath, total); err != nil {
			if err := os.Remove(destPath); err != nil {
				return internal.NewTransportError("failed to remove corrupt partial file", err)
			}
			start = 0
		} else {
			size, err := s.fs.GetFileSize(destPath)
			if err != nil {
				return internal.NewTransportError("failed to stat partial file", err)
			}
			start = size
			if start == total {
				if onProgress != nil {
					onProgress(100)
				}
				return nil
			}
		}
	} else {
		_ = os.Remove(destPath)
	}

	end := int64(-1)
	if start > 0 {
		end = total - 1
	}

	body, status, err := s.getRange(ctx, url, start, end)
	if err != nil {
		return err
	}
	defer body.Close()

	if status == http.StatusRequestedRangeNotSatisfiable {
		body.Close()
		if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
			return internal.NewTransportError("failed to remove stale partial file", err)
		}
		return s.Download(ctx, url, destPath, total, rangeSupported, false, onProgress)
	}

	if status != http.StatusOK && status != http.StatusPartialContent {
		return internal.NewTransportError("unexpected status for sequential download", nil).WithContext("status", status)
	}

	flag := os.O_CREATE | os.O_WRONLY
	if start > 0 && status == http.StatusPartialContent {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
		start = 0
	}

	file, err := os.OpenFile(destPath, flag, 0644)
	if err != nil {
		return internal.NewTransportError("failed to open destination file", err)
	}
	defer file.Close()

	written := start
	buf := make([]byte, 32*1024)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				return internal.NewTransportError("failed writing destination file", writeErr)
			}
			written += int64(n)
			if onProgress != nil && total > 0 {
				onProgress(100 * float64(written) / float64(total))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return internal.NewTransportError("failed reading response body", readErr)
		}
	}

	if written != total {
		return internal.NewIntegrityMismatchError(total, written)
	}
	return nil
}

// getRange bounds only the wait for response headers to connectTimeout, per
// §4.6/§5: once headers arrive, the returned body streams under ctx with no
// further deadline, so a slow-but-steady full-file transfer is never
// aborted mid-stream the way it would be if the header timeout's context
// stayed attached to the request for the life of the body.
func (s *SequentialDownloader) getRange(ctx context.Context, url string, start, end int64) (io.ReadCloser, int, error) {
	if s.connectTimeout <= 0 {
		body, status, err := s.transport.GetRange(ctx, url, start, end)
		if err != nil {
			return nil, 0, internal.NewTransportError("GET request failed", err)
		}
		return body, status, nil
	}

	type rangeResult struct {
		body   io.ReadCloser
		status int
		err    error
	}
	resultCh := make(chan rangeResult, 1)
	go func() {
		body, status, err := s.transport.GetRange(ctx, url, start, end)
		resultCh <- rangeResult{body: body, status: status, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, 0, internal.NewTransportError("GET request failed", res.err)
		}
		return res.body, res.status, nil
	case <-time.After(s.connectTimeout):
		return nil, 0, internal.NewTransportError("timed out waiting for response headers", context.DeadlineExceeded)
	}
}
