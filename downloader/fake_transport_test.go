package downloader

import (
	"context"
	"io"
	"strings"
	"sync"

	"parafetch/internal"
)

// fakeTransport is a scriptable internal.Transport stand-in used across this
// package's tests, avoiding the need for a real network or httptest.Server
// when the test only cares about ranged-GET sequencing.
type fakeTransport struct {
	mu sync.Mutex

	payload        []byte
	rangeSupported bool

	// failFirstN causes the first N GetRange calls (across the whole
	// transport) to fail before any call succeeds.
	failFirstN int
	calls      int

	// failStatus, when non-zero, makes every GetRange return that status
	// instead of 206.
	failStatus int
}

func newFakeTransport(payload []byte) *fakeTransport {
	return &fakeTransport{payload: payload, rangeSupported: true}
}

func (f *fakeTransport) Head(ctx context.Context, url string) (internal.ResourceDescriptor, error) {
	return internal.ResourceDescriptor{
		TotalBytes:     int64(len(f.payload)),
		RangeSupported: f.rangeSupported,
	}, nil
}

func (f *fakeTransport) GetRange(ctx context.Context, url string, start, end int64) (io.ReadCloser, int, error) {
	f.mu.Lock()
	f.calls++
	shouldFail := f.calls <= f.failFirstN
	f.mu.Unlock()

	if shouldFail {
		return nil, 0, internal.NewTransportError("simulated transient failure", nil)
	}

	if f.failStatus != 0 {
		return io.NopCloser(strings.NewReader("")), f.failStatus, nil
	}

	if end < 0 {
		end = int64(len(f.payload)) - 1
	}
	if start < 0 || end >= int64(len(f.payload)) || start > end {
		return io.NopCloser(strings.NewReader("")), 416, nil
	}

	status := 206
	if start == 0 && end == int64(len(f.payload))-1 {
		status = 200
	}

	return io.NopCloser(strings.NewReader(string(f.payload[start : end+1]))), status, nil
}
