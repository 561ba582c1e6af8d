package internal

import (
	"context"
	"io"
)

// Transport is the HTTP collaborator the core algorithm depends on. It is
// deliberately narrow: a HEAD for probing and a ranged GET for transfer.
// The default implementation wraps net/http; the downloader tests
// substitute an in-memory fake.
type Transport interface {
	// Head issues a HEAD request and returns the resource's length and
	// whether the server advertises byte-range support.
	Head(ctx context.Context, url string) (ResourceDescriptor, error)

	// GetRange issues a GET with a Range header of "bytes=start-end".
	// end == -1 means an open-ended range; with start == 0 as well it is a
	// plain GET of the whole resource (sequential mode's full fetch).
	// It returns the response body, the HTTP status code, and any error.
	// The caller must close the returned body.
	GetRange(ctx context.Context, url string, start, end int64) (body io.ReadCloser, status int, err error)
}

// SegmentStore is the durable keyed map described in §4.3: a commit-before-
// return map from scratch path to SegmentRecord, scoped by run ID so a
// later run can discover a prior run's completed segments.
type SegmentStore interface {
	Put(ctx context.Context, record SegmentRecord) error
	Get(ctx context.Context, scratchPath string) (SegmentRecord, bool, error)
	UpdateStatus(ctx context.Context, scratchPath string, status SegmentStatus) error
	ListByRun(ctx context.Context, runID string) ([]SegmentRecord, error)
	// ListByDestination finds the most recent run's records for a
	// destination+file pair, enabling cross-run resume without requiring
	// the caller to already know the run ID.
	ListByDestination(ctx context.Context, destinationDir, fileName string) ([]SegmentRecord, error)
	DeleteByRun(ctx context.Context, runID string) error
	Close() error
}
