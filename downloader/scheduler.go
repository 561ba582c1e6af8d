package downloader

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"parafetch/internal"
)

// Scheduler runs a set of SegmentRecords to completion using one of two
// concurrency shapes (§4.5): a bounded worker pool fed from a FIFO queue,
// or a fixed one-worker-per-segment fan-out. Either way it aggregates
// progress and decides completion/abort off per-segment terminal status,
// never off the running byte sum (§9).
type Scheduler struct {
	url        string
	transport  internal.Transport
	maxRetries int
	timeout    time.Duration
	logger     *internal.Logger

	onProgress     func(percent float64)
	onSegmentDone  func(scratchPath string)
	onSegmentError func(scratchPath string)
}

func NewScheduler(url string, transport internal.Transport, maxRetries int, timeout time.Duration, logger *internal.Logger) *Scheduler {
	return &Scheduler{url: url, transport: transport, maxRetries: maxRetries, timeout: timeout, logger: logger}
}

func (s *Scheduler) SetCallbacks(onProgress func(float64), onSegmentDone, onSegmentError func(string)) {
	s.onProgress = onProgress
	s.onSegmentDone = onSegmentDone
	s.onSegmentError = onSegmentError
}

// RunPool implements segmented_pool: workerCount workers (or one per
// segment, if there are fewer segments than that) share a FIFO queue of
// segments, one task at a time per worker.
func (s *Scheduler) RunPool(ctx context.Context, segments []internal.SegmentRecord, workerCount int, totalBytes int64) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Never spawn more workers than there is work: a worker with nothing to
	// do would only sit blocked announcing Ready until the run's context is
	// cancelled (segment_count >= worker_count is not required, so this is
	// a routine configuration, not an edge case).
	spawnCount := workerCount
	if spawnCount > len(segments) {
		spawnCount = len(segments)
	}
	if spawnCount < 1 {
		spawnCount = 1
	}

	outbox := make(chan internal.WorkerMessage)
	var wg sync.WaitGroup

	for i := 0; i < spawnCount; i++ {
		w := NewWorker(i, s.url, s.transport, s.maxRetries, s.timeout, s.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.RunPooled(runCtx, outbox)
		}()
	}

	queue := make([]internal.SegmentRecord, len(segments))
	copy(queue, segments)

	pending := make(map[string]struct{}, len(segments))
	for _, seg := range segments {
		pending[seg.ScratchPath] = struct{}{}
	}

	readyInboxes := make(map[int]chan internal.SegmentRecord)
	inFlight := 0
	var bytesTotal int64
	var firstErr error

	dispatch := func(inbox chan internal.SegmentRecord) bool {
		if len(queue) == 0 {
			return false
		}
		next := queue[0]
		queue = queue[1:]
		inFlight++
		inbox <- next
		return true
	}

	closeAllInboxes := func() {
		for _, inbox := range readyInboxes {
			close(inbox)
		}
	}

	for len(pending) > 0 {
		msg := <-outbox

		switch msg.Kind {
		case internal.MsgReady:
			readyInboxes[msg.WorkerID] = msg.Ready
			if firstErr == nil {
				dispatch(msg.Ready)
			}

		case internal.MsgBytesDownloaded:
			bytesTotal += msg.BytesDelta
			if s.onProgress != nil && totalBytes > 0 {
				progress := internal.Progress{BytesDownloadedTotal: bytesTotal, TotalBytes: totalBytes}
				s.onProgress(progress.Percent())
			}

		case internal.MsgSegmentDone:
			inFlight--
			delete(pending, msg.Segment.ScratchPath)
			if s.onSegmentDone != nil {
				s.onSegmentDone(msg.Segment.ScratchPath)
			}
			if firstErr == nil {
				if inbox, ok := readyInboxes[msg.WorkerID]; ok {
					dispatch(inbox)
				}
			}

		case internal.MsgSegmentError:
			inFlight--
			delete(pending, msg.Segment.ScratchPath)
			if s.onSegmentError != nil {
				s.onSegmentError(msg.Segment.ScratchPath)
			}
			if firstErr == nil {
				firstErr = msg.Reason
				cancel()
				queue = nil
			}
		}

		if firstErr != nil && inFlight == 0 {
			break
		}
	}

	// Cancel before waiting, not just via the deferred call after: any
	// worker still blocked announcing Ready (no segments left to dispatch,
	// or the run aborted before it got a turn) is unblocked by ctx.Done()
	// in its guarded send, so wg.Wait() below is guaranteed to return.
	cancel()
	closeAllInboxes()
	wg.Wait()

	return firstErr
}

// RunFixed implements segmented_fixed: exactly len(segments) workers, each
// bound to one segment, fanned out via errgroup; the first SegmentError
// cancels the context the rest run under.
func (s *Scheduler) RunFixed(ctx context.Context, segments []internal.SegmentRecord, totalBytes int64) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	outbox := make(chan internal.WorkerMessage)

	done := make(chan struct{})
	var bytesTotal int64
	var firstErr error
	var mu sync.Mutex

	go func() {
		defer close(done)
		remaining := len(segments)
		for remaining > 0 {
			msg, ok := <-outbox
			if !ok {
				return
			}
			switch msg.Kind {
			case internal.MsgBytesDownloaded:
				mu.Lock()
				bytesTotal += msg.BytesDelta
				mu.Unlock()
				if s.onProgress != nil && totalBytes > 0 {
					progress := internal.Progress{BytesDownloadedTotal: bytesTotal, TotalBytes: totalBytes}
					s.onProgress(progress.Percent())
				}
			case internal.MsgSegmentDone:
				remaining--
				if s.onSegmentDone != nil {
					s.onSegmentDone(msg.Segment.ScratchPath)
				}
			case internal.MsgSegmentError:
				remaining--
				if s.onSegmentError != nil {
					s.onSegmentError(msg.Segment.ScratchPath)
				}
				mu.Lock()
				if firstErr == nil {
					firstErr = msg.Reason
				}
				mu.Unlock()
				cancel()
			}
		}
	}()

	for _, seg := range segments {
		seg := seg
		w := NewWorker(seg.SegmentIndex, s.url, s.transport, s.maxRetries, s.timeout, s.logger)
		g.Go(func() error {
			w.RunFixed(gctx, seg, outbox)
			return nil
		})
	}

	_ = g.Wait()
	close(outbox)
	<-done

	return firstErr
}
