package downloader

import (
	"context"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"time"

	"parafetch/internal"
	"parafetch/utils"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second
)

// backoffDelay returns an exponential delay with +/-20% jitter for the
// given retry attempt (0-indexed). The cap at retryMaxDelay is applied
// before the jitter, so the result can exceed it by up to 20%.
func backoffDelay(attempt int) time.Duration {
	delay := float64(retryBaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(retryMaxDelay) {
		delay = float64(retryMaxDelay)
	}
	jitter := delay * 0.2 * (rand.Float64()*2 - 1)
	delay += jitter
	if delay < 0 {
		delay = float64(retryBaseDelay)
	}
	return time.Duration(delay)
}

// Worker executes ranged GETs for segments assigned to it and reports
// progress and terminal outcomes on a shared outbox, per §4.4. It never
// talks to the Segment Store directly — status transitions belong to the
// Scheduler/Coordinator.
type Worker struct {
	id         int
	url        string
	transport  internal.Transport
	maxRetries int
	timeout    time.Duration
	logger     *internal.Logger
	fs         *utils.FileOperations
}

func NewWorker(id int, url string, transport internal.Transport, maxRetries int, timeout time.Duration, logger *internal.Logger) *Worker {
	return &Worker{id: id, url: url, transport: transport, maxRetries: maxRetries, timeout: timeout, logger: logger, fs: utils.NewFileOperations()}
}

// RunPooled implements the segmented_pool worker lifecycle: announce an
// inbox via Ready, then repeatedly drain one segment at a time from it
// until the inbox is closed or ctx is cancelled — both of which double as
// the worker's cancellation signal.
func (w *Worker) RunPooled(ctx context.Context, outbox chan<- internal.WorkerMessage) {
	inbox := make(chan internal.SegmentRecord)
	select {
	case outbox <- internal.WorkerMessage{Kind: internal.MsgReady, WorkerID: w.id, Ready: inbox}:
	case <-ctx.Done():
		return
	}

	for {
		select {
		case segment, ok := <-inbox:
			if !ok {
				return
			}
			w.process(ctx, segment, outbox)
		case <-ctx.Done():
			return
		}
	}
}

// RunFixed implements the segmented_fixed worker lifecycle: one segment,
// statically assigned at spawn time, no queue.
func (w *Worker) RunFixed(ctx context.Context, segment internal.SegmentRecord, outbox chan<- internal.WorkerMessage) {
	w.process(ctx, segment, outbox)
}

func (w *Worker) process(ctx context.Context, segment internal.SegmentRecord, outbox chan<- internal.WorkerMessage) {
	var lastErr error

	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt - 1)
			w.logger.Debug("worker %d retrying segment %d (attempt %d/%d) after %v: %v", w.id, segment.SegmentIndex, attempt+1, w.maxRetries+1, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				outbox <- internal.WorkerMessage{Kind: internal.MsgSegmentError, WorkerID: w.id, Segment: segment, Reason: ctx.Err()}
				return
			}
		}

		select {
		case <-ctx.Done():
			outbox <- internal.WorkerMessage{Kind: internal.MsgSegmentError, WorkerID: w.id, Segment: segment, Reason: ctx.Err()}
			return
		default:
		}

		err := w.attempt(ctx, segment, outbox)
		if err == nil {
			outbox <- internal.WorkerMessage{Kind: internal.MsgSegmentDone, WorkerID: w.id, Segment: segment}
			return
		}
		lastErr = err
	}

	outbox <- internal.WorkerMessage{
		Kind:    internal.MsgSegmentError,
		WorkerID: w.id,
		Segment: segment,
		Reason:  internal.NewSegmentFailedError(segment.SegmentIndex, lastErr),
	}
}

// attempt performs exactly one GET + stream-to-scratch-file pass, per §4.4
// steps 2-4. Each retry truncates and restarts the segment from scratch;
// this implementation never resumes a partial retry.
func (w *Worker) attempt(ctx context.Context, segment internal.SegmentRecord, outbox chan<- internal.WorkerMessage) error {
	reqCtx := ctx
	var cancel context.CancelFunc
	if w.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	body, status, err := w.transport.GetRange(reqCtx, w.url, segment.StartByte, segment.EndByte)
	if err != nil {
		return internal.NewTransportError("ranged GET failed", err)
	}
	defer body.Close()

	if status != http.StatusPartialContent {
		return internal.NewTransportError("expected 206 Partial Content", nil).WithContext("status", status)
	}

	segmentSize := segment.EndByte - segment.StartByte + 1
	if err := w.fs.CreatePartialFile(segment.ScratchPath, segmentSize); err != nil {
		return internal.NewTransportError("failed to preallocate scratch file", err)
	}

	file, err := os.OpenFile(segment.ScratchPath, os.O_WRONLY, 0644)
	if err != nil {
		return internal.NewTransportError("failed to open scratch file", err)
	}
	defer file.Close()

	buf := make([]byte, 32*1024)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				return internal.NewTransportError("failed to write scratch file", writeErr)
			}
			outbox <- internal.WorkerMessage{Kind: internal.MsgBytesDownloaded, WorkerID: w.id, BytesDelta: int64(n)}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return internal.NewTransportError("failed reading response body", readErr)
		}
	}
}
