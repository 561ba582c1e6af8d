package downloader

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/segmentio/ksuid"

	"parafetch/internal"
	"parafetch/utils"
)

// Coordinator is the top-level state machine described in §4.9: it
// validates the request, probes the resource, picks a mode, and drives
// that mode's components through to a final artifact or a reported error.
type Coordinator struct {
	store   internal.SegmentStore
	fs      *utils.FileOperations
	planner *Planner
}

func NewCoordinator(store internal.SegmentStore) *Coordinator {
	return &Coordinator{
		store:   store,
		fs:      utils.NewFileOperations(),
		planner: NewPlanner(),
	}
}

// Run executes one download to completion, invoking exactly one of
// req.OnComplete / req.OnError as its terminal callback.
func (c *Coordinator) Run(req *internal.DownloadRequest) error {
	if err := req.Validate(); err != nil {
		req.EmitError(err.Error())
		return err
	}

	logger := req.Logger
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}

	runID := ksuid.New().String()
	logger = logger.With(runID)
	logger.Info("starting download mode=%s url=%s", req.Mode, req.URL)

	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}

	fileName := utils.FileName(req.URL)
	finalPath := filepath.Join(req.DestinationDir, fileName)
	if err := c.fs.EnsureDir(finalPath); err != nil {
		derr := internal.NewDownloadError(internal.ConfigInvalid, "failed to create destination directory", err)
		logger.LogDownloadError(derr)
		req.EmitError(derr.Error())
		return derr
	}

	transport := req.Transport
	if transport == nil {
		httpTransport, err := internal.NewHTTPTransport(internal.TransportConfig{Logger: logger})
		if err != nil {
			derr := internal.NewTransportError("failed to build default transport", err)
			logger.LogDownloadError(derr)
			req.EmitError(derr.Error())
			return derr
		}
		transport = httpTransport
	}
	probe := NewProbe(transport)

	desc, err := probe.Probe(ctx, req.URL)
	if err != nil {
		derr, ok := err.(*internal.DownloadError)
		if !ok {
			derr = internal.NewProbeFailedError("probe failed", err)
		}
		logger.LogDownloadError(derr)
		req.EmitError(derr.Error())
		return derr
	}

	requestTimeout := time.Duration(req.RequestTimeout) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	var runErr error
	switch req.Mode {
	case internal.ModeSequential:
		runErr = c.runSequential(ctx, req, transport, desc, finalPath, logger)
	case internal.ModeSegmentedPool:
		runErr = c.runSegmented(ctx, req, transport, desc, runID, fileName, finalPath, requestTimeout, logger, false)
	case internal.ModeSegmentedFixed:
		runErr = c.runSegmented(ctx, req, transport, desc, runID, fileName, finalPath, requestTimeout, logger, true)
	default:
		runErr = internal.NewConfigInvalidError("unknown mode")
	}

	if runErr != nil {
		logger.Error("download failed: %v", runErr)
		req.EmitError(runErr.Error())
		return runErr
	}

	logger.Info("download complete: %s", finalPath)
	req.EmitComplete(finalPath)
	return nil
}

func (c *Coordinator) runSequential(ctx context.Context, req *internal.DownloadRequest, transport internal.Transport, desc internal.ResourceDescriptor, finalPath string, logger *internal.Logger) error {
	connectTimeout := 30 * time.Second
	sd := NewSequentialDownloader(transport, connectTimeout, logger)
	return sd.Download(ctx, req.URL, finalPath, desc.TotalBytes, desc.RangeSupported, req.AllowResume, req.EmitProgress)
}

func (c *Coordinator) runSegmented(
	ctx context.Context,
	req *internal.DownloadRequest,
	transport internal.Transport,
	desc internal.ResourceDescriptor,
	runID, fileName, finalPath string,
	requestTimeout time.Duration,
	logger *internal.Logger,
	fixed bool,
) error {
	segments, err := c.planOrResume(ctx, req, runID, fileName, desc)
	if err != nil {
		return err
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].SegmentIndex < segments[j].SegmentIndex })

	scheduler := NewScheduler(req.URL, transport, req.MaxRetries, requestTimeout, logger)
	scheduler.SetCallbacks(req.EmitProgress,
		func(scratchPath string) {
			_ = c.store.UpdateStatus(ctx, scratchPath, internal.SegmentCompleted)
		},
		func(scratchPath string) {
			_ = c.store.UpdateStatus(ctx, scratchPath, internal.SegmentFailed)
		},
	)

	toRun := pendingOnly(segments)

	var runErr error
	if len(toRun) > 0 {
		if fixed {
			runErr = scheduler.RunFixed(ctx, toRun, desc.TotalBytes)
		} else {
			runErr = scheduler.RunPool(ctx, toRun, req.WorkerCount, desc.TotalBytes)
		}
	}

	assembler := NewAssembler()

	if runErr != nil {
		_ = assembler.Cleanup(segments)
		c.deleteRunRecords(ctx, segments)
		return runErr
	}

	if err := assembler.Assemble(segments, finalPath); err != nil {
		return err
	}

	if err := VerifyIntegrity(finalPath, desc.TotalBytes); err != nil {
		return err
	}

	_ = assembler.Cleanup(segments)
	c.deleteRunRecords(ctx, segments)
	return nil
}

// deleteRunRecords clears every store row touched by this run. A resumed
// run mixes rows planned under an earlier run_id (still pending when this
// run picked them up) with any this run planned itself, so deleting by the
// current run_id alone would leave the earlier rows behind; delete by
// every distinct run_id actually present in segments instead.
func (c *Coordinator) deleteRunRecords(ctx context.Context, segments []internal.SegmentRecord) {
	ctx = context.WithoutCancel(ctx)
	seen := make(map[string]struct{}, len(segments))
	for _, seg := range segments {
		if _, ok := seen[seg.RunID]; ok {
			continue
		}
		seen[seg.RunID] = struct{}{}
		_ = c.store.DeleteByRun(ctx, seg.RunID)
	}
}

// planOrResume consults the store for a prior incomplete plan against the
// same destination+file before planning fresh, per §4.9 step 5 / §9's
// cross-run-resume resolution. On resume, previously completed segments
// keep their status and are excluded from the scheduler's run.
func (c *Coordinator) planOrResume(ctx context.Context, req *internal.DownloadRequest, runID, fileName string, desc internal.ResourceDescriptor) ([]internal.SegmentRecord, error) {
	if req.AllowResume {
		prior, err := c.store.ListByDestination(ctx, req.DestinationDir, fileName)
		if err == nil && len(prior) == req.SegmentCount && planCoversTotal(prior, desc.TotalBytes) {
			return prior, nil
		}
	}

	segments, err := c.planner.Plan(runID, desc.TotalBytes, req.SegmentCount, req.DestinationDir, fileName)
	if err != nil {
		return nil, err
	}
	for _, seg := range segments {
		if err := c.store.Put(ctx, seg); err != nil {
			return nil, internal.NewDownloadError(internal.ConfigInvalid, "failed to persist segment plan", err)
		}
	}
	return segments, nil
}

func planCoversTotal(segments []internal.SegmentRecord, total int64) bool {
	if len(segments) == 0 {
		return false
	}
	return segments[len(segments)-1].EndByte == total-1 && segments[0].StartByte == 0
}

func pendingOnly(segments []internal.SegmentRecord) []internal.SegmentRecord {
	var out []internal.SegmentRecord
	for _, seg := range segments {
		if seg.Status != internal.SegmentCompleted {
			out = append(out, seg)
		}
	}
	return out
}
