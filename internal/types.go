package internal

import "context"

// Mode selects how a download is carried out.
type Mode int

const (
	ModeSequential Mode = iota
	ModeSegmentedPool
	ModeSegmentedFixed
)

func (m Mode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeSegmentedPool:
		return "segmented_pool"
	case ModeSegmentedFixed:
		return "segmented_fixed"
	default:
		return "unknown"
	}
}

// SegmentStatus is the lifecycle state of one planned segment.
type SegmentStatus int

const (
	SegmentPending SegmentStatus = iota
	SegmentInProgress
	SegmentCompleted
	SegmentFailed
)

func (s SegmentStatus) String() string {
	switch s {
	case SegmentPending:
		return "pending"
	case SegmentInProgress:
		return "in_progress"
	case SegmentCompleted:
		return "completed"
	case SegmentFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DownloadRequest is the immutable description of one download run.
type DownloadRequest struct {
	URL                 string
	DestinationDir      string
	Mode                Mode
	SegmentCount        int
	WorkerCount         int
	MaxRetries          int
	AllowResume         bool
	RequestTimeout      int // seconds, per worker GET attempt

	OnProgress func(percent float64)
	OnComplete func(path string)
	OnError    func(message string)

	Logger    *Logger
	Transport Transport
	Context   context.Context
}

// Validate checks the invariants the Coordinator requires before any I/O.
func (r *DownloadRequest) Validate() error {
	if r.SegmentCount < 1 {
		return NewDownloadError(ConfigInvalid, "segment_count must be >= 1", nil).WithContext("segment_count", r.SegmentCount)
	}
	if r.WorkerCount < 1 {
		return NewDownloadError(ConfigInvalid, "worker_count must be >= 1", nil).WithContext("worker_count", r.WorkerCount)
	}
	if r.MaxRetries < 0 {
		return NewDownloadError(ConfigInvalid, "max_retries must be >= 0", nil).WithContext("max_retries", r.MaxRetries)
	}
	if r.URL == "" {
		return NewDownloadError(ConfigInvalid, "url must not be empty", nil)
	}
	if r.DestinationDir == "" {
		return NewDownloadError(ConfigInvalid, "destination_directory must not be empty", nil)
	}
	return nil
}

func (r *DownloadRequest) emitProgress(percent float64) {
	if r.OnProgress != nil {
		r.OnProgress(percent)
	}
}

func (r *DownloadRequest) emitComplete(path string) {
	if r.OnComplete != nil {
		r.OnComplete(path)
	}
}

func (r *DownloadRequest) emitError(message string) {
	if r.OnError != nil {
		r.OnError(message)
	}
}

// EmitProgress reports percent completion through the request's sink.
func (r *DownloadRequest) EmitProgress(percent float64) { r.emitProgress(percent) }

// EmitComplete reports the terminal success path through the request's sink.
func (r *DownloadRequest) EmitComplete(path string) { r.emitComplete(path) }

// EmitError reports the terminal failure path through the request's sink.
func (r *DownloadRequest) EmitError(message string) { r.emitError(message) }

// ResourceDescriptor is what the Probe learns about the remote resource.
type ResourceDescriptor struct {
	TotalBytes     int64
	RangeSupported bool
}

// SegmentRecord is one planned, persisted byte range.
type SegmentRecord struct {
	RunID          string
	SegmentIndex   int
	StartByte      int64
	EndByte        int64
	ScratchPath    string
	Status         SegmentStatus
	DestinationDir string
	FileName       string
}

// Len returns the number of bytes the segment spans.
func (s SegmentRecord) Len() int64 { return s.EndByte - s.StartByte + 1 }

// WorkerMessageKind tags the variant carried by a WorkerMessage.
type WorkerMessageKind int

const (
	MsgReady WorkerMessageKind = iota
	MsgBytesDownloaded
	MsgSegmentDone
	MsgSegmentError
)

// WorkerMessage is the single message type workers emit to the aggregate
// coordinator inbox. WorkerID is always set; Kind selects which payload
// fields are meaningful, as marked on each field.
type WorkerMessage struct {
	Kind WorkerMessageKind

	WorkerID int
	Ready    chan SegmentRecord // MsgReady: channel this worker wants fed

	BytesDelta int64 // MsgBytesDownloaded

	Segment SegmentRecord // MsgSegmentDone / MsgSegmentError
	Reason  error         // MsgSegmentError
}

// Progress is the aggregate, derived view of a run's byte throughput.
type Progress struct {
	BytesDownloadedTotal int64
	TotalBytes           int64
}

// Percent returns the 0..100 completion estimate. It is not clamped to 100
// because retries may transiently push the running sum past TotalBytes.
func (p Progress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}
	return 100 * float64(p.BytesDownloadedTotal) / float64(p.TotalBytes)
}
