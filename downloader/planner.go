package downloader

import (
	"parafetch/internal"
	"parafetch/utils"
)

// Planner partitions a resource's byte space into contiguous segments and
// allocates their scratch paths. It holds no state of its own — all output
// is either returned to the caller or, via Store, persisted by the
// Coordinator.
type Planner struct {
	fs *utils.FileOperations
}

func NewPlanner() *Planner {
	return &Planner{fs: utils.NewFileOperations()}
}

// Plan computes up to N SegmentRecords covering [0, total), per §4.2:
// segment_size = ceil(total/N), every segment but the last gets exactly
// that size, the last absorbs the remainder. When fewer than N segments of
// that size already reach total-1 (for example N > total), planning stops
// there and fewer than N records are returned. Every record starts Pending.
func (p *Planner) Plan(runID string, total int64, segmentCount int, destinationDir, fileName string) ([]internal.SegmentRecord, error) {
	if total <= 0 {
		return nil, internal.NewConfigInvalidError("cannot plan segments for a resource of non-positive size")
	}
	if segmentCount <= 0 {
		return nil, internal.NewConfigInvalidError("segment_count must be >= 1")
	}

	segmentSize := ceilDiv(total, int64(segmentCount))

	records := make([]internal.SegmentRecord, 0, segmentCount)
	for i := 0; i < segmentCount; i++ {
		start := int64(i) * segmentSize
		if start >= total {
			// Requested more segments than there are bytes to cover;
			// stop rather than emit empty/negative-length segments.
			break
		}
		end := start + segmentSize - 1
		if i == segmentCount-1 || end >= total-1 {
			end = total - 1
		}

		records = append(records, internal.SegmentRecord{
			RunID:          runID,
			SegmentIndex:   i,
			StartByte:      start,
			EndByte:        end,
			ScratchPath:    p.fs.ScratchPath(destinationDir, fileName, i),
			Status:         internal.SegmentPending,
			DestinationDir: destinationDir,
			FileName:       fileName,
		})

		if end == total-1 {
			break
		}
	}

	return records, nil
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
