package downloader

import (
	"testing"
)

func TestPlannerPlan(t *testing.T) {
	tests := []struct {
		name         string
		total        int64
		segmentCount int
		expectedLen  int
		expectErr    bool
		description  string
	}{
		{
			name:         "even split",
			total:        1000,
			segmentCount: 4,
			expectedLen:  4,
			description:  "1000 bytes split evenly across 4 segments of 250 each",
		},
		{
			name:         "uneven split absorbs remainder in last segment",
			total:        1001,
			segmentCount: 4,
			expectedLen:  4,
			description:  "ceil(1001/4) = 251, last segment covers the remainder",
		},
		{
			name:         "more segments than bytes",
			total:        3,
			segmentCount: 10,
			expectedLen:  3,
			description:  "planning stops once the byte space is covered, rather than emitting empty segments",
		},
		{
			name:         "single segment",
			total:        500,
			segmentCount: 1,
			expectedLen:  1,
			description:  "one segment covering the whole resource",
		},
		{
			name:         "zero total is invalid",
			total:        0,
			segmentCount: 4,
			expectErr:    true,
			description:  "a non-positive total cannot be planned",
		},
		{
			name:         "zero segment count is invalid",
			total:        1000,
			segmentCount: 0,
			expectErr:    true,
			description:  "segment_count must be >= 1",
		},
	}

	p := NewPlanner()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := p.Plan("run1", tt.total, tt.segmentCount, "/tmp/dest", "file.bin")
			if tt.expectErr {
				if err == nil {
					t.Fatalf("%s: expected error, got nil", tt.description)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.description, err)
			}
			if len(segments) != tt.expectedLen {
				t.Fatalf("%s: expected %d segments, got %d", tt.description, tt.expectedLen, len(segments))
			}

			if segments[0].StartByte != 0 {
				t.Errorf("first segment must start at 0, got %d", segments[0].StartByte)
			}
			last := segments[len(segments)-1]
			if last.EndByte != tt.total-1 {
				t.Errorf("last segment must end at total-1 (%d), got %d", tt.total-1, last.EndByte)
			}
			for i := 1; i < len(segments); i++ {
				if segments[i].StartByte != segments[i-1].EndByte+1 {
					t.Errorf("segment %d does not start immediately after segment %d ends: %d != %d+1",
						i, i-1, segments[i].StartByte, segments[i-1].EndByte)
				}
			}
			for i, seg := range segments {
				if seg.SegmentIndex != i {
					t.Errorf("segment at position %d has SegmentIndex %d", i, seg.SegmentIndex)
				}
				if seg.Status != 0 {
					t.Errorf("segment %d should start Pending, got %v", i, seg.Status)
				}
			}
		})
	}
}
