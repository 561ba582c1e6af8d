package utils

import "testing"

func TestProgressTrackerOnProgressComputesAbsoluteBytes(t *testing.T) {
	tracker := NewProgressTracker(1000, true)

	tracker.OnProgress(50)
	speed, _, percent := tracker.GetCurrentStats()
	_ = speed
	if percent < 49 || percent > 51 {
		t.Errorf("expected percentage near 50, got %v", percent)
	}
}

func TestProgressTrackerOnProgressClampsAtTotal(t *testing.T) {
	tracker := NewProgressTracker(1000, true)

	tracker.OnProgress(150) // over 100%
	if tracker.current > tracker.total {
		t.Errorf("current (%d) should never exceed total (%d)", tracker.current, tracker.total)
	}
}

func TestProgressTrackerOnProgressNoopWhenTotalUnknown(t *testing.T) {
	tracker := NewProgressTracker(0, true)
	tracker.OnProgress(50)
	if tracker.current != 0 {
		t.Errorf("expected no-op when total is unknown, current = %d", tracker.current)
	}
}

func TestProgressTrackerFinishReturnsSummary(t *testing.T) {
	tracker := NewProgressTracker(500, true)
	tracker.Update(500)

	summary := tracker.Finish()
	if summary.TotalBytes != 500 {
		t.Errorf("expected TotalBytes=500, got %d", summary.TotalBytes)
	}
}

func TestProgressTrackerIsQuiet(t *testing.T) {
	if !NewProgressTracker(100, true).IsQuiet() {
		t.Error("expected IsQuiet() true when constructed with quiet=true")
	}
	if NewProgressTracker(100, false).IsQuiet() {
		t.Error("expected IsQuiet() false when constructed with quiet=false")
	}
}
