package downloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"parafetch/internal"
)

func TestWorkerProcessWritesScratchFileByteExact(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	transport := newFakeTransport(payload)

	dir := t.TempDir()
	scratchPath := filepath.Join(dir, "file.bin.part0")

	segment := internal.SegmentRecord{
		SegmentIndex: 0,
		StartByte:    4,
		EndByte:      8,
		ScratchPath:  scratchPath,
	}

	w := NewWorker(0, "http://example.invalid", transport, 2, time.Second, internal.NewDefaultLogger())
	outbox := make(chan internal.WorkerMessage, 32)
	w.process(context.Background(), segment, outbox)

	var done bool
	for msg := range drainAll(outbox) {
		if msg.Kind == internal.MsgSegmentError {
			t.Fatalf("unexpected segment error: %v", msg.Reason)
		}
		if msg.Kind == internal.MsgSegmentDone {
			done = true
		}
	}
	if !done {
		t.Fatalf("worker never reported MsgSegmentDone")
	}

	got, err := os.ReadFile(scratchPath)
	if err != nil {
		t.Fatalf("failed to read scratch file: %v", err)
	}
	want := payload[4:9]
	if string(got) != string(want) {
		t.Errorf("scratch file content = %q, want %q", got, want)
	}
}

func TestWorkerRetryBound(t *testing.T) {
	tests := []struct {
		name          string
		failures      int
		maxRetries    int
		expectSuccess bool
		description   string
	}{
		{
			name:          "fails exactly at the retry bound",
			failures:      3,
			maxRetries:    2,
			expectSuccess: false,
			description:   "3 consecutive failures with max_retries=2 (3 attempts total) exhausts retries",
		},
		{
			name:          "succeeds within the retry bound",
			failures:      2,
			maxRetries:    2,
			expectSuccess: true,
			description:   "2 failures then a success, with max_retries=2 allowing 3 attempts total",
		},
		{
			name:          "succeeds on first attempt",
			failures:      0,
			maxRetries:    0,
			expectSuccess: true,
			description:   "no failures, no retries needed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte("0123456789")
			transport := newFakeTransport(payload)
			transport.failFirstN = tt.failures

			dir := t.TempDir()
			segment := internal.SegmentRecord{
				SegmentIndex: 0,
				StartByte:    0,
				EndByte:      9,
				ScratchPath:  filepath.Join(dir, "file.bin.part0"),
			}

			w := NewWorker(0, "http://example.invalid", transport, tt.maxRetries, time.Second, internal.NewDefaultLogger())
			outbox := make(chan internal.WorkerMessage, 32)
			w.process(context.Background(), segment, outbox)
			close(outbox)

			var gotDone, gotErr bool
			for msg := range outbox {
				switch msg.Kind {
				case internal.MsgSegmentDone:
					gotDone = true
				case internal.MsgSegmentError:
					gotErr = true
				}
			}

			if tt.expectSuccess && !gotDone {
				t.Fatalf("%s: expected success, got error=%v", tt.description, gotErr)
			}
			if !tt.expectSuccess && !gotErr {
				t.Fatalf("%s: expected failure, got done=%v", tt.description, gotDone)
			}
		})
	}
}

// drainAll reads every buffered message currently in ch without blocking for
// more, returning them on a closed channel for range iteration.
func drainAll(ch chan internal.WorkerMessage) chan internal.WorkerMessage {
	out := make(chan internal.WorkerMessage, len(ch))
	for {
		select {
		case msg := <-ch:
			out <- msg
		default:
			close(out)
			return out
		}
	}
}
