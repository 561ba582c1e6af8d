package downloader

import (
	"context"
	"path/filepath"
	"testing"

	"parafetch/internal"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "segments.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStorePutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := internal.SegmentRecord{
		RunID:          "run-1",
		SegmentIndex:   2,
		StartByte:      100,
		EndByte:        199,
		ScratchPath:    "/tmp/dest/file.bin.part2",
		Status:         internal.SegmentPending,
		DestinationDir: "/tmp/dest",
		FileName:       "file.bin",
	}

	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := store.Get(ctx, record.ScratchPath)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected record to be found")
	}
	if got != record {
		t.Errorf("round-tripped record = %+v, want %+v", got, record)
	}
}

func TestStoreGetMissingReturnsNotOK(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.Get(context.Background(), "/does/not/exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a missing key")
	}
}

func TestStoreUpdateStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := internal.SegmentRecord{RunID: "run-1", SegmentIndex: 0, ScratchPath: "/tmp/p0", StartByte: 0, EndByte: 9}
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.UpdateStatus(ctx, record.ScratchPath, internal.SegmentCompleted); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, ok, err := store.Get(ctx, record.ScratchPath)
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if got.Status != internal.SegmentCompleted {
		t.Errorf("expected status Completed, got %v", got.Status)
	}
}

func TestStoreListByRunOrdersBySegmentIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, idx := range []int{2, 0, 1} {
		rec := internal.SegmentRecord{
			RunID:        "run-x",
			SegmentIndex: idx,
			ScratchPath:  filepath.Join("/tmp", "part", string(rune('0'+idx))),
			StartByte:    int64(idx) * 10,
			EndByte:      int64(idx)*10 + 9,
		}
		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	records, err := store.ListByRun(ctx, "run-x")
	if err != nil {
		t.Fatalf("ListByRun failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.SegmentIndex != i {
			t.Errorf("position %d has SegmentIndex %d, want %d", i, rec.SegmentIndex, i)
		}
	}
}

func TestStoreListByDestinationFindsMostRecentRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := internal.SegmentRecord{RunID: "run-old", SegmentIndex: 0, ScratchPath: "/tmp/dest/file.bin.part0", DestinationDir: "/tmp/dest", FileName: "file.bin"}
	if err := store.Put(ctx, old); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	records, err := store.ListByDestination(ctx, "/tmp/dest", "file.bin")
	if err != nil {
		t.Fatalf("ListByDestination failed: %v", err)
	}
	if len(records) != 1 || records[0].RunID != "run-old" {
		t.Errorf("expected to find the prior run's record, got %+v", records)
	}
}

func TestStoreDeleteByRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := internal.SegmentRecord{RunID: "run-1", SegmentIndex: 0, ScratchPath: "/tmp/p0"}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.DeleteByRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteByRun failed: %v", err)
	}
	records, err := store.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListByRun failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records after delete, got %d", len(records))
	}
}
