package downloader

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"parafetch/internal"
)

// SQLiteStore is the durable keyed map described in §4.3, backed by
// modernc.org/sqlite (pure Go, no cgo). One table is enough for one
// entity, so there is no migration framework — the schema is created
// once, in the constructor.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the segment store rooted at
// dbPath, typically "<destination_dir>/.parafetch.db".
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open segment store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping segment store: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS segments (
			scratch_path  TEXT PRIMARY KEY,
			run_id        TEXT NOT NULL,
			segment_index INTEGER NOT NULL,
			start_byte    INTEGER NOT NULL,
			end_byte      INTEGER NOT NULL,
			status        INTEGER NOT NULL,
			destination_dir TEXT NOT NULL DEFAULT '',
			file_name       TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_segments_run_id ON segments(run_id);
		CREATE INDEX IF NOT EXISTS idx_segments_dest ON segments(destination_dir, file_name);
	`)
	if err != nil {
		return fmt.Errorf("init segment store schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, record internal.SegmentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO segments (scratch_path, run_id, segment_index, start_byte, end_byte, status, destination_dir, file_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scratch_path) DO UPDATE SET
			run_id=excluded.run_id, segment_index=excluded.segment_index,
			start_byte=excluded.start_byte, end_byte=excluded.end_byte,
			status=excluded.status, destination_dir=excluded.destination_dir,
			file_name=excluded.file_name
	`, record.ScratchPath, record.RunID, record.SegmentIndex, record.StartByte, record.EndByte, int(record.Status), record.DestinationDir, record.FileName)
	if err != nil {
		return fmt.Errorf("put segment record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, scratchPath string) (internal.SegmentRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT scratch_path, run_id, segment_index, start_byte, end_byte, status, destination_dir, file_name
		FROM segments WHERE scratch_path = ?
	`, scratchPath)

	var rec internal.SegmentRecord
	var status int
	err := row.Scan(&rec.ScratchPath, &rec.RunID, &rec.SegmentIndex, &rec.StartByte, &rec.EndByte, &status, &rec.DestinationDir, &rec.FileName)
	if err == sql.ErrNoRows {
		return internal.SegmentRecord{}, false, nil
	}
	if err != nil {
		return internal.SegmentRecord{}, false, fmt.Errorf("get segment record: %w", err)
	}
	rec.Status = internal.SegmentStatus(status)
	return rec, true, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, scratchPath string, status internal.SegmentStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE segments SET status = ? WHERE scratch_path = ?`, int(status), scratchPath)
	if err != nil {
		return fmt.Errorf("update segment status: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListByRun(ctx context.Context, runID string) ([]internal.SegmentRecord, error) {
	return s.query(ctx, `
		SELECT scratch_path, run_id, segment_index, start_byte, end_byte, status, destination_dir, file_name
		FROM segments WHERE run_id = ? ORDER BY segment_index ASC
	`, runID)
}

func (s *SQLiteStore) ListByDestination(ctx context.Context, destinationDir, fileName string) ([]internal.SegmentRecord, error) {
	return s.query(ctx, `
		SELECT scratch_path, run_id, segment_index, start_byte, end_byte, status, destination_dir, file_name
		FROM segments WHERE destination_dir = ? AND file_name = ?
		AND run_id = (SELECT MAX(run_id) FROM segments WHERE destination_dir = ? AND file_name = ?)
		ORDER BY segment_index ASC
	`, destinationDir, fileName, destinationDir, fileName)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]internal.SegmentRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query segment records: %w", err)
	}
	defer rows.Close()

	var records []internal.SegmentRecord
	for rows.Next() {
		var rec internal.SegmentRecord
		var status int
		if err := rows.Scan(&rec.ScratchPath, &rec.RunID, &rec.SegmentIndex, &rec.StartByte, &rec.EndByte, &status, &rec.DestinationDir, &rec.FileName); err != nil {
			return nil, fmt.Errorf("scan segment record: %w", err)
		}
		rec.Status = internal.SegmentStatus(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) DeleteByRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM segments WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete segment records: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
