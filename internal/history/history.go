// Package history records every segment execution in a local SQLite
// database, grouped by build run.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/gridmake/internal/segment"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const schema = `
CREATE TABLE IF NOT EXISTS executions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT    NOT NULL,
    segment_id  INTEGER NOT NULL,
    title       TEXT    NOT NULL,
    executed    INTEGER NOT NULL,
    duration_ns INTEGER,
    started_at  INTEGER NOT NULL,
    error       TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS executions_run ON executions (run_id);
`

// Entry is one recorded execution.
type Entry struct {
	RunID     string
	SegmentID int
	Title     string
	Executed  bool
	// Duration is zero when the segment was skipped or failed.
	Duration  time.Duration
	StartedAt time.Time
	Error     string
}

// Store is a SQLite-backed execution log.
type Store struct {
	db    *sql.DB
	runID string
}

// Open opens (or creates) the database at path and starts a new run.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	s := &Store{db: db}
	s.StartRun()
	return s, nil
}

// StartRun begins a new run; later records share its id.
func (s *Store) StartRun() string {
	s.runID = uuid.Must(uuid.NewV7()).String()
	return s.runID
}

// RunID returns the id of the current run.
func (s *Store) RunID() string {
	return s.runID
}

// Record stores the outcome of one execution of seg. execErr is the error
// Execute returned, if any.
func (s *Store) Record(ctx context.Context, seg *segment.Segment, started time.Time, execErr error) error {
	var duration sql.NullInt64
	if d, ok := seg.Duration(); ok && execErr == nil {
		duration = sql.NullInt64{Int64: int64(d), Valid: true}
	}
	executed := execErr == nil && seg.Executed()
	msg := ""
	if execErr != nil {
		msg = execErr.Error()
	}

	const q = `
		INSERT INTO executions (run_id, segment_id, title, executed, duration_ns, started_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, s.runID, seg.ID(), seg.Title(), executed, duration, started.UnixNano(), msg); err != nil {
		return fmt.Errorf("history: record segment %d: %w", seg.ID(), err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	const q = `
		SELECT run_id, segment_id, title, executed, duration_ns, started_at, error
		FROM executions
		ORDER BY id DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			duration sql.NullInt64
			started  int64
		)
		if err := rows.Scan(&e.RunID, &e.SegmentID, &e.Title, &e.Executed, &duration, &started, &e.Error); err != nil {
			return nil, fmt.Errorf("history: scan entry: %w", err)
		}
		if duration.Valid {
			e.Duration = time.Duration(duration.Int64)
		}
		e.StartedAt = time.Unix(0, started)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
