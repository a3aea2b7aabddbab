// Package history keeps a local record of pipeline runs in SQLite so
// operators can see how recent fetches behaved without digging through
// logs.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID               int64
	Command          string
	StartedAt        time.Time
	Duration         time.Duration
	Districts        int
	DistrictsFailed  int
	SourcesTotal     int
	SourcesSucceeded int
	SourcesFailed    int
	SourcesReused    int
}

type Store struct {
	db *sql.DB
}

// DefaultPath places the history database under the user cache dir.
func DefaultPath() string {
	return filepath.Join(xdg.CacheHome, "districtdash", "history.db")
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			command           TEXT NOT NULL,
			started_at        DATETIME NOT NULL,
			duration_ms       INTEGER NOT NULL,
			districts         INTEGER NOT NULL DEFAULT 0,
			districts_failed  INTEGER NOT NULL DEFAULT 0,
			sources_total     INTEGER NOT NULL DEFAULT 0,
			sources_succeeded INTEGER NOT NULL DEFAULT 0,
			sources_failed    INTEGER NOT NULL DEFAULT 0,
			sources_reused    INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RecordRun(r Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (
			command, started_at, duration_ms,
			districts, districts_failed,
			sources_total, sources_succeeded, sources_failed, sources_reused
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.Command,
		r.StartedAt.UTC().Format(time.RFC3339),
		r.Duration.Milliseconds(),
		r.Districts,
		r.DistrictsFailed,
		r.SourcesTotal,
		r.SourcesSucceeded,
		r.SourcesFailed,
		r.SourcesReused,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT id, command, started_at, duration_ms,
		       districts, districts_failed,
		       sources_total, sources_succeeded, sources_failed, sources_reused
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(
			&r.ID, &r.Command, &startedAt, &durationMS,
			&r.Districts, &r.DistrictsFailed,
			&r.SourcesTotal, &r.SourcesSucceeded, &r.SourcesFailed, &r.SourcesReused,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
			r.StartedAt = t
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
