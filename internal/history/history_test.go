package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecentRuns(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	runs := []Run{
		{Command: "fetch", StartedAt: base, Duration: 30 * time.Second, Districts: 5, SourcesTotal: 100, SourcesSucceeded: 90, SourcesFailed: 10},
		{Command: "build", StartedAt: base.Add(time.Hour), Duration: 2 * time.Minute, Districts: 5, SourcesTotal: 100, SourcesSucceeded: 100, SourcesReused: 80},
	}
	for _, r := range runs {
		if err := s.RecordRun(r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := s.RecentRuns(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	// Newest first.
	if got[0].Command != "build" {
		t.Errorf("expected build first, got %s", got[0].Command)
	}
	if got[0].SourcesReused != 80 {
		t.Errorf("expected 80 reused, got %d", got[0].SourcesReused)
	}
	if !got[1].StartedAt.Equal(base) {
		t.Errorf("expected start time to round-trip, got %v", got[1].StartedAt)
	}
	if got[1].Duration != 30*time.Second {
		t.Errorf("expected duration to round-trip, got %v", got[1].Duration)
	}
}

func TestRecentRunsLimit(t *testing.T) {
	s := testStore(t)
	base := time.Now()
	for i := 0; i < 5; i++ {
		if err := s.RecordRun(Run{Command: "fetch", StartedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := s.RecentRuns(3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 runs with limit, got %d", len(got))
	}
}

func TestRecentRunsEmpty(t *testing.T) {
	s := testStore(t)
	got, err := s.RecentRuns(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no runs, got %d", len(got))
	}
}

func TestOpenCreatesDir(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "deep", "history.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("opening db in nested dir: %v", err)
	}
	s.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}
