package sourcelog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// PriorIndex is the read-only view of the previous run's persisted log,
// reduced to the latest successful record per URL. It is built once at
// startup and never mutated, so concurrent lookups need no locking.
type PriorIndex struct {
	byURL      map[string]Record
	byFilename map[string]Record
}

// LoadPrevious reads the prior run's sources.json. An absent, unreadable,
// or non-list file yields an empty index: that is a cold start, not an
// error. Only success records whose artifact still exists are indexed;
// for each URL the record with the latest fetch timestamp wins, with later
// occurrences winning ties.
func LoadPrevious(path string, logger *slog.Logger) *PriorIndex {
	idx := &PriorIndex{
		byURL:      make(map[string]Record),
		byFilename: make(map[string]Record),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("could not read previous sources metadata", "path", path, "error", err)
		}
		return idx
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Warn("previous sources metadata is not a valid record list", "path", path, "error", err)
		return idx
	}

	for _, rec := range records {
		if rec.Status != StatusSuccess || rec.URL == "" || rec.Filepath == "" {
			continue
		}
		if _, err := os.Stat(rec.Filepath); err != nil {
			continue
		}
		if existing, found := idx.byURL[rec.URL]; !found || supersedes(rec, existing) {
			idx.byURL[rec.URL] = rec
		}
		// The filename index is resolved across URLs: when the workbook
		// link churns, old and new download URLs share one artifact name
		// and the latest fetch must win.
		name := filepath.Base(rec.Filepath)
		if existing, found := idx.byFilename[name]; !found || supersedes(rec, existing) {
			idx.byFilename[name] = rec
		}
	}
	return idx
}

// supersedes reports whether rec replaces existing: later fetch
// timestamps win, later occurrences win ties, and records without a
// parseable timestamp never displace one that has it.
func supersedes(rec, existing Record) bool {
	recTS, recOK := rec.FetchedTime()
	if !recOK {
		return false
	}
	existingTS, existingOK := existing.FetchedTime()
	return !existingOK || !recTS.Before(existingTS)
}

// Lookup returns the latest prior success record for url.
func (p *PriorIndex) Lookup(url string) (Record, bool) {
	rec, ok := p.byURL[url]
	return rec, ok
}

// LookupFilename returns the prior success record whose artifact carries
// the given base filename. This keys the shared workbook, whose download
// URL shifts when the hosting page changes its link.
func (p *PriorIndex) LookupFilename(name string) (Record, bool) {
	rec, ok := p.byFilename[name]
	return rec, ok
}

func (p *PriorIndex) Len() int { return len(p.byURL) }

// Log is the append-only record log for the current run. Appends are
// mutex-guarded; district workflows share one Log across goroutines.
type Log struct {
	mu      sync.Mutex
	records []Record
}

func NewLog() *Log {
	return &Log{records: make([]Record, 0, 64)}
}

func (l *Log) Append(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
}

// Records returns a copy of the run log.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Counts reports totals for the end-of-run summary. Reused records are a
// subset of the successful ones.
func (l *Log) Counts() (total, succeeded, failed, reused int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.records {
		switch rec.Status {
		case StatusSuccess:
			succeeded++
			if rec.ReusedAt != "" {
				reused++
			}
		case StatusFailed:
			failed++
		}
	}
	return len(l.records), succeeded, failed, reused
}

// Persist writes the full run log to path, replacing any previous file.
func (l *Log) Persist(path string) error {
	records := l.Records()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sources metadata: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing sources metadata: %w", err)
	}
	return nil
}
