// Package fetch is the cache-aware bulk downloader: it pulls assessment,
// enrollment, graduation, and budget pages per district plus one shared
// fiscal workbook, reusing cached artifacts that are still inside their
// staleness window and recording every outcome in the source log.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/evcatalyst/nys-district-dashboard/internal/config"
	"github.com/evcatalyst/nys-district-dashboard/internal/sourcelog"
)

// Fetcher coordinates cache decisions, network fetches, and source-log
// bookkeeping for one run. One Fetcher is shared by all district
// workflows; the run log it appends to is internally synchronized.
type Fetcher struct {
	cfg      *config.Config
	client   *Client
	cacheDir string
	prior    *sourcelog.PriorIndex
	log      *sourcelog.Log
	logger   *slog.Logger

	// force bypasses staleness checks and refetches everything.
	force bool

	now func() time.Time
}

func New(cfg *config.Config, client *Client, cacheDir string, prior *sourcelog.PriorIndex, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		cfg:      cfg,
		client:   client,
		cacheDir: cacheDir,
		prior:    prior,
		log:      sourcelog.NewLog(),
		logger:   logger,
		now:      time.Now,
	}
}

// SetForce disables cache reuse for this run.
func (f *Fetcher) SetForce(force bool) { f.force = force }

// Log exposes the run log for persistence after all workflows join.
func (f *Fetcher) Log() *sourcelog.Log { return f.log }

// fetchSource resolves one URL: reuse the cached artifact when it is
// still fresh under window, otherwise fetch with retry and record the
// outcome. Network failures are recorded, never returned; one unreachable
// URL must not abort the run.
func (f *Fetcher) fetchSource(ctx context.Context, url, filename string, window, timeout time.Duration) {
	if f.reuseIfFresh(url, window) {
		return
	}

	res, err := f.client.Get(ctx, url, timeout)
	if err != nil {
		f.logger.Warn("fetch failed", "url", url, "error", err)
		f.recordFailure(url)
		return
	}
	f.recordSuccess(url, filename, res)
}

// reuseIfFresh appends a reuse record and reports true when the prior
// run's artifact for url is still inside its staleness window. The
// original fetch timestamp, filepath, and hash are carried forward;
// only reused_at marks the cache hit.
func (f *Fetcher) reuseIfFresh(url string, window time.Duration) bool {
	if f.force {
		return false
	}
	rec, ok := f.prior.Lookup(url)
	if !ok || !sourcelog.Fresh(rec, window, f.now()) {
		return false
	}
	f.appendReuse(rec)
	return true
}

func (f *Fetcher) appendReuse(rec sourcelog.Record) {
	rec.Status = sourcelog.StatusSuccess
	rec.ReusedAt = f.timestamp()
	f.log.Append(rec)
}

func (f *Fetcher) recordSuccess(url, filename string, res *Result) {
	path, err := f.save(res.Body, filename)
	if err != nil {
		f.logger.Warn("saving artifact failed", "url", url, "filename", filename, "error", err)
		f.recordFailure(url)
		return
	}
	f.log.Append(sourcelog.Record{
		URL:          url,
		FetchedAt:    f.timestamp(),
		Status:       sourcelog.StatusSuccess,
		Filepath:     path,
		ETag:         res.ETag,
		LastModified: res.LastModified,
		SHA256:       hashContent(res.Body),
	})
}

func (f *Fetcher) recordFailure(url string) {
	f.log.Append(sourcelog.Record{
		URL:       url,
		FetchedAt: f.timestamp(),
		Status:    sourcelog.StatusFailed,
	})
}

// save writes content under the cache directory, overwriting any previous
// artifact with the same deterministic filename.
func (f *Fetcher) save(content []byte, filename string) (string, error) {
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	path := filepath.Join(f.cacheDir, filename)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return path, nil
}

func (f *Fetcher) timestamp() string {
	return f.now().UTC().Format(time.RFC3339)
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
