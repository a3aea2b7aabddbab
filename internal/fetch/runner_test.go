package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evcatalyst/nys-district-dashboard/internal/config"
	"github.com/evcatalyst/nys-district-dashboard/internal/sourcelog"
)

func TestRunOneFailingDistrictDoesNotAbortSiblings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Everything for the broken district errors; the rest succeeds.
		if strings.Contains(r.URL.RawQuery, "instid=broken") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	f := testFetcher(t, testConfig(server.URL), nil)
	districts := []config.District{
		{Name: "Alpha", InstID: "alpha"},
		{Name: "Broken", InstID: "broken"},
		{Name: "Gamma", InstID: "gamma"},
	}

	summary := f.Run(context.Background(), districts, 2)

	if summary.Districts != 3 {
		t.Errorf("expected 3 districts, got %d", summary.Districts)
	}
	if summary.DistrictsFailed != 0 {
		t.Errorf("failed fetches are recorded, not panics: expected 0 failed districts, got %d", summary.DistrictsFailed)
	}

	// 1 year x 2 subjects + enrollment + gradrate + pathways = 5 per
	// district, plus the failed fiscal profiles page.
	if summary.SourcesTotal != 16 {
		t.Errorf("expected 16 source records, got %d", summary.SourcesTotal)
	}
	if summary.SourcesFailed != 6 {
		t.Errorf("expected 6 failures (5 broken district + workbook), got %d", summary.SourcesFailed)
	}
	if summary.SourcesSucceeded != 10 {
		t.Errorf("expected 10 successes, got %d", summary.SourcesSucceeded)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := testFetcher(t, testConfig(server.URL), nil)
	districts := []config.District{
		{Name: "A", InstID: "1"},
		{Name: "B", InstID: "2"},
		{Name: "C", InstID: "3"},
		{Name: "D", InstID: "4"},
	}

	f.Run(context.Background(), districts, 1)

	if peak.Load() > 1 {
		t.Errorf("expected at most 1 concurrent request with 1 worker, saw %d", peak.Load())
	}
}

func TestRunContainsPanickingDistrictWorkflow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	f := testFetcher(t, cfg, nil)

	// The clock is called once at run start and once recording the
	// workbook outcome; the next calls come from inside the district
	// goroutines. Blowing up there exercises the recover at the
	// dispatch boundary.
	var calls atomic.Int64
	f.now = func() time.Time {
		n := calls.Add(1)
		if n >= 3 && n <= 4 {
			panic("clock failure")
		}
		return time.Now()
	}

	districts := []config.District{
		{Name: "A", InstID: "1"},
		{Name: "B", InstID: "2"},
	}

	summary := f.Run(context.Background(), districts, 2)

	if summary.DistrictsFailed != 2 {
		t.Errorf("expected both districts marked failed, got %d", summary.DistrictsFailed)
	}
}

func TestRunDefaultsWorkerCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := testFetcher(t, testConfig(server.URL), nil)
	summary := f.Run(context.Background(), []config.District{{Name: "A", InstID: "1"}}, 0)

	if summary.Districts != 1 {
		t.Errorf("expected run to proceed with defaulted workers, got %d districts", summary.Districts)
	}
}

func TestRunPersistedLogRoundTrips(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := testFetcher(t, testConfig(server.URL), nil)
	f.Run(context.Background(), []config.District{{Name: "A", InstID: "1"}}, 1)

	path := filepath.Join(f.cacheDir, "sources.json")
	if err := f.Log().Persist(path); err != nil {
		t.Fatalf("persist: %v", err)
	}

	idx := sourcelog.LoadPrevious(path, discardLogger())
	if idx.Len() == 0 {
		t.Error("expected persisted run log to load as a prior index")
	}
}
