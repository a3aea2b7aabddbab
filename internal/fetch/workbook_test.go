package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evcatalyst/nys-district-dashboard/internal/sourcelog"
)

const fiscalPage = `<html><body>
<a href="/about">About</a>
<a href="files/fiscal2024.XLSX">Fiscal Profiles</a>
<a href="files/other.xlsx">Older workbook</a>
</body></html>`

func TestFetchFiscalProfilesDiscoversAndDownloads(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fiscalprofiles", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fiscalPage))
	})
	mux.HandleFunc("/files/fiscal2024.XLSX", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("workbook-bytes"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := testFetcher(t, testConfig(server.URL), nil)
	f.FetchFiscalProfiles(context.Background())

	records := f.log.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Status != sourcelog.StatusSuccess {
		t.Fatalf("expected success, got %s", rec.Status)
	}
	// First .xlsx link on the page, resolved against the page URL.
	if rec.URL != server.URL+"/files/fiscal2024.XLSX" {
		t.Errorf("unexpected workbook URL %s", rec.URL)
	}
	if filepath.Base(rec.Filepath) != WorkbookFilename {
		t.Errorf("expected artifact saved as %s, got %s", WorkbookFilename, filepath.Base(rec.Filepath))
	}
	content, err := os.ReadFile(rec.Filepath)
	if err != nil {
		t.Fatalf("reading workbook artifact: %v", err)
	}
	if string(content) != "workbook-bytes" {
		t.Errorf("unexpected workbook content %q", content)
	}
}

func TestFetchFiscalProfilesReusesByFilename(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(fiscalPage))
	}))
	defer server.Close()

	dir := t.TempDir()
	artifact := filepath.Join(dir, WorkbookFilename)
	os.WriteFile(artifact, []byte("cached workbook"), 0o644)

	now := time.Now()
	// The prior download URL differs from whatever the page links today;
	// reuse keys on the fixed artifact filename.
	prior := priorWith(t, sourcelog.Record{
		URL:       "http://old-host/files/fiscal2023.xlsx",
		FetchedAt: now.Add(-24 * time.Hour).UTC().Format(time.RFC3339),
		Status:    sourcelog.StatusSuccess,
		Filepath:  artifact,
	})

	f := testFetcher(t, testConfig(server.URL), prior)
	f.FetchFiscalProfiles(context.Background())

	if calls.Load() != 0 {
		t.Errorf("expected zero network calls for fresh workbook, got %d", calls.Load())
	}
	records := f.log.Records()
	if len(records) != 1 || records[0].ReusedAt == "" {
		t.Fatalf("expected one reuse record, got %+v", records)
	}
}

func TestFetchFiscalProfilesNoLinkRecordsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><a href='/about'>nothing here</a></html>"))
	}))
	defer server.Close()

	f := testFetcher(t, testConfig(server.URL), nil)
	f.FetchFiscalProfiles(context.Background())

	records := f.log.Records()
	if len(records) != 1 || records[0].Status != sourcelog.StatusFailed {
		t.Fatalf("expected one failure record, got %+v", records)
	}
}

func TestDiscoverWorkbookURLResolvesRelative(t *testing.T) {
	got, err := discoverWorkbookURL([]byte(`<a href="../data/profile.xlsx">x</a>`), "https://example.org/reports/fiscal/")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if got != "https://example.org/reports/data/profile.xlsx" {
		t.Errorf("unexpected resolved URL %s", got)
	}
}

func TestDiscoverWorkbookURLNoLink(t *testing.T) {
	_, err := discoverWorkbookURL([]byte(`<a href="report.pdf">x</a>`), "https://example.org/")
	if err == nil {
		t.Fatal("expected error when page has no .xlsx link")
	}
}
