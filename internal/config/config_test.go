package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.FetchWorkers != 4 {
		t.Errorf("expected 4 default workers, got %d", cfg.FetchWorkers)
	}
	if cfg.FrequentWindow() != 24*time.Hour {
		t.Errorf("expected 24h frequent window, got %v", cfg.FrequentWindow())
	}
	if cfg.BackgroundWindow() != 30*24*time.Hour {
		t.Errorf("expected 30d background window, got %v", cfg.BackgroundWindow())
	}
	if cfg.DataSiteBaseURL == "" {
		t.Error("expected default data site base URL")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("expected fallback to defaults, got %v", err)
	}
	if cfg.FetchWorkers != 4 {
		t.Errorf("expected default workers, got %d", cfg.FetchWorkers)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "fetch_workers: 8\nfrequent_refresh_hours: 6\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing settings: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FetchWorkers != 8 {
		t.Errorf("expected 8 workers from file, got %d", cfg.FetchWorkers)
	}
	if cfg.FrequentWindow() != 6*time.Hour {
		t.Errorf("expected 6h window from file, got %v", cfg.FrequentWindow())
	}
	// Untouched keys keep their defaults.
	if cfg.BackgroundRefreshDays != 30 {
		t.Errorf("expected default background days, got %d", cfg.BackgroundRefreshDays)
	}
}

func TestEnvOverridesWinLast(t *testing.T) {
	t.Setenv("FETCH_MAX_WORKERS", "12")
	t.Setenv("FREQUENT_REFRESH_HOURS", "3")
	t.Setenv("BACKGROUND_REFRESH_DAYS", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FetchWorkers != 12 {
		t.Errorf("expected 12 workers from env, got %d", cfg.FetchWorkers)
	}
	if cfg.FrequentRefreshHours != 3 {
		t.Errorf("expected 3h from env, got %d", cfg.FrequentRefreshHours)
	}
	if cfg.BackgroundRefreshDays != 7 {
		t.Errorf("expected 7d from env, got %d", cfg.BackgroundRefreshDays)
	}
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("FETCH_MAX_WORKERS", "lots")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FetchWorkers != 4 {
		t.Errorf("expected default workers for unparseable env, got %d", cfg.FetchWorkers)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero workers", "fetch_workers: 0\n"},
		{"negative refresh", "frequent_refresh_hours: -1\n"},
		{"empty base url", "data_site_base_url: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatalf("writing settings: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestYearRanges(t *testing.T) {
	cfg := Config{AssessmentsStartYear: 2022, AssessmentsEndYear: 2024}
	years := cfg.AssessmentYears()
	if len(years) != 3 || years[0] != 2022 || years[2] != 2024 {
		t.Errorf("unexpected year range %v", years)
	}

	cfg = Config{AssessmentsStartYear: 2024, AssessmentsEndYear: 2020}
	if got := cfg.AssessmentYears(); got != nil {
		t.Errorf("expected nil for inverted range, got %v", got)
	}
}

func TestPathsLayout(t *testing.T) {
	p := Paths{Workdir: "/work"}
	if got := p.SourcesJSON(); got != filepath.Join("/work", "cache", "sources.json") {
		t.Errorf("unexpected sources path %s", got)
	}
	if got := p.OutSpecDir(); got != filepath.Join("/work", "out", "spec") {
		t.Errorf("unexpected spec dir %s", got)
	}
}
