package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default_settings.yaml
var defaultSettingsFS embed.FS

// Config holds all pipeline settings. It is built once at startup from the
// embedded defaults, an optional settings file, and environment overrides,
// and passed by reference into the components that need it.
type Config struct {
	AssessmentsStartYear  int `yaml:"assessments_start_year"`
	AssessmentsEndYear    int `yaml:"assessments_end_year"`
	GraduationStartYear   int `yaml:"graduation_start_year"`
	GraduationEndYear     int `yaml:"graduation_end_year"`
	ExpendituresStartYear int `yaml:"expenditures_start_year"`
	ExpendituresEndYear   int `yaml:"expenditures_end_year"`

	FetchWorkers          int `yaml:"fetch_workers"`
	FrequentRefreshHours  int `yaml:"frequent_refresh_hours"`
	BackgroundRefreshDays int `yaml:"background_refresh_days"`

	// Base URLs are configurable so tests can point at a local server.
	DataSiteBaseURL       string `yaml:"data_site_base_url"`
	FiscalProfilesPageURL string `yaml:"fiscal_profiles_page_url"`
}

func (c *Config) AssessmentYears() []int {
	return yearRange(c.AssessmentsStartYear, c.AssessmentsEndYear)
}

func (c *Config) GraduationYears() []int {
	return yearRange(c.GraduationStartYear, c.GraduationEndYear)
}

func (c *Config) ExpenditureYears() []int {
	return yearRange(c.ExpendituresStartYear, c.ExpendituresEndYear)
}

// FrequentWindow is the staleness window for fast-changing per-year
// district metrics (assessments, enrollment, graduation data).
func (c *Config) FrequentWindow() time.Duration {
	return time.Duration(c.FrequentRefreshHours) * time.Hour
}

// BackgroundWindow is the staleness window for slowly-changing documents
// (budget pages, the shared fiscal profiles workbook).
func (c *Config) BackgroundWindow() time.Duration {
	return time.Duration(c.BackgroundRefreshDays) * 24 * time.Hour
}

func yearRange(start, end int) []int {
	if end < start {
		return nil
	}
	years := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		years = append(years, y)
	}
	return years
}

func loadDefaults() (*Config, error) {
	data, err := defaultSettingsFS.ReadFile("default_settings.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded settings: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded settings: %w", err)
	}
	return &cfg, nil
}

// Load reads settings from path, falling back to embedded defaults when the
// file does not exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading settings: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing settings %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.FetchWorkers = getEnvInt("FETCH_MAX_WORKERS", cfg.FetchWorkers)
	cfg.FrequentRefreshHours = getEnvInt("FREQUENT_REFRESH_HOURS", cfg.FrequentRefreshHours)
	cfg.BackgroundRefreshDays = getEnvInt("BACKGROUND_REFRESH_DAYS", cfg.BackgroundRefreshDays)
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func validate(cfg *Config) error {
	if cfg.FetchWorkers <= 0 {
		return fmt.Errorf("fetch_workers must be positive, got %d", cfg.FetchWorkers)
	}
	if cfg.FrequentRefreshHours <= 0 {
		return fmt.Errorf("frequent_refresh_hours must be positive, got %d", cfg.FrequentRefreshHours)
	}
	if cfg.BackgroundRefreshDays <= 0 {
		return fmt.Errorf("background_refresh_days must be positive, got %d", cfg.BackgroundRefreshDays)
	}
	if cfg.DataSiteBaseURL == "" {
		return fmt.Errorf("data_site_base_url is required")
	}
	return nil
}

// Paths resolves the fixed directory layout under a working directory.
type Paths struct {
	Workdir string
}

func (p Paths) CacheDir() string      { return filepath.Join(p.Workdir, "cache") }
func (p Paths) SourcesJSON() string   { return filepath.Join(p.Workdir, "cache", "sources.json") }
func (p Paths) ConfigDir() string     { return filepath.Join(p.Workdir, "config") }
func (p Paths) DistrictsJSON() string { return filepath.Join(p.Workdir, "config", "districts.json") }
func (p Paths) SettingsYAML() string  { return filepath.Join(p.Workdir, "config", "settings.yaml") }
func (p Paths) ResourcesJSON() string { return filepath.Join(p.Workdir, "config", "resources.json") }
func (p Paths) SiteDir() string       { return filepath.Join(p.Workdir, "site") }
func (p Paths) OutDir() string        { return filepath.Join(p.Workdir, "out") }
func (p Paths) OutDataDir() string    { return filepath.Join(p.Workdir, "out", "data") }
func (p Paths) OutSpecDir() string    { return filepath.Join(p.Workdir, "out", "spec") }
