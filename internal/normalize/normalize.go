// Package normalize turns cached raw artifacts into the structured
// CSV/JSON tables the chart builder reads. Parsing is heuristic by
// design: NYSED page layouts drift, so rows that cannot be extracted are
// logged and skipped rather than failing the stage.
package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/evcatalyst/nys-district-dashboard/internal/config"
	"github.com/evcatalyst/nys-district-dashboard/internal/fetch"
	"github.com/evcatalyst/nys-district-dashboard/internal/sourcelog"
)

type AssessmentRow struct {
	District      string  `json:"district"`
	Year          int     `json:"year"`
	Subject       string  `json:"subject"`
	GradeBand     string  `json:"grade_band"`
	ProficientPct float64 `json:"proficient_pct"`
	TestedN       int     `json:"tested_n,omitempty"`
	SourceURL     string  `json:"source_url"`
}

type EnrollmentRow struct {
	District        string `json:"district"`
	Year            int    `json:"year"`
	EnrollmentTotal int    `json:"enrollment_total"`
	SourceURL       string `json:"source_url"`
}

type LevyRow struct {
	District      string   `json:"district"`
	FiscalYear    string   `json:"fiscal_year"`
	LevyPctChange *float64 `json:"levy_pct_change,omitempty"`
	LevyLimit     string   `json:"levy_limit,omitempty"`
	ProposedLevy  string   `json:"proposed_levy,omitempty"`
	SourceURL     string   `json:"source_url"`
}

type ExpenditureRow struct {
	District  string  `json:"district"`
	Year      int     `json:"year"`
	PerPupil  float64 `json:"per_pupil_expenditure"`
	SourceURL string  `json:"source_url"`
}

// Normalizer accumulates rows extracted from cached artifacts and writes
// them out as paired CSV and JSON tables.
type Normalizer struct {
	paths  config.Paths
	logger *slog.Logger

	assessments  []AssessmentRow
	enrollments  []EnrollmentRow
	levies       []LevyRow
	expenditures []ExpenditureRow
}

func New(paths config.Paths, logger *slog.Logger) *Normalizer {
	return &Normalizer{paths: paths, logger: logger}
}

// Run processes every successful source record from the fetch stage and
// writes the normalized tables to out/data.
func (n *Normalizer) Run() error {
	records, err := n.loadSources()
	if err != nil {
		return err
	}

	for _, rec := range records {
		n.processRecord(rec)
	}

	if err := n.writeTables(); err != nil {
		return err
	}
	return n.copySources()
}

func (n *Normalizer) loadSources() ([]sourcelog.Record, error) {
	data, err := os.ReadFile(n.paths.SourcesJSON())
	if err != nil {
		return nil, fmt.Errorf("reading sources metadata: %w", err)
	}
	var records []sourcelog.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing sources metadata: %w", err)
	}
	return records, nil
}

func (n *Normalizer) processRecord(rec sourcelog.Record) {
	if rec.Status != sourcelog.StatusSuccess || rec.Filepath == "" {
		return
	}
	if _, err := os.Stat(rec.Filepath); err != nil {
		n.logger.Warn("artifact missing, skipping", "filepath", rec.Filepath)
		return
	}

	base := filepath.Base(rec.Filepath)
	switch {
	case strings.Contains(rec.URL, "assessment38.php"):
		n.processAssessment(rec, base)
	case strings.Contains(rec.URL, "enrollment.php"):
		n.processEnrollment(rec, base)
	case strings.HasSuffix(base, "_budget.html"):
		n.processBudget(rec, base)
	case base == fetch.WorkbookFilename:
		n.processWorkbook(rec)
	}
}

func (n *Normalizer) processAssessment(rec sourcelog.Record, base string) {
	year, ok := queryInt(rec.URL, "year")
	if !ok {
		return
	}
	subject := strings.ToUpper(queryString(rec.URL, "subject"))
	district := districtFromFilename(base, "_assessment_")
	if district == "" || subject == "" {
		return
	}

	rows, err := parseAssessmentFile(rec.Filepath, district, year, subject, rec.URL)
	if err != nil {
		n.logger.Warn("parsing assessment page failed", "filepath", rec.Filepath, "error", err)
		return
	}
	n.assessments = append(n.assessments, rows...)
}

func (n *Normalizer) processEnrollment(rec sourcelog.Record, base string) {
	year, ok := queryInt(rec.URL, "year")
	if !ok {
		return
	}
	district := districtFromFilename(base, "_enrollment_")
	if district == "" {
		return
	}

	row, err := parseEnrollmentFile(rec.Filepath, district, year, rec.URL)
	if err != nil {
		n.logger.Warn("parsing enrollment page failed", "filepath", rec.Filepath, "error", err)
		return
	}
	if row != nil {
		n.enrollments = append(n.enrollments, *row)
	}
}

func (n *Normalizer) processBudget(rec sourcelog.Record, base string) {
	stem := strings.TrimSuffix(base, ".html")
	district := titleCase(strings.TrimSuffix(stem, "_budget"))

	row, err := parseBudgetFile(rec.Filepath, district, rec.URL)
	if err != nil {
		n.logger.Warn("parsing budget page failed", "filepath", rec.Filepath, "error", err)
		return
	}
	if row != nil {
		n.levies = append(n.levies, *row)
	}
}

func (n *Normalizer) processWorkbook(rec sourcelog.Record) {
	rows, err := parseFiscalProfiles(rec.Filepath, rec.URL)
	if err != nil {
		n.logger.Warn("parsing fiscal profiles workbook failed", "filepath", rec.Filepath, "error", err)
		return
	}
	n.expenditures = append(n.expenditures, rows...)
}

// districtFromFilename recovers the district display name from the
// artifact filename's slug prefix ("test_district_assessment_math_2024.html"
// with marker "_assessment_" yields "Test District").
func districtFromFilename(base, marker string) string {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	idx := strings.Index(stem, marker)
	if idx < 0 {
		return ""
	}
	return titleCase(stem[:idx])
}

// titleCase upcases the first letter of every run of letters, so
// hyphenated names round-trip to their roster form
// ("burnt_hills-ballston_lake" -> "Burnt Hills-Ballston Lake").
func titleCase(slug string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range strings.ReplaceAll(slug, "_", " ") {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

func queryString(rawURL, key string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(key)
}

func queryInt(rawURL, key string) (int, bool) {
	s := queryString(rawURL, key)
	if s == "" {
		return 0, false
	}
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, false
	}
	return v, true
}

func (n *Normalizer) copySources() error {
	data, err := os.ReadFile(n.paths.SourcesJSON())
	if err != nil {
		return fmt.Errorf("reading sources metadata: %w", err)
	}
	dst := filepath.Join(n.paths.OutDataDir(), "sources.json")
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("copying sources metadata: %w", err)
	}
	return nil
}
