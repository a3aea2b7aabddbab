package normalize

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

func (n *Normalizer) writeTables() error {
	if err := os.MkdirAll(n.paths.OutDataDir(), 0o755); err != nil {
		return fmt.Errorf("creating out/data dir: %w", err)
	}

	if err := n.writeAssessments(); err != nil {
		return err
	}
	if err := n.writeEnrollments(); err != nil {
		return err
	}
	if err := n.writeLevies(); err != nil {
		return err
	}
	return n.writeExpenditures()
}

func (n *Normalizer) writeAssessments() error {
	header := []string{"district", "year", "subject", "grade_band", "proficient_pct", "tested_n", "source_url"}
	rows := make([][]string, 0, len(n.assessments))
	for _, r := range n.assessments {
		tested := ""
		if r.TestedN > 0 {
			tested = strconv.Itoa(r.TestedN)
		}
		rows = append(rows, []string{
			r.District,
			strconv.Itoa(r.Year),
			r.Subject,
			r.GradeBand,
			formatFloat(r.ProficientPct),
			tested,
			r.SourceURL,
		})
	}
	if len(n.assessments) == 0 {
		n.logger.Warn("no assessment data found")
	}
	return n.writeTable("assessments", header, rows, n.assessments)
}

func (n *Normalizer) writeEnrollments() error {
	header := []string{"district", "year", "enrollment_total", "source_url"}
	rows := make([][]string, 0, len(n.enrollments))
	for _, r := range n.enrollments {
		rows = append(rows, []string{
			r.District,
			strconv.Itoa(r.Year),
			strconv.Itoa(r.EnrollmentTotal),
			r.SourceURL,
		})
	}
	if len(n.enrollments) == 0 {
		n.logger.Warn("no enrollment data found")
	}
	return n.writeTable("enrollment", header, rows, n.enrollments)
}

func (n *Normalizer) writeLevies() error {
	header := []string{"district", "fiscal_year", "levy_pct_change", "levy_limit", "proposed_levy", "source_url"}
	rows := make([][]string, 0, len(n.levies))
	for _, r := range n.levies {
		pct := ""
		if r.LevyPctChange != nil {
			pct = formatFloat(*r.LevyPctChange)
		}
		rows = append(rows, []string{
			r.District,
			r.FiscalYear,
			pct,
			r.LevyLimit,
			r.ProposedLevy,
			r.SourceURL,
		})
	}
	if len(n.levies) == 0 {
		n.logger.Warn("no levy data found")
	}
	return n.writeTable("levy", header, rows, n.levies)
}

func (n *Normalizer) writeExpenditures() error {
	header := []string{"district", "year", "per_pupil_expenditure", "source_url"}
	rows := make([][]string, 0, len(n.expenditures))
	for _, r := range n.expenditures {
		rows = append(rows, []string{
			r.District,
			strconv.Itoa(r.Year),
			formatFloat(r.PerPupil),
			r.SourceURL,
		})
	}
	return n.writeTable("expenditures", header, rows, n.expenditures)
}

// writeTable writes name.csv (always, header included even when empty)
// and name.json (record list) into out/data.
func (n *Normalizer) writeTable(name string, header []string, rows [][]string, jsonRows any) error {
	csvPath := filepath.Join(n.paths.OutDataDir(), name+".csv")
	if err := writeCSV(csvPath, header, rows); err != nil {
		return fmt.Errorf("writing %s.csv: %w", name, err)
	}

	jsonPath := filepath.Join(n.paths.OutDataDir(), name+".json")
	if err := writeJSON(jsonPath, jsonRows); err != nil {
		return fmt.Errorf("writing %s.json: %w", name, err)
	}

	n.logger.Info("saved table", "table", name, "rows", len(rows))
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	// Encode empty tables as [] rather than null.
	if string(data) == "null" {
		data = []byte("[]")
	}
	return os.WriteFile(path, data, 0o644)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
