package chartspec

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evcatalyst/nys-district-dashboard/internal/config"
	"github.com/evcatalyst/nys-district-dashboard/internal/normalize"
)

const disclaimer = "Data shows test score trends. No causal claim is made."

var (
	elaColor  = "#1f77b4"
	mathColor = "#ff7f0e"
	levyColor = "#2ca02c"
)

// Builder reads the normalized tables from out/data and writes one spec
// document per district plus one benchmark document per BOCES region.
type Builder struct {
	paths  config.Paths
	roster []config.District
	logger *slog.Logger
	now    func() time.Time
}

func NewBuilder(paths config.Paths, roster []config.District, logger *slog.Logger) *Builder {
	return &Builder{
		paths:  paths,
		roster: roster,
		logger: logger,
		now:    time.Now,
	}
}

// Run builds all spec documents. Districts that appear in the roster or
// in any normalized table get a spec even when their tables are empty,
// so the site never links to a missing page.
func (b *Builder) Run() error {
	assessments, err := loadTable[normalize.AssessmentRow](b.paths, "assessments.json")
	if err != nil {
		return err
	}
	levies, err := loadTable[normalize.LevyRow](b.paths, "levy.json")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(b.paths.OutSpecDir(), 0o755); err != nil {
		return fmt.Errorf("creating out/spec dir: %w", err)
	}

	generatedAt := b.now().UTC().Format(time.RFC3339)
	meta := Metadata{GeneratedAt: generatedAt, Disclaimer: disclaimer}

	districts := b.districtNames(assessments, levies)
	index := Index{GeneratedAt: generatedAt}

	for _, name := range districts {
		spec := DistrictSpec{
			District: name,
			Charts: []Chart{
				proficiencyChart(name, filterAssessments(assessments, name)),
				levyChart(name, filterLevies(levies, name)),
			},
			Metadata: meta,
		}
		file := slugify(name) + ".json"
		if err := writeSpec(filepath.Join(b.paths.OutSpecDir(), file), spec); err != nil {
			return err
		}
		index.Districts = append(index.Districts, IndexEntry{Name: name, File: file})
	}

	for _, region := range b.bocesRegions() {
		spec := b.benchmarkSpec(region, assessments, meta)
		file := "boces_" + slugify(region) + ".json"
		if err := writeSpec(filepath.Join(b.paths.OutSpecDir(), file), spec); err != nil {
			return err
		}
		index.Benchmarks = append(index.Benchmarks, IndexEntry{Name: region, File: file})
	}

	if err := writeSpec(filepath.Join(b.paths.OutSpecDir(), "index.json"), index); err != nil {
		return err
	}

	b.logger.Info("chart specs written",
		"districts", len(index.Districts),
		"benchmarks", len(index.Benchmarks),
	)
	return nil
}

// districtNames is the sorted union of roster districts and districts
// present in the normalized tables.
func (b *Builder) districtNames(assessments []normalize.AssessmentRow, levies []normalize.LevyRow) []string {
	seen := make(map[string]bool)
	for _, d := range b.roster {
		seen[d.Name] = true
	}
	for _, row := range assessments {
		seen[row.District] = true
	}
	for _, row := range levies {
		seen[row.District] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Builder) bocesRegions() []string {
	seen := make(map[string]bool)
	for _, d := range b.roster {
		if d.BOCES != "" {
			seen[d.BOCES] = true
		}
	}
	regions := make([]string, 0, len(seen))
	for r := range seen {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}

func (b *Builder) memberDistricts(region string) []string {
	var members []string
	for _, d := range b.roster {
		if d.BOCES == region {
			members = append(members, d.Name)
		}
	}
	return members
}

func proficiencyChart(district string, rows []normalize.AssessmentRow) Chart {
	data := make([]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, r)
	}
	return Chart{
		Type:  "line",
		Title: district + " Proficiency Trends",
		Data:  data,
		XAxis: Axis{Label: "Year", Field: "year"},
		YAxis: Axis{Label: "Proficient (%)", Field: "proficient_pct", Min: ptr(0), Max: ptr(100)},
		Series: []Series{
			{Name: "ELA", Field: "proficient_pct", Filter: map[string]string{"subject": "ELA"}, Color: elaColor},
			{Name: "Math", Field: "proficient_pct", Filter: map[string]string{"subject": "MATH"}, Color: mathColor},
		},
		Annotations: []Annotation{{Text: disclaimer}},
	}
}

func levyChart(district string, rows []normalize.LevyRow) Chart {
	data := make([]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, r)
	}
	return Chart{
		Type:  "bar",
		Title: district + " Tax Levy Change",
		Data:  data,
		XAxis: Axis{Label: "Fiscal Year", Field: "fiscal_year"},
		YAxis: Axis{Label: "Levy Change (%)", Field: "levy_pct_change", Min: ptr(-5), Max: ptr(10)},
		Series: []Series{
			{Name: "Levy % Change", Field: "levy_pct_change", Color: levyColor},
		},
	}
}

// benchmarkSpec averages member-district proficiency per year and
// subject. Districts with no data that year simply do not contribute.
func (b *Builder) benchmarkSpec(region string, assessments []normalize.AssessmentRow, meta Metadata) BenchmarkSpec {
	members := b.memberDistricts(region)
	memberSet := make(map[string]bool, len(members))
	for _, m := range members {
		memberSet[m] = true
	}

	type key struct {
		year    int
		subject string
	}
	sums := make(map[key]float64)
	counts := make(map[key]int)
	for _, row := range assessments {
		if !memberSet[row.District] {
			continue
		}
		k := key{row.Year, row.Subject}
		sums[k] += row.ProficientPct
		counts[k]++
	}

	keys := make([]key, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].subject < keys[j].subject
	})

	type benchmarkRow struct {
		Year          int     `json:"year"`
		Subject       string  `json:"subject"`
		ProficientPct float64 `json:"proficient_pct"`
		Districts     int     `json:"districts"`
	}
	data := make([]any, 0, len(keys))
	for _, k := range keys {
		data = append(data, benchmarkRow{
			Year:          k.year,
			Subject:       k.subject,
			ProficientPct: sums[k] / float64(counts[k]),
			Districts:     counts[k],
		})
	}

	chart := Chart{
		Type:  "line",
		Title: region + " BOCES Average Proficiency",
		Data:  data,
		XAxis: Axis{Label: "Year", Field: "year"},
		YAxis: Axis{Label: "Proficient (%)", Field: "proficient_pct", Min: ptr(0), Max: ptr(100)},
		Series: []Series{
			{Name: "ELA", Field: "proficient_pct", Filter: map[string]string{"subject": "ELA"}, Color: elaColor},
			{Name: "Math", Field: "proficient_pct", Filter: map[string]string{"subject": "MATH"}, Color: mathColor},
		},
		Annotations: []Annotation{{Text: disclaimer}},
	}

	return BenchmarkSpec{
		BOCES:     region,
		Districts: members,
		Charts:    []Chart{chart},
		Metadata:  meta,
	}
}

func filterAssessments(rows []normalize.AssessmentRow, district string) []normalize.AssessmentRow {
	var out []normalize.AssessmentRow
	for _, r := range rows {
		if r.District == district {
			out = append(out, r)
		}
	}
	return out
}

func filterLevies(rows []normalize.LevyRow, district string) []normalize.LevyRow {
	var out []normalize.LevyRow
	for _, r := range rows {
		if r.District == district {
			out = append(out, r)
		}
	}
	return out
}

// loadTable reads one normalized JSON table; a missing table is treated
// as empty so spec building works on partial pipelines.
func loadTable[T any](paths config.Paths, name string) ([]T, error) {
	data, err := os.ReadFile(filepath.Join(paths.OutDataDir(), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return rows, nil
}

func writeSpec(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

func ptr(v float64) *float64 { return &v }
