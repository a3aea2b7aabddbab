// Package chartspec builds the chart-spec JSON documents the static
// dashboard renders. Specs are declarative: each one names a chart
// type, carries its data rows inline, and describes axes and series so
// the front end needs no knowledge of where the numbers came from.
package chartspec

// Chart is a single renderable chart definition.
type Chart struct {
	Type        string       `json:"type"`
	Title       string       `json:"title"`
	Data        []any        `json:"data"`
	XAxis       Axis         `json:"x_axis"`
	YAxis       Axis         `json:"y_axis"`
	Series      []Series     `json:"series,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Axis labels one chart axis. Min/Max bound the value axis; both nil
// means auto-scale.
type Axis struct {
	Label string   `json:"label"`
	Field string   `json:"field,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Series selects a subset of a chart's data rows and styles them.
type Series struct {
	Name   string            `json:"name"`
	Field  string            `json:"field"`
	Filter map[string]string `json:"filter,omitempty"`
	Color  string            `json:"color,omitempty"`
}

type Annotation struct {
	Text string `json:"text"`
}

// DistrictSpec is the complete spec document for one district page.
type DistrictSpec struct {
	District string   `json:"district"`
	Charts   []Chart  `json:"charts"`
	Metadata Metadata `json:"metadata"`
}

// BenchmarkSpec aggregates proficiency across the member districts of a
// BOCES region so a district page can show regional context.
type BenchmarkSpec struct {
	BOCES     string   `json:"boces"`
	Districts []string `json:"districts"`
	Charts    []Chart  `json:"charts"`
	Metadata  Metadata `json:"metadata"`
}

type Metadata struct {
	GeneratedAt string `json:"generated_at"`
	Disclaimer  string `json:"disclaimer"`
}

// Index lists every spec document written in a build so the site can
// discover district pages without directory listings.
type Index struct {
	Districts   []IndexEntry `json:"districts"`
	Benchmarks  []IndexEntry `json:"benchmarks,omitempty"`
	GeneratedAt string       `json:"generated_at"`
}

type IndexEntry struct {
	Name string `json:"name"`
	File string `json:"file"`
}
