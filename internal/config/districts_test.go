package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "districts.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing roster: %v", err)
	}
	return path
}

func TestLoadDistricts(t *testing.T) {
	path := writeRoster(t, `[
		{"name": "Scotia-Glenville", "instid": "800000036979", "boces": "Capital Region", "budget_url": "https://example.org/budget"},
		{"name": "Burnt Hills-Ballston Lake", "instid": "800000036977"}
	]`)

	districts, err := LoadDistricts(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(districts) != 2 {
		t.Fatalf("expected 2 districts, got %d", len(districts))
	}
	if districts[0].BOCES != "Capital Region" {
		t.Errorf("unexpected boces %q", districts[0].BOCES)
	}
}

func TestLoadDistrictsMissingFileIsError(t *testing.T) {
	if _, err := LoadDistricts(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing roster")
	}
}

func TestLoadDistrictsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty list", `[]`},
		{"not json", `{oops`},
		{"missing name", `[{"instid": "1"}]`},
		{"missing instid", `[{"name": "X"}]`},
		{"duplicate instid", `[{"name": "X", "instid": "1"}, {"name": "Y", "instid": "1"}]`},
		{"bad budget scheme", `[{"name": "X", "instid": "1", "budget_url": "ftp://x/budget"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRoster(t, tt.content)
			if _, err := LoadDistricts(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Scotia-Glenville", "scotia-glenville"},
		{"Burnt Hills-Ballston Lake", "burnt_hills-ballston_lake"},
		{"South Colonie", "south_colonie"},
	}
	for _, tt := range tests {
		d := District{Name: tt.name}
		if got := d.Slug(); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
