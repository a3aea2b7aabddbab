package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// District is one roster entry from config/districts.json.
type District struct {
	Name      string `json:"name"`
	InstID    string `json:"instid"`
	BudgetURL string `json:"budget_url,omitempty"`
	BOCES     string `json:"boces,omitempty"`
}

// Slug returns the district name in cache-filename form
// ("Burnt Hills-Ballston Lake" -> "burnt_hills-ballston_lake").
func (d District) Slug() string {
	return strings.ReplaceAll(strings.ToLower(d.Name), " ", "_")
}

// LoadDistricts reads the district roster. A missing roster file is an
// error: there is nothing to fetch without one.
func LoadDistricts(path string) ([]District, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading districts roster: %w", err)
	}

	var districts []District
	if err := json.Unmarshal(data, &districts); err != nil {
		return nil, fmt.Errorf("parsing districts roster %s: %w", path, err)
	}
	if len(districts) == 0 {
		return nil, fmt.Errorf("districts roster %s is empty", path)
	}

	if err := validateDistricts(districts); err != nil {
		return nil, err
	}
	return districts, nil
}

func validateDistricts(districts []District) error {
	seen := make(map[string]bool, len(districts))
	for i, d := range districts {
		if d.Name == "" {
			return fmt.Errorf("district %d: name is required", i)
		}
		if d.InstID == "" {
			return fmt.Errorf("district %q: instid is required", d.Name)
		}
		if seen[d.InstID] {
			return fmt.Errorf("district %q: duplicate instid %s", d.Name, d.InstID)
		}
		seen[d.InstID] = true
		if d.BudgetURL != "" {
			u, err := url.Parse(d.BudgetURL)
			if err != nil {
				return fmt.Errorf("district %q: invalid budget_url: %w", d.Name, err)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("district %q: budget_url scheme must be http or https, got %q", d.Name, u.Scheme)
			}
		}
	}
	return nil
}
