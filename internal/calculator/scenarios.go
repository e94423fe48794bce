package calculator

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is a historical market shock applied by sector
type Scenario struct {
	Name         string             `yaml:"name" json:"name"`
	StartDate    string             `yaml:"start_date" json:"start_date"`
	EndDate      string             `yaml:"end_date" json:"end_date"`
	MarketDrop   float64            `yaml:"market_drop" json:"market_drop"`
	SectorShocks map[string]float64 `yaml:"sector_shocks" json:"sector_shocks"`
}

// BuiltinScenarios returns a fresh copy of the historical scenarios shipped with the service
func BuiltinScenarios() map[string]Scenario {
	return map[string]Scenario{
		"2008_financial_crisis": {
			Name:       "2008 Financial Crisis",
			StartDate:  "2008-09-01",
			EndDate:    "2009-03-31",
			MarketDrop: -0.50,
			SectorShocks: map[string]float64{
				"Financials": -0.60,
				"Technology": -0.45,
				"Healthcare": -0.30,
			},
		},
		"covid_crash": {
			Name:       "COVID-19 Crash (2020)",
			StartDate:  "2020-02-19",
			EndDate:    "2020-03-23",
			MarketDrop: -0.34,
			SectorShocks: map[string]float64{
				"Energy":      -0.50,
				"Industrials": -0.40,
				"Financials":  -0.35,
			},
		},
		"dot_com_bubble": {
			Name:       "Dot-Com Bubble (2000-2002)",
			StartDate:  "2000-03-10",
			EndDate:    "2002-10-09",
			MarketDrop: -0.49,
			SectorShocks: map[string]float64{
				"Technology":         -0.78,
				"Telecommunications": -0.65,
			},
		},
	}
}

type scenarioFile struct {
	Scenarios map[string]Scenario `yaml:"scenarios"`
}

// LoadScenarioCatalog reads scenarios from a YAML file of the form
//
//	scenarios:
//	  rate_shock_2022:
//	    name: "2022 Rate Shock"
//	    market_drop: -0.25
//	    sector_shocks:
//	      Technology: -0.35
func LoadScenarioCatalog(path string) (map[string]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}

	for key, sc := range file.Scenarios {
		if sc.Name == "" {
			return nil, fmt.Errorf("scenario %q has no name", key)
		}
		if sc.MarketDrop < -1 || sc.MarketDrop > 0 {
			return nil, fmt.Errorf("scenario %q market_drop %v must be within [-1, 0]", key, sc.MarketDrop)
		}
		for sector, shock := range sc.SectorShocks {
			if shock < -1 {
				return nil, fmt.Errorf("scenario %q shock for %s is below -100%%", key, sector)
			}
		}
		if sc.SectorShocks == nil {
			sc.SectorShocks = map[string]float64{}
			file.Scenarios[key] = sc
		}
	}
	return file.Scenarios, nil
}

// sortedSectors returns the sector names of a shock map in a stable order
func sortedSectors(shocks map[string]float64) []string {
	out := make([]string, 0, len(shocks))
	for s := range shocks {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
