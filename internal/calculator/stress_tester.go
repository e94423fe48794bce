package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

const (
	ScenarioTypeHistorical = "historical"
	ScenarioTypeCustom     = "custom"

	customScenarioName = "Custom Scenario"
	worstAssetCount    = 5
)

type AssetImpact struct {
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name,omitempty"`
	Loss       numeric.Percent `json:"loss"`
	LossAmount float64         `json:"loss_amount"`
}

type StressTestReport struct {
	PortfolioID           string                     `json:"portfolio_id"`
	PortfolioName         string                     `json:"portfolio_name"`
	ScenarioType          string                     `json:"scenario_type"`
	ScenarioName          string                     `json:"scenario_name"`
	MarketShockPct        numeric.Percent            `json:"market_shock_pct"`
	SectorShocks          map[string]numeric.Percent `json:"sector_shocks"`
	PortfolioValueBefore  float64                    `json:"portfolio_value_before"`
	PortfolioValueAfter   float64                    `json:"portfolio_value_after"`
	PortfolioLoss         float64                    `json:"portfolio_loss"`
	PortfolioLossPct      numeric.Percent            `json:"portfolio_loss_pct"`
	WorstPerformingAssets []AssetImpact              `json:"worst_performing_assets"`
}

type ScenarioSummary struct {
	Key             string          `json:"key"`
	Name            string          `json:"name"`
	StartDate       string          `json:"start_date,omitempty"`
	EndDate         string          `json:"end_date,omitempty"`
	MarketDrop      numeric.Percent `json:"market_drop"`
	SectorsAffected []string        `json:"sectors_affected"`
}

// StressTester applies sector shocks to a portfolio snapshot
type StressTester struct {
	scenarios map[string]Scenario
}

// NewStressTester builds a tester over the built-in scenarios, with each
// extra catalog merged on top in order
func NewStressTester(extra ...map[string]Scenario) *StressTester {
	scenarios := BuiltinScenarios()
	for _, catalog := range extra {
		for k, sc := range catalog {
			scenarios[k] = sc
		}
	}
	return &StressTester{scenarios: scenarios}
}

func (st *StressTester) RunHistoricalStressTest(portfolio models.PortfolioSnapshot, scenarioKey string) (*StressTestReport, error) {
	sc, ok := st.scenarios[scenarioKey]
	if !ok {
		return nil, numeric.Invalid("historical_stress_test", "unknown scenario: %s", scenarioKey)
	}
	report := applyShocks(portfolio, sc.MarketDrop, sc.SectorShocks)
	report.ScenarioType = ScenarioTypeHistorical
	report.ScenarioName = sc.Name
	return report, nil
}

// RunCustomStressTest shocks each position by its sector's entry in
// sectorShocks, or by marketShock when the sector is not listed. Shocks are
// fractions, -0.30 meaning a 30% drop.
func (st *StressTester) RunCustomStressTest(portfolio models.PortfolioSnapshot, marketShock float64, sectorShocks map[string]float64) (*StressTestReport, error) {
	const op = "custom_stress_test"
	if marketShock < -1 {
		return nil, numeric.Invalid(op, "market shock %v is below -100%%", marketShock)
	}
	for sector, shock := range sectorShocks {
		if shock < -1 {
			return nil, numeric.Invalid(op, "shock for %s is below -100%%", sector)
		}
	}
	if sectorShocks == nil {
		sectorShocks = map[string]float64{}
	}

	report := applyShocks(portfolio, marketShock, sectorShocks)
	report.ScenarioType = ScenarioTypeCustom
	report.ScenarioName = customScenarioName
	return report, nil
}

// AvailableScenarios lists the scenario catalog sorted by key
func (st *StressTester) AvailableScenarios() []ScenarioSummary {
	keys := make([]string, 0, len(st.scenarios))
	for k := range st.scenarios {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ScenarioSummary, 0, len(keys))
	for _, k := range keys {
		sc := st.scenarios[k]
		out = append(out, ScenarioSummary{
			Key:             k,
			Name:            sc.Name,
			StartDate:       sc.StartDate,
			EndDate:         sc.EndDate,
			MarketDrop:      numeric.Percent(sc.MarketDrop),
			SectorsAffected: sortedSectors(sc.SectorShocks),
		})
	}
	return out
}

func applyShocks(portfolio models.PortfolioSnapshot, marketShock float64, sectorShocks map[string]float64) *StressTestReport {
	before := decimal.Zero
	after := decimal.Zero
	impacts := make([]AssetImpact, 0, len(portfolio.Positions))

	for _, p := range portfolio.Positions {
		shock, ok := sectorShocks[p.Sector]
		if !ok {
			shock = marketShock
		}
		value := p.Value()
		shocked := value.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(shock)))
		before = before.Add(value)
		after = after.Add(shocked)

		impacts = append(impacts, AssetImpact{
			Symbol:     p.Symbol,
			Name:       p.Name,
			Loss:       numeric.Percent(shock),
			LossAmount: numeric.ToFloat(numeric.RoundDecimal(value.Sub(shocked), 2)),
		})
	}

	// most severe shock first, then the larger dollar loss
	sort.SliceStable(impacts, func(i, j int) bool {
		if impacts[i].Loss != impacts[j].Loss {
			return impacts[i].Loss < impacts[j].Loss
		}
		return impacts[i].LossAmount > impacts[j].LossAmount
	})
	if len(impacts) > worstAssetCount {
		impacts = impacts[:worstAssetCount]
	}

	loss := before.Sub(after)
	shocks := make(map[string]numeric.Percent, len(sectorShocks))
	for k, v := range sectorShocks {
		shocks[k] = numeric.Percent(v)
	}

	return &StressTestReport{
		PortfolioID:           portfolio.PortfolioID,
		PortfolioName:         portfolio.PortfolioName,
		MarketShockPct:        numeric.Percent(marketShock),
		SectorShocks:          shocks,
		PortfolioValueBefore:  numeric.ToFloat(numeric.RoundDecimal(before, 2)),
		PortfolioValueAfter:   numeric.ToFloat(numeric.RoundDecimal(after, 2)),
		PortfolioLoss:         numeric.ToFloat(numeric.RoundDecimal(loss, 2)),
		PortfolioLossPct:      numeric.Percent(numeric.ToFloat(numeric.SafeDivideDecimal(loss, before))),
		WorstPerformingAssets: impacts,
	}
}
