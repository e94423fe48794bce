package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// Concentration and risk levels
const (
	LevelVeryHigh = "VERY_HIGH"
	LevelHigh     = "HIGH"
	LevelMedium   = "MEDIUM"
	LevelLow      = "LOW"

	DefaultBenchmark = "SPY"
	defaultCountry   = "United States"
	unknownSector    = "Unknown"

	singleSectorScore = 0.20
)

var defaultSectorMap = map[string]string{
	"AAPL":  "Technology",
	"MSFT":  "Technology",
	"GOOGL": "Technology",
	"GOOG":  "Technology",
	"AMZN":  "Consumer Cyclical",
	"META":  "Technology",
	"TSLA":  "Consumer Cyclical",
	"NVDA":  "Technology",
	"JPM":   "Financial Services",
	"V":     "Financial Services",
	"JNJ":   "Healthcare",
	"WMT":   "Consumer Defensive",
	"PG":    "Consumer Defensive",
	"MA":    "Financial Services",
	"HD":    "Consumer Cyclical",
	"CVX":   "Energy",
	"MRK":   "Healthcare",
	"ABBV":  "Healthcare",
	"PFE":   "Healthcare",
	"KO":    "Consumer Defensive",
}

var defaultCountryMap = map[string]string{
	"AAPL":  "United States",
	"MSFT":  "United States",
	"GOOGL": "United States",
	"GOOG":  "United States",
	"AMZN":  "United States",
	"META":  "United States",
	"TSLA":  "United States",
	"NVDA":  "United States",
	"JPM":   "United States",
	"V":     "United States",
	"JNJ":   "United States",
	"WMT":   "United States",
	"TM":    "Japan",
	"TMO":   "United States",
	"ASML":  "Netherlands",
	"NVO":   "Denmark",
	"BABA":  "China",
	"JD":    "China",
	"SE":    "Singapore",
}

var defaultAssetClassMap = map[string]string{
	"AAPL":  ClassStock,
	"MSFT":  ClassStock,
	"GOOGL": ClassStock,
	"GOOG":  ClassStock,
	"AMZN":  ClassStock,
	"META":  ClassStock,
	"TSLA":  ClassStock,
	"NVDA":  ClassStock,
	"JPM":   ClassStock,
	"V":     ClassStock,
	"BTC":   ClassCrypto,
	"ETH":   ClassCrypto,
	"BNB":   ClassCrypto,
	"SOL":   ClassCrypto,
	"XRP":   ClassCrypto,
	"ADA":   ClassCrypto,
	"SPY":   ClassETF,
	"QQQ":   ClassETF,
	"VTI":   ClassETF,
	"VOO":   ClassETF,
	"BND":   ClassBond,
	"TLT":   ClassBond,
}

var assetBetas = map[string]float64{
	"SPY": 1.0,
	"VOO": 1.0,
	"IVV": 1.0,
	"BND": 0.1,
	"AGG": 0.1,
	"TLT": 0.1,
	"BTC": 2.0,
	"ETH": 2.0,
}

type AllocationSlice struct {
	Name       string          `json:"name" bson:"name"`
	Value      decimal.Decimal `json:"value" bson:"value"`
	Percentage numeric.Percent `json:"percentage" bson:"percentage"`
}

type PositionConcentration struct {
	Symbol     string          `json:"asset_symbol"`
	Name       string          `json:"asset_name,omitempty"`
	Value      decimal.Decimal `json:"value"`
	Percentage numeric.Percent `json:"percentage"`
	Score      float64         `json:"concentration_score"`
	Level      string          `json:"concentration_level"`
}

type ConcentrationRisk struct {
	Positions       []PositionConcentration `json:"positions"`
	HerfindahlIndex float64                 `json:"herfindahl_index"`
	EffectiveAssets float64                 `json:"effective_assets"`
}

type BetaResult struct {
	Beta         float64   `json:"beta"`
	Benchmark    string    `json:"benchmark"`
	CalculatedAt time.Time `json:"calculated_at"`
}

type RiskMetrics struct {
	OverallRiskScore      int             `json:"overall_risk_score"`
	RiskLevel             string          `json:"risk_level"`
	ConcentrationRisk     float64         `json:"concentration_risk"`
	DiversificationScore  numeric.Percent `json:"diversification_score"`
	LargestHoldingPercent numeric.Percent `json:"largest_holding_percent"`
	LargestHolding        string          `json:"largest_holding,omitempty"`
	Recommendations       []string        `json:"recommendations"`
	AnalyzedAt            time.Time       `json:"analyzed_at"`
}

// PortfolioAnalytics is the combined allocation and risk view of a snapshot
type PortfolioAnalytics struct {
	PortfolioID          string             `json:"portfolio_id"`
	PortfolioName        string             `json:"portfolio_name,omitempty"`
	TotalValue           decimal.Decimal    `json:"total_value"`
	SectorAllocation     []AllocationSlice  `json:"sector_allocation"`
	GeographicAllocation []AllocationSlice  `json:"geographic_allocation"`
	AssetClassAllocation []AllocationSlice  `json:"asset_class_allocation"`
	ConcentrationRisk    ConcentrationRisk  `json:"concentration_risk"`
	Beta                 BetaResult         `json:"beta"`
	RiskMetrics          *RiskMetrics       `json:"risk_metrics"`
	Correlation          *CorrelationMatrix `json:"correlation,omitempty"`
	CalculatedAt         time.Time          `json:"calculated_at"`
}

type PortfolioAnalyzer struct {
	correlationAnalyzer *CorrelationAnalyzer
	sectors             map[string]string
	countries           map[string]string
	assetClasses        map[string]string
	benchmark           string
	logger              *logrus.Logger
}

type AnalyzerOption func(*PortfolioAnalyzer)

// WithSymbolMaps overrides the built-in symbol classification tables. Nil maps keep the defaults.
func WithSymbolMaps(sectors, countries, assetClasses map[string]string) AnalyzerOption {
	return func(pa *PortfolioAnalyzer) {
		if sectors != nil {
			pa.sectors = sectors
		}
		if countries != nil {
			pa.countries = countries
		}
		if assetClasses != nil {
			pa.assetClasses = assetClasses
		}
	}
}

func WithBenchmark(symbol string) AnalyzerOption {
	return func(pa *PortfolioAnalyzer) {
		if symbol != "" {
			pa.benchmark = symbol
		}
	}
}

func WithAnalyzerLogger(logger *logrus.Logger) AnalyzerOption {
	return func(pa *PortfolioAnalyzer) {
		if logger != nil {
			pa.logger = logger
		}
	}
}

func NewPortfolioAnalyzer(backend numeric.Backend, opts ...AnalyzerOption) *PortfolioAnalyzer {
	pa := &PortfolioAnalyzer{
		correlationAnalyzer: NewCorrelationAnalyzer(backend),
		sectors:             defaultSectorMap,
		countries:           defaultCountryMap,
		assetClasses:        defaultAssetClassMap,
		benchmark:           DefaultBenchmark,
		logger:              logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(pa)
	}
	return pa
}

func (pa *PortfolioAnalyzer) sectorOf(p models.Position) string {
	if p.Sector != "" {
		return p.Sector
	}
	if s, ok := pa.sectors[p.Symbol]; ok {
		return s
	}
	if p.AssetType != "" {
		t := strings.ToLower(p.AssetType)
		return strings.ToUpper(t[:1]) + t[1:]
	}
	return unknownSector
}

func (pa *PortfolioAnalyzer) countryOf(p models.Position) string {
	if p.Country != "" {
		return p.Country
	}
	if c, ok := pa.countries[p.Symbol]; ok {
		return c
	}
	return defaultCountry
}

func (pa *PortfolioAnalyzer) assetClassOf(p models.Position) string {
	if c, ok := pa.assetClasses[p.Symbol]; ok {
		return c
	}
	if c := ClassifyAssetClass(p.AssetType); c != ClassOther {
		return c
	}
	return ClassStock
}

func totalValue(positions []models.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.Value())
	}
	return total
}

// allocate groups position values by key and sorts slices by weight, descending
func allocate(positions []models.Position, key func(models.Position) string) []AllocationSlice {
	total := totalValue(positions)
	if !total.IsPositive() {
		return []AllocationSlice{}
	}

	values := make(map[string]decimal.Decimal)
	var order []string
	for _, p := range positions {
		k := key(p)
		if _, ok := values[k]; !ok {
			order = append(order, k)
		}
		values[k] = values[k].Add(p.Value())
	}

	slices := make([]AllocationSlice, 0, len(order))
	for _, k := range order {
		slices = append(slices, AllocationSlice{
			Name:       k,
			Value:      numeric.RoundDecimal(values[k], 2),
			Percentage: numeric.Percent(numeric.ToFloat(numeric.SafeDivideDecimal(values[k], total))),
		})
	}
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Percentage > slices[j].Percentage
	})
	return slices
}

func (pa *PortfolioAnalyzer) SectorAllocation(positions []models.Position) []AllocationSlice {
	return allocate(positions, pa.sectorOf)
}

func (pa *PortfolioAnalyzer) GeographicAllocation(positions []models.Position) []AllocationSlice {
	return allocate(positions, pa.countryOf)
}

func (pa *PortfolioAnalyzer) AssetClassAllocation(positions []models.Position) []AllocationSlice {
	return allocate(positions, pa.assetClassOf)
}

func concentrationLevel(weight float64) (string, float64) {
	switch {
	case weight > 0.25:
		return LevelVeryHigh, 95
	case weight > 0.15:
		return LevelHigh, 75
	case weight > 0.10:
		return LevelMedium, 50
	default:
		return LevelLow, 25
	}
}

// ConcentrationRisk scores each position by its weight and reports the
// Herfindahl index of position weights
func (pa *PortfolioAnalyzer) ConcentrationRisk(positions []models.Position) ConcentrationRisk {
	result := ConcentrationRisk{Positions: []PositionConcentration{}}
	total := totalValue(positions)
	if !total.IsPositive() {
		return result
	}

	hhi := 0.0
	for _, p := range positions {
		w := numeric.ToFloat(numeric.SafeDivideDecimal(p.Value(), total))
		level, score := concentrationLevel(w)
		hhi += w * w
		result.Positions = append(result.Positions, PositionConcentration{
			Symbol:     p.Symbol,
			Name:       p.Name,
			Value:      numeric.RoundDecimal(p.Value(), 2),
			Percentage: numeric.Percent(w),
			Score:      score,
			Level:      level,
		})
	}
	sort.SliceStable(result.Positions, func(i, j int) bool {
		return result.Positions[i].Percentage > result.Positions[j].Percentage
	})

	result.HerfindahlIndex = numeric.Round(hhi, 4)
	result.EffectiveAssets = numeric.Round(numeric.SafeDivide(1, hhi), 2)
	return result
}

// PortfolioBeta is the value-weighted beta of the positions, using table
// betas and 1.0 for anything not listed
func (pa *PortfolioAnalyzer) PortfolioBeta(positions []models.Position, benchmark string) BetaResult {
	if benchmark == "" {
		benchmark = pa.benchmark
	}
	result := BetaResult{Beta: 1.0, Benchmark: benchmark, CalculatedAt: time.Now().UTC()}

	total := totalValue(positions)
	if !total.IsPositive() {
		return result
	}

	weighted := decimal.Zero
	for _, p := range positions {
		beta, ok := assetBetas[p.Symbol]
		if !ok {
			beta = 1.0
		}
		weighted = weighted.Add(p.Value().Div(total).Mul(decimal.NewFromFloat(beta)))
	}
	result.Beta = numeric.Round(numeric.ToFloat(weighted), 4)
	return result
}

// DiversificationScore is one minus the sector Herfindahl index. A single
// sector scores 20%.
func (pa *PortfolioAnalyzer) DiversificationScore(positions []models.Position) numeric.Percent {
	sectors := pa.SectorAllocation(positions)
	switch len(sectors) {
	case 0:
		return 0
	case 1:
		return singleSectorScore
	}

	hhi := 0.0
	for _, s := range sectors {
		hhi += s.Percentage.Float() * s.Percentage.Float()
	}
	return numeric.Percent(numeric.Round(min(1-hhi, 1), 4))
}

// OverallRiskMetrics rates the portfolio from its largest holding and sector
// diversification. It returns nil for an empty portfolio.
func (pa *PortfolioAnalyzer) OverallRiskMetrics(positions []models.Position) *RiskMetrics {
	concentration := pa.ConcentrationRisk(positions)
	if len(concentration.Positions) == 0 {
		return nil
	}
	diversification := pa.DiversificationScore(positions)

	largest := concentration.Positions[0]
	lw := largest.Percentage.Float()
	div := diversification.Float()

	metrics := &RiskMetrics{
		DiversificationScore:  diversification,
		LargestHoldingPercent: numeric.Percent(numeric.Round(lw, 4)),
		LargestHolding:        largest.Symbol,
		Recommendations:       []string{},
		AnalyzedAt:            time.Now().UTC(),
	}

	switch {
	case lw > 0.30:
		metrics.RiskLevel, metrics.OverallRiskScore = LevelVeryHigh, 85
	case lw > 0.20:
		metrics.RiskLevel, metrics.OverallRiskScore = LevelHigh, 70
	case lw > 0.10 || div < 0.40:
		metrics.RiskLevel, metrics.OverallRiskScore = LevelMedium, 50
	default:
		metrics.RiskLevel, metrics.OverallRiskScore = LevelLow, 25
	}

	sum := 0.0
	for _, c := range concentration.Positions {
		sum += c.Score
	}
	metrics.ConcentrationRisk = numeric.Round(sum/float64(len(concentration.Positions)), 2)

	if lw > 0.15 {
		metrics.Recommendations = append(metrics.Recommendations,
			fmt.Sprintf("Consider reducing %s exposure below 15%%", largest.Symbol))
	}
	if len(concentration.Positions) < 5 {
		metrics.Recommendations = append(metrics.Recommendations, "Add more positions to improve diversification")
	}
	if div < 0.50 {
		metrics.Recommendations = append(metrics.Recommendations,
			"Sector allocation is concentrated - consider diversifying across sectors")
	}
	return metrics
}

// CorrelationMatrix delegates to the backend-driven correlation analyzer
func (pa *PortfolioAnalyzer) CorrelationMatrix(ctx context.Context, positions []models.Position) (*CorrelationMatrix, error) {
	return pa.correlationAnalyzer.CorrelationMatrix(ctx, positions)
}

// FullAnalytics combines every allocation and risk view of the snapshot. A
// missing price history only drops the correlation section.
func (pa *PortfolioAnalyzer) FullAnalytics(ctx context.Context, snapshot models.PortfolioSnapshot) (*PortfolioAnalytics, error) {
	start := time.Now()
	positions := snapshot.Positions
	if err := snapshot.ValidateHistory(); err != nil {
		return nil, err
	}

	result := &PortfolioAnalytics{
		PortfolioID:          snapshot.PortfolioID,
		PortfolioName:        snapshot.PortfolioName,
		TotalValue:           numeric.RoundDecimal(snapshot.TotalValue(), 2),
		SectorAllocation:     pa.SectorAllocation(positions),
		GeographicAllocation: pa.GeographicAllocation(positions),
		AssetClassAllocation: pa.AssetClassAllocation(positions),
		ConcentrationRisk:    pa.ConcentrationRisk(positions),
		Beta:                 pa.PortfolioBeta(positions, ""),
		RiskMetrics:          pa.OverallRiskMetrics(positions),
		CalculatedAt:         time.Now().UTC(),
	}

	corr, err := pa.CorrelationMatrix(ctx, positions)
	switch {
	case err == nil:
		result.Correlation = corr
	case numeric.IsFatal(err):
		return nil, fmt.Errorf("correlation analysis failed: %w", err)
	default:
		pa.logger.WithFields(logrus.Fields{
			"component":    "portfolio_analyzer",
			"portfolio_id": snapshot.PortfolioID,
		}).WithError(err).Debug("Skipping correlation matrix")
	}

	pa.logger.WithFields(logrus.Fields{
		"component":    "portfolio_analyzer",
		"portfolio_id": snapshot.PortfolioID,
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Debug("Portfolio analytics calculated")

	return result, nil
}
