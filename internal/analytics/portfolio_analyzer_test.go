package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

func analyticsPositions() []models.Position {
	return []models.Position{
		holding("AAPL", "stock", 50, 100),
		holding("MSFT", "stock", 20, 100),
		holding("JPM", "stock", 10, 100),
		holding("BND", "bond", 10, 100),
		holding("TM", "stock", 10, 100),
	}
}

func withCloses(p models.Position, closes ...float64) models.Position {
	for _, c := range closes {
		p.PriceHistory = append(p.PriceHistory, models.PricePoint{Close: c})
	}
	return p
}

func pricesFrom(returns []float64, scale float64) []float64 {
	prices := []float64{100}
	for _, r := range returns {
		prices = append(prices, prices[len(prices)-1]*(1+scale*r))
	}
	return prices
}

func TestAllocations(t *testing.T) {
	pa := NewPortfolioAnalyzer(nil)
	positions := analyticsPositions()

	t.Run("sector", func(t *testing.T) {
		sectors := pa.SectorAllocation(positions)
		require.Len(t, sectors, 4)
		assert.Equal(t, "Technology", sectors[0].Name)
		assert.InDelta(t, 0.7, sectors[0].Percentage.Float(), 1e-12)
		decEqual(t, 7000, sectors[0].Value)
		assert.Equal(t, "Financial Services", sectors[1].Name)
		assert.Equal(t, "Bond", sectors[2].Name)
		assert.Equal(t, "Stock", sectors[3].Name)
	})

	t.Run("own sector wins", func(t *testing.T) {
		p := holding("AAPL", "stock", 1, 100)
		p.Sector = "Hardware"
		sectors := pa.SectorAllocation([]models.Position{p})
		require.Len(t, sectors, 1)
		assert.Equal(t, "Hardware", sectors[0].Name)
	})

	t.Run("geographic", func(t *testing.T) {
		countries := pa.GeographicAllocation(positions)
		require.Len(t, countries, 2)
		assert.Equal(t, "United States", countries[0].Name)
		assert.InDelta(t, 0.9, countries[0].Percentage.Float(), 1e-12)
		assert.Equal(t, "Japan", countries[1].Name)
	})

	t.Run("asset class", func(t *testing.T) {
		classes := pa.AssetClassAllocation(positions)
		require.Len(t, classes, 2)
		assert.Equal(t, ClassStock, classes[0].Name)
		assert.Equal(t, ClassBond, classes[1].Name)
	})

	t.Run("custom symbol maps", func(t *testing.T) {
		custom := NewPortfolioAnalyzer(nil, WithSymbolMaps(map[string]string{"TM": "Automotive"}, nil, nil))
		sectors := custom.SectorAllocation([]models.Position{holding("TM", "stock", 1, 1)})
		assert.Equal(t, "Automotive", sectors[0].Name)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, pa.SectorAllocation(nil))
	})
}

func TestConcentrationRisk(t *testing.T) {
	pa := NewPortfolioAnalyzer(nil)
	risk := pa.ConcentrationRisk(analyticsPositions())

	require.Len(t, risk.Positions, 5)
	assert.Equal(t, "AAPL", risk.Positions[0].Symbol)
	assert.Equal(t, LevelVeryHigh, risk.Positions[0].Level)
	assert.Equal(t, 95.0, risk.Positions[0].Score)
	assert.Equal(t, LevelHigh, risk.Positions[1].Level)
	assert.Equal(t, LevelLow, risk.Positions[4].Level)
	assert.InDelta(t, 0.32, risk.HerfindahlIndex, 1e-9)
	assert.InDelta(t, 3.125, risk.EffectiveAssets, 0.01)

	assert.Equal(t, LevelMedium, func() string { l, _ := concentrationLevel(0.12); return l }())
}

func TestPortfolioBeta(t *testing.T) {
	pa := NewPortfolioAnalyzer(nil)

	beta := pa.PortfolioBeta(analyticsPositions(), "")
	assert.InDelta(t, 0.91, beta.Beta, 1e-9)
	assert.Equal(t, DefaultBenchmark, beta.Benchmark)

	crypto := pa.PortfolioBeta([]models.Position{holding("BTC", "crypto", 1, 100)}, "QQQ")
	assert.Equal(t, 2.0, crypto.Beta)
	assert.Equal(t, "QQQ", crypto.Benchmark)

	assert.Equal(t, 1.0, pa.PortfolioBeta(nil, "").Beta)
}

func TestDiversificationScore(t *testing.T) {
	pa := NewPortfolioAnalyzer(nil)

	assert.InDelta(t, 0.48, pa.DiversificationScore(analyticsPositions()).Float(), 1e-9)
	assert.Equal(t, numeric.Percent(0), pa.DiversificationScore(nil))
	assert.Equal(t, numeric.Percent(0.2), pa.DiversificationScore([]models.Position{
		holding("AAPL", "stock", 1, 100),
		holding("MSFT", "stock", 1, 100),
	}))
}

func TestOverallRiskMetrics(t *testing.T) {
	pa := NewPortfolioAnalyzer(nil)

	metrics := pa.OverallRiskMetrics(analyticsPositions())
	require.NotNil(t, metrics)
	assert.Equal(t, LevelVeryHigh, metrics.RiskLevel)
	assert.Equal(t, 85, metrics.OverallRiskScore)
	assert.InDelta(t, 49, metrics.ConcentrationRisk, 1e-9)
	assert.Equal(t, "AAPL", metrics.LargestHolding)
	assert.Equal(t, []string{
		"Consider reducing AAPL exposure below 15%",
		"Sector allocation is concentrated - consider diversifying across sectors",
	}, metrics.Recommendations)

	t.Run("small balanced portfolio", func(t *testing.T) {
		positions := []models.Position{
			holding("AAPL", "stock", 1, 100),
			holding("JPM", "stock", 1, 100),
			holding("JNJ", "stock", 1, 100),
		}
		metrics := pa.OverallRiskMetrics(positions)
		require.NotNil(t, metrics)
		assert.Equal(t, LevelVeryHigh, metrics.RiskLevel)
		assert.Contains(t, metrics.Recommendations, "Add more positions to improve diversification")
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, pa.OverallRiskMetrics(nil))
	})
}

func TestCorrelationMatrix(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.015, -0.005, 0.02, -0.01, 0.004}
	positions := []models.Position{
		withCloses(holding("A", "stock", 1, 100), pricesFrom(returns, 1)...),
		withCloses(holding("B", "stock", 1, 100), pricesFrom(returns, 1)...),
		withCloses(holding("C", "stock", 1, 100), pricesFrom(returns, -1)...),
		withCloses(holding("D", "stock", 1, 100), 100, 101),
	}

	for _, backend := range []numeric.Backend{numeric.NewFullStatsBackend(), numeric.NewBasicFallbackBackend()} {
		t.Run(backend.Name(), func(t *testing.T) {
			ca := NewCorrelationAnalyzer(backend)
			m, err := ca.CorrelationMatrix(context.Background(), positions)
			require.NoError(t, err)

			assert.Equal(t, []string{"A", "B", "C"}, m.Symbols)
			assert.Equal(t, len(returns), m.Observations)
			assert.Equal(t, 1.0, m.Matrix[0][0])
			assert.InDelta(t, 1.0, m.Matrix[0][1], 1e-4)
			assert.InDelta(t, -1.0, m.Matrix[0][2], 1e-4)
			assert.Equal(t, m.Matrix[0][2], m.Heatmap["C"]["A"])

			require.Len(t, m.Pairs, 3)
			for _, p := range m.Pairs {
				assert.Equal(t, CorrelationStrong, p.Strength)
			}
			require.Len(t, m.HighCorrelationPairs, 1)
			assert.Equal(t, "A", m.HighCorrelationPairs[0].Symbol1)
			assert.Equal(t, "B", m.HighCorrelationPairs[0].Symbol2)
		})
	}

	t.Run("strength bands", func(t *testing.T) {
		assert.Equal(t, CorrelationModerate, correlationStrength(-0.5))
		assert.Equal(t, CorrelationWeak, correlationStrength(0.1))
	})

	t.Run("insufficient history", func(t *testing.T) {
		m, err := NewCorrelationAnalyzer(nil).CorrelationMatrix(context.Background(), positions[:1])
		assert.ErrorIs(t, err, numeric.ErrInsufficientData)
		require.NotNil(t, m)
		assert.Equal(t, []string{"A"}, m.Symbols)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewCorrelationAnalyzer(nil).CorrelationMatrix(ctx, positions)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFullAnalytics(t *testing.T) {
	pa := NewPortfolioAnalyzer(nil)
	snapshot := models.PortfolioSnapshot{PortfolioID: "p1", PortfolioName: "Core", Positions: analyticsPositions()}

	result, err := pa.FullAnalytics(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, "p1", result.PortfolioID)
	decEqual(t, 10000, result.TotalValue)
	assert.Len(t, result.SectorAllocation, 4)
	assert.Len(t, result.ConcentrationRisk.Positions, 5)
	assert.NotNil(t, result.RiskMetrics)
	assert.Nil(t, result.Correlation)
}

func TestOutOfOrderHistory(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	backwards := holding("AAPL", "stock", 10, 100)
	for i, c := range []float64{100, 101, 99, 102, 103} {
		backwards.PriceHistory = append(backwards.PriceHistory, models.PricePoint{Timestamp: start.AddDate(0, 0, -i), Close: c})
	}
	ordered := withCloses(holding("MSFT", "stock", 10, 100), 100, 102, 101, 104, 103)
	positions := []models.Position{backwards, ordered}

	t.Run("full analytics", func(t *testing.T) {
		result, err := NewPortfolioAnalyzer(nil).FullAnalytics(ctx, models.PortfolioSnapshot{Positions: positions})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
	})

	t.Run("correlation matrix", func(t *testing.T) {
		_, err := NewCorrelationAnalyzer(nil).CorrelationMatrix(ctx, positions)
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
	})

	t.Run("optimizer", func(t *testing.T) {
		_, err := NewPortfolioOptimizer(nil, 0).Optimize(ctx, positions, StrategyEqualWeight, OptimizationConstraints{})
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
	})
}
