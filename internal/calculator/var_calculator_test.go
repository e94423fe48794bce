package calculator

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

func pricesFromReturns(start float64, returns []float64) []models.PricePoint {
	out := make([]models.PricePoint, 0, len(returns)+1)
	p := start
	out = append(out, models.PricePoint{Close: p})
	for _, r := range returns {
		p *= 1 + r
		out = append(out, models.PricePoint{Close: p})
	}
	return out
}

func randomReturns(seed int64, n int, mu, sigma float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = mu + sigma*rng.NormFloat64()
	}
	return out
}

func position(symbol, sector string, qty, price int64, history []models.PricePoint) models.Position {
	return models.Position{
		Symbol:       symbol,
		Name:         symbol + " Inc",
		Sector:       sector,
		Quantity:     decimal.NewFromInt(qty),
		CurrentPrice: decimal.NewFromInt(price),
		PriceHistory: history,
	}
}

func TestCalculateVaR_Fallback(t *testing.T) {
	ctx := context.Background()
	snapshot := models.PortfolioSnapshot{
		PortfolioID:   "p1",
		PortfolioName: "Growth",
		Positions:     []models.Position{position("AAPL", "Technology", 10, 100, nil)},
	}

	t.Run("no history uses base volatility", func(t *testing.T) {
		calc := NewVaRCalculator(numeric.NewFullStatsBackend())
		for _, method := range []string{MethodParametric, MethodHistorical, MethodMonteCarlo} {
			report, err := calc.CalculateVaR(ctx, snapshot, VaRRequest{Method: method, ConfidenceLevel: 95})
			require.NoError(t, err)
			assert.True(t, report.Fallback, method)
			assert.False(t, report.Degraded)
			assert.Equal(t, method, report.Method)
			assert.InDelta(t, 32.90, report.VaRAmount, 0.01)
			assert.InDelta(t, 42.77, report.ExpectedShortfall, 0.01)
			require.NotNil(t, report.PortfolioVolatility)
			assert.Equal(t, 0.02, *report.PortfolioVolatility)
		}
	})

	t.Run("basic backend is degraded", func(t *testing.T) {
		withHistory := snapshot
		withHistory.Positions = []models.Position{
			position("AAPL", "Technology", 10, 100, pricesFromReturns(100, randomReturns(1, 30, 0, 0.01))),
		}
		calc := NewVaRCalculator(numeric.NewBasicFallbackBackend())
		report, err := calc.CalculateVaR(ctx, withHistory, VaRRequest{})
		require.NoError(t, err)
		assert.True(t, report.Fallback)
		assert.True(t, report.Degraded)
		assert.Equal(t, numeric.BackendBasic, report.Backend)
		require.NotNil(t, report.ZScore)
		assert.Equal(t, 1.645, *report.ZScore)
		assert.InDelta(t, 32.90, report.VaRAmount, 1e-9)
	})

	t.Run("empty portfolio is valued at one", func(t *testing.T) {
		calc := NewVaRCalculator(nil)
		report, err := calc.CalculateVaR(ctx, models.PortfolioSnapshot{}, VaRRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1.0, report.PortfolioValue)
		assert.True(t, report.Fallback)
	})
}

func TestCalculateVaR_Validation(t *testing.T) {
	calc := NewVaRCalculator(nil)
	snapshot := models.PortfolioSnapshot{}

	tests := []struct {
		name string
		req  VaRRequest
	}{
		{"unknown method", VaRRequest{Method: "delta_gamma"}},
		{"confidence above one hundred", VaRRequest{ConfidenceLevel: 150}},
		{"negative horizon", VaRRequest{TimeHorizon: -1}},
		{"short lookback", VaRRequest{LookbackDays: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := calc.CalculateVaR(context.Background(), snapshot, tt.req)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
		})
	}

	t.Run("decreasing timestamps", func(t *testing.T) {
		start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
		history := pricesFromReturns(100, randomReturns(5, 30, 0, 0.01))
		for i := range history {
			history[i].Timestamp = start.AddDate(0, 0, -i)
		}
		unordered := models.PortfolioSnapshot{
			Positions: []models.Position{position("AAPL", "Technology", 10, 100, history)},
		}
		for _, method := range []string{MethodParametric, MethodHistorical, MethodMonteCarlo} {
			report, err := calc.CalculateVaR(context.Background(), unordered, VaRRequest{Method: method})
			assert.Nil(t, report, method)
			assert.ErrorIs(t, err, numeric.ErrInvalidParameter, method)
		}
	})
}

// noDensityBackend is a full backend that cannot evaluate the normal density
type noDensityBackend struct {
	*numeric.FullStatsBackend
}

func (noDensityBackend) NormalPDF(float64) (float64, error) {
	return 0, numeric.ErrUnsupported
}

func TestCalculateVaR_Parametric(t *testing.T) {
	ctx := context.Background()
	returns := randomReturns(7, 120, 0.0005, 0.015)
	snapshot := models.PortfolioSnapshot{
		PortfolioID: "p1",
		Positions:   []models.Position{position("SPY", "Index", 10, 100, pricesFromReturns(100, returns))},
	}
	calc := NewVaRCalculator(numeric.NewFullStatsBackend())

	report, err := calc.CalculateVaR(ctx, snapshot, VaRRequest{Method: MethodParametric, ConfidenceLevel: 0.95})
	require.NoError(t, err)
	assert.False(t, report.Fallback)

	sigma := numeric.SampleStd(numeric.SimpleReturns(snapshot.Positions[0].Closes()))
	require.NotNil(t, report.PortfolioVolatility)
	assert.InDelta(t, sigma, *report.PortfolioVolatility, 1e-12)
	assert.InDelta(t, 1.6448536*sigma, report.VaRPercentage.Float(), 1e-6)
	assert.InDelta(t, 1000*1.6448536*sigma, report.VaRAmount, 0.01)
	// φ(z)/(1-c) at 95%
	assert.InDelta(t, 2.0627, report.ExpectedShortfall/report.VaRAmount, 0.01)

	t.Run("scales with square root of horizon", func(t *testing.T) {
		long, err := calc.CalculateVaR(ctx, snapshot, VaRRequest{Method: MethodParametric, TimeHorizon: 4})
		require.NoError(t, err)
		assert.InDelta(t, 2*report.VaRPercentage.Float(), long.VaRPercentage.Float(), 1e-12)
	})

	t.Run("diversification lowers portfolio volatility", func(t *testing.T) {
		other := randomReturns(8, 120, 0.0005, 0.015)
		two := snapshot
		two.Positions = append([]models.Position{}, snapshot.Positions[0],
			position("EFA", "Index", 10, 100, pricesFromReturns(100, other)))
		diversified, err := calc.CalculateVaR(ctx, two, VaRRequest{})
		require.NoError(t, err)
		assert.Less(t, *diversified.PortfolioVolatility, *report.PortfolioVolatility)
	})

	t.Run("identical assets do not diversify", func(t *testing.T) {
		history := pricesFromReturns(100, returns)
		twin := snapshot
		twin.Positions = []models.Position{
			position("SPY", "Index", 10, 100, history),
			position("IVV", "Index", 10, 100, history),
		}
		doubled, err := calc.CalculateVaR(ctx, twin, VaRRequest{Method: MethodParametric, ConfidenceLevel: 95})
		require.NoError(t, err)
		require.NotNil(t, doubled.PortfolioVolatility)
		assert.InDelta(t, *report.PortfolioVolatility, *doubled.PortfolioVolatility, 1e-12)
		assert.InDelta(t, report.VaRPercentage.Float(), doubled.VaRPercentage.Float(), 1e-12)
		assert.InDelta(t, 2*report.VaRAmount, doubled.VaRAmount, 0.02)
	})

	t.Run("backend without density takes the fallback floor", func(t *testing.T) {
		noPDF := NewVaRCalculator(noDensityBackend{numeric.NewFullStatsBackend()})
		floor, err := noPDF.CalculateVaR(ctx, snapshot, VaRRequest{Method: MethodParametric, ConfidenceLevel: 95})
		require.NoError(t, err)
		assert.True(t, floor.Fallback)
		assert.InDelta(t, floor.VaRAmount*fallbackESMultiple, floor.ExpectedShortfall, 0.02)
	})

	t.Run("percentages serialize on the 0-100 scale", func(t *testing.T) {
		data, err := json.Marshal(report)
		require.NoError(t, err)
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.InDelta(t, 95.0, decoded["confidence_level"], 1e-9)
		assert.InDelta(t, report.VaRPercentage.Float()*100, decoded["var_percentage"], 1e-4)
		assert.Equal(t, false, decoded["fallback"])
		assert.Equal(t, "full", decoded["backend"])
	})
}

func TestCalculateVaR_Historical(t *testing.T) {
	ctx := context.Background()
	returns := randomReturns(3, 60, 0, 0.02)
	snapshot := models.PortfolioSnapshot{
		Positions: []models.Position{position("QQQ", "Index", 5, 200, pricesFromReturns(100, returns))},
	}
	calc := NewVaRCalculator(nil)

	report, err := calc.CalculateVaR(ctx, snapshot, VaRRequest{Method: MethodHistorical})
	require.NoError(t, err)

	realized := numeric.SimpleReturns(snapshot.Positions[0].Closes())
	q := numeric.Percentile(realized, 0.05)
	assert.Equal(t, len(realized), report.HistoricalScenarios)
	assert.InDelta(t, math.Abs(q), report.VaRPercentage.Float(), 1e-12)
	assert.InDelta(t, 1000*math.Abs(numeric.TailMean(realized, q)), report.ExpectedShortfall, 0.01)
	assert.GreaterOrEqual(t, report.ExpectedShortfall, report.VaRAmount)
	assert.Nil(t, report.PortfolioVolatility)

	t.Run("multi-day horizon uses rolling sums", func(t *testing.T) {
		long, err := calc.CalculateVaR(ctx, snapshot, VaRRequest{Method: MethodHistorical, TimeHorizon: 5})
		require.NoError(t, err)
		assert.Equal(t, len(realized)-4, long.HistoricalScenarios)
	})

	t.Run("lookback trims history", func(t *testing.T) {
		short, err := calc.CalculateVaR(ctx, snapshot, VaRRequest{Method: MethodHistorical, LookbackDays: 21})
		require.NoError(t, err)
		assert.Equal(t, 20, short.HistoricalScenarios)
	})
}

func TestCalculateVaR_MonteCarlo(t *testing.T) {
	ctx := context.Background()
	returns := randomReturns(11, 250, 0.0, 0.01)
	snapshot := models.PortfolioSnapshot{
		Positions: []models.Position{position("SPY", "Index", 10, 100, pricesFromReturns(100, returns))},
	}

	t.Run("deterministic with default seed", func(t *testing.T) {
		calc := NewVaRCalculator(nil, WithSimulations(2000))
		first, err := calc.CalculateVaR(ctx, snapshot, VaRRequest{Method: MethodMonteCarlo})
		require.NoError(t, err)
		second, err := calc.CalculateVaR(ctx, snapshot, VaRRequest{Method: MethodMonteCarlo})
		require.NoError(t, err)

		assert.Equal(t, first.VaRAmount, second.VaRAmount)
		assert.Equal(t, first.ExpectedShortfall, second.ExpectedShortfall)
		assert.Equal(t, 2000, first.NumSimulations)
		assert.True(t, first.SeedDeterministic)
	})

	t.Run("agrees with parametric estimate", func(t *testing.T) {
		calc := NewVaRCalculator(nil, WithSimulations(2000))
		mc, err := calc.CalculateVaR(ctx, snapshot, VaRRequest{Method: MethodMonteCarlo})
		require.NoError(t, err)

		realized := numeric.SimpleReturns(snapshot.Positions[0].Closes())
		expected := -(numeric.Mean(realized) - 1.6448536*numeric.SampleStd(realized))
		assert.InDelta(t, expected, mc.VaRPercentage.Float(), 0.15*expected)
	})

	t.Run("injected source", func(t *testing.T) {
		calc := NewVaRCalculator(nil, WithSimulations(500), WithRand(rand.New(rand.NewSource(1))))
		report, err := calc.CalculateVaR(ctx, snapshot, VaRRequest{Method: MethodMonteCarlo})
		require.NoError(t, err)
		assert.False(t, report.SeedDeterministic)
		assert.Greater(t, report.VaRAmount, 0.0)
	})

	t.Run("position without history is regularized", func(t *testing.T) {
		mixed := snapshot
		mixed.Positions = append([]models.Position{}, snapshot.Positions[0], position("CASH", "Cash", 100, 1, nil))
		calc := NewVaRCalculator(nil, WithSimulations(500))
		report, err := calc.CalculateVaR(ctx, mixed, VaRRequest{Method: MethodMonteCarlo})
		require.NoError(t, err)
		assert.False(t, report.Fallback)
		assert.Greater(t, report.VaRAmount, 0.0)
	})

	t.Run("cancelled context stops simulation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		calc := NewVaRCalculator(nil)
		report, err := calc.CalculateVaR(cancelled, snapshot, VaRRequest{Method: MethodMonteCarlo})
		assert.Nil(t, report)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReturnsMatrix(t *testing.T) {
	positions := []models.Position{
		position("A", "", 1, 1, []models.PricePoint{{Close: 100}, {Close: 110}, {Close: 99}}),
		position("B", "", 1, 1, []models.PricePoint{{Close: 50}, {Close: 55}}),
		position("C", "", 1, 1, nil),
	}
	m := returnsMatrix(positions, 252)
	require.Len(t, m, 3)
	assert.InDeltaSlice(t, []float64{0.1, -0.1}, m[0], 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0.1}, m[1], 1e-12)
	assert.Equal(t, []float64{0, 0}, m[2])
}
