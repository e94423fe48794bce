package services

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
	"github.com/Fuuurma/FinanceHub-sub001/internal/repositories"
)

// oscillating builds a position whose closes wiggle around a drift, so each
// symbol gets a distinct volatility
func oscillating(symbol string, days int, drift, swing, phase float64) models.Position {
	history := make([]models.PricePoint, days)
	for i := range history {
		history[i].Close = 100 * (1 + drift*float64(i) + swing*math.Sin(float64(i)*0.7+phase))
	}
	last := history[days-1].Close
	return models.Position{
		Symbol:       symbol,
		AssetType:    "stock",
		Quantity:     decimal.NewFromInt(10),
		CurrentPrice: decimal.NewFromFloat(last).Round(4),
		PriceHistory: history,
	}
}

func optimizationHoldings(days int) []models.Position {
	return []models.Position{
		oscillating("AAA", days, 0.001, 0.01, 0),
		oscillating("BBB", days, 0.002, 0.03, 1.3),
		oscillating("CCC", days, 0.0005, 0.005, 2.1),
	}
}

func TestAnalyticsService_Optimize(t *testing.T) {
	ctx := context.Background()

	t.Run("inline positions", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.service.Optimize(ctx, "p1", optimizationHoldings(60), analytics.StrategyEqualWeight, analytics.OptimizationConstraints{})
		require.NoError(t, err)

		assert.Len(t, res.TargetWeights, 3)
		assert.Len(t, res.CurrentWeights, 3)
		assert.Equal(t, 59, res.Observations)
		f.snapshots.AssertNotCalled(t, "GetLatest", mock.Anything, mock.Anything)
	})

	t.Run("stored snapshot", func(t *testing.T) {
		f := newFixture(t)
		f.snapshots.On("GetLatest", mock.Anything, "p1").
			Return(&models.PortfolioSnapshot{PortfolioID: "p1", Positions: optimizationHoldings(60)}, nil)

		res, err := f.service.Optimize(ctx, "p1", nil, analytics.StrategyMinVariance, analytics.OptimizationConstraints{})
		require.NoError(t, err)
		assert.Greater(t, res.TargetWeights["CCC"].Float(), res.TargetWeights["BBB"].Float())
		f.snapshots.AssertExpectations(t)
	})

	t.Run("unknown portfolio", func(t *testing.T) {
		f := newFixture(t)
		f.snapshots.On("GetLatest", mock.Anything, "missing").
			Return(nil, fmt.Errorf("snapshot: %w", repositories.ErrNotFound))

		_, err := f.service.Optimize(ctx, "missing", nil, analytics.StrategyMaxSharpe, analytics.OptimizationConstraints{})
		assert.True(t, IsNotFound(err))
	})

	t.Run("short history", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.service.Optimize(ctx, "p1", optimizationHoldings(8), analytics.StrategyMaxSharpe, analytics.OptimizationConstraints{})
		assert.ErrorIs(t, err, numeric.ErrInsufficientData)
		require.NotNil(t, res)
		assert.Empty(t, res.TargetWeights)
	})
}

func TestAnalyticsService_EfficientFrontier(t *testing.T) {
	f := newFixture(t)
	frontier, err := f.service.EfficientFrontier(context.Background(), "", optimizationHoldings(60), 4, analytics.OptimizationConstraints{})
	require.NoError(t, err)
	require.Len(t, frontier, 4)
	assert.LessOrEqual(t, frontier[0].ExpectedReturn.Float(), frontier[3].ExpectedReturn.Float())

	_, err = f.service.EfficientFrontier(context.Background(), "", optimizationHoldings(60), 500, analytics.OptimizationConstraints{})
	assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
}
