package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

func TestPricePointUnmarshal(t *testing.T) {
	var points []PricePoint
	err := json.Unmarshal([]byte(`[101.5, {"close": 102, "volume": 10}]`), &points)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 101.5, points[0].Close)
	assert.Equal(t, 102.0, points[1].Close)
	assert.Equal(t, 10.0, points[1].Volume)

	var bad PricePoint
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &bad))
}

func TestPositionValues(t *testing.T) {
	p := Position{
		Symbol:        "A",
		Quantity:      decimal.NewFromInt(100),
		CurrentPrice:  decimal.NewFromInt(50),
		PurchasePrice: decimal.NewFromInt(40),
	}

	assert.True(t, p.Value().Equal(decimal.NewFromInt(5000)))
	assert.True(t, p.CostBasis().Equal(decimal.NewFromInt(4000)))
	assert.True(t, p.UnrealizedPnL().Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 5000.0, p.ValueFloat())

	p.PurchasePrice = decimal.Zero
	assert.True(t, p.UnrealizedPnL().IsZero())
}

func TestValidateHistory(t *testing.T) {
	now := time.Now()
	ok := Position{Symbol: "A", PriceHistory: []PricePoint{
		{Timestamp: now, Close: 1},
		{Timestamp: now.Add(time.Hour), Close: 2},
	}}
	assert.NoError(t, ok.ValidateHistory())

	bad := Position{Symbol: "B", PriceHistory: []PricePoint{
		{Timestamp: now, Close: 1},
		{Timestamp: now, Close: 2},
	}}
	assert.ErrorIs(t, bad.ValidateHistory(), numeric.ErrInvalidParameter)

	decreasing := Position{Symbol: "C", PriceHistory: []PricePoint{
		{Timestamp: now, Close: 1},
		{Timestamp: now.Add(-time.Hour), Close: 2},
	}}
	assert.ErrorIs(t, decreasing.ValidateHistory(), numeric.ErrInvalidParameter)

	undated := Position{Symbol: "D", PriceHistory: []PricePoint{{Close: 1}, {Close: 2}}}
	assert.NoError(t, undated.ValidateHistory())

	snapshot := PortfolioSnapshot{Positions: []Position{ok, bad}}
	assert.ErrorIs(t, snapshot.ValidateHistory(), numeric.ErrInvalidParameter)
}

func TestSnapshotTotals(t *testing.T) {
	s := PortfolioSnapshot{Positions: []Position{
		{Symbol: "A", Quantity: decimal.NewFromInt(2), CurrentPrice: decimal.NewFromInt(10)},
		{Symbol: "B", Quantity: decimal.NewFromInt(3), CurrentPrice: decimal.NewFromInt(5), PriceHistory: []PricePoint{{Close: 1}, {Close: 2}}},
	}}
	assert.Equal(t, 35.0, s.TotalValueFloat())
	assert.True(t, s.HasHistory())
}

func TestTargetTolerance(t *testing.T) {
	assert.Equal(t, DefaultTolerance, TargetAllocation{AssetClass: "stock"}.Tolerance())
	assert.InDelta(t, 0.02, TargetAllocation{AssetClass: "bond", TolerancePercentage: 0.02}.Tolerance().Float(), 1e-12)
}
