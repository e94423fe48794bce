package controllers

import (
	"time"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
	"github.com/Fuuurma/FinanceHub-sub001/internal/timeseries"
)

// Time series

type ARIMARequest struct {
	Data            []float64 `json:"data" validate:"required,min=10,max=5000"`
	OrderP          *int      `json:"order_p" validate:"omitempty,gte=0,lte=10"`
	OrderD          *int      `json:"order_d" validate:"omitempty,gte=0,lte=3"`
	OrderQ          *int      `json:"order_q" validate:"omitempty,gte=0,lte=10"`
	Steps           int       `json:"steps" validate:"omitempty,gte=1,lte=100"`
	ConfidenceLevel float64   `json:"confidence_level" validate:"omitempty,confidence"`
}

func (r ARIMARequest) order() timeseries.Order {
	o := timeseries.Order{P: 1, D: 0, Q: 1}
	if r.OrderP != nil {
		o.P = *r.OrderP
	}
	if r.OrderD != nil {
		o.D = *r.OrderD
	}
	if r.OrderQ != nil {
		o.Q = *r.OrderQ
	}
	return o
}

func (r ARIMARequest) steps() int {
	if r.Steps == 0 {
		return 10
	}
	return r.Steps
}

func (r ARIMARequest) confidence() float64 {
	if r.ConfidenceLevel == 0 {
		return 0.95
	}
	c, _ := numeric.NormalizeConfidence(r.ConfidenceLevel)
	return c
}

type GARCHRequest struct {
	Returns []float64 `json:"returns" validate:"required,min=10,max=5000"`
	Omega   float64   `json:"omega" validate:"gte=0"`
	Alpha   float64   `json:"alpha" validate:"gte=0,lte=1"`
	Beta    float64   `json:"beta" validate:"gte=0,lte=1"`
	Steps   int       `json:"steps" validate:"omitempty,gte=1,lte=100"`
}

// KalmanRequest takes either a scalar series or a matrix with one row per
// observation
type KalmanRequest struct {
	Observations      []float64   `json:"observations" validate:"required_without=ObservationMatrix,omitempty,min=5,max=5000"`
	ObservationMatrix [][]float64 `json:"observation_matrix" validate:"omitempty,min=5,max=5000"`
	StateDim          int         `json:"state_dim" validate:"omitempty,gte=1,lte=10"`
	ProcessNoise      *float64    `json:"process_noise" validate:"omitempty,gte=0"`
	ObservationNoise  *float64    `json:"observation_noise" validate:"omitempty,gte=0"`
}

func (r KalmanRequest) rows() [][]float64 {
	if len(r.ObservationMatrix) > 0 {
		return r.ObservationMatrix
	}
	rows := make([][]float64, len(r.Observations))
	for i, v := range r.Observations {
		rows[i] = []float64{v}
	}
	return rows
}

func (r KalmanRequest) config() timeseries.KalmanConfig {
	cfg := timeseries.DefaultKalmanConfig
	if r.StateDim > 0 {
		cfg.StateDim = r.StateDim
	} else if len(r.ObservationMatrix) > 0 {
		cfg.StateDim = len(r.ObservationMatrix[0])
	}
	if r.ProcessNoise != nil {
		cfg.ProcessNoise = *r.ProcessNoise
	}
	if r.ObservationNoise != nil {
		cfg.ObservationNoise = *r.ObservationNoise
	}
	return cfg
}

type HalfLifeRequest struct {
	Prices   []float64 `json:"prices" validate:"required,min=10,max=5000"`
	Lookback int       `json:"lookback" validate:"omitempty,gte=10"`
}

type HurstRequest struct {
	Data     []float64 `json:"data" validate:"required,min=100,max=5000"`
	MaxScale int       `json:"max_scale" validate:"omitempty,gte=2"`
}

type VolatilityRegimesRequest struct {
	Returns       []float64 `json:"returns" validate:"required,min=1,max=5000"`
	ThresholdLow  *float64  `json:"threshold_low" validate:"omitempty,gte=0"`
	ThresholdHigh *float64  `json:"threshold_high" validate:"omitempty,gte=0"`
}

func (r VolatilityRegimesRequest) thresholds() timeseries.RegimeThresholds {
	t := timeseries.DefaultRegimeThresholds
	if r.ThresholdLow != nil {
		t.Low = *r.ThresholdLow
	}
	if r.ThresholdHigh != nil {
		t.High = *r.ThresholdHigh
	}
	return t
}

// Risk

// PortfolioInput names a stored portfolio or carries its positions inline
type PortfolioInput struct {
	PortfolioID string            `json:"portfolio_id" validate:"required_without=Positions"`
	Positions   []models.Position `json:"positions" validate:"omitempty,dive"`
}

type VaRRequest struct {
	PortfolioInput
	Method          string  `json:"method" validate:"omitempty,var_method"`
	ConfidenceLevel float64 `json:"confidence_level" validate:"omitempty,confidence"`
	TimeHorizon     int     `json:"time_horizon" validate:"omitempty,gte=1,lte=365"`
	LookbackDays    int     `json:"lookback_days" validate:"omitempty,gte=30,lte=1000"`
}

type HistoricalStressRequest struct {
	PortfolioInput
	Scenario string `json:"scenario" validate:"required"`
}

type CustomStressRequest struct {
	PortfolioInput
	MarketShockPct *float64           `json:"market_shock_pct" validate:"omitempty,gte=-1,lte=1"`
	SectorShocks   map[string]float64 `json:"sector_shocks" validate:"omitempty,dive,gte=-1,lte=1"`
}

const defaultMarketShock = -0.20

func (r CustomStressRequest) marketShock() float64 {
	if r.MarketShockPct == nil {
		return defaultMarketShock
	}
	return *r.MarketShockPct
}

// Performance

type ReturnsRequest struct {
	Prices    []float64 `json:"prices" validate:"required"`
	Symbol    string    `json:"symbol"`
	Benchmark []float64 `json:"benchmark_prices"`
	Period    string    `json:"period" validate:"omitempty,max=16"`
}

type RiskAdjustedRequest struct {
	Returns      []float64 `json:"returns" validate:"required"`
	Benchmark    []float64 `json:"benchmark_returns"`
	RiskFreeRate *float64  `json:"risk_free_rate" validate:"omitempty,gte=-1,lte=1"`
}

type FactorsRequest struct {
	Returns []float64            `json:"returns" validate:"required"`
	Factors map[string][]float64 `json:"factors" validate:"required,min=1"`
}

// Rebalancing

type TargetsRequest struct {
	Allocations []models.TargetAllocation `json:"allocations" validate:"required,min=1,dive"`
}

// HoldingsRequest carries optional inline positions and targets. Omitted
// fields fall back to the stored snapshot and targets.
type HoldingsRequest struct {
	Positions   []models.Position         `json:"positions" validate:"omitempty,dive"`
	Allocations []models.TargetAllocation `json:"allocations" validate:"omitempty,dive"`
}

type SuggestionsRequest struct {
	HoldingsRequest
	MaxTrades          int  `json:"max_trades" validate:"omitempty,gte=1,lte=50"`
	PreferTaxEfficient bool `json:"prefer_tax_efficient"`
}

type WhatIfRequest struct {
	Positions   []models.Position          `json:"positions" validate:"omitempty,dive"`
	Allocations map[string]numeric.Percent `json:"allocations" validate:"required,min=1"`
}

type SnapshotRequest struct {
	PortfolioName string            `json:"portfolio_name"`
	Positions     []models.Position `json:"positions" validate:"required,min=1,dive"`
	Timestamp     time.Time         `json:"timestamp"`
}

// OptimizeRequest weights are on the 0-100 scale. TargetReturn is an
// annualized fraction.
type OptimizeRequest struct {
	Positions       []models.Position `json:"positions" validate:"omitempty,dive"`
	Strategy        string            `json:"strategy" validate:"omitempty,oneof=max_sharpe min_variance risk_parity equal_weight"`
	MinWeight       numeric.Percent   `json:"min_weight" validate:"gte=0,lte=1"`
	MaxWeight       numeric.Percent   `json:"max_weight" validate:"gte=0,lte=1"`
	TargetReturn    *float64          `json:"target_return" validate:"omitempty,gte=-1,lte=5"`
	TransactionCost numeric.Percent   `json:"transaction_cost" validate:"gte=0,lte=0.1"`
	Points          int               `json:"points" validate:"omitempty,gte=2,lte=100"`
}

func (r OptimizeRequest) strategy() analytics.OptimizationStrategy {
	if r.Strategy == "" {
		return analytics.StrategyMaxSharpe
	}
	return analytics.OptimizationStrategy(r.Strategy)
}

func (r OptimizeRequest) constraints() analytics.OptimizationConstraints {
	return analytics.OptimizationConstraints{
		MinWeight:       r.MinWeight,
		MaxWeight:       r.MaxWeight,
		TargetReturn:    r.TargetReturn,
		TransactionCost: r.TransactionCost,
	}
}
