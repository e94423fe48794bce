package messaging

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// Routing keys on the events exchange
const (
	RoutingDriftAlert      = "analytics.drift.alert"
	RoutingVaRComputed     = "analytics.var.computed"
	RoutingSessionExecuted = "analytics.session.executed"

	sourceName = "analytics-service"
)

// Event is the envelope of every message published on the events exchange
type Event struct {
	CorrelationID string      `json:"correlation_id"`
	EventType     string      `json:"event_type"`
	PortfolioID   string      `json:"portfolio_id"`
	Source        string      `json:"source"`
	Timestamp     time.Time   `json:"timestamp"`
	Data          interface{} `json:"data"`
}

// DriftAlert is published when a portfolio leaves its tolerance bands
type DriftAlert struct {
	PortfolioID string                       `json:"portfolio_id"`
	MaxDrift    numeric.Percent              `json:"max_drift"`
	Drifts      []analytics.ClassDriftStatus `json:"drifts"`
	CheckedAt   time.Time                    `json:"checked_at"`
}

// NewDriftAlert keeps only the classes that need rebalancing
func NewDriftAlert(status analytics.DriftStatus) DriftAlert {
	alert := DriftAlert{PortfolioID: status.PortfolioID, CheckedAt: status.CheckedAt}
	for _, d := range status.Drifts {
		if d.Status != analytics.StatusRebalance {
			continue
		}
		alert.Drifts = append(alert.Drifts, d)
		if abs := numeric.Percent(absFloat(d.DriftPercentage.Float())); abs > alert.MaxDrift {
			alert.MaxDrift = abs
		}
	}
	return alert
}

// VaRComputed summarizes a stored VaR report
type VaRComputed struct {
	Method          string          `json:"method"`
	ConfidenceLevel numeric.Percent `json:"confidence_level"`
	TimeHorizon     int             `json:"time_horizon"`
	VaRAmount       float64         `json:"var_amount"`
	VaRPercentage   numeric.Percent `json:"var_percentage"`
	Fallback        bool            `json:"fallback"`
	CalculatedAt    time.Time       `json:"calculated_at"`
}

// SessionExecuted is published once a rebalancing session completes
type SessionExecuted struct {
	SessionID      string          `json:"session_id"`
	TradesExecuted int             `json:"trades_executed"`
	TotalValue     decimal.Decimal `json:"total_value"`
	TaxImpact      decimal.Decimal `json:"tax_impact"`
	CompletedAt    time.Time       `json:"completed_at"`
}

// RecalculationRequest asks for a fresh drift check of one portfolio
type RecalculationRequest struct {
	PortfolioID   string    `json:"portfolio_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	RequestedBy   string    `json:"requested_by,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
