package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// Session statuses
const (
	SessionPendingReview = "PENDING_REVIEW"
	SessionCompleted     = "COMPLETED"
	SessionCancelled     = "CANCELLED"
)

// Suggestion statuses
const (
	SuggestionPending  = "PENDING"
	SuggestionExecuted = "EXECUTED"
)

// lossTaxRate approximates the tax offset of realized losses
var lossTaxRate = decimal.NewFromFloat(0.3)

// RebalancingSession groups a set of suggestions for review and execution
type RebalancingSession struct {
	ID                  uuid.UUID       `bson:"_id" json:"id"`
	PortfolioID         string          `bson:"portfolio_id" json:"portfolio_id"`
	Name                string          `bson:"name" json:"name"`
	Status              string          `bson:"status" json:"status"`
	Suggestions         []Suggestion    `bson:"suggestions" json:"suggestions"`
	TotalTrades         int             `bson:"total_trades" json:"total_trades"`
	EstimatedTotalValue decimal.Decimal `bson:"estimated_total_value" json:"estimated_total_value"`
	ActualTotalValue    decimal.Decimal `bson:"actual_total_value" json:"actual_total_value"`
	TaxImpact           decimal.Decimal `bson:"tax_impact" json:"tax_impact"`
	CreatedAt           time.Time       `bson:"created_at" json:"created_at"`
	ExecutedAt          *time.Time      `bson:"executed_at,omitempty" json:"executed_at,omitempty"`
}

type ExecutionResult struct {
	SessionID      uuid.UUID       `json:"session_id"`
	TradesExecuted int             `json:"trades_executed"`
	TotalValue     decimal.Decimal `json:"total_value"`
	TaxImpact      decimal.Decimal `json:"tax_impact"`
	CompletedAt    time.Time       `json:"completed_at"`
}

// NewSession wraps suggestions in a session awaiting review. The estimated
// value counts purchases only.
func NewSession(portfolioID string, suggestions []Suggestion) *RebalancingSession {
	now := time.Now().UTC()
	estimated := decimal.Zero
	for _, s := range suggestions {
		if s.Action == ActionBuy {
			estimated = estimated.Add(s.EstimatedTradeValue)
		}
	}
	return &RebalancingSession{
		ID:                  uuid.New(),
		PortfolioID:         portfolioID,
		Name:                "Rebalancing " + now.Format("2006-01-02"),
		Status:              SessionPendingReview,
		Suggestions:         append([]Suggestion(nil), suggestions...),
		TotalTrades:         len(suggestions),
		EstimatedTotalValue: estimated,
		CreatedAt:           now,
	}
}

// ExecuteSession marks pending suggestions executed and completes the session
func ExecuteSession(session *RebalancingSession) (*ExecutionResult, error) {
	const op = "execute_session"
	if session == nil {
		return nil, numeric.Invalid(op, "session is required")
	}
	if session.Status != SessionPendingReview {
		return nil, numeric.Invalid(op, "session %s is %s, expected %s", session.ID, session.Status, SessionPendingReview)
	}

	now := time.Now().UTC()
	executed := 0
	total := decimal.Zero
	losses := decimal.Zero
	for i := range session.Suggestions {
		s := &session.Suggestions[i]
		if s.Status != SuggestionPending {
			continue
		}
		s.Status = SuggestionExecuted
		s.ExecutedAt = &now
		executed++
		total = total.Add(s.EstimatedTradeValue)
		if s.TaxImplication == TaxLoss {
			losses = losses.Add(s.EstimatedTradeValue)
		}
	}

	session.Status = SessionCompleted
	session.ExecutedAt = &now
	session.ActualTotalValue = total
	session.TaxImpact = numeric.RoundDecimal(losses.Mul(lossTaxRate), 2)

	return &ExecutionResult{
		SessionID:      session.ID,
		TradesExecuted: executed,
		TotalValue:     total,
		TaxImpact:      session.TaxImpact,
		CompletedAt:    now,
	}, nil
}
