package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PortfolioSnapshot is the set of positions of a portfolio at one instant
type PortfolioSnapshot struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	PortfolioID   string             `bson:"portfolio_id" json:"portfolio_id"`
	PortfolioName string             `bson:"portfolio_name,omitempty" json:"portfolio_name,omitempty"`
	Positions     []Position         `bson:"positions" json:"positions" validate:"dive"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// TotalValue is the sum of position values
func (s PortfolioSnapshot) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Positions {
		total = total.Add(p.Value())
	}
	return total
}

func (s PortfolioSnapshot) TotalValueFloat() float64 {
	f, _ := s.TotalValue().Float64()
	return f
}

// HasHistory reports whether any position carries at least two prices
func (s PortfolioSnapshot) HasHistory() bool {
	for _, p := range s.Positions {
		if len(p.PriceHistory) >= 2 {
			return true
		}
	}
	return false
}

// ValidateHistory checks every position's price history ordering
func (s PortfolioSnapshot) ValidateHistory() error {
	for _, p := range s.Positions {
		if err := p.ValidateHistory(); err != nil {
			return err
		}
	}
	return nil
}
