package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// PricePoint is one bar of a position's price history
type PricePoint struct {
	Timestamp time.Time `bson:"timestamp,omitempty" json:"timestamp,omitempty"`
	Open      float64   `bson:"open,omitempty" json:"open,omitempty"`
	High      float64   `bson:"high,omitempty" json:"high,omitempty"`
	Low       float64   `bson:"low,omitempty" json:"low,omitempty"`
	Close     float64   `bson:"close" json:"close"`
	Volume    float64   `bson:"volume,omitempty" json:"volume,omitempty"`
}

// UnmarshalJSON accepts either a bare closing price or a bar object
func (p *PricePoint) UnmarshalJSON(data []byte) error {
	var close float64
	if err := json.Unmarshal(data, &close); err == nil {
		*p = PricePoint{Close: close}
		return nil
	}

	type bar PricePoint
	var b bar
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("invalid price point: %w", err)
	}
	*p = PricePoint(b)
	return nil
}

// Position represents a holding in a portfolio
type Position struct {
	Symbol        string          `bson:"symbol" json:"symbol" validate:"required"`
	Name          string          `bson:"name,omitempty" json:"name,omitempty"`
	AssetType     string          `bson:"asset_type,omitempty" json:"asset_type,omitempty"`
	Sector        string          `bson:"sector,omitempty" json:"sector,omitempty"`
	Country       string          `bson:"country,omitempty" json:"country,omitempty"`
	Quantity      decimal.Decimal `bson:"quantity" json:"quantity"`
	CurrentPrice  decimal.Decimal `bson:"current_price" json:"current_price"`
	PurchasePrice decimal.Decimal `bson:"purchase_price,omitempty" json:"purchase_price,omitempty"`
	PurchaseDate  time.Time       `bson:"purchase_date,omitempty" json:"purchase_date,omitempty"`
	PriceHistory  []PricePoint    `bson:"price_history,omitempty" json:"price_history,omitempty"`
}

// Value is quantity × current price
func (p Position) Value() decimal.Decimal {
	return p.Quantity.Mul(p.CurrentPrice)
}

func (p Position) ValueFloat() float64 {
	f, _ := p.Value().Float64()
	return f
}

// CostBasis is quantity × purchase price
func (p Position) CostBasis() decimal.Decimal {
	return p.Quantity.Mul(p.PurchasePrice)
}

// UnrealizedPnL is current value minus cost basis. A position without a
// purchase price has no known cost and reports zero.
func (p Position) UnrealizedPnL() decimal.Decimal {
	cost := p.CostBasis()
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return p.Value().Sub(cost)
}

// Closes returns the closing prices of the price history
func (p Position) Closes() []float64 {
	out := make([]float64, len(p.PriceHistory))
	for i, pt := range p.PriceHistory {
		out[i] = pt.Close
	}
	return out
}

// ValidateHistory checks that timestamped bars are strictly increasing. The
// error is an InvalidParameter numeric error.
func (p Position) ValidateHistory() error {
	var prev time.Time
	for i, pt := range p.PriceHistory {
		if pt.Timestamp.IsZero() {
			continue
		}
		if !prev.IsZero() && !pt.Timestamp.After(prev) {
			return numeric.Invalid("validate_history", "price history for %s is not strictly increasing at index %d", p.Symbol, i)
		}
		prev = pt.Timestamp
	}
	return nil
}
