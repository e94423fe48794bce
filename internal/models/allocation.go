package models

import (
	"time"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// DefaultTolerance is the drift band applied when a target has none
const DefaultTolerance = numeric.Percent(0.05)

// TargetAllocation is the desired weight of one asset class
type TargetAllocation struct {
	AssetClass          string          `bson:"asset_class" json:"asset_class" validate:"required"`
	TargetPercentage    numeric.Percent `bson:"target_percentage" json:"target_percentage" validate:"gte=0,lte=1"`
	TolerancePercentage numeric.Percent `bson:"tolerance_percentage,omitempty" json:"tolerance_percentage,omitempty" validate:"gte=0,lte=1"`
}

// Tolerance returns the configured tolerance or the default band
func (t TargetAllocation) Tolerance() numeric.Percent {
	if t.TolerancePercentage <= 0 {
		return DefaultTolerance
	}
	return t.TolerancePercentage
}

// AllocationTargets is the stored target set of a portfolio
type AllocationTargets struct {
	PortfolioID string             `bson:"portfolio_id" json:"portfolio_id"`
	Targets     []TargetAllocation `bson:"targets" json:"targets" validate:"required,min=1,dive"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
