package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

const (
	longTermHoldingDays = 365
	washSaleWindowDays  = 30
)

type TaxLot struct {
	Symbol            string          `json:"symbol"`
	Quantity          decimal.Decimal `json:"quantity"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	PurchaseDate      time.Time       `json:"purchase_date"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	CostBasis         decimal.Decimal `json:"cost_basis"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	UnrealizedPnL     decimal.Decimal `json:"unrealized_pnl"`
	GainLossPct       numeric.Percent `json:"gain_loss_pct"`
	HoldingPeriodDays int             `json:"holding_period_days"`
	IsLongTerm        bool            `json:"is_long_term"`
}

type HarvestingOpportunity struct {
	Symbol         string          `json:"symbol"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnrealizedLoss decimal.Decimal `json:"unrealized_loss"`
	LossPercentage numeric.Percent `json:"loss_percentage"`
	HoldingDays    int             `json:"holding_days"`
	IsLongTerm     bool            `json:"is_long_term"`
	WashSaleRisk   bool            `json:"wash_sale_risk"`
}

// TaxLots treats every holding with a purchase date as one lot
func (rs *RebalancingService) TaxLots(holdings []models.Position, now time.Time) []TaxLot {
	lots := make([]TaxLot, 0, len(holdings))
	for _, h := range holdings {
		if h.PurchaseDate.IsZero() {
			continue
		}
		cost := h.CostBasis()
		value := h.Value()
		pnl := h.UnrealizedPnL()
		days := holdingDays(h.PurchaseDate, now)

		lots = append(lots, TaxLot{
			Symbol:            h.Symbol,
			Quantity:          h.Quantity,
			PurchasePrice:     h.PurchasePrice,
			PurchaseDate:      h.PurchaseDate,
			CurrentPrice:      h.CurrentPrice,
			CostBasis:         numeric.RoundDecimal(cost, 2),
			CurrentValue:      numeric.RoundDecimal(value, 2),
			UnrealizedPnL:     numeric.RoundDecimal(pnl, 2),
			GainLossPct:       numeric.Percent(numeric.ToFloat(numeric.SafeDivideDecimal(pnl, cost))),
			HoldingPeriodDays: days,
			IsLongTerm:        days >= longTermHoldingDays,
		})
	}
	return lots
}

// HarvestingOpportunities lists losing lots, largest loss first. Loss amounts
// and percentages are positive magnitudes.
func (rs *RebalancingService) HarvestingOpportunities(holdings []models.Position, now time.Time) []HarvestingOpportunity {
	out := []HarvestingOpportunity{}
	for _, lot := range rs.TaxLots(holdings, now) {
		if !lot.UnrealizedPnL.IsNegative() {
			continue
		}
		out = append(out, HarvestingOpportunity{
			Symbol:         lot.Symbol,
			Quantity:       lot.Quantity,
			UnrealizedLoss: lot.UnrealizedPnL.Abs(),
			LossPercentage: numeric.Percent(math.Abs(lot.GainLossPct.Float())),
			HoldingDays:    lot.HoldingPeriodDays,
			IsLongTerm:     lot.IsLongTerm,
			WashSaleRisk:   lot.HoldingPeriodDays < washSaleWindowDays,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UnrealizedLoss.GreaterThan(out[j].UnrealizedLoss)
	})
	return out
}

func holdingDays(purchased, now time.Time) int {
	if now.Before(purchased) {
		return 0
	}
	return int(now.Sub(purchased).Hours() / 24)
}
