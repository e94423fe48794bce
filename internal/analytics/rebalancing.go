package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// Asset classes
const (
	ClassStock      = "stock"
	ClassBond       = "bond"
	ClassCrypto     = "crypto"
	ClassETF        = "etf"
	ClassRealEstate = "real_estate"
	ClassCash       = "cash"
	ClassCommodity  = "commodity"
	ClassOther      = "other"
)

// Drift levels
const (
	DriftWithinTolerance = "WITHIN_TOLERANCE"
	DriftWarning         = "WARNING"
	DriftCritical        = "CRITICAL"
)

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"

	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"

	TaxLoss    = "LOSS"
	TaxGain    = "GAIN"
	TaxNeutral = "NEUTRAL"

	StatusOK        = "OK"
	StatusRebalance = "REBALANCE"

	DefaultMaxTrades = 10

	highPriorityDrift   = 0.15
	mediumPriorityDrift = 0.08
	minWhatIfDrift      = 0.005
	whatIfSumTolerance  = 0.0005
)

var assetClassAliases = map[string]string{
	"stock":          ClassStock,
	"equity":         ClassStock,
	"bond":           ClassBond,
	"fixed_income":   ClassBond,
	"crypto":         ClassCrypto,
	"cryptocurrency": ClassCrypto,
	"etf":            ClassETF,
	"fund":           ClassETF,
	"real_estate":    ClassRealEstate,
	"reit":           ClassRealEstate,
	"cash":           ClassCash,
	"money_market":   ClassCash,
	"commodity":      ClassCommodity,
	"gold":           ClassCommodity,
	"silver":         ClassCommodity,
}

// ClassifyAssetClass maps a raw asset type onto a rebalancing asset class
func ClassifyAssetClass(raw string) string {
	if class, ok := assetClassAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return class
	}
	return ClassOther
}

type AllocationEntry struct {
	Value      decimal.Decimal `json:"value"`
	Percentage numeric.Percent `json:"percentage"`
}

type Drift struct {
	AssetClass        string          `json:"asset_class" bson:"asset_class"`
	CurrentPercentage numeric.Percent `json:"current_percentage" bson:"current_percentage"`
	TargetPercentage  numeric.Percent `json:"target_percentage" bson:"target_percentage"`
	DriftPercentage   numeric.Percent `json:"drift_percentage" bson:"drift_percentage"`
	DriftValue        decimal.Decimal `json:"drift_value" bson:"drift_value"`
	Tolerance         numeric.Percent `json:"tolerance" bson:"tolerance"`
	Level             string          `json:"drift_level" bson:"drift_level"`
}

type ClassDriftStatus struct {
	AssetClass        string          `json:"asset_class"`
	CurrentPercentage numeric.Percent `json:"current_percentage"`
	TargetPercentage  numeric.Percent `json:"target_percentage"`
	DriftPercentage   numeric.Percent `json:"drift_percentage"`
	Tolerance         numeric.Percent `json:"tolerance"`
	Level             string          `json:"drift_level"`
	Status            string          `json:"status"`
}

type DriftStatus struct {
	PortfolioID      string             `json:"portfolio_id,omitempty"`
	NeedsRebalancing bool               `json:"needs_rebalancing"`
	Drifts           []ClassDriftStatus `json:"drifts"`
	CheckedAt        time.Time          `json:"checked_at"`
}

type SuggestionOptions struct {
	MaxTrades          int  `json:"max_trades" form:"max_trades"`
	PreferTaxEfficient bool `json:"prefer_tax_efficient" form:"prefer_tax_efficient"`
}

type Suggestion struct {
	Symbol              string          `json:"symbol,omitempty" bson:"symbol,omitempty"`
	AssetClass          string          `json:"asset_class" bson:"asset_class"`
	Action              string          `json:"action" bson:"action"`
	CurrentQuantity     decimal.Decimal `json:"current_quantity" bson:"current_quantity"`
	CurrentValue        decimal.Decimal `json:"current_value" bson:"current_value"`
	SuggestedValue      decimal.Decimal `json:"suggested_value" bson:"suggested_value"`
	CurrentAllocation   numeric.Percent `json:"current_allocation" bson:"current_allocation"`
	TargetAllocation    numeric.Percent `json:"target_allocation" bson:"target_allocation"`
	Priority            string          `json:"priority" bson:"priority"`
	TaxImplication      string          `json:"tax_implication" bson:"tax_implication"`
	EstimatedTradeValue decimal.Decimal `json:"estimated_trade_value" bson:"estimated_trade_value"`
	Reason              string          `json:"reason" bson:"reason"`
	Status              string          `json:"status" bson:"status"`
	ExecutedAt          *time.Time      `json:"executed_at,omitempty" bson:"executed_at,omitempty"`
}

type WhatIfTrade struct {
	AssetClass         string           `json:"asset_class"`
	Action             string           `json:"action"`
	CurrentAllocation  numeric.Percent  `json:"current_allocation"`
	ProposedAllocation numeric.Percent  `json:"proposed_allocation"`
	TradeValue         decimal.Decimal  `json:"trade_value"`
	Drift              numeric.Percent  `json:"drift"`
	SharesAffected     *decimal.Decimal `json:"shares_affected"`
}

type WhatIfResult struct {
	Valid             bool             `json:"valid"`
	Error             string           `json:"error,omitempty"`
	CurrentSum        *numeric.Percent `json:"current_sum,omitempty"`
	Trades            []WhatIfTrade    `json:"trades,omitempty"`
	TotalTradesNeeded int              `json:"total_trades_needed"`
	EstimatedTurnover numeric.Percent  `json:"estimated_turnover"`
}

// RebalancingService compares holdings against target allocations. Holdings
// and targets are passed in on every call; the service keeps no state.
type RebalancingService struct {
	defaultTolerance numeric.Percent
	maxTrades        int
}

func NewRebalancingService(defaultTolerance numeric.Percent, maxTrades int) *RebalancingService {
	if defaultTolerance <= 0 {
		defaultTolerance = models.DefaultTolerance
	}
	if maxTrades <= 0 {
		maxTrades = DefaultMaxTrades
	}
	return &RebalancingService{defaultTolerance: defaultTolerance, maxTrades: maxTrades}
}

// CurrentAllocation groups positive-valued holdings by asset class
func (rs *RebalancingService) CurrentAllocation(holdings []models.Position) map[string]AllocationEntry {
	values, total := classValues(holdings)
	out := make(map[string]AllocationEntry, len(values))
	for class, v := range values {
		out[class] = AllocationEntry{
			Value:      v,
			Percentage: numeric.Percent(numeric.ToFloat(numeric.SafeDivideDecimal(v, total))),
		}
	}
	return out
}

func classValues(holdings []models.Position) (map[string]decimal.Decimal, decimal.Decimal) {
	values := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, h := range holdings {
		v := h.Value()
		if !v.IsPositive() {
			continue
		}
		class := ClassifyAssetClass(h.AssetType)
		values[class] = values[class].Add(v)
		total = total.Add(v)
	}
	return values, total
}

func (rs *RebalancingService) tolerance(t models.TargetAllocation, ok bool) numeric.Percent {
	if ok && t.TolerancePercentage > 0 {
		return t.TolerancePercentage
	}
	return rs.defaultTolerance
}

func targetIndex(targets []models.TargetAllocation) map[string]models.TargetAllocation {
	idx := make(map[string]models.TargetAllocation, len(targets))
	for _, t := range targets {
		idx[t.AssetClass] = t
	}
	return idx
}

func driftLevel(absDrift, tol float64) string {
	switch {
	case absDrift <= tol:
		return DriftWithinTolerance
	case absDrift <= 2*tol:
		return DriftWarning
	default:
		return DriftCritical
	}
}

// CalculateDrift reports current minus target weight for every class that is
// held or targeted, sorted by class
func (rs *RebalancingService) CalculateDrift(holdings []models.Position, targets []models.TargetAllocation) []Drift {
	current := rs.CurrentAllocation(holdings)
	_, total := classValues(holdings)
	idx := targetIndex(targets)

	classes := make(map[string]struct{}, len(current)+len(idx))
	for c := range current {
		classes[c] = struct{}{}
	}
	for c := range idx {
		classes[c] = struct{}{}
	}
	names := make([]string, 0, len(classes))
	for c := range classes {
		names = append(names, c)
	}
	sort.Strings(names)

	drifts := make([]Drift, 0, len(names))
	for _, class := range names {
		t, ok := idx[class]
		cur := current[class].Percentage.Float()
		d := cur - t.TargetPercentage.Float()
		tol := rs.tolerance(t, ok)

		drifts = append(drifts, Drift{
			AssetClass:        class,
			CurrentPercentage: numeric.Percent(cur),
			TargetPercentage:  t.TargetPercentage,
			DriftPercentage:   numeric.Percent(d),
			DriftValue:        numeric.RoundDecimal(total.Mul(decimal.NewFromFloat(d)), 2),
			Tolerance:         tol,
			Level:             driftLevel(abs(d), tol.Float()),
		})
	}
	return drifts
}

// DriftStatus summarizes CalculateDrift into a rebalance/no-rebalance answer
func (rs *RebalancingService) DriftStatus(holdings []models.Position, targets []models.TargetAllocation) DriftStatus {
	status := DriftStatus{CheckedAt: time.Now().UTC()}
	for _, d := range rs.CalculateDrift(holdings, targets) {
		s := StatusOK
		if abs(d.DriftPercentage.Float()) > d.Tolerance.Float() {
			s = StatusRebalance
			status.NeedsRebalancing = true
		}
		status.Drifts = append(status.Drifts, ClassDriftStatus{
			AssetClass:        d.AssetClass,
			CurrentPercentage: d.CurrentPercentage,
			TargetPercentage:  d.TargetPercentage,
			DriftPercentage:   d.DriftPercentage,
			Tolerance:         d.Tolerance,
			Level:             d.Level,
			Status:            s,
		})
	}
	return status
}

// GenerateSuggestions proposes one trade per targeted class whose drift is
// outside tolerance. Trades follow target order unless PreferTaxEfficient is
// set, which ranks by priority and puts loss-realizing sells first.
func (rs *RebalancingService) GenerateSuggestions(holdings []models.Position, targets []models.TargetAllocation, opts SuggestionOptions) []Suggestion {
	maxTrades := opts.MaxTrades
	if maxTrades <= 0 {
		maxTrades = rs.maxTrades
	}

	current := rs.CurrentAllocation(holdings)
	_, total := classValues(holdings)
	if !total.IsPositive() {
		return []Suggestion{}
	}

	suggestions := make([]Suggestion, 0, len(targets))
	for _, t := range targets {
		entry := current[t.AssetClass]
		targetValue := total.Mul(decimal.NewFromFloat(t.TargetPercentage.Float()))
		driftValue := targetValue.Sub(entry.Value)
		drift := entry.Percentage.Float() - t.TargetPercentage.Float()

		if abs(drift) <= rs.tolerance(t, true).Float() {
			continue
		}

		action := ActionSell
		if driftValue.IsPositive() {
			action = ActionBuy
		}

		rep := representativeHolding(holdings, t.AssetClass)
		s := Suggestion{
			AssetClass:          t.AssetClass,
			Action:              action,
			CurrentValue:        entry.Value,
			SuggestedValue:      numeric.RoundDecimal(driftValue.Abs(), 2),
			CurrentAllocation:   entry.Percentage,
			TargetAllocation:    t.TargetPercentage,
			Priority:            priorityFor(abs(drift)),
			TaxImplication:      TaxNeutral,
			EstimatedTradeValue: numeric.RoundDecimal(driftValue.Abs(), 2),
			Reason:              fmt.Sprintf("%s %s to reach target allocation of %.2f%%", action, t.AssetClass, t.TargetPercentage.Percentage()),
			Status:              SuggestionPending,
		}
		if rep != nil {
			s.Symbol = rep.Symbol
			s.CurrentQuantity = rep.Quantity
			if action == ActionSell {
				s.TaxImplication = taxImplication(rep.UnrealizedPnL())
			}
		}
		suggestions = append(suggestions, s)
	}

	if opts.PreferTaxEfficient {
		sort.SliceStable(suggestions, func(i, j int) bool {
			pi, pj := priorityRank(suggestions[i].Priority), priorityRank(suggestions[j].Priority)
			if pi != pj {
				return pi < pj
			}
			return harvestsLoss(suggestions[i]) && !harvestsLoss(suggestions[j])
		})
	}

	if len(suggestions) > maxTrades {
		suggestions = suggestions[:maxTrades]
	}
	return suggestions
}

func harvestsLoss(s Suggestion) bool {
	return s.Action == ActionSell && s.TaxImplication == TaxLoss
}

func priorityFor(absDrift float64) string {
	switch {
	case absDrift > highPriorityDrift:
		return PriorityHigh
	case absDrift > mediumPriorityDrift:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func priorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

func taxImplication(pnl decimal.Decimal) string {
	switch {
	case pnl.IsNegative():
		return TaxLoss
	case pnl.IsPositive():
		return TaxGain
	default:
		return TaxNeutral
	}
}

// representativeHolding is the first holding of the class
func representativeHolding(holdings []models.Position, class string) *models.Position {
	for i := range holdings {
		if ClassifyAssetClass(holdings[i].AssetType) == class {
			return &holdings[i]
		}
	}
	return nil
}

// WhatIf prices the trades needed to move to a proposed allocation. A
// proposal that does not sum to 100% yields an invalid result, not an error.
func (rs *RebalancingService) WhatIf(holdings []models.Position, proposed map[string]numeric.Percent) WhatIfResult {
	sum := decimal.Zero
	for _, p := range proposed {
		sum = sum.Add(decimal.NewFromFloat(p.Float()))
	}
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(decimal.NewFromFloat(whatIfSumTolerance)) {
		cs := numeric.Percent(numeric.ToFloat(sum))
		return WhatIfResult{
			Valid:      false,
			Error:      "Proposed allocation must sum to 100%",
			CurrentSum: &cs,
		}
	}

	current := rs.CurrentAllocation(holdings)
	_, total := classValues(holdings)

	classes := make([]string, 0, len(proposed))
	for c := range proposed {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	trades := []WhatIfTrade{}
	traded := decimal.Zero
	for _, class := range classes {
		cur := current[class].Percentage
		d := proposed[class].Float() - cur.Float()
		if abs(d) < minWhatIfDrift {
			continue
		}

		action := ActionSell
		if d > 0 {
			action = ActionBuy
		}
		value := numeric.RoundDecimal(total.Mul(decimal.NewFromFloat(abs(d))), 2)
		traded = traded.Add(value)

		trade := WhatIfTrade{
			AssetClass:         class,
			Action:             action,
			CurrentAllocation:  cur,
			ProposedAllocation: proposed[class],
			TradeValue:         value,
			Drift:              numeric.Percent(d),
		}
		if rep := representativeHolding(holdings, class); rep != nil {
			qty := rep.Quantity
			trade.SharesAffected = &qty
		}
		trades = append(trades, trade)
	}

	return WhatIfResult{
		Valid:             true,
		Trades:            trades,
		TotalTradesNeeded: len(trades),
		EstimatedTurnover: numeric.Percent(numeric.ToFloat(numeric.SafeDivideDecimal(traded, total))),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
