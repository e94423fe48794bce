package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/optimize"

	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

type OptimizationStrategy string

const (
	StrategyMaxSharpe   OptimizationStrategy = "max_sharpe"
	StrategyMinVariance OptimizationStrategy = "min_variance"
	StrategyRiskParity  OptimizationStrategy = "risk_parity"
	StrategyEqualWeight OptimizationStrategy = "equal_weight"
)

const (
	ActionHold = "HOLD"

	MinOptimizationObservations = 20
	DefaultFrontierPoints       = 20
	MaxFrontierPoints           = 100

	riskParityIterations = 100
	riskParityTolerance  = 1e-6
	constraintPenalty    = 1e4
	solverIterations     = 5000
)

// ValidStrategy reports whether s names a supported optimization strategy
func ValidStrategy(s OptimizationStrategy) bool {
	switch s {
	case StrategyMaxSharpe, StrategyMinVariance, StrategyRiskParity, StrategyEqualWeight:
		return true
	}
	return false
}

// OptimizationConstraints bound the long-only weights. A zero MaxWeight means
// no upper bound. TargetReturn is annualized.
type OptimizationConstraints struct {
	MinWeight       numeric.Percent `json:"min_weight"`
	MaxWeight       numeric.Percent `json:"max_weight"`
	TargetReturn    *float64        `json:"target_return,omitempty"`
	TransactionCost numeric.Percent `json:"transaction_cost"`
}

// OptimizationInput holds one row of periodic returns per asset
type OptimizationInput struct {
	Symbols []string
	Returns [][]float64
}

type OptimizationResult struct {
	Strategy           OptimizationStrategy       `json:"strategy"`
	TargetWeights      map[string]numeric.Percent `json:"target_weights"`
	CurrentWeights     map[string]numeric.Percent `json:"current_weights,omitempty"`
	RebalancingActions []OptimizationTrade        `json:"rebalancing_actions"`
	RiskContributions  map[string]numeric.Percent `json:"risk_contributions"`
	ExpectedReturn     numeric.Percent            `json:"expected_return"`
	ExpectedVolatility numeric.Percent            `json:"expected_volatility"`
	ExpectedSharpe     float64                    `json:"expected_sharpe"`
	TotalTurnover      numeric.Percent            `json:"total_turnover"`
	EstimatedCosts     numeric.Percent            `json:"estimated_costs"`
	Observations       int                        `json:"observations"`
	Converged          bool                       `json:"converged"`
	Iterations         int                        `json:"iterations"`
	Recommendation     string                     `json:"recommendation"`
	ComputeTimeMs      float64                    `json:"compute_time_ms"`
}

type OptimizationTrade struct {
	Symbol       string          `json:"symbol"`
	Action       string          `json:"action"`
	CurrentQty   decimal.Decimal `json:"current_quantity"`
	TargetQty    decimal.Decimal `json:"target_quantity"`
	DeltaQty     decimal.Decimal `json:"delta_quantity"`
	CurrentValue decimal.Decimal `json:"current_value"`
	TargetValue  decimal.Decimal `json:"target_value"`
	DeltaValue   decimal.Decimal `json:"delta_value"`
	Priority     int             `json:"priority"`
}

type EfficientPoint struct {
	ExpectedReturn numeric.Percent            `json:"expected_return"`
	Volatility     numeric.Percent            `json:"volatility"`
	SharpeRatio    float64                    `json:"sharpe_ratio"`
	Weights        map[string]numeric.Percent `json:"weights"`
}

// PortfolioOptimizer computes long-only target weights from return history.
// Expected returns and covariances are annualized over numeric.TradingDays.
type PortfolioOptimizer struct {
	backend      numeric.Backend
	riskFreeRate float64
}

func NewPortfolioOptimizer(backend numeric.Backend, riskFreeRate float64) *PortfolioOptimizer {
	if backend == nil {
		backend = numeric.NewFullStatsBackend()
	}
	return &PortfolioOptimizer{backend: backend, riskFreeRate: riskFreeRate}
}

// ReturnsFromPositions builds the optimizer input from the price histories of
// the holdings. Rows are aligned on the most recent common window and symbols
// with fewer than two closes are skipped.
func ReturnsFromPositions(positions []models.Position) OptimizationInput {
	var in OptimizationInput
	seen := make(map[string]bool, len(positions))
	shortest := math.MaxInt
	for _, p := range positions {
		closes := p.Closes()
		if p.Symbol == "" || seen[p.Symbol] || len(closes) < 2 {
			continue
		}
		seen[p.Symbol] = true
		r := numeric.SimpleReturns(closes)
		in.Symbols = append(in.Symbols, p.Symbol)
		in.Returns = append(in.Returns, r)
		shortest = min(shortest, len(r))
	}
	for i, r := range in.Returns {
		in.Returns[i] = r[len(r)-shortest:]
	}
	return in
}

// estimates holds the annualized moments of an input
type estimates struct {
	symbols []string
	mu      []float64
	cov     [][]float64
	n       int
}

func (po *PortfolioOptimizer) estimate(op string, in OptimizationInput) (*estimates, error) {
	if len(in.Symbols) != len(in.Returns) {
		return nil, numeric.Invalid(op, "%d symbols for %d return series", len(in.Symbols), len(in.Returns))
	}
	if len(in.Symbols) < 2 {
		return nil, numeric.Insufficient(op, "need at least 2 assets with price history, got %d", len(in.Symbols))
	}
	obs := len(in.Returns[0])
	for i, r := range in.Returns {
		if len(r) != obs {
			return nil, numeric.Invalid(op, "return series for %s has %d points, expected %d", in.Symbols[i], len(r), obs)
		}
	}
	if obs < MinOptimizationObservations {
		return nil, numeric.Insufficient(op, "need at least %d return observations, got %d", MinOptimizationObservations, obs)
	}

	cov, err := po.backend.CovarianceMatrix(in.Returns)
	if err != nil {
		return nil, err
	}
	mu := make([]float64, len(in.Returns))
	for i, r := range in.Returns {
		mu[i] = numeric.Mean(r) * numeric.TradingDays
		for j := range cov[i] {
			cov[i][j] *= numeric.TradingDays
		}
	}
	return &estimates{symbols: in.Symbols, mu: mu, cov: cov, n: obs}, nil
}

func checkConstraints(op string, c OptimizationConstraints, assets int) error {
	lo, hi := c.MinWeight.Float(), c.MaxWeight.Float()
	if hi == 0 {
		hi = 1
	}
	switch {
	case lo < 0 || hi < 0 || lo > 1 || hi > 1:
		return numeric.Invalid(op, "weight bounds must be between 0%% and 100%%")
	case lo > hi:
		return numeric.Invalid(op, "min weight exceeds max weight")
	case hi*float64(assets) < 1-1e-9:
		return numeric.Invalid(op, "max weight %.2f%% cannot allocate %d assets", hi*100, assets)
	case lo*float64(assets) > 1+1e-9:
		return numeric.Invalid(op, "min weight %.2f%% over-allocates %d assets", lo*100, assets)
	case c.TransactionCost < 0:
		return numeric.Invalid(op, "transaction cost cannot be negative")
	}
	return nil
}

// OptimizeReturns finds target weights for the given strategy
func (po *PortfolioOptimizer) OptimizeReturns(ctx context.Context, in OptimizationInput, strategy OptimizationStrategy, c OptimizationConstraints) (*OptimizationResult, error) {
	const op = "optimize"
	start := time.Now()

	if !ValidStrategy(strategy) {
		return nil, numeric.Invalid(op, "unknown optimization strategy: %s", strategy)
	}
	est, err := po.estimate(op, in)
	if err != nil {
		if numeric.IsFatal(err) {
			return nil, err
		}
		return &OptimizationResult{
			Strategy:           strategy,
			TargetWeights:      map[string]numeric.Percent{},
			RiskContributions:  map[string]numeric.Percent{},
			RebalancingActions: []OptimizationTrade{},
			Recommendation:     "Insufficient data for optimization",
		}, err
	}
	if err := checkConstraints(op, c, len(est.symbols)); err != nil {
		return nil, err
	}
	if c.TargetReturn != nil {
		lo, hi := minMax(est.mu)
		if *c.TargetReturn < lo || *c.TargetReturn > hi {
			return nil, numeric.Invalid(op, "target return %.4f is outside the attainable range [%.4f, %.4f]", *c.TargetReturn, lo, hi)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		w          []float64
		iterations int
		converged  = true
	)
	switch strategy {
	case StrategyEqualWeight:
		w = equalWeights(len(est.symbols))
	case StrategyRiskParity:
		w, iterations = riskParity(est.cov)
	case StrategyMinVariance:
		w, iterations, converged = solve(est, c, func(w []float64) float64 {
			return quadForm(w, est.cov)
		})
	case StrategyMaxSharpe:
		w, iterations, converged = solve(est, c, func(w []float64) float64 {
			return -(numeric.Dot(w, est.mu) - po.riskFreeRate) / math.Sqrt(quadForm(w, est.cov)+1e-10)
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ret, vol := numeric.Dot(w, est.mu), math.Sqrt(quadForm(w, est.cov))
	result := &OptimizationResult{
		Strategy:           strategy,
		TargetWeights:      weightMap(est.symbols, w),
		RiskContributions:  weightMap(est.symbols, riskContributions(w, est.cov)),
		ExpectedReturn:     numeric.Percent(ret),
		ExpectedVolatility: numeric.Percent(vol),
		ExpectedSharpe:     numeric.Round(po.sharpe(ret, vol), 4),
		Observations:       est.n,
		Converged:          converged,
		Iterations:         iterations,
		RebalancingActions: []OptimizationTrade{},
	}
	result.Recommendation = strategyRecommendation(strategy)
	result.ComputeTimeMs = float64(time.Since(start).Microseconds()) / 1000
	return result, nil
}

// Optimize runs OptimizeReturns over the holdings' price histories and
// derives the trades that move the current weights to the target
func (po *PortfolioOptimizer) Optimize(ctx context.Context, holdings []models.Position, strategy OptimizationStrategy, c OptimizationConstraints) (*OptimizationResult, error) {
	if err := (models.PortfolioSnapshot{Positions: holdings}).ValidateHistory(); err != nil {
		return nil, err
	}
	result, err := po.OptimizeReturns(ctx, ReturnsFromPositions(holdings), strategy, c)
	if err != nil {
		return result, err
	}

	values, total := symbolValues(holdings)
	if total.IsPositive() {
		result.CurrentWeights = make(map[string]numeric.Percent, len(values))
		for symbol, v := range values {
			f, _ := v.Div(total).Float64()
			result.CurrentWeights[symbol] = numeric.Percent(f)
		}
		result.RebalancingActions = optimizationTrades(holdings, total, result.TargetWeights)
	}
	result.TotalTurnover = numeric.Percent(turnover(result.CurrentWeights, result.TargetWeights))
	result.EstimatedCosts = numeric.Percent(result.TotalTurnover.Float() * c.TransactionCost.Float())
	result.Recommendation = recommendation(strategy, result.TotalTurnover.Float(), result.ExpectedSharpe)
	return result, nil
}

// EfficientFrontier returns minimum-variance portfolios for evenly spaced
// target returns between the lowest and highest asset return
func (po *PortfolioOptimizer) EfficientFrontier(ctx context.Context, in OptimizationInput, points int, c OptimizationConstraints) ([]EfficientPoint, error) {
	const op = "efficient_frontier"
	if points == 0 {
		points = DefaultFrontierPoints
	}
	if points < 2 || points > MaxFrontierPoints {
		return nil, numeric.Invalid(op, "points must be between 2 and %d, got %d", MaxFrontierPoints, points)
	}
	est, err := po.estimate(op, in)
	if err != nil {
		if numeric.IsFatal(err) {
			return nil, err
		}
		return []EfficientPoint{}, err
	}
	if err := checkConstraints(op, c, len(est.symbols)); err != nil {
		return nil, err
	}

	lo, hi := minMax(est.mu)
	frontier := make([]EfficientPoint, 0, points)
	for i := 0; i < points; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := lo + (hi-lo)*float64(i)/float64(points-1)
		bounded := c
		bounded.TargetReturn = &target

		w, _, _ := solve(est, bounded, func(w []float64) float64 {
			return quadForm(w, est.cov)
		})
		ret, vol := numeric.Dot(w, est.mu), math.Sqrt(quadForm(w, est.cov))
		frontier = append(frontier, EfficientPoint{
			ExpectedReturn: numeric.Percent(ret),
			Volatility:     numeric.Percent(vol),
			SharpeRatio:    numeric.Round(po.sharpe(ret, vol), 4),
			Weights:        weightMap(est.symbols, w),
		})
	}
	return frontier, nil
}

func (po *PortfolioOptimizer) sharpe(ret, vol float64) float64 {
	if vol <= 0 {
		return 0
	}
	return (ret - po.riskFreeRate) / vol
}

// solve minimizes objective over the simplex. Weights are a softmax of the
// free variables, so they stay positive and sum to one; bounds and the
// target return enter as quadratic penalties.
func solve(est *estimates, c OptimizationConstraints, objective func(w []float64) float64) ([]float64, int, bool) {
	n := len(est.mu)
	lo, hi := c.MinWeight.Float(), c.MaxWeight.Float()
	if hi == 0 {
		hi = 1
	}

	problem := optimize.Problem{
		Func: func(z []float64) float64 {
			w := softmax(z)
			penalty := 0.0
			for _, wi := range w {
				if wi > hi {
					penalty += (wi - hi) * (wi - hi)
				}
				if wi < lo {
					penalty += (lo - wi) * (lo - wi)
				}
			}
			if c.TargetReturn != nil {
				d := numeric.Dot(w, est.mu) - *c.TargetReturn
				penalty += d * d
			}
			return objective(w) + constraintPenalty*penalty
		},
	}
	settings := &optimize.Settings{
		MajorIterations: solverIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Iterations: 200,
		},
	}

	res, err := optimize.Minimize(problem, make([]float64, n), settings, &optimize.NelderMead{})
	if res == nil {
		return equalWeights(n), 0, false
	}
	return softmax(res.X), res.Stats.MajorIterations, err == nil
}

// riskParity scales inverse-volatility weights until every asset contributes
// the same share of portfolio variance
func riskParity(cov [][]float64) ([]float64, int) {
	n := len(cov)
	w := make([]float64, n)
	for i := range w {
		sd := math.Sqrt(cov[i][i])
		if sd <= 0 {
			sd = 1e-10
		}
		w[i] = 1 / sd
	}
	normalize(w)

	iterations := 0
	for iterations < riskParityIterations {
		iterations++
		prev := append([]float64(nil), w...)
		marginal := matVec(cov, w)
		for i := range w {
			w[i] = w[i] * (1 / float64(n)) / (w[i]*marginal[i] + 1e-10)
		}
		normalize(w)

		change := 0.0
		for i := range w {
			change = math.Max(change, math.Abs(w[i]-prev[i]))
		}
		if change < riskParityTolerance {
			break
		}
	}
	return w, iterations
}

// riskContributions returns each asset's share of portfolio variance
func riskContributions(w []float64, cov [][]float64) []float64 {
	total := quadForm(w, cov)
	out := make([]float64, len(w))
	if total <= 0 {
		return out
	}
	marginal := matVec(cov, w)
	for i := range w {
		out[i] = w[i] * marginal[i] / total
	}
	return out
}

func symbolValues(holdings []models.Position) (map[string]decimal.Decimal, decimal.Decimal) {
	values := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, h := range holdings {
		v := h.Value()
		if !v.IsPositive() {
			continue
		}
		values[h.Symbol] = values[h.Symbol].Add(v)
		total = total.Add(v)
	}
	return values, total
}

func optimizationTrades(holdings []models.Position, total decimal.Decimal, targets map[string]numeric.Percent) []OptimizationTrade {
	bySymbol := make(map[string]models.Position, len(holdings))
	for _, h := range holdings {
		if existing, ok := bySymbol[h.Symbol]; ok {
			existing.Quantity = existing.Quantity.Add(h.Quantity)
			bySymbol[h.Symbol] = existing
			continue
		}
		bySymbol[h.Symbol] = h
	}

	trades := make([]OptimizationTrade, 0, len(targets))
	for symbol, weight := range targets {
		h, ok := bySymbol[symbol]
		if !ok {
			continue
		}
		currentValue := h.Quantity.Mul(h.CurrentPrice)
		targetValue := numeric.RoundDecimal(decimal.NewFromFloat(weight.Float()).Mul(total), 2)
		delta := targetValue.Sub(currentValue)

		action := ActionHold
		if delta.IsPositive() {
			action = ActionBuy
		} else if delta.IsNegative() {
			action = ActionSell
		}

		var targetQty, deltaQty decimal.Decimal
		if !h.CurrentPrice.IsZero() {
			targetQty = targetValue.DivRound(h.CurrentPrice, 6)
			deltaQty = targetQty.Sub(h.Quantity)
		}

		trades = append(trades, OptimizationTrade{
			Symbol:       symbol,
			Action:       action,
			CurrentQty:   h.Quantity,
			TargetQty:    targetQty,
			DeltaQty:     deltaQty,
			CurrentValue: currentValue,
			TargetValue:  targetValue,
			DeltaValue:   delta,
			Priority:     actionPriority(delta, currentValue),
		})
	}

	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Priority != trades[j].Priority {
			return trades[i].Priority > trades[j].Priority
		}
		return trades[i].Symbol < trades[j].Symbol
	})
	return trades
}

// actionPriority is the trade size as a whole percentage of the current value
func actionPriority(delta, current decimal.Decimal) int {
	if current.IsZero() {
		return 0
	}
	f, _ := delta.Abs().Div(current).Float64()
	return int(f * 100)
}

// turnover is half the sum of absolute weight changes
func turnover(current, target map[string]numeric.Percent) float64 {
	sum := 0.0
	for symbol, c := range current {
		sum += math.Abs(target[symbol].Float() - c.Float())
	}
	for symbol, t := range target {
		if _, ok := current[symbol]; !ok {
			sum += t.Float()
		}
	}
	return sum / 2
}

func recommendation(strategy OptimizationStrategy, turnover, sharpe float64) string {
	if turnover < 0.05 {
		return "Portfolio is well-balanced. Minor adjustments recommended."
	}
	if turnover > 0.3 {
		if sharpe > 1.0 {
			return "Significant rebalancing required. High expected Sharpe ratio justifies the rebalancing costs."
		}
		return "Significant rebalancing required. Consider the transaction costs before implementing all changes."
	}
	return strategyRecommendation(strategy)
}

func strategyRecommendation(strategy OptimizationStrategy) string {
	switch strategy {
	case StrategyMaxSharpe:
		return "Rebalancing to maximize risk-adjusted returns. Monitor implementation costs."
	case StrategyMinVariance:
		return "Conservative rebalancing to reduce portfolio risk."
	case StrategyRiskParity:
		return "Risk parity allocation to balance risk contributions across holdings."
	default:
		return "Portfolio optimization completed. Review suggested changes carefully."
	}
}

func weightMap(symbols []string, w []float64) map[string]numeric.Percent {
	out := make(map[string]numeric.Percent, len(symbols))
	for i, s := range symbols {
		out[s] = numeric.Percent(w[i])
	}
	return out
}

func softmax(z []float64) []float64 {
	hi := math.Inf(-1)
	for _, v := range z {
		hi = math.Max(hi, v)
	}
	w := make([]float64, len(z))
	for i, v := range z {
		w[i] = math.Exp(v - hi)
	}
	normalize(w)
	return w
}

func normalize(w []float64) {
	sum := numeric.Sum(w)
	if sum == 0 {
		copy(w, equalWeights(len(w)))
		return
	}
	for i := range w {
		w[i] /= sum
	}
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

func matVec(m [][]float64, v []float64) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		out[i] = numeric.Dot(row, v)
	}
	return out
}

func quadForm(w []float64, m [][]float64) float64 {
	return numeric.Dot(w, matVec(m, w))
}

func minMax(x []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
