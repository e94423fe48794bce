package calculator

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

const (
	MethodParametric = "parametric"
	MethodHistorical = "historical"
	MethodMonteCarlo = "monte_carlo"

	DefaultConfidence   = 0.95
	DefaultTimeHorizon  = 1
	DefaultLookbackDays = numeric.TradingDays
	DefaultSimulations  = 10000
	DefaultSeed         = 42

	baseVolatility      = 0.02
	fallbackESMultiple  = 1.3
	cancelCheckInterval = 1000
	maxJitterAttempts   = 4
)

// RNGFactory returns the random source for one Monte Carlo run
type RNGFactory func() *rand.Rand

// SeededRNG returns a fresh source seeded with DefaultSeed on every call
func SeededRNG() *rand.Rand {
	return rand.New(rand.NewSource(DefaultSeed))
}

type VaRRequest struct {
	Method          string  `json:"method" form:"method"`
	ConfidenceLevel float64 `json:"confidence_level" form:"confidence_level"`
	TimeHorizon     int     `json:"time_horizon" form:"time_horizon"`
	LookbackDays    int     `json:"lookback_days" form:"lookback_days"`
}

type VaRReport struct {
	PortfolioID         string          `json:"portfolio_id" bson:"portfolio_id"`
	PortfolioName       string          `json:"portfolio_name" bson:"portfolio_name"`
	Method              string          `json:"method" bson:"method"`
	ConfidenceLevel     numeric.Percent `json:"confidence_level" bson:"confidence_level"`
	TimeHorizon         int             `json:"time_horizon" bson:"time_horizon"`
	VaRAmount           float64         `json:"var_amount" bson:"var_amount"`
	VaRPercentage       numeric.Percent `json:"var_percentage" bson:"var_percentage"`
	ExpectedShortfall   float64         `json:"expected_shortfall" bson:"expected_shortfall"`
	PortfolioValue      float64         `json:"portfolio_value" bson:"portfolio_value"`
	PortfolioVolatility *float64        `json:"portfolio_volatility" bson:"portfolio_volatility,omitempty"`
	ZScore              *float64        `json:"z_score" bson:"z_score,omitempty"`
	HistoricalScenarios int             `json:"historical_scenarios,omitempty" bson:"historical_scenarios,omitempty"`
	NumSimulations      int             `json:"num_simulations,omitempty" bson:"num_simulations,omitempty"`
	SeedDeterministic   bool            `json:"seed_deterministic,omitempty" bson:"seed_deterministic,omitempty"`
	Fallback            bool            `json:"fallback" bson:"fallback"`
	Degraded            bool            `json:"degraded" bson:"degraded"`
	Backend             string          `json:"backend" bson:"backend"`
	CalculationTimeMs   int64           `json:"calculation_time_ms" bson:"calculation_time_ms"`
	CalculatedAt        time.Time       `json:"calculated_at" bson:"calculated_at"`
}

// VaRCalculator computes parametric, historical and Monte Carlo value at risk
// for a portfolio snapshot. It keeps no state between calls.
type VaRCalculator struct {
	backend     numeric.Backend
	rng         RNGFactory
	seeded      bool
	simulations int
	logger      *logrus.Logger
}

type VaROption func(*VaRCalculator)

// WithRand makes every Monte Carlo run draw from r. The source is shared, so
// concurrent calls must not use this option.
func WithRand(r *rand.Rand) VaROption {
	return func(c *VaRCalculator) {
		c.rng = func() *rand.Rand { return r }
		c.seeded = false
	}
}

func WithRNGFactory(f RNGFactory) VaROption {
	return func(c *VaRCalculator) {
		c.rng = f
		c.seeded = false
	}
}

func WithSimulations(n int) VaROption {
	return func(c *VaRCalculator) {
		if n > 0 {
			c.simulations = n
		}
	}
}

func WithLogger(l *logrus.Logger) VaROption {
	return func(c *VaRCalculator) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewVaRCalculator(backend numeric.Backend, opts ...VaROption) *VaRCalculator {
	if backend == nil {
		backend = numeric.NewFullStatsBackend()
	}
	c := &VaRCalculator{
		backend:     backend,
		rng:         SeededRNG,
		seeded:      true,
		simulations: DefaultSimulations,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the numeric backend in use
func (c *VaRCalculator) Backend() numeric.Backend {
	return c.backend
}

// varEstimate is the method-specific part of a report
type varEstimate struct {
	varPct     float64
	varAmount  float64
	shortfall  float64
	volatility *float64
	zScore     *float64
	scenarios  int
	sims       int
	fallback   bool
}

// CalculateVaR dispatches to the requested method. Zero-valued request fields
// take their defaults.
func (c *VaRCalculator) CalculateVaR(ctx context.Context, portfolio models.PortfolioSnapshot, req VaRRequest) (*VaRReport, error) {
	const op = "calculate_var"
	start := time.Now()

	req, conf, err := normalizeVaRRequest(req)
	if err != nil {
		return nil, err
	}
	if err := portfolio.ValidateHistory(); err != nil {
		return nil, err
	}

	value := portfolio.TotalValueFloat()
	if value <= 0 {
		value = 1
	}

	log := c.logger.WithFields(logrus.Fields{
		"component":    "var_calculator",
		"portfolio_id": portfolio.PortfolioID,
		"method":       req.Method,
	})

	var est *varEstimate
	if !portfolio.HasHistory() || c.backend.Degraded() {
		est, err = c.fallbackVaR(value, conf)
	} else {
		weights := positionWeights(portfolio.Positions, value)
		matrix := returnsMatrix(portfolio.Positions, req.LookbackDays)

		switch req.Method {
		case MethodParametric:
			est, err = c.parametricVaR(weights, matrix, value, conf, req.TimeHorizon)
		case MethodHistorical:
			est, err = c.historicalVaR(weights, matrix, value, conf, req.TimeHorizon)
		case MethodMonteCarlo:
			est, err = c.monteCarloVaR(ctx, weights, matrix, value, conf, req.TimeHorizon)
		}
		// too little history for a covariance estimate takes the same floor
		if errors.Is(err, numeric.ErrUnsupported) || errors.Is(err, numeric.ErrInsufficientData) {
			est, err = c.fallbackVaR(value, conf)
		}
	}
	if err != nil {
		return nil, err
	}

	if est.fallback {
		log.WithField("backend", c.backend.Name()).Warn("VaR estimated from fixed base volatility")
	}

	report := &VaRReport{
		PortfolioID:         portfolio.PortfolioID,
		PortfolioName:       portfolio.PortfolioName,
		Method:              req.Method,
		ConfidenceLevel:     numeric.Percent(conf),
		TimeHorizon:         req.TimeHorizon,
		VaRAmount:           numeric.Round(est.varAmount, 2),
		VaRPercentage:       numeric.Percent(est.varPct),
		ExpectedShortfall:   numeric.Round(est.shortfall, 2),
		PortfolioValue:      numeric.Round(value, 2),
		PortfolioVolatility: est.volatility,
		ZScore:              est.zScore,
		HistoricalScenarios: est.scenarios,
		NumSimulations:      est.sims,
		SeedDeterministic:   est.sims > 0 && c.seeded,
		Fallback:            est.fallback,
		Degraded:            c.backend.Degraded(),
		Backend:             c.backend.Name(),
		CalculationTimeMs:   time.Since(start).Milliseconds(),
		CalculatedAt:        time.Now().UTC(),
	}

	log.WithField("duration_ms", report.CalculationTimeMs).Debugf("%s completed", op)
	return report, nil
}

func normalizeVaRRequest(req VaRRequest) (VaRRequest, float64, error) {
	const op = "calculate_var"

	if req.Method == "" {
		req.Method = MethodParametric
	}
	switch req.Method {
	case MethodParametric, MethodHistorical, MethodMonteCarlo:
	default:
		return req, 0, numeric.Invalid(op, "unknown VaR method: %s", req.Method)
	}

	if req.ConfidenceLevel == 0 {
		req.ConfidenceLevel = DefaultConfidence
	}
	conf, err := numeric.NormalizeConfidence(req.ConfidenceLevel)
	if err != nil {
		return req, 0, err
	}

	if req.TimeHorizon == 0 {
		req.TimeHorizon = DefaultTimeHorizon
	}
	if req.TimeHorizon < 1 {
		return req, 0, numeric.Invalid(op, "time horizon must be at least 1, got %d", req.TimeHorizon)
	}

	if req.LookbackDays == 0 {
		req.LookbackDays = DefaultLookbackDays
	}
	if req.LookbackDays < 2 {
		return req, 0, numeric.Invalid(op, "lookback must be at least 2 days, got %d", req.LookbackDays)
	}
	return req, conf, nil
}

func (c *VaRCalculator) fallbackVaR(value, conf float64) (*varEstimate, error) {
	z, err := c.backend.NormalQuantile(conf)
	if err != nil {
		return nil, err
	}
	varPct := z * baseVolatility
	amount := value * varPct
	vol := baseVolatility
	return &varEstimate{
		varPct:     varPct,
		varAmount:  amount,
		shortfall:  amount * fallbackESMultiple,
		volatility: &vol,
		zScore:     &z,
		fallback:   true,
	}, nil
}

func (c *VaRCalculator) parametricVaR(weights []float64, matrix [][]float64, value, conf float64, horizon int) (*varEstimate, error) {
	cov, err := c.backend.CovarianceMatrix(matrix)
	if err != nil {
		return nil, err
	}

	variance := quadraticForm(weights, cov)
	if variance < 0 {
		variance = 0
	}
	sigma := math.Sqrt(variance)

	z, err := c.backend.NormalQuantile(conf)
	if err != nil {
		return nil, err
	}

	varPct := z * sigma * math.Sqrt(float64(horizon))
	amount := value * varPct

	// a backend without a density takes the fallback floor in CalculateVaR
	pdf, err := c.backend.NormalPDF(z)
	if err != nil {
		return nil, err
	}
	shortfall := amount * pdf / (1 - conf)

	return &varEstimate{
		varPct:     varPct,
		varAmount:  amount,
		shortfall:  shortfall,
		volatility: &sigma,
		zScore:     &z,
	}, nil
}

func (c *VaRCalculator) historicalVaR(weights []float64, matrix [][]float64, value, conf float64, horizon int) (*varEstimate, error) {
	portfolioReturns := weightedReturns(weights, matrix)
	if horizon > 1 {
		if agg := numeric.RollingSum(portfolioReturns, horizon); len(agg) > 0 {
			portfolioReturns = agg
		}
	}

	est := tailEstimate(portfolioReturns, value, conf)
	est.scenarios = len(portfolioReturns)
	return est, nil
}

func (c *VaRCalculator) monteCarloVaR(ctx context.Context, weights []float64, matrix [][]float64, value, conf float64, horizon int) (*varEstimate, error) {
	cov, err := c.backend.CovarianceMatrix(matrix)
	if err != nil {
		return nil, err
	}
	chol, err := c.choleskyWithJitter(cov)
	if err != nil {
		return nil, err
	}

	k := len(matrix)
	mu := make([]float64, k)
	for i, row := range matrix {
		mu[i] = numeric.Mean(row)
	}

	rng := c.rng()
	draws := make([]float64, k)
	pathSum := make([]float64, k)
	sims := make([]float64, c.simulations)

	for s := 0; s < c.simulations; s++ {
		if s%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for i := range pathSum {
			pathSum[i] = 0
		}
		for h := 0; h < horizon; h++ {
			for i := range draws {
				draws[i] = rng.NormFloat64()
			}
			for i := 0; i < k; i++ {
				x := mu[i]
				for j := 0; j <= i; j++ {
					x += chol[i][j] * draws[j]
				}
				pathSum[i] += x
			}
		}
		sims[s] = numeric.Dot(pathSum, weights)
	}

	est := tailEstimate(sims, value, conf)
	est.sims = c.simulations
	return est, nil
}

// choleskyWithJitter adds a growing diagonal term until the covariance
// factorizes. Positions without history make the matrix singular.
func (c *VaRCalculator) choleskyWithJitter(cov [][]float64) ([][]float64, error) {
	chol, err := c.backend.Cholesky(cov)
	if err == nil || errors.Is(err, numeric.ErrUnsupported) {
		return chol, err
	}

	scale := 0.0
	for i := range cov {
		scale = math.Max(scale, math.Abs(cov[i][i]))
	}
	if scale == 0 {
		scale = 1
	}

	jitter := scale * 1e-10
	for attempt := 0; attempt < maxJitterAttempts; attempt++ {
		adjusted := make([][]float64, len(cov))
		for i := range cov {
			adjusted[i] = append([]float64(nil), cov[i]...)
			adjusted[i][i] += jitter
		}
		if chol, err = c.backend.Cholesky(adjusted); err == nil {
			c.logger.WithField("jitter", jitter).Debug("covariance regularized for Cholesky")
			return chol, nil
		}
		jitter *= 100
	}
	return nil, err
}

// tailEstimate reads VaR and expected shortfall off the lower tail of simulated
// or historical portfolio returns
func tailEstimate(returns []float64, value, conf float64) *varEstimate {
	q := numeric.Percentile(returns, 1-conf)
	tail := numeric.TailMean(returns, q)
	return &varEstimate{
		varPct:    math.Abs(q),
		varAmount: value * math.Abs(q),
		shortfall: value * math.Abs(tail),
	}
}

func positionWeights(positions []models.Position, total float64) []float64 {
	w := make([]float64, len(positions))
	for i, p := range positions {
		w[i] = numeric.SafeDivide(p.ValueFloat(), total)
	}
	return w
}

// returnsMatrix builds one row of simple returns per position from the last
// lookback closes. Positions without enough history contribute zeros and
// shorter rows are padded at the front.
func returnsMatrix(positions []models.Position, lookback int) [][]float64 {
	rows := make([][]float64, len(positions))
	maxLen := 0
	for i, p := range positions {
		closes := p.Closes()
		if len(closes) > lookback {
			closes = closes[len(closes)-lookback:]
		}
		if len(closes) < 2 {
			continue
		}
		rows[i] = numeric.SimpleReturns(closes)
		maxLen = max(maxLen, len(rows[i]))
	}

	for i, r := range rows {
		if len(r) == maxLen {
			continue
		}
		padded := make([]float64, maxLen)
		copy(padded[maxLen-len(r):], r)
		rows[i] = padded
	}
	return rows
}

// weightedReturns is Rᵀw, one portfolio return per period
func weightedReturns(weights []float64, matrix [][]float64) []float64 {
	if len(matrix) == 0 {
		return nil
	}
	out := make([]float64, len(matrix[0]))
	for i, row := range matrix {
		for t, r := range row {
			out[t] += weights[i] * r
		}
	}
	return out
}

func quadraticForm(w []float64, m [][]float64) float64 {
	s := 0.0
	for i := range w {
		for j := range w {
			s += w[i] * m[i][j] * w[j]
		}
	}
	return s
}
