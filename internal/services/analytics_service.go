package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/calculator"
	"github.com/Fuuurma/FinanceHub-sub001/internal/config"
	"github.com/Fuuurma/FinanceHub-sub001/internal/messaging"
	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/monitoring"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
	"github.com/Fuuurma/FinanceHub-sub001/internal/repositories"
	"github.com/Fuuurma/FinanceHub-sub001/internal/timeseries"
)

// Interfaces for testing
type CacheInterface interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidatePortfolio(ctx context.Context, portfolioID string) error
}

// DriftBroadcaster pushes drift alerts to live subscribers
type DriftBroadcaster interface {
	Broadcast(status analytics.DriftStatus)
}

// Calculators bundles the stateless analytics engines over one numeric backend
type Calculators struct {
	Backend     numeric.Backend
	TimeSeries  *timeseries.Models
	VaR         *calculator.VaRCalculator
	Stress      *calculator.StressTester
	Performance *calculator.PerformanceAnalyzer
	Rebalancing *analytics.RebalancingService
	Portfolio   *analytics.PortfolioAnalyzer
	Optimizer   *analytics.PortfolioOptimizer
}

// NewCalculators builds every engine from the analytics configuration and
// merges the optional scenario file over the built-in catalog
func NewCalculators(cfg config.AnalyticsConfig, logger *logrus.Logger) (*Calculators, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	backend, err := numeric.NewBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	var catalogs []map[string]calculator.Scenario
	if cfg.ScenarioFile != "" {
		catalog, err := calculator.LoadScenarioCatalog(cfg.ScenarioFile)
		if err != nil {
			return nil, err
		}
		catalogs = append(catalogs, catalog)
	}

	varOpts := []calculator.VaROption{
		calculator.WithSimulations(cfg.MonteCarloSims),
		calculator.WithLogger(logger),
	}
	if seed := cfg.MonteCarloSeed; seed != 0 && seed != calculator.DefaultSeed {
		varOpts = append(varOpts, calculator.WithRNGFactory(func() *rand.Rand {
			return rand.New(rand.NewSource(seed))
		}))
	}

	return &Calculators{
		Backend:     backend,
		TimeSeries:  timeseries.NewModels(backend),
		VaR:         calculator.NewVaRCalculator(backend, varOpts...),
		Stress:      calculator.NewStressTester(catalogs...),
		Performance: calculator.NewPerformanceAnalyzer(backend, cfg.RiskFreeRate),
		Rebalancing: analytics.NewRebalancingService(numeric.Percent(cfg.RebalanceTolerance), cfg.MaxTrades),
		Portfolio: analytics.NewPortfolioAnalyzer(backend,
			analytics.WithBenchmark(cfg.BenchmarkSymbol),
			analytics.WithAnalyzerLogger(logger),
		),
		Optimizer: analytics.NewPortfolioOptimizer(backend, cfg.RiskFreeRate),
	}, nil
}

// Repositories groups the persistence ports of the service
type Repositories struct {
	Targets    repositories.TargetRepository
	Snapshots  repositories.SnapshotRepository
	Sessions   repositories.SessionRepository
	VaRReports repositories.VaRReportRepository
}

// AnalyticsService runs calculations with timeouts, metrics and caching, and
// resolves stored holdings and targets when a request omits them
type AnalyticsService struct {
	cfg         config.AnalyticsConfig
	calc        *Calculators
	repos       Repositories
	cache       CacheInterface
	reportTTL   time.Duration
	publisher   messaging.EventPublisher
	broadcaster DriftBroadcaster
	metrics     *monitoring.Metrics
	logger      *logrus.Logger
}

func NewAnalyticsService(
	cfg config.AnalyticsConfig,
	calc *Calculators,
	repos Repositories,
	cache CacheInterface,
	reportTTL time.Duration,
	publisher messaging.EventPublisher,
	broadcaster DriftBroadcaster,
	metrics *monitoring.Metrics,
	logger *logrus.Logger,
) *AnalyticsService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if publisher == nil {
		publisher = messaging.NewNoopPublisher(logger)
	}
	return &AnalyticsService{
		cfg:         cfg,
		calc:        calc,
		repos:       repos,
		cache:       cache,
		reportTTL:   reportTTL,
		publisher:   publisher,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
	}
}

// Backend reports the numeric backend in use
func (s *AnalyticsService) Backend() numeric.Backend {
	return s.calc.Backend
}

// run applies the calculation timeout and records the outcome of fn
func (s *AnalyticsService) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.cfg.CalculationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CalculationTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)
	s.metrics.RecordCalculation(op, duration, err)

	log := s.logger.WithFields(logrus.Fields{
		"component":   "analytics_service",
		"method":      op,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case err == nil:
		log.Debug("Calculation completed")
	case numeric.IsFatal(err) && numeric.KindOf(err) != numeric.InvalidParameter:
		log.WithError(err).Error("Calculation failed")
	default:
		log.WithError(err).Info("Calculation rejected")
	}
	return err
}

// --- time series ---

func (s *AnalyticsService) ARIMA(ctx context.Context, data []float64, order timeseries.Order, steps int, confidence float64) (*timeseries.ARIMAResult, error) {
	var out *timeseries.ARIMAResult
	err := s.run(ctx, "arima", func(context.Context) (err error) {
		out, err = s.calc.TimeSeries.ARIMAForecast(data, order, steps, confidence)
		return err
	})
	return out, err
}

func (s *AnalyticsService) GARCH(ctx context.Context, data []float64, params timeseries.GARCHParams, steps int) (*timeseries.GARCHResult, error) {
	var out *timeseries.GARCHResult
	err := s.run(ctx, "garch", func(context.Context) (err error) {
		out, err = s.calc.TimeSeries.GARCH11Forecast(data, params, steps)
		return err
	})
	return out, err
}

func (s *AnalyticsService) Kalman(ctx context.Context, observations [][]float64, cfg timeseries.KalmanConfig) (*timeseries.KalmanResult, error) {
	var out *timeseries.KalmanResult
	err := s.run(ctx, "kalman", func(context.Context) (err error) {
		out, err = s.calc.TimeSeries.KalmanFilter(observations, cfg)
		return err
	})
	return out, err
}

func (s *AnalyticsService) HalfLife(ctx context.Context, data []float64, lookback int) (*timeseries.HalfLifeResult, error) {
	var out *timeseries.HalfLifeResult
	err := s.run(ctx, "half_life", func(context.Context) (err error) {
		out, err = s.calc.TimeSeries.HalfLife(data, lookback)
		return err
	})
	return out, err
}

func (s *AnalyticsService) Hurst(ctx context.Context, data []float64, maxScale int) (*timeseries.HurstResult, error) {
	var out *timeseries.HurstResult
	err := s.run(ctx, "hurst", func(context.Context) (err error) {
		out, err = s.calc.TimeSeries.EstimateHurstExponent(data, maxScale)
		return err
	})
	return out, err
}

// VolatilityRegimes labels each return low, normal or high by its annualized magnitude
func (s *AnalyticsService) VolatilityRegimes(ctx context.Context, returns []float64, thresholds timeseries.RegimeThresholds) (*timeseries.VolatilityRegimeResult, error) {
	var out *timeseries.VolatilityRegimeResult
	err := s.run(ctx, "volatility_regimes", func(context.Context) (err error) {
		out, err = s.calc.TimeSeries.VolatilityRegimes(returns, thresholds)
		return err
	})
	return out, err
}

// --- performance ---

func (s *AnalyticsService) AnalyzeReturns(ctx context.Context, prices []float64, symbol string, benchmark []float64, period string) (*calculator.PerformanceReport, error) {
	var out *calculator.PerformanceReport
	err := s.run(ctx, "returns", func(context.Context) (err error) {
		out, err = s.calc.Performance.AnalyzeReturns(prices, symbol, benchmark, period)
		return err
	})
	return out, err
}

func (s *AnalyticsService) AnalyzeRiskAdjusted(ctx context.Context, returns, benchmark []float64, riskFreeRate *float64) (*calculator.RiskAdjustedReport, error) {
	var out *calculator.RiskAdjustedReport
	err := s.run(ctx, "risk_adjusted", func(context.Context) (err error) {
		out, err = s.calc.Performance.AnalyzeRiskAdjusted(returns, benchmark, riskFreeRate)
		return err
	})
	return out, err
}

func (s *AnalyticsService) AnalyzeFactors(ctx context.Context, returns []float64, factors map[string][]float64) (*calculator.FactorReport, error) {
	var out *calculator.FactorReport
	err := s.run(ctx, "factors", func(context.Context) (err error) {
		out, err = s.calc.Performance.AnalyzeFactorExposures(returns, factors)
		return err
	})
	return out, err
}

// --- stored state ---

// resolveSnapshot returns the given positions as a snapshot, or the latest
// stored snapshot when none are given. stored reports the latter.
func (s *AnalyticsService) resolveSnapshot(ctx context.Context, portfolioID string, positions []models.Position) (snap models.PortfolioSnapshot, stored bool, err error) {
	if len(positions) > 0 || s.repos.Snapshots == nil || portfolioID == "" {
		return models.PortfolioSnapshot{PortfolioID: portfolioID, Positions: positions}, false, nil
	}

	latest, err := s.repos.Snapshots.GetLatest(ctx, portfolioID)
	if err != nil {
		return models.PortfolioSnapshot{}, false, err
	}
	return *latest, true, nil
}

// resolveTargets returns the given targets, or the stored ones when none are given
func (s *AnalyticsService) resolveTargets(ctx context.Context, portfolioID string, targets []models.TargetAllocation) ([]models.TargetAllocation, error) {
	if len(targets) > 0 || s.repos.Targets == nil {
		return targets, nil
	}

	stored, err := s.repos.Targets.GetByPortfolioID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	return stored.Targets, nil
}

func (s *AnalyticsService) cacheGet(ctx context.Context, kind, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit := s.cache.Get(ctx, key, dest) == nil
	s.metrics.RecordCacheLookup(kind, hit)
	return hit
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.reportTTL); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to cache report")
	}
}

func (s *AnalyticsService) invalidate(ctx context.Context, portfolioID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePortfolio(ctx, portfolioID); err != nil {
		s.logger.WithError(err).WithField("portfolio_id", portfolioID).Warn("Failed to invalidate cached reports")
	}
}

// IsNotFound reports whether err comes from a lookup that matched nothing
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}

func requirePortfolioID(op, portfolioID string) error {
	if portfolioID == "" {
		return numeric.Invalid(op, "portfolio id is required")
	}
	return nil
}

func wrapLookup(what string, err error) error {
	return fmt.Errorf("failed to load %s: %w", what, err)
}
