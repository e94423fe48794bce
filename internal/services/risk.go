package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/calculator"
	"github.com/Fuuurma/FinanceHub-sub001/internal/messaging"
	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
	"github.com/Fuuurma/FinanceHub-sub001/pkg/cache"
)

// FullAnalyticsReport is the portfolio analytics view plus a parametric VaR
type FullAnalyticsReport struct {
	*analytics.PortfolioAnalytics
	VaR *calculator.VaRReport `json:"var,omitempty"`
}

// withDefaults fills zero request fields from the configuration
func (s *AnalyticsService) withDefaults(req calculator.VaRRequest) calculator.VaRRequest {
	if req.Method == "" {
		req.Method = calculator.MethodParametric
	}
	if req.ConfidenceLevel == 0 {
		req.ConfidenceLevel = s.cfg.VaRConfidence
	}
	if req.TimeHorizon == 0 {
		req.TimeHorizon = s.cfg.VaRTimeHorizon
	}
	if req.LookbackDays == 0 {
		req.LookbackDays = s.cfg.VaRLookbackDays
	}
	return req
}

// CalculateVaR computes VaR over the given positions, or over the latest
// stored snapshot when none are given. Reports on stored snapshots are
// cached, persisted and announced.
func (s *AnalyticsService) CalculateVaR(ctx context.Context, portfolioID string, positions []models.Position, req calculator.VaRRequest) (*calculator.VaRReport, error) {
	req = s.withDefaults(req)

	snapshot, stored, err := s.resolveSnapshot(ctx, portfolioID, positions)
	if err != nil {
		return nil, wrapLookup("snapshot", err)
	}

	var key string
	if stored {
		conf, err := numeric.NormalizeConfidence(req.ConfidenceLevel)
		if err != nil {
			return nil, err
		}
		key = cache.VaRKey(portfolioID, req.Method, conf, req.TimeHorizon, req.LookbackDays)

		var cached calculator.VaRReport
		if s.cacheGet(ctx, "var", key, &cached) {
			return &cached, nil
		}
	}

	var report *calculator.VaRReport
	err = s.run(ctx, "var", func(ctx context.Context) (err error) {
		report, err = s.calc.VaR.CalculateVaR(ctx, snapshot, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	if report.Fallback {
		s.metrics.RecordFallback("var")
	}

	if stored {
		s.storeVaR(ctx, key, report)
	}
	return report, nil
}

// storeVaR persists, caches and announces a report. Failures are logged only.
func (s *AnalyticsService) storeVaR(ctx context.Context, key string, report *calculator.VaRReport) {
	log := s.logger.WithField("portfolio_id", report.PortfolioID)

	if s.repos.VaRReports != nil {
		if err := s.repos.VaRReports.Create(ctx, report); err != nil {
			log.WithError(err).Warn("Failed to persist VaR report")
		}
	}
	s.cacheSet(ctx, key, report)

	_, err := s.publisher.PublishVaRComputed(ctx, report)
	s.metrics.RecordEventPublished(messaging.RoutingVaRComputed, err)
	if err != nil {
		log.WithError(err).Warn("Failed to publish VaR event")
	}
}

// VaRHistory returns the stored reports of a portfolio, newest first
func (s *AnalyticsService) VaRHistory(ctx context.Context, portfolioID string, limit int) ([]calculator.VaRReport, error) {
	if err := requirePortfolioID("var_history", portfolioID); err != nil {
		return nil, err
	}
	if s.repos.VaRReports == nil {
		return []calculator.VaRReport{}, nil
	}
	reports, err := s.repos.VaRReports.GetHistory(ctx, portfolioID, limit)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []calculator.VaRReport{}
	}
	return reports, nil
}

func (s *AnalyticsService) RunHistoricalStress(ctx context.Context, portfolioID string, positions []models.Position, scenarioKey string) (*calculator.StressTestReport, error) {
	snapshot, _, err := s.resolveSnapshot(ctx, portfolioID, positions)
	if err != nil {
		return nil, wrapLookup("snapshot", err)
	}

	var out *calculator.StressTestReport
	err = s.run(ctx, "stress_historical", func(context.Context) (err error) {
		out, err = s.calc.Stress.RunHistoricalStressTest(snapshot, scenarioKey)
		return err
	})
	return out, err
}

func (s *AnalyticsService) RunCustomStress(ctx context.Context, portfolioID string, positions []models.Position, marketShock float64, sectorShocks map[string]float64) (*calculator.StressTestReport, error) {
	snapshot, _, err := s.resolveSnapshot(ctx, portfolioID, positions)
	if err != nil {
		return nil, wrapLookup("snapshot", err)
	}

	var out *calculator.StressTestReport
	err = s.run(ctx, "stress_custom", func(context.Context) (err error) {
		out, err = s.calc.Stress.RunCustomStressTest(snapshot, marketShock, sectorShocks)
		return err
	})
	return out, err
}

func (s *AnalyticsService) Scenarios() []calculator.ScenarioSummary {
	return s.calc.Stress.AvailableScenarios()
}

// FullAnalytics combines the portfolio analyzer with a parametric VaR. An
// InsufficientData VaR only drops the var section.
func (s *AnalyticsService) FullAnalytics(ctx context.Context, portfolioID string, positions []models.Position) (*FullAnalyticsReport, error) {
	snapshot, stored, err := s.resolveSnapshot(ctx, portfolioID, positions)
	if err != nil {
		return nil, wrapLookup("snapshot", err)
	}

	key := cache.AnalyticsKey(portfolioID)
	if stored {
		var cached FullAnalyticsReport
		if s.cacheGet(ctx, "analytics", key, &cached) && cached.PortfolioAnalytics != nil {
			return &cached, nil
		}
	}

	report := &FullAnalyticsReport{}
	err = s.run(ctx, "full_analytics", func(ctx context.Context) error {
		pa, err := s.calc.Portfolio.FullAnalytics(ctx, snapshot)
		if err != nil {
			return err
		}
		report.PortfolioAnalytics = pa

		if len(snapshot.Positions) == 0 {
			return nil
		}
		v, err := s.calc.VaR.CalculateVaR(ctx, snapshot, s.withDefaults(calculator.VaRRequest{Method: calculator.MethodParametric}))
		switch {
		case err == nil:
			report.VaR = v
		case numeric.IsFatal(err):
			return fmt.Errorf("parametric var failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if stored {
		s.cacheSet(ctx, key, report)
	}
	return report, nil
}

// RefreshVaR recomputes a parametric VaR for every stored portfolio
func (s *AnalyticsService) RefreshVaR(ctx context.Context) error {
	if s.repos.Snapshots == nil {
		return nil
	}

	ids, err := s.repos.Snapshots.ListPortfolioIDs(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		// stale reports must not be served from cache
		s.invalidate(ctx, id)
		if _, err := s.CalculateVaR(ctx, id, nil, calculator.VaRRequest{Method: calculator.MethodParametric}); err != nil {
			if numeric.IsFatal(err) {
				errs = append(errs, fmt.Errorf("portfolio %s: %w", id, err))
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"component":  "analytics_service",
		"portfolios": len(ids),
		"failures":   len(errs),
	}).Info("VaR refresh completed")

	return errors.Join(errs...)
}
