package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/messaging"
	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// targetSumTolerance absorbs rounding in client supplied target sets
var targetSumTolerance = decimal.NewFromFloat(0.0001)

// SetTargets validates and stores the allocation targets of a portfolio.
// Targets may not exceed 100% in total or repeat an asset class.
func (s *AnalyticsService) SetTargets(ctx context.Context, portfolioID string, targets []models.TargetAllocation) (*models.AllocationTargets, error) {
	const op = "set_targets"
	if err := requirePortfolioID(op, portfolioID); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, numeric.Invalid(op, "at least one target is required")
	}

	seen := make(map[string]bool, len(targets))
	sum := decimal.Zero
	normalized := make([]models.TargetAllocation, 0, len(targets))
	for _, t := range targets {
		class := strings.ToLower(strings.TrimSpace(t.AssetClass))
		if class == "" {
			return nil, numeric.Invalid(op, "asset class is required")
		}
		if seen[class] {
			return nil, numeric.Invalid(op, "duplicate target for %s", class)
		}
		if t.TargetPercentage < 0 || t.TargetPercentage > 1 {
			return nil, numeric.Invalid(op, "target for %s must be between 0%% and 100%%", class)
		}
		seen[class] = true
		sum = sum.Add(decimal.NewFromFloat(t.TargetPercentage.Float()))
		t.AssetClass = class
		normalized = append(normalized, t)
	}
	if sum.GreaterThan(decimal.NewFromInt(1).Add(targetSumTolerance)) {
		return nil, numeric.Invalid(op, "targets sum to %s%%, more than 100%%", sum.Mul(decimal.NewFromInt(100)).StringFixed(2))
	}

	doc := &models.AllocationTargets{PortfolioID: portfolioID, Targets: normalized, UpdatedAt: time.Now().UTC()}
	if s.repos.Targets != nil {
		if err := s.repos.Targets.Upsert(ctx, doc); err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx, portfolioID)

	return doc, nil
}

// GetTargets returns the stored targets of a portfolio
func (s *AnalyticsService) GetTargets(ctx context.Context, portfolioID string) (*models.AllocationTargets, error) {
	if err := requirePortfolioID("get_targets", portfolioID); err != nil {
		return nil, err
	}
	if s.repos.Targets == nil {
		return nil, fmt.Errorf("targets for portfolio %s: %w", portfolioID, ErrNoStorage)
	}
	return s.repos.Targets.GetByPortfolioID(ctx, portfolioID)
}

// ErrNoStorage is returned by operations that need a repository the service runs without
var ErrNoStorage = errors.New("storage is not configured")

// holdings resolves the positions used by the rebalancing endpoints
func (s *AnalyticsService) holdings(ctx context.Context, portfolioID string, positions []models.Position) ([]models.Position, error) {
	snapshot, _, err := s.resolveSnapshot(ctx, portfolioID, positions)
	if err != nil {
		return nil, wrapLookup("snapshot", err)
	}
	return snapshot.Positions, nil
}

func (s *AnalyticsService) targets(ctx context.Context, portfolioID string, targets []models.TargetAllocation) ([]models.TargetAllocation, error) {
	resolved, err := s.resolveTargets(ctx, portfolioID, targets)
	if err != nil {
		return nil, wrapLookup("targets", err)
	}
	return resolved, nil
}

func (s *AnalyticsService) CurrentAllocation(ctx context.Context, portfolioID string, positions []models.Position) (map[string]analytics.AllocationEntry, error) {
	holdings, err := s.holdings(ctx, portfolioID, positions)
	if err != nil {
		return nil, err
	}
	return s.calc.Rebalancing.CurrentAllocation(holdings), nil
}

// Drift returns the per-class drift together with the overall status
func (s *AnalyticsService) Drift(ctx context.Context, portfolioID string, positions []models.Position, targets []models.TargetAllocation) ([]analytics.Drift, analytics.DriftStatus, error) {
	holdings, err := s.holdings(ctx, portfolioID, positions)
	if err != nil {
		return nil, analytics.DriftStatus{}, err
	}
	resolved, err := s.targets(ctx, portfolioID, targets)
	if err != nil {
		return nil, analytics.DriftStatus{}, err
	}

	drifts := s.calc.Rebalancing.CalculateDrift(holdings, resolved)
	status := s.calc.Rebalancing.DriftStatus(holdings, resolved)
	status.PortfolioID = portfolioID
	return drifts, status, nil
}

func (s *AnalyticsService) Suggestions(ctx context.Context, portfolioID string, positions []models.Position, targets []models.TargetAllocation, opts analytics.SuggestionOptions) ([]analytics.Suggestion, error) {
	holdings, err := s.holdings(ctx, portfolioID, positions)
	if err != nil {
		return nil, err
	}
	resolved, err := s.targets(ctx, portfolioID, targets)
	if err != nil {
		return nil, err
	}

	var out []analytics.Suggestion
	err = s.run(ctx, "suggestions", func(context.Context) error {
		out = s.calc.Rebalancing.GenerateSuggestions(holdings, resolved, opts)
		return nil
	})
	return out, err
}

func (s *AnalyticsService) WhatIf(ctx context.Context, portfolioID string, positions []models.Position, proposed map[string]numeric.Percent) (analytics.WhatIfResult, error) {
	holdings, err := s.holdings(ctx, portfolioID, positions)
	if err != nil {
		return analytics.WhatIfResult{}, err
	}
	return s.calc.Rebalancing.WhatIf(holdings, proposed), nil
}

func (s *AnalyticsService) TaxLots(ctx context.Context, portfolioID string, positions []models.Position) ([]analytics.TaxLot, error) {
	holdings, err := s.holdings(ctx, portfolioID, positions)
	if err != nil {
		return nil, err
	}
	return s.calc.Rebalancing.TaxLots(holdings, time.Now().UTC()), nil
}

func (s *AnalyticsService) HarvestingOpportunities(ctx context.Context, portfolioID string, positions []models.Position) ([]analytics.HarvestingOpportunity, error) {
	holdings, err := s.holdings(ctx, portfolioID, positions)
	if err != nil {
		return nil, err
	}
	return s.calc.Rebalancing.HarvestingOpportunities(holdings, time.Now().UTC()), nil
}

// CreateSession generates suggestions and stores them as a session awaiting review
func (s *AnalyticsService) CreateSession(ctx context.Context, portfolioID string, positions []models.Position, targets []models.TargetAllocation, opts analytics.SuggestionOptions) (*analytics.RebalancingSession, error) {
	if err := requirePortfolioID("create_session", portfolioID); err != nil {
		return nil, err
	}

	suggestions, err := s.Suggestions(ctx, portfolioID, positions, targets, opts)
	if err != nil {
		return nil, err
	}

	session := analytics.NewSession(portfolioID, suggestions)
	if s.repos.Sessions != nil {
		if err := s.repos.Sessions.Create(ctx, session); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"component":    "analytics_service",
		"portfolio_id": portfolioID,
		"session_id":   session.ID.String(),
		"trades":       session.TotalTrades,
	}).Info("Rebalancing session created")

	return session, nil
}

// ExecuteSession completes a stored session and announces the result
func (s *AnalyticsService) ExecuteSession(ctx context.Context, sessionID string) (*analytics.ExecutionResult, error) {
	const op = "execute_session"

	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, numeric.Invalid(op, "invalid session id %q", sessionID)
	}
	if s.repos.Sessions == nil {
		return nil, fmt.Errorf("session %s: %w", id, ErrNoStorage)
	}

	session, err := s.repos.Sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := analytics.ExecuteSession(session)
	if err != nil {
		return nil, err
	}

	if err := s.repos.Sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	s.invalidate(ctx, session.PortfolioID)

	_, pubErr := s.publisher.PublishSessionExecuted(ctx, session, result)
	s.metrics.RecordEventPublished(messaging.RoutingSessionExecuted, pubErr)
	if pubErr != nil {
		s.logger.WithError(pubErr).WithField("session_id", sessionID).Warn("Failed to publish session event")
	}

	return result, nil
}

// CheckDrift compares the latest stored snapshot of a portfolio with its
// stored targets and raises an alert when it needs rebalancing. A portfolio
// without targets or holdings is InsufficientData.
func (s *AnalyticsService) CheckDrift(ctx context.Context, portfolioID string) (*analytics.DriftStatus, error) {
	const op = "check_drift"
	if err := requirePortfolioID(op, portfolioID); err != nil {
		return nil, err
	}
	if s.repos.Targets == nil || s.repos.Snapshots == nil {
		return nil, numeric.Insufficient(op, "drift monitoring needs stored targets and snapshots")
	}

	targets, err := s.repos.Targets.GetByPortfolioID(ctx, portfolioID)
	if err != nil {
		if IsNotFound(err) {
			return nil, numeric.Insufficient(op, "portfolio %s has no allocation targets", portfolioID)
		}
		return nil, err
	}
	snapshot, err := s.repos.Snapshots.GetLatest(ctx, portfolioID)
	if err != nil {
		if IsNotFound(err) {
			return nil, numeric.Insufficient(op, "portfolio %s has no holdings snapshot", portfolioID)
		}
		return nil, err
	}

	status := s.calc.Rebalancing.DriftStatus(snapshot.Positions, targets.Targets)
	status.PortfolioID = portfolioID

	if status.NeedsRebalancing {
		s.metrics.RecordDriftAlert()
		_, pubErr := s.publisher.PublishDriftAlert(ctx, status)
		s.metrics.RecordEventPublished(messaging.RoutingDriftAlert, pubErr)
		if pubErr != nil {
			s.logger.WithError(pubErr).WithField("portfolio_id", portfolioID).Warn("Failed to publish drift alert")
		}
		if s.broadcaster != nil {
			s.broadcaster.Broadcast(status)
		}
	}

	return &status, nil
}

// CheckAllDrift runs CheckDrift for every portfolio with stored targets
func (s *AnalyticsService) CheckAllDrift(ctx context.Context) (checked, alerts int, err error) {
	if s.repos.Targets == nil {
		return 0, 0, nil
	}

	all, err := s.repos.Targets.List(ctx)
	if err != nil {
		return 0, 0, err
	}

	var failures []string
	for _, t := range all {
		if err := ctx.Err(); err != nil {
			return checked, alerts, err
		}
		status, err := s.CheckDrift(ctx, t.PortfolioID)
		if err != nil {
			if numeric.IsFatal(err) {
				failures = append(failures, fmt.Sprintf("%s: %v", t.PortfolioID, err))
			}
			continue
		}
		checked++
		if status.NeedsRebalancing {
			alerts++
		}
	}

	if len(failures) > 0 {
		return checked, alerts, fmt.Errorf("drift check failed for %d portfolios: %s", len(failures), strings.Join(failures, "; "))
	}
	return checked, alerts, nil
}
