package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

const defaultListLimit = 20

// SaveSnapshot stores the holdings of a portfolio. Later requests that omit
// positions run against the newest snapshot.
func (s *AnalyticsService) SaveSnapshot(ctx context.Context, snapshot *models.PortfolioSnapshot) error {
	const op = "save_snapshot"
	if err := requirePortfolioID(op, snapshot.PortfolioID); err != nil {
		return err
	}
	if len(snapshot.Positions) == 0 {
		return numeric.Invalid(op, "at least one position is required")
	}
	for _, p := range snapshot.Positions {
		if strings.TrimSpace(p.Symbol) == "" {
			return numeric.Invalid(op, "position symbol is required")
		}
		if p.Quantity.IsNegative() || p.CurrentPrice.IsNegative() {
			return numeric.Invalid(op, "position %s has a negative quantity or price", p.Symbol)
		}
	}
	if s.repos.Snapshots == nil {
		return fmt.Errorf("snapshot for portfolio %s: %w", snapshot.PortfolioID, ErrNoStorage)
	}

	if err := s.repos.Snapshots.Create(ctx, snapshot); err != nil {
		return err
	}
	s.invalidate(ctx, snapshot.PortfolioID)
	return nil
}

// Snapshots lists stored snapshots of a portfolio, newest first
func (s *AnalyticsService) Snapshots(ctx context.Context, portfolioID string, limit, offset int) ([]models.PortfolioSnapshot, error) {
	if err := requirePortfolioID("list_snapshots", portfolioID); err != nil {
		return nil, err
	}
	if s.repos.Snapshots == nil {
		return []models.PortfolioSnapshot{}, nil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Snapshots.GetByPortfolioID(ctx, portfolioID, limit, offset)
}

// Sessions lists the rebalancing sessions of a portfolio, newest first
func (s *AnalyticsService) Sessions(ctx context.Context, portfolioID string, limit int) ([]analytics.RebalancingSession, error) {
	if err := requirePortfolioID("list_sessions", portfolioID); err != nil {
		return nil, err
	}
	if s.repos.Sessions == nil {
		return []analytics.RebalancingSession{}, nil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repos.Sessions.ListByPortfolioID(ctx, portfolioID, limit)
}

// PruneSnapshots removes snapshots older than retention
func (s *AnalyticsService) PruneSnapshots(ctx context.Context, retention time.Duration) (int64, error) {
	if s.repos.Snapshots == nil || retention <= 0 {
		return 0, nil
	}

	deleted, err := s.repos.Snapshots.DeleteOldSnapshots(ctx, retention)
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"component": "analytics_service",
		"deleted":   deleted,
		"retention": retention.String(),
	}).Info("Old snapshots pruned")
	return deleted, nil
}
