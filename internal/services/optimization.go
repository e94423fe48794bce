package services

import (
	"context"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
)

// Optimize computes target weights from the holdings' price histories and the
// trades that reach them. Omitted positions fall back to the latest snapshot.
func (s *AnalyticsService) Optimize(ctx context.Context, portfolioID string, positions []models.Position, strategy analytics.OptimizationStrategy, constraints analytics.OptimizationConstraints) (*analytics.OptimizationResult, error) {
	holdings, err := s.holdings(ctx, portfolioID, positions)
	if err != nil {
		return nil, err
	}

	var out *analytics.OptimizationResult
	err = s.run(ctx, "optimize", func(ctx context.Context) (err error) {
		out, err = s.calc.Optimizer.Optimize(ctx, holdings, strategy, constraints)
		return err
	})
	return out, err
}

func (s *AnalyticsService) EfficientFrontier(ctx context.Context, portfolioID string, positions []models.Position, points int, constraints analytics.OptimizationConstraints) ([]analytics.EfficientPoint, error) {
	holdings, err := s.holdings(ctx, portfolioID, positions)
	if err != nil {
		return nil, err
	}

	var out []analytics.EfficientPoint
	err = s.run(ctx, "efficient_frontier", func(ctx context.Context) (err error) {
		out, err = s.calc.Optimizer.EfficientFrontier(ctx, analytics.ReturnsFromPositions(holdings), points, constraints)
		return err
	})
	return out, err
}
