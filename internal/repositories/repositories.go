package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/calculator"
	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
)

// ErrNotFound is returned when a lookup matches no document
var ErrNotFound = errors.New("not found")

// SnapshotRepository defines the interface for holdings snapshot operations
type SnapshotRepository interface {
	// Create stores a new snapshot
	Create(ctx context.Context, snapshot *models.PortfolioSnapshot) error

	// GetLatest retrieves the most recent snapshot for a portfolio
	GetLatest(ctx context.Context, portfolioID string) (*models.PortfolioSnapshot, error)

	// GetByPortfolioID retrieves snapshots for a portfolio, newest first
	GetByPortfolioID(ctx context.Context, portfolioID string, limit, offset int) ([]models.PortfolioSnapshot, error)

	// ListPortfolioIDs returns every portfolio that has at least one snapshot
	ListPortfolioIDs(ctx context.Context) ([]string, error)

	// DeleteOldSnapshots deletes snapshots older than the given duration
	DeleteOldSnapshots(ctx context.Context, olderThan time.Duration) (int64, error)
}

// TargetRepository stores one allocation target set per portfolio
type TargetRepository interface {
	Upsert(ctx context.Context, targets *models.AllocationTargets) error
	GetByPortfolioID(ctx context.Context, portfolioID string) (*models.AllocationTargets, error)
	List(ctx context.Context) ([]models.AllocationTargets, error)
}

// SessionRepository stores rebalancing sessions
type SessionRepository interface {
	Create(ctx context.Context, session *analytics.RebalancingSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*analytics.RebalancingSession, error)
	Update(ctx context.Context, session *analytics.RebalancingSession) error
	ListByPortfolioID(ctx context.Context, portfolioID string, limit int) ([]analytics.RebalancingSession, error)
}

// VaRReportRepository keeps the history of computed VaR reports
type VaRReportRepository interface {
	Create(ctx context.Context, report *calculator.VaRReport) error
	GetHistory(ctx context.Context, portfolioID string, limit int) ([]calculator.VaRReport, error)
}
