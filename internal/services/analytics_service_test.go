package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/calculator"
	"github.com/Fuuurma/FinanceHub-sub001/internal/config"
	"github.com/Fuuurma/FinanceHub-sub001/internal/messaging/mocks"
	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/monitoring"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
	"github.com/Fuuurma/FinanceHub-sub001/internal/repositories"
)

// Mock implementations
type MockTargetRepository struct {
	mock.Mock
}

func (m *MockTargetRepository) Upsert(ctx context.Context, targets *models.AllocationTargets) error {
	return m.Called(ctx, targets).Error(0)
}

func (m *MockTargetRepository) GetByPortfolioID(ctx context.Context, portfolioID string) (*models.AllocationTargets, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AllocationTargets), args.Error(1)
}

func (m *MockTargetRepository) List(ctx context.Context) ([]models.AllocationTargets, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AllocationTargets), args.Error(1)
}

type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Create(ctx context.Context, snapshot *models.PortfolioSnapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}

func (m *MockSnapshotRepository) GetLatest(ctx context.Context, portfolioID string) (*models.PortfolioSnapshot, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PortfolioSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) GetByPortfolioID(ctx context.Context, portfolioID string, limit, offset int) ([]models.PortfolioSnapshot, error) {
	args := m.Called(ctx, portfolioID, limit, offset)
	return args.Get(0).([]models.PortfolioSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) ListPortfolioIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSnapshotRepository) DeleteOldSnapshots(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *analytics.RebalancingSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*analytics.RebalancingSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.RebalancingSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *analytics.RebalancingSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) ListByPortfolioID(ctx context.Context, portfolioID string, limit int) ([]analytics.RebalancingSession, error) {
	args := m.Called(ctx, portfolioID, limit)
	return args.Get(0).([]analytics.RebalancingSession), args.Error(1)
}

type MockVaRReportRepository struct {
	mock.Mock
}

func (m *MockVaRReportRepository) Create(ctx context.Context, report *calculator.VaRReport) error {
	return m.Called(ctx, report).Error(0)
}

func (m *MockVaRReportRepository) GetHistory(ctx context.Context, portfolioID string, limit int) ([]calculator.VaRReport, error) {
	args := m.Called(ctx, portfolioID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]calculator.VaRReport), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCache) InvalidatePortfolio(ctx context.Context, portfolioID string) error {
	return m.Called(ctx, portfolioID).Error(0)
}

type recordingBroadcaster struct {
	statuses []analytics.DriftStatus
}

func (b *recordingBroadcaster) Broadcast(status analytics.DriftStatus) {
	b.statuses = append(b.statuses, status)
}

type fixture struct {
	service     *AnalyticsService
	targets     *MockTargetRepository
	snapshots   *MockSnapshotRepository
	sessions    *MockSessionRepository
	varReports  *MockVaRReportRepository
	cache       *MockCache
	publisher   *mocks.MockEventPublisher
	broadcaster *recordingBroadcaster
}

func testAnalyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		Backend:            "full",
		RiskFreeRate:       0.05,
		VaRConfidence:      0.95,
		VaRLookbackDays:    252,
		VaRTimeHorizon:     1,
		MonteCarloSims:     1000,
		RebalanceTolerance: 0.05,
		MaxTrades:          10,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()

	calc, err := NewCalculators(testAnalyticsConfig(), logger)
	require.NoError(t, err)

	f := &fixture{
		targets:     new(MockTargetRepository),
		snapshots:   new(MockSnapshotRepository),
		sessions:    new(MockSessionRepository),
		varReports:  new(MockVaRReportRepository),
		cache:       new(MockCache),
		publisher:   mocks.NewMockEventPublisher(gomock.NewController(t)),
		broadcaster: &recordingBroadcaster{},
	}
	f.service = NewAnalyticsService(
		testAnalyticsConfig(),
		calc,
		Repositories{Targets: f.targets, Snapshots: f.snapshots, Sessions: f.sessions, VaRReports: f.varReports},
		f.cache,
		time.Hour,
		f.publisher,
		f.broadcaster,
		monitoring.NewMetrics(prometheus.NewRegistry()),
		logger,
	)
	return f
}

func holding(symbol, assetType string, qty, price int64) models.Position {
	return models.Position{
		Symbol:        symbol,
		AssetType:     assetType,
		Quantity:      decimal.NewFromInt(qty),
		CurrentPrice:  decimal.NewFromInt(price),
		PurchasePrice: decimal.NewFromInt(price),
	}
}

func TestNewCalculators(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		cfg := testAnalyticsConfig()
		cfg.Backend = "quantum"
		_, err := NewCalculators(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("basic backend is degraded", func(t *testing.T) {
		cfg := testAnalyticsConfig()
		cfg.Backend = "basic"
		calc, err := NewCalculators(cfg, nil)
		require.NoError(t, err)
		assert.True(t, calc.Backend.Degraded())
	})

	t.Run("missing scenario file", func(t *testing.T) {
		cfg := testAnalyticsConfig()
		cfg.ScenarioFile = "/nonexistent/scenarios.yaml"
		_, err := NewCalculators(cfg, nil)
		assert.Error(t, err)
	})
}

func TestAnalyticsService_CalculateVaR(t *testing.T) {
	ctx := context.Background()

	t.Run("inline positions skip storage", func(t *testing.T) {
		f := newFixture(t)
		positions := []models.Position{holding("AAPL", "stock", 10, 100)}

		report, err := f.service.CalculateVaR(ctx, "p1", positions, calculator.VaRRequest{})
		require.NoError(t, err)
		assert.Equal(t, calculator.MethodParametric, report.Method)
		assert.True(t, report.Fallback)
		assert.InDelta(t, 0.95, report.ConfidenceLevel.Float(), 1e-12)

		f.snapshots.AssertNotCalled(t, "GetLatest", mock.Anything, mock.Anything)
		f.cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stored snapshot is cached persisted and announced", func(t *testing.T) {
		f := newFixture(t)
		snapshot := &models.PortfolioSnapshot{PortfolioID: "p1", Positions: []models.Position{holding("AAPL", "stock", 10, 100)}}
		key := "var:p1:parametric:0.9500:1:252"

		f.snapshots.On("GetLatest", mock.Anything, "p1").Return(snapshot, nil)
		f.cache.On("Get", mock.Anything, key, mock.Anything).Return(errors.New("miss"))
		f.varReports.On("Create", mock.Anything, mock.AnythingOfType("*calculator.VaRReport")).Return(nil)
		f.cache.On("Set", mock.Anything, key, mock.Anything, time.Hour).Return(nil)
		f.publisher.EXPECT().PublishVaRComputed(gomock.Any(), gomock.Any()).Return("corr-1", nil)

		report, err := f.service.CalculateVaR(ctx, "p1", nil, calculator.VaRRequest{})
		require.NoError(t, err)
		assert.Equal(t, "p1", report.PortfolioID)

		f.varReports.AssertExpectations(t)
		f.cache.AssertExpectations(t)
	})

	t.Run("cache hit", func(t *testing.T) {
		f := newFixture(t)
		f.snapshots.On("GetLatest", mock.Anything, "p1").Return(&models.PortfolioSnapshot{PortfolioID: "p1"}, nil)
		f.cache.On("Get", mock.Anything, "var:p1:historical:0.9900:1:252", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			*args.Get(2).(*calculator.VaRReport) = calculator.VaRReport{PortfolioID: "p1", VaRAmount: 321}
		})

		report, err := f.service.CalculateVaR(ctx, "p1", nil, calculator.VaRRequest{Method: "historical", ConfidenceLevel: 99})
		require.NoError(t, err)
		assert.Equal(t, 321.0, report.VaRAmount)
		f.varReports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown portfolio", func(t *testing.T) {
		f := newFixture(t)
		f.snapshots.On("GetLatest", mock.Anything, "nope").Return(nil, fmt.Errorf("snapshot: %w", repositories.ErrNotFound))

		_, err := f.service.CalculateVaR(ctx, "nope", nil, calculator.VaRRequest{})
		assert.True(t, IsNotFound(err))
	})

	t.Run("lookback is part of the cache key", func(t *testing.T) {
		f := newFixture(t)
		snapshot := &models.PortfolioSnapshot{PortfolioID: "p1", Positions: []models.Position{holding("AAPL", "stock", 10, 100)}}

		f.snapshots.On("GetLatest", mock.Anything, "p1").Return(snapshot, nil)
		for _, key := range []string{"var:p1:parametric:0.9500:1:30", "var:p1:parametric:0.9500:1:60"} {
			f.cache.On("Get", mock.Anything, key, mock.Anything).Return(errors.New("miss")).Once()
			f.cache.On("Set", mock.Anything, key, mock.Anything, time.Hour).Return(nil).Once()
		}
		f.varReports.On("Create", mock.Anything, mock.AnythingOfType("*calculator.VaRReport")).Return(nil)
		f.publisher.EXPECT().PublishVaRComputed(gomock.Any(), gomock.Any()).Return("corr", nil).Times(2)

		_, err := f.service.CalculateVaR(ctx, "p1", nil, calculator.VaRRequest{LookbackDays: 30})
		require.NoError(t, err)
		_, err = f.service.CalculateVaR(ctx, "p1", nil, calculator.VaRRequest{LookbackDays: 60})
		require.NoError(t, err)

		f.cache.AssertExpectations(t)
		f.varReports.AssertNumberOfCalls(t, "Create", 2)
	})

	t.Run("unknown method", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.CalculateVaR(ctx, "p1", []models.Position{holding("A", "stock", 1, 1)}, calculator.VaRRequest{Method: "magic"})
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
	})

	t.Run("out of order history", func(t *testing.T) {
		f := newFixture(t)
		p := holding("A", "stock", 1, 1)
		start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		for i, c := range []float64{10, 11, 12, 11} {
			p.PriceHistory = append(p.PriceHistory, models.PricePoint{Timestamp: start.AddDate(0, 0, -i), Close: c})
		}
		_, err := f.service.CalculateVaR(ctx, "p1", []models.Position{p}, calculator.VaRRequest{})
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
	})
}

func TestAnalyticsService_SetTargets(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		targets []models.TargetAllocation
		wantErr bool
	}{
		{name: "valid", targets: []models.TargetAllocation{{AssetClass: " Stock ", TargetPercentage: 0.6}, {AssetClass: "bond", TargetPercentage: 0.4}}},
		{name: "under allocated is allowed", targets: []models.TargetAllocation{{AssetClass: "stock", TargetPercentage: 0.5}}},
		{name: "empty", wantErr: true},
		{name: "over 100 percent", targets: []models.TargetAllocation{{AssetClass: "stock", TargetPercentage: 0.7}, {AssetClass: "bond", TargetPercentage: 0.4}}, wantErr: true},
		{name: "duplicate class", targets: []models.TargetAllocation{{AssetClass: "stock", TargetPercentage: 0.3}, {AssetClass: "STOCK", TargetPercentage: 0.3}}, wantErr: true},
		{name: "missing class", targets: []models.TargetAllocation{{TargetPercentage: 0.3}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.targets.On("Upsert", mock.Anything, mock.AnythingOfType("*models.AllocationTargets")).Return(nil)
			f.cache.On("InvalidatePortfolio", mock.Anything, "p1").Return(nil)

			doc, err := f.service.SetTargets(ctx, "p1", tt.targets)
			if tt.wantErr {
				assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
				f.targets.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "p1", doc.PortfolioID)
			assert.Equal(t, "stock", doc.Targets[0].AssetClass)
			f.targets.AssertExpectations(t)
			f.cache.AssertExpectations(t)
		})
	}
}

func TestAnalyticsService_Drift(t *testing.T) {
	ctx := context.Background()
	positions := []models.Position{holding("VTI", "stock", 80, 100), holding("BND", "bond", 20, 100)}
	stored := &models.AllocationTargets{PortfolioID: "p1", Targets: []models.TargetAllocation{
		{AssetClass: "stock", TargetPercentage: 0.6},
		{AssetClass: "bond", TargetPercentage: 0.4},
	}}

	t.Run("stored targets fill the request", func(t *testing.T) {
		f := newFixture(t)
		f.targets.On("GetByPortfolioID", mock.Anything, "p1").Return(stored, nil)

		drifts, status, err := f.service.Drift(ctx, "p1", positions, nil)
		require.NoError(t, err)
		require.Len(t, drifts, 2)
		assert.True(t, status.NeedsRebalancing)
		assert.Equal(t, "p1", status.PortfolioID)
	})

	t.Run("check drift alerts", func(t *testing.T) {
		f := newFixture(t)
		f.targets.On("GetByPortfolioID", mock.Anything, "p1").Return(stored, nil)
		f.snapshots.On("GetLatest", mock.Anything, "p1").Return(&models.PortfolioSnapshot{PortfolioID: "p1", Positions: positions}, nil)
		f.publisher.EXPECT().
			PublishDriftAlert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, status analytics.DriftStatus) (string, error) {
				assert.Equal(t, "p1", status.PortfolioID)
				return "corr", nil
			})

		status, err := f.service.CheckDrift(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, status.NeedsRebalancing)
		require.Len(t, f.broadcaster.statuses, 1)
	})

	t.Run("balanced portfolio stays quiet", func(t *testing.T) {
		f := newFixture(t)
		balanced := []models.Position{holding("VTI", "stock", 60, 100), holding("BND", "bond", 40, 100)}
		f.targets.On("GetByPortfolioID", mock.Anything, "p1").Return(stored, nil)
		f.snapshots.On("GetLatest", mock.Anything, "p1").Return(&models.PortfolioSnapshot{PortfolioID: "p1", Positions: balanced}, nil)

		status, err := f.service.CheckDrift(ctx, "p1")
		require.NoError(t, err)
		assert.False(t, status.NeedsRebalancing)
		assert.Empty(t, f.broadcaster.statuses)
	})

	t.Run("missing targets is not fatal", func(t *testing.T) {
		f := newFixture(t)
		f.targets.On("GetByPortfolioID", mock.Anything, "p2").Return(nil, fmt.Errorf("targets: %w", repositories.ErrNotFound))

		_, err := f.service.CheckDrift(ctx, "p2")
		require.Error(t, err)
		assert.False(t, numeric.IsFatal(err))
	})

	t.Run("check all", func(t *testing.T) {
		f := newFixture(t)
		f.targets.On("List", mock.Anything).Return([]models.AllocationTargets{*stored, {PortfolioID: "p2"}}, nil)
		f.targets.On("GetByPortfolioID", mock.Anything, "p1").Return(stored, nil)
		f.targets.On("GetByPortfolioID", mock.Anything, "p2").Return(&models.AllocationTargets{PortfolioID: "p2"}, nil)
		f.snapshots.On("GetLatest", mock.Anything, "p1").Return(&models.PortfolioSnapshot{PortfolioID: "p1", Positions: positions}, nil)
		f.snapshots.On("GetLatest", mock.Anything, "p2").Return(nil, fmt.Errorf("snapshot: %w", repositories.ErrNotFound))
		f.publisher.EXPECT().PublishDriftAlert(gomock.Any(), gomock.Any()).Return("", errors.New("broker down"))

		checked, alerts, err := f.service.CheckAllDrift(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, checked)
		assert.Equal(t, 1, alerts)
	})
}

func TestAnalyticsService_Sessions(t *testing.T) {
	ctx := context.Background()
	positions := []models.Position{holding("VTI", "stock", 80, 100), holding("BND", "bond", 20, 100)}
	targets := []models.TargetAllocation{{AssetClass: "stock", TargetPercentage: 0.6}, {AssetClass: "bond", TargetPercentage: 0.4}}

	t.Run("create", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("Create", mock.Anything, mock.AnythingOfType("*analytics.RebalancingSession")).Return(nil)

		session, err := f.service.CreateSession(ctx, "p1", positions, targets, analytics.SuggestionOptions{})
		require.NoError(t, err)
		assert.Equal(t, analytics.SessionPendingReview, session.Status)
		assert.Equal(t, 2, session.TotalTrades)
		f.sessions.AssertExpectations(t)
	})

	t.Run("execute", func(t *testing.T) {
		f := newFixture(t)
		session := analytics.NewSession("p1", []analytics.Suggestion{{
			AssetClass:          "bond",
			Action:              analytics.ActionBuy,
			EstimatedTradeValue: decimal.NewFromInt(2000),
			Status:              analytics.SuggestionPending,
		}})
		f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
		f.sessions.On("Update", mock.Anything, session).Return(nil)
		f.cache.On("InvalidatePortfolio", mock.Anything, "p1").Return(nil)
		f.publisher.EXPECT().PublishSessionExecuted(gomock.Any(), session, gomock.Any()).Return("corr", nil)

		result, err := f.service.ExecuteSession(ctx, session.ID.String())
		require.NoError(t, err)
		assert.Equal(t, 1, result.TradesExecuted)
		assert.Equal(t, analytics.SessionCompleted, session.Status)
		f.sessions.AssertExpectations(t)
	})

	t.Run("execute twice", func(t *testing.T) {
		f := newFixture(t)
		session := analytics.NewSession("p1", nil)
		session.Status = analytics.SessionCompleted
		f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)

		_, err := f.service.ExecuteSession(ctx, session.ID.String())
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
		f.sessions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("bad id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.ExecuteSession(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
	})
}

func TestAnalyticsService_FullAnalytics(t *testing.T) {
	f := newFixture(t)
	positions := []models.Position{holding("AAPL", "stock", 50, 100), holding("BND", "bond", 50, 100)}

	report, err := f.service.FullAnalytics(context.Background(), "p1", positions)
	require.NoError(t, err)
	require.NotNil(t, report.PortfolioAnalytics)
	require.NotNil(t, report.VaR)
	assert.Equal(t, calculator.MethodParametric, report.VaR.Method)
	assert.True(t, report.TotalValue.Equal(decimal.NewFromInt(10000)))
}

func TestAnalyticsService_RefreshVaR(t *testing.T) {
	f := newFixture(t)
	snapshot := &models.PortfolioSnapshot{PortfolioID: "p1", Positions: []models.Position{holding("AAPL", "stock", 10, 100)}}

	f.snapshots.On("ListPortfolioIDs", mock.Anything).Return([]string{"p1", "p2"}, nil)
	f.snapshots.On("GetLatest", mock.Anything, "p1").Return(snapshot, nil)
	f.snapshots.On("GetLatest", mock.Anything, "p2").Return(nil, errors.New("mongo timeout"))
	f.cache.On("InvalidatePortfolio", mock.Anything, mock.Anything).Return(nil)
	f.cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("miss"))
	f.cache.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Hour).Return(nil)
	f.varReports.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.publisher.EXPECT().PublishVaRComputed(gomock.Any(), gomock.Any()).Return("corr", nil)

	err := f.service.RefreshVaR(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portfolio p2")
	f.varReports.AssertNumberOfCalls(t, "Create", 1)
}

func TestAnalyticsService_VaRHistory(t *testing.T) {
	f := newFixture(t)
	f.varReports.On("GetHistory", mock.Anything, "p1", 5).Return(nil, nil)

	history, err := f.service.VaRHistory(context.Background(), "p1", 5)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	_, err = f.service.VaRHistory(context.Background(), "", 5)
	assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
}

func TestAnalyticsService_Snapshots(t *testing.T) {
	ctx := context.Background()

	t.Run("save invalidates cached reports", func(t *testing.T) {
		f := newFixture(t)
		snapshot := &models.PortfolioSnapshot{PortfolioID: "p1", Positions: []models.Position{holding("AAPL", "stock", 1, 10)}}
		f.snapshots.On("Create", mock.Anything, snapshot).Return(nil)
		f.cache.On("InvalidatePortfolio", mock.Anything, "p1").Return(nil)

		require.NoError(t, f.service.SaveSnapshot(ctx, snapshot))
		f.snapshots.AssertExpectations(t)
		f.cache.AssertExpectations(t)
	})

	t.Run("save rejects negative quantity", func(t *testing.T) {
		f := newFixture(t)
		snapshot := &models.PortfolioSnapshot{PortfolioID: "p1", Positions: []models.Position{holding("AAPL", "stock", -1, 10)}}

		err := f.service.SaveSnapshot(ctx, snapshot)
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
		f.snapshots.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("list applies default limit", func(t *testing.T) {
		f := newFixture(t)
		f.snapshots.On("GetByPortfolioID", mock.Anything, "p1", defaultListLimit, 0).Return([]models.PortfolioSnapshot{{PortfolioID: "p1"}}, nil)

		list, err := f.service.Snapshots(ctx, "p1", 0, -3)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("prune", func(t *testing.T) {
		f := newFixture(t)
		f.snapshots.On("DeleteOldSnapshots", mock.Anything, 48*time.Hour).Return(int64(4), nil)

		deleted, err := f.service.PruneSnapshots(ctx, 48*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(4), deleted)

		deleted, err = f.service.PruneSnapshots(ctx, 0)
		require.NoError(t, err)
		assert.Zero(t, deleted)
		f.snapshots.AssertNumberOfCalls(t, "DeleteOldSnapshots", 1)
	})

	t.Run("sessions", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("ListByPortfolioID", mock.Anything, "p1", 5).Return([]analytics.RebalancingSession{}, nil)

		list, err := f.service.Sessions(ctx, "p1", 5)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
