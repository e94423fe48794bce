package mongo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/calculator"
	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/repositories"
	"github.com/Fuuurma/FinanceHub-sub001/pkg/database"
)

func startMongo(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetRegistry(database.Registry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	return client.Database("analytics_test")
}

func TestRepositoriesIntegration(t *testing.T) {
	db := startMongo(t)
	ctx := context.Background()

	t.Run("targets upsert", func(t *testing.T) {
		repo := NewTargetRepository(db)
		targets := &models.AllocationTargets{
			PortfolioID: "p1",
			Targets:     []models.TargetAllocation{{AssetClass: "stock", TargetPercentage: 0.6}},
		}
		require.NoError(t, repo.Upsert(ctx, targets))

		targets.Targets = append(targets.Targets, models.TargetAllocation{AssetClass: "bond", TargetPercentage: 0.4})
		require.NoError(t, repo.Upsert(ctx, targets))

		got, err := repo.GetByPortfolioID(ctx, "p1")
		require.NoError(t, err)
		assert.Len(t, got.Targets, 2)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		_, err = repo.GetByPortfolioID(ctx, "missing")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("latest snapshot", func(t *testing.T) {
		repo := NewSnapshotRepository(db)
		old := &models.PortfolioSnapshot{
			PortfolioID: "p1",
			Timestamp:   time.Now().Add(-48 * time.Hour),
			Positions:   []models.Position{{Symbol: "VTI", Quantity: decimal.NewFromInt(1), CurrentPrice: decimal.NewFromInt(100)}},
		}
		fresh := &models.PortfolioSnapshot{
			PortfolioID: "p1",
			Positions:   []models.Position{{Symbol: "VTI", Quantity: decimal.RequireFromString("2.5"), CurrentPrice: decimal.NewFromInt(100)}},
		}
		require.NoError(t, repo.Create(ctx, old))
		require.NoError(t, repo.Create(ctx, fresh))
		require.NoError(t, repo.Create(ctx, &models.PortfolioSnapshot{PortfolioID: "p2"}))

		latest, err := repo.GetLatest(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("2.5").Equal(latest.Positions[0].Quantity))

		ids, err := repo.ListPortfolioIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2"}, ids)

		deleted, err := repo.DeleteOldSnapshots(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})

	t.Run("session lifecycle", func(t *testing.T) {
		repo := NewSessionRepository(db)
		session := analytics.NewSession("p1", []analytics.Suggestion{{
			AssetClass:          "bond",
			Action:              analytics.ActionBuy,
			EstimatedTradeValue: decimal.NewFromInt(500),
		}})
		require.NoError(t, repo.Create(ctx, session))

		_, err := analytics.ExecuteSession(session)
		require.NoError(t, err)
		require.NoError(t, repo.Update(ctx, session))

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, analytics.SessionCompleted, got.Status)
		assert.NotNil(t, got.ExecutedAt)

		_, err = repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		list, err := repo.ListByPortfolioID(ctx, "p1", 10)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("var history", func(t *testing.T) {
		repo := NewVaRReportRepository(db)
		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Create(ctx, &calculator.VaRReport{
				PortfolioID:  "p1",
				Method:       "parametric",
				VaRAmount:    float64(100 + i),
				CalculatedAt: time.Now().Add(time.Duration(i) * time.Minute),
			}))
		}

		history, err := repo.GetHistory(ctx, "p1", 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 102.0, history[0].VaRAmount)
	})
}
