package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	redisModule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *RedisClient {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := redisModule.Run(ctx,
		"redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithOccurrence(1),
		),
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	client := NewRedisClientFrom(rdb, testCacheConfig())
	require.NoError(t, client.Ping(ctx))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisClientIntegration(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	t.Run("round trip with ttl", func(t *testing.T) {
		key := VaRKey("p1", "monte_carlo", 0.95, 1, 252)
		require.NoError(t, client.Set(ctx, key, cachedReport{PortfolioID: "p1", VaRAmount: 99.5}, time.Minute))

		var out cachedReport
		require.NoError(t, client.Get(ctx, key, &out))
		assert.Equal(t, 99.5, out.VaRAmount)

		ttl, err := client.TTL(ctx, key)
		require.NoError(t, err)
		assert.True(t, ttl > 0 && ttl <= time.Minute)
	})

	t.Run("missing key", func(t *testing.T) {
		var out cachedReport
		assert.ErrorIs(t, client.Get(ctx, "var:none", &out), ErrNotFound)
	})

	t.Run("prefix delete", func(t *testing.T) {
		for _, m := range []string{"parametric", "historical"} {
			require.NoError(t, client.Set(ctx, VaRKey("p9", m, 0.95, 1, 252), cachedReport{PortfolioID: "p9"}, time.Minute))
		}
		n, err := client.DeletePrefix(ctx, "var:p9:")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("behind the report cache", func(t *testing.T) {
		key := AnalyticsKey("p3")
		writer := NewReportCache(testCacheConfig(), client, nil)
		defer writer.Stop()
		require.NoError(t, writer.Set(ctx, key, cachedReport{PortfolioID: "p3", VaRAmount: 7}, time.Minute))

		reader := NewReportCache(testCacheConfig(), client, nil)
		defer reader.Stop()
		var out cachedReport
		require.NoError(t, reader.Get(ctx, key, &out))
		assert.Equal(t, 7.0, out.VaRAmount)
	})
}
