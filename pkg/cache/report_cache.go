package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/config"
)

const defaultReportTTL = time.Hour

// Store is the distributed layer behind the in-process cache
type Store interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// ReportCache keeps computed reports in a local ccache in front of an
// optional distributed store. Values are held as JSON so both layers decode
// the same way.
type ReportCache struct {
	local     *ccache.Cache
	remote    Store
	localTTL  time.Duration
	reportTTL time.Duration
	logger    *logrus.Logger
}

func NewReportCache(cfg config.CacheConfig, remote Store, logger *logrus.Logger) *ReportCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	maxSize := cfg.LocalMaxSize
	if maxSize <= 0 {
		maxSize = 5000
	}
	prune := cfg.LocalItemsToPrune
	if prune == 0 {
		prune = 500
	}
	localTTL := cfg.LocalTTL
	if localTTL <= 0 {
		localTTL = time.Minute
	}

	return &ReportCache{
		local: ccache.New(ccache.Configure().
			MaxSize(maxSize).
			ItemsToPrune(prune).
			DeleteBuffer(256).
			PromoteBuffer(256).
			GetsPerPromote(3)),
		remote:    remote,
		localTTL:  localTTL,
		reportTTL: cfg.ReportTTL,
		logger:    logger,
	}
}

// VaRKey identifies a VaR report by portfolio and every request parameter
// that changes the result
func VaRKey(portfolioID, method string, confidence float64, horizon, lookbackDays int) string {
	return fmt.Sprintf("var:%s:%s:%.4f:%d:%d", portfolioID, method, confidence, horizon, lookbackDays)
}

// AnalyticsKey identifies the combined analytics view of a portfolio
func AnalyticsKey(portfolioID string) string {
	return "portfolio:" + portfolioID
}

// Get looks in the local cache first, then the distributed store. A remote
// hit is promoted to the local cache.
func (c *ReportCache) Get(ctx context.Context, key string, dest interface{}) error {
	if item := c.local.Get(key); item != nil && !item.Expired() {
		c.logger.WithFields(logrus.Fields{"key": key, "source": "local"}).Debug("Cache hit")
		return json.Unmarshal(item.Value().([]byte), dest)
	}

	if c.remote == nil {
		return ErrNotFound
	}

	var raw json.RawMessage
	if err := c.remote.Get(ctx, key, &raw); err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.WithError(err).WithField("key", key).Warn("Distributed cache read failed")
		}
		return ErrNotFound
	}

	c.local.Set(key, []byte(raw), c.localTTL)
	c.logger.WithFields(logrus.Fields{"key": key, "source": "distributed"}).Debug("Cache hit")
	return json.Unmarshal(raw, dest)
}

// Set stores value in both layers. A distributed write failure is logged and
// the local entry is kept.
func (c *ReportCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.reportTTL
	}
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	c.local.Set(key, data, min(ttl, c.localTTL))

	if c.remote != nil {
		if err := c.remote.Set(ctx, key, json.RawMessage(data), ttl); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Distributed cache write failed")
		}
	}
	return nil
}

// InvalidatePortfolio drops every cached report of a portfolio
func (c *ReportCache) InvalidatePortfolio(ctx context.Context, portfolioID string) error {
	varPrefix := "var:" + portfolioID + ":"
	c.local.DeletePrefix(varPrefix)
	c.local.Delete(AnalyticsKey(portfolioID))

	if c.remote == nil {
		return nil
	}
	if _, err := c.remote.DeletePrefix(ctx, varPrefix); err != nil {
		return err
	}
	return c.remote.Delete(ctx, AnalyticsKey(portfolioID))
}

// LocalItemCount reports the number of entries held in process
func (c *ReportCache) LocalItemCount() int {
	return c.local.ItemCount()
}

// Stop releases the local cache's background worker
func (c *ReportCache) Stop() {
	c.local.Stop()
}
