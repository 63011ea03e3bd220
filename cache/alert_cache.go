package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inventory-ledger/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	alertVersionKey   = "inventory:alerts:version"
	alertSummaryKey   = "inventory:alerts:summary:v:%d"
	DefaultSummaryTTL = 30 * time.Second
)

// redisClient is the slice of the redis API the cache needs. Satisfied by
// *redis.Client.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// AlertCache is a versioned read cache for the alert dashboard. Every stock
// mutation bumps the version key, which orphans all cached summaries; TTL
// handles expiry of the orphans. The cache sits strictly on read paths and
// is never consulted for stock-mutating decisions.
type AlertCache struct {
	redis  redisClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewAlertCache creates an AlertCache.
func NewAlertCache(client redisClient, logger *zap.Logger) *AlertCache {
	return &AlertCache{redis: client, ttl: DefaultSummaryTTL, logger: logger}
}

// GetReport retrieves the cached alert report for the current version. The
// returned version pins the snapshot the caller read; a subsequent
// SetReportAsync must store under it so a version bump that lands in
// between orphans the write instead of poisoning the new version.
func (c *AlertCache) GetReport(ctx context.Context) (*models.AlertReport, int64, bool) {
	if c == nil || c.redis == nil {
		return nil, 0, false
	}
	version, err := c.redis.Get(ctx, alertVersionKey).Int64()
	if err != nil {
		if err != redis.Nil {
			return nil, 0, false
		}
		version = 1
		if err := c.redis.Set(ctx, alertVersionKey, version, 0).Err(); err != nil {
			return nil, 0, false
		}
		return nil, version, false
	}
	data, err := c.redis.Get(ctx, fmt.Sprintf(alertSummaryKey, version)).Result()
	if err != nil {
		return nil, version, false
	}
	var report models.AlertReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		c.logger.Warn("Failed to unmarshal cached alert report", zap.Error(err))
		return nil, version, false
	}
	return &report, version, true
}

// SetReportAsync caches an alert report in the background under the version
// the caller read it at. version must come from the GetReport miss that
// preceded the evaluation; zero means the cache was unreachable and the
// write is skipped.
func (c *AlertCache) SetReportAsync(report *models.AlertReport, version int64) {
	if c == nil || c.redis == nil || version < 1 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data, err := json.Marshal(report)
		if err != nil {
			return
		}
		if err := c.redis.Set(ctx, fmt.Sprintf(alertSummaryKey, version), data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache alert report", zap.Error(err))
		}
	}()
}

// InvalidateAsync bumps the version key after a stock mutation.
func (c *AlertCache) InvalidateAsync() {
	if c == nil || c.redis == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.redis.Incr(ctx, alertVersionKey).Err(); err != nil {
			c.logger.Warn("Failed to invalidate alert cache", zap.Error(err))
		}
	}()
}
