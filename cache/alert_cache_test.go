package cache_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"inventory-ledger/cache"
	"inventory-ledger/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// --- Fake Redis ---

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case string:
		f.data[key] = v
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

// --- Helpers ---

func newTestCache(store *fakeRedis) *cache.AlertCache {
	logger, _ := zap.NewDevelopment()
	return cache.NewAlertCache(store, logger)
}

func sampleReport(total int) *models.AlertReport {
	return &models.AlertReport{
		Items:       []models.ProductAlert{{ProductID: "prod-1", Status: models.AlertLow}},
		Counts:      map[models.AlertStatus]int{models.AlertLow: total},
		Total:       total,
		EvaluatedAt: time.Now().UTC(),
	}
}

// --- Tests ---

func TestAlertCache_MissThenHit(t *testing.T) {
	store := newFakeRedis()
	c := newTestCache(store)
	ctx := context.Background()

	report, version, ok := c.GetReport(ctx)
	assert.False(t, ok)
	assert.Nil(t, report)
	assert.Equal(t, int64(1), version, "first miss initializes the version key")

	c.SetReportAsync(sampleReport(3), version)

	assert.Eventually(t, func() bool {
		_, _, ok := c.GetReport(ctx)
		return ok
	}, time.Second, 5*time.Millisecond)

	cached, version, ok := c.GetReport(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, 3, cached.Total)
}

// A version bump landing between the evaluation and the async write must
// orphan that write: the report is stored under the version it was read at,
// so the next read, at the bumped version, misses instead of serving the
// stale snapshot.
func TestAlertCache_ConcurrentBumpOrphansStaleWrite(t *testing.T) {
	store := newFakeRedis()
	c := newTestCache(store)
	ctx := context.Background()

	_, version, ok := c.GetReport(ctx)
	assert.False(t, ok)
	assert.Equal(t, int64(1), version)

	// Stock mutation commits while the evaluation is in flight.
	store.Incr(ctx, "inventory:alerts:version")

	c.SetReportAsync(sampleReport(9), version)

	assert.Eventually(t, func() bool {
		return store.has("inventory:alerts:summary:v:1")
	}, time.Second, 5*time.Millisecond)

	cached, version, ok := c.GetReport(ctx)
	assert.False(t, ok, "stale write must not be visible at the bumped version")
	assert.Nil(t, cached)
	assert.Equal(t, int64(2), version)
}

func TestAlertCache_ZeroVersionWriteSkipped(t *testing.T) {
	store := newFakeRedis()
	c := newTestCache(store)

	c.SetReportAsync(sampleReport(1), 0)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, store.has("inventory:alerts:summary:v:0"))
}

func TestAlertCache_NilSafe(t *testing.T) {
	var c *cache.AlertCache

	report, version, ok := c.GetReport(context.Background())
	assert.False(t, ok)
	assert.Nil(t, report)
	assert.Zero(t, version)

	c.SetReportAsync(sampleReport(1), 1)
	c.InvalidateAsync()
}
