package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/forumpulse/internal/adapter/metrics"
	"github.com/pscheid92/forumpulse/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CounterCache is a read-through Redis cache in front of the counter store.
// Any Redis failure falls back to the store, so Redis is never required for correctness.
type CounterCache struct {
	rdb     goredis.Cmdable
	store   domain.CounterReader
	ttl     time.Duration
	metrics *metrics.CacheMetrics
	fills   singleflight.Group
}

var _ domain.CounterCache = (*CounterCache)(nil)

func NewCounterCache(rdb goredis.Cmdable, store domain.CounterReader, ttl time.Duration, m *metrics.CacheMetrics) *CounterCache {
	return &CounterCache{
		rdb:     rdb,
		store:   store,
		ttl:     ttl,
		metrics: m,
	}
}

func (c *CounterCache) Read(ctx context.Context, postID uuid.UUID) (domain.PostCounters, error) {
	if counters, ok := c.getCached(ctx, postID); ok {
		c.metrics.Hits.Inc()
		return counters, nil
	}
	c.metrics.Misses.Inc()

	// Concurrent misses for one post share a single store read.
	v, err, _ := c.fills.Do(postID.String(), func() (any, error) {
		counters, err := c.store.Read(ctx, postID)
		if err != nil {
			return domain.PostCounters{}, err
		}
		c.writeCache(ctx, counters)
		return counters, nil
	})
	if err != nil {
		return domain.PostCounters{}, err
	}
	return v.(domain.PostCounters), nil
}

// Invalidate drops the cached counters for postID.
func (c *CounterCache) Invalidate(ctx context.Context, postID uuid.UUID) error {
	c.metrics.Invalidations.Inc()
	if err := c.rdb.Del(ctx, counterCacheKey(postID)).Err(); err != nil {
		c.metrics.Errors.WithLabelValues("invalidate").Inc()
		return fmt.Errorf("failed to invalidate counter cache: %w", err)
	}
	return nil
}

func (c *CounterCache) getCached(ctx context.Context, postID uuid.UUID) (domain.PostCounters, bool) {
	data, err := c.rdb.Get(ctx, counterCacheKey(postID)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.metrics.Errors.WithLabelValues("get").Inc()
			slog.WarnContext(ctx, "Redis counter cache GET failed", "post_id", postID, "error", err)
		}
		return domain.PostCounters{}, false
	}

	var counters domain.PostCounters
	if err := json.Unmarshal(data, &counters); err != nil {
		c.metrics.Errors.WithLabelValues("decode").Inc()
		slog.WarnContext(ctx, "Failed to unmarshal cached counters", "post_id", postID, "error", err)
		return domain.PostCounters{}, false
	}
	return counters, true
}

func (c *CounterCache) writeCache(ctx context.Context, counters domain.PostCounters) {
	encoded, err := json.Marshal(counters)
	if err != nil {
		slog.WarnContext(ctx, "Failed to marshal counters for Redis cache", "post_id", counters.PostID, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, counterCacheKey(counters.PostID), encoded, c.ttl).Err(); err != nil {
		c.metrics.Errors.WithLabelValues("set").Inc()
		slog.WarnContext(ctx, "Failed to populate Redis counter cache", "post_id", counters.PostID, "error", err)
	}
}

func counterCacheKey(postID uuid.UUID) string {
	return "counters:" + postID.String()
}
