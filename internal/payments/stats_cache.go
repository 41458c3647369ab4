package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/comercio-backend/pkg/redis"
)

const (
	statsCacheScope      = "payments-stats"
	defaultStatsCacheTTL = time.Minute
)

// StatsCache stores aggregated stats per tenant.
type StatsCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*Stats, bool, error)
	Set(ctx context.Context, tenantID uuid.UUID, stats *Stats) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

type redisStatsCache struct {
	store redis.Cache
	ttl   time.Duration
}

// NewRedisStatsCache returns a StatsCache backed by Redis string values.
func NewRedisStatsCache(store redis.Cache, ttl time.Duration) (StatsCache, error) {
	if store == nil {
		return nil, errors.New("redis cache required")
	}
	if ttl <= 0 {
		ttl = defaultStatsCacheTTL
	}
	return &redisStatsCache{store: store, ttl: ttl}, nil
}

func (c *redisStatsCache) key(tenantID uuid.UUID) string {
	return c.store.CacheKey(statsCacheScope, tenantID.String())
}

func (c *redisStatsCache) Get(ctx context.Context, tenantID uuid.UUID) (*Stats, bool, error) {
	raw, err := c.store.Get(ctx, c.key(tenantID))
	if err != nil {
		if redis.IsMiss(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var stats Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		// a corrupt entry is treated as a miss and overwritten
		return nil, false, nil
	}
	return &stats, true, nil
}

func (c *redisStatsCache) Set(ctx context.Context, tenantID uuid.UUID, stats *Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.key(tenantID), string(data), c.ttl)
}

func (c *redisStatsCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	return c.store.Del(ctx, c.key(tenantID))
}
