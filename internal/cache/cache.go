// Package cache is a small read-through JSON cache over Redis used for hot
// reads: job detail lookups and bulk-operation progress polling. It is an
// optimization only; any Redis failure degrades to the backing store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace-engine/internal/config"
	"marketplace-engine/internal/telemetry"
)

// Cache wraps a Redis client with JSON encoding and a default TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a cache client from config.
func New(cfg config.Config) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &Cache{client: client, ttl: ttl}
}

// NewWithClient wraps an existing client, mainly for tests.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// JobKey is the cache key for a job detail read.
func JobKey(id string) string {
	return "cache:job:" + id
}

// BulkOpKey is the cache key for a bulk operation poll.
func BulkOpKey(id string) string {
	return "cache:bulkop:" + id
}

// Get unmarshals the cached value into dest, reporting whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		telemetry.CacheMisses.Inc()
		return false, nil
	}
	if err != nil {
		telemetry.CacheMisses.Inc()
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	telemetry.CacheHits.Inc()
	return true, nil
}

// Set stores v under key with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
