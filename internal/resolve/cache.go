package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zaiqahq/storefront/internal/geo"
	"github.com/zaiqahq/storefront/internal/shared/config"
	"github.com/zaiqahq/storefront/internal/shared/metrics"
)

// Cache is a Redis-backed cache of resolution results, keyed by the
// coordinate quantized to ~11 m plus the fee inputs. Hot addresses repeat
// within short windows; coverage edits flush the cache, and the TTL bounds
// staleness if a flush is ever missed.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to Redis and verifies the connection.
func NewCache(ctx context.Context, cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &Cache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

// Key builds the cache key for a resolution query.
func Key(coord geo.Coordinate, opts Options) string {
	subtotal := int64(-1)
	if opts.OrderSubtotal != nil {
		subtotal = int64(*opts.OrderSubtotal)
	}
	distance := -1.0
	if opts.DistanceKm != nil {
		distance = *opts.DistanceKm
	}
	return fmt.Sprintf("resolve:v1:%.4f:%.4f:%d:%.2f", coord.Lat, coord.Lng, subtotal, distance)
}

// Get returns a cached result, if present.
func (c *Cache) Get(ctx context.Context, key string) (Result, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		metrics.RecordCacheMiss()
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		metrics.RecordCacheMiss()
		return Result{}, false
	}
	metrics.RecordCacheHit()
	return result, true
}

// Set stores a result, best effort.
func (c *Cache) Set(ctx context.Context, key string, result Result) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, c.ttl)
}

// Flush drops every cached resolution result, best effort. Coverage edits
// call this so stale zones are never served for longer than the flush takes.
func (c *Cache) Flush(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, "resolve:v1:*", 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("resolve: cache flush failed: %v", err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() {
	c.client.Close()
}
