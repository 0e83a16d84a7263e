// Package redis provides a response cache backed by Redis, for deployments
// where several extractor processes should share one cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shoplens/extractor/internal/product"
)

const keyPrefix = "extractor:page:"

// Cache implements product.ResponseCache on a Redis client. Expiry is
// delegated to Redis TTLs; a Get after expiry is simply a miss.
type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

// Config holds Redis connection parameters.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New creates a Cache from connection parameters.
func New(cfg Config, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		logger: logger,
	}
}

// Ping verifies connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get fetches and decodes the cached response for key.
func (c *Cache) Get(ctx context.Context, key string) (product.CachedResponse, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache get failed", zap.String("key", key), zap.Error(err))
		}
		return product.CachedResponse{}, false
	}
	var resp product.CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("redis cache entry corrupt", zap.String("key", key), zap.Error(err))
		return product.CachedResponse{}, false
	}
	return resp, true
}

// Set stores the response under key with its TTL. Failures are logged and
// swallowed; a broken cache must never fail a fetch.
func (c *Cache) Set(ctx context.Context, key string, response product.CachedResponse) {
	ttl := response.TTL
	if ttl <= 0 {
		ttl = 180 * time.Second
	}
	raw, err := json.Marshal(response)
	if err != nil {
		c.logger.Warn("redis cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		c.logger.Warn("redis cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Close releases the client.
func (c *Cache) Close() error {
	return c.client.Close()
}
