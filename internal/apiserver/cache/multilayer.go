package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores JSON encodable values by key
type Cache interface {
	// Get decodes the cached value into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Stats counts lookups per layer
type Stats struct {
	L1Hits int64 `json:"l1Hits"`
	L2Hits int64 `json:"l2Hits"`
	Misses int64 `json:"misses"`
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// MultiLayerCache is an in-process L1 in front of an optional Redis L2
type MultiLayerCache struct {
	logger    *zap.Logger
	l2        redis.Cmdable
	keyPrefix string
	l1TTL     time.Duration
	now       func() time.Time

	mu    sync.RWMutex
	items map[string]entry
	stats Stats
}

// MultiLayerCacheConfig holds configuration for the cache
type MultiLayerCacheConfig struct {
	RedisClient redis.Cmdable // nil keeps the cache in memory only
	KeyPrefix   string
	L1TTL       time.Duration // upper bound for L1 entries
}

// NewMultiLayerCache creates a new multi-layer cache instance
func NewMultiLayerCache(cfg MultiLayerCacheConfig, logger *zap.Logger) *MultiLayerCache {
	if cfg.L1TTL <= 0 {
		cfg.L1TTL = 5 * time.Minute
	}
	return &MultiLayerCache{
		logger:    logger.Named("cache"),
		l2:        cfg.RedisClient,
		keyPrefix: cfg.KeyPrefix,
		l1TTL:     cfg.L1TTL,
		now:       time.Now,
		items:     make(map[string]entry),
	}
}

// Get checks L1 first, then L2, promoting L2 hits into L1
func (c *MultiLayerCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if data, ok := c.getL1(key); ok {
		c.count(func(s *Stats) { s.L1Hits++ })
		return true, json.Unmarshal(data, dest)
	}

	if c.l2 != nil {
		data, ttl, err := c.getL2(ctx, key)
		if err != nil {
			return false, err
		}
		if data != nil {
			c.setL1(key, data, ttl)
			c.count(func(s *Stats) { s.L2Hits++ })
			return true, json.Unmarshal(data, dest)
		}
	}

	c.count(func(s *Stats) { s.Misses++ })
	return false, nil
}

// Set stores value in both layers
func (c *MultiLayerCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	c.setL1(key, data, ttl)
	if c.l2 == nil {
		return nil
	}
	if err := c.l2.Set(ctx, c.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key from both layers
func (c *MultiLayerCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	if c.l2 == nil {
		return nil
	}
	if err := c.l2.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Stats returns a copy of the lookup counters
func (c *MultiLayerCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func (c *MultiLayerCache) getL1(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

func (c *MultiLayerCache) setL1(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 || ttl > c.l1TTL {
		ttl = c.l1TTL
	}
	c.mu.Lock()
	c.items[key] = entry{data: data, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MultiLayerCache) getL2(ctx context.Context, key string) ([]byte, time.Duration, error) {
	data, err := c.l2.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, nil
	}
	if err != nil {
		c.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		return nil, 0, nil
	}
	ttl, err := c.l2.TTL(ctx, c.keyPrefix+key).Result()
	if err != nil {
		ttl = 0
	}
	return data, ttl, nil
}

func (c *MultiLayerCache) count(fn func(*Stats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}
