// Package cache is a two-tier JSON cache: an in-process LRU in front of an
// optional Redis instance. Redis calls go through a circuit breaker so an
// unhealthy Redis degrades the cache to the local tier instead of failing
// requests.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

type Options struct {
	Size     int
	TTL      time.Duration
	RedisURL string
	// Prefix namespaces every Redis key.
	Prefix string
}

type Stats struct {
	LocalHits int64 `json:"localHits"`
	RedisHits int64 `json:"redisHits"`
	Misses    int64 `json:"misses"`
}

type Cache struct {
	local   *expirable.LRU[string, []byte]
	redis   redis.UniversalClient
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	prefix  string
	logger  zerolog.Logger

	localHits atomic.Int64
	redisHits atomic.Int64
	misses    atomic.Int64
}

// New builds a cache. An empty RedisURL yields a local-only cache.
func New(opts Options, logger zerolog.Logger) (*Cache, error) {
	if opts.Size <= 0 {
		opts.Size = 1024
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Prefix == "" {
		opts.Prefix = "lims:"
	}

	c := &Cache{
		local:  expirable.NewLRU[string, []byte](opts.Size, nil, opts.TTL),
		ttl:    opts.TTL,
		prefix: opts.Prefix,
		logger: logger.With().Str("component", "cache").Logger(),
	}

	if opts.RedisURL != "" {
		ropts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		c.redis = redis.NewClient(ropts)
		c.breaker = newBreaker(c.logger)
	}
	return c, nil
}

func newBreaker(logger zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("circuit_breaker", name).
				Str("from_state", from.String()).
				Str("to_state", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

// Ping checks the Redis tier. A local-only cache is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

// Get loads key into dst. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	if raw, ok := c.local.Get(key); ok {
		if err := json.Unmarshal(raw, dst); err == nil {
			c.localHits.Add(1)
			return true, nil
		}
		c.local.Remove(key)
	}

	if c.redis != nil {
		raw, err := c.redisGet(ctx, key)
		if err == nil && raw != nil {
			if err := json.Unmarshal(raw, dst); err == nil {
				c.local.Add(key, raw)
				c.redisHits.Add(1)
				return true, nil
			}
			// corrupted entry
			_ = c.redisDel(ctx, key)
		}
	}

	c.misses.Add(1)
	return false, nil
}

// Set stores v under key in both tiers.
func (c *Cache) Set(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	c.local.Add(key, raw)

	if c.redis != nil {
		if _, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.redis.Set(ctx, c.prefix+key, raw, c.ttl).Err()
		}); err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("redis set skipped")
		}
	}
	return nil
}

// Delete evicts keys from both tiers.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		c.local.Remove(k)
	}
	if c.redis == nil || len(keys) == 0 {
		return nil
	}
	return c.redisDel(ctx, keys...)
}

func (c *Cache) Stats() Stats {
	return Stats{
		LocalHits: c.localHits.Load(),
		RedisHits: c.redisHits.Load(),
		Misses:    c.misses.Load(),
	}
}

func (c *Cache) Close() error {
	c.local.Purge()
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

func (c *Cache) redisGet(ctx context.Context, key string) ([]byte, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		b, err := c.redis.Get(ctx, c.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			// A miss is not a failure.
			return []byte(nil), nil
		}
		return b, err
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("redis get skipped")
		return nil, err
	}
	return res.([]byte), nil
}

func (c *Cache) redisDel(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.redis.Del(ctx, full...).Err()
	})
	if err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("redis delete failed")
	}
	return err
}
