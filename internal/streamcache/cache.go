/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package streamcache memoises resolved stream descriptors. Resolution is
// network-bound and slow; descriptors are reusable until their upstream URL
// expires, so entries carry a bounded TTL.
package streamcache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Skssssee/Musict/internal/models"
	"github.com/Skssssee/Musict/internal/resolver"
	"github.com/Skssssee/Musict/internal/telemetry"
)

const redisKeyPrefix = "musict:cache:stream:"

// Config contains cache configuration.
type Config struct {
	TTL            time.Duration
	ResolveTimeout time.Duration

	// Optional Redis mirror so descriptors survive a restart. Empty addr
	// runs memory-only.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type entry struct {
	Resolution resolver.Resolution `json:"resolution"`
	ResolvedAt time.Time           `json:"resolved_at"`
}

// Cache wraps the upstream resolver with a TTL-bounded memo. Concurrent
// resolutions for the same key may race; the cache is last-writer-wins.
type Cache struct {
	upstream resolver.Resolver
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]entry

	rmu      sync.RWMutex
	client   *redis.Client
	disabled bool
}

// New creates a cache. When Redis is configured but unreachable the cache
// degrades to memory-only rather than failing startup.
func New(upstream resolver.Resolver, cfg Config, logger zerolog.Logger) *Cache {
	c := &Cache{
		upstream: upstream,
		cfg:      cfg,
		logger:   logger.With().Str("component", "streamcache").Logger(),
		now:      time.Now,
		entries:  make(map[string]entry),
	}

	if cfg.RedisAddr == "" {
		return c
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Redis unavailable, stream cache runs memory-only")
		return c
	}

	c.client = client
	c.logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis stream cache mirror initialized")
	return c
}

// Close releases the Redis connection if one was established.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Key normalises a query into its cache key. Audio and video resolutions of
// the same query yield different descriptors, so the kind is part of the key.
func Key(query string, kind models.MediaKind) string {
	normalized := strings.Join(strings.Fields(query), " ")
	return string(kind) + ":" + normalized
}

// Resolve returns a live cached resolution or asks the upstream resolver.
// Failures are never cached.
func (c *Cache) Resolve(ctx context.Context, query string, kind models.MediaKind) (resolver.Resolution, error) {
	key := Key(query, kind)

	if res, ok := c.lookupMemory(key); ok {
		telemetry.ResolveCacheHits.Inc()
		return res, nil
	}
	if res, ok := c.lookupRedis(ctx, key); ok {
		telemetry.ResolveCacheHits.Inc()
		return res, nil
	}

	telemetry.ResolveCacheMisses.Inc()

	resolveCtx := ctx
	if c.cfg.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		resolveCtx, cancel = context.WithTimeout(ctx, c.cfg.ResolveTimeout)
		defer cancel()
	}

	res, err := c.upstream.Resolve(resolveCtx, query, kind)
	if err != nil {
		var typed *resolver.Error
		if !errors.As(err, &typed) && errors.Is(resolveCtx.Err(), context.DeadlineExceeded) {
			err = &resolver.Error{Kind: resolver.KindNetwork, Query: query, Err: err}
		}
		return resolver.Resolution{}, err
	}

	c.storeEntry(ctx, key, entry{Resolution: res, ResolvedAt: c.now()})
	return res, nil
}

// Invalidate drops the cached entry for a query, typically after a playback
// failure attributable to an expired descriptor.
func (c *Cache) Invalidate(ctx context.Context, query string, kind models.MediaKind) {
	key := Key(query, kind)

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if client := c.redisClient(); client != nil {
		if err := client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
			c.handleRedisError(err, "del")
		}
	}
	c.logger.Debug().Str("key", key).Msg("stream cache entry invalidated")
}

func (c *Cache) lookupMemory(key string) (resolver.Resolution, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.expired(e) {
		return resolver.Resolution{}, false
	}
	return e.Resolution, true
}

func (c *Cache) lookupRedis(ctx context.Context, key string) (resolver.Resolution, bool) {
	client := c.redisClient()
	if client == nil {
		return resolver.Resolution{}, false
	}

	data, err := client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return resolver.Resolution{}, false
	}
	if err != nil {
		c.handleRedisError(err, "get")
		return resolver.Resolution{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached entry")
		return resolver.Resolution{}, false
	}
	if c.expired(e) {
		return resolver.Resolution{}, false
	}

	// Warm the in-process map for subsequent lookups.
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	return e.Resolution, true
}

func (c *Cache) storeEntry(ctx context.Context, key string, e entry) {
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	client := c.redisClient()
	if client == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := client.Set(ctx, redisKeyPrefix+key, data, c.cfg.TTL).Err(); err != nil {
		c.handleRedisError(err, "set")
	}
}

func (c *Cache) expired(e entry) bool {
	return c.cfg.TTL > 0 && c.now().Sub(e.ResolvedAt) > c.cfg.TTL
}

func (c *Cache) redisClient() *redis.Client {
	c.rmu.RLock()
	defer c.rmu.RUnlock()
	if c.disabled {
		return nil
	}
	return c.client
}

func (c *Cache) handleRedisError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}
	c.logger.Warn().Err(err).Str("operation", operation).Msg("disabling Redis mirror after error")
	c.rmu.Lock()
	c.disabled = true
	c.rmu.Unlock()
}
