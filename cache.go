// Copyright (c) 2026 The Alba Authors
// Author: Watson (https://github.com/Watson1978)
//
// cache.go — the fetch-or-compute cache contract and its backends: a null
// cache (always recompute), process-local memory, Redis, Postgres, and a
// tiered composition with fallthrough, upper-tier backfill, and pub/sub
// invalidation fan-out.

package alba

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Watson1978/alba/internal/clock"
	"github.com/Watson1978/alba/internal/memcache"
	"github.com/Watson1978/alba/internal/metrics"
	"github.com/Watson1978/alba/internal/pgcache"
	"github.com/Watson1978/alba/internal/rediscache"
)

// Re-export adapter types so callers only import this package.
type EvictionPolicy = memcache.EvictionPolicy

// Eviction policies for MemoryCache.
const (
	EvictLRU  = memcache.LRU
	EvictLFU  = memcache.LFU
	EvictFIFO = memcache.FIFO
)

// Cache is the fetch-or-compute contract the engine serializes through. For
// a given key, FetchOrCompute either returns a previously stored payload or
// invokes compute and stores its result; a compute error is propagated and
// never stored. Concurrency guarantees are the backend's own.
type Cache interface {
	FetchOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Tier is a cache backend that can also participate in a TieredCache:
// direct get/set access lets the composition fall through on miss and
// backfill upper tiers on hit.
type Tier interface {
	Cache
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte) error
}

// ────────────────────────────────────────────────────────────────────────────
// NullCache
// ────────────────────────────────────────────────────────────────────────────

// NullCache always invokes compute and never stores. It is the process-wide
// default when no backend is configured.
type NullCache struct{}

// FetchOrCompute invokes compute unconditionally.
func (NullCache) FetchOrCompute(_ context.Context, _ string, compute func() ([]byte, error)) ([]byte, error) {
	return compute()
}

// Delete is a no-op.
func (NullCache) Delete(context.Context, string) error { return nil }

// ────────────────────────────────────────────────────────────────────────────
// MemoryCache
// ────────────────────────────────────────────────────────────────────────────

// MemoryCacheOptions configures a MemoryCache.
type MemoryCacheOptions struct {
	TTL           time.Duration
	MaxEntries    int
	Eviction      EvictionPolicy
	SweepInterval time.Duration
	Clock         clock.Clock
}

// MemoryCache is a process-local cache backend.
type MemoryCache struct {
	store *memcache.Store
}

// NewMemoryCache creates a MemoryCache.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	return &MemoryCache{store: memcache.New(memcache.Options{
		TTL:           opts.TTL,
		MaxEntries:    opts.MaxEntries,
		Eviction:      opts.Eviction,
		SweepInterval: opts.SweepInterval,
		Clock:         opts.Clock,
	})}
}

// Name returns "memory".
func (c *MemoryCache) Name() string { return "memory" }

// Get retrieves a payload.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := c.store.Get(key)
	return b, ok, nil
}

// Set stores a payload with the configured TTL.
func (c *MemoryCache) Set(_ context.Context, key string, payload []byte) error {
	c.store.Set(key, payload, 0)
	return nil
}

// Delete removes a key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

// FetchOrCompute returns the cached payload or computes and stores it.
func (c *MemoryCache) FetchOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error) {
	if b, ok := c.store.Get(key); ok {
		return b, nil
	}
	b, err := compute()
	if err != nil {
		return nil, err
	}
	c.store.Set(key, b, 0)
	return b, nil
}

// Flush removes every cached payload.
func (c *MemoryCache) Flush() { c.store.Flush() }

// Stats returns hit/miss/entry counts.
func (c *MemoryCache) Stats() memcache.Stats { return c.store.Stats() }

// Close stops the expiry sweeper.
func (c *MemoryCache) Close() error {
	c.store.Close()
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// RedisCache
// ────────────────────────────────────────────────────────────────────────────

// RedisCacheOptions configures a RedisCache.
type RedisCacheOptions struct {
	Client    redis.UniversalClient
	KeyPrefix string
	TTL       time.Duration

	// InvalidationChannel, when set, publishes every Delete on this pub/sub
	// channel so other processes (and tiered caches) can drop local copies.
	InvalidationChannel string
}

// RedisCache is a shared cache backend on Redis.
type RedisCache struct {
	store   *rediscache.Store
	client  redis.UniversalClient
	channel string
}

// NewRedisCache creates a RedisCache.
func NewRedisCache(opts RedisCacheOptions) *RedisCache {
	return &RedisCache{
		store: rediscache.New(rediscache.Options{
			Client:    opts.Client,
			KeyPrefix: opts.KeyPrefix,
			TTL:       opts.TTL,
		}),
		client:  opts.Client,
		channel: opts.InvalidationChannel,
	}
}

// Name returns "redis".
func (c *RedisCache) Name() string { return "redis" }

// Get retrieves a payload; a miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, rediscache.ErrMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// Set stores a payload with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, payload []byte) error {
	return c.store.Set(ctx, key, payload, 0)
}

// Delete removes a key and, when an invalidation channel is configured,
// publishes the key on it.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return err
	}
	if c.channel != "" {
		_ = c.store.Publish(ctx, c.channel, []byte(key)) // best-effort
	}
	return nil
}

// FetchOrCompute returns the cached payload or computes and stores it.
func (c *RedisCache) FetchOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error) {
	b, err := c.store.Get(ctx, key)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, rediscache.ErrMiss) {
		return nil, err
	}
	b, err = compute()
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, b, 0); err != nil {
		return nil, err
	}
	return b, nil
}

// Ping checks that Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error { return c.store.Ping(ctx) }

// Stats returns hit and miss counts.
func (c *RedisCache) Stats() rediscache.Stats { return c.store.Stats() }

// subscribe opens the invalidation subscription; nil when unconfigured.
func (c *RedisCache) subscribe(ctx context.Context) *redis.PubSub {
	if c.channel == "" {
		return nil
	}
	return c.store.Subscribe(ctx, c.channel)
}

// ────────────────────────────────────────────────────────────────────────────
// PostgresCache
// ────────────────────────────────────────────────────────────────────────────

// PostgresCacheOptions configures a PostgresCache. Either Pool or DSN must be
// set; with a DSN the pool is built and owned by the cache.
type PostgresCacheOptions struct {
	Pool  *pgxpool.Pool
	DSN   string
	Table string
}

// PostgresCache is a durable cache backend on PostgreSQL.
type PostgresCache struct {
	store    *pgcache.Store
	ownsPool bool
}

// NewPostgresCache creates a PostgresCache and ensures its table exists.
func NewPostgresCache(ctx context.Context, opts PostgresCacheOptions) (*PostgresCache, error) {
	pool := opts.Pool
	owns := false
	if pool == nil {
		if opts.DSN == "" {
			return nil, fmt.Errorf("%w: postgres cache needs a Pool or DSN", ErrInvalidConfig)
		}
		var err error
		pool, err = pgxpool.New(ctx, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("alba: postgres pool: %w", err)
		}
		owns = true
	}
	store := pgcache.New(pgcache.Options{Pool: pool, Table: opts.Table})
	if err := store.EnsureTable(ctx); err != nil {
		if owns {
			pool.Close()
		}
		return nil, err
	}
	return &PostgresCache{store: store, ownsPool: owns}, nil
}

// Name returns "postgres".
func (c *PostgresCache) Name() string { return "postgres" }

// Get retrieves a payload.
func (c *PostgresCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.store.Get(ctx, key)
}

// Set upserts a payload.
func (c *PostgresCache) Set(ctx context.Context, key string, payload []byte) error {
	return c.store.Put(ctx, key, payload)
}

// Delete removes a key.
func (c *PostgresCache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// FetchOrCompute returns the cached payload or computes and stores it.
func (c *PostgresCache) FetchOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error) {
	b, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return b, nil
	}
	b, err = compute()
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(ctx, key, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Count returns the number of cached payloads.
func (c *PostgresCache) Count(ctx context.Context) (int64, error) { return c.store.Count(ctx) }

// Ping verifies the pool is reachable.
func (c *PostgresCache) Ping(ctx context.Context) error { return c.store.Ping(ctx) }

// Close releases the pool when the cache owns it.
func (c *PostgresCache) Close() error {
	if c.ownsPool {
		c.store.Pool().Close()
	}
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// TieredCache
// ────────────────────────────────────────────────────────────────────────────

// TieredCacheOptions configures a TieredCache.
type TieredCacheOptions struct {
	// Tiers, fastest first (e.g. memory, redis, postgres).
	Tiers   []Tier
	Metrics metrics.MetricsRecorder
	Logger  Logger
}

// TieredCache composes cache backends: reads fall through tiers in order and
// backfill every faster tier on a hit; computed payloads are written through
// to all tiers. When a RedisCache tier declares an invalidation channel,
// Start runs a subscriber that drops remotely invalidated keys from the
// faster tiers.
type TieredCache struct {
	tiers   []Tier
	metrics metrics.MetricsRecorder
	logger  Logger
	pubsub  *redis.PubSub
	done    chan struct{}
}

// NewTieredCache creates a TieredCache.
func NewTieredCache(opts TieredCacheOptions) *TieredCache {
	m := opts.Metrics
	if m == nil {
		m = metrics.Noop{}
	}
	l := opts.Logger
	if l == nil {
		l = noopLogger{}
	}
	return &TieredCache{tiers: opts.Tiers, metrics: m, logger: l}
}

// schemaOf extracts the schema portion of a cache key ("post:42" -> "post")
// for per-tier metrics.
func schemaOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// FetchOrCompute falls through the tiers and backfills on hit; on a full
// miss it computes once and writes through every tier. Tier read errors are
// treated as misses so a degraded backend never fails the serialization.
func (t *TieredCache) FetchOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error) {
	schema := schemaOf(key)
	for i, tier := range t.tiers {
		b, ok, err := tier.Get(ctx, key)
		if err != nil {
			t.logger.Warn("tier read failed", "tier", tier.Name(), "key", key, "err", err)
			t.metrics.RecordMiss(tier.Name(), schema)
			continue
		}
		if !ok {
			t.metrics.RecordMiss(tier.Name(), schema)
			continue
		}
		t.metrics.RecordHit(tier.Name(), schema)
		for _, upper := range t.tiers[:i] {
			if err := upper.Set(ctx, key, b); err != nil {
				t.logger.Warn("tier backfill failed", "tier", upper.Name(), "key", key, "err", err)
			}
		}
		return b, nil
	}

	b, err := compute()
	if err != nil {
		return nil, err
	}
	for _, tier := range t.tiers {
		if err := tier.Set(ctx, key, b); err != nil {
			t.logger.Warn("tier write failed", "tier", tier.Name(), "key", key, "err", err)
		}
	}
	return b, nil
}

// Delete removes the key from every tier.
func (t *TieredCache) Delete(ctx context.Context, key string) error {
	var firstErr error
	for _, tier := range t.tiers {
		if err := tier.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Start launches the invalidation subscriber when a RedisCache tier has an
// invalidation channel. Remotely invalidated keys are dropped from every tier
// above the Redis tier. Safe to call when no such tier exists.
func (t *TieredCache) Start(ctx context.Context) {
	for i, tier := range t.tiers {
		rc, ok := tier.(*RedisCache)
		if !ok {
			continue
		}
		ps := rc.subscribe(ctx)
		if ps == nil {
			continue
		}
		t.pubsub = ps
		t.done = make(chan struct{})
		uppers := t.tiers[:i]
		go func() {
			defer close(t.done)
			ch := ps.Channel()
			for {
				select {
				case msg, ok := <-ch:
					if !ok {
						return
					}
					for _, upper := range uppers {
						if err := upper.Delete(ctx, msg.Payload); err != nil {
							t.logger.Warn("invalidation drop failed",
								"tier", upper.Name(), "key", msg.Payload, "err", err)
						}
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return
	}
}

// Close stops the invalidation subscriber and closes closable tiers.
func (t *TieredCache) Close() error {
	if t.pubsub != nil {
		_ = t.pubsub.Close()
		<-t.done
		t.pubsub = nil
	}
	var firstErr error
	for _, tier := range t.tiers {
		if c, ok := tier.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
