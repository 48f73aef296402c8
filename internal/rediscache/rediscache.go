// Copyright (c) 2026 The Alba Authors
// Author: Watson (https://github.com/Watson1978)
//
// rediscache.go — Redis-backed cache adapter for serialized payloads: raw
// byte get/set with TTL, key prefixing, the ErrMiss sentinel that drives
// clean tier fallthrough, and pub/sub invalidation support.

// Package rediscache provides the Redis cache adapter.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist in Redis. Callers
// use errors.Is(err, rediscache.ErrMiss) to distinguish a cache miss from a
// genuine Redis error.
var ErrMiss = errors.New("rediscache: miss")

// Store is the Redis cache adapter. Payloads are stored as raw bytes; the
// encoding already happened in the formatting strategy upstream.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	hits      atomic.Int64
	misses    atomic.Int64
}

// Options configures a new Store.
type Options struct {
	Client    redis.UniversalClient
	KeyPrefix string
	TTL       time.Duration
}

// New creates a new Store.
func New(opts Options) *Store {
	return &Store{client: opts.Client, keyPrefix: opts.KeyPrefix, ttl: opts.TTL}
}

// key applies the configured prefix. Plain concatenation keeps the hot path
// allocation-light.
func (s *Store) key(key string) string {
	if s.keyPrefix != "" {
		return s.keyPrefix + ":" + key
	}
	return key
}

// Set stores a payload with the given TTL (0 = Options.TTL).
func (s *Store) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.ttl
	}
	k := s.key(key)
	if err := s.client.Set(ctx, k, payload, ttl).Err(); err != nil {
		return fmt.Errorf("rediscache set %s: %w", k, err)
	}
	return nil
}

// Get retrieves a payload. Returns ErrMiss when the key is absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	k := s.key(key)
	b, err := s.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("rediscache get %s: %w", k, err)
	}
	s.hits.Add(1)
	return b, nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	k := s.key(key)
	if err := s.client.Del(ctx, k).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("rediscache delete %s: %w", k, err)
	}
	return nil
}

// DeleteAll removes all keys matching prefix using SCAN+DEL (production-safe,
// no blocking KEYS call).
func (s *Store) DeleteAll(ctx context.Context, prefix string) error {
	pattern := s.key(prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("rediscache scan: %w", err)
		}
		if len(keys) > 0 {
			_ = s.client.Del(ctx, keys...).Err() // best-effort
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}

// Publish sends an invalidation message to the given channel.
func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.client.Publish(ctx, channel, payload).Err()
}

// Subscribe returns a pub/sub subscription on the given channel.
func (s *Store) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return s.client.Subscribe(ctx, channel)
}

// Ping checks that Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Stats returns hit and miss counts.
type Stats struct {
	Hits   int64
	Misses int64
}

// Stats returns current statistics.
func (s *Store) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}
