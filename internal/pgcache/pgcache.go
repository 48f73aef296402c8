// Copyright (c) 2026 The Alba Authors
// Author: Watson (https://github.com/Watson1978)
//
// pgcache.go — PostgreSQL-backed cache adapter: a single key/payload table
// with upsert semantics, used as a durable bottom tier for serialized
// payloads.

// Package pgcache provides the PostgreSQL cache adapter.
package pgcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table used when Options.Table is empty.
const DefaultTable = "alba_cache"

// Store is the PostgreSQL cache adapter.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// Options configures a new Store.
type Options struct {
	Pool  *pgxpool.Pool
	Table string
}

// New creates a new Store from an existing pool.
func New(opts Options) *Store {
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	return &Store{pool: opts.Pool, table: table}
}

// Pool exposes the underlying pool for lifecycle management.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// EnsureTable creates the cache table if it does not exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		payload    BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("pgcache ensure table %s: %w", s.table, err)
	}
	return nil
}

// Put upserts a payload under key.
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	sql := fmt.Sprintf(
		`INSERT INTO %s (key, payload, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		s.table)
	if _, err := s.pool.Exec(ctx, sql, key, payload); err != nil {
		return fmt.Errorf("pgcache put %s: %w", key, err)
	}
	return nil
}

// Get retrieves a payload. The bool reports whether the key was present.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	sql := fmt.Sprintf("SELECT payload FROM %s WHERE key = $1", s.table)
	err := s.pool.QueryRow(ctx, sql, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("pgcache get %s: %w", key, err)
	}
	return payload, true, nil
}

// Delete removes a key. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE key = $1", s.table)
	if _, err := s.pool.Exec(ctx, sql, key); err != nil {
		return fmt.Errorf("pgcache delete %s: %w", key, err)
	}
	return nil
}

// DeleteAll removes all keys with the given prefix.
func (s *Store) DeleteAll(ctx context.Context, prefix string) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE key LIKE $1", s.table)
	if _, err := s.pool.Exec(ctx, sql, prefix+"%"); err != nil {
		return fmt.Errorf("pgcache delete-all %s: %w", prefix, err)
	}
	return nil
}

// Count returns the number of cached payloads.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	sql := fmt.Sprintf("SELECT count(*) FROM %s", s.table)
	if err := s.pool.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgcache count: %w", err)
	}
	return n, nil
}

// Ping verifies the pool is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
