package alba

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Watson1978/alba/internal/clock"
	"github.com/Watson1978/alba/internal/codec"
	"github.com/Watson1978/alba/internal/metrics"
)

// Re-export types so callers only import this package.
type MetricsRecorder = metrics.MetricsRecorder
type Codec = codec.Codec

// Codecs available for the default formatting strategy.
var (
	CodecJSON    Codec = codec.JSON{}
	CodecMsgPack Codec = codec.MsgPack{}
	CodecCBOR    Codec = codec.CBOR{}
)

// ────────────────────────────────────────────────────────────────────────────
// Config
// ────────────────────────────────────────────────────────────────────────────

// Config contains all Engine configuration.
type Config struct {
	// Cache is the fetch-or-compute backend for serialized payloads.
	// Nil means NullCache: every call recomputes.
	Cache Cache

	// Codec drives the default formatting strategy. Nil means JSON.
	Codec Codec

	// Optional overrideable components
	Clock   clock.Clock
	Metrics metrics.MetricsRecorder
	Logger  Logger

	// Encryption key for cached payloads (must be 32 bytes for AES-256-GCM;
	// nil = disabled).
	EncryptionKey []byte
}

func (c *Config) defaults() {
	if c.Cache == nil {
		c.Cache = NullCache{}
	}
	if c.Codec == nil {
		c.Codec = codec.JSON{}
	}
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop{}
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Stats
// ────────────────────────────────────────────────────────────────────────────

type engineStats struct {
	Serializations atomic.Int64
	Errors         atomic.Int64
	Invalidations  atomic.Int64
}

// Stats is the snapshot returned by Engine.Stats().
type Stats struct {
	Serializations int64
	Errors         int64
	Invalidations  int64
}

// ────────────────────────────────────────────────────────────────────────────
// Engine
// ────────────────────────────────────────────────────────────────────────────

// Engine is the serialization entry-point: it holds the schema registry, the
// cache backend, the default formatting strategy, and observability hooks.
type Engine struct {
	cfg       Config
	registry  *schemaRegistry
	cache     Cache
	formatter Formatter
	encryptor Encryptor
	metrics   metrics.MetricsRecorder
	logger    Logger
	stats     engineStats
	closed    atomic.Bool
}

// New creates and initialises an Engine from the provided Config.
func New(cfg Config) (*Engine, error) {
	cfg.defaults()

	e := &Engine{
		cfg:       cfg,
		registry:  newSchemaRegistry(),
		cache:     cfg.Cache,
		formatter: NewCodecFormatter(cfg.Codec),
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}

	if len(cfg.EncryptionKey) > 0 {
		enc, err := NewAES256GCM(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("%w: encryption init: %v", ErrInvalidConfig, err)
		}
		e.encryptor = enc
	}

	return e, nil
}

// Register stores a schema in the engine registry.
func (e *Engine) Register(s *Schema) error {
	return e.registry.register(s)
}

// Schema returns a registered schema by name.
func (e *Engine) Schema(name string) (*Schema, error) {
	return e.registry.get(name)
}

// Bind wraps object in a Resource governed by schema s.
func (e *Engine) Bind(s *Schema, object any) *Resource {
	return e.BindParams(s, object, nil)
}

// BindParams wraps object in a Resource with shared parameters that computed
// attributes and nested associations can read.
func (e *Engine) BindParams(s *Schema, object any, params Params) *Resource {
	return &Resource{engine: e, schema: s, object: object, params: params}
}

// Serialize is shorthand for Bind(s, object).Serialize(ctx).
func (e *Engine) Serialize(ctx context.Context, s *Schema, object any) ([]byte, error) {
	return e.Bind(s, object).Serialize(ctx)
}

// Invalidate removes the cached payload for object under schema s. A schema
// without a cache-key function, or an object without a derivable key, is a
// no-op.
func (e *Engine) Invalidate(ctx context.Context, s *Schema, object any) error {
	if e.closed.Load() {
		return ErrClosed
	}
	key := cacheKeyFor(s, object)
	if key == "" {
		return nil
	}
	e.stats.Invalidations.Add(1)
	return e.cache.Delete(ctx, key)
}

// Stats returns a snapshot of operational counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Serializations: e.stats.Serializations.Load(),
		Errors:         e.stats.Errors.Load(),
		Invalidations:  e.stats.Invalidations.Load(),
	}
}

// Close shuts the engine down; a closable cache backend is closed with it.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c, ok := e.cache.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// seal encrypts a payload before it reaches a cache backend.
func (e *Engine) seal(b []byte) ([]byte, error) {
	if e.encryptor == nil {
		return b, nil
	}
	return e.encryptor.Encrypt(b)
}

// open decrypts a payload fetched from a cache backend.
func (e *Engine) open(b []byte) ([]byte, error) {
	if e.encryptor == nil {
		return b, nil
	}
	return e.encryptor.Decrypt(b)
}

// defaultEngine backs the package-level Serialize helper: no cache, JSON.
var defaultEngine, _ = New(Config{})

// Serialize renders object through schema s with the package default engine
// (no caching, JSON output).
func Serialize(ctx context.Context, s *Schema, object any) ([]byte, error) {
	return defaultEngine.Serialize(ctx, s, object)
}
