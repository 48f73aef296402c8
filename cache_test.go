package alba_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Watson1978/alba"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullCache_AlwaysComputes(t *testing.T) {
	ctx := context.Background()
	var calls int
	compute := func() ([]byte, error) {
		calls++
		return []byte("v"), nil
	}

	c := alba.NullCache{}
	for i := 0; i < 3; i++ {
		b, err := c.FetchOrCompute(ctx, "k", compute)
		require.NoError(t, err)
		assert.Equal(t, "v", string(b))
	}
	assert.Equal(t, 3, calls)
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestMemoryCache_ComputesOnce(t *testing.T) {
	ctx := context.Background()
	c := alba.NewMemoryCache(alba.MemoryCacheOptions{TTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	var calls int
	compute := func() ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}

	for i := 0; i < 3; i++ {
		b, err := c.FetchOrCompute(ctx, "post:1", compute)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(b))
	}
	assert.Equal(t, 1, calls)
}

func TestMemoryCache_ComputeErrorNotStored(t *testing.T) {
	ctx := context.Background()
	c := alba.NewMemoryCache(alba.MemoryCacheOptions{TTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	boom := errors.New("boom")
	_, err := c.FetchOrCompute(ctx, "post:1", func() ([]byte, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	// The failed compute must not have been cached.
	b, err := c.FetchOrCompute(ctx, "post:1", func() ([]byte, error) { return []byte("ok"), nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", string(b))
}

func TestMemoryCache_DeleteForcesRecompute(t *testing.T) {
	ctx := context.Background()
	c := alba.NewMemoryCache(alba.MemoryCacheOptions{TTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	var calls int
	compute := func() ([]byte, error) {
		calls++
		return []byte(fmt.Sprintf("v%d", calls)), nil
	}

	_, _ = c.FetchOrCompute(ctx, "k", compute)
	require.NoError(t, c.Delete(ctx, "k"))
	b, err := c.FetchOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(b))
}

// ─── Engine-level caching ────────────────────────────────────────────────────

type versioned struct {
	ID      int
	Version int
	Title   string
}

func cachedSchema() *alba.Schema {
	return alba.NewSchema("post").
		Attributes("id", "title").
		CacheKey(func(object any) string {
			v := object.(versioned)
			return fmt.Sprintf("%d-v%d", v.ID, v.Version)
		})
}

func TestEngine_CachesByVersionedIdentity(t *testing.T) {
	cache := alba.NewMemoryCache(alba.MemoryCacheOptions{TTL: time.Minute})
	e, err := alba.New(alba.Config{Cache: cache})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	ctx := context.Background()
	s := cachedSchema()

	obj := versioned{ID: 1, Version: 1, Title: "first"}
	out1, err := e.Serialize(ctx, s, obj)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"title":"first"}`, string(out1))

	// Same identity: the stale cached payload is returned even though the
	// object changed.
	obj.Title = "mutated"
	out2, err := e.Serialize(ctx, s, obj)
	require.NoError(t, err)
	assert.Equal(t, string(out1), string(out2))

	// Version bump: new key, fresh render.
	obj.Version = 2
	out3, err := e.Serialize(ctx, s, obj)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"title":"mutated"}`, string(out3))
}

func TestEngine_NoCacheKeyBypassesCache(t *testing.T) {
	cache := alba.NewMemoryCache(alba.MemoryCacheOptions{TTL: time.Minute})
	e, err := alba.New(alba.Config{Cache: cache})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	ctx := context.Background()
	s := alba.NewSchema("post").Attributes("id", "title") // no CacheKey

	obj := versioned{ID: 1, Title: "a"}
	out1, err := e.Serialize(ctx, s, obj)
	require.NoError(t, err)

	obj.Title = "b"
	out2, err := e.Serialize(ctx, s, obj)
	require.NoError(t, err)
	assert.NotEqual(t, string(out1), string(out2), "every call must re-render")
}

func TestEngine_Invalidate(t *testing.T) {
	cache := alba.NewMemoryCache(alba.MemoryCacheOptions{TTL: time.Minute})
	e, err := alba.New(alba.Config{Cache: cache})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	ctx := context.Background()
	s := cachedSchema()

	obj := versioned{ID: 1, Version: 1, Title: "first"}
	_, err = e.Serialize(ctx, s, obj)
	require.NoError(t, err)

	obj.Title = "second"
	require.NoError(t, e.Invalidate(ctx, s, obj))

	out, err := e.Serialize(ctx, s, obj)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"title":"second"}`, string(out))
	assert.Equal(t, int64(1), e.Stats().Invalidations)
}

func TestEngine_OverrideFormatterBypassesCache(t *testing.T) {
	cache := alba.NewMemoryCache(alba.MemoryCacheOptions{TTL: time.Minute})
	e, err := alba.New(alba.Config{Cache: cache})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	ctx := context.Background()
	s := cachedSchema()
	obj := versioned{ID: 1, Version: 1, Title: "x"}

	_, err = e.Serialize(ctx, s, obj) // primes the cache
	require.NoError(t, err)

	out, err := e.Bind(s, obj).SerializeWith(ctx,
		func(r *alba.Resource) ([]byte, error) { return []byte("override"), nil })
	require.NoError(t, err)
	assert.Equal(t, "override", string(out))
}

func TestEngine_EncryptedCachePayloads(t *testing.T) {
	cache := alba.NewMemoryCache(alba.MemoryCacheOptions{TTL: time.Minute})
	key := make([]byte, 32)
	copy(key, "0123456789abcdef0123456789abcdef")
	e, err := alba.New(alba.Config{Cache: cache, EncryptionKey: key})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	ctx := context.Background()
	s := cachedSchema()
	obj := versioned{ID: 5, Version: 1, Title: "secret"}

	out1, err := e.Serialize(ctx, s, obj)
	require.NoError(t, err)
	assert.Equal(t, `{"id":5,"title":"secret"}`, string(out1))

	// Hit path: fetched payload is decrypted transparently.
	out2, err := e.Serialize(ctx, s, obj)
	require.NoError(t, err)
	assert.Equal(t, string(out1), string(out2))

	// What sits in the backend must not be the plaintext.
	raw, err := cache.FetchOrCompute(ctx, "post:5-v1", func() ([]byte, error) {
		t.Fatal("payload should already be cached")
		return nil, nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, string(out1), string(raw))
}

func TestEngine_BadEncryptionKey(t *testing.T) {
	_, err := alba.New(alba.Config{EncryptionKey: []byte("short")})
	require.ErrorIs(t, err, alba.ErrInvalidConfig)
}

// ─── Redis / tiered ──────────────────────────────────────────────────────────

func newRedisCache(t *testing.T, channel string) (*alba.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return alba.NewRedisCache(alba.RedisCacheOptions{
		Client:              client,
		TTL:                 time.Minute,
		InvalidationChannel: channel,
	}), mr
}

func TestRedisCache_FetchOrCompute(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisCache(t, "")

	var calls int
	compute := func() ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}

	for i := 0; i < 2; i++ {
		b, err := c.FetchOrCompute(ctx, "post:1", compute)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(b))
	}
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Delete(ctx, "post:1"))
	_, err := c.FetchOrCompute(ctx, "post:1", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRedisCache_EngineIntegration(t *testing.T) {
	c, _ := newRedisCache(t, "")
	e, err := alba.New(alba.Config{Cache: c})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	ctx := context.Background()
	s := cachedSchema()

	obj := versioned{ID: 2, Version: 3, Title: "redis"}
	out, err := e.Serialize(ctx, s, obj)
	require.NoError(t, err)
	assert.Equal(t, `{"id":2,"title":"redis"}`, string(out))

	obj.Title = "stale"
	out2, err := e.Serialize(ctx, s, obj)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2), "second call must be served from Redis")
}

func TestTieredCache_FallthroughAndBackfill(t *testing.T) {
	ctx := context.Background()
	mem := alba.NewMemoryCache(alba.MemoryCacheOptions{TTL: time.Minute})
	rc, mr := newRedisCache(t, "")

	tiered := alba.NewTieredCache(alba.TieredCacheOptions{
		Tiers: []alba.Tier{mem, rc},
	})
	t.Cleanup(func() { _ = tiered.Close() })

	var calls int
	compute := func() ([]byte, error) {
		calls++
		return []byte("deep"), nil
	}

	// Full miss: compute once, write through both tiers.
	b, err := tiered.FetchOrCompute(ctx, "post:9", compute)
	require.NoError(t, err)
	assert.Equal(t, "deep", string(b))
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("post:9"))

	// Drop the memory tier only: the Redis hit must backfill memory, not
	// recompute.
	require.NoError(t, mem.Delete(ctx, "post:9"))
	b, err = tiered.FetchOrCompute(ctx, "post:9", compute)
	require.NoError(t, err)
	assert.Equal(t, "deep", string(b))
	assert.Equal(t, 1, calls)

	got, ok, err := mem.Get(ctx, "post:9")
	require.NoError(t, err)
	require.True(t, ok, "memory tier must be backfilled")
	assert.Equal(t, "deep", string(got))
}

func TestTieredCache_DeleteFansOut(t *testing.T) {
	ctx := context.Background()
	mem := alba.NewMemoryCache(alba.MemoryCacheOptions{TTL: time.Minute})
	rc, mr := newRedisCache(t, "")

	tiered := alba.NewTieredCache(alba.TieredCacheOptions{Tiers: []alba.Tier{mem, rc}})
	t.Cleanup(func() { _ = tiered.Close() })

	_, err := tiered.FetchOrCompute(ctx, "post:1", func() ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)

	require.NoError(t, tiered.Delete(ctx, "post:1"))
	_, ok, err := mem.Get(ctx, "post:1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("post:1"))
}

func TestTieredCache_RemoteInvalidationDropsUpperTiers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := alba.NewMemoryCache(alba.MemoryCacheOptions{TTL: time.Minute})
	rc, _ := newRedisCache(t, "alba:invalidate")

	tiered := alba.NewTieredCache(alba.TieredCacheOptions{Tiers: []alba.Tier{mem, rc}})
	tiered.Start(ctx)
	t.Cleanup(func() { _ = tiered.Close() })

	_, err := tiered.FetchOrCompute(ctx, "post:1", func() ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)

	// A Delete on the Redis tier publishes the key; the listener must drop it
	// from the memory tier.
	require.NoError(t, rc.Delete(ctx, "post:1"))
	assert.Eventually(t, func() bool {
		_, ok, _ := mem.Get(ctx, "post:1")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}
