package cache_test

import (
	"context"
	"testing"
	"time"

	"cache-store-api/internal/cache"
	"cache-store-api/internal/testutil"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func newSimpleCache(t *testing.T, now *time.Time) (*cache.SimpleCache, *testutil.MemoryStorage) {
	t.Helper()
	store := testutil.NewMemoryStorage()
	clock := cache.WithClock(func() time.Time { return *now })
	return cache.NewSimpleCache(cache.NewPool(store, ns, clock), clock), store
}

func TestSimpleCache_SetGet_NoTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, _ := newSimpleCache(t, &now)

	require.NoError(t, c.Set(ctx, "a", "value", cache.Forever))
	v, err := c.Get(ctx, "a", "default")
	require.NoError(t, err)
	require.Equal(t, "value", v)

	has, err := c.Has(ctx, "a")
	require.NoError(t, err)
	require.True(t, has)

	// far in the future it is still there
	now = now.AddDate(100, 0, 0)
	v, err = c.Get(ctx, "a", "default")
	require.NoError(t, err)
	require.Equal(t, "value", v)
}

func TestSimpleCache_TTL_Expiry(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	now := base
	c, store := newSimpleCache(t, &now)

	require.NoError(t, c.Set(ctx, "k", "v", cache.Seconds(1)))
	v, err := c.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.Equal(t, "v", v)

	now = base.Add(2 * time.Second)
	v, err = c.Get(ctx, "k", "gone")
	require.NoError(t, err)
	require.Equal(t, "gone", v)
	has, err := c.Has(ctx, "k")
	require.NoError(t, err)
	require.False(t, has)

	// no background sweep
	require.Equal(t, 1, store.Len(ns))
}

func TestSimpleCache_ZeroTTLIsImmediatelyExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	c, _ := newSimpleCache(t, &now)

	require.NoError(t, c.Set(ctx, "k", "v", cache.Seconds(0)))
	v, err := c.Get(ctx, "k", "default")
	require.NoError(t, err)
	require.Equal(t, "default", v)

	require.NoError(t, c.Set(ctx, "past", "v", cache.For(-time.Minute)))
	has, err := c.Has(ctx, "past")
	require.NoError(t, err)
	require.False(t, has)
}

func TestSimpleCache_DurationTTL(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	now := base
	c, _ := newSimpleCache(t, &now)

	require.NoError(t, c.Set(ctx, "k", 42, cache.For(time.Hour)))
	item, err := c.Pool().GetItem(ctx, "k")
	require.NoError(t, err)
	exp, ok := item.Expiration()
	require.True(t, ok)
	require.True(t, exp.Equal(base.Add(time.Hour)))

	now = base.Add(59 * time.Minute)
	has, err := c.Has(ctx, "k")
	require.NoError(t, err)
	require.True(t, has)
	v, err := c.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), v)
}

func TestSimpleCache_InvalidTTLBeforeStorage(t *testing.T) {
	now := time.Now()
	c, store := newSimpleCache(t, &now)

	err := c.Set(context.Background(), "k", "v", cache.Seconds(-1))
	require.True(t, errors.Is(err, cache.ErrInvalidExpiration))
	require.Equal(t, 0, store.Calls())
}

func TestSimpleCache_DeleteNeverSet(t *testing.T) {
	now := time.Now()
	c, _ := newSimpleCache(t, &now)
	require.NoError(t, c.Delete(context.Background(), "never"))
}

func TestSimpleCache_InvalidKeyEverywhere(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, store := newSimpleCache(t, &now)

	_, err := c.Get(ctx, "a/b", nil)
	require.True(t, errors.Is(err, cache.ErrInvalidKey))
	require.True(t, errors.Is(c.Set(ctx, "a/b", 1, cache.Forever), cache.ErrInvalidKey))
	_, err = c.Has(ctx, "a/b")
	require.True(t, errors.Is(err, cache.ErrInvalidKey))
	require.True(t, errors.Is(c.Delete(ctx, "a/b"), cache.ErrInvalidKey))
	_, err = c.GetMultiple(ctx, []string{"ok", "a/b"}, nil)
	require.True(t, errors.Is(err, cache.ErrInvalidKey))
	_, err = c.SetMultiple(ctx, map[string]any{"ok": 1, "a/b": 2}, cache.Forever)
	require.True(t, errors.Is(err, cache.ErrInvalidKey))
	_, err = c.DeleteMultiple(ctx, []string{"ok", "a/b"})
	require.True(t, errors.Is(err, cache.ErrInvalidKey))

	require.Equal(t, 0, store.Calls())
}

func TestSimpleCache_GetMultipleDefaults(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, _ := newSimpleCache(t, &now)

	require.NoError(t, c.Set(ctx, "k1", "stored", cache.Forever))
	values, err := c.GetMultiple(ctx, []string{"k1", " k2 "}, "D")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"k1": "stored", "k2": "D"}, values)
}

func TestSimpleCache_SetMultiple(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, _ := newSimpleCache(t, &now)

	ok, err := c.SetMultiple(ctx, map[string]any{"a": "1", "b": "2"}, cache.Seconds(60))
	require.NoError(t, err)
	require.True(t, ok)

	values, err := c.GetMultiple(ctx, []string{"a", "b"}, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": "1", "b": "2"}, values)
}

func TestSimpleCache_SetMultiplePartialFailure(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, store := newSimpleCache(t, &now)
	store.FailKey("b")

	ok, err := c.SetMultiple(ctx, map[string]any{"a": 1, "b": 2, "c": 3}, cache.Forever)
	require.False(t, ok)
	require.True(t, errors.Is(err, cache.ErrStorageFailure))

	// every key was attempted
	for _, key := range []string{"a", "c"} {
		has, err := c.Has(ctx, key)
		require.NoError(t, err)
		require.True(t, has, key)
	}
}

func TestSimpleCache_DeleteMultiple(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, store := newSimpleCache(t, &now)

	_, err := c.SetMultiple(ctx, map[string]any{"a": 1, "b": 2, "c": 3}, cache.Forever)
	require.NoError(t, err)

	store.FailKey("b")
	ok, err := c.DeleteMultiple(ctx, []string{"a", "b", "c", "missing"})
	require.False(t, ok)
	require.True(t, errors.Is(err, cache.ErrStorageFailure))
	require.Equal(t, 1, store.Len(ns))
}

func TestSimpleCache_Clear(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, _ := newSimpleCache(t, &now)

	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		require.NoError(t, c.Set(ctx, k, k, cache.Forever))
	}
	require.NoError(t, c.Clear(ctx))
	for _, k := range keys {
		has, err := c.Has(ctx, k)
		require.NoError(t, err)
		require.False(t, has)
	}
}

func TestSimpleCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, _ := newSimpleCache(t, &now)

	values := map[string]any{
		"string": "hello",
		"bool":   true,
		"bytes":  []byte{1, 2, 3},
		"float":  3.25,
		"nil":    nil,
		"list":   []any{"x", "y"},
		"map":    map[string]any{"name": "n"},
	}
	for k, v := range values {
		require.NoError(t, c.Set(ctx, k, v, cache.Forever))
		got, err := c.Get(ctx, k, "default")
		require.NoError(t, err)
		require.Equal(t, v, got, k)
	}
}

func TestSimpleCache_IntegersComeBackAsInt64(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, _ := newSimpleCache(t, &now)

	cases := []struct {
		name string
		in   any
		want any
	}{
		{"int", 42, int64(42)},
		{"negative int", -7, int64(-7)},
		{"int above 255", 300, int64(300)},
		{"large int", 1 << 40, int64(1 << 40)},
		{"int64", int64(-1 << 40), int64(-1 << 40)},
		{"int8", int8(-100), int64(-100)},
		{"uint", uint(5), int64(5)},
		{"uint16", uint16(65000), int64(65000)},
		{"huge uint64", uint64(1 << 63), uint64(1 << 63)},
		{"nested", map[string]any{"n": 300, "list": []any{1, uint8(2)}}, map[string]any{"n": int64(300), "list": []any{int64(1), int64(2)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "n", tc.in, cache.Forever))
			got, err := c.Get(ctx, "n", nil)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	// typed reads keep the caller's type
	require.NoError(t, c.Set(ctx, "n", 300, cache.Forever))
	n, err := cache.GetAs(ctx, c, "n", 0)
	require.NoError(t, err)
	require.Equal(t, 300, n)
	u, err := cache.GetAs(ctx, c, "n", uint16(0))
	require.NoError(t, err)
	require.Equal(t, uint16(300), u)
}

type profile struct {
	Name  string `msgpack:"name"`
	Level int    `msgpack:"level"`
}

func TestGetAs(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, _ := newSimpleCache(t, &now)

	require.NoError(t, c.Set(ctx, "p", profile{Name: "ada", Level: 3}, cache.Forever))
	p, err := cache.GetAs(ctx, c, "p", profile{})
	require.NoError(t, err)
	require.Equal(t, profile{Name: "ada", Level: 3}, p)

	p, err = cache.GetAs(ctx, c, "missing", profile{Name: "default"})
	require.NoError(t, err)
	require.Equal(t, "default", p.Name)

	n, err := cache.GetAs(ctx, c, "counter", 7)
	require.NoError(t, err)
	require.Equal(t, 7, n)
}

func TestAware(t *testing.T) {
	var holder struct {
		cache.Aware
	}
	require.False(t, holder.HasPool())
	require.Nil(t, holder.Pool())

	pool := cache.NewPool(testutil.NewMemoryStorage(), ns)
	holder.SetPool(pool)
	require.True(t, holder.HasPool())
	require.Same(t, pool, holder.Pool())

	holder.SetPool(nil)
	require.False(t, holder.HasPool())
}

func TestSimpleCache_ClockIsNotSharedWithPool(t *testing.T) {
	ctx := context.Background()
	past := cache.FixedClock(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	store := testutil.NewMemoryStorage()

	// TTL math runs on the cache clock, hit/miss on the pool clock
	c := cache.NewSimpleCache(cache.NewPool(store, ns), cache.WithClock(past))
	require.NoError(t, c.Set(ctx, "k", "v", cache.For(time.Hour)))
	has, err := c.Has(ctx, "k")
	require.NoError(t, err)
	require.False(t, has)

	shared := cache.NewSimpleCache(cache.NewPool(store, ns, cache.WithClock(past)), cache.WithClock(past))
	has, err = shared.Has(ctx, "k")
	require.NoError(t, err)
	require.True(t, has)
}
