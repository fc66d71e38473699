package table

import (
	"context"
	"testing"
	"time"

	"cache-store-api/internal/cache"
	"cache-store-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestStorage_CRUD(t *testing.T) {
	ctx := context.Background()
	db, err := testutil.NewInMemoryDB("entries")
	require.NoError(t, err)
	s := New(db)

	rec, err := s.FindByKey(ctx, "entries", "k")
	require.NoError(t, err)
	require.Nil(t, rec)

	exists, err := s.Exists(ctx, "entries", "k")
	require.NoError(t, err)
	require.False(t, exists)

	exp := time.Date(2030, 1, 2, 3, 4, 5, 6, time.UTC)
	require.NoError(t, s.Insert(ctx, "entries", "k", cache.Record{Value: []byte("one"), Expiration: &exp}))

	rec, err = s.FindByKey(ctx, "entries", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("one"), rec.Value)
	require.True(t, rec.Expiration.Equal(exp))

	require.NoError(t, s.Update(ctx, "entries", "k", cache.Record{Value: []byte("two")}))
	rec, err = s.FindByKey(ctx, "entries", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("two"), rec.Value)
	require.Nil(t, rec.Expiration)

	exists, err = s.Exists(ctx, "entries", "k")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, s.Delete(ctx, "entries", []string{"k", "missing"}))
	rec, err = s.FindByKey(ctx, "entries", "k")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestStorage_Upsert(t *testing.T) {
	ctx := context.Background()
	db, err := testutil.NewInMemoryDB("entries")
	require.NoError(t, err)
	s := New(db)

	require.NoError(t, s.Upsert(ctx, "entries", "k", cache.Record{Value: []byte("a")}))
	exp := time.Now().Add(time.Minute)
	require.NoError(t, s.Upsert(ctx, "entries", "k", cache.Record{Value: []byte("b"), Expiration: &exp}))

	rec, err := s.FindByKey(ctx, "entries", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("b"), rec.Value)
	require.True(t, rec.Expiration.Equal(exp))

	keys, err := s.Keys(ctx, "entries")
	require.NoError(t, err)
	require.Equal(t, []string{"k"}, keys)
}

func TestStorage_NamespacesAreSeparateTables(t *testing.T) {
	ctx := context.Background()
	db, err := testutil.NewInMemoryDB("one", "two")
	require.NoError(t, err)
	s := New(db)

	require.NoError(t, s.Insert(ctx, "one", "k", cache.Record{Value: []byte("1")}))
	require.NoError(t, s.Insert(ctx, "two", "k", cache.Record{Value: []byte("2")}))

	require.NoError(t, s.DeleteAll(ctx, "one"))
	rec, err := s.FindByKey(ctx, "one", "k")
	require.NoError(t, err)
	require.Nil(t, rec)

	rec, err = s.FindByKey(ctx, "two", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("2"), rec.Value)
}

func TestStorage_MissingTableFails(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	_, err = New(db).FindByKey(context.Background(), "nope", "k")
	require.Error(t, err)
}

func TestNewCache_EndToEnd(t *testing.T) {
	ctx := context.Background()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	now := base
	c, err := NewCache(db, "simple", cache.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "greeting", "hello", cache.Seconds(10)))
	require.NoError(t, c.Set(ctx, "greeting", "hi", cache.Seconds(10)))
	v, err := c.Get(ctx, "greeting", nil)
	require.NoError(t, err)
	require.Equal(t, "hi", v)

	now = base.Add(11 * time.Second)
	v, err = c.Get(ctx, "greeting", "expired")
	require.NoError(t, err)
	require.Equal(t, "expired", v)

	ok, err := c.SetMultiple(ctx, map[string]any{"a": 1.5, "b": nil}, cache.Forever)
	require.NoError(t, err)
	require.True(t, ok)
	values, err := c.GetMultiple(ctx, []string{"a", "b", "c"}, "D")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": 1.5, "b": nil, "c": "D"}, values)

	require.NoError(t, c.Clear(ctx))
	has, err := c.Has(ctx, "a")
	require.NoError(t, err)
	require.False(t, has)
}

func TestPool_DeferredAgainstTable(t *testing.T) {
	ctx := context.Background()
	db, err := testutil.NewInMemoryDB("deferred")
	require.NoError(t, err)
	pool := cache.NewPool(New(db), "deferred")

	for _, key := range []string{"x", "y"} {
		item, err := pool.NewItem(key, key)
		require.NoError(t, err)
		pool.SaveDeferred(item)
	}
	require.NoError(t, pool.Commit(ctx))
	require.Equal(t, 0, pool.Pending())

	items, err := pool.GetItems(ctx, []string{"x", "y"})
	require.NoError(t, err)
	require.Equal(t, "x", items["x"].Get())
	require.Equal(t, "y", items["y"].Get())
}

func TestNewCache_IntegerRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	c, err := NewCache(db, "numbers")
	require.NoError(t, err)

	for in, want := range map[any]int64{42: 42, -7: -7, 300: 300, uint(5): 5, int64(1 << 40): 1 << 40} {
		require.NoError(t, c.Set(ctx, "n", in, cache.Forever))
		got, err := c.Get(ctx, "n", nil)
		require.NoError(t, err)
		require.Equal(t, want, got, "%T(%v)", in, in)
	}
}
