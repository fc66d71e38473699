package directory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cache-store-api/internal/cache"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestFileName_Reversible(t *testing.T) {
	for _, key := range []string{"", "simple", "with space", "ünïcödé", "dots.and-dashes_", "a+b=c?"} {
		name := FileName(key)
		require.NotContains(t, name, "/")
		got, err := KeyFromFileName(name)
		require.NoError(t, err)
		require.Equal(t, key, got)
	}

	_, err := KeyFromFileName("notes.txt")
	require.Error(t, err)
}

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	s := New()

	rec, err := s.FindByKey(ctx, dir, "k")
	require.NoError(t, err)
	require.Nil(t, rec)

	exp := time.Date(2031, 2, 3, 4, 5, 6, 7, time.UTC)
	require.NoError(t, s.Insert(ctx, dir, "k", cache.Record{Value: []byte("payload"), Expiration: &exp}))

	exists, err := s.Exists(ctx, dir, "k")
	require.NoError(t, err)
	require.True(t, exists)

	rec, err = s.FindByKey(ctx, dir, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), rec.Value)
	require.True(t, rec.Expiration.Equal(exp))

	require.NoError(t, s.Update(ctx, dir, "k", cache.Record{Value: []byte("new")}))
	rec, err = s.FindByKey(ctx, dir, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), rec.Value)
	require.Nil(t, rec.Expiration)

	keys, err := s.Keys(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, []string{"k"}, keys)
}

func TestStorage_DeleteMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New()

	require.NoError(t, s.Delete(ctx, dir, []string{"never"}))
	require.NoError(t, s.Upsert(ctx, dir, "k", cache.Record{Value: []byte("v")}))
	require.NoError(t, s.Delete(ctx, dir, []string{"k", "never"}))

	exists, err := s.Exists(ctx, dir, "k")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestStorage_DeleteAllKeepsForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New()

	require.NoError(t, s.Upsert(ctx, dir, "a", cache.Record{Value: []byte("1")}))
	require.NoError(t, s.Upsert(ctx, dir, "b", cache.Record{Value: []byte("2")}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("keep"), 0o644))

	require.NoError(t, s.DeleteAll(ctx, dir))
	keys, err := s.Keys(ctx, dir)
	require.NoError(t, err)
	require.Empty(t, keys)
	_, err = os.Stat(filepath.Join(dir, "README"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteAll(ctx, filepath.Join(dir, "missing")))
}

func TestStorage_CorruptRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName("k")), []byte{0xc1}, 0o644))

	_, err := New().FindByKey(ctx, dir, "k")
	require.Error(t, err)

	c := NewCache(dir)
	_, err = c.Get(ctx, "k", nil)
	require.True(t, errors.Is(err, cache.ErrStorageFailure))
}

func TestNewCache_EndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	now := base
	c := NewCache(dir, cache.WithClock(func() time.Time { return now }))

	require.NoError(t, c.Set(ctx, "user.1", map[string]any{"name": "ada"}, cache.For(time.Minute)))
	v, err := c.Get(ctx, "user.1", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"name": "ada"}, v)

	_, err = os.Stat(filepath.Join(dir, FileName("user.1")))
	require.NoError(t, err)

	now = base.Add(time.Minute)
	has, err := c.Has(ctx, "user.1")
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, c.Delete(ctx, "user.1"))
	require.NoError(t, c.Delete(ctx, "user.1"))

	err = c.Set(ctx, "bad\\key", 1, cache.Forever)
	require.True(t, errors.Is(err, cache.ErrInvalidKey))
}

func TestNewCache_IntegerRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewCache(t.TempDir())

	for in, want := range map[any]int64{42: 42, -7: -7, 300: 300, uint(5): 5, int64(1 << 40): 1 << 40} {
		require.NoError(t, c.Set(ctx, "n", in, cache.Forever))
		got, err := c.Get(ctx, "n", nil)
		require.NoError(t, err)
		require.Equal(t, want, got, "%T(%v)", in, in)
	}
}

func TestStorage_LongKey(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	long := strings.Repeat("k", 400)

	name := FileName(long)
	require.LessOrEqual(t, len(name), 255)
	require.True(t, strings.HasPrefix(name, "~"))
	require.Equal(t, name, FileName(long))
	require.NotEqual(t, name, FileName(long+"x"))
	_, err := KeyFromFileName(name)
	require.Error(t, err)

	// the longest key that still fits keeps the reversible encoding
	fits := strings.Repeat("k", 186)
	require.False(t, strings.HasPrefix(FileName(fits), "~"))

	c := NewCache(dir)
	require.NoError(t, c.Set(ctx, long, "v", cache.Forever))
	require.NoError(t, c.Set(ctx, "short", "s", cache.Forever))
	v, err := c.Get(ctx, long, nil)
	require.NoError(t, err)
	require.Equal(t, "v", v)

	keys, err := New().Keys(ctx, dir)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{long, "short"}, keys)

	require.NoError(t, c.Delete(ctx, long))
	has, err := c.Has(ctx, long)
	require.NoError(t, err)
	require.False(t, has)
}
