package cache

import (
	"context"
	"maps"
	"slices"

	"github.com/cockroachdb/errors"
)

// SimpleCache is the value-level API over an ItemPool. It converts TTLs into
// absolute expirations against its clock and always writes immediately.
type SimpleCache struct {
	pool ItemPool
	cfg  config
}

var _ Cache = (*SimpleCache)(nil)

// NewSimpleCache wraps pool. Pass WithClock to pin "now" for TTL math. The
// option does not reach pool, which decides hit or miss with its own clock:
// give both the same WithClock, as table.NewCache and directory.NewCache do.
func NewSimpleCache(pool ItemPool, opts ...Option) *SimpleCache {
	return &SimpleCache{pool: pool, cfg: applyOptions(opts)}
}

// Pool returns the underlying item pool.
func (c *SimpleCache) Pool() ItemPool {
	return c.pool
}

func (c *SimpleCache) Get(ctx context.Context, key string, def any) (any, error) {
	item, err := c.pool.GetItem(ctx, key)
	if err != nil {
		return def, err
	}
	if item.IsHit() {
		return item.Get(), nil
	}
	return def, nil
}

func (c *SimpleCache) Set(ctx context.Context, key string, value any, ttl TTL) error {
	key, err := ValidateKey(key)
	if err != nil {
		return err
	}
	item, err := c.newItem(key, value, ttl)
	if err != nil {
		return err
	}
	return c.pool.Save(ctx, item)
}

func (c *SimpleCache) Delete(ctx context.Context, key string) error {
	return c.pool.DeleteItem(ctx, key)
}

func (c *SimpleCache) Clear(ctx context.Context) error {
	return c.pool.Clear(ctx)
}

func (c *SimpleCache) Has(ctx context.Context, key string) (bool, error) {
	return c.pool.HasItem(ctx, key)
}

func (c *SimpleCache) GetMultiple(ctx context.Context, keys []string, def any) (map[string]any, error) {
	keys, err := ValidateKeys(keys)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(keys))
	for _, key := range keys {
		v, err := c.Get(ctx, key, def)
		if err != nil {
			return nil, err
		}
		values[key] = v
	}
	return values, nil
}

// SetMultiple validates every key and the TTL, then attempts every write even
// after a failure. The error reports how many writes failed, not which.
func (c *SimpleCache) SetMultiple(ctx context.Context, values map[string]any, ttl TTL) (bool, error) {
	raw := slices.Sorted(maps.Keys(values))
	keys, err := ValidateKeys(raw)
	if err != nil {
		return false, err
	}
	exp, err := ttl.ExpirationFrom(c.cfg.clock())
	if err != nil {
		return false, err
	}

	failed := 0
	for i, key := range keys {
		item := &Item{key: key, value: values[raw[i]], clock: c.cfg.clock, codec: c.cfg.codec}
		item.ExpiresAt(exp)
		if err := c.pool.Save(ctx, item); err != nil {
			failed++
		}
	}
	return failed == 0, partialFailure("set", failed, len(keys))
}

// DeleteMultiple validates every key, then attempts every delete.
func (c *SimpleCache) DeleteMultiple(ctx context.Context, keys []string) (bool, error) {
	keys, err := ValidateKeys(keys)
	if err != nil {
		return false, err
	}
	failed := 0
	for _, key := range keys {
		if err := c.pool.DeleteItem(ctx, key); err != nil {
			failed++
		}
	}
	return failed == 0, partialFailure("delete", failed, len(keys))
}

func (c *SimpleCache) newItem(key string, value any, ttl TTL) (*Item, error) {
	exp, err := ttl.ExpirationFrom(c.cfg.clock())
	if err != nil {
		return nil, err
	}
	item := &Item{key: key, value: value, clock: c.cfg.clock, codec: c.cfg.codec}
	return item.ExpiresAt(exp), nil
}

func partialFailure(op string, failed, total int) error {
	if failed == 0 {
		return nil
	}
	return errors.Mark(errors.Newf("cache: %s failed for %d of %d keys", op, failed, total), ErrStorageFailure)
}

// GetAs reads key through c and decodes the stored payload into T. It returns
// def on a miss.
func GetAs[T any](ctx context.Context, c *SimpleCache, key string, def T) (T, error) {
	item, err := c.pool.GetItem(ctx, key)
	if err != nil {
		return def, err
	}
	var out T
	ok, err := item.Decode(&out)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return out, nil
}
