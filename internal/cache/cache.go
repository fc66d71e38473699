package cache

import "context"

// ItemPool is the item-level API. It is the only layer that talks to a
// Storage and the only place hit/miss is decided.
type ItemPool interface {
	// GetItem returns the item for key. A missing key yields an empty item
	// that is not a hit.
	GetItem(ctx context.Context, key string) (*Item, error)

	// NewItem builds an unsaved item carrying the pool's clock and codec.
	NewItem(key string, value any) (*Item, error)

	// GetItems validates every key before fetching any of them.
	GetItems(ctx context.Context, keys []string) (map[string]*Item, error)

	// HasItem reports whether key is stored and not expired.
	HasItem(ctx context.Context, key string) (bool, error)

	// Save writes item immediately. A nil item is an error.
	Save(ctx context.Context, item *Item) error

	// SaveDeferred queues item until Commit. It never fails for a non-nil
	// item; a nil item is not queued and yields false.
	SaveDeferred(item *Item) bool

	// Commit writes every queued item. The queue is emptied only on success.
	Commit(ctx context.Context) error

	// DeleteItem removes key. Deleting a missing key succeeds.
	DeleteItem(ctx context.Context, key string) error

	// DeleteItems validates every key before deleting any of them.
	DeleteItems(ctx context.Context, keys []string) error

	// Clear removes every entry in the pool's namespace.
	Clear(ctx context.Context) error
}

// Cache is the simplified value-level API with TTL support.
type Cache interface {
	// Get returns the stored value on a hit and def otherwise. Integers come
	// back as int64 with the default codec; see MsgpackCodec and GetAs.
	Get(ctx context.Context, key string, def any) (any, error)

	// Set stores value. Forever means the entry does not expire.
	Set(ctx context.Context, key string, value any, ttl TTL) error

	// Delete removes key if present.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Has reports whether key is present and not expired.
	Has(ctx context.Context, key string) (bool, error)

	// GetMultiple reads every key, substituting def on a miss.
	GetMultiple(ctx context.Context, keys []string, def any) (map[string]any, error)

	// SetMultiple writes every value and reports whether all writes succeeded.
	SetMultiple(ctx context.Context, values map[string]any, ttl TTL) (bool, error)

	// DeleteMultiple deletes every key and reports whether all deletes succeeded.
	DeleteMultiple(ctx context.Context, keys []string) (bool, error)
}
