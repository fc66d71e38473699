package cache

import (
	"context"
	"time"
)

// Record is the raw row a Storage persists for one key. Value is an opaque
// encoded blob; a nil Expiration means the record never expires.
type Record struct {
	Value      []byte
	Expiration *time.Time
}

// Storage persists raw records grouped by namespace (a table name, a
// directory path). Implementations do not interpret values or expirations;
// the Pool decides what a hit is.
type Storage interface {
	// FindByKey returns the record stored for key, or nil when there is none.
	FindByKey(ctx context.Context, namespace, key string) (*Record, error)
	// Exists reports whether a record is stored for key, expired or not.
	Exists(ctx context.Context, namespace, key string) (bool, error)
	Insert(ctx context.Context, namespace, key string, rec Record) error
	Update(ctx context.Context, namespace, key string, rec Record) error
	// Delete removes the records for keys. Missing keys are not an error.
	Delete(ctx context.Context, namespace string, keys []string) error
	// DeleteAll removes every record in the namespace.
	DeleteAll(ctx context.Context, namespace string) error
}

// Upserter is implemented by storages that can insert-or-update a record in a
// single atomic step. The Pool prefers it over Exists followed by
// Insert/Update.
type Upserter interface {
	Upsert(ctx context.Context, namespace, key string, rec Record) error
}

// Lister is implemented by storages that can enumerate the keys of a
// namespace. Listed keys may be expired.
type Lister interface {
	Keys(ctx context.Context, namespace string) ([]string, error)
}
