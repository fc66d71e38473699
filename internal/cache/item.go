package cache

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Item is a single cache slot: a validated key, a value, an optional absolute
// expiration and the hit flag computed when the item was read.
type Item struct {
	key        string
	value      any
	raw        []byte
	expiration *time.Time
	hit        bool
	clock      Clock
	codec      Codec
}

// NewItem validates key and returns an item ready to be saved. A freshly
// built item is not a hit until it has been written and read back.
func NewItem(key string, value any, opts ...Option) (*Item, error) {
	key, err := ValidateKey(key)
	if err != nil {
		return nil, err
	}
	cfg := applyOptions(opts)
	return &Item{key: key, value: value, clock: cfg.clock, codec: cfg.codec}, nil
}

func emptyItem(key string, cfg config) *Item {
	return &Item{key: key, clock: cfg.clock, codec: cfg.codec}
}

// Key returns the normalized key.
func (i *Item) Key() string {
	return i.key
}

// Get returns the value if the item is a hit, nil otherwise.
func (i *Item) Get() any {
	if !i.hit {
		return nil
	}
	return i.value
}

// IsHit reports whether the item was found in storage and not expired at
// read time.
func (i *Item) IsHit() bool {
	return i.hit
}

// Set replaces the value to be written.
func (i *Item) Set(value any) *Item {
	i.value = value
	i.raw = nil
	return i
}

// RawValue returns the value regardless of hit status.
func (i *Item) RawValue() any {
	return i.value
}

// Expiration returns the absolute expiration, if any.
func (i *Item) Expiration() (time.Time, bool) {
	if i.expiration == nil {
		return time.Time{}, false
	}
	return *i.expiration, true
}

// ExpiresAt sets an absolute expiration. nil clears it.
func (i *Item) ExpiresAt(t *time.Time) *Item {
	if t == nil {
		i.expiration = nil
		return i
	}
	exp := *t
	i.expiration = &exp
	return i
}

// ExpiresAfter sets the expiration relative to the item's clock.
func (i *Item) ExpiresAfter(ttl TTL) (*Item, error) {
	exp, err := ttl.ExpirationFrom(i.now())
	if err != nil {
		return i, errors.Wrapf(err, "item %q", i.key)
	}
	i.expiration = exp
	return i, nil
}

// Decode unmarshals the stored payload into dst. It reports false and leaves
// dst untouched when the item is not a hit.
func (i *Item) Decode(dst any) (bool, error) {
	if !i.hit {
		return false, nil
	}
	codec := i.codec
	if codec == nil {
		codec = MsgpackCodec
	}
	data := i.raw
	if data == nil {
		var err error
		if data, err = codec.Marshal(i.value); err != nil {
			return false, errors.Wrapf(err, "cache: encode %q", i.key)
		}
	}
	if err := codec.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "cache: decode %q", i.key)
	}
	return true, nil
}

func (i *Item) now() time.Time {
	if i.clock == nil {
		return SystemClock()
	}
	return i.clock()
}

func fresh(exp *time.Time, now time.Time) bool {
	return exp == nil || exp.After(now)
}
