package cache

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// Pool implements ItemPool on top of a Storage bound to one namespace.
type Pool struct {
	storage   Storage
	namespace string
	cfg       config

	mu       sync.Mutex
	deferred []*Item
}

var _ ItemPool = (*Pool)(nil)

// NewPool returns a Pool reading and writing namespace through storage.
func NewPool(storage Storage, namespace string, opts ...Option) *Pool {
	return &Pool{
		storage:   storage,
		namespace: namespace,
		cfg:       applyOptions(opts),
	}
}

// Namespace returns the table name or directory path the pool is bound to.
func (p *Pool) Namespace() string {
	return p.namespace
}

// NewItem builds an item using the pool's clock and codec.
func (p *Pool) NewItem(key string, value any) (*Item, error) {
	return NewItem(key, value, WithClock(p.cfg.clock), WithCodec(p.cfg.codec))
}

func (p *Pool) GetItem(ctx context.Context, key string) (*Item, error) {
	key, err := ValidateKey(key)
	if err != nil {
		return nil, err
	}
	return p.getItem(ctx, key)
}

func (p *Pool) getItem(ctx context.Context, key string) (*Item, error) {
	rec, err := p.storage.FindByKey(ctx, p.namespace, key)
	if err != nil {
		return nil, storageFailure(err, "find", p.namespace)
	}
	if rec == nil {
		return emptyItem(key, p.cfg), nil
	}
	var value any
	if err := p.cfg.codec.Unmarshal(rec.Value, &value); err != nil {
		return nil, storageFailure(errors.Wrapf(err, "decode %q", key), "find", p.namespace)
	}
	return &Item{
		key:        key,
		value:      value,
		raw:        rec.Value,
		expiration: rec.Expiration,
		hit:        fresh(rec.Expiration, p.cfg.clock()),
		clock:      p.cfg.clock,
		codec:      p.cfg.codec,
	}, nil
}

func (p *Pool) GetItems(ctx context.Context, keys []string) (map[string]*Item, error) {
	keys, err := ValidateKeys(keys)
	if err != nil {
		return nil, err
	}
	items := make(map[string]*Item, len(keys))
	for _, key := range keys {
		item, err := p.getItem(ctx, key)
		if err != nil {
			return nil, err
		}
		items[key] = item
	}
	return items, nil
}

func (p *Pool) HasItem(ctx context.Context, key string) (bool, error) {
	key, err := ValidateKey(key)
	if err != nil {
		return false, err
	}
	rec, err := p.storage.FindByKey(ctx, p.namespace, key)
	if err != nil {
		return false, storageFailure(err, "find", p.namespace)
	}
	if rec == nil {
		return false, nil
	}
	return fresh(rec.Expiration, p.cfg.clock()), nil
}

func (p *Pool) Save(ctx context.Context, item *Item) error {
	if item == nil {
		return ErrNilItem
	}
	return p.write(ctx, []*Item{item})
}

func (p *Pool) SaveDeferred(item *Item) bool {
	if item == nil {
		return false
	}
	p.mu.Lock()
	p.deferred = append(p.deferred, item)
	p.mu.Unlock()
	return true
}

func (p *Pool) Commit(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.write(ctx, p.deferred); err != nil {
		return err
	}
	p.deferred = nil
	return nil
}

// Pending returns the number of items waiting for Commit.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.deferred)
}

func (p *Pool) DeleteItem(ctx context.Context, key string) error {
	return p.DeleteItems(ctx, []string{key})
}

func (p *Pool) DeleteItems(ctx context.Context, keys []string) error {
	keys, err := ValidateKeys(keys)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := p.storage.Delete(ctx, p.namespace, keys); err != nil {
		return storageFailure(err, "delete", p.namespace)
	}
	return nil
}

func (p *Pool) Clear(ctx context.Context) error {
	if err := p.storage.DeleteAll(ctx, p.namespace); err != nil {
		return storageFailure(err, "clear", p.namespace)
	}
	return nil
}

// write upserts items in order and stops at the first failure. Items written
// before the failure stay written.
func (p *Pool) write(ctx context.Context, items []*Item) error {
	upserter, atomic := p.storage.(Upserter)
	for _, item := range items {
		data, err := p.cfg.codec.Marshal(item.value)
		if err != nil {
			return storageFailure(errors.Wrapf(err, "encode %q", item.key), "write", p.namespace)
		}
		rec := Record{Value: data, Expiration: item.expiration}

		if atomic {
			if err := upserter.Upsert(ctx, p.namespace, item.key, rec); err != nil {
				return storageFailure(err, "upsert", p.namespace)
			}
			continue
		}

		exists, err := p.storage.Exists(ctx, p.namespace, item.key)
		if err != nil {
			return storageFailure(err, "exists", p.namespace)
		}
		if exists {
			err = p.storage.Update(ctx, p.namespace, item.key, rec)
		} else {
			err = p.storage.Insert(ctx, p.namespace, item.key, rec)
		}
		if err != nil {
			return storageFailure(err, "write", p.namespace)
		}
	}
	return nil
}
