package testutil

import (
	"context"
	"sort"
	"sync"

	"cache-store-api/internal/cache"

	"github.com/cockroachdb/errors"
)

// ErrInjected is returned by MemoryStorage while a failure is injected.
var ErrInjected = errors.New("testutil: injected storage failure")

// MemoryStorage is an in-memory cache.Storage that counts calls and can be
// told to fail. It does not implement cache.Upserter, so pools exercise the
// exists/insert/update path against it.
type MemoryStorage struct {
	mu         sync.Mutex
	data       map[string]map[string]cache.Record
	calls      int
	failReads  bool
	failWrites bool
	failKeys   map[string]struct{}
}

var _ cache.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data:     make(map[string]map[string]cache.Record),
		failKeys: make(map[string]struct{}),
	}
}

// Calls returns how many storage methods have been invoked.
func (m *MemoryStorage) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// FailReads makes FindByKey and Exists fail until reset.
func (m *MemoryStorage) FailReads(fail bool) {
	m.mu.Lock()
	m.failReads = fail
	m.mu.Unlock()
}

// FailWrites makes Insert, Update, Delete and DeleteAll fail until reset.
func (m *MemoryStorage) FailWrites(fail bool) {
	m.mu.Lock()
	m.failWrites = fail
	m.mu.Unlock()
}

// FailKey makes every write touching key fail.
func (m *MemoryStorage) FailKey(key string) {
	m.mu.Lock()
	m.failKeys[key] = struct{}{}
	m.mu.Unlock()
}

// Put stores a record directly, bypassing any pool.
func (m *MemoryStorage) Put(namespace, key string, rec cache.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ns(namespace)[key] = rec
}

// Len returns the number of records stored in namespace, expired or not.
func (m *MemoryStorage) Len(namespace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data[namespace])
}

// Keys returns the sorted keys stored in namespace.
func (m *MemoryStorage) Keys(_ context.Context, namespace string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data[namespace]))
	for k := range m.data[namespace] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStorage) ns(namespace string) map[string]cache.Record {
	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string]cache.Record)
		m.data[namespace] = ns
	}
	return ns
}

func (m *MemoryStorage) writeErr(key string) error {
	if m.failWrites {
		return ErrInjected
	}
	if _, ok := m.failKeys[key]; ok {
		return ErrInjected
	}
	return nil
}

func (m *MemoryStorage) FindByKey(_ context.Context, namespace, key string) (*cache.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failReads {
		return nil, ErrInjected
	}
	rec, ok := m.data[namespace][key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStorage) Exists(_ context.Context, namespace, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failReads {
		return false, ErrInjected
	}
	_, ok := m.data[namespace][key]
	return ok, nil
}

func (m *MemoryStorage) Insert(_ context.Context, namespace, key string, rec cache.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.writeErr(key); err != nil {
		return err
	}
	if _, ok := m.data[namespace][key]; ok {
		return errors.Newf("testutil: duplicate key %q", key)
	}
	m.ns(namespace)[key] = rec
	return nil
}

func (m *MemoryStorage) Update(_ context.Context, namespace, key string, rec cache.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.writeErr(key); err != nil {
		return err
	}
	if _, ok := m.data[namespace][key]; ok {
		m.data[namespace][key] = rec
	}
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, namespace string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, key := range keys {
		if err := m.writeErr(key); err != nil {
			return err
		}
	}
	for _, key := range keys {
		delete(m.data[namespace], key)
	}
	return nil
}

func (m *MemoryStorage) DeleteAll(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failWrites {
		return ErrInjected
	}
	delete(m.data, namespace)
	return nil
}
