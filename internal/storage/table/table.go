// Package table stores cache records as rows of a database table through
// gorm. The namespace of a pool is the table name.
package table

import (
	"context"
	"time"

	"cache-store-api/internal/cache"
	"cache-store-api/internal/database"
	"cache-store-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage is a cache.Storage backed by gorm.
type Storage struct {
	db *gorm.DB
}

var (
	_ cache.Storage  = (*Storage)(nil)
	_ cache.Upserter = (*Storage)(nil)
	_ cache.Lister   = (*Storage)(nil)
)

// New returns a Storage using db. Tables must already be migrated, see
// database.Migrate.
func New(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

// NewCache migrates table and returns a SimpleCache over it.
func NewCache(db *gorm.DB, table string, opts ...cache.Option) (*cache.SimpleCache, error) {
	if table == "" {
		table = models.DefaultTable
	}
	if err := database.Migrate(db, table); err != nil {
		return nil, err
	}
	pool := cache.NewPool(New(db), table, opts...)
	return cache.NewSimpleCache(pool, opts...), nil
}

func (s *Storage) table(ctx context.Context, namespace string) *gorm.DB {
	return s.db.WithContext(ctx).Table(namespace)
}

func byKey(key string) map[string]any {
	return map[string]any{"key": key}
}

func (s *Storage) FindByKey(ctx context.Context, namespace, key string) (*cache.Record, error) {
	var rows []models.Entry
	if err := s.table(ctx, namespace).Where(byKey(key)).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &cache.Record{
		Value:      rows[0].Value,
		Expiration: fromNanos(rows[0].Expiration),
	}, nil
}

func (s *Storage) Exists(ctx context.Context, namespace, key string) (bool, error) {
	var n int64
	if err := s.table(ctx, namespace).Where(byKey(key)).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) Insert(ctx context.Context, namespace, key string, rec cache.Record) error {
	return s.table(ctx, namespace).Create(toEntry(key, rec)).Error
}

func (s *Storage) Update(ctx context.Context, namespace, key string, rec cache.Record) error {
	return s.table(ctx, namespace).Where(byKey(key)).Updates(map[string]any{
		"value":      rec.Value,
		"expiration": toNanos(rec.Expiration),
	}).Error
}

// Upsert inserts the row or overwrites value and expiration in one statement.
func (s *Storage) Upsert(ctx context.Context, namespace, key string, rec cache.Record) error {
	return s.table(ctx, namespace).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expiration"}),
	}).Create(toEntry(key, rec)).Error
}

func (s *Storage) Delete(ctx context.Context, namespace string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.table(ctx, namespace).Where(map[string]any{"key": keys}).Delete(&models.Entry{}).Error
}

func (s *Storage) DeleteAll(ctx context.Context, namespace string) error {
	return s.table(ctx, namespace).Where("1 = 1").Delete(&models.Entry{}).Error
}

func toEntry(key string, rec cache.Record) *models.Entry {
	return &models.Entry{
		Key:        key,
		Value:      rec.Value,
		Expiration: toNanos(rec.Expiration),
	}
}

func toNanos(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	n := t.UnixNano()
	return &n
}

func fromNanos(n *int64) *time.Time {
	if n == nil {
		return nil
	}
	t := time.Unix(0, *n)
	return &t
}

// Keys lists the keys stored in the table, expired or not.
func (s *Storage) Keys(ctx context.Context, namespace string) ([]string, error) {
	var keys []string
	if err := s.table(ctx, namespace).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}
