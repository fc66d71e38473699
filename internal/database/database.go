package database

import (
	"cache-store-api/internal/logging"
	"cache-store-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the SQLite database at path and migrates the given cache tables
func InitDB(path string, tables ...string) (*gorm.DB, error) {
	// glebarez/sqlite is a pure Go implementation (no CGO required)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Keep a single writer; SQLite serializes writes anyway and ":memory:"
	// databases are per connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	for _, table := range tables {
		if err := Migrate(db, table); err != nil {
			return nil, err
		}
	}

	logging.Op().Info("database connected and migrated", "path", path, "tables", tables)
	return db, nil
}

// Migrate creates (or updates) a cache table with the Entry schema
func Migrate(db *gorm.DB, table string) error {
	if table == "" {
		table = models.DefaultTable
	}
	return db.Table(table).AutoMigrate(&models.Entry{})
}
