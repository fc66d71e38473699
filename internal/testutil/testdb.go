package testutil

import (
	"cache-store-api/internal/database"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewInMemoryDB creates an in-memory SQLite DB and migrates the given cache tables.
func NewInMemoryDB(tables ...string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	// Every connection to ":memory:" is a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	for _, table := range tables {
		if err := database.Migrate(db, table); err != nil {
			return nil, err
		}
	}
	return db, nil
}
