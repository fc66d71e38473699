// Package storage opens the cache storage adapter selected by configuration.
package storage

import (
	"cache-store-api/internal/cache"
	"cache-store-api/internal/config"
	"cache-store-api/internal/database"
	"cache-store-api/internal/storage/directory"
	"cache-store-api/internal/storage/table"

	"github.com/cockroachdb/errors"
)

// Open returns the adapter for cfg and the namespace pools should use with it.
// The table backend opens and migrates the database.
func Open(cfg config.StorageConfig) (cache.Storage, string, error) {
	switch cfg.Backend {
	case config.BackendTable:
		db, err := database.InitDB(cfg.DatabasePath, cfg.Table)
		if err != nil {
			return nil, "", errors.Wrapf(err, "open database %s", cfg.DatabasePath)
		}
		return table.New(db), cfg.Table, nil
	case config.BackendDirectory:
		return directory.New(), cfg.Directory, nil
	default:
		return nil, "", errors.Newf("unknown storage backend %q", cfg.Backend)
	}
}
