package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/pixalb/internal/conf"
	"github.com/tphakala/pixalb/internal/errors"
)

const memoryDSN = ":memory:"

func openSQLite(settings conf.SQLiteSettings, gormConfig *gorm.Config) (*gorm.DB, string, error) {
	path := settings.Path
	if path == "" {
		return nil, "", errors.Newf("sqlite path is empty").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	dsn := memoryDSN
	if path != memoryDSN {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, "", errors.New(fmt.Errorf("failed to create database directory: %w", err)).
					Component("datastore").
					Category(errors.CategoryFileIO).
					Context("path", dir).
					Build()
			}
		}
		if err := checkFreeSpace(filepath.Dir(path), settings.MinFreeMB, diskFreeSpace); err != nil {
			return nil, "", err
		}
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=1"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, "", dbError(fmt.Errorf("failed to open SQLite database: %w", err), "open", "path", path)
	}

	// One connection: SQLite serializes writers anyway, and an in-memory
	// database exists per connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, "", dbError(err, "open", "path", path)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, path, nil
}

// checkFreeSpace fails when the volume holding dir has less than minMB
// megabytes available. A volume that cannot be queried is not an error;
// the open that follows reports real I/O problems.
func checkFreeSpace(dir string, minMB uint64, free func(string) (uint64, error)) error {
	if minMB == 0 {
		return nil
	}
	available, err := free(dir)
	if err != nil {
		return nil
	}
	if available < minMB<<20 {
		return errors.Newf("only %d MB free on the cache volume, %d MB required", available>>20, minMB).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Priority(errors.PriorityCritical).
			Context("path", dir).
			Build()
	}
	return nil
}
