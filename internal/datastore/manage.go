package datastore

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/pixalb/internal/conf"
	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/logger"
)

// Open connects to the backend selected by settings.Type and migrates the schema.
func Open(settings conf.DatabaseSettings, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	log = log.Module("datastore")

	gormConfig := &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, settings.SlowQueryThreshold),
	}

	var (
		db             *gorm.DB
		connectionInfo string
		err            error
	)
	dbType := strings.ToLower(settings.Type)
	switch dbType {
	case "", "sqlite":
		dbType = "sqlite"
		db, connectionInfo, err = openSQLite(settings.SQLite, gormConfig)
	case "mysql":
		db, connectionInfo, err = openMySQL(settings.MySQL, gormConfig)
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		log.Error("failed to open database", logger.String("db_type", dbType), logger.Error(err))
		return nil, err
	}

	if err := performAutoMigration(db, dbType, log); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}

	log.Info("database opened", logger.String("db_type", dbType), logger.String("connection", connectionInfo))
	return New(db, log), nil
}

// performAutoMigration creates or updates the cache tables.
func performAutoMigration(db *gorm.DB, dbType string, log logger.Logger) error {
	start := time.Now()
	migrationLogger := log.With(logger.String("db_type", dbType))
	migrationLogger.Debug("starting database migration")

	models := []any{&CachedQuery{}, &Image{}, &QueryImage{}}
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return dbError(fmt.Errorf("auto-migration failed: %w", err), "auto_migrate",
				"db_type", dbType,
				"model", fmt.Sprintf("%T", model))
		}
	}

	migrationLogger.Debug("database migration completed",
		logger.Int("tables_migrated", len(models)),
		logger.Duration("duration", time.Since(start)))
	return nil
}
