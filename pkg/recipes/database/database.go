package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a database connection for the given driver.
// SQLite is the default for development and tests; Postgres is used in production.
func Connect(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Ping checks that the database accepts connections
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WaitForDB connects and pings until the database is available or ctx is done.
func WaitForDB(ctx context.Context, driver, dsn string, interval time.Duration) (*gorm.DB, error) {
	log.Info().Str("driver", driver).Msg("Waiting for database...")
	for {
		db, err := Connect(driver, dsn)
		if err == nil {
			if err = Ping(ctx, db); err == nil {
				log.Info().Msg("Database available!")
				return db, nil
			}
			Close(db)
		}

		log.Warn().Err(err).Dur("retry_in", interval).Msg("Database unavailable")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("database not available: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
