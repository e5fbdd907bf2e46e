// Package db opens the watchlist database and applies its schema.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"radar-watch-service/internal/repository"
)

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to Postgres and configures the connection pool.
func Open(cfg Config, log zerolog.Logger) (*gorm.DB, error) {
	return open(postgres.Open(cfg.DSN), cfg, log)
}

func open(dialector gorm.Dialector, cfg Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	log.Info().
		Str("dialect", db.Dialector.Name()).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("connected to database")
	return db, nil
}

// Migrate applies the SQL migrations on Postgres and falls back to the row models
// on any other dialect.
func Migrate(db *gorm.DB, log zerolog.Logger) error {
	if db.Dialector.Name() != "postgres" {
		log.Info().Str("dialect", db.Dialector.Name()).Msg("running auto migrations")
		return repository.AutoMigrate(db)
	}
	if err := runMigrations(db); err != nil {
		return err
	}
	log.Info().Int("statements", len(migrationStatements)).Msg("database migrations applied")
	return nil
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
