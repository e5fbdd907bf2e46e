package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"radar-watch-service/internal/config"
	"radar-watch-service/internal/db"
	"radar-watch-service/internal/logger"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.DSN == "" {
				return fmt.Errorf("database.dsn is required")
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			database, err := db.Open(db.Config{
				DSN:             cfg.Database.DSN,
				MaxOpenConns:    1,
				MaxIdleConns:    1,
				ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			}, log)
			if err != nil {
				return err
			}
			defer db.Close(database)

			if err := db.Migrate(database, log); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}
