package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS monitored_entries (
		id                   BIGSERIAL PRIMARY KEY,
		plate                TEXT NOT NULL,
		make_model           TEXT,
		color                TEXT,
		reason               TEXT,
		active               BOOLEAN NOT NULL DEFAULT TRUE,
		note                 VARCHAR(1000),
		interested_party     TEXT,
		phone                TEXT,
		personal_destination TEXT,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_monitored_entries_plate ON monitored_entries(plate);`,
	`CREATE INDEX IF NOT EXISTS idx_monitored_entries_active_plate ON monitored_entries(plate) WHERE active;`,
	`CREATE TABLE IF NOT EXISTS confirmed_alerts (
		id                 BIGSERIAL PRIMARY KEY,
		operator           TEXT NOT NULL,
		event_date         DATE NOT NULL,
		event_time         TIME NOT NULL,
		plate              TEXT NOT NULL,
		plaza              TEXT,
		highway            TEXT,
		km                 TEXT,
		direction          TEXT,
		monitored_entry_id BIGINT NOT NULL REFERENCES monitored_entries(id) ON DELETE CASCADE,
		confirmed_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_confirmed_alerts_plate ON confirmed_alerts(plate);`,
	`CREATE INDEX IF NOT EXISTS idx_confirmed_alerts_monitored_entry_id ON confirmed_alerts(monitored_entry_id);`,
	`CREATE INDEX IF NOT EXISTS idx_confirmed_alerts_confirmed_at ON confirmed_alerts(confirmed_at DESC);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
