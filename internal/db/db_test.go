package db

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func TestOpenMigratePing(t *testing.T) {
	db, err := open(sqlite.Open(":memory:"), Config{MaxOpenConns: 1}, zerolog.Nop())
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Migrate(db, zerolog.Nop()))
	assert.True(t, db.Migrator().HasTable("monitored_entries"))
	assert.True(t, db.Migrator().HasTable("confirmed_alerts"))

	require.NoError(t, Ping(context.Background(), db))
}

func TestMigrationStatementsCoverSchema(t *testing.T) {
	var joined string
	for _, stmt := range migrationStatements {
		joined += stmt
	}
	assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS monitored_entries")
	assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS confirmed_alerts")
	assert.Contains(t, joined, "ON DELETE CASCADE")
}
