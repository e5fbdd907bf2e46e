package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"radar-watch-service/internal/domain/anpr"
	"radar-watch-service/internal/repository"
)

func newTestRepo(t *testing.T) *repository.WatchlistRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, repository.AutoMigrate(db))
	return repository.NewWatchlistRepository(db)
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []*anpr.ConfirmedAlert
}

func (f *fakeNotifier) Dispatch(_ context.Context, a *anpr.ConfirmedAlert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

type fakePublisher struct {
	published []*anpr.ConfirmedAlert
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, a *anpr.ConfirmedAlert) error {
	f.published = append(f.published, a)
	return f.err
}
