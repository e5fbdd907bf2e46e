package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"radar-watch-service/internal/domain/anpr"
)

const maxPageSize = 100

// ErrDuplicate is returned when an entry would share its plate with another one.
var ErrDuplicate = errors.New("duplicate record")

type WatchlistRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewWatchlistRepository(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db, now: time.Now}
}

// AutoMigrate creates the tables from the row models. Postgres deployments use the
// SQL migrations in package db instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&MonitoredEntry{}, &ConfirmedAlert{})
}

// FindActiveByPlate returns the active entry for an already normalized plate, or
// nil when there is none.
func (r *WatchlistRepository) FindActiveByPlate(ctx context.Context, plate string) (*anpr.MonitoredEntry, error) {
	var row MonitoredEntry
	err := r.db.WithContext(ctx).
		Where("plate = ? AND active = ?", plate, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// CreateAlert inserts a and fills in its ID and ConfirmedAt.
func (r *WatchlistRepository) CreateAlert(ctx context.Context, a *anpr.ConfirmedAlert) error {
	a.ConfirmedAt = r.now().UTC()
	row := alertRow(a)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	a.ID = row.ID
	return nil
}

func (r *WatchlistRepository) GetEntry(ctx context.Context, id int64) (*anpr.MonitoredEntry, error) {
	var row MonitoredEntry
	err := r.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *WatchlistRepository) FindEntryByPlate(ctx context.Context, plate string) (*anpr.MonitoredEntry, error) {
	var row MonitoredEntry
	err := r.db.WithContext(ctx).Where("plate = ?", plate).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *WatchlistRepository) ListEntries(ctx context.Context, active *bool, limit, offset int) ([]anpr.MonitoredEntry, error) {
	query := r.db.WithContext(ctx).Model(&MonitoredEntry{})
	if active != nil {
		query = query.Where("active = ?", *active)
	}
	query = paginate(query.Order("plate ASC"), limit, offset)

	var rows []MonitoredEntry
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]anpr.MonitoredEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, *rows[i].toDomain())
	}
	return entries, nil
}

func (r *WatchlistRepository) CreateEntry(ctx context.Context, e *anpr.MonitoredEntry) error {
	row := entryRow(e)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	e.ID = row.ID
	e.CreatedAt = row.CreatedAt
	e.UpdatedAt = row.UpdatedAt
	return nil
}

// UpdateEntry overwrites every column of an existing entry.
func (r *WatchlistRepository) UpdateEntry(ctx context.Context, e *anpr.MonitoredEntry) error {
	row := entryRow(e)
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return translate(err)
	}
	e.UpdatedAt = row.UpdatedAt
	return nil
}

// DeleteEntry removes the entry and its alerts in one transaction. It reports
// whether the entry existed.
func (r *WatchlistRepository) DeleteEntry(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("monitored_entry_id = ?", id).Delete(&ConfirmedAlert{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&MonitoredEntry{}, id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// ListAlerts returns alerts newest first, optionally for one normalized plate,
// with their entries loaded.
func (r *WatchlistRepository) ListAlerts(ctx context.Context, plate *string, limit, offset int) ([]anpr.ConfirmedAlert, error) {
	query := r.db.WithContext(ctx).Model(&ConfirmedAlert{}).Preload("MonitoredEntry")
	if plate != nil {
		query = query.Where("plate = ?", *plate)
	}
	query = paginate(query.Order("confirmed_at DESC").Order("id DESC"), limit, offset)

	var rows []ConfirmedAlert
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	alerts := make([]anpr.ConfirmedAlert, 0, len(rows))
	for i := range rows {
		alerts = append(alerts, *rows[i].toDomain())
	}
	return alerts, nil
}

func paginate(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	query = query.Limit(limit)
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
