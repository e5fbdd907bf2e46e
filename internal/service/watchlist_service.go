package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"radar-watch-service/internal/domain/anpr"
	"radar-watch-service/internal/repository"
	"radar-watch-service/internal/utils"
)

const (
	maxNoteLength   = 1000
	defaultPageSize = 50
	maxPageSize     = 100
)

// EntryInput is the writable part of a monitored entry. A nil Active keeps the
// current value on update and means true on create.
type EntryInput struct {
	Plate               string `json:"plate"`
	MakeModel           string `json:"makeModel"`
	Color               string `json:"color"`
	Reason              string `json:"reason"`
	Active              *bool  `json:"active"`
	Note                string `json:"note"`
	InterestedParty     string `json:"interestedParty"`
	Phone               string `json:"phone"`
	PersonalDestination string `json:"personalDestination"`
}

type WatchlistService struct {
	repo *repository.WatchlistRepository
	log  zerolog.Logger
}

func NewWatchlistService(repo *repository.WatchlistRepository, log zerolog.Logger) *WatchlistService {
	return &WatchlistService{
		repo: repo,
		log:  log,
	}
}

func (s *WatchlistService) ListEntries(ctx context.Context, active *bool, limit, offset int) ([]anpr.MonitoredEntry, error) {
	limit, offset = page(limit, offset)
	entries, err := s.repo.ListEntries(ctx, active, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

func (s *WatchlistService) GetEntry(ctx context.Context, id int64) (*anpr.MonitoredEntry, error) {
	entry, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: entry %d", ErrNotFound, id)
	}
	return entry, nil
}

func (s *WatchlistService) CreateEntry(ctx context.Context, in EntryInput) (*anpr.MonitoredEntry, error) {
	entry := &anpr.MonitoredEntry{Active: true}
	if err := apply(entry, in); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindEntryByPlate(ctx, entry.Plate)
	if err != nil {
		return nil, fmt.Errorf("failed to check plate: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: plate %s is already monitored", ErrConflict, entry.Plate)
	}

	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, s.writeError("create", entry.Plate, err)
	}

	s.log.Info().
		Int64("entry_id", entry.ID).
		Str("plate", entry.Plate).
		Bool("active", entry.Active).
		Msg("monitored entry created")
	return entry, nil
}

func (s *WatchlistService) UpdateEntry(ctx context.Context, id int64, in EntryInput) (*anpr.MonitoredEntry, error) {
	entry, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(entry, in); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindEntryByPlate(ctx, entry.Plate)
	if err != nil {
		return nil, fmt.Errorf("failed to check plate: %w", err)
	}
	if existing != nil && existing.ID != id {
		return nil, fmt.Errorf("%w: plate %s is already monitored", ErrConflict, entry.Plate)
	}

	if err := s.repo.UpdateEntry(ctx, entry); err != nil {
		return nil, s.writeError("update", entry.Plate, err)
	}

	s.log.Info().
		Int64("entry_id", entry.ID).
		Str("plate", entry.Plate).
		Bool("active", entry.Active).
		Msg("monitored entry updated")
	return entry, nil
}

// DeleteEntry removes the entry together with its alert history.
func (s *WatchlistService) DeleteEntry(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteEntry(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Int64("entry_id", id).Msg("failed to delete monitored entry")
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: entry %d", ErrNotFound, id)
	}
	s.log.Info().Int64("entry_id", id).Msg("monitored entry deleted")
	return nil
}

func (s *WatchlistService) ListAlerts(ctx context.Context, plateQuery *string, limit, offset int) ([]anpr.ConfirmedAlert, error) {
	var plate *string
	if plateQuery != nil {
		normalized := utils.NormalizePlate(*plateQuery)
		if normalized != "" {
			plate = &normalized
		}
	}

	limit, offset = page(limit, offset)
	alerts, err := s.repo.ListAlerts(ctx, plate, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

func (s *WatchlistService) writeError(op, plate string, err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: plate %s is already monitored", ErrConflict, plate)
	}
	s.log.Error().Err(err).Str("plate", plate).Msgf("failed to %s monitored entry", op)
	return fmt.Errorf("failed to %s entry: %w", op, err)
}

func apply(entry *anpr.MonitoredEntry, in EntryInput) error {
	plate := utils.NormalizePlate(in.Plate)
	if plate == "" {
		return fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Note) > maxNoteLength {
		return fmt.Errorf("%w: note exceeds %d characters", ErrInvalidInput, maxNoteLength)
	}

	entry.Plate = plate
	entry.MakeModel = strings.TrimSpace(in.MakeModel)
	entry.Color = strings.TrimSpace(in.Color)
	entry.Reason = strings.TrimSpace(in.Reason)
	entry.Note = strings.TrimSpace(in.Note)
	entry.InterestedParty = strings.TrimSpace(in.InterestedParty)
	entry.Phone = strings.TrimSpace(in.Phone)
	entry.PersonalDestination = strings.TrimSpace(in.PersonalDestination)
	if in.Active != nil {
		entry.Active = *in.Active
	}
	return nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
