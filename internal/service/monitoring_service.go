package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"radar-watch-service/internal/domain/anpr"
	"radar-watch-service/internal/metrics"
	"radar-watch-service/internal/parser"
	"radar-watch-service/internal/utils"
)

type EventParser interface {
	Parse(raw string) (*anpr.DetectionEvent, error)
}

type AlertStore interface {
	FindActiveByPlate(ctx context.Context, plate string) (*anpr.MonitoredEntry, error)
	CreateAlert(ctx context.Context, a *anpr.ConfirmedAlert) error
}

// Notifier fans an alert out to the notification channels without blocking.
type Notifier interface {
	Dispatch(ctx context.Context, a *anpr.ConfirmedAlert)
}

type AlertPublisher interface {
	Publish(ctx context.Context, a *anpr.ConfirmedAlert) error
}

// MonitoringService runs one detection record through parse, match, persist,
// notify and publish.
type MonitoringService struct {
	parser    EventParser
	store     AlertStore
	notifier  Notifier
	publisher AlertPublisher
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewMonitoringService(p EventParser, store AlertStore, notifier Notifier, publisher AlertPublisher, m *metrics.Metrics, log zerolog.Logger) *MonitoringService {
	return &MonitoringService{
		parser:    p,
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// HandleDetection processes one raw record. Malformed records are logged and
// dropped with a nil error so the caller acknowledges them; only store failures
// are returned.
func (s *MonitoringService) HandleDetection(ctx context.Context, raw string) (*anpr.ConfirmedAlert, error) {
	start := time.Now()
	defer func() { s.metrics.ProcessingDuration.Observe(time.Since(start).Seconds()) }()
	s.metrics.DetectionsReceived.Inc()

	ev, err := s.parser.Parse(raw)
	if err != nil {
		s.metrics.DetectionsDropped.WithLabelValues(dropReason(err)).Inc()
		s.log.Warn().
			Err(err).
			Str("payload", raw).
			Msg("dropping malformed detection record")
		return nil, nil
	}

	alert, err := s.Match(ctx, ev)
	if err != nil || alert == nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, alert)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, alert); err != nil {
			s.log.Error().
				Err(err).
				Int64("alert_id", alert.ID).
				Msg("failed to publish alert confirmation")
		}
	}
	return alert, nil
}

// Match looks up an active entry for the event's plate and, when one exists,
// stores and returns a confirmed alert. No match returns (nil, nil).
func (s *MonitoringService) Match(ctx context.Context, ev *anpr.DetectionEvent) (*anpr.ConfirmedAlert, error) {
	plate := utils.NormalizePlate(ev.Plate)
	if plate == "" {
		s.metrics.DetectionsDropped.WithLabelValues("empty_plate").Inc()
		s.log.Debug().Str("operator", ev.Operator).Msg("detection without plate")
		return nil, nil
	}
	ev.Plate = plate

	entry, err := s.store.FindActiveByPlate(ctx, plate)
	if err != nil {
		s.log.Error().Err(err).Str("plate", plate).Msg("failed to look up watchlist")
		return nil, fmt.Errorf("failed to look up watchlist: %w", err)
	}
	if entry == nil {
		s.log.Debug().
			Str("plate", plate).
			Str("operator", ev.Operator).
			Msg("plate not on active watchlist")
		return nil, nil
	}

	alert := anpr.NewConfirmedAlert(ev, entry)
	if err := s.store.CreateAlert(ctx, alert); err != nil {
		s.log.Error().
			Err(err).
			Str("plate", plate).
			Int64("monitored_entry_id", entry.ID).
			Msg("failed to save confirmed alert")
		return nil, fmt.Errorf("failed to save confirmed alert: %w", err)
	}
	s.metrics.AlertsConfirmed.Inc()

	s.log.Info().
		Int64("alert_id", alert.ID).
		Int64("monitored_entry_id", entry.ID).
		Str("plate", plate).
		Str("operator", ev.Operator).
		Str("highway", ev.Highway).
		Str("km", ev.Km).
		Msg("monitored vehicle detected")
	return alert, nil
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, parser.ErrTooFewFields):
		return "too_few_fields"
	case errors.Is(err, parser.ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, parser.ErrInvalidTime):
		return "invalid_time"
	default:
		return "parse_error"
	}
}
