package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"radar-watch-service/internal/domain/anpr"
	"radar-watch-service/internal/metrics"
)

const (
	channelBroadcast = "broadcast"
	channelPersonal  = "personal"

	DefaultSendTimeout = 15 * time.Second
)

type DispatcherConfig struct {
	BroadcastDestination string
	SendTimeout          time.Duration
}

// Dispatcher fans a confirmed alert out to the broadcast channel and, when the
// entry names a personal destination, to the personal channel. Sends run in the
// background and their failures never reach the caller.
type Dispatcher struct {
	cfg       DispatcherConfig
	broadcast Sender
	personal  Sender
	metrics   *metrics.Metrics
	log       zerolog.Logger

	wg sync.WaitGroup
}

// NewDispatcher builds a dispatcher. personal may be nil when the gateway is
// not configured.
func NewDispatcher(cfg DispatcherConfig, broadcast, personal Sender, m *metrics.Metrics, log zerolog.Logger) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	return &Dispatcher{
		cfg:       cfg,
		broadcast: broadcast,
		personal:  personal,
		metrics:   m,
		log:       log,
	}
}

// Dispatch starts the sends for a and returns immediately. The sends keep the
// values of ctx but not its cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, a *anpr.ConfirmedAlert) {
	ctx = context.WithoutCancel(ctx)

	if d.broadcast != nil {
		d.send(ctx, channelBroadcast, d.broadcast, d.cfg.BroadcastDestination, Format(a), a)
	}

	entry := a.MonitoredEntry
	if entry == nil || strings.TrimSpace(entry.PersonalDestination) == "" {
		return
	}
	if d.personal == nil {
		d.log.Debug().
			Int64("alert_id", a.ID).
			Msg("personal channel disabled, skipping personal notification")
		return
	}
	text := PersonalPrefix(entry.InterestedParty) + Render(a, Plain)
	d.send(ctx, channelPersonal, d.personal, entry.PersonalDestination, text, a)
}

// Wait blocks until every send started by Dispatch has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, channel string, s Sender, destination, text string, a *anpr.ConfirmedAlert) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		defer cancel()

		err := s.Send(sendCtx, destination, text)
		switch {
		case err == nil:
			d.metrics.NotificationsSent.WithLabelValues(channel, "sent").Inc()
			d.log.Info().
				Str("channel", channel).
				Int64("alert_id", a.ID).
				Str("plate", a.Plate).
				Msg("notification sent")
		case errors.Is(err, ErrChannelNotReady):
			d.metrics.NotificationsSent.WithLabelValues(channel, "not_ready").Inc()
			d.log.Warn().
				Str("channel", channel).
				Int64("alert_id", a.ID).
				Str("plate", a.Plate).
				Msg("channel not ready, notification dropped")
		default:
			d.metrics.NotificationsSent.WithLabelValues(channel, "failed").Inc()
			d.log.Error().
				Err(err).
				Str("channel", channel).
				Int64("alert_id", a.ID).
				Str("plate", a.Plate).
				Msg("failed to send notification")
		}
	}()
}
