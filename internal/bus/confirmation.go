package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"radar-watch-service/internal/domain/anpr"
	"radar-watch-service/internal/metrics"
)

// ConfirmationSubject carries confirmed alerts downstream.
const ConfirmationSubject = "alerta.confirmado"

type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ConfirmationPublisher republishes stored alerts as JSON documents.
type ConfirmationPublisher struct {
	pub     Publisher
	subject string
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewConfirmationPublisher(pub Publisher, subject string, m *metrics.Metrics, log zerolog.Logger) *ConfirmationPublisher {
	if subject == "" {
		subject = ConfirmationSubject
	}
	return &ConfirmationPublisher{pub: pub, subject: subject, metrics: m, log: log}
}

func (p *ConfirmationPublisher) Publish(ctx context.Context, a *anpr.ConfirmedAlert) error {
	payload, err := json.Marshal(anpr.NewAlertMessage(a))
	if err != nil {
		p.metrics.ConfirmationsSent.WithLabelValues("encode_error").Inc()
		return fmt.Errorf("failed to encode alert %d: %w", a.ID, err)
	}

	if err := p.pub.Publish(ctx, p.subject, payload); err != nil {
		p.metrics.ConfirmationsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to publish alert %d: %w", a.ID, err)
	}

	p.metrics.ConfirmationsSent.WithLabelValues("published").Inc()
	p.log.Debug().
		Int64("alert_id", a.ID).
		Str("subject", p.subject).
		Int("bytes", len(payload)).
		Msg("alert confirmation published")
	return nil
}
