package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radar-watch-service/internal/domain/anpr"
	"radar-watch-service/internal/metrics"
)

type capturePublisher struct {
	subject string
	data    []byte
	err     error
}

func (c *capturePublisher) Publish(_ context.Context, subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func testAlert() *anpr.ConfirmedAlert {
	return &anpr.ConfirmedAlert{
		ID:               42,
		Operator:         "CCR",
		Date:             time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Time:             time.Date(0, 1, 1, 8, 15, 30, 0, time.UTC),
		Plate:            "ABC1D23",
		Plaza:            "N/A",
		Highway:          "SP-280",
		Km:               "45",
		Direction:        "Norte",
		MonitoredEntryID: 3,
		MonitoredEntry:   &anpr.MonitoredEntry{ID: 3, Plate: "ABC1D23", Active: true, Reason: "Furto"},
		ConfirmedAt:      time.Date(2025, 3, 14, 11, 16, 0, 0, time.UTC),
	}
}

func TestConfirmationPublisher_Publish(t *testing.T) {
	pub := &capturePublisher{}
	m := metrics.NewNop()
	p := NewConfirmationPublisher(pub, "", m, zerolog.Nop())

	require.NoError(t, p.Publish(context.Background(), testAlert()))
	assert.Equal(t, ConfirmationSubject, pub.subject)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(pub.data, &doc))
	assert.EqualValues(t, 42, doc["id"])
	assert.Equal(t, "CCR", doc["operator"])
	assert.Equal(t, "2025-03-14", doc["date"])
	assert.Equal(t, "08:15:30", doc["time"])
	assert.Equal(t, "N/A", doc["plaza"])
	assert.Equal(t, "2025-03-14T11:16:00Z", doc["confirmedAt"])

	entry, ok := doc["monitoredEntry"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ABC1D23", entry["plate"])
	assert.Equal(t, "Furto", entry["reason"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfirmationsSent.WithLabelValues("published")))
}

func TestConfirmationPublisher_PublishError(t *testing.T) {
	boom := errors.New("nats: no responders available for request")
	m := metrics.NewNop()
	p := NewConfirmationPublisher(&capturePublisher{err: boom}, "custom.subject", m, zerolog.Nop())

	err := p.Publish(context.Background(), testAlert())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfirmationsSent.WithLabelValues("failed")))
}
