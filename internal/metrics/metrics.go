package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "radar_watch"

// Metrics holds the service counters. All fields are registered by New.
type Metrics struct {
	DetectionsReceived prometheus.Counter
	DetectionsDropped  *prometheus.CounterVec
	AlertsConfirmed    prometheus.Counter
	NotificationsSent  *prometheus.CounterVec
	ConfirmationsSent  *prometheus.CounterVec
	GatewayState       prometheus.Gauge
	GatewayTraversals  *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DetectionsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detections",
			Name:      "received_total",
			Help:      "Detection records received from the bus",
		}),
		DetectionsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detections",
			Name:      "dropped_total",
			Help:      "Detection records dropped before matching",
		}, []string{"reason"}),
		AlertsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "confirmed_total",
			Help:      "Detections that matched an active watchlist entry",
		}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Notification send attempts by channel and outcome",
		}, []string{"channel", "status"}),
		ConfirmationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "confirmations",
			Name:      "published_total",
			Help:      "Confirmation documents published downstream",
		}, []string{"status"}),
		GatewayState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "state",
			Help:      "Gateway session state (0=uninitialized 1=checking_existence 2=creating 3=checking_state 4=connecting 5=ready 6=failed)",
		}),
		GatewayTraversals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "traversals_total",
			Help:      "Gateway session provisioning traversals by outcome",
		}, []string{"outcome"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detections",
			Name:      "processing_duration_seconds",
			Help:      "Time spent handling one detection record",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.DetectionsReceived,
		m.DetectionsDropped,
		m.AlertsConfirmed,
		m.NotificationsSent,
		m.ConfirmationsSent,
		m.GatewayState,
		m.GatewayTraversals,
		m.ProcessingDuration,
	)
	return m
}

// NewNop returns metrics registered on a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
