package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pitstop/internal/types"
)

// otherMessageType labels every message type the worker does not recognise,
// keeping label cardinality bounded.
const otherMessageType = "other"

var _ NotificationMetrics = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements NotificationMetrics with Prometheus
// collectors, for long-running deployments that are scraped rather than
// pushing to CloudWatch. Registration failures are logged and the affected
// collector keeps working unexported.
type PrometheusMetrics struct {
	events    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	emails    *prometheus.CounterVec
	contained *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors and registers them on reg.
func NewPrometheusMetrics(reg prometheus.Registerer, logger types.Logger) *PrometheusMetrics {
	m := &PrometheusMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitstop_events_total",
			Help: "Events handled by the notification worker, by outcome.",
		}, []string{"message_type", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitstop_event_duration_seconds",
			Help:    "Time spent handling one event.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"message_type"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitstop_email_deliveries_total",
			Help: "Email send attempts, by notification kind and result.",
		}, []string{"kind", "result"}),
		contained: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitstop_contained_failures_total",
			Help: "Errors logged and swallowed while handling events.",
		}, []string{"message_type", "error_kind"}),
	}

	for _, c := range []prometheus.Collector{m.events, m.latency, m.emails, m.contained} {
		if err := reg.Register(c); err != nil {
			logger.Warn("failed to register prometheus collector", "error", err.Error())
		}
	}
	return m
}

func (m *PrometheusMetrics) RecordEvent(_ context.Context, messageType string, outcome EventOutcome) {
	m.events.WithLabelValues(messageTypeLabel(messageType), string(outcome)).Inc()
}

func (m *PrometheusMetrics) RecordLatency(_ context.Context, messageType string, duration time.Duration) {
	m.latency.WithLabelValues(messageTypeLabel(messageType)).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordDelivery(_ context.Context, kind types.NotificationKind, result MetricResult) {
	m.emails.WithLabelValues(string(kind), string(result)).Inc()
}

func (m *PrometheusMetrics) RecordContainedFailure(_ context.Context, messageType string, kind types.ErrorKind) {
	m.contained.WithLabelValues(messageTypeLabel(messageType), string(kind)).Inc()
}

func messageTypeLabel(messageType string) string {
	switch types.MessageType(messageType) {
	case types.MessageCustomerRegistered,
		types.MessageMaintenanceJobPlanned,
		types.MessageMaintenanceJobFinished,
		types.MessageDayHasPassed:
		return messageType
	default:
		return otherMessageType
	}
}
