// Package core provides the observability and messaging infrastructure shared
// by the notification worker and its companion binaries: CloudWatch metrics
// or Prometheus metrics for handled events and email deliveries, and an SQS
// publisher for events.
package core

import (
	"context"
	"time"

	"pitstop/internal/types"
)

// EventOutcome categorizes how HandleEvent finished for metrics reporting.
type EventOutcome string

const (
	// OutcomeHandled means the event ran to completion without a contained error.
	OutcomeHandled EventOutcome = "handled"
	// OutcomeFailed means at least one error was contained while handling.
	OutcomeFailed EventOutcome = "failed"
	// OutcomeIgnored means the event type was not recognized.
	OutcomeIgnored EventOutcome = "ignored"
)

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
)

// NotificationMetrics abstracts CloudWatch/telemetry operations for the
// notification worker. Implementations must not block event handling on
// metric failures.
type NotificationMetrics interface {
	RecordEvent(ctx context.Context, messageType string, outcome EventOutcome)
	RecordLatency(ctx context.Context, messageType string, duration time.Duration)
	RecordDelivery(ctx context.Context, kind types.NotificationKind, result MetricResult)
	RecordContainedFailure(ctx context.Context, messageType string, kind types.ErrorKind)
}

// NoopMetrics discards all metrics. It is used when ENABLE_METRICS is false
// and as the default for the dispatcher.
type NoopMetrics struct{}

var _ NotificationMetrics = NoopMetrics{}

func (NoopMetrics) RecordEvent(context.Context, string, EventOutcome)                    {}
func (NoopMetrics) RecordLatency(context.Context, string, time.Duration)                 {}
func (NoopMetrics) RecordDelivery(context.Context, types.NotificationKind, MetricResult) {}
func (NoopMetrics) RecordContainedFailure(context.Context, string, types.ErrorKind)      {}
