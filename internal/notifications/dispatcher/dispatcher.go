// Package dispatcher routes inbound PitStop events to their handlers. It
// owns the projection writes, the notification emails and the containment
// policy: no error raised while handling an event ever reaches the caller.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pitstop/internal/notifications/core"
	"pitstop/internal/types"
)

// Config holds the dependencies of an EventDispatcher.
type Config struct {
	Store   types.ProjectionStore
	Gateway types.DeliveryGateway
	Logger  types.Logger

	// Metrics defaults to core.NoopMetrics.
	Metrics core.NotificationMetrics
	// Clock defaults to types.RealClock.
	Clock types.Clock
	// Location is the zone in which "today" and completion times are read.
	// Defaults to UTC.
	Location *time.Location
}

// EventDispatcher handles one event at a time. It holds no per-event state,
// so a single instance may be shared, but callers are expected to feed it
// sequentially.
type EventDispatcher struct {
	store    types.ProjectionStore
	gateway  types.DeliveryGateway
	logger   types.Logger
	metrics  core.NotificationMetrics
	clock    types.Clock
	location *time.Location

	newEventID func() string
}

// New creates an EventDispatcher. Store, Gateway and Logger are required.
func New(cfg Config) (*EventDispatcher, error) {
	if cfg.Store == nil || cfg.Gateway == nil || cfg.Logger == nil {
		return nil, errors.New("dispatcher: store, gateway and logger are required")
	}

	d := &EventDispatcher{
		store:      cfg.Store,
		gateway:    cfg.Gateway,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		clock:      cfg.Clock,
		location:   cfg.Location,
		newEventID: uuid.NewString,
	}
	if d.metrics == nil {
		d.metrics = core.NoopMetrics{}
	}
	if d.clock == nil {
		d.clock = types.RealClock{}
	}
	if d.location == nil {
		d.location = time.UTC
	}
	return d, nil
}

// HandleEvent decodes payload according to eventType and runs the matching
// handler. It always returns true: decode failures, missing customers or
// jobs, store errors, delivery errors and panics are logged and swallowed
// here. Unrecognized event types are discarded without side effects.
func (d *EventDispatcher) HandleEvent(ctx context.Context, eventType string, payload []byte) (handled bool) {
	eventID := d.newEventID()
	logger := d.logger.With("event_id", eventID, "message_type", eventType)
	ctx = types.WithEventID(ctx, eventID)
	ctx = types.WithLogger(ctx, logger)

	start := time.Now()
	outcome := core.OutcomeHandled

	defer func() {
		if r := recover(); r != nil {
			err := types.NewAppError(types.ErrCodeInternalUnexpected, fmt.Sprintf("panic: %v", r), nil)
			d.contain(ctx, eventType, err)
			outcome = core.OutcomeFailed
		}
		d.metrics.RecordEvent(ctx, eventType, outcome)
		d.metrics.RecordLatency(ctx, eventType, time.Since(start))
		handled = true
	}()

	event, err := Decode(eventType, payload)
	if err != nil {
		d.contain(ctx, eventType, err)
		outcome = core.OutcomeFailed
		return true
	}

	if err := d.route(ctx, event); err != nil {
		d.contain(ctx, eventType, err)
		outcome = core.OutcomeFailed
	}
	if _, ok := event.(types.UnrecognizedEvent); ok {
		outcome = core.OutcomeIgnored
	}
	return true
}

// route is the exhaustive switch over the event variants.
func (d *EventDispatcher) route(ctx context.Context, event types.Event) error {
	switch ev := event.(type) {
	case types.CustomerRegistered:
		return d.handleCustomerRegistered(ctx, ev)
	case types.MaintenanceJobPlanned:
		return d.handleMaintenanceJobPlanned(ctx, ev)
	case types.MaintenanceJobFinished:
		return d.handleMaintenanceJobFinished(ctx, ev)
	case types.DayHasPassed:
		return d.handleDayHasPassed(ctx)
	case types.UnrecognizedEvent:
		return nil
	default:
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			fmt.Sprintf("no handler for event %T", event), nil)
	}
}

// contain logs a swallowed error with the event-scoped logger, which already
// carries the event type. Joined errors are reported one by one so every
// failure kind shows up in logs and metrics.
func (d *EventDispatcher) contain(ctx context.Context, eventType string, err error) {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	logger := d.loggerFrom(ctx)
	for _, e := range errs {
		kind := types.KindOf(e)
		logger.Error("event handling failed",
			"error_kind", string(kind),
			"error", e.Error(),
		)
		d.metrics.RecordContainedFailure(ctx, eventType, kind)
	}
}

func (d *EventDispatcher) loggerFrom(ctx context.Context) types.Logger {
	if l := types.LoggerFromContext(ctx); l != nil {
		return l
	}
	return d.logger
}

// now is the processing-time clock read in the worker's zone. Its date is
// the "today" of DayHasPassed.
func (d *EventDispatcher) now() time.Time {
	return d.clock.Now().In(d.location)
}
