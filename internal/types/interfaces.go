package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// Logger defines the structured logging interface used throughout the worker.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// ProjectionStore persists the customer and maintenance-job projections the
// worker keeps locally. Implementations must be safe for concurrent use.
//
// Lookups by a set of IDs return only the entities that exist; an unknown ID
// is not an error. GetCustomer returns an AppError with
// ErrCodeNotFoundCustomer when the customer is absent.
type ProjectionStore interface {
	RegisterCustomer(ctx context.Context, c Customer) error
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	RegisterMaintenanceJob(ctx context.Context, job MaintenanceJob) error
	GetMaintenanceJobs(ctx context.Context, jobIDs []string) ([]MaintenanceJob, error)
	// GetMaintenanceJobsDueOn returns the jobs whose StartTime falls on the
	// civil date of day.
	GetMaintenanceJobsDueOn(ctx context.Context, day time.Time) ([]MaintenanceJob, error)
	RemoveMaintenanceJobs(ctx context.Context, jobIDs []string) error
}

// DeliveryGateway hands a composed email to the outbound delivery channel.
type DeliveryGateway interface {
	SendEmail(ctx context.Context, to, from, subject, body string) error
}
