package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"pitstop/internal/notifications/core"
	"pitstop/internal/notifications/email"
	"pitstop/internal/notifications/reminder"
	"pitstop/internal/types"
)

func (d *EventDispatcher) handleCustomerRegistered(ctx context.Context, ev types.CustomerRegistered) error {
	customer := types.Customer{
		CustomerID:      ev.CustomerID,
		Name:            ev.Name,
		TelephoneNumber: ev.TelephoneNumber,
		EmailAddress:    ev.EmailAddress,
	}

	d.loggerFrom(ctx).Info("registering customer",
		"customer_id", customer.CustomerID,
		"name", customer.Name,
	)
	if err := d.store.RegisterCustomer(ctx, customer); err != nil {
		return err
	}

	msg, err := email.Welcome(customer)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "compose welcome email", err)
	}
	return d.send(ctx, types.NotificationWelcome, customer, msg)
}

// handleMaintenanceJobPlanned stores the job before resolving the customer,
// so the job survives even when no confirmation can be sent.
func (d *EventDispatcher) handleMaintenanceJobPlanned(ctx context.Context, ev types.MaintenanceJobPlanned) error {
	job := types.MaintenanceJob{
		JobID:         ev.JobID,
		CustomerID:    ev.CustomerInfo.ID,
		LicenseNumber: ev.VehicleInfo.LicenseNumber,
		StartTime:     types.WallClock(ev.StartTime.Time),
		Description:   ev.Description,
	}

	d.loggerFrom(ctx).Info("registering maintenance job",
		"job_id", job.JobID,
		"customer_id", job.CustomerID,
		"start_time", job.StartTime,
	)
	if err := d.store.RegisterMaintenanceJob(ctx, job); err != nil {
		return err
	}

	customer, err := d.store.GetCustomer(ctx, job.CustomerID)
	if err != nil {
		return err
	}

	msg, err := email.JobPlanned(*customer, job)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "compose planned email", err)
	}
	return d.send(ctx, types.NotificationJobPlanned, *customer, msg)
}

// handleMaintenanceJobFinished always ends with removing the job, whatever
// happened while notifying the customer.
func (d *EventDispatcher) handleMaintenanceJobFinished(ctx context.Context, ev types.MaintenanceJobFinished) error {
	var errs []error

	jobs, err := d.store.GetMaintenanceJobs(ctx, []string{ev.JobID})
	switch {
	case err != nil:
		errs = append(errs, err)
	case len(jobs) == 0:
		d.loggerFrom(ctx).Info("finished maintenance job is unknown; nothing to notify",
			"job_id", ev.JobID,
		)
	default:
		if err := d.notifyJobFinished(ctx, jobs[0]); err != nil {
			errs = append(errs, err)
		}
	}

	d.loggerFrom(ctx).Info("removing finished maintenance job", "job_id", ev.JobID)
	if err := d.store.RemoveMaintenanceJobs(ctx, []string{ev.JobID}); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (d *EventDispatcher) notifyJobFinished(ctx context.Context, job types.MaintenanceJob) error {
	customer, err := d.store.GetCustomer(ctx, job.CustomerID)
	if err != nil {
		return err
	}

	msg, err := email.JobFinished(*customer, job, d.now())
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "compose finished email", err)
	}
	return d.send(ctx, types.NotificationJobFinished, *customer, msg)
}

// handleDayHasPassed sends one reminder per customer with jobs due today.
// Each customer group is contained on its own; a failure in one group is
// logged and the remaining groups still run.
func (d *EventDispatcher) handleDayHasPassed(ctx context.Context) error {
	day := d.now()
	jobs, err := d.store.GetMaintenanceJobsDueOn(ctx, day)
	if err != nil {
		return err
	}

	groups := reminder.GroupDueJobs(jobs)
	d.loggerFrom(ctx).Info("sending maintenance reminders",
		"day", day.Format(email.DateLayout),
		"jobs", len(jobs),
		"customers", len(groups),
	)

	for _, group := range groups {
		if err := d.remindGroup(ctx, group); err != nil {
			d.contain(ctx, string(types.MessageDayHasPassed), err)
		}
	}
	return nil
}

// remindGroup notifies one customer and removes the group's jobs. Removal
// runs even when the customer is missing or the send failed.
func (d *EventDispatcher) remindGroup(ctx context.Context, group reminder.Group) error {
	var errs []error
	if err := recovered(func() error { return d.notifyReminder(ctx, group) }); err != nil {
		errs = append(errs, err)
	}
	if err := d.store.RemoveMaintenanceJobs(ctx, group.JobIDs()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// recovered runs fn and turns a panic into an internal AppError.
func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = types.NewAppError(types.ErrCodeInternalUnexpected, fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return fn()
}

func (d *EventDispatcher) notifyReminder(ctx context.Context, group reminder.Group) error {
	customer, err := d.store.GetCustomer(ctx, group.CustomerID)
	if err != nil {
		return err
	}

	msg, err := email.DailyReminder(*customer, group.Jobs)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "compose reminder email", err)
	}
	return d.send(ctx, types.NotificationDailyReminder, *customer, msg)
}

// send hands msg to the gateway exactly once and records the outcome.
func (d *EventDispatcher) send(ctx context.Context, kind types.NotificationKind, customer types.Customer, msg types.Email) error {
	d.loggerFrom(ctx).Info("sending email",
		"kind", string(kind),
		"customer_id", customer.CustomerID,
		"customer_name", customer.Name,
	)

	if err := d.gateway.SendEmail(ctx, msg.To, msg.From, msg.Subject, msg.Body); err != nil {
		d.metrics.RecordDelivery(ctx, kind, core.MetricFailed)
		var appErr *types.AppError
		if !errors.As(err, &appErr) {
			err = types.NewAppError(types.ErrCodeUpstreamEmailProvider, "email delivery failed", err)
		}
		return err
	}
	d.metrics.RecordDelivery(ctx, kind, core.MetricSuccess)
	return nil
}
