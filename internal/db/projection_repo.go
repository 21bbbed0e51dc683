package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"pitstop/internal/types"
)

var _ types.ProjectionStore = (*ProjectionRepository)(nil)

// ProjectionRepository stores customer and maintenance-job projections in the
// customers and maintenance_jobs tables.
//
// Registrations are upserts: a repeated event for the same ID overwrites the
// stored row, which keeps redelivered messages harmless.
type ProjectionRepository struct {
	db DBTX
}

// NewProjectionRepository creates a ProjectionRepository backed by the given
// database connection (pool or transaction).
func NewProjectionRepository(db DBTX) *ProjectionRepository {
	return &ProjectionRepository{db: db}
}

// RegisterCustomer inserts or replaces a customer row.
func (r *ProjectionRepository) RegisterCustomer(ctx context.Context, c types.Customer) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO customers (customer_id, name, telephone_number, email_address)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (customer_id) DO UPDATE SET
			name = EXCLUDED.name,
			telephone_number = EXCLUDED.telephone_number,
			email_address = EXCLUDED.email_address`,
		c.CustomerID,
		c.Name,
		c.TelephoneNumber,
		c.EmailAddress,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to register customer", err)
	}
	return nil
}

// GetCustomer returns the customer with the given ID, or an
// ErrCodeNotFoundCustomer AppError when no such customer exists.
func (r *ProjectionRepository) GetCustomer(ctx context.Context, customerID string) (*types.Customer, error) {
	var c types.Customer
	err := r.db.QueryRow(ctx,
		`SELECT customer_id, name, telephone_number, email_address
		 FROM customers
		 WHERE customer_id = $1`,
		customerID,
	).Scan(&c.CustomerID, &c.Name, &c.TelephoneNumber, &c.EmailAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundCustomer, "customer "+customerID+" not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get customer", err)
	}
	return &c, nil
}

// RegisterMaintenanceJob inserts or replaces a maintenance job row.
// StartTime is written as its wall-clock reading.
func (r *ProjectionRepository) RegisterMaintenanceJob(ctx context.Context, job types.MaintenanceJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO maintenance_jobs (job_id, customer_id, license_number, start_time, description)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (job_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			license_number = EXCLUDED.license_number,
			start_time = EXCLUDED.start_time,
			description = EXCLUDED.description`,
		job.JobID,
		job.CustomerID,
		job.LicenseNumber,
		types.WallClock(job.StartTime),
		job.Description,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to register maintenance job", err)
	}
	return nil
}

// GetMaintenanceJobs returns the stored jobs among jobIDs. IDs with no
// matching row are skipped.
func (r *ProjectionRepository) GetMaintenanceJobs(ctx context.Context, jobIDs []string) ([]types.MaintenanceJob, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	return r.queryJobs(ctx, "failed to get maintenance jobs",
		`SELECT job_id, customer_id, license_number, start_time, description
		 FROM maintenance_jobs
		 WHERE job_id = ANY($1)
		 ORDER BY start_time, job_id`,
		jobIDs,
	)
}

// GetMaintenanceJobsDueOn returns the jobs starting within the civil date of
// day, ordered by customer and start time.
func (r *ProjectionRepository) GetMaintenanceJobsDueOn(ctx context.Context, day time.Time) ([]types.MaintenanceJob, error) {
	from := types.CivilDate(day)
	return r.queryJobs(ctx, "failed to get due maintenance jobs",
		`SELECT job_id, customer_id, license_number, start_time, description
		 FROM maintenance_jobs
		 WHERE start_time >= $1 AND start_time < $2
		 ORDER BY customer_id, start_time, job_id`,
		from,
		from.AddDate(0, 0, 1),
	)
}

// RemoveMaintenanceJobs deletes the given jobs. Unknown IDs are ignored.
func (r *ProjectionRepository) RemoveMaintenanceJobs(ctx context.Context, jobIDs []string) error {
	if len(jobIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`DELETE FROM maintenance_jobs WHERE job_id = ANY($1)`,
		jobIDs,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to remove maintenance jobs", err)
	}
	return nil
}

func (r *ProjectionRepository) queryJobs(ctx context.Context, failMsg, sql string, args ...any) ([]types.MaintenanceJob, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, failMsg, err)
	}
	defer rows.Close()

	var jobs []types.MaintenanceJob
	for rows.Next() {
		var j types.MaintenanceJob
		if err := rows.Scan(&j.JobID, &j.CustomerID, &j.LicenseNumber, &j.StartTime, &j.Description); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan maintenance job row", err)
		}
		j.StartTime = types.WallClock(j.StartTime)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating maintenance job rows", err)
	}
	return jobs, nil
}
