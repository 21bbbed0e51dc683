package db

import (
	"context"

	"pitstop/internal/types"
)

// schemaStatements create the projection tables. start_time is stored
// without a zone because it holds the appointment's wall-clock reading.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id      TEXT PRIMARY KEY,
		name             TEXT NOT NULL DEFAULT '',
		telephone_number TEXT NOT NULL DEFAULT '',
		email_address    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS maintenance_jobs (
		job_id         TEXT PRIMARY KEY,
		customer_id    TEXT NOT NULL,
		license_number TEXT NOT NULL DEFAULT '',
		start_time     TIMESTAMP NOT NULL,
		description    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_maintenance_jobs_start_time
		ON maintenance_jobs (start_time)`,
}

// EnsureSchema creates the projection tables when they do not exist. It is
// idempotent and runs once at worker startup.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to ensure projection schema", err)
		}
	}
	return nil
}
