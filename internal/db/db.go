// Package db provides the projection stores for the notification worker. The
// PostgreSQL repository accepts a DBTX interface that is satisfied by both
// *pgxpool.Pool and pgx.Tx, so the same code works inside or outside a
// transaction. MemoryProjectionStore backs local runs and tests.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
