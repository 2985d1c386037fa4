package tabsync

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBConnection abstracts the database operations the engine needs.
// This interface decouples the public API from pgx pool types while keeping
// the essential operations for metadata reads, bootstrap DDL, and the
// transactional load.
//
// Thread-Safety: Implementations should follow their underlying connection's
// thread-safety guarantees. Connection pool implementations are typically safe
// for concurrent use.
type DBConnection interface {
	// Exec executes a statement without returning rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// Query executes a query returning multiple rows.
	// The returned Rows must be closed.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a query that is expected to return at most one row.
	// Always returns a non-nil Row. Errors are deferred until Scan is called.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Begin starts a transaction.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a database transaction. Rollback after Commit is a no-op, which
// allows the deferred-rollback idiom.
type Tx interface {
	// Exec executes a statement inside the transaction.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// SendBatch sends a queued batch of statements in a single round trip.
	// Results must be closed before the transaction is used again.
	SendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults

	// Commit commits the transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the transaction. Safe to call after Commit.
	Rollback(ctx context.Context) error
}

// Rows represents a multi-row query result. This interface decouples from
// pgx.Rows.
type Rows interface {
	// Next advances to the next row, returning false when no rows remain.
	Next() bool

	// Scan reads the current row's values into dest values.
	Scan(dest ...any) error

	// Err returns the error, if any, that terminated iteration.
	Err() error

	// Close releases the result. Idempotent.
	Close()
}

// Row represents a single row returned by QueryRow.
// This interface decouples from pgx.Row.
type Row interface {
	// Scan reads the values from the row into dest values.
	// Returns an error if no row was found or if the scan fails.
	Scan(dest ...any) error
}
