package tabsync

import (
	"context"
)

// DatabaseManager defines the interface for database bootstrap operations.
// Implementations are NOT safe for concurrent use. Create separate instances
// for concurrent operations.
type DatabaseManager interface {
	// Exists checks if a database exists. The connection must point at the
	// management database.
	Exists(ctx context.Context, conn DBConnection, dbName string) (bool, error)

	// Create creates a new database. CREATE DATABASE cannot run inside a
	// transaction; the connection must point at the management database.
	Create(ctx context.Context, conn DBConnection, dbName string) error

	// EnsureSchema creates the schema namespace if it does not exist.
	// The connection must point at the target database.
	EnsureSchema(ctx context.Context, conn DBConnection, schema string) error
}
