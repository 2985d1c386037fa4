package tabsync

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector is the interface for establishing database connections.
// The stock implementation authenticates with the user/password credentials
// from the environment; tests substitute their own.
type Connector interface {
	// Connect establishes a connection pool to the given database on the
	// configured server. The returned pool should be closed by the caller
	// when done.
	Connect(ctx context.Context, database string) (*pgxpool.Pool, error)
}
