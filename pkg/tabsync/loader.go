package tabsync

import "context"

// Loader is the main interface for executing a load run.
// Implementations own the full workflow: reading the source file, inferring
// and reconciling the schema, bootstrapping the database, and executing the
// chosen mode transactionally.
type Loader interface {
	// Load executes a run using the provided configuration.
	// The returned LoadResult is non-nil whenever a run was attempted, even
	// on failure, so callers can render a summary of what happened.
	Load(ctx context.Context, config LoadConfig) (*LoadResult, error)
}
