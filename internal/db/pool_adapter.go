package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// PoolAdapter adapts *pgxpool.Pool to implement the tabsync.DBConnection
// interface. This decouples the internal implementation from the public API,
// preventing direct exposure of pgx pool types.
//
// Thread-Safety: Safe for concurrent use (pgxpool.Pool is thread-safe).
type PoolAdapter struct {
	pool *pgxpool.Pool
}

// NewPoolAdapter creates a new PoolAdapter wrapping the given pool.
// The pool's lifecycle remains with the caller.
func NewPoolAdapter(pool *pgxpool.Pool) tabsync.DBConnection {
	return &PoolAdapter{pool: pool}
}

// Exec executes a query without returning any rows.
func (p *PoolAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

// Query executes a query that returns rows.
func (p *PoolAdapter) Query(ctx context.Context, sql string, args ...any) (tabsync.Rows, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// QueryRow executes a query that is expected to return at most one row.
func (p *PoolAdapter) QueryRow(ctx context.Context, sql string, args ...any) tabsync.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Begin starts a transaction on a connection from the pool.
func (p *PoolAdapter) Begin(ctx context.Context) (tabsync.Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Verify interface compliance at compile time. pgx.Tx and pgx.Rows satisfy
// the public interfaces directly, so transactions and result sets need no
// wrapping.
var (
	_ tabsync.DBConnection = (*PoolAdapter)(nil)
	_ tabsync.Tx           = (pgx.Tx)(nil)
	_ tabsync.Rows         = (pgx.Rows)(nil)
)
