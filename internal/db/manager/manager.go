package manager

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/tabsync/pkg/tabsync"
)

const queryDatabaseExists = "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"

// Manager implements database bootstrap operations using the DBConnection
// abstraction. Stateless; thread safety depends on the injected DBConnection.
type Manager struct{}

// New creates a new DatabaseManager instance.
func New() tabsync.DatabaseManager {
	return &Manager{}
}

// Exists checks if a database exists. The connection must point at the
// management database.
func (m *Manager) Exists(ctx context.Context, conn tabsync.DBConnection, dbName string) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx, queryDatabaseExists, dbName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	return exists, nil
}

// Create creates a new database. CREATE DATABASE cannot run inside a
// transaction block, so the statement goes through a plain autocommit Exec.
func (m *Manager) Create(ctx context.Context, conn tabsync.DBConnection, dbName string) error {
	query := fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{dbName}.Sanitize())
	_, err := conn.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create database %q: %w", dbName, err)
	}
	return nil
}

// EnsureSchema creates the schema namespace if it does not already exist.
// The connection must point at the target database.
func (m *Manager) EnsureSchema(ctx context.Context, conn tabsync.DBConnection, schema string) error {
	query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{schema}.Sanitize())
	_, err := conn.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to ensure schema %q: %w", schema, err)
	}
	return nil
}

// Verify Manager implements the DatabaseManager interface at compile time
var _ tabsync.DatabaseManager = (*Manager)(nil)
