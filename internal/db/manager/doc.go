// Package manager provides database bootstrap operations for PostgreSQL.
//
// The manager package offers the operations a load run needs before it can
// touch the target table:
//   - Checking database existence via the management connection
//   - Creating the target database when it is missing
//   - Ensuring the schema namespace exists on the target connection
//
// All operations use pgx.Identifier.Sanitize() for safe SQL identifier quoting,
// preventing SQL injection attacks while handling edge cases like database names
// with spaces, quotes, or special characters.
//
// # Example Usage
//
//	mgr := manager.New()
//
//	// Check if the target database exists (management connection)
//	exists, err := mgr.Exists(ctx, mgmtConn, "python_scripts")
//
//	// Create it when missing (CREATE DATABASE cannot run in a transaction)
//	err = mgr.Create(ctx, mgmtConn, "python_scripts")
//
//	// Ensure the schema namespace on the target connection
//	err = mgr.EnsureSchema(ctx, targetConn, "public")
//
// # Thread Safety
//
// Manager is stateless; thread safety depends on the injected DBConnection.
package manager
