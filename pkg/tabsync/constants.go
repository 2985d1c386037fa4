package tabsync

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess          = 0  // Load completed successfully
	ExitGeneralError     = 1  // Unknown or unclassified error
	ExitUsageError       = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic            = 3  // Internal panic (unexpected crash)
	ExitConfigError      = 10 // Invalid configuration or parameters
	ExitConnectionError  = 11 // Failed to connect to database
	ExitFileReadError    = 12 // Source file missing, unreadable, or unrecognized
	ExitTransactionError = 13 // Structural or data execution failed
	ExitSchemaConflict   = 14 // Candidate schema cannot be reconciled
)

const (
	// DefaultDatabase is the target database when none is given.
	DefaultDatabase = "python_scripts"

	// DefaultSchema is the target namespace when none is given.
	DefaultSchema = "public"

	// DefaultManagementDB is the database to connect to for management
	// operations such as CREATE DATABASE.
	DefaultManagementDB = "postgres"

	// DefaultHost and DefaultPort apply when DB_HOST/DB_PORT are unset.
	DefaultHost = "localhost"
	DefaultPort = 5432

	// DefaultBatchSize is the number of rows buffered per insert batch.
	DefaultBatchSize = 500

	// DefaultSurrogateKey is the name of the synthetic primary-key column
	// added when tabsync creates a table. Empty SurrogateKey in LoadConfig
	// disables it.
	DefaultSurrogateKey = "idpk"

	// DefaultConnectTimeout bounds connection establishment. Statement
	// execution is bounded only by server-side settings.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultForceApprovalCountdown is the countdown duration before a
	// forced overwrite approval proceeds.
	DefaultForceApprovalCountdown = 3 * time.Second

	// MaxErrorPreviewLength is the maximum number of characters of SQL shown
	// in error messages when a statement or batch fails with show-SQL enabled.
	MaxErrorPreviewLength = 200
)
