package tabsync

import (
	"errors"
	"strings"
)

// Sentinel errors for the failure taxonomy.
// These enable callers to distinguish error kinds using errors.Is().
//
// Example usage:
//
//	result, err := loader.Load(ctx, config)
//	if errors.Is(err, tabsync.ErrSchemaConflict) {
//	    // Rerun with mode delete, or fix the colliding columns
//	}
var (
	// ErrConfiguration indicates missing or invalid environment variables or
	// CLI arguments. Raised before any file or database access.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrFileRead indicates the source file is missing, unreadable, or its
	// format is not recognized. No partial schema is produced.
	ErrFileRead = errors.New("file read failed")

	// ErrSchemaConflict indicates duplicate column names or an incompatible
	// type reconciliation under mode replace/update.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrConnection indicates the database is unreachable or authentication
	// failed. No changes were applied.
	ErrConnection = errors.New("connection failed")

	// ErrTransaction indicates a failure during structural or data execution.
	// The transaction was rolled back and the database left unchanged, except
	// for the documented committed drop in mode delete.
	ErrTransaction = errors.New("transaction failed")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Check for sentinel errors
	switch {
	case errors.Is(err, ErrConfiguration):
		return ExitConfigError
	case errors.Is(err, ErrFileRead):
		return ExitFileReadError
	case errors.Is(err, ErrSchemaConflict):
		return ExitSchemaConflict
	case errors.Is(err, ErrConnection):
		return ExitConnectionError
	case errors.Is(err, ErrTransaction):
		return ExitTransactionError
	}

	errStr := err.Error()

	// Cobra surfaces flag and argument misuse as plain errors
	if strings.Contains(errStr, "unknown flag") ||
		strings.Contains(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "unknown command") ||
		strings.Contains(errStr, "required flag") ||
		strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "arg(s)") {
		return ExitUsageError
	}

	// Check for common connection error patterns
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
