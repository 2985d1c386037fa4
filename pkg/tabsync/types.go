package tabsync

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ColumnType is the semantic type inferred for a column.
//
// The declaration order is the precedence ladder used by inference:
// integer < decimal < boolean < date < timestamp < text, narrowest first.
// Text is the most general type; every value parses as text.
type ColumnType int

const (
	TypeInteger ColumnType = iota
	TypeDecimal
	TypeBoolean
	TypeDate
	TypeTimestamp
	TypeText
)

// String returns the lowercase name used in logs, summaries, and the
// project-file column overrides.
func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeTimestamp:
		return "timestamp"
	case TypeText:
		return "text"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// PostgresType returns the PostgreSQL column type a ColumnType maps to.
// Integer maps to BIGINT and decimal to NUMERIC so that every value the
// inferrer accepted is storable without loss.
func (t ColumnType) PostgresType() string {
	switch t {
	case TypeInteger:
		return "BIGINT"
	case TypeDecimal:
		return "NUMERIC"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// IsValid returns true if the ColumnType is a defined ladder value.
func (t ColumnType) IsValid() bool {
	return t >= TypeInteger && t <= TypeText
}

// ParseColumnType converts a type name (as written in project-file column
// overrides) into a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "bigint":
		return TypeInteger, nil
	case "decimal", "numeric", "float":
		return TypeDecimal, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "date":
		return TypeDate, nil
	case "timestamp", "datetime":
		return TypeTimestamp, nil
	case "text", "string":
		return TypeText, nil
	default:
		return TypeText, fmt.Errorf("unknown column type %q: %w", s, ErrConfiguration)
	}
}

// Column is a single column definition shared by candidate and live schemas.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// ColumnProfile is the full-scan profile of one source column: the inferred
// type plus the observation counts behind it.
type ColumnProfile struct {
	// Name is the raw header cell, not yet sanitized.
	Name string

	// Type is the narrowest ladder type every non-blank value parses as.
	// Columns with no non-blank values profile as text.
	Type ColumnType

	// Nullable reports whether any observed value was blank.
	Nullable bool

	// Values is the number of non-blank values observed.
	Values int64

	// Blanks is the number of blank values observed.
	Blanks int64
}

// CandidateSchema is the table structure inferred from the source file for
// the current run, after sanitization, overrides, and duplicate validation.
type CandidateSchema struct {
	// Schema is the target namespace (e.g. "public").
	Schema string

	// Table is the target table name.
	Table string

	// Columns are the file-derived column definitions, in file order.
	// Names are sanitized and case-insensitively unique.
	Columns []Column

	// SurrogateKey is the name of the synthetic BIGSERIAL PRIMARY KEY column
	// added when the table is created. Empty means no surrogate column.
	SurrogateKey string

	// KeyColumns are the configured upsert key columns for mode update.
	// Empty means upsert degrades to plain insert.
	KeyColumns []string
}

// Column returns the definition for a sanitized column name, matching
// case-insensitively, and whether it exists.
func (s *CandidateSchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// LiveSchema is the table structure as currently persisted in the database.
// Absence of the table is represented by a nil *LiveSchema, never by an
// empty column list.
type LiveSchema struct {
	Schema  string
	Table   string
	Columns []Column
}

// Column returns the live definition for a column name, matching
// case-insensitively, and whether it exists.
func (s *LiveSchema) Column(name string) (Column, bool) {
	if s == nil {
		return Column{}, false
	}
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// PlanOpKind identifies a structural operation in a ReconciliationPlan.
type PlanOpKind int

const (
	// OpDropTable drops the existing table. Mode delete only; committed as
	// its own step before the main transaction.
	OpDropTable PlanOpKind = iota

	// OpCreateTable creates the table from the candidate schema.
	OpCreateTable

	// OpAddColumn appends a candidate column missing from the live table.
	OpAddColumn

	// OpWidenColumn alters an existing column to a more general type.
	OpWidenColumn

	// OpRelaxNull drops a NOT NULL constraint so blank source values can
	// load as NULL. Constraints are never tightened.
	OpRelaxNull
)

// String returns a human-readable description of the operation kind.
func (k PlanOpKind) String() string {
	switch k {
	case OpDropTable:
		return "drop-table"
	case OpCreateTable:
		return "create-table"
	case OpAddColumn:
		return "add-column"
	case OpWidenColumn:
		return "widen-column"
	case OpRelaxNull:
		return "relax-null"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// PlanOp is one structural operation. Column is set for add-column and
// widen-column; FromType records the previous live type for widen-column.
type PlanOp struct {
	Kind     PlanOpKind
	Column   Column
	FromType ColumnType
}

// Describe renders the operation for logs and the load summary.
func (op PlanOp) Describe() string {
	switch op.Kind {
	case OpAddColumn:
		return fmt.Sprintf("add-column %s %s", op.Column.Name, op.Column.Type)
	case OpWidenColumn:
		return fmt.Sprintf("widen-column %s %s -> %s", op.Column.Name, op.FromType, op.Column.Type)
	case OpRelaxNull:
		return fmt.Sprintf("relax-null %s", op.Column.Name)
	default:
		return op.Kind.String()
	}
}

// DataOp is the data-operation directive of a ReconciliationPlan.
type DataOp int

const (
	// DataInsert loads rows with plain INSERTs. Used for freshly created
	// tables and for mode update without a configured key.
	DataInsert DataOp = iota

	// DataTruncateInsert deletes all existing rows inside the transaction,
	// then inserts. Mode replace against an existing table.
	DataTruncateInsert

	// DataUpsert loads rows with INSERT ... ON CONFLICT ... DO UPDATE over
	// the configured key columns. Mode update with a key.
	DataUpsert
)

// String returns a human-readable description of the data directive.
func (d DataOp) String() string {
	switch d {
	case DataInsert:
		return "insert"
	case DataTruncateInsert:
		return "truncate-then-insert"
	case DataUpsert:
		return "upsert"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// ReconciliationPlan is the deterministic set of operations needed to move
// from the live schema to a state compatible with the candidate schema under
// the requested mode. It is a pure value: computing a plan touches nothing.
type ReconciliationPlan struct {
	// TableExists reports whether the target table existed when the live
	// schema snapshot was taken.
	TableExists bool

	// Structural operations, in execution order.
	Structural []PlanOp

	// Data is the data-operation directive.
	Data DataOp

	// Warnings collected during planning (e.g. upsert degrading to insert).
	Warnings []string
}

// HasStructuralChanges reports whether the plan contains any operation other
// than no-ops.
func (p *ReconciliationPlan) HasStructuralChanges() bool {
	return len(p.Structural) > 0
}

// SyncMode selects how the load treats existing table structure and data.
type SyncMode int

const (
	// ModeUpdate creates the table if missing, adds missing columns, and
	// upserts rows (or plain-inserts without a key). The default.
	ModeUpdate SyncMode = iota

	// ModeReplace keeps the table structure additively and replaces all rows.
	ModeReplace

	// ModeDelete drops and recreates the table, then loads fresh.
	ModeDelete
)

// String returns the CLI spelling of the mode.
func (m SyncMode) String() string {
	switch m {
	case ModeUpdate:
		return "update"
	case ModeReplace:
		return "replace"
	case ModeDelete:
		return "delete"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// IsValid returns true if the SyncMode is a defined value.
func (m SyncMode) IsValid() bool {
	return m >= ModeUpdate && m <= ModeDelete
}

// ParseSyncMode converts the CLI spelling into a SyncMode.
func ParseSyncMode(s string) (SyncMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "update":
		return ModeUpdate, nil
	case "replace":
		return ModeReplace, nil
	case "delete":
		return ModeDelete, nil
	default:
		return ModeUpdate, fmt.Errorf("unknown mode %q (want delete, replace, or update): %w", s, ErrConfiguration)
	}
}

// TxState tracks the executor's position in the transactional state machine.
//
// Transitions: Pending -> StructuralChangesApplied -> DataLoaded -> Committed,
// with RolledBack reachable from any non-terminal state on failure.
// Committed and RolledBack are terminal.
type TxState int

const (
	TxPending TxState = iota
	TxStructuralChangesApplied
	TxDataLoaded
	TxCommitted
	TxRolledBack
)

// String returns a human-readable state name.
func (s TxState) String() string {
	switch s {
	case TxPending:
		return "Pending"
	case TxStructuralChangesApplied:
		return "StructuralChangesApplied"
	case TxDataLoaded:
		return "DataLoaded"
	case TxCommitted:
		return "Committed"
	case TxRolledBack:
		return "RolledBack"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// LoadStatus is the final status of a run.
type LoadStatus int

const (
	// StatusSuccess: everything committed.
	StatusSuccess LoadStatus = iota

	// StatusPartial: the mode-delete drop was committed but the subsequent
	// transaction rolled back. The table no longer exists.
	StatusPartial

	// StatusFailed: nothing persisted; the database is unchanged.
	StatusFailed
)

// String returns the lowercase status name used in summaries.
func (s LoadStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// LoadResult reports what a run read, wrote, and changed.
type LoadResult struct {
	// RunID uniquely identifies this run in logs and summaries.
	RunID uuid.UUID

	// SourcePath is the file that was loaded.
	SourcePath string

	// Fingerprint is the SHA-256 of the source file content.
	Fingerprint string

	// Target identity.
	Database string
	Schema   string
	Table    string

	// Mode is the synchronization mode that ran.
	Mode SyncMode

	// RowsRead is the number of data rows in the source file.
	RowsRead int64

	// RowsWritten is the number of rows sent to the database.
	RowsWritten int64

	// Batches is the number of insert batches issued.
	Batches int

	// StructuralOps describes the structural operations applied, in order.
	StructuralOps []string

	// Warnings collected across the run (planning and execution).
	Warnings []string

	// Status is the final run status.
	Status LoadStatus

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// LoadConfig contains all parameters for a load run. Assembled once at
// process start and passed by reference; the engine keeps no global state.
type LoadConfig struct {
	// FilePath is the source file (required). The extension selects the
	// reader: delimited text or spreadsheet.
	FilePath string

	// Database is the target database name.
	Database string

	// ManagementDatabase is the database used for server-level operations
	// (CREATE DATABASE). Typically "postgres".
	ManagementDatabase string

	// Schema is the target namespace.
	Schema string

	// Table is the target table name (already sanitized).
	Table string

	// Mode is the synchronization mode.
	Mode SyncMode

	// KeyColumns configures the upsert key for mode update, as given by the
	// user. Names are sanitized during schema build. Empty disables upsert.
	KeyColumns []string

	// Sheet selects the spreadsheet sheet by name. Empty means first sheet.
	Sheet string

	// Delimiter overrides delimiter detection for text files. Zero means
	// detect from content.
	Delimiter rune

	// BatchSize is the number of rows per insert batch.
	BatchSize int

	// SurrogateKey names the synthetic primary-key column added on table
	// creation. Empty disables the surrogate.
	SurrogateKey string

	// PreserveLeadingZeros forces columns containing zero-led all-digit
	// values to infer as text.
	PreserveLeadingZeros bool

	// TypeOverrides pins sanitized column names to declared types,
	// bypassing inference.
	TypeOverrides map[string]ColumnType

	// ShowSQL echoes every issued statement through the logger.
	ShowSQL bool

	// Verbose enables detailed logging.
	Verbose bool
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if c.FilePath == "" {
		errs = append(errs, fmt.Errorf("FilePath is required: %w", ErrConfiguration))
	}

	if c.Database == "" {
		errs = append(errs, fmt.Errorf("Database is required: %w", ErrConfiguration))
	}

	if c.Schema == "" {
		errs = append(errs, fmt.Errorf("Schema is required: %w", ErrConfiguration))
	}

	if c.Table == "" {
		errs = append(errs, fmt.Errorf("Table is required: %w", ErrConfiguration))
	}

	if !c.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("Mode %d is not a valid sync mode: %w", int(c.Mode), ErrConfiguration))
	}

	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("BatchSize must be positive, got %d: %w", c.BatchSize, ErrConfiguration))
	}

	if len(c.KeyColumns) > 0 && c.Mode != ModeUpdate {
		errs = append(errs, fmt.Errorf("key columns only apply to mode update: %w", ErrConfiguration))
	}

	for name, t := range c.TypeOverrides {
		if !t.IsValid() {
			errs = append(errs, fmt.Errorf("type override for %q is not a valid column type: %w", name, ErrConfiguration))
		}
	}

	return errors.Join(errs...)
}

// ConnectionConfig represents resolved connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// AppName is reported to the server as application_name.
	AppName string

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration
}

// Validate checks if the ConnectionConfig has all required fields.
// It returns a multi-error if multiple validation failures occur.
func (c *ConnectionConfig) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, fmt.Errorf("Host is required: %w", ErrConfiguration))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("Port %d is out of range: %w", c.Port, ErrConfiguration))
	}

	if c.User == "" {
		errs = append(errs, fmt.Errorf("User is required (set DB_USER): %w", ErrConfiguration))
	}

	if c.Password == "" {
		errs = append(errs, fmt.Errorf("Password is required (set DB_PASSWORD): %w", ErrConfiguration))
	}

	if c.Database == "" {
		errs = append(errs, fmt.Errorf("Database is required: %w", ErrConfiguration))
	}

	if c.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("ConnectTimeout cannot be negative: %w", ErrConfiguration))
	}

	return errors.Join(errs...)
}
