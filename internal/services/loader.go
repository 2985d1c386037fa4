package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/tabsync/internal/checksum"
	"github.com/vvka-141/tabsync/internal/db"
	"github.com/vvka-141/tabsync/internal/infer"
	"github.com/vvka-141/tabsync/internal/schema"
	"github.com/vvka-141/tabsync/internal/source"
	"github.com/vvka-141/tabsync/pkg/tabsync"
)

type connectFunc func(ctx context.Context, database string) (tabsync.DBConnection, func(), error)

// LoadService implements the Loader interface.
// Thread-Safety: NOT safe for concurrent Load() calls on the same instance.
// Create separate instances for concurrent loads.
type LoadService struct {
	connector tabsync.Connector
	dbManager tabsync.DatabaseManager
	calc      checksum.Calculator
	logger    tabsync.Logger

	fsys    source.FileSystem
	connect connectFunc
}

// NewLoadService creates a new LoadService with all dependencies injected.
//
// Panics on nil dependencies: these are programmer errors that should fail
// loudly at application startup, not during a run. Runtime conditions
// (unreadable files, unreachable databases, conflicting schemas) are returned
// as errors.
func NewLoadService(
	connector tabsync.Connector,
	dbManager tabsync.DatabaseManager,
	calc checksum.Calculator,
	logger tabsync.Logger,
) *LoadService {
	if connector == nil {
		panic("connector cannot be nil")
	}
	if dbManager == nil {
		panic("dbManager cannot be nil")
	}
	if calc == nil {
		panic("calc cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	svc := &LoadService{
		connector: connector,
		dbManager: dbManager,
		calc:      calc,
		logger:    logger,
		fsys:      source.NewOSFileSystem(),
	}
	svc.connect = svc.defaultConnect
	return svc
}

func (s *LoadService) defaultConnect(ctx context.Context, database string) (tabsync.DBConnection, func(), error) {
	pool, err := s.connector.Connect(ctx, database)
	if err != nil {
		return nil, nil, err
	}
	return db.NewPoolAdapter(pool), func() { pool.Close() }, nil
}

// Load executes a run using the provided configuration.
// The returned LoadResult is non-nil whenever a run was attempted, even on
// failure, so callers can render a summary of what happened.
func (s *LoadService) Load(ctx context.Context, config tabsync.LoadConfig) (*tabsync.LoadResult, error) {
	started := time.Now()
	result := &tabsync.LoadResult{
		RunID:      uuid.New(),
		SourcePath: config.FilePath,
		Database:   config.Database,
		Schema:     config.Schema,
		Table:      config.Table,
		Mode:       config.Mode,
		Status:     tabsync.StatusFailed,
	}
	defer func() { result.Elapsed = time.Since(started) }()

	if err := config.Validate(); err != nil {
		return result, fmt.Errorf("invalid configuration: %w", err)
	}

	s.logger.Verbose("run %s: loading %s into %s.%s.%s (mode %s)",
		result.RunID, config.FilePath, config.Database, config.Schema, config.Table, config.Mode)

	fingerprint, err := s.fingerprint(config.FilePath)
	if err != nil {
		return result, err
	}
	result.Fingerprint = fingerprint
	s.logger.Verbose("source fingerprint: %s", fingerprint)

	opener, err := source.NewOpener(s.fsys, config.FilePath, source.Options{
		Delimiter: config.Delimiter,
		Sheet:     config.Sheet,
	})
	if err != nil {
		return result, err
	}

	candidate, rowsProfiled, warnings, err := s.buildCandidate(opener, &config)
	if err != nil {
		return result, err
	}
	result.RowsRead = rowsProfiled
	result.Warnings = append(result.Warnings, warnings...)
	s.logger.Verbose("profiled %d rows across %d columns", rowsProfiled, len(candidate.Columns))

	if err := s.ensureDatabase(ctx, &config); err != nil {
		return result, err
	}

	conn, cleanup, err := s.connect(ctx, config.Database)
	if err != nil {
		return result, err
	}
	defer cleanup()

	if err := s.dbManager.EnsureSchema(ctx, conn, config.Schema); err != nil {
		return result, fmt.Errorf("%w: %w", tabsync.ErrTransaction, err)
	}

	live, err := s.readLiveSchema(ctx, conn, &config, candidate)
	if err != nil {
		return result, err
	}

	plan, err := schema.Reconcile(candidate, live, config.Mode)
	if err != nil {
		return result, err
	}
	result.Warnings = append(result.Warnings, plan.Warnings...)
	for _, op := range plan.Structural {
		result.StructuralOps = append(result.StructuralOps, op.Describe())
	}
	s.logger.Verbose("plan: %d structural operation(s), data %s", len(plan.Structural), plan.Data)

	src, err := opener.Open()
	if err != nil {
		return result, err
	}
	defer src.Close()

	executor := NewExecutor(conn, s.logger, config.BatchSize, config.ShowSQL)
	execResult, execErr := executor.Execute(ctx, plan, candidate, src)
	result.RowsWritten = execResult.RowsWritten
	result.Batches = execResult.Batches
	result.Warnings = append(result.Warnings, execResult.Warnings...)

	if execErr != nil {
		if execResult.DropCommitted {
			result.Status = tabsync.StatusPartial
		}
		return result, execErr
	}

	if execResult.RowsRead != rowsProfiled {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"source changed between profiling and loading: %d rows profiled, %d loaded",
			rowsProfiled, execResult.RowsRead))
		result.RowsRead = execResult.RowsRead
	}

	result.Status = tabsync.StatusSuccess
	s.logger.Info("✓ Loaded %d rows into %s.%s.%s", result.RowsWritten, config.Database, config.Schema, config.Table)
	return result, nil
}

// fingerprint digests the raw source bytes for the run record.
func (s *LoadService) fingerprint(path string) (string, error) {
	f, err := s.fsys.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", tabsync.ErrFileRead, err)
	}
	defer f.Close()

	digest, err := s.calc.Calculate(f)
	if err != nil {
		return "", fmt.Errorf("%w: fingerprinting %s: %w", tabsync.ErrFileRead, path, err)
	}
	return digest, nil
}

// buildCandidate runs the profiling pass over the source and assembles the
// candidate schema from the profiles.
func (s *LoadService) buildCandidate(opener tabsync.SourceOpener, config *tabsync.LoadConfig) (*tabsync.CandidateSchema, int64, []string, error) {
	src, err := opener.Open()
	if err != nil {
		return nil, 0, nil, err
	}
	defer src.Close()

	profiler := infer.NewProfiler(src.Header(), infer.Options{
		PreserveLeadingZeros: config.PreserveLeadingZeros,
	})
	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, nil, err
		}
		profiler.Observe(row)
	}

	candidate, warnings, err := schema.Build(config.Schema, config.Table, profiler.Profiles(), schema.BuildOptions{
		SurrogateKey:  config.SurrogateKey,
		KeyColumns:    config.KeyColumns,
		TypeOverrides: config.TypeOverrides,
	})
	if err != nil {
		return nil, 0, nil, err
	}
	return candidate, profiler.Rows(), warnings, nil
}

// ensureDatabase ensures the target database exists, creating it via the
// management database if necessary.
func (s *LoadService) ensureDatabase(ctx context.Context, config *tabsync.LoadConfig) error {
	s.logger.Verbose("Connecting to management database '%s' to check if target database exists", config.ManagementDatabase)

	conn, cleanup, err := s.connect(ctx, config.ManagementDatabase)
	if err != nil {
		return err
	}
	defer cleanup()

	exists, err := s.dbManager.Exists(ctx, conn, config.Database)
	if err != nil {
		return fmt.Errorf("%w: %w", tabsync.ErrTransaction, err)
	}
	if exists {
		s.logger.Verbose("Database '%s' already exists", config.Database)
		return nil
	}

	s.logger.Info("Database '%s' does not exist. Creating...", config.Database)
	if err := s.dbManager.Create(ctx, conn, config.Database); err != nil {
		return fmt.Errorf("%w: %w", tabsync.ErrTransaction, err)
	}
	s.logger.Verbose("✓ Database '%s' created successfully", config.Database)
	return nil
}

// readLiveSchema snapshots the live table structure, or returns nil when the
// table does not exist. Live columns whose types fall outside the inference
// ladder conflict when the file also carries them, except under mode delete,
// which rebuilds the table anyway.
func (s *LoadService) readLiveSchema(ctx context.Context, conn tabsync.DBConnection, config *tabsync.LoadConfig, candidate *tabsync.CandidateSchema) (*tabsync.LiveSchema, error) {
	var exists bool
	if err := conn.QueryRow(ctx, queryTableExists, config.Schema, config.Table).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%w: checking table existence: %w", tabsync.ErrTransaction, err)
	}
	if !exists {
		return nil, nil
	}

	rows, err := conn.Query(ctx, queryLiveColumns, config.Schema, config.Table)
	if err != nil {
		return nil, fmt.Errorf("%w: reading live columns: %w", tabsync.ErrTransaction, err)
	}
	defer rows.Close()

	live := &tabsync.LiveSchema{Schema: config.Schema, Table: config.Table}
	unmapped := make(map[string]string)
	for rows.Next() {
		var name, dataType, isNullable string
		if err := rows.Scan(&name, &dataType, &isNullable); err != nil {
			return nil, fmt.Errorf("%w: scanning live column: %w", tabsync.ErrTransaction, err)
		}
		colType, ok := schema.MapPostgresType(dataType)
		if !ok {
			unmapped[strings.ToLower(name)] = dataType
			colType = tabsync.TypeText
		}
		live.Columns = append(live.Columns, tabsync.Column{
			Name:     name,
			Type:     colType,
			Nullable: strings.EqualFold(isNullable, "YES"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading live columns: %w", tabsync.ErrTransaction, err)
	}

	if config.Mode != tabsync.ModeDelete {
		for _, col := range candidate.Columns {
			if dataType, found := unmapped[strings.ToLower(col.Name)]; found {
				return nil, fmt.Errorf(
					"%w: live column %q has type %q, which cannot be reconciled with file data (rerun with --mode delete to rebuild the table)",
					tabsync.ErrSchemaConflict, col.Name, dataType)
			}
		}
	}

	return live, nil
}

// Verify interface compliance at compile time
var _ tabsync.Loader = (*LoadService)(nil)
