package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/tabsync/internal/infer"
	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// ExecuteResult reports what the executor read, wrote, and committed.
type ExecuteResult struct {
	RowsRead    int64
	RowsWritten int64
	Batches     int

	// DropCommitted reports that the mode-delete drop was committed before
	// the main transaction. When set and Execute returns an error, the table
	// is gone and the run is partial rather than clean-failed.
	DropCommitted bool

	Warnings []string
}

// Executor applies a reconciliation plan and streams source rows into the
// target table, all within a single transaction.
//
// Thread-Safety: NOT safe for concurrent Execute() calls on the same
// instance. Create separate instances for concurrent loads.
type Executor struct {
	conn      tabsync.DBConnection
	logger    tabsync.Logger
	batchSize int
	showSQL   bool
	state     tabsync.TxState
}

// NewExecutor creates an executor bound to a target-database connection.
// Panics on nil dependencies or a non-positive batch size: these are
// programmer errors that should fail loudly at startup.
func NewExecutor(conn tabsync.DBConnection, logger tabsync.Logger, batchSize int, showSQL bool) *Executor {
	if conn == nil {
		panic("conn cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if batchSize <= 0 {
		panic("batch size must be positive")
	}
	return &Executor{
		conn:      conn,
		logger:    logger,
		batchSize: batchSize,
		showSQL:   showSQL,
		state:     tabsync.TxPending,
	}
}

// State returns the executor's current position in the transactional state
// machine.
func (e *Executor) State() tabsync.TxState {
	return e.state
}

// Execute runs the plan: the optional committed drop, then one transaction
// holding the structural operations and the data load. The source must be
// positioned at the first data row; the caller closes it.
func (e *Executor) Execute(ctx context.Context, plan *tabsync.ReconciliationPlan, candidate *tabsync.CandidateSchema, src tabsync.RowSource) (*ExecuteResult, error) {
	e.state = tabsync.TxPending
	result := &ExecuteResult{}

	structural := plan.Structural
	if len(structural) > 0 && structural[0].Kind == tabsync.OpDropTable {
		if err := e.commitDrop(ctx, plan, candidate, result); err != nil {
			return result, err
		}
		structural = structural[1:]
	}

	tx, err := e.conn.Begin(ctx)
	if err != nil {
		e.transition(tabsync.TxRolledBack)
		return result, fmt.Errorf("%w: begin: %w", tabsync.ErrTransaction, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			e.logger.Error("rollback failed: %v", rbErr)
		}
		e.transition(tabsync.TxRolledBack)
	}()

	for _, op := range structural {
		sql := e.sqlForOp(candidate, op)
		e.echoSQL(sql)
		if _, err := tx.Exec(ctx, sql); err != nil {
			return result, e.wrapStatementError(op.Kind.String(), sql, err)
		}
		e.logger.Verbose("applied %s", op.Describe())
	}
	e.transition(tabsync.TxStructuralChangesApplied)

	if err := e.loadData(ctx, tx, plan, candidate, src, result); err != nil {
		return result, err
	}
	e.transition(tabsync.TxDataLoaded)

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("%w: commit: %w", tabsync.ErrTransaction, err)
	}
	committed = true
	e.transition(tabsync.TxCommitted)

	return result, nil
}

// commitDrop executes the mode-delete drop as its own autocommit statement.
// CREATE-and-load then run transactionally; if they fail the drop stays.
func (e *Executor) commitDrop(ctx context.Context, plan *tabsync.ReconciliationPlan, candidate *tabsync.CandidateSchema, result *ExecuteResult) error {
	target := fmt.Sprintf("%s.%s", candidate.Schema, candidate.Table)
	if plan.TableExists {
		e.logger.Info("WARNING: dropping table %s before loading; the drop commits immediately", target)
		result.Warnings = append(result.Warnings, fmt.Sprintf("table %s dropped and rebuilt", target))
	}

	sql := buildDropTable(candidate.Schema, candidate.Table)
	e.echoSQL(sql)
	if _, err := e.conn.Exec(ctx, sql); err != nil {
		e.transition(tabsync.TxRolledBack)
		return e.wrapStatementError("drop-table", sql, err)
	}
	result.DropCommitted = plan.TableExists
	return nil
}

// loadData streams source rows into the table in fixed-size batches.
func (e *Executor) loadData(ctx context.Context, tx tabsync.Tx, plan *tabsync.ReconciliationPlan, candidate *tabsync.CandidateSchema, src tabsync.RowSource, result *ExecuteResult) error {
	if plan.Data == tabsync.DataTruncateInsert {
		sql := buildDeleteAll(candidate.Schema, candidate.Table)
		e.echoSQL(sql)
		if _, err := tx.Exec(ctx, sql); err != nil {
			return e.wrapStatementError("truncate", sql, err)
		}
	}

	columns := make([]string, len(candidate.Columns))
	for i, col := range candidate.Columns {
		columns[i] = col.Name
	}

	var dataSQL string
	if plan.Data == tabsync.DataUpsert {
		dataSQL = buildUpsert(candidate.Schema, candidate.Table, columns, candidate.KeyColumns)
	} else {
		dataSQL = buildInsert(candidate.Schema, candidate.Table, columns)
	}

	var (
		buffer      [][]any
		firstRow    int64 = 1
		echoedFirst bool
	)

	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		window := fmt.Sprintf("rows %d-%d", firstRow, firstRow+int64(len(buffer))-1)
		if e.showSQL {
			e.logger.Info("batch %d: %s", result.Batches+1, window)
		}

		batch := &pgx.Batch{}
		for _, args := range buffer {
			batch.Queue(dataSQL, args...)
		}

		br := tx.SendBatch(ctx, batch)
		var execErr error
		for range buffer {
			if _, err := br.Exec(); err != nil {
				execErr = err
				break
			}
		}
		if closeErr := br.Close(); execErr == nil {
			execErr = closeErr
		}
		if execErr != nil {
			if plan.Data == tabsync.DataUpsert {
				execErr = remediateUpsert(execErr)
			}
			return e.wrapStatementError("data batch ("+window+")", dataSQL, execErr)
		}

		result.RowsWritten += int64(len(buffer))
		result.Batches++
		firstRow += int64(len(buffer))
		buffer = buffer[:0]
		return nil
	}

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		result.RowsRead++

		args := rowArgs(row)
		if e.showSQL && !echoedFirst {
			e.logger.Info("SQL: %s", dataSQL)
			e.logger.Info("first row: %v", args)
			echoedFirst = true
		}

		buffer = append(buffer, args)
		if len(buffer) >= e.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (e *Executor) sqlForOp(candidate *tabsync.CandidateSchema, op tabsync.PlanOp) string {
	switch op.Kind {
	case tabsync.OpCreateTable:
		return buildCreateTable(candidate)
	case tabsync.OpAddColumn:
		return buildAddColumn(candidate.Schema, candidate.Table, op.Column)
	case tabsync.OpWidenColumn:
		return buildWidenColumn(candidate.Schema, candidate.Table, op.Column)
	case tabsync.OpRelaxNull:
		return buildRelaxNull(candidate.Schema, candidate.Table, op.Column)
	default:
		return buildDropTable(candidate.Schema, candidate.Table)
	}
}

func (e *Executor) transition(to tabsync.TxState) {
	e.logger.Verbose("transaction state: %s -> %s", e.state, to)
	e.state = to
}

func (e *Executor) echoSQL(sql string) {
	if e.showSQL {
		e.logger.Info("SQL: %s", strings.Join(strings.Fields(sql), " "))
	}
}

func (e *Executor) wrapStatementError(what, sql string, err error) error {
	if e.showSQL {
		return fmt.Errorf("%w: %s failed: %w (SQL: %s)", tabsync.ErrTransaction, what, err, truncateSQL(sql))
	}
	return fmt.Errorf("%w: %s failed: %w", tabsync.ErrTransaction, what, err)
}

// remediateUpsert adds remediation text to PostgreSQL's constraint-missing
// error (42P10), which surfaces when the live table predates the key.
func remediateUpsert(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P10" {
		return fmt.Errorf("%w (the live table has no unique constraint over the key columns; add one, or rerun with --mode delete to rebuild the table)", err)
	}
	return err
}

// rowArgs converts one padded source row into bind parameters. Blank cells
// become NULL; everything else travels as raw text for server-side coercion.
func rowArgs(row []string) []any {
	args := make([]any, len(row))
	for i, cell := range row {
		if infer.IsBlank(cell) {
			args[i] = nil
		} else {
			args[i] = cell
		}
	}
	return args
}

func truncateSQL(sql string) string {
	flat := strings.Join(strings.Fields(sql), " ")
	if len(flat) <= tabsync.MaxErrorPreviewLength {
		return flat
	}
	return flat[:tabsync.MaxErrorPreviewLength] + "..."
}
