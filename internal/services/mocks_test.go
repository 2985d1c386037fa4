package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

type mockConnector struct {
	pool *pgxpool.Pool
	err  error
}

func (m *mockConnector) Connect(_ context.Context, _ string) (*pgxpool.Pool, error) {
	return m.pool, m.err
}

type mockDatabaseManager struct {
	existsResult    bool
	existsErr       error
	createErr       error
	ensureSchemaErr error

	created        []string
	ensuredSchemas []string
}

func (m *mockDatabaseManager) Exists(_ context.Context, _ tabsync.DBConnection, _ string) (bool, error) {
	return m.existsResult, m.existsErr
}

func (m *mockDatabaseManager) Create(_ context.Context, _ tabsync.DBConnection, dbName string) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, dbName)
	return nil
}

func (m *mockDatabaseManager) EnsureSchema(_ context.Context, _ tabsync.DBConnection, schema string) error {
	if m.ensureSchemaErr != nil {
		return m.ensureSchemaErr
	}
	m.ensuredSchemas = append(m.ensuredSchemas, schema)
	return nil
}

type mockLogger struct {
	verbose []string
	info    []string
	errs    []string
}

func (m *mockLogger) Verbose(format string, args ...interface{}) {
	m.verbose = append(m.verbose, fmt.Sprintf(format, args...))
}

func (m *mockLogger) Info(format string, args ...interface{}) {
	m.info = append(m.info, fmt.Sprintf(format, args...))
}

func (m *mockLogger) Error(format string, args ...interface{}) {
	m.errs = append(m.errs, fmt.Sprintf(format, args...))
}

func (m *mockLogger) infoContains(substr string) bool {
	for _, line := range m.info {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

type mockCalculator struct {
	digest string
	err    error
}

func (m *mockCalculator) Calculate(r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return m.digest, nil
}

// mockDBConnection serves the metadata reads and bootstrap statements the
// loader issues outside the main transaction.
type mockDBConnection struct {
	execSQL []string
	execErr error

	existsRow *mockRow
	liveRows  *mockRows
	queryErr  error

	tx       *mockTx
	beginErr error
}

func (m *mockDBConnection) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	m.execSQL = append(m.execSQL, sql)
	if m.execErr != nil {
		return pgconn.CommandTag{}, m.execErr
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockDBConnection) Query(_ context.Context, _ string, _ ...any) (tabsync.Rows, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.liveRows == nil {
		return &mockRows{}, nil
	}
	return m.liveRows, nil
}

func (m *mockDBConnection) QueryRow(_ context.Context, _ string, _ ...any) tabsync.Row {
	if m.existsRow == nil {
		return &mockRow{exists: false}
	}
	return m.existsRow
}

func (m *mockDBConnection) Begin(_ context.Context) (tabsync.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	if m.tx == nil {
		m.tx = &mockTx{}
	}
	return m.tx, nil
}

type mockRow struct {
	exists bool
	err    error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if p, ok := dest[0].(*bool); ok {
			*p = m.exists
		}
	}
	return nil
}

// mockRows yields information_schema column tuples:
// column_name, data_type, is_nullable.
type mockRows struct {
	rows    [][]string
	idx     int
	scanErr error
	iterErr error
	closed  bool
}

func (m *mockRows) Next() bool {
	if m.idx >= len(m.rows) {
		return false
	}
	m.idx++
	return true
}

func (m *mockRows) Scan(dest ...any) error {
	if m.scanErr != nil {
		return m.scanErr
	}
	row := m.rows[m.idx-1]
	for i := range dest {
		if p, ok := dest[i].(*string); ok && i < len(row) {
			*p = row[i]
		}
	}
	return nil
}

func (m *mockRows) Err() error { return m.iterErr }

func (m *mockRows) Close() { m.closed = true }

// mockTx records every statement and batch sent through the transaction.
// failOnSQL triggers execErr on the first statement containing the substring;
// batchFailAt triggers batchExecErr on the n-th batched row (1-based).
type mockTx struct {
	execSQL   []string
	execErr   error
	failOnSQL string

	batchSizes     []int
	batchSQL       []string
	batchRows      [][]any
	batchExecCalls int
	batchFailAt    int
	batchExecErr   error
	batchCloseErr  error

	commitErr  error
	committed  bool
	rolledBack bool
}

func (m *mockTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	m.execSQL = append(m.execSQL, sql)
	if m.execErr != nil && (m.failOnSQL == "" || strings.Contains(sql, m.failOnSQL)) {
		return pgconn.CommandTag{}, m.execErr
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) SendBatch(_ context.Context, batch *pgx.Batch) pgx.BatchResults {
	m.batchSizes = append(m.batchSizes, batch.Len())
	for _, q := range batch.QueuedQueries {
		m.batchSQL = append(m.batchSQL, q.SQL)
		m.batchRows = append(m.batchRows, q.Arguments)
	}
	return &mockBatchResults{tx: m}
}

func (m *mockTx) Commit(_ context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(_ context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

type mockBatchResults struct {
	tx     *mockTx
	closed bool
}

func (r *mockBatchResults) Exec() (pgconn.CommandTag, error) {
	r.tx.batchExecCalls++
	if r.tx.batchFailAt > 0 && r.tx.batchExecCalls >= r.tx.batchFailAt {
		return pgconn.CommandTag{}, r.tx.batchExecErr
	}
	return pgconn.CommandTag{}, nil
}

func (r *mockBatchResults) Query() (pgx.Rows, error) { return nil, nil }

func (r *mockBatchResults) QueryRow() pgx.Row { return nil }

func (r *mockBatchResults) Close() error {
	r.closed = true
	return r.tx.batchCloseErr
}

// mockRowSource replays fixed rows. failAt triggers err on the n-th Next()
// call (1-based).
type mockRowSource struct {
	header []string
	rows   [][]string
	idx    int
	failAt int
	err    error
	closed bool
}

func (m *mockRowSource) Header() []string { return m.header }

func (m *mockRowSource) Next() ([]string, error) {
	if m.failAt > 0 && m.idx+1 >= m.failAt {
		return nil, m.err
	}
	if m.idx >= len(m.rows) {
		return nil, io.EOF
	}
	row := m.rows[m.idx]
	m.idx++
	return row, nil
}

func (m *mockRowSource) Close() error {
	m.closed = true
	return nil
}
