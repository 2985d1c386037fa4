// Package db provides the pgx-backed connection layer.
package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns limits concurrent connections. A load run is
	// sequential; a handful of connections covers bootstrap plus the
	// transactional session.
	DefaultMaxConns = 5

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps connections alive during long loads
	// to avoid reconnection overhead.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger tabsync.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Info("%s", notice.Message)
	}
}

// StandardConnector implements the Connector interface for username/password
// authentication. Connection failures are terminal; a failed run is re-invoked
// by the caller rather than retried.
type StandardConnector struct {
	config *tabsync.ConnectionConfig
	logger tabsync.Logger
}

// NewStandardConnector creates a new StandardConnector with the given
// configuration. Server notices are forwarded through the logger.
func NewStandardConnector(config *tabsync.ConnectionConfig, logger tabsync.Logger) *StandardConnector {
	return &StandardConnector{
		config: config,
		logger: logger,
	}
}

// Connect establishes a connection pool to the given database, overriding the
// database named in the configuration. Used once for the management database
// and once for the target.
func (c *StandardConnector) Connect(ctx context.Context, database string) (*pgxpool.Pool, error) {
	connStr := BuildDSN(c.config, database)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w: %w", tabsync.ErrConfiguration, err)
	}

	configurePool(poolConfig, c.logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, c.config.Host, c.config.Port, database)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, c.config.Host, c.config.Port, database)
	}

	return pool, nil
}

// BuildDSN renders a key=value connection string for the given database.
// The database parameter overrides config.Database so the same credentials
// serve both the management and the target connection.
func BuildDSN(config *tabsync.ConnectionConfig, database string) string {
	if database == "" {
		database = config.Database
	}

	params := map[string]string{
		"host":   config.Host,
		"port":   fmt.Sprintf("%d", config.Port),
		"user":   config.User,
		"dbname": database,
	}
	if config.Password != "" {
		params["password"] = config.Password
	}
	if config.SSLMode != "" {
		params["sslmode"] = config.SSLMode
	}
	if config.AppName != "" {
		params["application_name"] = config.AppName
	}
	if config.ConnectTimeout > 0 {
		seconds := int(config.ConnectTimeout.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		params["connect_timeout"] = fmt.Sprintf("%d", seconds)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(params))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, quoteDSNValue(params[k])))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a DSN value when it contains characters that would
// break key=value parsing.
func quoteDSNValue(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance
// and chains the ErrConnection sentinel for exit code mapping.
func wrapConnectionError(err error, host string, port int, database string) error {
	return fmt.Errorf("%w: %w", tabsync.ErrConnection, describeConnectionError(err, host, port, database))
}

func describeConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port (check $DB_HOST and $DB_PORT)
  - Firewall blocking the connection

Original error: %w`, addr, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled (check $DB_HOST)
  - DNS is not configured or reachable
  - Network connection issue

Original error: %w`, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $DB_PASSWORD)
  - Wrong username (check $DB_USER)
  - User does not have access to the database

Original error: %w`, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

Missing target databases are created through the management database.
Seeing this error usually means:
  - The management database is missing (check connection.management_database)
  - The role in $DB_USER does not exist on the server

Original error: %w`, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Network latency or packet loss
  - Wrong host/port (server not listening)

Original error: %w`, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)

Original error: %w`, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`too many connections to database "%s"

Possible causes:
  - Connection pool exhausted on server
  - max_connections limit reached in postgresql.conf
  - Stale connections from earlier loads

Original error: %w`, database, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}

// Verify StandardConnector implements Connector at compile time
var _ tabsync.Connector = (*StandardConnector)(nil)
