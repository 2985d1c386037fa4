package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/tabsync/internal/schema"
	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// Flags carries the raw command-line values before precedence resolution.
// Zero values mean the flag was not given.
type Flags struct {
	File                 string
	Database             string
	Schema               string
	Table                string
	Mode                 string
	Keys                 []string
	Sheet                string
	Delimiter            string
	BatchSize            int
	NoSurrogate          bool
	PreserveLeadingZeros bool
	ShowSQL              bool
	Verbose              bool

	Host    string
	Port    int
	User    string
	SSLMode string
	Timeout time.Duration
}

// Resolve merges flags, environment variables, and the project file into the
// run configuration. Precedence is flags over environment over project file
// over built-in defaults. proj may be nil when no project file exists.
//
// The password is read from DB_PASSWORD only; it has no flag and no place in
// the project file.
func Resolve(flags Flags, proj *ProjectConfig) (*tabsync.LoadConfig, *tabsync.ConnectionConfig, error) {
	if proj == nil {
		proj = &ProjectConfig{}
	}

	load := &tabsync.LoadConfig{
		FilePath:             flags.File,
		Database:             firstOf(flags.Database, proj.Connection.Database, tabsync.DefaultDatabase),
		ManagementDatabase:   firstOf(proj.Connection.ManagementDatabase, tabsync.DefaultManagementDB),
		Schema:               firstOf(flags.Schema, proj.Connection.Schema, tabsync.DefaultSchema),
		PreserveLeadingZeros: flags.PreserveLeadingZeros,
		ShowSQL:              flags.ShowSQL,
		Verbose:              flags.Verbose,
	}

	table := flags.Table
	if table == "" && flags.File != "" {
		derived, err := TableFromPath(flags.File)
		if err != nil {
			return nil, nil, err
		}
		table = derived
	}
	load.Table = table

	mode := tabsync.ModeUpdate
	if modeStr := firstOf(flags.Mode, proj.Load.Mode); modeStr != "" {
		parsed, err := tabsync.ParseSyncMode(modeStr)
		if err != nil {
			return nil, nil, err
		}
		mode = parsed
	}
	load.Mode = mode

	load.BatchSize = tabsync.DefaultBatchSize
	if proj.Load.BatchSize != 0 {
		load.BatchSize = proj.Load.BatchSize
	}
	if flags.BatchSize != 0 {
		load.BatchSize = flags.BatchSize
	}

	load.SurrogateKey = tabsync.DefaultSurrogateKey
	if proj.Load.SurrogateKey != nil && !*proj.Load.SurrogateKey {
		load.SurrogateKey = ""
	}
	if flags.NoSurrogate {
		load.SurrogateKey = ""
	}

	tableCfg := proj.Tables[load.Table]

	keys := flags.Keys
	if len(keys) == 0 {
		keys = tableCfg.Key
	}
	switch {
	case load.Mode == tabsync.ModeUpdate:
		load.KeyColumns = keys
	case len(flags.Keys) > 0:
		return nil, nil, fmt.Errorf("--key only applies to mode update: %w", tabsync.ErrConfiguration)
	}

	load.Sheet = firstOf(flags.Sheet, tableCfg.Sheet)

	delimiter, err := ParseDelimiter(flags.Delimiter)
	if err != nil {
		return nil, nil, err
	}
	load.Delimiter = delimiter

	if len(tableCfg.Columns) > 0 {
		overrides := make(map[string]tabsync.ColumnType, len(tableCfg.Columns))
		for name, typeName := range tableCfg.Columns {
			t, err := tabsync.ParseColumnType(typeName)
			if err != nil {
				return nil, nil, fmt.Errorf("table %s: %w", load.Table, err)
			}
			overrides[name] = t
		}
		load.TypeOverrides = overrides
	}

	conn, err := resolveConnection(flags, proj, load.Database)
	if err != nil {
		return nil, nil, err
	}

	if err := errors.Join(load.Validate(), conn.Validate()); err != nil {
		return nil, nil, err
	}
	return load, conn, nil
}

func resolveConnection(flags Flags, proj *ProjectConfig, database string) (*tabsync.ConnectionConfig, error) {
	conn := &tabsync.ConnectionConfig{
		Host:     firstOf(flags.Host, envValue("DB_HOST"), proj.Connection.Host, tabsync.DefaultHost),
		User:     firstOf(flags.User, envValue("DB_USER"), proj.Connection.Username),
		Password: os.Getenv("DB_PASSWORD"),
		Database: database,
		SSLMode:  firstOf(flags.SSLMode, proj.Connection.SSLMode),
		AppName:  "tabsync",
	}

	port := flags.Port
	if port == 0 {
		if raw := envValue("DB_PORT"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("DB_PORT %q is not a number: %w", raw, tabsync.ErrConfiguration)
			}
			port = parsed
		}
	}
	if port == 0 {
		port = proj.Connection.Port
	}
	if port == 0 {
		port = tabsync.DefaultPort
	}
	conn.Port = port

	timeout := flags.Timeout
	if timeout == 0 && proj.Connection.ConnectTimeout != "" {
		parsed, err := time.ParseDuration(proj.Connection.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("connect_timeout %q is not a duration: %w", proj.Connection.ConnectTimeout, tabsync.ErrConfiguration)
		}
		timeout = parsed
	}
	if timeout == 0 {
		timeout = tabsync.DefaultConnectTimeout
	}
	conn.ConnectTimeout = timeout

	return conn, nil
}

// TableFromPath derives the target table name from a file path by sanitizing
// its base name. Paths whose base name holds no usable characters need an
// explicit table name.
func TableFromPath(path string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	table := schema.SanitizeTable(base)
	if table == "" {
		return "", fmt.Errorf("cannot derive a table name from %q, pass --table: %w", filepath.Base(path), tabsync.ErrConfiguration)
	}
	return table, nil
}

// ParseDelimiter turns the --delimiter flag value into a rune. Empty means
// detect from the file; "tab" and "\t" both mean a tab character.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "\\t", "tab":
		return '\t', nil
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q: %w", s, tabsync.ErrConfiguration)
	}
	return runes[0], nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
