package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/tabsync/internal/checksum"
	"github.com/vvka-141/tabsync/internal/config"
	"github.com/vvka-141/tabsync/internal/db"
	"github.com/vvka-141/tabsync/internal/db/manager"
	"github.com/vvka-141/tabsync/internal/logging"
	"github.com/vvka-141/tabsync/internal/render"
	"github.com/vvka-141/tabsync/internal/services"
	"github.com/vvka-141/tabsync/pkg/tabsync"
)

const asciiLogo = `
 _        _
| |_ __ _| |__  ___ _   _ _ __   ___
| __/ _' | '_ \/ __| | | | '_ \ / __|
| || (_| | |_) \__ \ |_| | | | | (__
 \__\__,_|_.__/|___/\__, |_| |_|\___|
                    |___/`

var rootCmd = &cobra.Command{
	Use:   "tabsync",
	Short: "Synchronize tabular files into PostgreSQL tables",
	Long: asciiLogo + `

tabsync loads a delimited file or spreadsheet into a PostgreSQL table:
it profiles the file, infers a schema, creates or evolves the target
table, and loads the rows in a single transaction.

The target table keeps up with the file: new columns are added, types
widen when values stop fitting, and NOT NULL is relaxed when blanks
appear. Existing columns are never dropped or narrowed outside mode
delete.

Credentials come from the environment: DB_USER and DB_PASSWORD are
required, DB_HOST and DB_PORT are optional. A .env file in the working
directory is loaded automatically. The password is never accepted as a
flag or a file setting.

Examples:
  # Load users.csv into python_scripts.public.users
  tabsync -f data/users.csv

  # Rebuild the table from scratch
  tabsync -f data/users.csv -m delete

  # Upsert on a key, against a specific database and schema
  tabsync -f data/users.csv -d warehouse -s staging -m update --key email

  # Load one sheet of a workbook, echoing the SQL
  tabsync -f report.xlsx --sheet "Q3" --show-sql

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  12 - Source file missing, unreadable, or unrecognized
  13 - Structural or data execution failed
  14 - Schema conflict`,
	Args:         cobra.NoArgs,
	RunE:         runLoad,
	SilenceUsage: true,
}

type loadFlagValues struct {
	file          string
	database      string
	schema        string
	table         string
	mode          string
	keys          []string
	sheet         string
	delimiter     string
	batchSize     int
	noSurrogate   bool
	preserveZeros bool
	showSQL       bool

	host    string
	port    int
	user    string
	sslMode string
	timeout time.Duration
	envFile string
	config  string
}

var loadFlags loadFlagValues

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	rootCmd.Flags().StringVarP(&loadFlags.file, "file", "f", "",
		"Source file to load (required)\n"+
			".csv/.tsv/.txt are read as delimited text, .xlsx/.xlsm/.xltx/.xltm as workbooks")
	rootCmd.Flags().StringVarP(&loadFlags.database, "database", "d", "",
		"Target database name\n"+
			"Precedence: --database > project file > python_scripts\n"+
			"Created automatically when missing")
	rootCmd.Flags().StringVarP(&loadFlags.schema, "schema", "s", "",
		"Target schema\n"+
			"Precedence: --schema > project file > public")
	rootCmd.Flags().StringVarP(&loadFlags.table, "table", "t", "",
		"Target table name (default: source file base name, sanitized)")
	rootCmd.Flags().StringVarP(&loadFlags.mode, "mode", "m", "",
		"Synchronization mode: delete|replace|update (default update)\n"+
			"  delete  - drop and rebuild the table from the file\n"+
			"  replace - keep the structure, swap all rows\n"+
			"  update  - evolve the structure, upsert on --key or append")
	rootCmd.Flags().StringSliceVar(&loadFlags.keys, "key", nil,
		"Upsert key columns for mode update (comma-separated or repeated)\n"+
			"Example: --key email or --key region,year")
	rootCmd.Flags().StringVar(&loadFlags.sheet, "sheet", "",
		"Worksheet name for spreadsheet sources (default: first sheet)")
	rootCmd.Flags().StringVar(&loadFlags.delimiter, "delimiter", "",
		"Field delimiter for delimited text sources\n"+
			"Single character, or 'tab'/'\\t' (default: by extension, ',' for .csv)")
	rootCmd.Flags().IntVar(&loadFlags.batchSize, "batch-size", 0,
		"Rows per insert batch (default 500)")
	rootCmd.Flags().BoolVar(&loadFlags.noSurrogate, "no-surrogate", false,
		"Do not add the idpk surrogate primary key on table creation")
	rootCmd.Flags().BoolVar(&loadFlags.preserveZeros, "preserve-leading-zeros", false,
		"Columns of all-digit values with leading zeros stay text (codes, not numbers)")
	rootCmd.Flags().BoolVar(&loadFlags.showSQL, "show-sql", false,
		"Echo every issued SQL statement to stderr")

	rootCmd.Flags().StringVar(&loadFlags.host, "host", "",
		"PostgreSQL server host\n"+
			"Precedence: --host > $DB_HOST > project file > localhost")
	rootCmd.Flags().IntVar(&loadFlags.port, "port", 0,
		"PostgreSQL server port\n"+
			"Precedence: --port > $DB_PORT > project file > 5432")
	rootCmd.Flags().StringVar(&loadFlags.user, "user", "",
		"PostgreSQL user\n"+
			"Precedence: --user > $DB_USER > project file")
	rootCmd.Flags().StringVar(&loadFlags.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: driver default)")
	rootCmd.Flags().DurationVar(&loadFlags.timeout, "timeout", 0,
		"Connection-establishment timeout (default 30s)\n"+
			"Statement execution is bounded only by server-side settings")
	rootCmd.Flags().StringVar(&loadFlags.envFile, "env-file", "",
		"Env file loaded before reading the environment\n"+
			"(default: .env when present, silently skipped otherwise)")
	rootCmd.Flags().StringVar(&loadFlags.config, "config", "",
		"Project file path (default: tabsync.yaml when present)")

	_ = rootCmd.MarkFlagRequired("file")

	registerCompletions()
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

// loadEnvironment loads an env file into the process environment without
// overriding variables that are already exported. An explicit --env-file
// must exist; the default .env is optional.
func loadEnvironment(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("%w: env file %s: %w", tabsync.ErrConfiguration, envFile, err)
		}
		return nil
	}
	_ = godotenv.Load()
	return nil
}

// loadProject reads the project file. An explicit --config must exist; the
// default tabsync.yaml is optional and its absence returns (nil, nil).
func loadProject(configPath string) (*config.ProjectConfig, error) {
	if configPath != "" {
		proj, err := config.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("%w: project file %s: %w", tabsync.ErrConfiguration, configPath, err)
		}
		return proj, nil
	}

	proj, err := config.Load(".")
	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: project file %s: %w", tabsync.ErrConfiguration, config.ConfigFileName, err)
	}
	return proj, nil
}

// buildLoadConfig builds the run configuration from CLI flags, environment
// variables, and the optional project file. Extracted for testability.
func buildLoadConfig(cmd *cobra.Command) (*tabsync.LoadConfig, *tabsync.ConnectionConfig, error) {
	if err := loadEnvironment(loadFlags.envFile); err != nil {
		return nil, nil, err
	}

	proj, err := loadProject(loadFlags.config)
	if err != nil {
		return nil, nil, err
	}

	flags := config.Flags{
		File:                 loadFlags.file,
		Database:             loadFlags.database,
		Schema:               loadFlags.schema,
		Table:                loadFlags.table,
		Mode:                 loadFlags.mode,
		Keys:                 loadFlags.keys,
		Sheet:                loadFlags.sheet,
		Delimiter:            loadFlags.delimiter,
		BatchSize:            loadFlags.batchSize,
		NoSurrogate:          loadFlags.noSurrogate,
		PreserveLeadingZeros: loadFlags.preserveZeros,
		ShowSQL:              loadFlags.showSQL,
		Verbose:              getVerboseFlag(cmd),
		Host:                 loadFlags.host,
		Port:                 loadFlags.port,
		User:                 loadFlags.user,
		SSLMode:              loadFlags.sslMode,
		Timeout:              loadFlags.timeout,
	}
	return config.Resolve(flags, proj)
}

func runLoad(cmd *cobra.Command, args []string) error {
	loadConfig, connConfig, err := buildLoadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.NewConsoleLogger(loadConfig.Verbose)
	loader := services.NewLoadService(
		db.NewStandardConnector(connConfig, logger),
		manager.New(),
		checksum.New(),
		logger,
	)

	// Handle interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling load...")
			cancel()
		case <-ctx.Done():
		}
	}()

	result, err := loader.Load(ctx, *loadConfig)
	if result != nil && result.Status != tabsync.StatusFailed {
		render.NewRenderer(os.Stdout).LoadSummary(result)
	}
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	return nil
}
