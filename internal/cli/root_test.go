package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// setLoadFlags swaps the package flag values for one test and restores the
// originals afterwards.
func setLoadFlags(t *testing.T, f loadFlagValues) {
	t.Helper()
	original := loadFlags
	loadFlags = f
	t.Cleanup(func() { loadFlags = original })
}

// pinEnvironment fixes the DB_* variables so ambient shell state cannot leak
// into a test. Individual tests override as needed.
func pinEnvironment(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_USER", "loader")
	t.Setenv("DB_PASSWORD", "secret")
}

// verboseCommand builds a minimal command carrying the verbose flag that
// buildLoadConfig reads.
func verboseCommand(verbose bool) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("verbose", verbose, "")
	return cmd
}

func writeProjectFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tabsync.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestBuildLoadConfig_Defaults(t *testing.T) {
	pinEnvironment(t)
	setLoadFlags(t, loadFlagValues{file: "data/users.csv"})

	load, conn, err := buildLoadConfig(verboseCommand(false))
	if err != nil {
		t.Fatalf("buildLoadConfig() error = %v", err)
	}

	if load.Database != "python_scripts" {
		t.Errorf("Database = %q, want %q", load.Database, "python_scripts")
	}
	if load.Schema != "public" {
		t.Errorf("Schema = %q, want %q", load.Schema, "public")
	}
	if load.Table != "users" {
		t.Errorf("Table = %q, want %q", load.Table, "users")
	}
	if load.Mode != tabsync.ModeUpdate {
		t.Errorf("Mode = %v, want %v", load.Mode, tabsync.ModeUpdate)
	}
	if load.BatchSize != 500 {
		t.Errorf("BatchSize = %d, want 500", load.BatchSize)
	}
	if load.SurrogateKey != "idpk" {
		t.Errorf("SurrogateKey = %q, want %q", load.SurrogateKey, "idpk")
	}
	if load.ManagementDatabase != "postgres" {
		t.Errorf("ManagementDatabase = %q, want %q", load.ManagementDatabase, "postgres")
	}
	if conn.Host != "localhost" {
		t.Errorf("Host = %q, want %q", conn.Host, "localhost")
	}
	if conn.Port != 5432 {
		t.Errorf("Port = %d, want 5432", conn.Port)
	}
	if conn.User != "loader" {
		t.Errorf("User = %q, want %q", conn.User, "loader")
	}
	if conn.Password != "secret" {
		t.Errorf("Password = %q, want %q", conn.Password, "secret")
	}
	if conn.AppName != "tabsync" {
		t.Errorf("AppName = %q, want %q", conn.AppName, "tabsync")
	}
	if conn.ConnectTimeout != tabsync.DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want %v", conn.ConnectTimeout, tabsync.DefaultConnectTimeout)
	}
}

func TestBuildLoadConfig_FlagsBeatEnvironment(t *testing.T) {
	pinEnvironment(t)
	t.Setenv("DB_HOST", "envhost")
	t.Setenv("DB_PORT", "6000")
	t.Setenv("DB_USER", "envuser")
	setLoadFlags(t, loadFlagValues{
		file: "users.csv",
		host: "flaghost",
		port: 7000,
		user: "flaguser",
	})

	_, conn, err := buildLoadConfig(verboseCommand(false))
	if err != nil {
		t.Fatalf("buildLoadConfig() error = %v", err)
	}

	if conn.Host != "flaghost" {
		t.Errorf("Host = %q, want %q", conn.Host, "flaghost")
	}
	if conn.Port != 7000 {
		t.Errorf("Port = %d, want 7000", conn.Port)
	}
	if conn.User != "flaguser" {
		t.Errorf("User = %q, want %q", conn.User, "flaguser")
	}
}

func TestBuildLoadConfig_EnvironmentBeatsProjectFile(t *testing.T) {
	pinEnvironment(t)
	t.Setenv("DB_HOST", "envhost")
	t.Setenv("DB_PORT", "8000")
	t.Setenv("DB_USER", "envuser")
	path := writeProjectFile(t, `
connection:
  host: projhost
  port: 9000
  username: projuser
  database: warehouse
  schema: staging
`)
	setLoadFlags(t, loadFlagValues{file: "users.csv", config: path})

	load, conn, err := buildLoadConfig(verboseCommand(false))
	if err != nil {
		t.Fatalf("buildLoadConfig() error = %v", err)
	}

	if conn.Host != "envhost" {
		t.Errorf("Host = %q, want %q", conn.Host, "envhost")
	}
	if conn.Port != 8000 {
		t.Errorf("Port = %d, want 8000", conn.Port)
	}
	if conn.User != "envuser" {
		t.Errorf("User = %q, want %q", conn.User, "envuser")
	}
	// Database and schema have no environment variable, so the project
	// file wins over the defaults.
	if load.Database != "warehouse" {
		t.Errorf("Database = %q, want %q", load.Database, "warehouse")
	}
	if load.Schema != "staging" {
		t.Errorf("Schema = %q, want %q", load.Schema, "staging")
	}
}

func TestBuildLoadConfig_ProjectFileBeatsDefaults(t *testing.T) {
	pinEnvironment(t)
	path := writeProjectFile(t, `
connection:
  host: projhost
  port: 9000
load:
  mode: replace
  batch_size: 250
  surrogate_key: false
`)
	setLoadFlags(t, loadFlagValues{file: "users.csv", config: path})

	load, conn, err := buildLoadConfig(verboseCommand(false))
	if err != nil {
		t.Fatalf("buildLoadConfig() error = %v", err)
	}

	if conn.Host != "projhost" {
		t.Errorf("Host = %q, want %q", conn.Host, "projhost")
	}
	if conn.Port != 9000 {
		t.Errorf("Port = %d, want 9000", conn.Port)
	}
	if load.Mode != tabsync.ModeReplace {
		t.Errorf("Mode = %v, want %v", load.Mode, tabsync.ModeReplace)
	}
	if load.BatchSize != 250 {
		t.Errorf("BatchSize = %d, want 250", load.BatchSize)
	}
	if load.SurrogateKey != "" {
		t.Errorf("SurrogateKey = %q, want empty", load.SurrogateKey)
	}
}

func TestBuildLoadConfig_TableSettingsApply(t *testing.T) {
	pinEnvironment(t)
	path := writeProjectFile(t, `
tables:
  users:
    key: [email]
    sheet: "Q1"
    columns:
      code: text
`)
	setLoadFlags(t, loadFlagValues{file: "users.xlsx", config: path})

	load, _, err := buildLoadConfig(verboseCommand(false))
	if err != nil {
		t.Fatalf("buildLoadConfig() error = %v", err)
	}

	if len(load.KeyColumns) != 1 || load.KeyColumns[0] != "email" {
		t.Errorf("KeyColumns = %v, want [email]", load.KeyColumns)
	}
	if load.Sheet != "Q1" {
		t.Errorf("Sheet = %q, want %q", load.Sheet, "Q1")
	}
	if load.TypeOverrides["code"] != tabsync.TypeText {
		t.Errorf("TypeOverrides[code] = %v, want %v", load.TypeOverrides["code"], tabsync.TypeText)
	}
}

func TestBuildLoadConfig_KeyFlagOutsideUpdateFails(t *testing.T) {
	pinEnvironment(t)
	setLoadFlags(t, loadFlagValues{
		file: "users.csv",
		mode: "replace",
		keys: []string{"email"},
	})

	_, _, err := buildLoadConfig(verboseCommand(false))
	if err == nil {
		t.Fatal("Expected error for --key with mode replace")
	}
	if !errors.Is(err, tabsync.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got: %v", err)
	}
	if !strings.Contains(err.Error(), "--key") {
		t.Errorf("Expected error to mention --key, got: %v", err)
	}
}

func TestBuildLoadConfig_MissingCredentialsFail(t *testing.T) {
	pinEnvironment(t)
	t.Setenv("DB_USER", "")
	t.Setenv("DB_PASSWORD", "")
	setLoadFlags(t, loadFlagValues{file: "users.csv"})

	_, _, err := buildLoadConfig(verboseCommand(false))
	if err == nil {
		t.Fatal("Expected error for missing credentials")
	}
	if !errors.Is(err, tabsync.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got: %v", err)
	}
	if !strings.Contains(err.Error(), "DB_USER") {
		t.Errorf("Expected error to mention DB_USER, got: %v", err)
	}
	if !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Errorf("Expected error to mention DB_PASSWORD, got: %v", err)
	}
}

func TestLoadEnvironment_ExplicitFileMustExist(t *testing.T) {
	err := loadEnvironment(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil {
		t.Fatal("Expected error for missing --env-file")
	}
	if !errors.Is(err, tabsync.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got: %v", err)
	}
	if !strings.Contains(err.Error(), "missing.env") {
		t.Errorf("Expected error to name the file, got: %v", err)
	}
}

func TestLoadEnvironment_DoesNotOverrideExported(t *testing.T) {
	const fileOnlyVar = "TABSYNC_ENV_FILE_ONLY"
	os.Unsetenv(fileOnlyVar)
	t.Cleanup(func() { os.Unsetenv(fileOnlyVar) })
	t.Setenv("DB_USER", "exported")

	path := filepath.Join(t.TempDir(), ".env")
	content := "DB_USER=fromfile\n" + fileOnlyVar + "=fromfile\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := loadEnvironment(path); err != nil {
		t.Fatalf("loadEnvironment() error = %v", err)
	}

	if got := os.Getenv("DB_USER"); got != "exported" {
		t.Errorf("DB_USER = %q, exported value should win over the env file", got)
	}
	if got := os.Getenv(fileOnlyVar); got != "fromfile" {
		t.Errorf("%s = %q, want %q", fileOnlyVar, got, "fromfile")
	}
}

func TestLoadProject_ExplicitFileMustExist(t *testing.T) {
	_, err := loadProject(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing --config")
	}
	if !errors.Is(err, tabsync.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got: %v", err)
	}
}

func TestLoadProject_DefaultAbsentReturnsNil(t *testing.T) {
	proj, err := loadProject("")
	if err != nil {
		t.Fatalf("loadProject() error = %v", err)
	}
	if proj != nil {
		t.Errorf("Expected nil project without tabsync.yaml, got %+v", proj)
	}
}

func TestLoadProject_ReadsExplicitFile(t *testing.T) {
	path := writeProjectFile(t, "connection:\n  host: filehost\n")

	proj, err := loadProject(path)
	if err != nil {
		t.Fatalf("loadProject() error = %v", err)
	}
	if proj.Connection.Host != "filehost" {
		t.Errorf("Host = %q, want %q", proj.Connection.Host, "filehost")
	}
}

func TestLoadProject_InvalidYamlFails(t *testing.T) {
	path := writeProjectFile(t, "connection: [not a mapping\n")

	_, err := loadProject(path)
	if err == nil {
		t.Fatal("Expected error for invalid yaml")
	}
	if !errors.Is(err, tabsync.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got: %v", err)
	}
}
