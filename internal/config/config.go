package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConnectionConfig is the connection section of the project file. Credentials
// never live here: the username may, the password comes from DB_PASSWORD.
type ConnectionConfig struct {
	Host               string `yaml:"host,omitempty"`
	Port               int    `yaml:"port,omitempty"`
	Username           string `yaml:"username,omitempty"`
	Database           string `yaml:"database,omitempty"`
	ManagementDatabase string `yaml:"management_database,omitempty"`
	Schema             string `yaml:"schema,omitempty"`
	SSLMode            string `yaml:"sslmode,omitempty"`
	ConnectTimeout     string `yaml:"connect_timeout,omitempty"`
}

// LoadSection is the load section of the project file.
type LoadSection struct {
	Mode      string `yaml:"mode,omitempty"`
	BatchSize int    `yaml:"batch_size,omitempty"`

	// SurrogateKey toggles the synthetic primary-key column on table
	// creation. Nil means use the default.
	SurrogateKey *bool `yaml:"surrogate_key,omitempty"`
}

// TableConfig holds per-table settings, keyed by target table name.
type TableConfig struct {
	// Key names the upsert key columns for mode update.
	Key []string `yaml:"key,omitempty"`

	// Sheet selects the worksheet when the source is a workbook.
	Sheet string `yaml:"sheet,omitempty"`

	// Columns pins column names to declared types, bypassing inference.
	Columns map[string]string `yaml:"columns,omitempty"`
}

type ProjectConfig struct {
	Connection ConnectionConfig       `yaml:"connection"`
	Load       LoadSection            `yaml:"load"`
	Tables     map[string]TableConfig `yaml:"tables"`
}

const ConfigFileName = "tabsync.yaml"

// Load reads the project config from its conventional location in dir.
func Load(dir string) (*ProjectConfig, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads the project config at an explicit path.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
