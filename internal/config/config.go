package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"indicator-spec/specs"
)

// Config holds all wdi configuration.
type Config struct {
	// Upstream indicator source
	Source SourceConfig `yaml:"source"`

	// Documents to extract
	Datasets []DatasetConfig `yaml:"datasets"`

	// Extraction settings
	Extract ExtractConfig `yaml:"extract"`

	// Dashboard server
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig selects and configures the query executor.
type SourceConfig struct {
	Driver          string `yaml:"driver"` // sqlite, postgres, bigquery
	DSN             string `yaml:"dsn"`
	Table           string `yaml:"table"`
	Project         string `yaml:"project"`          // bigquery only
	CredentialsFile string `yaml:"credentials_file"` // bigquery only
	QueryTimeout    string `yaml:"query_timeout"`
}

// DatasetConfig describes one query -> document job.
type DatasetConfig struct {
	Name   string          `yaml:"name"`
	Query  specs.QuerySpec `yaml:"query"`
	Output string          `yaml:"output"`
}

// ExtractConfig configures the extract command.
type ExtractConfig struct {
	// Datasets extracted at the same time
	Concurrency int `yaml:"concurrency"`
	// Indent documents with two spaces
	Indent bool `yaml:"indent"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	Document string `yaml:"document"`
	GeoJSON  string `yaml:"geojson"`
	MapKey   string `yaml:"map_key"` // ADMIN or ISO_A3
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// envOverrides lists the environment variables that take precedence over the file.
type envOverrides struct {
	Driver          string `env:"WDI_SOURCE_DRIVER"`
	DSN             string `env:"WDI_SOURCE_DSN"`
	Project         string `env:"WDI_BIGQUERY_PROJECT"`
	CredentialsFile string `env:"WDI_CREDENTIALS_FILE"`
	QueryTimeout    string `env:"WDI_QUERY_TIMEOUT"`
	ServerAddr      string `env:"WDI_SERVER_ADDR"`
	LogLevel        string `env:"WDI_LOG_LEVEL"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Driver:       "sqlite",
			DSN:          "data/wdi.db",
			Table:        "indicators_data",
			QueryTimeout: "5m",
		},
		Datasets: []DatasetConfig{
			{
				Name:   "indicators",
				Query:  specs.QuerySpec{Indicators: slices.Clone(specs.DefaultIndicators), Descending: true},
				Output: "data.json",
			},
		},
		Extract: ExtractConfig{
			Concurrency: 4,
			Indent:      true,
		},
		Server: ServerConfig{
			Addr:     ":8080",
			Document: "data.json",
			MapKey:   "ADMIN",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Return defaults if config file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.Driver != "" {
		c.Source.Driver = o.Driver
	}
	if o.DSN != "" {
		c.Source.DSN = o.DSN
	}
	if o.Project != "" {
		c.Source.Project = o.Project
	}
	if o.CredentialsFile != "" {
		c.Source.CredentialsFile = o.CredentialsFile
	}
	if o.QueryTimeout != "" {
		c.Source.QueryTimeout = o.QueryTimeout
	}
	if o.ServerAddr != "" {
		c.Server.Addr = o.ServerAddr
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	return nil
}

// GetQueryTimeout returns the source query timeout as a duration.
func (c *Config) GetQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Source.QueryTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Dataset returns the dataset with the given name.
func (c *Config) Dataset(name string) (DatasetConfig, bool) {
	for _, d := range c.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return DatasetConfig{}, false
}

// ValidDrivers lists all supported source drivers.
var ValidDrivers = []string{"sqlite", "postgres", "bigquery"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validDriver := false
	for _, d := range ValidDrivers {
		if c.Source.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid source driver: %s (valid: %v)", c.Source.Driver, ValidDrivers)
	}

	if c.Source.Driver == "bigquery" {
		if c.Source.Project == "" {
			return fmt.Errorf("bigquery project not configured (set source.project or WDI_BIGQUERY_PROJECT)")
		}
	} else if c.Source.DSN == "" {
		return fmt.Errorf("source dsn not configured (set source.dsn or WDI_SOURCE_DSN)")
	}

	if len(c.Datasets) == 0 {
		return fmt.Errorf("no datasets configured")
	}
	names := make(map[string]bool)
	outputs := make(map[string]bool)
	for i, d := range c.Datasets {
		if d.Name == "" {
			return fmt.Errorf("dataset %d: name is required", i)
		}
		if d.Output == "" {
			return fmt.Errorf("dataset %q: output is required", d.Name)
		}
		if names[d.Name] {
			return fmt.Errorf("dataset %q: duplicate name", d.Name)
		}
		if outputs[d.Output] {
			return fmt.Errorf("dataset %q: output %s already used", d.Name, d.Output)
		}
		names[d.Name] = true
		outputs[d.Output] = true
	}

	if c.Extract.Concurrency < 1 {
		return fmt.Errorf("extract concurrency must be positive, got %d", c.Extract.Concurrency)
	}

	return nil
}
