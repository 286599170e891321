package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendDynamo = "dynamo"
	BackendPebble = "pebble"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// Backend selects the store implementation: dynamo or pebble.
	Backend string `json:"backend" yaml:"backend"`
	// Partition names the logical log instance within the table.
	Partition string `json:"partition" yaml:"partition"`
	// PageSize bounds tail query pages.
	PageSize int32 `json:"pageSize" yaml:"pageSize"`
	// RetryBudget bounds append attempts; 0 keeps the built-in default.
	RetryBudget int `json:"retryBudget" yaml:"retryBudget"`

	Dynamo DynamoConfig `json:"dynamo" yaml:"dynamo"`
	Pebble PebbleConfig `json:"pebble" yaml:"pebble"`

	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFormat string `json:"logFormat" yaml:"logFormat"`
	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `json:"metricsAddr" yaml:"metricsAddr"`
}

// DynamoConfig configures the DynamoDB backend.
type DynamoConfig struct {
	Table  string `json:"table" yaml:"table"`
	Region string `json:"region" yaml:"region"`
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// PebbleConfig configures the local Pebble backend.
type PebbleConfig struct {
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// Fsync is one of always, interval, never.
	Fsync           string `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Backend:   BackendDynamo,
		Partition: "default",
		PageSize:  100,
		Dynamo: DynamoConfig{
			Table: "dynalog",
		},
		Pebble: PebbleConfig{
			Fsync: "always",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, it returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate rejects configurations no backend can serve.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendDynamo:
		if c.Dynamo.Table == "" {
			return fmt.Errorf("config: dynamo backend requires a table name")
		}
	case BackendPebble:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Partition == "" {
		return fmt.Errorf("config: partition must not be empty")
	}
	return nil
}
