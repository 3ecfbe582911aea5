package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	// ConfigPath is the variable which stores the config path command line parameter
	ConfigPath string
	// LogLevel overrides the level of the log config when set
	LogLevel string

	// ErrUnknownFormat is returned when the config file extension is not json, yaml or toml
	ErrUnknownFormat = errors.New("unknown config format")
)

// Config stores the config for the adapter
type Config struct {
	// APIServerAddr address of the APIServer
	APIServerAddr string `json:"server_addr" yaml:"server_addr" toml:"server_addr"`
	// MaxBodyBytes largest request body accepted by the APIServer
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// LogConfig configuration for logging
	LogConfig LogConfig `json:"log" yaml:"log" toml:"log"`
	// Validation controls the semantic checks applied after parsing
	Validation ValidationConfig `json:"validation" yaml:"validation" toml:"validation"`
	// Router controls the delivery step
	Router RouterConfig `json:"router" yaml:"router" toml:"router"`
	// Audit configures where interop events are recorded
	Audit AuditConfig `json:"audit" yaml:"audit" toml:"audit"`
	// Destinations the dispatch table of downstream handlers
	Destinations []DestinationConfig `json:"destinations" yaml:"destinations" toml:"destinations"`
}

// LogConfig stores the config for logging purpose
type LogConfig struct {
	// Path of the log file
	Path string `json:"path" yaml:"path" toml:"path"`
	// Format to log, `json` or `text`
	Format string `json:"format" yaml:"format" toml:"format"`
	// Level log level, one of panic|fatal|error|warn|warning|info|debug|trace
	Level string `json:"level" yaml:"level" toml:"level"`
}

// ValidationConfig configures the validator
type ValidationConfig struct {
	// SchemaValidation enables the per-protocol range and business rules
	SchemaValidation bool `json:"schema_validation" yaml:"schema_validation" toml:"schema_validation"`
	// MinTrustScore messages with a lower trust score get a warning. 0 disables the check.
	MinTrustScore float64 `json:"min_trust_score" yaml:"min_trust_score" toml:"min_trust_score"`
}

// RouterConfig configures the router
type RouterConfig struct {
	// DeliveryTimeoutMs bound on a single destination handoff
	DeliveryTimeoutMs int `json:"delivery_timeout_ms" yaml:"delivery_timeout_ms" toml:"delivery_timeout_ms"`
	// BatchWorkers number of messages of a batch processed concurrently
	BatchWorkers int `json:"batch_workers" yaml:"batch_workers" toml:"batch_workers"`
	// OrderedSources serializes processing per source system
	OrderedSources bool `json:"ordered_sources" yaml:"ordered_sources" toml:"ordered_sources"`
}

// DeliveryTimeout returns the delivery timeout as a duration
func (r RouterConfig) DeliveryTimeout() time.Duration {
	return time.Duration(r.DeliveryTimeoutMs) * time.Millisecond
}

// AuditConfig configures the audit sinks
type AuditConfig struct {
	// Sinks one or more of log|file|redis|sqlite|postgres
	Sinks []string `json:"sinks" yaml:"sinks" toml:"sinks"`
	// FilePath of the hash chained JSONL audit log
	FilePath string `json:"file_path" yaml:"file_path" toml:"file_path"`
	// RedisAddr address of the redis server used by the redis sink
	RedisAddr string `json:"redis_addr" yaml:"redis_addr" toml:"redis_addr"`
	// RedisKey list the redis sink pushes events to
	RedisKey string `json:"redis_key" yaml:"redis_key" toml:"redis_key"`
	// DSN data source name for the sqlite and postgres sinks
	DSN string `json:"dsn" yaml:"dsn" toml:"dsn"`
}

// DestinationConfig declares one entry of the dispatch table
type DestinationConfig struct {
	// ID destination identifier, e.g. `rpc-handler` or `rpc-handler:ping`
	ID string `json:"id" yaml:"id" toml:"id"`
	// Type one of http|redis|echo
	Type string `json:"type" yaml:"type" toml:"type"`
	// Addr host:port of a http destination or of the redis server
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// Path request path of a http destination
	Path string `json:"path" yaml:"path" toml:"path"`
	// Queue redis list of a redis destination
	Queue string `json:"queue" yaml:"queue" toml:"queue"`
}

// Default returns the configuration used when a key is absent from the config file
func Default() *Config {
	return &Config{
		APIServerAddr: "0.0.0.0:7074",
		MaxBodyBytes:  8 << 20,
		LogConfig: LogConfig{
			Path:   "",
			Format: "json",
			Level:  "info",
		},
		Validation: ValidationConfig{
			SchemaValidation: true,
		},
		Router: RouterConfig{
			DeliveryTimeoutMs: 10000,
			BatchWorkers:      8,
		},
		Audit: AuditConfig{
			Sinks:    []string{"log"},
			RedisKey: "interop_events",
		},
	}
}

// ParseConfig parses config from the specified file. The format is picked from the extension.
func ParseConfig(path string) (*Config, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	defaultConfig := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(bytes, defaultConfig)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, defaultConfig)
	case ".toml":
		err = toml.Unmarshal(bytes, defaultConfig)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return defaultConfig, nil
}

// Load parses the config at path, or returns the defaults when path is empty
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return ParseConfig(path)
}
