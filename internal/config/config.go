// Package config parses the environment and optional YAML file configuration
// that drives connection, migration, and pagination defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds redisom's runtime configuration.
type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Query      QueryConfig      `yaml:"query"`
}

// ConnectionConfig describes how to reach the Redis-compatible server.
type ConnectionConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database int    `yaml:"database"`
	TLS      bool   `yaml:"tls"`
}

// MigrationsConfig controls where migration files live and how batches run.
type MigrationsConfig struct {
	Dir                  string `yaml:"dir"`
	BatchSize            int    `yaml:"batch_size"`
	ProgressSaveInterval int    `yaml:"progress_save_interval"`
	MaxErrors            int    `yaml:"max_errors"` // 0 = unlimited
	// ReservedPrefix namespaces the applied-set/progress keys the
	// migrators persist (spec.md §6.3), kept separate from any record
	// type's own global/model key prefix.
	ReservedPrefix string `yaml:"reserved_prefix"`
}

// QueryConfig controls default pagination and result-set limits.
type QueryConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	PageSize     int `yaml:"page_size"`
}

// EnvRedisOMURL is the environment variable carrying the connection URL (spec.md §6.2).
const EnvRedisOMURL = "REDIS_OM_URL"

// EnvMigrationsDir is the environment variable carrying the migrations root (spec.md §6.2).
const EnvMigrationsDir = "REDIS_OM_MIGRATIONS_DIR"

// Load builds a Config from environment variables and, if present, a YAML
// file at path. Environment variables take precedence over file values.
func Load(path string) (Config, error) {
	cfg := Config{}

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			data = expandEnvVars(data)
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if u := os.Getenv(EnvRedisOMURL); u != "" {
		cfg.Connection.URL = u
	}
	if d := os.Getenv(EnvMigrationsDir); d != "" {
		cfg.Migrations.Dir = d
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: invalid: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Connection.URL == "" {
		c.Connection.URL = "redis://localhost:6379/0"
	}
	if c.Migrations.Dir == "" {
		c.Migrations.Dir = "migrations"
	}
	if c.Migrations.BatchSize <= 0 {
		c.Migrations.BatchSize = 1000
	}
	if c.Migrations.ProgressSaveInterval <= 0 {
		c.Migrations.ProgressSaveInterval = 100
	}
	if c.Migrations.ReservedPrefix == "" {
		c.Migrations.ReservedPrefix = "redisom"
	}
	if c.Query.DefaultLimit <= 0 {
		c.Query.DefaultLimit = 10000
	}
	if c.Query.PageSize <= 0 {
		c.Query.PageSize = 1000
	}
}

// Validate checks the configuration for correctness, including the
// database-number restriction from spec.md §6.2 (index operations require db 0).
func (c *Config) Validate() error {
	parsed, err := ParseConnectionURL(c.Connection.URL)
	if err != nil {
		return fmt.Errorf("connection.url: %w", err)
	}
	c.Connection = parsed
	if c.Connection.Database != 0 {
		return &DatabaseNumberError{Database: c.Connection.Database}
	}
	if c.Migrations.BatchSize <= 0 {
		return fmt.Errorf("migrations.batch_size must be positive")
	}
	return nil
}

// DatabaseNumberError reports a non-zero database index where indexing was attempted.
// Corresponds to spec.md §7's DatabaseNumberError taxonomy entry.
type DatabaseNumberError struct {
	Database int
}

func (e *DatabaseNumberError) Error() string {
	return fmt.Sprintf("config: database %d is not valid for indexing; only database 0 is supported", e.Database)
}

// ParseConnectionURL parses a redis[s]://[user[:pass]@]host[:port][/db] or
// unix://[user[:pass]@]/path[?db=N] URL into a ConnectionConfig.
func ParseConnectionURL(raw string) (ConnectionConfig, error) {
	if raw == "" {
		return ConnectionConfig{}, fmt.Errorf("empty connection url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ConnectionConfig{}, fmt.Errorf("parse url: %w", err)
	}

	cfg := ConnectionConfig{URL: raw}

	switch u.Scheme {
	case "redis":
		cfg.TLS = false
	case "rediss":
		cfg.TLS = true
	case "unix":
		// no TLS concept for unix sockets
	default:
		return ConnectionConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if u.User != nil {
		cfg.Username = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			cfg.Password = pw
		}
	}

	dbPart := strings.TrimPrefix(u.Path, "/")
	if dbPart != "" {
		db, err := strconv.Atoi(dbPart)
		if err != nil {
			return ConnectionConfig{}, fmt.Errorf("database segment %q is not numeric", dbPart)
		}
		cfg.Database = db
	}

	return cfg, nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
