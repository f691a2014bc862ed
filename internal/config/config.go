// Package config loads server configuration from an optional YAML file with
// environment variable overrides. Secrets are read from the environment only.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Lock modes for deletion.lock_mode.
const (
	LockModeAdvisory = "advisory"
	LockModeNone     = "none"
)

// Config holds all configuration for the API server and the migrate tool.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Deletion DeletionConfig `yaml:"deletion"`

	Version string `yaml:"-"` // set at load time
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	BindAddr        string        `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"APP_PORT" env-default:"8080"`
	GinMode         string        `yaml:"gin_mode" env:"GIN_MODE" env-default:"release"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"120s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.BindAddr + ":" + s.Port
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DATABASE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DATABASE_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DATABASE_USER" env-default:"buildplus"`
	Password string `yaml:"-" env:"DATABASE_PASSWORD"` // Secret - not in YAML
	Name     string `yaml:"name" env:"DATABASE_NAME" env-default:"buildplus"`
	SSLMode  string `yaml:"ssl_mode" env:"DATABASE_SSLMODE" env-default:"disable"`

	// URL overrides the individual parts when set.
	URL string `yaml:"-" env:"DATABASE_URL"`

	MaxConns         int32         `yaml:"max_conns" env:"DATABASE_MAX_CONNS" env-default:"25"`
	MinConns         int32         `yaml:"min_conns" env:"DATABASE_MIN_CONNS" env-default:"2"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime" env:"DATABASE_MAX_CONN_LIFETIME" env-default:"1h"`
	StatementTimeout time.Duration `yaml:"statement_timeout" env:"DATABASE_STATEMENT_TIMEOUT" env-default:"60s"`
	IsolationLevel   string        `yaml:"isolation_level" env:"DATABASE_ISOLATION_LEVEL" env-default:"read committed"`
	AutoMigrate      bool          `yaml:"auto_migrate" env:"DATABASE_AUTO_MIGRATE" env-default:"false"`
}

// DSN returns a PostgreSQL connection URL.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// AuthConfig holds bearer token validation settings.
type AuthConfig struct {
	JWTSecret string `yaml:"-" env:"JWT_SECRET"` // Secret - not in YAML
	Issuer    string `yaml:"issuer" env:"JWT_ISSUER" env-default:"buildplus"`
	AdminRole string `yaml:"admin_role" env:"ADMIN_ROLE" env-default:"ADMIN"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-default:"false"`
}

// DeletionConfig holds data deletion settings.
type DeletionConfig struct {
	LockMode          string `yaml:"lock_mode" env:"DELETION_LOCK_MODE" env-default:"advisory"`
	AuditEnabled      bool   `yaml:"audit_enabled" env:"DELETION_AUDIT_ENABLED" env-default:"true"`
	CompressThreshold int    `yaml:"compress_threshold" env:"DELETION_AUDIT_COMPRESS_THRESHOLD" env-default:"10240"`
}

// AdvisoryLocks reports whether the database lock is enabled.
func (d DeletionConfig) AdvisoryLocks() bool {
	return d.LockMode == LockModeAdvisory
}

// Load reads the file named by CONFIG_PATH (default config.yaml) when it
// exists, then applies environment overrides.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks values that cleanenv cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	switch c.Deletion.LockMode {
	case LockModeAdvisory, LockModeNone:
	default:
		errs = append(errs, fmt.Errorf("deletion.lock_mode must be %q or %q, got %q",
			LockModeAdvisory, LockModeNone, c.Deletion.LockMode))
	}
	switch strings.ToLower(c.Server.GinMode) {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.gin_mode %q is not a gin mode", c.Server.GinMode))
	}
	return errors.Join(errs...)
}

// Usage returns the environment variable reference for --help output.
func Usage() string {
	var cfg Config
	desc, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return desc
}
