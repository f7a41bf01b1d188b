package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/usagereg/usagereg/internal/remote"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// StoreDriver selects the remote store. With postgres an empty PGDSN
	// means no credentials are configured and the app starts degraded.
	StoreDriver      string        `envconfig:"STORE_DRIVER" default:"postgres"`
	PGDSN            string        `envconfig:"PG_DSN"`
	PGConnectTimeout time.Duration `envconfig:"PG_CONNECT_TIMEOUT" default:"5s"`
	PGMigrate        bool          `envconfig:"PG_MIGRATE" default:"true"`

	RetryAttempts int           `envconfig:"REMOTE_RETRY_ATTEMPTS" default:"3"`
	RetryBase     time.Duration `envconfig:"REMOTE_RETRY_BASE" default:"100ms"`
	RetryMax      time.Duration `envconfig:"REMOTE_RETRY_MAX" default:"2s"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	JWTSecret  string        `envconfig:"JWT_SECRET" required:"true"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	// AdminEmail and AdminPassword create a first admin account at startup
	// when no account with that e-mail exists yet.
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
	AdminName     string `envconfig:"ADMIN_NAME" default:"Beheerder"`

	GotenbergURL string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`

	EmailDomain     string `envconfig:"EMAIL_DOMAIN" default:"bedrijf.be"`
	DisplayTimezone string `envconfig:"DISPLAY_TIMEZONE" default:"Europe/Brussels"`

	ExportDir   string `envconfig:"EXPORT_DIR" default:"./exports"`
	ExportCron  string `envconfig:"EXPORT_CRON" default:"0 2 * * *"`
	ImportAsync bool   `envconfig:"IMPORT_ASYNC" default:"false"`
	// WorkerMetricsAddr is where the worker serves /metrics. Empty disables it.
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`

	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int `envconfig:"RATE_LIMIT" default:"300"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt secret must be provided")
	}
	switch c.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.RetryAttempts < 1 {
		return errors.New("retry attempts must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("display timezone: %w", err)
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// StoreConfigured reports whether remote store credentials are present.
func (c *Config) StoreConfigured() bool {
	return c.StoreDriver == DriverMemory || c.PGDSN != ""
}

// Location resolves the zone registration times are displayed in.
func (c *Config) Location() (*time.Location, error) {
	if c.DisplayTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.DisplayTimezone)
}

// Backoff returns the retry policy for remote calls.
func (c *Config) Backoff() remote.Backoff {
	return remote.Backoff{Attempts: c.RetryAttempts, Base: c.RetryBase, Max: c.RetryMax}
}
