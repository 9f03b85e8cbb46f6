// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/fees"
)

// Config holds runtime configuration for the server.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	Addr     string `envconfig:"APP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	ReadTimeout  time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`

	DBPath    string `envconfig:"DB_PATH" default:"./data/salon.db"`
	StaticDir string `envconfig:"STATIC_DIR" default:"./web/dist"`
	Timezone  string `envconfig:"TIMEZONE" default:"Local"`

	// Empty disables the report cache.
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"10m"`

	AllowedOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`

	HistoryMax       int `envconfig:"HISTORY_MAX" default:"24"`
	HistoryRateLimit int `envconfig:"HISTORY_RATE_LIMIT" default:"30"` // requests per minute per IP

	BoundaryCheckInterval time.Duration `envconfig:"BOUNDARY_CHECK_INTERVAL" default:"1m"`

	// Seeded into an empty database.
	CycleKind   string            `envconfig:"DEFAULT_CYCLE_KIND" default:"single_monthly_day"`
	CycleValues map[string]string `envconfig:"DEFAULT_CYCLE_VALUES" default:"day:5"`
	CreditFee   string            `envconfig:"DEFAULT_CREDIT_FEE" default:"4.99"`
	DebitFee    string            `envconfig:"DEFAULT_DEBIT_FEE" default:"1.99"`
}

// Load reads optional .env files, then the environment. Missing files are
// skipped; variables already set win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.HistoryMax < 0 {
		return nil, errors.New("HISTORY_MAX must not be negative")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction returns true when running in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DefaultPolicy builds the cycle policy seeded into a new database.
func (c *Config) DefaultPolicy(f *factory.Factory) (cycle.Policy, error) {
	values := make(map[string]any, len(c.CycleValues))
	for k, v := range c.CycleValues {
		values[k] = v
	}
	return f.CycleFromJSON(factory.CycleJSON{Kind: c.CycleKind, Values: values})
}

// DefaultFees builds the fee schedule seeded into a new database: one flat
// credit rate and one debit rate.
func (c *Config) DefaultFees(f *factory.Factory) (fees.Schedule, error) {
	return f.ParseFees([]byte(fmt.Sprintf(
		`{"debit_fee": %q, "credit_fee_type": "fixed", "fixed_credit_fee": %q, "fee_bearer": "salon"}`,
		c.DebitFee, c.CreditFee,
	)))
}
