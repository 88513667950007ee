package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/23skdu/slotpool/pool"
)

// envPrefix is shared by the soak settings and the pool settings.
const envPrefix = "SLOTPOOL"

// Config validation errors
var (
	ErrInvalidWorkers       = errors.New("soak_workers must be positive")
	ErrInvalidDuration      = errors.New("soak_duration must be positive")
	ErrInvalidHoldTime      = errors.New("soak_hold cannot be negative")
	ErrInvalidRate          = errors.New("soak_rate cannot be negative")
	ErrInvalidOverflowLimit = errors.New("soak_overflow_limit must be positive")
	ErrInvalidMaxObjects    = errors.New("soak_max_objects cannot be negative")
	ErrInvalidLogFormat     = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel      = errors.New("log_level must be debug, info, warn, or error")
)

// Config holds the soak run settings. Pool settings are read from the same
// prefix by a second envconfig pass (SLOTPOOL_CAPACITY, SLOTPOOL_STRATEGY...).
type Config struct {
	Workers       int           `envconfig:"SOAK_WORKERS"`
	Duration      time.Duration `envconfig:"SOAK_DURATION"`
	HoldTime      time.Duration `envconfig:"SOAK_HOLD"`
	RateLimit     float64       `envconfig:"SOAK_RATE"` // allocations per second per worker, 0 = unlimited
	OverflowLimit int           `envconfig:"SOAK_OVERFLOW_LIMIT"`
	MaxObjects    int           `envconfig:"SOAK_MAX_OBJECTS"` // factory budget, 0 = unlimited
	MetricsAddr   string        `envconfig:"METRICS_ADDR"`     // empty disables the endpoint
	LogFormat     string        `envconfig:"LOG_FORMAT"`
	LogLevel      string        `envconfig:"LOG_LEVEL"`

	Pool pool.Config `ignored:"true"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	pc := pool.DefaultConfig()
	pc.Name = "soak"
	pc.FreePolicy = pool.FreeCompareAndSwap.String()
	pc.Metrics = true

	return Config{
		Workers:       4,
		Duration:      10 * time.Second,
		HoldTime:      0,
		RateLimit:     0,
		OverflowLimit: 16,
		MaxObjects:    0,
		MetricsAddr:   "0.0.0.0:9090",
		LogFormat:     "json",
		LogLevel:      "info",
		Pool:          pc,
	}
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if cfg.Duration <= 0 {
		return ErrInvalidDuration
	}
	if cfg.HoldTime < 0 {
		return ErrInvalidHoldTime
	}
	if cfg.RateLimit < 0 {
		return ErrInvalidRate
	}
	if cfg.OverflowLimit <= 0 {
		return ErrInvalidOverflowLimit
	}
	if cfg.MaxObjects < 0 {
		return ErrInvalidMaxObjects
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	return cfg.Pool.Validate()
}

// LoadConfig reads envFile into the process environment when it exists, then
// overlays the environment on DefaultConfig and validates the result.
// Variables already set in the environment win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := DefaultConfig()
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("soak config: %w", err)
	}
	if err := envconfig.Process(envPrefix, &cfg.Pool); err != nil {
		return Config{}, fmt.Errorf("pool config: %w", err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
