package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime parameter of the API process. All values come
// from the environment; defaults suit local development, production deploys
// must at least set JWT_SECRET.
type Config struct {
	Addr      string    `env:"ADDR" envDefault:":8080"`
	Version   string    `env:"VERSION" envDefault:"dev"`
	JWT       JWT       `envPrefix:"JWT_"`
	Database  Database  `envPrefix:"DATABASE_"`
	RateLimit RateLimit `envPrefix:"RATELIMIT_"`
	Redis     Redis     `envPrefix:"REDIS_"`
	Throttle  Throttle  `envPrefix:"THROTTLE_"`
}

// JWT contains credential signing parameters.
type JWT struct {
	Secret     string        `env:"SECRET"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"30m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"720h"`
}

// Database contains PostgreSQL connection parameters. An empty DSN disables
// the session store; the API then serves token verification and rate
// limiting only.
type Database struct {
	DSN string `env:"DSN"`
}

// RateLimit tunes the per-identity bucket registry.
type RateLimit struct {
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	IdleThreshold time.Duration `env:"IDLE_THRESHOLD" envDefault:"10m"`
}

// Redis contains the optional stats sink. An empty address disables it.
type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// Throttle is the server-wide admission gate in front of the per-identity
// limiter. Zero disables it.
type Throttle struct {
	PerSecond int `env:"PER_SECOND" envDefault:"0"`
	Burst     int `env:"BURST" envDefault:"0"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("config: JWT_ACCESS_TTL must be positive")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("config: JWT_REFRESH_TTL must be positive")
	}
	if c.RateLimit.SweepInterval <= 0 || c.RateLimit.IdleThreshold <= 0 {
		return errors.New("config: rate limit intervals must be positive")
	}
	if c.Throttle.PerSecond < 0 || c.Throttle.Burst < 0 {
		return errors.New("config: throttle values must not be negative")
	}
	return nil
}
