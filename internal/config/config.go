// Package config loads server settings from flags and environment variables.
// Environment variables win over flags, matching twelve-factor deployments.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	AuthSecret            string `env:"AUTH_SECRET"`
	AccessTokenTTLMinutes int    `env:"ACCESS_TOKEN_TTL_MINUTES"`

	// ShiftTimezone is the IANA zone the ordering windows are evaluated in.
	ShiftTimezone string `env:"SHIFT_TIMEZONE"`

	// DirectoryAddress points at the external customer directory. Empty
	// disables the directory check on registration.
	DirectoryAddress string `env:"DIRECTORY_ADDRESS"`

	HistoryCacheTTLSeconds int `env:"HISTORY_CACHE_TTL_SECONDS"`
}

// Parse reads flags from args (not os.Args, so tests can drive it), then
// overlays environment variables on top.
func Parse(args []string) (*Config, error) {
	cfg := &Config{
		RunAddress:             ":8080",
		ShiftTimezone:          "Asia/Jakarta",
		AccessTokenTTLMinutes:  480,
		HistoryCacheTTLSeconds: 30,
	}

	fs := flag.NewFlagSet("fieldorder", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "address to listen on")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "postgres connection string (empty runs the in-memory store)")
	fs.StringVar(&cfg.RedisAddr, "r", "", "redis address for the history cache (empty disables caching)")
	fs.StringVar(&cfg.ShiftTimezone, "tz", cfg.ShiftTimezone, "IANA timezone for shift windows")
	fs.StringVar(&cfg.DirectoryAddress, "directory", "", "customer directory base URL")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	if cfg.HistoryCacheTTLSeconds < 1 {
		cfg.HistoryCacheTTLSeconds = 30
	}

	return cfg, nil
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c *Config) HistoryCacheTTL() time.Duration {
	return time.Duration(c.HistoryCacheTTLSeconds) * time.Second
}
