/*
Package config loads server configuration from the environment.

PURPOSE:
  One flat struct, parsed once at startup with caarlos0/env. Flags in
  cmd/server may override individual fields after parsing; the environment
  is the source of truth for deployments.
*/
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all server settings.
type Config struct {
	Port        int      `env:"PORT" envDefault:"8080"`
	DBPath      string   `env:"DB_PATH" envDefault:"./data/finance.db"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// Addr is the listen address derived from Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
