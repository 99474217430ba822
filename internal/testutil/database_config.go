package testutil

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DatabaseConfig selects an existing PostgreSQL server for integration
// tests. When neither URL nor Host is set, a container is started instead.
type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DATABASE_HOST"`
	Port     string `env:"DATABASE_PORT"     envDefault:"5432"`
	User     string `env:"DATABASE_USER"     envDefault:"postgres"`
	Password string `env:"DATABASE_PASSWORD"`
	Name     string `env:"DATABASE_NAME"     envDefault:"postgres"`
	SSLMode  string `env:"DATABASE_SSLMODE"  envDefault:"prefer"`
}

// GetDatabaseConfig reads database configuration from environment variables.
func GetDatabaseConfig() (DatabaseConfig, error) {
	var cfg DatabaseConfig
	if err := env.Parse(&cfg); err != nil {
		return DatabaseConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DSN returns the admin connection string, or "" when testcontainers
// should be used. DATABASE_URL takes precedence over the discrete fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Host == "" {
		return ""
	}
	if c.Password != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s",
		c.User, c.Host, c.Port, c.Name, c.SSLMode)
}
