package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	maxWalkDepth = 25
)

// Config represents the snapmig configuration from snapmig.yaml.
type Config struct {
	// Database configuration
	Database DatabaseConfig `mapstructure:"database" json:"database"`

	// Output layout
	Migrations MigrationsConfig `mapstructure:"migrations" json:"migrations"`

	// Per-command configuration
	Generate GenerateConfig `mapstructure:"generate" json:"generate"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Adapter selects the dialect: mysql, postgres or sqlite.
	Adapter  string `mapstructure:"adapter" json:"adapter"`
	URL      string `mapstructure:"url" json:"url"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Name     string `mapstructure:"name" json:"name"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password,omitempty"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`

	// Schema overrides the schema to inspect. Defaults to the database
	// name for MySQL, "public" for PostgreSQL and "main" for SQLite.
	Schema string `mapstructure:"schema" json:"schema"`
}

// Configured reports whether enough connection settings are present to
// attempt a connection.
func (d DatabaseConfig) Configured() bool {
	return d.URL != "" || d.Host != "" || (d.Adapter == "sqlite" && d.Name != "")
}

// MigrationsConfig holds output settings.
type MigrationsConfig struct {
	// Dir is the migrations root. Relative paths are resolved against the
	// project directory.
	Dir string `mapstructure:"dir" json:"dir"`

	// Package is the package clause of generated sources.
	Package string `mapstructure:"package" json:"package"`

	// WrapWidth caps wrapped view lines.
	WrapWidth int `mapstructure:"wrap_width" json:"wrap_width"`
}

// GenerateConfig holds generate command settings.
type GenerateConfig struct {
	Export          string `mapstructure:"export" json:"export"`
	Types           string `mapstructure:"types" json:"types"`
	NoAutoIncrement bool   `mapstructure:"no_auto_increment" json:"no_auto_increment"`
	Force           bool   `mapstructure:"force" json:"force"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Set up environment variable binding
	v.SetEnvPrefix("SNAPMIG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Find and load config file
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	// 4. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.adapter", "mysql")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.schema", "")

	// Migrations defaults
	v.SetDefault("migrations.dir", "")
	v.SetDefault("migrations.package", "migrations")
	v.SetDefault("migrations.wrap_width", 70)

	// Generate defaults
	v.SetDefault("generate.export", "off")
	v.SetDefault("generate.types", "")
	v.SetDefault("generate.no_auto_increment", false)
	v.SetDefault("generate.force", false)
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for snapmig.yaml or snapmig.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Auto-discovery: walk up to .git or maxWalkDepth
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"snapmig.yaml", "snapmig.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Check for repo boundary (.git file or directory)
		gitPath := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			break // Stop at repo root
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

// ResolveMigrationsDir returns the migrations root for a project.
//
// Precedence: flagDir (relative to projectDir) > migrations.dir >
// <projectDir>/app/migrations when app/ exists > <projectDir>/apps/migrations
// when apps/ exists > <projectDir>/migrations.
func (c *Config) ResolveMigrationsDir(projectDir, flagDir string) string {
	if projectDir == "" {
		projectDir = "."
	}
	for _, dir := range []string{flagDir, c.Migrations.Dir} {
		if dir == "" {
			continue
		}
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(projectDir, dir)
	}
	for _, app := range []string{"app", "apps"} {
		if info, err := os.Stat(filepath.Join(projectDir, app)); err == nil && info.IsDir() {
			return filepath.Join(projectDir, app, "migrations")
		}
	}
	return filepath.Join(projectDir, "migrations")
}
