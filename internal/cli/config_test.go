package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindConfigFile_ExplicitPath(t *testing.T) {
	// Create temp file
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "custom.yaml")
	err := os.WriteFile(tmpFile, []byte("database:\n  adapter: sqlite\n"), 0o644)
	require.NoError(t, err)

	path, err := findConfigFile(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, tmpFile, path)
}

func TestFindConfigFile_ExplicitPathNotFound(t *testing.T) {
	_, err := findConfigFile("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestFindConfigFile_AutoDiscovery(t *testing.T) {
	// Create directory structure with .git and snapmig.yaml
	root := t.TempDir()
	err := os.Mkdir(filepath.Join(root, ".git"), 0o755)
	require.NoError(t, err)

	configPath := filepath.Join(root, "snapmig.yaml")
	err = os.WriteFile(configPath, []byte("database:\n  adapter: sqlite\n"), 0o644)
	require.NoError(t, err)

	// Create nested directory
	nested := filepath.Join(root, "deep", "nested")
	err = os.MkdirAll(nested, 0o755)
	require.NoError(t, err)

	// Change to nested directory
	oldCwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(oldCwd) }()
	err = os.Chdir(nested)
	require.NoError(t, err)

	path, err := findConfigFile("")
	require.NoError(t, err)

	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedPath, _ := filepath.EvalSymlinks(configPath)
	actualPath, _ := filepath.EvalSymlinks(path)
	assert.Equal(t, expectedPath, actualPath)
}

func TestFindConfigFile_PrefersSnapmigYamlOverYml(t *testing.T) {
	root := t.TempDir()
	err := os.Mkdir(filepath.Join(root, ".git"), 0o755)
	require.NoError(t, err)

	// Create both files
	yamlPath := filepath.Join(root, "snapmig.yaml")
	ymlPath := filepath.Join(root, "snapmig.yml")
	err = os.WriteFile(yamlPath, []byte("database:\n  adapter: sqlite\n"), 0o644)
	require.NoError(t, err)
	err = os.WriteFile(ymlPath, []byte("database:\n  adapter: sqlite\n"), 0o644)
	require.NoError(t, err)

	oldCwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(oldCwd) }()
	err = os.Chdir(root)
	require.NoError(t, err)

	path, err := findConfigFile("")
	require.NoError(t, err)

	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedPath, _ := filepath.EvalSymlinks(yamlPath)
	actualPath, _ := filepath.EvalSymlinks(path)
	assert.Equal(t, expectedPath, actualPath) // Should prefer .yaml
}

func TestFindConfigFile_StopsAtGitRoot(t *testing.T) {
	// Config above .git should not be found
	root := t.TempDir()
	err := os.WriteFile(filepath.Join(root, "snapmig.yaml"), []byte("database:\n  adapter: sqlite\n"), 0o644)
	require.NoError(t, err)

	project := filepath.Join(root, "project")
	err = os.MkdirAll(project, 0o755)
	require.NoError(t, err)
	err = os.Mkdir(filepath.Join(project, ".git"), 0o755)
	require.NoError(t, err)

	oldCwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(oldCwd) }()
	err = os.Chdir(project)
	require.NoError(t, err)

	path, err := findConfigFile("")
	require.NoError(t, err)
	assert.Empty(t, path) // Should not find config above .git
}

func TestFindConfigFile_NoConfigReturnsEmpty(t *testing.T) {
	// Create directory with .git but no config
	root := t.TempDir()
	err := os.Mkdir(filepath.Join(root, ".git"), 0o755)
	require.NoError(t, err)

	oldCwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(oldCwd) }()
	err = os.Chdir(root)
	require.NoError(t, err)

	path, err := findConfigFile("")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestLoadConfig_Defaults(t *testing.T) {
	// Create directory with .git but no config
	root := t.TempDir()
	err := os.Mkdir(filepath.Join(root, ".git"), 0o755)
	require.NoError(t, err)

	oldCwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(oldCwd) }()
	err = os.Chdir(root)
	require.NoError(t, err)

	cfg, configPath, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, configPath)

	// Check defaults
	assert.Equal(t, "mysql", cfg.Database.Adapter)
	assert.Equal(t, "migrations", cfg.Migrations.Package)
	assert.Equal(t, 70, cfg.Migrations.WrapWidth)
	assert.Equal(t, "off", cfg.Generate.Export)
	assert.False(t, cfg.Database.Configured())
}

func TestLoadConfig_FromFile(t *testing.T) {
	root := t.TempDir()
	err := os.Mkdir(filepath.Join(root, ".git"), 0o755)
	require.NoError(t, err)

	configPath := filepath.Join(root, "snapmig.yaml")
	err = os.WriteFile(configPath, []byte(`
database:
  adapter: postgres
  host: localhost
  name: testdb
  user: testuser
migrations:
  dir: db/migrations
  package: dbmigrations
generate:
  export: oncreate
  types: table,view
`), 0o644)
	require.NoError(t, err)

	oldCwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(oldCwd) }()
	err = os.Chdir(root)
	require.NoError(t, err)

	cfg, foundPath, err := LoadConfig("")
	require.NoError(t, err)

	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedPath, _ := filepath.EvalSymlinks(configPath)
	actualPath, _ := filepath.EvalSymlinks(foundPath)
	assert.Equal(t, expectedPath, actualPath)

	assert.Equal(t, "postgres", cfg.Database.Adapter)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "testdb", cfg.Database.Name)
	assert.Equal(t, "testuser", cfg.Database.User)
	assert.True(t, cfg.Database.Configured())
	assert.Equal(t, "db/migrations", cfg.Migrations.Dir)
	assert.Equal(t, "dbmigrations", cfg.Migrations.Package)
	assert.Equal(t, "oncreate", cfg.Generate.Export)
	assert.Equal(t, "table,view", cfg.Generate.Types)

	// Check that defaults are still applied for unset values
	assert.Equal(t, 70, cfg.Migrations.WrapWidth)
	assert.False(t, cfg.Generate.Force)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	err := os.Mkdir(filepath.Join(root, ".git"), 0o755)
	require.NoError(t, err)

	configPath := filepath.Join(root, "snapmig.yaml")
	err = os.WriteFile(configPath, []byte("migrations:\n  dir: file-dir\n"), 0o644)
	require.NoError(t, err)

	oldCwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(oldCwd) }()
	err = os.Chdir(root)
	require.NoError(t, err)

	t.Setenv("SNAPMIG_MIGRATIONS_DIR", "env-dir")

	cfg, _, err := LoadConfig("")
	require.NoError(t, err)

	// Env should override file
	assert.Equal(t, "env-dir", cfg.Migrations.Dir)
}

func TestLoadConfig_NestedEnvVars(t *testing.T) {
	root := t.TempDir()
	err := os.Mkdir(filepath.Join(root, ".git"), 0o755)
	require.NoError(t, err)

	oldCwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(oldCwd) }()
	err = os.Chdir(root)
	require.NoError(t, err)

	t.Setenv("SNAPMIG_DATABASE_HOST", "envhost")
	t.Setenv("SNAPMIG_DATABASE_PORT", "3307")
	t.Setenv("SNAPMIG_GENERATE_NO_AUTO_INCREMENT", "true")

	cfg, _, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "envhost", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.True(t, cfg.Generate.NoAutoIncrement)
}

func TestDatabaseConfig_Configured(t *testing.T) {
	assert.True(t, DatabaseConfig{URL: "mysql://x"}.Configured())
	assert.True(t, DatabaseConfig{Host: "db"}.Configured())
	assert.True(t, DatabaseConfig{Adapter: "sqlite", Name: "app.db"}.Configured())
	assert.False(t, DatabaseConfig{Adapter: "mysql", Name: "app"}.Configured())
}

func TestResolveMigrationsDir(t *testing.T) {
	project := t.TempDir()
	cfg := &Config{}

	assert.Equal(t, filepath.Join(project, "migrations"), cfg.ResolveMigrationsDir(project, ""))

	require.NoError(t, os.Mkdir(filepath.Join(project, "apps"), 0o755))
	assert.Equal(t, filepath.Join(project, "apps", "migrations"), cfg.ResolveMigrationsDir(project, ""))

	require.NoError(t, os.Mkdir(filepath.Join(project, "app"), 0o755))
	assert.Equal(t, filepath.Join(project, "app", "migrations"), cfg.ResolveMigrationsDir(project, ""))

	cfg.Migrations.Dir = "db/migrations"
	assert.Equal(t, filepath.Join(project, "db", "migrations"), cfg.ResolveMigrationsDir(project, ""))

	assert.Equal(t, filepath.Join(project, "custom"), cfg.ResolveMigrationsDir(project, "custom"))
	assert.Equal(t, "/abs/migrations", cfg.ResolveMigrationsDir(project, "/abs/migrations"))
}
