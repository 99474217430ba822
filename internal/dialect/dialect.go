// Package dialect provides a registry of database-specific introspection
// sources.
//
// A dialect knows how to connect to one kind of database and how to ask it
// for its schema objects, their definitions and their table data. All
// queries are read-only. Dialects register themselves from init() in their
// own package; the CLI blank-imports the ones it ships with.
package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/pthm/snapmig/internal/cli"
	"github.com/pthm/snapmig/pkg/migration"
	"github.com/pthm/snapmig/pkg/migrator"
)

// Querier is the read-only subset of *sql.DB a source needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Source answers catalog, definition and table-data queries for one
// database.
type Source = migrator.Source

// Dialect describes one database kind.
type Dialect interface {
	// Name returns the adapter identifier used in configuration.
	Name() string

	// DriverName returns the database/sql driver name.
	DriverName() string

	// DSN builds a connection string from configuration.
	DSN(cfg cli.DatabaseConfig) (string, error)

	// DefaultSchema returns the schema inspected when none is configured.
	DefaultSchema(cfg cli.DatabaseConfig) string

	// NewSource returns a source reading schema through q.
	NewSource(q Querier, schema string) Source

	// Runtime returns the runtime dialect generated migrations apply with.
	Runtime() migration.Dialect
}

// registry maps adapter names to dialects.
var registry = make(map[string]Dialect)

// Register adds a dialect to the global registry.
// Dialects should call this from their init() function.
//
// Panics if a dialect with the same name is already registered.
func Register(d Dialect) {
	name := d.Name()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("dialect: %q already registered", name))
	}
	registry[name] = d
}

// Get returns the dialect registered under name.
func Get(name string) (Dialect, error) {
	d, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown database adapter %q (available: %v)", name, Names())
	}
	return d, nil
}

// Names returns the registered adapter names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema returns the configured schema or the dialect's default.
func Schema(d Dialect, cfg cli.DatabaseConfig) string {
	if cfg.Schema != "" {
		return cfg.Schema
	}
	return d.DefaultSchema(cfg)
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg cli.DatabaseConfig) (*sql.DB, Dialect, error) {
	d, err := Get(cfg.Adapter)
	if err != nil {
		return nil, nil, err
	}
	dsn, err := d.DSN(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s database: %w", d.Name(), err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("connecting to %s database: %w", d.Name(), err)
	}
	return db, d, nil
}
