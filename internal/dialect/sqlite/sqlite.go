// Package sqlite implements the SQLite dialect on modernc.org/sqlite.
//
// Objects and definitions come from sqlite_master, which stores every
// table, view and trigger with its original CREATE statement. SQLite has
// no stored routines or events.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/pthm/snapmig/internal/cli"
	"github.com/pthm/snapmig/internal/dialect"
	"github.com/pthm/snapmig/pkg/catalog"
	"github.com/pthm/snapmig/pkg/migration"
	"github.com/pthm/snapmig/pkg/snapshot"
)

func init() {
	dialect.Register(Dialect{})
}

// Dialect is the SQLite dialect.
type Dialect struct{}

func (Dialect) Name() string       { return "sqlite" }
func (Dialect) DriverName() string { return "sqlite" }

// DSN returns database.url, or database.name as a file path.
func (Dialect) DSN(cfg cli.DatabaseConfig) (string, error) {
	if cfg.URL != "" {
		return strings.TrimPrefix(cfg.URL, "sqlite://"), nil
	}
	if cfg.Name == "" {
		return "", errors.New("database.name (the database file) is required when database.url is not set")
	}
	return cfg.Name, nil
}

func (Dialect) DefaultSchema(cli.DatabaseConfig) string { return "main" }

func (Dialect) Runtime() migration.Dialect { return migration.SQLite }

func (Dialect) NewSource(q dialect.Querier, schema string) dialect.Source {
	return NewSource(q, schema)
}

// Source reads one SQLite schema.
type Source struct {
	q      dialect.Querier
	schema string
}

// NewSource returns a Source over q. An empty schema means "main".
func NewSource(q dialect.Querier, schema string) *Source {
	if schema == "" {
		schema = "main"
	}
	return &Source{q: q, schema: schema}
}

func quote(s string) string {
	return migration.SQLite.Quote(s)
}

func (s *Source) ObjectRows(ctx context.Context, schema string) ([]catalog.Row, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT upper(type), name FROM `+quote(schema)+`.sqlite_master
		WHERE type IN ('table', 'view', 'trigger') AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Row
	for rows.Next() {
		var r catalog.Row
		if err := rows.Scan(&r.Type, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Source) Definition(ctx context.Context, t catalog.ObjectType, name string) (string, error) {
	var def sql.NullString
	err := s.q.QueryRowContext(ctx, `SELECT sql FROM `+quote(s.schema)+`.sqlite_master WHERE type = ? AND name = ?`,
		t.Lower(), name).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !def.Valid) {
		return "", fmt.Errorf("%w: %s %q", catalog.ErrObjectNotFound, t.Lower(), name)
	}
	if err != nil {
		return "", err
	}
	return def.String, nil
}

// numericAffinity applies SQLite's column affinity rules to a declared
// type and reports whether the result is INTEGER, REAL or NUMERIC.
func numericAffinity(declared string) bool {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "INT"):
		return true
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return false
	case t == "", strings.Contains(t, "BLOB"):
		return false
	}
	return true
}

func (s *Source) Columns(ctx context.Context, table string) ([]snapshot.Column, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT name, type FROM pragma_table_info(?, ?) ORDER BY cid`, table, s.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []snapshot.Column
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, err
		}
		cols = append(cols, snapshot.Column{Name: name, Numeric: numericAffinity(typ)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: table %q", catalog.ErrObjectNotFound, table)
	}
	return cols, nil
}

func (s *Source) QueryRows(ctx context.Context, table string, cols []snapshot.Column) (*sql.Rows, error) {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c.Name)
	}
	return s.q.QueryContext(ctx, `SELECT `+strings.Join(quoted, ", ")+` FROM `+quote(s.schema)+`.`+quote(table))
}
