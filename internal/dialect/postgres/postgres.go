// Package postgres implements the PostgreSQL dialect on the pgx stdlib
// driver.
//
// PostgreSQL has no SHOW CREATE TABLE, so table definitions are assembled
// from pg_attribute and pg_constraint. Views, routines and triggers use the
// server's pg_get_*def functions. Events do not exist in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/pthm/snapmig/internal/cli"
	"github.com/pthm/snapmig/internal/dialect"
	"github.com/pthm/snapmig/pkg/catalog"
	"github.com/pthm/snapmig/pkg/migration"
	"github.com/pthm/snapmig/pkg/snapshot"
)

const defaultPort = 5432

func init() {
	dialect.Register(Dialect{})
}

// Dialect is the PostgreSQL dialect.
type Dialect struct{}

func (Dialect) Name() string       { return "postgres" }
func (Dialect) DriverName() string { return "pgx" }

func (Dialect) DefaultSchema(cli.DatabaseConfig) string { return "public" }

func (Dialect) Runtime() migration.Dialect { return migration.Postgres }

func (Dialect) NewSource(q dialect.Querier, schema string) dialect.Source {
	return NewSource(q, schema)
}

// DSN returns the database connection string.
// If database.url is set, it's returned directly.
// Otherwise, builds a postgres:// URL from discrete fields.
func (Dialect) DSN(cfg cli.DatabaseConfig) (string, error) {
	if cfg.URL != "" {
		return cfg.URL, nil
	}

	if cfg.Host == "" {
		return "", errors.New("database.host is required when database.url is not set")
	}
	if cfg.Name == "" {
		return "", errors.New("database.name is required when database.url is not set")
	}
	if cfg.User == "" {
		return "", errors.New("database.user is required when database.url is not set")
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:   "/" + cfg.Name,
	}

	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}

	if cfg.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", cfg.SSLMode)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Source reads one PostgreSQL schema.
type Source struct {
	q      dialect.Querier
	schema string
}

// NewSource returns a Source over q. An empty schema means "public".
func NewSource(q dialect.Querier, schema string) *Source {
	if schema == "" {
		schema = "public"
	}
	return &Source{q: q, schema: schema}
}

func quote(s string) string {
	return migration.Postgres.Quote(s)
}

func (s *Source) qualified(name string) string {
	return quote(s.schema) + "." + quote(name)
}

// objectsQuery lists relations before routines and triggers so that tables
// come first. Extension-owned functions are skipped.
const objectsQuery = `
SELECT type, name FROM (
    SELECT 1 AS rank,
           CASE WHEN c.relkind IN ('v', 'm') THEN 'VIEW' ELSE 'TABLE' END AS type,
           c.relname AS name
    FROM pg_class c
    JOIN pg_namespace n ON n.oid = c.relnamespace
    WHERE n.nspname = $1 AND c.relkind IN ('r', 'p', 'v', 'm')
    UNION ALL
    SELECT 2,
           CASE WHEN p.prokind = 'p' THEN 'PROCEDURE' ELSE 'FUNCTION' END,
           p.proname
    FROM pg_proc p
    JOIN pg_namespace n ON n.oid = p.pronamespace
    WHERE n.nspname = $1 AND p.prokind IN ('f', 'p')
      AND NOT EXISTS (SELECT 1 FROM pg_depend d WHERE d.objid = p.oid AND d.deptype = 'e')
    UNION ALL
    SELECT 3, 'TRIGGER', t.tgname
    FROM pg_trigger t
    JOIN pg_class c ON c.oid = t.tgrelid
    JOIN pg_namespace n ON n.oid = c.relnamespace
    WHERE n.nspname = $1 AND NOT t.tgisinternal
) objects
ORDER BY rank, name`

func (s *Source) ObjectRows(ctx context.Context, schema string) ([]catalog.Row, error) {
	rows, err := s.q.QueryContext(ctx, objectsQuery, schema)
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
	switch t {
	case catalog.TypeTable:
		return s.tableDefinition(ctx, name)
	case catalog.TypeView:
		def, err := s.scalar(ctx, t, name, `
SELECT pg_get_viewdef(c.oid, true)
FROM pg_class c JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('v', 'm')`)
		if err != nil {
			return "", err
		}
		return "CREATE VIEW " + s.qualified(name) + " AS\n" + strings.TrimSpace(def), nil
	case catalog.TypeFunction, catalog.TypeProcedure:
		return s.scalar(ctx, t, name, `
SELECT pg_get_functiondef(p.oid)
FROM pg_proc p JOIN pg_namespace n ON n.oid = p.pronamespace
WHERE n.nspname = $1 AND p.proname = $2
ORDER BY p.oid
LIMIT 1`)
	case catalog.TypeTrigger:
		return s.scalar(ctx, t, name, `
SELECT pg_get_triggerdef(t.oid, true)
FROM pg_trigger t
JOIN pg_class c ON c.oid = t.tgrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND t.tgname = $2 AND NOT t.tgisinternal
ORDER BY t.oid
LIMIT 1`)
	}
	return "", fmt.Errorf("%w: %s is not supported by postgres", catalog.ErrInvalidObjectType, t)
}

func (s *Source) scalar(ctx context.Context, t catalog.ObjectType, name, query string) (string, error) {
	var def sql.NullString
	err := s.q.QueryRowContext(ctx, query, s.schema, name).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !def.Valid) {
		return "", fmt.Errorf("%w: %s %q", catalog.ErrObjectNotFound, t.Lower(), name)
	}
	if err != nil {
		return "", err
	}
	return def.String, nil
}

type column struct {
	name     string
	typ      string
	notNull  bool
	def      sql.NullString
	category string
}

func (s *Source) columns(ctx context.Context, table string) ([]column, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT a.attname, format_type(a.atttypid, a.atttypmod), a.attnotnull,
       pg_get_expr(d.adbin, d.adrelid), t.typcategory::text
FROM pg_attribute a
JOIN pg_class c ON c.oid = a.attrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
JOIN pg_type t ON t.oid = a.atttypid
LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attnum`, s.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var c column
		if err := rows.Scan(&c.name, &c.typ, &c.notNull, &c.def, &c.category); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: table %q", catalog.ErrObjectNotFound, table)
	}
	return cols, nil
}

// tableDefinition assembles a CREATE TABLE statement with one column or
// constraint per line.
func (s *Source) tableDefinition(ctx context.Context, table string) (string, error) {
	cols, err := s.columns(ctx, table)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, c := range cols {
		line := quote(c.name) + " " + c.typ
		if c.notNull {
			line += " NOT NULL"
		}
		if c.def.Valid {
			line += " DEFAULT " + c.def.String
		}
		parts = append(parts, line)
	}

	rows, err := s.q.QueryContext(ctx, `
SELECT con.conname, pg_get_constraintdef(con.oid, true)
FROM pg_constraint con
JOIN pg_class c ON c.oid = con.conrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relname = $2 AND con.contype IN ('p', 'u', 'c', 'f')
ORDER BY CASE con.contype WHEN 'p' THEN 0 ELSE 1 END, con.conname`, s.schema, table)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	for rows.Next() {
		var name, def string
		if err := rows.Scan(&name, &def); err != nil {
			return "", err
		}
		parts = append(parts, "CONSTRAINT "+quote(name)+" "+def)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	return "CREATE TABLE " + s.qualified(table) + " (\n  " + strings.Join(parts, ",\n  ") + "\n)", nil
}

// Columns reports the numeric type category ('N') as numeric.
func (s *Source) Columns(ctx context.Context, table string) ([]snapshot.Column, error) {
	cols, err := s.columns(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make([]snapshot.Column, len(cols))
	for i, c := range cols {
		out[i] = snapshot.Column{Name: c.name, Numeric: c.category == "N"}
	}
	return out, nil
}

func (s *Source) QueryRows(ctx context.Context, table string, cols []snapshot.Column) (*sql.Rows, error) {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c.Name)
	}
	return s.q.QueryContext(ctx, "SELECT "+strings.Join(quoted, ", ")+" FROM "+s.qualified(table))
}
