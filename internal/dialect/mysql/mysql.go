// Package mysql implements the MySQL dialect on github.com/go-sql-driver/mysql.
//
// Objects are listed from information_schema and definitions are read with
// SHOW CREATE, which returns the statement in a type-specific column.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/pthm/snapmig/internal/cli"
	"github.com/pthm/snapmig/internal/dialect"
	"github.com/pthm/snapmig/pkg/catalog"
	"github.com/pthm/snapmig/pkg/migration"
	"github.com/pthm/snapmig/pkg/snapshot"
)

const defaultPort = 3306

func init() {
	dialect.Register(Dialect{})
}

// Dialect is the MySQL dialect.
type Dialect struct{}

func (Dialect) Name() string       { return "mysql" }
func (Dialect) DriverName() string { return "mysql" }

func (Dialect) Runtime() migration.Dialect { return migration.MySQL }

func (Dialect) NewSource(q dialect.Querier, schema string) dialect.Source {
	return NewSource(q, schema)
}

// DSN returns a go-sql-driver DSN. database.url may be a native DSN or a
// mysql:// URL; otherwise the DSN is built from the discrete fields.
func (Dialect) DSN(cfg cli.DatabaseConfig) (string, error) {
	c, err := config(cfg)
	if err != nil {
		return "", err
	}
	return c.FormatDSN(), nil
}

// DefaultSchema is the connection's database.
func (Dialect) DefaultSchema(cfg cli.DatabaseConfig) string {
	c, err := config(cfg)
	if err != nil {
		return cfg.Name
	}
	return c.DBName
}

func config(cfg cli.DatabaseConfig) (*mysql.Config, error) {
	if cfg.URL != "" {
		if strings.HasPrefix(cfg.URL, "mysql://") {
			return fromURL(cfg.URL)
		}
		c, err := mysql.ParseDSN(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing database.url: %w", err)
		}
		return c, nil
	}

	if cfg.Host == "" {
		return nil, errors.New("database.host is required when database.url is not set")
	}
	if cfg.Name == "" {
		return nil, errors.New("database.name is required when database.url is not set")
	}
	if cfg.User == "" {
		return nil, errors.New("database.user is required when database.url is not set")
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	c.DBName = cfg.Name
	c.TLSConfig = tlsMode(cfg.SSLMode)
	return c, nil
}

func fromURL(raw string) (*mysql.Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing database.url: %w", err)
	}
	c := mysql.NewConfig()
	c.Net = "tcp"
	c.Addr = u.Host
	if u.Port() == "" {
		c.Addr = net.JoinHostPort(u.Hostname(), strconv.Itoa(defaultPort))
	}
	c.User = u.User.Username()
	c.Passwd, _ = u.User.Password()
	c.DBName = strings.TrimPrefix(u.Path, "/")
	c.TLSConfig = tlsMode(u.Query().Get("sslmode"))
	return c, nil
}

// tlsMode maps sslmode spellings onto the driver's tls parameter.
func tlsMode(sslmode string) string {
	switch strings.ToLower(sslmode) {
	case "disable", "false":
		return "false"
	case "require", "verify-ca", "verify-full", "true":
		return "true"
	case "skip-verify", "preferred":
		return strings.ToLower(sslmode)
	}
	return ""
}

// Source reads one MySQL schema.
type Source struct {
	q      dialect.Querier
	schema string
}

// NewSource returns a Source over q.
func NewSource(q dialect.Querier, schema string) *Source {
	return &Source{q: q, schema: schema}
}

func quote(s string) string {
	return migration.MySQL.Quote(s)
}

const objectsQuery = `
SELECT type, name
FROM (
    SELECT 'TABLE' AS type, TABLE_NAME AS name, TABLE_SCHEMA AS schema_name
    FROM information_schema.TABLES
    UNION
    SELECT 'VIEW' AS type, TABLE_NAME AS name, TABLE_SCHEMA AS schema_name
    FROM information_schema.VIEWS
    UNION
    SELECT ROUTINE_TYPE AS type, ROUTINE_NAME AS name, ROUTINE_SCHEMA AS schema_name
    FROM information_schema.ROUTINES
    UNION
    SELECT 'TRIGGER' AS type, TRIGGER_NAME AS name, TRIGGER_SCHEMA AS schema_name
    FROM information_schema.TRIGGERS
    UNION
    SELECT 'EVENT' AS type, EVENT_NAME AS name, EVENT_SCHEMA AS schema_name
    FROM information_schema.EVENTS
) R
WHERE R.schema_name = ?`

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

// definitionColumns maps each type to the SHOW CREATE result column that
// holds the statement.
var definitionColumns = map[catalog.ObjectType]string{
	catalog.TypeTable:     "Create Table",
	catalog.TypeView:      "Create View",
	catalog.TypeFunction:  "Create Function",
	catalog.TypeProcedure: "Create Procedure",
	catalog.TypeTrigger:   "SQL Original Statement",
	catalog.TypeEvent:     "Create Event",
}

func (s *Source) Definition(ctx context.Context, t catalog.ObjectType, name string) (string, error) {
	column, ok := definitionColumns[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", catalog.ErrInvalidObjectType, string(t))
	}
	return s.showCreate(ctx, "SHOW CREATE "+string(t)+" "+quote(s.schema)+"."+quote(name), column)
}

// showCreate runs a SHOW CREATE statement and returns the named column of
// its single row.
func (s *Source) showCreate(ctx context.Context, query, column string) (string, error) {
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return "", err
	}
	idx := -1
	for i, n := range names {
		if n == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", fmt.Errorf("%s: no %q column in result", query, column)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %s", catalog.ErrObjectNotFound, query)
	}
	values := make([]sql.NullString, len(names))
	dest := make([]any, len(names))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return "", err
	}
	if !values[idx].Valid {
		return "", fmt.Errorf("%s: %q is NULL (missing privileges?)", query, column)
	}
	return values[idx].String, nil
}

var numericTypes = map[string]bool{
	"tinyint": true, "smallint": true, "mediumint": true, "int": true, "integer": true, "bigint": true,
	"decimal": true, "numeric": true, "float": true, "double": true, "real": true, "bit": true, "year": true,
}

func (s *Source) Columns(ctx context.Context, table string) ([]snapshot.Column, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT COLUMN_NAME, DATA_TYPE
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, s.schema, table)
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
		cols = append(cols, snapshot.Column{Name: name, Numeric: numericTypes[strings.ToLower(typ)]})
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
	return s.q.QueryContext(ctx, "SELECT "+strings.Join(quoted, ", ")+" FROM "+quote(s.schema)+"."+quote(table))
}
