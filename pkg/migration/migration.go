// Package migration is the runtime that generated migrations build on.
//
// Every generated migration is a struct embedding Base. Base executes the
// captured DDL and, for tables exported with data, replays the sibling
// .dat snapshot as inserts (and, on Down, as deletes). Nothing in this
// package decides which migrations run or records what has been applied;
// that is left to the application.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/pthm/snapmig/pkg/snapshot"
)

// ErrNoData is returned by BatchInsert and BatchDelete when Base has no
// snapshot filesystem.
var ErrNoData = errors.New("snapmig: migration has no data filesystem")

// ErrNoColumnQuery is returned by HasColumn when the dialect cannot look
// up columns.
var ErrNoColumnQuery = errors.New("snapmig: dialect has no column lookup")

// Migration is implemented by every generated migration.
type Migration interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
}

// Dialect holds the database-specific bits needed to build data
// statements.
type Dialect struct {
	Name string

	// Placeholder returns the bind parameter for the n-th argument (1-based).
	Placeholder func(n int) string

	// Quote quotes an identifier.
	Quote func(ident string) string

	// ColumnQuery counts the columns named by its second argument in the
	// table named by its first, within the current schema.
	ColumnQuery string
}

// Dialect presets.
var (
	MySQL = Dialect{
		Name:        "mysql",
		Placeholder: func(int) string { return "?" },
		Quote:       func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
		ColumnQuery: `SELECT COUNT(*) FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`,
	}

	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		Quote:       pq.QuoteIdentifier,
		ColumnQuery: `SELECT COUNT(*) FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2`,
	}

	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: func(int) string { return "?" },
		Quote:       ansiQuote,
		ColumnQuery: `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
	}
)

// DialectFor returns the preset for name ("mysql", "postgres" or "sqlite").
func DialectFor(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "mysql":
		return MySQL, true
	case "postgres", "postgresql", "pgx":
		return Postgres, true
	case "sqlite", "sqlite3":
		return SQLite, true
	}
	return Dialect{}, false
}

func ansiQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (d Dialect) placeholder(n int) string {
	if d.Placeholder == nil {
		return "?"
	}
	return d.Placeholder(n)
}

func (d Dialect) quote(s string) string {
	if d.Quote == nil {
		return ansiQuote(s)
	}
	return d.Quote(s)
}

// insertBatch is the number of rows per INSERT statement.
const insertBatch = 100

// Base carries what a generated migration needs at apply time.
type Base struct {
	// DB receives every statement.
	DB Execer

	// Data holds the version directory's snapshots, typically
	// os.DirFS("<migrations>/<version>") or an embed.FS.
	Data fs.FS

	Dialect Dialect
}

// Exec runs one statement.
func (b *Base) Exec(ctx context.Context, query string) error {
	if _, err := b.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("executing %q: %w", firstLine(query), err)
	}
	return nil
}

// HasColumn reports whether table has a column named column. Hand-written
// migrations use it to guard ALTER TABLE statements.
func (b *Base) HasColumn(ctx context.Context, table, column string) (bool, error) {
	if b.Dialect.ColumnQuery == "" {
		return false, fmt.Errorf("%w: %q", ErrNoColumnQuery, b.Dialect.Name)
	}
	var n int
	if err := b.DB.QueryRowContext(ctx, b.Dialect.ColumnQuery, table, column).Scan(&n); err != nil {
		return false, fmt.Errorf("looking up column %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

// BatchInsert inserts every row of <table>.dat into table. cols must match
// the snapshot's column order.
func (b *Base) BatchInsert(ctx context.Context, table string, cols []string) error {
	rows, err := b.readSnapshot(table, len(cols))
	if err != nil {
		return err
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = b.Dialect.quote(c)
	}
	prefix := "INSERT INTO " + b.Dialect.quote(table) + " (" + strings.Join(quoted, ", ") + ") VALUES "

	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))

		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]any, 0, (end-start)*len(cols))
		for i, row := range rows[start:end] {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for j, v := range row {
				if j > 0 {
					sb.WriteString(", ")
				}
				args = append(args, arg(v))
				sb.WriteString(b.Dialect.placeholder(len(args)))
			}
			sb.WriteByte(')')
		}

		if _, err := b.DB.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("inserting rows %d-%d into %s: %w", start+1, end, table, err)
		}
	}
	return nil
}

// BatchDelete deletes every row of <table>.dat from table, matching NULL
// fields with IS NULL.
func (b *Base) BatchDelete(ctx context.Context, table string, cols []string) error {
	rows, err := b.readSnapshot(table, len(cols))
	if err != nil {
		return err
	}

	for n, row := range rows {
		var sb strings.Builder
		sb.WriteString("DELETE FROM " + b.Dialect.quote(table) + " WHERE ")
		var args []any
		for j, v := range row {
			if j > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(b.Dialect.quote(cols[j]))
			if v.Null {
				sb.WriteString(" IS NULL")
				continue
			}
			args = append(args, v.String)
			sb.WriteString(" = " + b.Dialect.placeholder(len(args)))
		}

		if _, err := b.DB.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("deleting row %d from %s: %w", n+1, table, err)
		}
	}
	return nil
}

func (b *Base) readSnapshot(table string, width int) ([][]snapshot.Value, error) {
	if b.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoData, table)
	}
	name := table + ".dat"
	f, err := b.Data.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot %s: %w", name, err)
	}
	defer f.Close()

	var rows [][]snapshot.Value
	dec := snapshot.NewDecoder(f)
	for {
		row, err := dec.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading snapshot %s: %w", name, err)
		}
		if len(row) != width {
			return nil, fmt.Errorf("%w: %s row %d has %d fields, want %d",
				snapshot.ErrMalformedRow, name, len(rows)+1, len(row), width)
		}
		rows = append(rows, row)
	}
}

func arg(v snapshot.Value) any {
	if v.Null {
		return nil
	}
	return v.String
}

func firstLine(query string) string {
	query = strings.TrimSpace(query)
	if i := strings.IndexByte(query, '\n'); i >= 0 {
		return query[:i] + " ..."
	}
	return query
}
