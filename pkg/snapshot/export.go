package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrIO is returned when a snapshot or migration file cannot be written.
var ErrIO = errors.New("snapmig: i/o failure")

// TableSource reads table data for export.
type TableSource interface {
	// Columns returns the table's columns in catalog order.
	Columns(ctx context.Context, table string) ([]Column, error)

	// QueryRows selects cols from every row of table, in that column order.
	QueryRows(ctx context.Context, table string, cols []Column) (*sql.Rows, error)
}

// Exporter writes table snapshots.
type Exporter struct {
	src TableSource
}

// NewExporter returns an Exporter reading from src.
func NewExporter(src TableSource) *Exporter {
	return &Exporter{src: src}
}

// Table summarizes one exported snapshot.
type Table struct {
	Name    string
	Columns []Column
	Rows    int
}

// ExportTable streams every row of table into dest. The file is written
// under a temporary name in dest's directory and renamed into place only
// when every row has been written, so a failed export never leaves a
// truncated snapshot behind. All failures wrap ErrIO.
func (e *Exporter) ExportTable(ctx context.Context, table, dest string) (Table, error) {
	cols, err := e.src.Columns(ctx, table)
	if err != nil {
		return Table{}, fmt.Errorf("%w: reading columns of %q: %w", ErrIO, table, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return Table{}, fmt.Errorf("%w: creating snapshot for %q: %w", ErrIO, table, err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err := tmp.Chmod(0o644); err != nil {
		return Table{}, fmt.Errorf("%w: creating snapshot for %q: %w", ErrIO, table, err)
	}

	n, err := e.copyRows(ctx, table, cols, tmp)
	if err != nil {
		return Table{}, err
	}
	if err := tmp.Close(); err != nil {
		return Table{}, fmt.Errorf("%w: closing snapshot for %q: %w", ErrIO, table, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return Table{}, fmt.Errorf("%w: replacing %s: %w", ErrIO, dest, err)
	}
	committed = true
	return Table{Name: table, Columns: cols, Rows: n}, nil
}

// copyRows encodes every row of table into f and returns the row count.
func (e *Exporter) copyRows(ctx context.Context, table string, cols []Column, f *os.File) (int, error) {
	if len(cols) == 0 {
		return 0, nil
	}

	rows, err := e.src.QueryRows(ctx, table, cols)
	if err != nil {
		return 0, fmt.Errorf("%w: querying rows of %q: %w", ErrIO, table, err)
	}
	defer rows.Close()

	enc := NewEncoder(f)
	scanned := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range scanned {
		dest[i] = &scanned[i]
	}
	row := make([]Value, len(cols))

	n := 0
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return n, fmt.Errorf("%w: scanning row %d of %q: %w", ErrIO, n+1, table, err)
		}
		for i, s := range scanned {
			row[i] = Value{String: s.String, Null: !s.Valid}
		}
		if err := enc.WriteRow(cols, row); err != nil {
			return n, fmt.Errorf("%w: writing row %d of %q: %w", ErrIO, n+1, table, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("%w: reading rows of %q: %w", ErrIO, table, err)
	}
	if err := enc.Flush(); err != nil {
		return n, fmt.Errorf("%w: flushing snapshot for %q: %w", ErrIO, table, err)
	}
	return n, nil
}
