package generator

import (
	"context"
	"fmt"

	"github.com/pthm/snapmig/pkg/catalog"
	"github.com/pthm/snapmig/pkg/reformat"
	"github.com/pthm/snapmig/pkg/writer"
)

// handler fills in the Up and Down statements of a unit.
type handler func(ctx context.Context, g *Generator, u *Unit, mode ExportMode, dir string) error

func handlerFor(t catalog.ObjectType) (handler, error) {
	switch t {
	case catalog.TypeTable:
		return generateTable, nil
	case catalog.TypeView, catalog.TypeFunction, catalog.TypeProcedure, catalog.TypeTrigger, catalog.TypeEvent:
		return generateDefinition, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedObjectType, string(t))
}

// statement fetches and reformats the object's definition.
func (g *Generator) statement(ctx context.Context, u *Unit) (reformat.Statement, error) {
	raw, err := g.defs.Definition(ctx, u.ObjectType, u.ObjectName)
	if err != nil {
		return reformat.Statement{}, fmt.Errorf("reading definition: %w", err)
	}
	return reformat.Reformat(u.ObjectType, u.ObjectName, raw, reformat.Options{
		Width:           g.opts.Width,
		NoAutoIncrement: g.opts.NoAutoIncrement,
	})
}

func generateDefinition(ctx context.Context, g *Generator, u *Unit, _ ExportMode, _ string) error {
	st, err := g.statement(ctx, u)
	if err != nil {
		return err
	}
	u.Up = append(u.Up, execCall(st))
	return nil
}

func generateTable(ctx context.Context, g *Generator, u *Unit, mode ExportMode, dir string) error {
	if err := generateDefinition(ctx, g, u, mode, dir); err != nil {
		return err
	}
	if !mode.exportsData() {
		return nil
	}
	if g.opts.Exporter == nil {
		return ErrNoExporter
	}

	u.SnapshotPath = writer.SnapshotPath(dir, u.ObjectName)
	table, err := g.opts.Exporter.ExportTable(ctx, u.ObjectName, u.SnapshotPath)
	if err != nil {
		return err
	}

	u.Up = append(u.Up, dataCall("BatchInsert", u.ObjectName, table.Columns))
	if mode == ExportAlways {
		u.Down = append(u.Down, dataCall("BatchDelete", u.ObjectName, table.Columns))
	}
	return nil
}
