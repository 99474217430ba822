// Package migrator runs migration generation end to end: it selects the
// objects to capture, resolves the target version, and writes one
// migration source per object into the version directory.
package migrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pthm/snapmig/pkg/catalog"
	"github.com/pthm/snapmig/pkg/generator"
	"github.com/pthm/snapmig/pkg/snapshot"
	"github.com/pthm/snapmig/pkg/version"
	"github.com/pthm/snapmig/pkg/writer"
)

// AllObjects selects every object in the schema.
const AllObjects = "@"

// Source is everything a run reads from the database. One dialect source
// implements all three roles.
type Source interface {
	catalog.RowSource
	generator.DefinitionSource
	snapshot.TableSource
}

// Options controls a generation run.
type Options struct {
	// MigrationsDir is the root holding one directory per version.
	MigrationsDir string

	// ObjectName is AllObjects or a comma-separated list of names.
	ObjectName string

	// Types restricts AllObjects to the given types. Empty means all.
	Types []catalog.ObjectType

	// Version is an explicit version such as "1.2.0".
	Version string

	// Description selects a timestamped version and takes precedence over
	// Version.
	Description string

	// Force reuses an existing version directory.
	Force bool

	// NoAutoIncrement strips AUTO_INCREMENT=<n> from table definitions.
	NoAutoIncrement bool

	// Export selects when table data is snapshotted.
	Export generator.ExportMode

	// Package is the package clause of generated sources.
	Package string

	// Width caps wrapped view lines.
	Width int

	// DatabaseConfigured reports whether a connection was configured.
	DatabaseConfigured bool

	// Now overrides the clock used for timestamped versions.
	Now func() time.Time

	// Logger receives progress. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Result describes what a run produced.
type Result struct {
	// Version is the resolved version, nil when nothing was selected.
	Version version.Version

	// Path is the version directory.
	Path string

	// Written lists the migration sources written, in generation order.
	Written []string

	// WasWritten is true when at least one source received bytes.
	WasWritten bool
}

// Migrator generates migrations for one schema.
type Migrator struct {
	src    Source
	schema string
	opts   Options
	log    *slog.Logger
}

// NewMigrator returns a Migrator reading from src. src may be nil for
// Create-only use.
func NewMigrator(src Source, schema string, opts Options) *Migrator {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Migrator{
		src:    src,
		schema: schema,
		opts:   opts,
		log:    log.With("run_id", uuid.NewString()),
	}
}

// Generate captures the selected objects into a new version. When nothing
// matches the selection, no directory is created and the zero Result is
// returned.
//
// Objects are processed in catalog order and the first failure aborts
// the run; sources already written stay on disk.
func (m *Migrator) Generate(ctx context.Context) (Result, error) {
	if !m.opts.DatabaseConfigured || m.src == nil {
		return Result{}, ErrMissingDatabaseConfig
	}

	cat := catalog.New(m.src, m.schema)
	objects, err := m.selectObjects(ctx, cat)
	if err != nil {
		return Result{}, err
	}
	if len(objects) == 0 {
		m.log.Info("nothing to generate", "schema", m.schema)
		return Result{}, nil
	}

	res, err := m.prepare()
	if err != nil {
		return Result{}, err
	}

	gen := generator.New(cat, m.src, generator.Options{
		Package:         m.opts.Package,
		Width:           m.opts.Width,
		NoAutoIncrement: m.opts.NoAutoIncrement,
		Exporter:        snapshot.NewExporter(m.src),
	})

	for _, obj := range objects {
		log := m.log.With("object", obj.Name, "type", obj.Type.Lower(), "version", res.Version.String())
		log.Debug("generating migration")

		src, err := gen.GenerateObject(ctx, res.Version, obj, m.opts.Export, res.Path)
		if err != nil {
			return res, err
		}
		if err := m.write(&res, obj.Name, src); err != nil {
			return res, err
		}
		log.Info("migration written", "path", writer.SourcePath(res.Path, obj.Name))
	}
	return res, nil
}

// Create writes empty migration skeletons for the named objects without
// touching the database.
func (m *Migrator) Create() (Result, error) {
	names := splitNames(m.opts.ObjectName)
	if m.opts.ObjectName == AllObjects || len(names) == 0 {
		return Result{}, ErrObjectNameRequired
	}

	res, err := m.prepare()
	if err != nil {
		return Result{}, err
	}

	gen := generator.New(nil, nil, generator.Options{Package: m.opts.Package})
	for _, name := range names {
		src, err := gen.Create(res.Version, name)
		if err != nil {
			return res, err
		}
		if err := m.write(&res, name, src); err != nil {
			return res, err
		}
		m.log.Info("migration created", "object", name, "version", res.Version.String())
	}
	return res, nil
}

// selectObjects resolves ObjectName against the catalog.
func (m *Migrator) selectObjects(ctx context.Context, cat *catalog.Catalog) ([]catalog.SchemaObject, error) {
	all, err := cat.ListObjects(ctx)
	if err != nil {
		return nil, err
	}

	if m.opts.ObjectName == "" || m.opts.ObjectName == AllObjects {
		return catalog.Filter(all, m.opts.Types), nil
	}

	byName := make(map[string]catalog.SchemaObject, len(all))
	for _, o := range all {
		byName[o.Name] = o
	}
	var selected []catalog.SchemaObject
	for _, name := range splitNames(m.opts.ObjectName) {
		o, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q in schema %q", ErrObjectNotFound, name, m.schema)
		}
		selected = append(selected, o)
	}
	return selected, nil
}

// prepare resolves the version and creates its directory. It is the
// first step of a run that touches the filesystem.
func (m *Migrator) prepare() (Result, error) {
	existing, err := writer.ScanVersions(m.opts.MigrationsDir)
	if err != nil {
		return Result{}, err
	}

	r := version.Resolver{Now: m.opts.Now}
	v, err := r.Resolve(m.opts.Version, m.opts.Description, existing)
	if err != nil {
		return Result{}, err
	}

	if err := writer.EnsureDirectory(m.opts.MigrationsDir); err != nil {
		return Result{}, err
	}
	path, err := writer.ResolveVersionPath(m.opts.MigrationsDir, v, m.opts.Force)
	if err != nil {
		return Result{}, err
	}
	return Result{Version: v, Path: path}, nil
}

func (m *Migrator) write(res *Result, name string, src []byte) error {
	written, err := writer.WriteUnit(res.Path, name, src)
	if err != nil {
		return err
	}
	res.Written = append(res.Written, writer.SourcePath(res.Path, name))
	res.WasWritten = res.WasWritten || written
	return nil
}

// splitNames splits a comma-separated name list, dropping blanks and
// duplicates.
func splitNames(s string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, n := range strings.Split(s, ",") {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}
