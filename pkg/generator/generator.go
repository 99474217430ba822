// Package generator synthesizes Go migration sources for schema objects.
//
// Each generated source declares one struct embedding migration.Base with
// Up and Down methods. Up recreates the object from its live definition,
// rewritten to be idempotent by package reformat; for tables it can also
// replay a data snapshot exported alongside. Down is left empty unless
// data export runs in "always" mode, in which case it deletes the
// snapshot rows again. No DROP statement is ever generated.
package generator

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"text/template"

	"github.com/pthm/snapmig/pkg/catalog"
	"github.com/pthm/snapmig/pkg/reformat"
	"github.com/pthm/snapmig/pkg/snapshot"
	"github.com/pthm/snapmig/pkg/version"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

// Sentinel errors for generation.
var (
	// ErrUnsupportedObjectType is returned for catalog objects outside the
	// six generated types.
	ErrUnsupportedObjectType = errors.New("snapmig: unsupported object type")

	// ErrInvalidExportMode is returned by ParseExportMode.
	ErrInvalidExportMode = errors.New("snapmig: invalid export mode")

	// ErrNoExporter is returned when data export is requested but the
	// generator was built without an Exporter.
	ErrNoExporter = errors.New("snapmig: data export requested without an exporter")
)

// DefaultPackage is the package name of generated sources.
const DefaultPackage = "migrations"

// ExportMode selects when table data is snapshotted.
type ExportMode string

const (
	// ExportOff never exports data.
	ExportOff ExportMode = "off"
	// ExportOnCreate exports data and inserts it on Up.
	ExportOnCreate ExportMode = "oncreate"
	// ExportAlways also deletes the exported rows on Down.
	ExportAlways ExportMode = "always"
)

// ParseExportMode parses an export mode. The empty string means ExportOff.
func ParseExportMode(s string) (ExportMode, error) {
	switch m := ExportMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ExportOff, nil
	case ExportOff, ExportOnCreate, ExportAlways:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (want off, oncreate or always)", ErrInvalidExportMode, s)
}

func (m ExportMode) exportsData() bool {
	return m == ExportOnCreate || m == ExportAlways
}

// DefinitionSource returns live object definitions.
type DefinitionSource interface {
	// Definition returns the raw CREATE statement for an object.
	Definition(ctx context.Context, t catalog.ObjectType, name string) (string, error)

	// Columns returns a table's columns in catalog order.
	Columns(ctx context.Context, table string) ([]snapshot.Column, error)
}

// Options configures a Generator.
type Options struct {
	// Package is the package clause of generated sources. Defaults to
	// DefaultPackage.
	Package string

	// Width caps wrapped view lines. Zero means reformat.DefaultWidth.
	Width int

	// NoAutoIncrement strips AUTO_INCREMENT=<n> from table definitions.
	NoAutoIncrement bool

	// Exporter writes table snapshots when an export mode asks for data.
	Exporter *snapshot.Exporter
}

// Unit is one migration being generated. Up and Down hold Go statements
// that each return an error.
type Unit struct {
	Version      version.Version
	ObjectName   string
	ObjectType   catalog.ObjectType
	Up           []string
	Down         []string
	SnapshotPath string
}

// Generator builds migration sources.
type Generator struct {
	cat  *catalog.Catalog
	defs DefinitionSource
	opts Options
}

// New returns a Generator reading objects through cat and definitions
// through defs.
func New(cat *catalog.Catalog, defs DefinitionSource, opts Options) *Generator {
	if opts.Package == "" {
		opts.Package = DefaultPackage
	}
	return &Generator{cat: cat, defs: defs, opts: opts}
}

// Create returns an empty migration skeleton for objectName. The database
// is not consulted.
func (g *Generator) Create(v version.Version, objectName string) ([]byte, error) {
	return g.render(Unit{Version: v, ObjectName: objectName})
}

// Generate looks objectName up in the catalog and returns its migration
// source. Table snapshots, when mode asks for them, are written into dir.
func (g *Generator) Generate(ctx context.Context, v version.Version, objectName string, mode ExportMode, dir string) ([]byte, error) {
	t, err := g.cat.ObjectType(ctx, objectName)
	if err != nil {
		return nil, err
	}
	return g.GenerateObject(ctx, v, catalog.SchemaObject{Name: objectName, Type: t, Schema: g.cat.Schema()}, mode, dir)
}

// GenerateObject is Generate for an object whose type is already known.
func (g *Generator) GenerateObject(ctx context.Context, v version.Version, obj catalog.SchemaObject, mode ExportMode, dir string) ([]byte, error) {
	h, err := handlerFor(obj.Type)
	if err != nil {
		return nil, err
	}

	u := Unit{Version: v, ObjectName: obj.Name, ObjectType: obj.Type}
	if err := h(ctx, g, &u, mode, dir); err != nil {
		return nil, fmt.Errorf("generating %s %s: %w", obj.Type.Lower(), obj.Name, err)
	}
	return g.render(u)
}

// TypeName returns the Go type name of the migration for objectName.
func TypeName(objectName string, v version.Version) string {
	return Camelize(objectName) + "Migration_" + version.Sanitize(v)
}

type renderData struct {
	Unit
	Package  string
	TypeName string
}

func (g *Generator) render(u Unit) ([]byte, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "migration.go.tmpl", renderData{
		Unit:     u,
		Package:  g.opts.Package,
		TypeName: TypeName(u.ObjectName, u.Version),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering migration for %s: %w", u.ObjectName, err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting migration for %s: %w", u.ObjectName, err)
	}
	return src, nil
}

// execCall renders the statement as an m.Exec call.
func execCall(st reformat.Statement) string {
	lines := make([]string, 0, len(st.Body)+2)
	lines = append(lines, st.First)
	for _, l := range st.Body {
		lines = append(lines, "    "+l)
	}
	if st.Last != "" {
		lines = append(lines, st.Last)
	}
	return "m.Exec(ctx, " + rawString(strings.Join(lines, "\n")) + ")"
}

// dataCall renders an m.BatchInsert or m.BatchDelete call.
func dataCall(method, table string, cols []snapshot.Column) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = strconv.Quote(c.Name)
	}
	return "m." + method + "(ctx, " + strconv.Quote(table) + ", []string{" + strings.Join(quoted, ", ") + "})"
}

// rawString renders s as a Go raw string literal, splicing in any
// backticks as interpreted strings.
func rawString(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return "`" + strings.ReplaceAll(s, "`", "` + \"`\" + `") + "`"
}
