// Package catalog lists and classifies the schema objects of a live database.
//
// The catalog sits on top of a RowSource, the injected collaborator that
// knows how to ask a specific database for its (type, name) pairs. The
// catalog itself is dialect-neutral: it deduplicates, classifies, and
// filters, and never issues writes.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for catalog lookups.
var (
	// ErrObjectNotFound is returned when no catalog row matches a name.
	ErrObjectNotFound = errors.New("snapmig: object not found")

	// ErrInvalidObjectType is returned when a type name is not one of the
	// known schema object types.
	ErrInvalidObjectType = errors.New("snapmig: invalid object type")
)

// ObjectType classifies a schema object.
type ObjectType string

// The closed set of object types a migration can be generated for.
const (
	TypeTable     ObjectType = "TABLE"
	TypeView      ObjectType = "VIEW"
	TypeFunction  ObjectType = "FUNCTION"
	TypeProcedure ObjectType = "PROCEDURE"
	TypeTrigger   ObjectType = "TRIGGER"
	TypeEvent     ObjectType = "EVENT"
)

// AllTypes lists every known object type in generation order.
var AllTypes = []ObjectType{TypeTable, TypeView, TypeFunction, TypeProcedure, TypeTrigger, TypeEvent}

// Known reports whether t is one of the six known object types.
func (t ObjectType) Known() bool {
	switch t {
	case TypeTable, TypeView, TypeFunction, TypeProcedure, TypeTrigger, TypeEvent:
		return true
	}
	return false
}

// Lower returns the lowercase type name, as used on the command line.
func (t ObjectType) Lower() string {
	return strings.ToLower(string(t))
}

// ParseObjectType parses a type name case-insensitively.
func ParseObjectType(s string) (ObjectType, error) {
	t := ObjectType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Known() {
		return "", fmt.Errorf("%w: %q", ErrInvalidObjectType, s)
	}
	return t, nil
}

// ParseTypeList parses a comma-separated type list such as "table,view".
// Blank entries are skipped and duplicates collapsed.
func ParseTypeList(s string) ([]ObjectType, error) {
	var types []ObjectType
	seen := make(map[ObjectType]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := ParseObjectType(part)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	return types, nil
}

// SchemaObject is one catalog-visible entity.
type SchemaObject struct {
	Name   string
	Type   ObjectType
	Schema string
}

// Row is a raw (type, name) pair as reported by a RowSource. Type is the
// database's own spelling, e.g. "TABLE" or "PROCEDURE".
type Row struct {
	Type string
	Name string
}

// RowSource returns the (type, name) pairs of every object in a schema.
// A name may appear more than once when introspection sources overlap
// (a view is also listed as a table by some catalogs).
type RowSource interface {
	ObjectRows(ctx context.Context, schema string) ([]Row, error)
}

// Catalog is a read-only view of one schema's objects.
type Catalog struct {
	src    RowSource
	schema string
}

// New creates a catalog over src for the given schema.
func New(src RowSource, schema string) *Catalog {
	return &Catalog{src: src, schema: schema}
}

// Schema returns the schema this catalog inspects.
func (c *Catalog) Schema() string {
	return c.schema
}

// ListObjects returns every object in the schema, ordered by first
// appearance and deduplicated by name. A non-TABLE classification for a
// name overrides a TABLE classification for the same name.
func (c *Catalog) ListObjects(ctx context.Context) ([]SchemaObject, error) {
	rows, err := c.src.ObjectRows(ctx, c.schema)
	if err != nil {
		return nil, fmt.Errorf("listing objects in schema %q: %w", c.schema, err)
	}
	return c.merge(rows), nil
}

// ObjectType returns the classification of name, applying the same
// precedence as ListObjects.
func (c *Catalog) ObjectType(ctx context.Context, name string) (ObjectType, error) {
	objects, err := c.ListObjects(ctx)
	if err != nil {
		return "", err
	}
	for _, o := range objects {
		if o.Name == name {
			return o.Type, nil
		}
	}
	return "", fmt.Errorf("%w: %q in schema %q", ErrObjectNotFound, name, c.schema)
}

func (c *Catalog) merge(rows []Row) []SchemaObject {
	objects := make([]SchemaObject, 0, len(rows))
	index := make(map[string]int, len(rows))

	for _, r := range rows {
		t := ObjectType(strings.ToUpper(strings.TrimSpace(r.Type)))
		if i, ok := index[r.Name]; ok {
			if objects[i].Type == TypeTable && t != TypeTable {
				objects[i].Type = t
			}
			continue
		}
		index[r.Name] = len(objects)
		objects = append(objects, SchemaObject{Name: r.Name, Type: t, Schema: c.schema})
	}
	return objects
}

// Filter returns the objects whose type is in types, preserving order.
// An empty type set selects everything.
func Filter(objects []SchemaObject, types []ObjectType) []SchemaObject {
	if len(types) == 0 {
		return objects
	}
	want := make(map[ObjectType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []SchemaObject
	for _, o := range objects {
		if want[o.Type] {
			out = append(out, o)
		}
	}
	return out
}
