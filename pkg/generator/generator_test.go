package generator_test

import (
	"context"
	"database/sql"
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/pthm/snapmig/pkg/catalog"
	"github.com/pthm/snapmig/pkg/generator"
	"github.com/pthm/snapmig/pkg/snapshot"
	"github.com/pthm/snapmig/pkg/version"
)

type fakeSchema struct {
	rows []catalog.Row
	defs map[string]string
	cols map[string][]snapshot.Column
	db   *sql.DB
}

func (f *fakeSchema) ObjectRows(context.Context, string) ([]catalog.Row, error) {
	return f.rows, nil
}

func (f *fakeSchema) Definition(_ context.Context, _ catalog.ObjectType, name string) (string, error) {
	def, ok := f.defs[name]
	if !ok {
		return "", errors.New("no definition")
	}
	return def, nil
}

func (f *fakeSchema) Columns(_ context.Context, table string) ([]snapshot.Column, error) {
	return f.cols[table], nil
}

func (f *fakeSchema) QueryRows(ctx context.Context, table string, _ []snapshot.Column) (*sql.Rows, error) {
	return f.db.QueryContext(ctx, `SELECT id, name FROM `+table+` ORDER BY id`)
}

func newSchema(t *testing.T) *fakeSchema {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE users (id INTEGER, name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users VALUES (1, 'ann'), (2, NULL)`)
	require.NoError(t, err)

	return &fakeSchema{
		rows: []catalog.Row{
			{Type: "TABLE", Name: "users"},
			{Type: "TABLE", Name: "active_users"},
			{Type: "VIEW", Name: "active_users"},
			{Type: "SEQUENCE", Name: "user_ids"},
		},
		defs: map[string]string{
			"users": "CREATE TABLE `users` (\n  `id` int NOT NULL,\n  `name` varchar(10) DEFAULT NULL\n) ENGINE=InnoDB",
			"active_users": "CREATE ALGORITHM=UNDEFINED DEFINER=`root`@`localhost` VIEW `active_users` AS " +
				"select `users`.`id` AS `id` from `users`",
		},
		cols: map[string][]snapshot.Column{
			"users": {{Name: "id", Numeric: true}, {Name: "name"}},
		},
		db: db,
	}
}

func newGenerator(s *fakeSchema) *generator.Generator {
	return generator.New(catalog.New(s, "app"), s, generator.Options{Exporter: snapshot.NewExporter(s)})
}

func assertParses(t *testing.T, src []byte) {
	t.Helper()
	_, err := parser.ParseFile(token.NewFileSet(), "migration.go", src, parser.ParseComments)
	require.NoError(t, err, string(src))
}

// execSQL returns the SQL passed to the first m.Exec call in src, with
// any spliced literals joined back together.
func execSQL(t *testing.T, src []byte) string {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "migration.go", src, 0)
	require.NoError(t, err)

	var arg ast.Expr
	ast.Inspect(f, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || arg != nil {
			return arg == nil
		}
		if sel, ok := call.Fun.(*ast.SelectorExpr); ok && sel.Sel.Name == "Exec" && len(call.Args) == 2 {
			arg = call.Args[1]
		}
		return true
	})
	require.NotNil(t, arg, "no m.Exec call")

	var b strings.Builder
	var join func(e ast.Expr)
	join = func(e ast.Expr) {
		switch e := e.(type) {
		case *ast.BinaryExpr:
			join(e.X)
			join(e.Y)
		case *ast.BasicLit:
			s, err := strconv.Unquote(e.Value)
			require.NoError(t, err)
			b.WriteString(s)
		default:
			t.Fatalf("unexpected expression %T in m.Exec", e)
		}
	}
	join(arg)
	return b.String()
}

var v120 = version.Incremental{Major: 1, Minor: 2}

func TestCreate(t *testing.T) {
	g := generator.New(nil, nil, generator.Options{})

	src, err := g.Create(version.Initial, "users")
	require.NoError(t, err)

	assert.Equal(t, `// Generated by snapmig.
// Source: users, version 1.0.0.

package migrations

import (
	"context"

	"github.com/pthm/snapmig/pkg/migration"
)

// UsersMigration_100 migrates users to version 1.0.0.
type UsersMigration_100 struct {
	migration.Base
}

// Up applies the migration.
func (m *UsersMigration_100) Up(ctx context.Context) error {
	return nil
}

// Down reverts the migration.
func (m *UsersMigration_100) Down(ctx context.Context) error {
	return nil
}
`, string(src))
}

func TestGenerate_View(t *testing.T) {
	g := newGenerator(newSchema(t))

	src, err := g.Generate(context.Background(), v120, "active_users", generator.ExportAlways, t.TempDir())
	require.NoError(t, err)
	assertParses(t, src)

	out := string(src)
	assert.Contains(t, out, "// Source: view active_users, version 1.2.0.")
	assert.Contains(t, out, "type ActiveUsersMigration_120 struct")
	assert.True(t, strings.HasPrefix(execSQL(t, src), "CREATE OR REPLACE VIEW `active_users` AS SELECT"), execSQL(t, src))
	assert.NotContains(t, out, "DEFINER")
	assert.NotContains(t, out, "BatchInsert", "export applies to tables only")
}

func TestGenerate_TableExportModes(t *testing.T) {
	tests := []struct {
		mode       generator.ExportMode
		wantInsert bool
		wantDelete bool
	}{
		{generator.ExportOff, false, false},
		{generator.ExportOnCreate, true, false},
		{generator.ExportAlways, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			g := newGenerator(newSchema(t))
			dir := t.TempDir()

			src, err := g.Generate(context.Background(), v120, "users", tt.mode, dir)
			require.NoError(t, err)
			assertParses(t, src)

			out := string(src)
			assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS")
			assert.Equal(t, tt.wantInsert, strings.Contains(out, `m.BatchInsert(ctx, "users", []string{"id", "name"})`))
			assert.Equal(t, tt.wantDelete, strings.Contains(out, `m.BatchDelete(ctx, "users", []string{"id", "name"})`))
			assert.NotContains(t, out, "DROP")

			data, err := os.ReadFile(filepath.Join(dir, "users.dat"))
			if !tt.wantInsert {
				assert.True(t, errors.Is(err, os.ErrNotExist))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "\"1\",\"ann\"\n\"2\",NULL\n", string(data))
		})
	}
}

func TestGenerate_ExportWithoutExporter(t *testing.T) {
	s := newSchema(t)
	g := generator.New(catalog.New(s, "app"), s, generator.Options{})

	_, err := g.Generate(context.Background(), v120, "users", generator.ExportOnCreate, t.TempDir())
	assert.ErrorIs(t, err, generator.ErrNoExporter)
}

func TestGenerate_Errors(t *testing.T) {
	g := newGenerator(newSchema(t))
	ctx := context.Background()

	_, err := g.Generate(ctx, v120, "missing", generator.ExportOff, t.TempDir())
	assert.ErrorIs(t, err, catalog.ErrObjectNotFound)

	_, err = g.Generate(ctx, v120, "user_ids", generator.ExportOff, t.TempDir())
	assert.ErrorIs(t, err, generator.ErrUnsupportedObjectType)
}

func TestGenerate_PackageAndTimestampedVersion(t *testing.T) {
	s := newSchema(t)
	g := generator.New(catalog.New(s, "app"), s, generator.Options{Package: "dbmigrations"})

	v := version.Timestamped{Micros: 1700000000000000, Description: "add_users"}
	src, err := g.Generate(context.Background(), v, "users", generator.ExportOff, t.TempDir())
	require.NoError(t, err)
	assertParses(t, src)
	assert.Contains(t, string(src), "package dbmigrations")
	assert.Contains(t, string(src), "type UsersMigration_1700000000000000addusers struct")
}

func TestParseExportMode(t *testing.T) {
	for in, want := range map[string]generator.ExportMode{
		"":         generator.ExportOff,
		"off":      generator.ExportOff,
		"OnCreate": generator.ExportOnCreate,
		" always ": generator.ExportAlways,
	} {
		got, err := generator.ParseExportMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := generator.ParseExportMode("sometimes")
	assert.ErrorIs(t, err, generator.ErrInvalidExportMode)
}

func TestCamelize(t *testing.T) {
	assert.Equal(t, "UserAccounts", generator.Camelize("user_accounts"))
	assert.Equal(t, "OrderItemsV2", generator.Camelize("order-items.v2"))
	assert.Equal(t, "UserID", generator.Camelize("userID"))
	assert.Equal(t, "Object", generator.Camelize("__"))
	assert.Regexp(t, `^Object2`, generator.Camelize("2fa_codes"))
}
