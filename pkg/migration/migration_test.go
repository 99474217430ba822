package migration_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/pthm/snapmig/pkg/migration"
)

// itemsMigration is shaped like generated output.
type itemsMigration struct {
	migration.Base
}

func (m *itemsMigration) Up(ctx context.Context) error {
	if err := m.Exec(ctx, `CREATE TABLE IF NOT EXISTS "items" (
id INTEGER,
name TEXT
)`); err != nil {
		return err
	}
	return m.BatchInsert(ctx, "items", []string{"id", "name"})
}

func (m *itemsMigration) Down(ctx context.Context) error {
	return m.BatchDelete(ctx, "items", []string{"id", "name"})
}

var _ migration.Migration = (*itemsMigration)(nil)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, where string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items `+where).Scan(&n))
	return n
}

func TestBase_UpDown(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	m := &itemsMigration{Base: migration.Base{
		DB:      db,
		Dialect: migration.SQLite,
		Data: fstest.MapFS{
			"items.dat": {Data: []byte("\"1\",\"apple\"\n\"2\",NULL\n\"3\",\"NULL\"\n")},
		},
	}}

	require.NoError(t, m.Up(ctx))
	assert.Equal(t, 3, countRows(t, db, ""))
	assert.Equal(t, 1, countRows(t, db, "WHERE name IS NULL"))
	assert.Equal(t, 1, countRows(t, db, "WHERE name = 'NULL'"))

	_, err := db.Exec(`INSERT INTO items VALUES (99, 'kept')`)
	require.NoError(t, err)

	require.NoError(t, m.Down(ctx))
	assert.Equal(t, 1, countRows(t, db, ""))
	assert.Equal(t, 1, countRows(t, db, "WHERE id = 99"))
}

func TestBase_BatchInsertSpansBatches(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	_, err := db.Exec(`CREATE TABLE items (id INTEGER, name TEXT)`)
	require.NoError(t, err)

	var sb strings.Builder
	for i := 1; i <= 250; i++ {
		fmt.Fprintf(&sb, "\"%d\",\"item %d\"\n", i, i)
	}
	b := migration.Base{DB: db, Dialect: migration.SQLite, Data: fstest.MapFS{"items.dat": {Data: []byte(sb.String())}}}

	require.NoError(t, b.BatchInsert(ctx, "items", []string{"id", "name"}))
	assert.Equal(t, 250, countRows(t, db, ""))
}

func TestBase_SnapshotErrors(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	b := migration.Base{DB: db}
	assert.ErrorIs(t, b.BatchInsert(ctx, "items", []string{"id"}), migration.ErrNoData)

	b.Data = fstest.MapFS{}
	assert.Error(t, b.BatchInsert(ctx, "items", []string{"id"}))

	b.Data = fstest.MapFS{"items.dat": {Data: []byte("\"1\",\"extra\"\n")}}
	assert.Error(t, b.BatchDelete(ctx, "items", []string{"id"}))
}

func TestBase_ExecError(t *testing.T) {
	b := migration.Base{DB: openDB(t)}
	err := b.Exec(context.Background(), "CREATE TABLE broken (\nnope nope nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREATE TABLE broken ( ...")
}

func TestBase_HasColumn(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	_, err := db.Exec(`CREATE TABLE items (id INTEGER, name TEXT)`)
	require.NoError(t, err)

	b := migration.Base{DB: db, Dialect: migration.SQLite}
	ok, err := b.HasColumn(ctx, "items", "name")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.HasColumn(ctx, "items", "price")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = b.HasColumn(ctx, "missing", "id")
	require.NoError(t, err)
	assert.False(t, ok)

	b.Dialect = migration.Dialect{Name: "custom"}
	_, err = b.HasColumn(ctx, "items", "id")
	assert.ErrorIs(t, err, migration.ErrNoColumnQuery)
}

func TestDialects(t *testing.T) {
	assert.Equal(t, "`a``b`", migration.MySQL.Quote("a`b"))
	assert.Equal(t, `"users"`, migration.Postgres.Quote("users"))
	assert.Equal(t, "$3", migration.Postgres.Placeholder(3))
	assert.Equal(t, "?", migration.SQLite.Placeholder(3))

	d, ok := migration.DialectFor("PostgreSQL")
	require.True(t, ok)
	assert.Equal(t, "postgres", d.Name)

	_, ok = migration.DialectFor("oracle")
	assert.False(t, ok)
}
