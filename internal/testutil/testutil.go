// Package testutil provides a shared PostgreSQL instance for integration
// tests.
//
// Set DATABASE_URL (or DATABASE_HOST and friends) to use an existing
// server; otherwise a container is started once per test binary with
// testcontainers. Every caller gets its own freshly created database.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Singleton container state
var (
	singletonOnce sync.Once
	singletonDSN  string
	singletonErr  error
)

// ensureSingleton lazily initializes the admin DSN, starting a container
// unless an existing server is configured.
func ensureSingleton() (string, error) {
	singletonOnce.Do(func() {
		cfg, err := GetDatabaseConfig()
		if err != nil {
			singletonErr = err
			return
		}
		if dsn := cfg.DSN(); dsn != "" {
			singletonDSN = dsn
			return
		}

		ctx := context.Background()
		container, err := postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			singletonErr = fmt.Errorf("failed to start PostgreSQL container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx)
		if err != nil {
			_ = container.Terminate(ctx)
			singletonErr = fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
			return
		}

		// Append sslmode=disable for local testing
		dsn += "sslmode=disable"

		singletonDSN = dsn
		// Container is not stored - ryuk will handle cleanup automatically
	})

	return singletonDSN, singletonErr
}

// PostgresDB returns a connection to a new empty database and its DSN.
// The test is skipped under -short. The database is dropped when the test
// completes.
func PostgresDB(tb testing.TB) (*sql.DB, string) {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping PostgreSQL integration test in short mode")
	}

	adminDSN, err := ensureSingleton()
	require.NoError(tb, err, "failed to start PostgreSQL")

	name := uniqueDBName("snapmig")
	admin, err := sql.Open("pgx", adminDSN)
	require.NoError(tb, err)
	defer func() { _ = admin.Close() }()
	_, err = admin.Exec("CREATE DATABASE " + name)
	require.NoError(tb, err, "failed to create test database")

	dsn := replaceDBName(adminDSN, name)
	db, err := sql.Open("pgx", dsn)
	require.NoError(tb, err, "failed to connect to test database")
	require.NoError(tb, db.Ping(), "failed to ping test database")

	tb.Cleanup(func() {
		_ = db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		admin, err := sql.Open("pgx", adminDSN)
		if err != nil {
			return
		}
		defer func() { _ = admin.Close() }()
		_, _ = admin.ExecContext(ctx, "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)")
	})

	return db, dsn
}

// uniqueDBName generates a unique database name with the given prefix.
func uniqueDBName(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// replaceDBName replaces the database name in a postgres:// DSN.
func replaceDBName(dsn, newDB string) string {
	query := ""
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn, query = dsn[:i], dsn[i:]
	}
	if i := strings.LastIndexByte(dsn, '/'); i >= 0 && i > strings.Index(dsn, "//")+1 {
		return dsn[:i+1] + newDB + query
	}
	return dsn + "/" + newDB + query
}
