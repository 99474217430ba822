package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceDBName(t *testing.T) {
	tests := []struct {
		dsn, want string
	}{
		{"postgres://u:p@localhost:5432/postgres?sslmode=disable", "postgres://u:p@localhost:5432/other?sslmode=disable"},
		{"postgres://u@localhost:5432/postgres", "postgres://u@localhost:5432/other"},
		{"postgres://u@localhost:5432", "postgres://u@localhost:5432/other"},
		{"postgres://u@localhost:5432?sslmode=disable", "postgres://u@localhost:5432/other?sslmode=disable"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, replaceDBName(tt.dsn, "other"), tt.dsn)
	}
}

func TestUniqueDBName(t *testing.T) {
	a, b := uniqueDBName("x"), uniqueDBName("x")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "x_"))
	assert.Len(t, a, len("x_")+16)
}

func TestGetDatabaseConfig(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "DATABASE_HOST", "DATABASE_PORT", "DATABASE_USER", "DATABASE_PASSWORD", "DATABASE_NAME", "DATABASE_SSLMODE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := GetDatabaseConfig()
	assert.NoError(t, err)
	assert.Equal(t, "", cfg.DSN(), "no override means testcontainers")

	t.Setenv("DATABASE_HOST", "db.local")
	t.Setenv("DATABASE_PASSWORD", "pw")
	cfg, err = GetDatabaseConfig()
	assert.NoError(t, err)
	assert.Equal(t, "postgres://postgres:pw@db.local:5432/postgres?sslmode=prefer", cfg.DSN())

	t.Setenv("DATABASE_URL", "postgres://u@elsewhere/db")
	cfg, err = GetDatabaseConfig()
	assert.NoError(t, err)
	assert.Equal(t, "postgres://u@elsewhere/db", cfg.DSN())
}
