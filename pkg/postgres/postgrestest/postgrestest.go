// Package postgrestest provides throwaway Postgres schemas for integration tests.
package postgrestest

import (
	"context"
	"embed"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/adpadillar/software-architecture-library/pkg/postgres"
)

// DSNEnv names the variable holding the test database DSN. Tests using NewPool are skipped
// when it is empty.
const DSNEnv = "LENDING_TEST_DSN"

// NewPool creates a fresh schema, applies migrations to it and returns a pool bound to it.
// The schema is dropped when the test ends.
func NewPool(t testing.TB, dsn string, migrations embed.FS) *pgxpool.Pool {
	t.Helper()
	if dsn == "" {
		t.Skipf("%s is not set", DSNEnv)
	}
	ctx := context.Background()
	schema := "lending_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	admin, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err, "connect")
	_, err = admin.Exec(ctx, "create schema "+schema)
	require.NoError(t, err, "create schema")

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	cfg.MaxConns = 16

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		if _, err := admin.Exec(ctx, "drop schema "+schema+" cascade"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		_ = admin.Close(ctx)
	})

	require.NoError(t, postgres.Migrate(pool, migrations), "migrate")
	return pool
}
