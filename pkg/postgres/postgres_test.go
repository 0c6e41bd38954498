package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adpadillar/software-architecture-library/lending/migrations"
	"github.com/adpadillar/software-architecture-library/pkg/postgres"
	"github.com/adpadillar/software-architecture-library/pkg/postgres/postgrestest"
)

func TestMigrate_KeepsPoolUsable(t *testing.T) {
	pool := postgrestest.NewPool(t, os.Getenv(postgrestest.DSNEnv), migrations.MigrationFiles)
	ctx := context.Background()

	// second run is a no-op and must not close the pool's connections
	require.NoError(t, postgres.Migrate(pool, migrations.MigrationFiles))
	require.NoError(t, pool.Ping(ctx))

	var version int64
	require.NoError(t, pool.QueryRow(ctx, "select max(version_id) from goose_db_version").Scan(&version))
	require.EqualValues(t, 1, version)

	var tables int
	require.NoError(t, pool.QueryRow(ctx,
		"select count(*) from information_schema.tables where table_schema = current_schema() and table_name in ('resources', 'loans', 'users')",
	).Scan(&tables))
	require.Equal(t, 3, tables)
}
