package db

import (
	"context"
	"io/fs"
	"testing"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactsmiles/smiles-wallet/internal/db/dbtest"
	"github.com/impactsmiles/smiles-wallet/internal/db/migrations"
)

func TestMigrate_up_1(t *testing.T) {
	ctx := context.Background()
	dbt := dbtest.OpenWithoutMigrations(t)
	defer dbt.Close()

	pool, err := OpenDBConnectionPool(ctx, dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	n, err := Migrate(ctx, dbt.DSN, migrate.Up, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := QueryAll[struct {
		ID string `db:"id"`
	}](ctx, pool.Pool(), "SELECT id FROM gorp_migrations")
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "2026-09-01.0-custody.sql", ids[0].ID)
}

func TestMigrate_upall_down_all(t *testing.T) {
	ctx := context.Background()
	dbt := dbtest.OpenWithoutMigrations(t)
	defer dbt.Close()

	pool, err := OpenDBConnectionPool(ctx, dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	var count int
	err = fs.WalkDir(migrations.FS, ".", func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		if !d.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)

	n, err := Migrate(ctx, dbt.DSN, migrate.Up, 0)
	require.NoError(t, err)
	require.Equal(t, count, n)

	row, err := QueryOne[struct {
		Count int `db:"count"`
	}](ctx, pool.Pool(), "SELECT COUNT(*) AS count FROM gorp_migrations")
	require.NoError(t, err)
	assert.Equal(t, count, row.Count)

	n, err = Migrate(ctx, dbt.DSN, migrate.Down, count)
	require.NoError(t, err)
	require.Equal(t, count, n)

	row, err = QueryOne[struct {
		Count int `db:"count"`
	}](ctx, pool.Pool(), "SELECT COUNT(*) AS count FROM gorp_migrations")
	require.NoError(t, err)
	assert.Equal(t, 0, row.Count)
}
