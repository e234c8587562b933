package db

import (
	"context"
	"fmt"
	"net/http"

	migrate "github.com/rubenv/sql-migrate"

	"github.com/impactsmiles/smiles-wallet/internal/db/migrations"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

func Migrate(ctx context.Context, databaseURL string, direction migrate.MigrationDirection, count int) (int, error) {
	dbConnectionPool, err := OpenDBConnectionPool(ctx, databaseURL)
	if err != nil {
		return 0, fmt.Errorf("connecting to the database: %w", err)
	}
	defer utils.DeferredClose(ctx, dbConnectionPool, "closing dbConnectionPool in the Migrate function")

	m := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrations.FS)}

	appliedMigrationsCount, err := migrate.ExecMaxContext(ctx, dbConnectionPool.SqlxDB().DB, "postgres", m, direction, count)
	if err != nil {
		return appliedMigrationsCount, fmt.Errorf("applying migrations: %w", err)
	}
	return appliedMigrationsCount, nil
}
