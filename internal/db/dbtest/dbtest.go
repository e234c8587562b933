package dbtest

import (
	"net/http"
	"testing"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/stellar/go-stellar-sdk/support/db/dbtest"

	"github.com/impactsmiles/smiles-wallet/internal/db/migrations"
)

// Open returns a throwaway Postgres database with every migration applied.
func Open(t *testing.T) *dbtest.DB {
	db := OpenWithoutMigrations(t)
	conn := db.Open()
	defer conn.Close()

	m := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrations.FS)}
	_, err := migrate.ExecMax(conn.DB, "postgres", m, migrate.Up, 0)
	if err != nil {
		t.Fatal(err)
	}

	return db
}

func OpenWithoutMigrations(t *testing.T) *dbtest.DB {
	return dbtest.Postgres(t)
}
