package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stellar/go-stellar-sdk/support/log"
)

// ConnectionPool exposes the same Postgres pool through pgx, for the custody stores, and through sqlx, for the
// application record store and migrations.
type ConnectionPool interface {
	Pool() *pgxpool.Pool
	SqlxDB() *sqlx.DB
	Ping(ctx context.Context) error
	Close() error
}

var _ ConnectionPool = (*ConnectionPoolImplementation)(nil)

type ConnectionPoolImplementation struct {
	pool   *pgxpool.Pool
	sqlxDB *sqlx.DB
}

const (
	MaxDBConnIdleTime       = 10 * time.Second
	MaxOpenDBConns    int32 = 30
)

func OpenDBConnectionPool(ctx context.Context, dataSourceName string) (ConnectionPool, error) {
	config, err := pgxpool.ParseConfig(dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("parsing pgx pool config: %w", err)
	}
	config.MaxConns = MaxOpenDBConns
	config.MaxConnIdleTime = MaxDBConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging pgx pool: %w", err)
	}

	sqlxDB := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")

	return &ConnectionPoolImplementation{pool: pool, sqlxDB: sqlxDB}, nil
}

func (c *ConnectionPoolImplementation) Pool() *pgxpool.Pool {
	return c.pool
}

func (c *ConnectionPoolImplementation) SqlxDB() *sqlx.DB {
	return c.sqlxDB
}

//nolint:wrapcheck // this is a thin layer on top of the pgxpool.Pool.Ping method
func (c *ConnectionPoolImplementation) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *ConnectionPoolImplementation) Close() error {
	err := c.sqlxDB.Close()
	c.pool.Close()
	if err != nil {
		return fmt.Errorf("closing sqlx handle: %w", err)
	}
	return nil
}

// RunInPgxTransaction runs the given atomic function in a pgx transaction, rolling back when it fails.
func RunInPgxTransaction(ctx context.Context, connectionPool ConnectionPool, atomicFunction func(pgxTx pgx.Tx) error) error {
	_, err := RunInPgxTransactionWithResult(ctx, connectionPool, func(pgxTx pgx.Tx) (struct{}, error) {
		return struct{}{}, atomicFunction(pgxTx)
	})
	return err
}

func RunInPgxTransactionWithResult[T any](ctx context.Context, connectionPool ConnectionPool, atomicFunction func(pgxTx pgx.Tx) (T, error)) (result T, err error) {
	pgxTx, err := connectionPool.Pool().Begin(ctx)
	if err != nil {
		return *new(T), fmt.Errorf("beginning pgx transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if errRollBack := pgxTx.Rollback(ctx); errRollBack != nil {
				log.Ctx(ctx).Errorf("Error in pgx transaction rollback: %v", errRollBack)
			}
		}
	}()

	result, err = atomicFunction(pgxTx)
	if err != nil {
		return *new(T), fmt.Errorf("running atomic function in RunInPgxTransactionWithResult: %w", err)
	}

	if err = pgxTx.Commit(ctx); err != nil {
		return *new(T), fmt.Errorf("committing pgx transaction: %w", err)
	}

	return result, nil
}
