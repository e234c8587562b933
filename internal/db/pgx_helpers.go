package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// QueryOne executes a query that returns exactly one row and scans it into a struct of type T.
// Uses pgx.RowToAddrOfStructByNameLax which reads `db` struct tags and tolerates missing columns.
func QueryOne[T any](ctx context.Context, q Querier, query string, args ...any) (*T, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying row: %w", err)
	}
	result, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[T])
	if err != nil {
		return nil, fmt.Errorf("collecting row: %w", err)
	}
	return result, nil
}

// QueryAll executes a query that returns multiple rows and scans them into structs of type T.
func QueryAll[T any](ctx context.Context, q Querier, query string, args ...any) ([]*T, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	result, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[T])
	if err != nil {
		return nil, fmt.Errorf("collecting rows: %w", err)
	}
	return result, nil
}
