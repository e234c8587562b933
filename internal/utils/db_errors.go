package utils

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// GetDBErrorType categorizes database errors into types for metrics
func GetDBErrorType(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return "no_rows"
	}
	if errors.Is(err, pgx.ErrTxClosed) {
		return "transaction_done"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return "unique_violation"
		case "23503":
			return "foreign_key_violation"
		case "23502":
			return "not_null_violation"
		case "23514":
			return "check_violation"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		case "08000", "08003", "08006":
			return "connection_error"
		default:
			return "postgres_error"
		}
	}

	if errors.Is(err, context.Canceled) {
		return "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "context_deadline_exceeded"
	}

	return "unknown"
}

// IsUniqueViolation reports whether err is a Postgres unique constraint violation, optionally on a given constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraintName == "" || pgErr.ConstraintName == constraintName
}
