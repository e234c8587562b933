package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/impactsmiles/smiles-wallet/internal/db"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

const tokenOperationsTable = "token_operations"

type OperationKind string

const (
	OperationMintTo     OperationKind = "mint_to"
	OperationTransferTo OperationKind = "transfer_to"
	OperationBurnFrom   OperationKind = "burn_from"
)

type OperationStatus string

const (
	OperationSucceeded  OperationStatus = "succeeded"
	OperationFailed     OperationStatus = "failed"
	OperationStranded   OperationStatus = "stranded"
	OperationReconciled OperationStatus = "reconciled"
	// OperationUnconfirmed marks a mint that was submitted but whose receipt never arrived.
	OperationUnconfirmed OperationStatus = "unconfirmed"
)

// TokenOperation is a journal entry for one wallet mutation. Stranded entries hold minted tokens that never
// reached the owner; unconfirmed entries may or may not have minted anything.
type TokenOperation struct {
	ID             string             `db:"id"`
	OwnerKind      entities.OwnerKind `db:"owner_kind"`
	OwnerID        string             `db:"owner_id"`
	AccountID      string             `db:"account_id"`
	Operation      OperationKind      `db:"operation"`
	Amount         int64              `db:"amount"`
	Status         OperationStatus    `db:"status"`
	MintTxHash     *string            `db:"mint_tx_hash"`
	TransferTxHash *string            `db:"transfer_tx_hash"`
	ErrorKind      *string            `db:"error_kind"`
	CreatedAt      time.Time          `db:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at"`
}

// Resolution is the state a claimed operation moves to. TransferTxHash is the delivering transfer, if any.
type Resolution struct {
	Status         OperationStatus
	TransferTxHash string
}

// ResolveFunc settles a claimed operation.
type ResolveFunc func(ctx context.Context, op *TokenOperation) (Resolution, error)

type Journal interface {
	Record(ctx context.Context, op *TokenOperation) error
	ListByStatus(ctx context.Context, status OperationStatus, limit int) ([]*TokenOperation, error)
	// Resolve locks an operation that is still in status from, runs resolve and stores the resolution when resolve
	// succeeds. It reports false when the operation left that status or another process holds it.
	Resolve(ctx context.Context, id string, from OperationStatus, resolve ResolveFunc) (bool, error)
}

type TokenOperationModel struct {
	DB             db.ConnectionPool
	MetricsService metrics.MetricsService
}

var _ Journal = (*TokenOperationModel)(nil)

func NewTokenOperationModel(dbConnectionPool db.ConnectionPool, metricsService metrics.MetricsService) *TokenOperationModel {
	return &TokenOperationModel{DB: dbConnectionPool, MetricsService: metricsService}
}

func (m *TokenOperationModel) observe(queryType string, start time.Time, err error) {
	m.MetricsService.ObserveDBQueryDuration(queryType, tokenOperationsTable, time.Since(start).Seconds())
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		m.MetricsService.IncDBQueryError(queryType, tokenOperationsTable, utils.GetDBErrorType(err))
		return
	}
	m.MetricsService.IncDBQuery(queryType, tokenOperationsTable)
}

// Record appends an entry, assigning its id when empty.
func (m *TokenOperationModel) Record(ctx context.Context, op *TokenOperation) error {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO token_operations (id, owner_kind, owner_id, account_id, operation, amount, status, mint_tx_hash, transfer_tx_hash, error_kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	start := time.Now()
	err := m.DB.Pool().QueryRow(ctx, query,
		op.ID, op.OwnerKind, op.OwnerID, op.AccountID, op.Operation, op.Amount, op.Status,
		op.MintTxHash, op.TransferTxHash, op.ErrorKind,
	).Scan(&op.CreatedAt, &op.UpdatedAt)
	m.observe("Record", start, err)
	if err != nil {
		return fmt.Errorf("recording %s operation for %s %s: %w", op.Operation, op.OwnerKind, op.OwnerID, err)
	}
	return nil
}

// ListByStatus returns the oldest entries in status first.
func (m *TokenOperationModel) ListByStatus(ctx context.Context, status OperationStatus, limit int) ([]*TokenOperation, error) {
	const query = `
		SELECT * FROM token_operations
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	start := time.Now()
	ops, err := db.QueryAll[TokenOperation](ctx, m.DB.Pool(), query, status, limit)
	m.observe("ListByStatus", start, err)
	if err != nil {
		return nil, fmt.Errorf("listing %s token operations: %w", status, err)
	}
	return ops, nil
}

func (m *TokenOperationModel) Resolve(ctx context.Context, id string, from OperationStatus, resolve ResolveFunc) (bool, error) {
	return db.RunInPgxTransactionWithResult(ctx, m.DB, func(pgxTx pgx.Tx) (bool, error) {
		const claimQuery = `
			SELECT * FROM token_operations
			WHERE id = $1 AND status = $2
			FOR UPDATE SKIP LOCKED
		`
		start := time.Now()
		op, err := db.QueryOne[TokenOperation](ctx, pgxTx, claimQuery, id, from)
		m.observe("Claim", start, err)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("claiming %s operation %s: %w", from, id, err)
		}

		resolution, err := resolve(ctx, op)
		if err != nil {
			return false, fmt.Errorf("resolving %s operation %s: %w", from, id, err)
		}

		var transferTxHash *string
		if resolution.TransferTxHash != "" {
			transferTxHash = utils.PointOf(resolution.TransferTxHash)
		}
		errorKind := op.ErrorKind
		if resolution.Status == OperationReconciled {
			errorKind = nil
		}

		const updateQuery = `
			UPDATE token_operations
			SET status = $2, transfer_tx_hash = COALESCE($3, transfer_tx_hash), error_kind = $4, updated_at = NOW()
			WHERE id = $1
		`
		start = time.Now()
		_, err = pgxTx.Exec(ctx, updateQuery, id, resolution.Status, transferTxHash, errorKind)
		m.observe("MarkResolved", start, err)
		if err != nil {
			return false, fmt.Errorf("marking operation %s %s: %w", id, resolution.Status, err)
		}
		return true, nil
	})
}
