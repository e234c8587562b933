package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/ledger"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
)

// DefaultStrandedMinAge keeps the sweep away from transactions that could still land. It outlasts the
// transaction time bounds.
const DefaultStrandedMinAge = 5 * time.Minute

type SweepResult struct {
	Examined      int `json:"examined"`
	Reconciled    int `json:"reconciled"`
	Failed        int `json:"failed"`
	Skipped       int `json:"skipped"`
	StillStranded int `json:"stillStranded"`
}

// Reconciler settles journal entries that a mint left open: stranded tokens held by the operator after a failed
// transfer, and mints whose receipt never arrived.
type Reconciler struct {
	journal        Journal
	ledger         ledger.Client
	metricsService metrics.MetricsService
	managers       map[entities.OwnerKind]*manager
	MinAge         time.Duration
	now            func() time.Time
}

func NewReconciler(journal Journal, ledgerClient ledger.Client, metricsService metrics.MetricsService, managers ...*manager) (*Reconciler, error) {
	if journal == nil || ledgerClient == nil || metricsService == nil {
		return nil, fmt.Errorf("%w: reconciler needs a journal, a ledger client and a metrics service", entities.ErrConfiguration)
	}

	byKind := make(map[entities.OwnerKind]*manager, len(managers))
	for _, m := range managers {
		byKind[m.ownerKind] = m
	}

	return &Reconciler{
		journal:        journal,
		ledger:         ledgerClient,
		metricsService: metricsService,
		managers:       byKind,
		MinAge:         DefaultStrandedMinAge,
		now:            time.Now,
	}, nil
}

// SweepStranded examines up to limit stranded operations, oldest first. Each one gets a fresh association attempt
// and a new operator transfer, never a new mint. Operations that still fail stay stranded.
func (r *Reconciler) SweepStranded(ctx context.Context, limit int) (SweepResult, error) {
	return r.sweep(ctx, OperationStranded, limit, func(m *manager) ResolveFunc { return m.deliverStranded })
}

// SweepUnconfirmed examines up to limit mints whose receipt never arrived. A mint the ledger applied is delivered
// like a stranded one; a mint it never applied is marked failed. Operations the ledger cannot answer for stay
// unconfirmed.
func (r *Reconciler) SweepUnconfirmed(ctx context.Context, limit int) (SweepResult, error) {
	return r.sweep(ctx, OperationUnconfirmed, limit, func(m *manager) ResolveFunc { return m.resolveUnconfirmed })
}

func (r *Reconciler) sweep(ctx context.Context, status OperationStatus, limit int, resolverOf func(*manager) ResolveFunc) (SweepResult, error) {
	var result SweepResult

	ops, err := r.journal.ListByStatus(ctx, status, limit)
	if err != nil {
		return result, fmt.Errorf("listing %s operations: %w", status, err)
	}

	for _, op := range ops {
		result.Examined++
		logger := log.Ctx(ctx).WithField("operation_id", op.ID).WithField("account_id", op.AccountID).WithField("status", string(status))

		if r.now().Sub(op.UpdatedAt) < r.MinAge {
			result.Skipped++
			continue
		}

		m, ok := r.managers[op.OwnerKind]
		if !ok {
			logger.Warnf("no wallet manager for owner kind %s", op.OwnerKind)
			result.StillStranded++
			continue
		}

		var resolved Resolution
		resolve := resolverOf(m)
		claimed, resolveErr := r.journal.Resolve(ctx, op.ID, status, func(ctx context.Context, op *TokenOperation) (Resolution, error) {
			var err error
			resolved, err = resolve(ctx, op)
			return resolved, err
		})
		switch {
		case resolveErr != nil:
			logger.Warnf("operation is still %s: %v", status, resolveErr)
			r.metricsService.IncTokenOperation("reconcile", outcomeFailed)
			result.StillStranded++
		case !claimed:
			result.Skipped++
		case resolved.Status == OperationFailed:
			logger.Infof("mint never reached the ledger, %d tokens were not issued", op.Amount)
			r.metricsService.IncTokenOperation("reconcile", outcomeFailed)
			result.Failed++
		default:
			logger.Infof("delivered %d stranded tokens", op.Amount)
			r.metricsService.IncTokenOperation("reconcile", outcomeSucceeded)
			result.Reconciled++
		}
	}

	return result, nil
}

// resolveUnconfirmed looks up the mint of an operation whose receipt never arrived. A landed mint is delivered; one
// the ledger never applied fails the operation.
func (m *manager) resolveUnconfirmed(ctx context.Context, op *TokenOperation) (Resolution, error) {
	if op.MintTxHash == nil || *op.MintTxHash == "" {
		return Resolution{Status: OperationFailed}, nil
	}
	landed, err := m.ledger.TransactionSucceeded(ctx, *op.MintTxHash)
	if err != nil {
		return Resolution{}, fmt.Errorf("checking mint %s: %w", *op.MintTxHash, err)
	}
	if !landed {
		return Resolution{Status: OperationFailed}, nil
	}
	return m.deliverStranded(ctx, op)
}

// deliverStranded completes the transfer half of a minted operation.
func (m *manager) deliverStranded(ctx context.Context, op *TokenOperation) (Resolution, error) {
	if op.TransferTxHash != nil && *op.TransferTxHash != "" {
		landed, err := m.ledger.TransactionSucceeded(ctx, *op.TransferTxHash)
		if err != nil {
			return Resolution{}, fmt.Errorf("checking earlier transfer %s: %w", *op.TransferTxHash, err)
		}
		if landed {
			return Resolution{Status: OperationReconciled, TransferTxHash: *op.TransferTxHash}, nil
		}
	}

	wallet, err := m.store.GetByAccountID(ctx, op.AccountID)
	if err != nil {
		return Resolution{}, fmt.Errorf("getting wallet for %s: %w", op.AccountID, err)
	}
	if _, err = m.associate(ctx, wallet); err != nil {
		return Resolution{}, err
	}

	result, err := m.ledger.Transfer(ctx, ledger.TransferParams{
		Amount: op.Amount,
		From:   m.ledger.OperatorAccountID(),
		To:     op.AccountID,
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("transferring minted tokens: %w", err)
	}
	return Resolution{Status: OperationReconciled, TransferTxHash: result.TransactionID}, nil
}
