package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/txnbuild"
	"github.com/stellar/stellar-rpc/protocol"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/signing"
)

// txSigner adds one signature to tx and returns the signed copy.
type txSigner func(ctx context.Context, tx *txnbuild.Transaction) (*txnbuild.Transaction, error)

func platformSigner(client signing.SignatureClient, account string) txSigner {
	return func(ctx context.Context, tx *txnbuild.Transaction) (*txnbuild.Transaction, error) {
		signedTx, err := client.SignStellarTransaction(ctx, tx, account)
		if err != nil {
			return nil, fmt.Errorf("signing transaction with %s: %w", account, err)
		}
		return signedTx, nil
	}
}

func keypairSigner(kp *keypair.Full, networkPassphrase string) txSigner {
	return func(_ context.Context, tx *txnbuild.Transaction) (*txnbuild.Transaction, error) {
		signedTx, err := tx.Sign(networkPassphrase, kp)
		if err != nil {
			return nil, fmt.Errorf("signing transaction with %s: %w", kp.Address(), err)
		}
		return signedTx, nil
	}
}

type txRequest struct {
	// label names the operation in logs.
	label      string
	source     string
	operations []txnbuild.Operation
	memo       txnbuild.Memo
	signers    []txSigner
}

// submit builds, signs and submits one transaction and waits for its receipt. The source account stays locked
// until the receipt resolves, since the next transaction from it needs the next sequence number.
func (c *stellarClient) submit(ctx context.Context, req txRequest) (string, error) {
	unlock, err := c.sourceLocks.Lock(ctx, req.source)
	if err != nil {
		return "", fmt.Errorf("%w: %w", entities.ErrLedgerUnavailable, err)
	}
	defer unlock()

	sequence, err := readWithRetry(ctx, c, func(ctx context.Context) (int64, error) {
		return c.rpc.GetAccountLedgerSequence(ctx, req.source)
	})
	if err != nil {
		return "", fmt.Errorf("getting sequence number of %s: %w", req.source, err)
	}

	sourceAccount := txnbuild.NewSimpleAccount(req.source, sequence)
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &sourceAccount,
		IncrementSequenceNum: true,
		Operations:           req.operations,
		Memo:                 req.memo,
		BaseFee:              c.baseFee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(int64(c.txTimeout.Seconds()))},
	})
	if err != nil {
		return "", fmt.Errorf("building %s transaction: %w", req.label, err)
	}

	for _, sign := range req.signers {
		if tx, err = sign(ctx, tx); err != nil {
			return "", fmt.Errorf("signing %s transaction: %w", req.label, err)
		}
	}

	hash, err := tx.HashHex(c.networkPassphrase)
	if err != nil {
		return "", fmt.Errorf("hashing %s transaction: %w", req.label, err)
	}
	envelope, err := tx.Base64()
	if err != nil {
		return "", fmt.Errorf("encoding %s transaction: %w", req.label, err)
	}

	return hash, c.sendAndAwait(ctx, req.label, hash, envelope)
}

// sendAndAwait submits a signed envelope and waits for its receipt. The wait outlives caller cancellation and is
// bounded by receiptTimeout. Only the same envelope is ever resent, and never once the hash is known to the ledger.
func (c *stellarClient) sendAndAwait(ctx context.Context, label, hash, envelope string) error {
	receiptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.receiptTimeout)
	defer cancel()

	logger := log.Ctx(ctx).WithField("tx_hash", hash).WithField("operation", label)

	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			if attempt > 1 && c.knownToLedger(receiptCtx, logger, hash) {
				return nil
			}

			result, sendErr := c.rpc.SendTransaction(receiptCtx, envelope)
			if sendErr != nil {
				return sendErr
			}

			switch result.Status {
			case entities.RPCSendStatusPending, entities.RPCSendStatusDuplicate:
				return nil
			case entities.RPCSendStatusTryAgainLater:
				return errTryAgainLater
			case entities.RPCSendStatusError:
				rejected := &ReceiptError{TxHash: hash, Status: result.Status, ResultCodes: resultCodes(result.ErrorResultXDR)}
				if attempt == 1 {
					return retry.Unrecoverable(rejected)
				}
				// An earlier send of this envelope may have consumed the sequence number.
				if c.knownToLedger(receiptCtx, logger, hash) {
					return nil
				}
				return retry.Unrecoverable(fmt.Errorf("resend rejected after an earlier send of the same envelope: %s", rejected.Error()))
			default:
				return retry.Unrecoverable(fmt.Errorf("unexpected sendTransaction status %q", result.Status))
			}
		},
		retry.Context(receiptCtx),
		retry.Attempts(c.submitAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		var receiptErr *ReceiptError
		if errors.As(err, &receiptErr) {
			logger.WithField("status", receiptErr.Status).Errorf("transaction rejected: %v", receiptErr)
			return receiptErr
		}
		return fmt.Errorf("%w: submitting transaction %s: %w", entities.ErrLedgerUnavailable, hash, err)
	}

	return c.awaitReceipt(receiptCtx, logger, hash)
}

// knownToLedger reports whether the ledger already holds a result for hash. A failed lookup counts as unknown.
func (c *stellarClient) knownToLedger(ctx context.Context, logger *log.Entry, hash string) bool {
	landed, err := c.rpc.GetTransaction(ctx, hash)
	if err != nil || landed.Status == protocol.TransactionStatusNotFound {
		return false
	}
	logger.Infof("transaction already known to the ledger with status %s, not resending", landed.Status)
	return true
}

func (c *stellarClient) awaitReceipt(ctx context.Context, logger *log.Entry, hash string) error {
	ticker := time.NewTicker(c.receiptPollInterval)
	defer ticker.Stop()

	for {
		result, err := c.rpc.GetTransaction(ctx, hash)
		if err != nil {
			logger.Debugf("polling receipt: %v", err)
		} else {
			switch result.Status {
			case protocol.TransactionStatusSuccess:
				return nil
			case protocol.TransactionStatusFailed:
				receiptErr := &ReceiptError{TxHash: hash, Status: result.Status, ResultCodes: resultCodes(result.ResultXDR)}
				logger.WithField("status", receiptErr.Status).Errorf("transaction failed: %v", receiptErr)
				return receiptErr
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: no receipt for transaction %s before the deadline", entities.ErrLedgerUnavailable, hash)
		case <-ticker.C:
		}
	}
}

// readWithRetry runs a ledger read with bounded backoff. A missing account is a definite answer and is not retried.
func readWithRetry[T any](ctx context.Context, c *stellarClient, read func(ctx context.Context) (T, error)) (T, error) {
	result, err := retry.DoWithData(
		func() (T, error) {
			return read(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(c.readAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrAccountNotFound)
		}),
	)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return result, err
		}
		return result, fmt.Errorf("%w: %w", entities.ErrLedgerUnavailable, err)
	}
	return result, nil
}
