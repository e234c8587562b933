// Package wallet custodies owner ledger accounts and moves the economy token into and out of them.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/keyvault"
	"github.com/impactsmiles/smiles-wallet/internal/ledger"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

const (
	pathPrimary  = "primary"
	pathFallback = "fallback"

	outcomeSucceeded   = "succeeded"
	outcomeFailed      = "failed"
	outcomeStranded    = "stranded"
	outcomeUnconfirmed = "unconfirmed"
)

var DefaultInitialFunding = decimal.NewFromInt(2)

// Manager runs wallet operations for one kind of owner.
type Manager interface {
	OwnerKind() entities.OwnerKind
	CreateWallet(ctx context.Context, ownerID string) (*entities.Wallet, error)
	GetWallet(ctx context.Context, ownerID string) (*entities.Wallet, error)
	GetOrCreateWallet(ctx context.Context, ownerID string) (*entities.Wallet, error)
	DeactivateWallet(ctx context.Context, ownerID string) error
	GetLiveBalance(ctx context.Context, ownerID string) (entities.Balance, error)
	AssociateToken(ctx context.Context, ownerID string, tokenID entities.Asset) (bool, error)
	MintTo(ctx context.Context, ownerID string, amount int64) (entities.TokenOperationResult, error)
	TransferTo(ctx context.Context, params TransferToParams) (entities.TokenOperationResult, error)
	BurnFrom(ctx context.Context, ownerID string, amount int64) (entities.TokenOperationResult, error)
}

// TransferToParams pays Amount from Source into the wallet of OwnerID, an owner of the manager's kind.
type TransferToParams struct {
	OwnerID string
	Amount  int64
	Source  *entities.Wallet
}

type ManagerOptions struct {
	OwnerKind        entities.OwnerKind
	Store            Store
	Journal          Journal
	KeyVault         keyvault.KeyVault
	Ledger           ledger.Client
	AssociationCache AssociationCache
	AppTracker       apptracker.AppTracker
	MetricsService   metrics.MetricsService
	InitialFunding   decimal.Decimal
}

func (o *ManagerOptions) Validate() error {
	if !o.OwnerKind.IsValid() {
		return fmt.Errorf("invalid owner kind %q", o.OwnerKind)
	}
	if o.Store == nil {
		return fmt.Errorf("store cannot be nil")
	}
	if o.Journal == nil {
		return fmt.Errorf("journal cannot be nil")
	}
	if o.KeyVault == nil {
		return fmt.Errorf("key vault cannot be nil")
	}
	if o.Ledger == nil {
		return fmt.Errorf("ledger client cannot be nil")
	}
	if o.AppTracker == nil {
		return fmt.Errorf("app tracker cannot be nil")
	}
	if o.MetricsService == nil {
		return fmt.Errorf("metrics service cannot be nil")
	}
	if o.InitialFunding.IsNegative() {
		return fmt.Errorf("initial funding cannot be negative")
	}
	return nil
}

type manager struct {
	ownerKind      entities.OwnerKind
	store          Store
	journal        Journal
	keyVault       keyvault.KeyVault
	ledger         ledger.Client
	cache          AssociationCache
	appTracker     apptracker.AppTracker
	metricsService metrics.MetricsService
	initialFunding decimal.Decimal
	creationLocks  *utils.KeyedMutex
}

var _ Manager = (*manager)(nil)

func NewManager(opts ManagerOptions) (*manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: validating wallet manager options: %w", entities.ErrConfiguration, err)
	}

	cache := opts.AssociationCache
	if cache == nil {
		cache = NoopAssociationCache{}
	}
	initialFunding := opts.InitialFunding
	if initialFunding.IsZero() {
		initialFunding = DefaultInitialFunding
	}

	return &manager{
		ownerKind:      opts.OwnerKind,
		store:          opts.Store,
		journal:        opts.Journal,
		keyVault:       opts.KeyVault,
		ledger:         opts.Ledger,
		cache:          cache,
		appTracker:     opts.AppTracker,
		metricsService: opts.MetricsService,
		initialFunding: initialFunding,
		creationLocks:  utils.NewKeyedMutex(),
	}, nil
}

func (m *manager) OwnerKind() entities.OwnerKind {
	return m.ownerKind
}

func (m *manager) logger(ctx context.Context, ownerID string) *log.Entry {
	return log.Ctx(ctx).WithField("owner_kind", string(m.ownerKind)).WithField("owner_id", ownerID)
}

// CreateWallet funds and stores a new wallet for ownerID, or returns the active one. Association is attempted but
// its failure does not fail the creation.
func (m *manager) CreateWallet(ctx context.Context, ownerID string) (*entities.Wallet, error) {
	unlock, err := m.creationLocks.Lock(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("creating wallet for %s %s: %w", m.ownerKind, ownerID, err)
	}
	defer unlock()

	existing, err := m.store.GetActive(ctx, m.ownerKind, ownerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, fmt.Errorf("looking up wallet of %s %s: %w", m.ownerKind, ownerID, err)
	}

	logger := m.logger(ctx, ownerID)

	kp, err := m.keyVault.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generating key pair: %w", err)
	}
	encryptedPrivateKey, err := m.keyVault.Encrypt(kp.Seed(), kp.Address())
	if err != nil {
		return nil, fmt.Errorf("encrypting private key: %w", err)
	}

	accountID, err := m.ledger.CreateAccount(ctx, ledger.CreateAccountParams{PublicKey: kp.Address(), InitialFunding: m.initialFunding})
	if err != nil {
		return nil, fmt.Errorf("creating ledger account for %s %s: %w", m.ownerKind, ownerID, err)
	}

	wallet := &entities.Wallet{
		ID:                  uuid.NewString(),
		OwnerID:             ownerID,
		OwnerKind:           m.ownerKind,
		AccountID:           accountID,
		PublicKey:           kp.Address(),
		EncryptedPrivateKey: encryptedPrivateKey,
		NativeBalance:       m.initialFunding,
		IsActive:            true,
	}
	if err = m.store.Insert(ctx, wallet); err != nil {
		if errors.Is(err, ErrActiveWalletExists) {
			logger.Warnf("another process created a wallet first, ledger account %s is left unused", accountID)
			return m.store.GetActive(ctx, m.ownerKind, ownerID)
		}
		m.appTracker.CaptureExceptionWithTags(err, map[string]string{"account_id": accountID, "owner_id": ownerID})
		return nil, fmt.Errorf("persisting wallet with account %s: %w", accountID, err)
	}
	m.metricsService.IncWalletsCreated(string(m.ownerKind))
	logger.Infof("created wallet %s with account %s", wallet.ID, accountID)

	if _, err = m.associate(ctx, wallet); err != nil {
		logger.Warnf("wallet created without token association: %v", err)
	}
	return wallet, nil
}

func (m *manager) GetWallet(ctx context.Context, ownerID string) (*entities.Wallet, error) {
	wallet, err := m.store.GetActive(ctx, m.ownerKind, ownerID)
	if err != nil {
		return nil, fmt.Errorf("getting wallet of %s %s: %w", m.ownerKind, ownerID, err)
	}
	return wallet, nil
}

func (m *manager) GetOrCreateWallet(ctx context.Context, ownerID string) (*entities.Wallet, error) {
	wallet, err := m.store.GetActive(ctx, m.ownerKind, ownerID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, fmt.Errorf("getting wallet of %s %s: %w", m.ownerKind, ownerID, err)
	}
	return m.CreateWallet(ctx, ownerID)
}

// DeactivateWallet retires the owner's active wallet. The next GetOrCreateWallet provisions a new account; tokens
// left on the retired one stay there.
func (m *manager) DeactivateWallet(ctx context.Context, ownerID string) error {
	if err := m.store.Deactivate(ctx, m.ownerKind, ownerID); err != nil {
		return fmt.Errorf("deactivating wallet of %s %s: %w", m.ownerKind, ownerID, err)
	}
	m.logger(ctx, ownerID).Info("wallet deactivated")
	return nil
}

// GetLiveBalance reads both balances from the ledger and refreshes the cached columns when it can.
func (m *manager) GetLiveBalance(ctx context.Context, ownerID string) (entities.Balance, error) {
	wallet, err := m.GetWallet(ctx, ownerID)
	if err != nil {
		return entities.Balance{}, err
	}

	token, err := m.ledger.GetTokenBalance(ctx, wallet.AccountID)
	if err != nil {
		return entities.Balance{}, fmt.Errorf("getting token balance of %s: %w", wallet.AccountID, err)
	}
	native, err := m.ledger.GetNativeBalance(ctx, wallet.AccountID)
	if err != nil {
		return entities.Balance{}, fmt.Errorf("getting native balance of %s: %w", wallet.AccountID, err)
	}

	if err = m.store.UpdateBalances(ctx, wallet.ID, native, token); err != nil {
		m.logger(ctx, ownerID).Warnf("refreshing cached balances: %v", err)
	}
	return entities.Balance{Native: native, Token: token}, nil
}

func (m *manager) AssociateToken(ctx context.Context, ownerID string, tokenID entities.Asset) (bool, error) {
	if tokenID != m.ledger.TokenID() {
		return false, fmt.Errorf("%w: token %s is not the economy token", entities.ErrConfiguration, tokenID.String())
	}
	wallet, err := m.GetWallet(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return m.associate(ctx, wallet)
}

// associate makes sure the wallet holds the token trustline. Nothing is submitted when the cache or the ledger
// already confirm it.
func (m *manager) associate(ctx context.Context, wallet *entities.Wallet) (bool, error) {
	token := m.ledger.TokenID()
	logger := m.logger(ctx, wallet.OwnerID)

	known, err := m.cache.IsKnownAssociated(ctx, token.String(), wallet.AccountID)
	if err != nil {
		logger.Debugf("association cache unavailable: %v", err)
	}
	if known {
		return true, nil
	}

	associated, err := m.ledger.IsAssociated(ctx, wallet.AccountID)
	if err != nil {
		return false, fmt.Errorf("%w: checking association of %s: %w", entities.ErrAssociationFailed, wallet.AccountID, err)
	}

	if !associated {
		signer, decryptErr := m.keyVault.Decrypt(wallet.EncryptedPrivateKey, wallet.PublicKey)
		if decryptErr != nil {
			return false, fmt.Errorf("%w: %w", entities.ErrAssociationFailed, decryptErr)
		}
		if _, err = m.ledger.AssociateToken(ctx, ledger.AssociateTokenParams{AccountID: wallet.AccountID, TokenID: token, Signer: signer}); err != nil {
			return false, fmt.Errorf("%w: %w", entities.ErrAssociationFailed, err)
		}
		logger.Infof("associated account %s with %s", wallet.AccountID, token.String())
	}

	if err = m.cache.MarkAssociated(ctx, token.String(), wallet.AccountID); err != nil {
		logger.Debugf("caching association: %v", err)
	}
	return true, nil
}

// MintTo issues amount new tokens and delivers them to the owner. When association fails the delivery is still
// attempted as an operator-signed transfer. A transfer that fails after a successful mint leaves the tokens with the
// operator and is journaled as stranded for the reconciliation sweep. A mint submitted without a receipt is journaled
// as unconfirmed, so the sweep can look it up before anyone mints again.
func (m *manager) MintTo(ctx context.Context, ownerID string, amount int64) (entities.TokenOperationResult, error) {
	wallet, err := m.GetOrCreateWallet(ctx, ownerID)
	if err != nil {
		return entities.FailedOperation(entities.KindOf(err), ""), err
	}
	logger := m.logger(ctx, ownerID).WithField("amount", amount)

	path := pathPrimary
	if _, err = m.associate(ctx, wallet); err != nil {
		path = pathFallback
		logger.WithField("path", path).Warnf("association failed, delivering with an operator-signed transfer: %v", err)
		m.metricsService.IncFallbackDelivery(string(m.ownerKind))
	}

	mintResult, err := m.ledger.Mint(ctx, amount)
	if err != nil {
		status := OperationFailed
		if errors.Is(err, entities.ErrLedgerUnavailable) && mintResult.TransactionID != "" {
			status = OperationUnconfirmed
			logger.WithField("mint_tx_hash", mintResult.TransactionID).Warnf("mint outcome unknown, left for reconciliation: %v", err)
		}
		m.recordOperation(ctx, wallet, OperationMintTo, amount, status, err, mintResult.TransactionID, "")
		return mintResult, fmt.Errorf("minting %d for %s %s: %w", amount, m.ownerKind, ownerID, err)
	}

	transferResult, err := m.ledger.Transfer(ctx, ledger.TransferParams{
		Amount: amount,
		From:   m.ledger.OperatorAccountID(),
		To:     wallet.AccountID,
	})
	if err != nil {
		strandedErr := fmt.Errorf("%w: %d tokens minted in %s did not reach %s: %w", entities.ErrTransferAfterMintFailed, amount, mintResult.TransactionID, wallet.AccountID, err)
		logger.WithField("path", path).Errorf("%v", strandedErr)
		m.recordOperation(ctx, wallet, OperationMintTo, amount, OperationStranded, err, mintResult.TransactionID, transferResult.TransactionID)
		m.appTracker.CaptureExceptionWithTags(strandedErr, map[string]string{
			"owner_kind":   string(m.ownerKind),
			"owner_id":     ownerID,
			"account_id":   wallet.AccountID,
			"mint_tx_hash": mintResult.TransactionID,
			"path":         path,
		})
		return entities.FailedOperation(entities.ErrorKindTransferAfterMintFailed, mintResult.TransactionID), strandedErr
	}

	m.recordOperation(ctx, wallet, OperationMintTo, amount, OperationSucceeded, nil, mintResult.TransactionID, transferResult.TransactionID)
	logger.WithField("path", path).Infof("minted and delivered in %s", transferResult.TransactionID)
	return transferResult, nil
}

// TransferTo pays from params.Source into the recipient's wallet, which must hold the token trustline first.
func (m *manager) TransferTo(ctx context.Context, params TransferToParams) (entities.TokenOperationResult, error) {
	if params.Source == nil {
		return entities.FailedOperation(entities.ErrorKindConfiguration, ""), fmt.Errorf("%w: transfer source wallet is required", entities.ErrConfiguration)
	}

	recipient, err := m.GetOrCreateWallet(ctx, params.OwnerID)
	if err != nil {
		return entities.FailedOperation(entities.KindOf(err), ""), err
	}

	if _, err = m.associate(ctx, recipient); err != nil {
		m.recordOperation(ctx, recipient, OperationTransferTo, params.Amount, OperationFailed, err, "", "")
		return entities.FailedOperation(entities.ErrorKindAssociationFailed, ""), fmt.Errorf("transferring to %s %s: %w", m.ownerKind, params.OwnerID, err)
	}

	signer, err := m.keyVault.Decrypt(params.Source.EncryptedPrivateKey, params.Source.PublicKey)
	if err != nil {
		m.recordOperation(ctx, recipient, OperationTransferTo, params.Amount, OperationFailed, err, "", "")
		return entities.FailedOperation(entities.ErrorKindDecryptionFailed, ""), fmt.Errorf("decrypting key of source wallet %s: %w", params.Source.ID, err)
	}

	result, err := m.ledger.Transfer(ctx, ledger.TransferParams{
		Amount: params.Amount,
		From:   params.Source.AccountID,
		To:     recipient.AccountID,
		Signer: signer,
	})
	if err != nil {
		m.recordOperation(ctx, recipient, OperationTransferTo, params.Amount, OperationFailed, err, "", result.TransactionID)
		return result, fmt.Errorf("transferring %d from %s to %s: %w", params.Amount, params.Source.AccountID, recipient.AccountID, err)
	}

	m.recordOperation(ctx, recipient, OperationTransferTo, params.Amount, OperationSucceeded, nil, "", result.TransactionID)
	return result, nil
}

// BurnFrom destroys amount tokens held by the owner. The owner key signs the payment, the operator pays the fee.
func (m *manager) BurnFrom(ctx context.Context, ownerID string, amount int64) (entities.TokenOperationResult, error) {
	wallet, err := m.GetWallet(ctx, ownerID)
	if err != nil {
		return entities.FailedOperation(entities.KindOf(err), ""), err
	}

	signer, err := m.keyVault.Decrypt(wallet.EncryptedPrivateKey, wallet.PublicKey)
	if err != nil {
		m.recordOperation(ctx, wallet, OperationBurnFrom, amount, OperationFailed, err, "", "")
		return entities.FailedOperation(entities.ErrorKindDecryptionFailed, ""), fmt.Errorf("decrypting key of wallet %s: %w", wallet.ID, err)
	}

	result, err := m.ledger.Burn(ctx, ledger.BurnParams{Amount: amount, From: wallet.AccountID, Signer: signer})
	if err != nil {
		m.recordOperation(ctx, wallet, OperationBurnFrom, amount, OperationFailed, err, "", result.TransactionID)
		return result, fmt.Errorf("burning %d from %s %s: %w", amount, m.ownerKind, ownerID, err)
	}

	m.recordOperation(ctx, wallet, OperationBurnFrom, amount, OperationSucceeded, nil, "", result.TransactionID)
	return result, nil
}

// recordOperation journals an outcome and counts it. A journal failure is logged, and reported when the entry was
// the only trace of stranded tokens.
func (m *manager) recordOperation(ctx context.Context, wallet *entities.Wallet, kind OperationKind, amount int64, status OperationStatus, opErr error, mintTxHash, transferTxHash string) {
	outcome := outcomeSucceeded
	switch status {
	case OperationFailed:
		outcome = outcomeFailed
	case OperationStranded:
		outcome = outcomeStranded
	case OperationUnconfirmed:
		outcome = outcomeUnconfirmed
	}
	m.metricsService.IncTokenOperation(string(kind), outcome)

	op := &TokenOperation{
		OwnerKind: m.ownerKind,
		OwnerID:   wallet.OwnerID,
		AccountID: wallet.AccountID,
		Operation: kind,
		Amount:    amount,
		Status:    status,
	}
	if mintTxHash != "" {
		op.MintTxHash = utils.PointOf(mintTxHash)
	}
	if transferTxHash != "" {
		op.TransferTxHash = utils.PointOf(transferTxHash)
	}
	if opErr != nil {
		op.ErrorKind = utils.PointOf(string(entities.KindOf(opErr)))
	}

	if err := m.journal.Record(context.WithoutCancel(ctx), op); err != nil {
		m.logger(ctx, wallet.OwnerID).Errorf("journaling %s %s operation: %v", status, kind, err)
		if status == OperationStranded || status == OperationUnconfirmed {
			m.appTracker.CaptureExceptionWithTags(err, map[string]string{"account_id": wallet.AccountID, "mint_tx_hash": mintTxHash})
		}
	}
}
