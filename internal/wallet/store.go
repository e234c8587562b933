package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/impactsmiles/smiles-wallet/internal/db"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

const (
	walletsTable           = "wallets"
	oneActivePerOwnerIndex = "wallets_one_active_per_owner_idx"
	walletColumns          = "id, owner_id, owner_kind, account_id, public_key, encrypted_private_key, native_balance, token_balance, is_active, created_at, updated_at"
)

var (
	ErrWalletNotFound     = fmt.Errorf("wallet: %w", entities.ErrNotFound)
	ErrActiveWalletExists = errors.New("owner already has an active wallet")
)

// Store persists custodial wallets. At most one wallet per owner is active.
type Store interface {
	Insert(ctx context.Context, wallet *entities.Wallet) error
	GetActive(ctx context.Context, ownerKind entities.OwnerKind, ownerID string) (*entities.Wallet, error)
	GetByAccountID(ctx context.Context, accountID string) (*entities.Wallet, error)
	UpdateBalances(ctx context.Context, walletID string, native decimal.Decimal, token int64) error
	Deactivate(ctx context.Context, ownerKind entities.OwnerKind, ownerID string) error
}

type WalletModel struct {
	DB             db.ConnectionPool
	MetricsService metrics.MetricsService
}

var _ Store = (*WalletModel)(nil)

func NewWalletModel(dbConnectionPool db.ConnectionPool, metricsService metrics.MetricsService) *WalletModel {
	return &WalletModel{DB: dbConnectionPool, MetricsService: metricsService}
}

func (m *WalletModel) observe(queryType string, start time.Time, err error) {
	m.MetricsService.ObserveDBQueryDuration(queryType, walletsTable, time.Since(start).Seconds())
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		m.MetricsService.IncDBQueryError(queryType, walletsTable, utils.GetDBErrorType(err))
		return
	}
	m.MetricsService.IncDBQuery(queryType, walletsTable)
}

// Insert stores a new active wallet, filling in its timestamps. A second active wallet for the same owner is
// rejected with ErrActiveWalletExists.
func (m *WalletModel) Insert(ctx context.Context, wallet *entities.Wallet) error {
	const query = `
		INSERT INTO wallets (id, owner_id, owner_kind, account_id, public_key, encrypted_private_key, native_balance, token_balance, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	start := time.Now()
	err := m.DB.Pool().QueryRow(ctx, query,
		wallet.ID, wallet.OwnerID, wallet.OwnerKind, wallet.AccountID, wallet.PublicKey, wallet.EncryptedPrivateKey,
		wallet.NativeBalance, wallet.TokenBalance, wallet.IsActive,
	).Scan(&wallet.CreatedAt, &wallet.UpdatedAt)
	m.observe("Insert", start, err)
	if err != nil {
		if utils.IsUniqueViolation(err, oneActivePerOwnerIndex) {
			return ErrActiveWalletExists
		}
		return fmt.Errorf("inserting wallet for %s %s: %w", wallet.OwnerKind, wallet.OwnerID, err)
	}
	return nil
}

func (m *WalletModel) GetActive(ctx context.Context, ownerKind entities.OwnerKind, ownerID string) (*entities.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_kind = $1 AND owner_id = $2 AND is_active`
	start := time.Now()
	wallet, err := db.QueryOne[entities.Wallet](ctx, m.DB.Pool(), query, ownerKind, ownerID)
	m.observe("GetActive", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("getting active wallet of %s %s: %w", ownerKind, ownerID, err)
	}
	return wallet, nil
}

func (m *WalletModel) GetByAccountID(ctx context.Context, accountID string) (*entities.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE account_id = $1`
	start := time.Now()
	wallet, err := db.QueryOne[entities.Wallet](ctx, m.DB.Pool(), query, accountID)
	m.observe("GetByAccountID", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("getting wallet for account %s: %w", accountID, err)
	}
	return wallet, nil
}

// UpdateBalances refreshes the cached balance columns.
func (m *WalletModel) UpdateBalances(ctx context.Context, walletID string, native decimal.Decimal, token int64) error {
	const query = `UPDATE wallets SET native_balance = $2, token_balance = $3, updated_at = NOW() WHERE id = $1`
	start := time.Now()
	tag, err := m.DB.Pool().Exec(ctx, query, walletID, native, token)
	m.observe("UpdateBalances", start, err)
	if err != nil {
		return fmt.Errorf("updating balances of wallet %s: %w", walletID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// Deactivate retires the owner's active wallet so that a new one can be created. The row is kept.
func (m *WalletModel) Deactivate(ctx context.Context, ownerKind entities.OwnerKind, ownerID string) error {
	const query = `UPDATE wallets SET is_active = FALSE, updated_at = NOW() WHERE owner_kind = $1 AND owner_id = $2 AND is_active`
	start := time.Now()
	tag, err := m.DB.Pool().Exec(ctx, query, ownerKind, ownerID)
	m.observe("Deactivate", start, err)
	if err != nil {
		return fmt.Errorf("deactivating wallet of %s %s: %w", ownerKind, ownerID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}
