package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
)

func walletFixture(ownerKind entities.OwnerKind, ownerID string) *entities.Wallet {
	kp := keypair.MustRandom()
	return &entities.Wallet{
		ID:                  uuid.NewString(),
		OwnerID:             ownerID,
		OwnerKind:           ownerKind,
		AccountID:           kp.Address(),
		PublicKey:           kp.Address(),
		EncryptedPrivateKey: "sealed",
		NativeBalance:       decimal.NewFromInt(2),
		IsActive:            true,
	}
}

func TestWalletModelInsertAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewWalletModel(openTestPool(t), newDBMetricsMock())

	wallet := walletFixture(entities.OwnerKindUser, "u1")
	require.NoError(t, m.Insert(ctx, wallet))
	assert.False(t, wallet.CreatedAt.IsZero())

	t.Run("get_active", func(t *testing.T) {
		got, err := m.GetActive(ctx, entities.OwnerKindUser, "u1")
		require.NoError(t, err)
		assert.Equal(t, wallet.ID, got.ID)
		assert.Equal(t, wallet.AccountID, got.AccountID)
		assert.Equal(t, "sealed", got.EncryptedPrivateKey)
		assert.True(t, got.NativeBalance.Equal(decimal.NewFromInt(2)))
	})

	t.Run("owner_kinds_are_separate", func(t *testing.T) {
		_, err := m.GetActive(ctx, entities.OwnerKindCommunity, "u1")
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})

	t.Run("get_by_account_id", func(t *testing.T) {
		got, err := m.GetByAccountID(ctx, wallet.AccountID)
		require.NoError(t, err)
		assert.Equal(t, "u1", got.OwnerID)

		_, err = m.GetByAccountID(ctx, keypair.MustRandom().Address())
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})

	t.Run("second_active_wallet_is_rejected", func(t *testing.T) {
		err := m.Insert(ctx, walletFixture(entities.OwnerKindUser, "u1"))
		assert.ErrorIs(t, err, ErrActiveWalletExists)
	})
}

func TestWalletModelDeactivate(t *testing.T) {
	ctx := context.Background()
	m := NewWalletModel(openTestPool(t), newDBMetricsMock())

	first := walletFixture(entities.OwnerKindCommunity, "c1")
	require.NoError(t, m.Insert(ctx, first))
	require.NoError(t, m.Deactivate(ctx, entities.OwnerKindCommunity, "c1"))

	_, err := m.GetActive(ctx, entities.OwnerKindCommunity, "c1")
	assert.ErrorIs(t, err, ErrWalletNotFound)

	second := walletFixture(entities.OwnerKindCommunity, "c1")
	require.NoError(t, m.Insert(ctx, second))
	got, err := m.GetActive(ctx, entities.OwnerKindCommunity, "c1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	retired, err := m.GetByAccountID(ctx, first.AccountID)
	require.NoError(t, err)
	assert.False(t, retired.IsActive)

	assert.ErrorIs(t, m.Deactivate(ctx, entities.OwnerKindCommunity, "nobody"), ErrWalletNotFound)
}

func TestWalletModelUpdateBalances(t *testing.T) {
	ctx := context.Background()
	m := NewWalletModel(openTestPool(t), newDBMetricsMock())

	wallet := walletFixture(entities.OwnerKindUser, "u2")
	require.NoError(t, m.Insert(ctx, wallet))

	native := decimal.RequireFromString("1.9999900")
	require.NoError(t, m.UpdateBalances(ctx, wallet.ID, native, 42))

	got, err := m.GetActive(ctx, entities.OwnerKindUser, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.TokenBalance)
	assert.True(t, native.Equal(got.NativeBalance))

	assert.ErrorIs(t, m.UpdateBalances(ctx, uuid.NewString(), native, 1), ErrWalletNotFound)
}
