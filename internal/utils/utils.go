package utils

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/stellar/go-stellar-sdk/strkey"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/xdr"
)

// IsEmpty checks if a value is empty.
func IsEmpty[T any](v T) bool {
	return reflect.ValueOf(&v).Elem().IsZero()
}

// PointOf returns a pointer to the value
func PointOf[T any](value T) *T {
	return &value
}

func accountIDFromAddress(address string) (xdr.AccountId, error) {
	decoded, err := strkey.Decode(strkey.VersionByteAccountID, address)
	if err != nil {
		return xdr.AccountId{}, fmt.Errorf("decoding address %q: %w", address, err)
	}
	var key xdr.Uint256
	copy(key[:], decoded)
	return xdr.AccountId(xdr.PublicKey{
		Type:    xdr.PublicKeyTypePublicKeyTypeEd25519,
		Ed25519: &key,
	}), nil
}

// GetAccountLedgerKey creates a base64-encoded XDR ledger key for an account entry.
func GetAccountLedgerKey(address string) (string, error) {
	accountID, err := accountIDFromAddress(address)
	if err != nil {
		return "", err
	}
	keyXdr, err := xdr.LedgerKey{
		Type:    xdr.LedgerEntryTypeAccount,
		Account: &xdr.LedgerKeyAccount{AccountId: accountID},
	}.MarshalBinaryBase64()
	if err != nil {
		return "", fmt.Errorf("marshalling ledger key: %w", err)
	}
	return keyXdr, nil
}

// GetTrustlineLedgerKey creates a base64-encoded XDR ledger key for a trustline.
func GetTrustlineLedgerKey(accountAddress, assetCode, assetIssuer string) (string, error) {
	accountID, err := accountIDFromAddress(accountAddress)
	if err != nil {
		return "", err
	}

	asset, err := xdr.NewCreditAsset(assetCode, assetIssuer)
	if err != nil {
		return "", fmt.Errorf("creating credit asset: %w", err)
	}

	ledgerKey := &xdr.LedgerKey{}
	if err = ledgerKey.SetTrustline(accountID, asset.ToTrustLineAsset()); err != nil {
		return "", fmt.Errorf("setting trustline ledger key: %w", err)
	}

	keyXdr, err := ledgerKey.MarshalBinaryBase64()
	if err != nil {
		return "", fmt.Errorf("marshalling ledger key: %w", err)
	}
	return keyXdr, nil
}

// DeferredClose is a function that closes an `io.Closer` resource and logs an error if it fails.
func DeferredClose(ctx context.Context, closer io.Closer, errMsg string) {
	if err := closer.Close(); err != nil {
		if errMsg == "" {
			errMsg = "closing resource"
		}
		log.Ctx(ctx).Errorf("%s: %v", errMsg, err)
	}
}
