// Package signing holds the platform-held Stellar keys: the operator (treasury and fee payer) and the token issuer.
package signing

import (
	"context"
	"errors"

	"github.com/stellar/go-stellar-sdk/txnbuild"
)

var (
	ErrInvalidTransaction         = errors.New("invalid transaction provided")
	ErrInvalidSignatureClientType = errors.New("invalid signature client type")
)

// SignatureClient signs transactions with exactly one platform key. Callers name the account they expect it to hold,
// so a misconfigured key is rejected instead of producing a transaction that the ledger would refuse.
type SignatureClient interface {
	NetworkPassphrase() string
	GetAccountPublicKey(ctx context.Context) (string, error)
	SignStellarTransaction(ctx context.Context, tx *txnbuild.Transaction, stellarAccounts ...string) (*txnbuild.Transaction, error)
}

type SignatureClientType string

const (
	EnvSignatureClientType SignatureClientType = "ENV"
	KMSSignatureClientType SignatureClientType = "KMS"
)

func (t SignatureClientType) IsValid() bool {
	switch t {
	case EnvSignatureClientType, KMSSignatureClientType:
		return true
	default:
		return false
	}
}

// PlatformRole names which platform key a signature client holds.
type PlatformRole string

const (
	OperatorRole PlatformRole = "operator"
	IssuerRole   PlatformRole = "issuer"
)
