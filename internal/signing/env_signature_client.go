package signing

import (
	"context"
	"fmt"

	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/txnbuild"
)

type envSignatureClient struct {
	networkPassphrase string
	accountFull       *keypair.Full
}

var _ SignatureClient = (*envSignatureClient)(nil)

func NewEnvSignatureClient(privateKey string, networkPassphrase string) (*envSignatureClient, error) {
	accountFull, err := keypair.ParseFull(privateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing platform account private key: %w", err)
	}

	return &envSignatureClient{
		networkPassphrase: networkPassphrase,
		accountFull:       accountFull,
	}, nil
}

func (sc *envSignatureClient) NetworkPassphrase() string {
	return sc.networkPassphrase
}

func (sc *envSignatureClient) GetAccountPublicKey(_ context.Context) (string, error) {
	return sc.accountFull.Address(), nil
}

func (sc *envSignatureClient) SignStellarTransaction(_ context.Context, tx *txnbuild.Transaction, stellarAccounts ...string) (*txnbuild.Transaction, error) {
	if tx == nil {
		return nil, ErrInvalidTransaction
	}

	if len(stellarAccounts) == 0 {
		return nil, fmt.Errorf("stellar accounts cannot be empty in %T", sc)
	}

	for _, stellarAccount := range stellarAccounts {
		if stellarAccount != sc.accountFull.Address() {
			return nil, fmt.Errorf("stellar account %s is not allowed to sign in %T", stellarAccount, sc)
		}
	}

	signedTx, err := tx.Sign(sc.NetworkPassphrase(), sc.accountFull)
	if err != nil {
		return nil, fmt.Errorf("signing transaction in %T: %w", sc, err)
	}

	return signedTx, nil
}

func (sc envSignatureClient) String() string {
	return fmt.Sprintf("%T{networkPassphrase: %s, publicKey: %v}", sc, sc.networkPassphrase, sc.accountFull.Address())
}
