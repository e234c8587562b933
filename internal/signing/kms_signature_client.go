package signing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/strkey"
	"github.com/stellar/go-stellar-sdk/txnbuild"

	"github.com/impactsmiles/smiles-wallet/internal/signing/awskms"
	"github.com/impactsmiles/smiles-wallet/internal/signing/store"
)

var ErrInvalidPublicKeyProvided = errors.New("invalid public key provided")

type kmsSignatureClient struct {
	networkPassphrase string
	accountPublicKey  string
	keypairStore      store.KeypairStore
	client            kmsiface.KMSAPI
	kmsKeyARN         string

	// the decrypted key is kept after the first successful KMS round trip
	mu     sync.Mutex
	kpFull *keypair.Full
}

var _ SignatureClient = (*kmsSignatureClient)(nil)

func NewKMSSignatureClient(publicKey string, networkPassphrase string, keypairStore store.KeypairStore, client kmsiface.KMSAPI, awsKeyARN string) (*kmsSignatureClient, error) {
	if !strkey.IsValidEd25519PublicKey(publicKey) {
		return nil, ErrInvalidPublicKeyProvided
	}

	if keypairStore == nil {
		return nil, fmt.Errorf("keypair store cannot be nil")
	}

	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}

	awsKeyARN = strings.TrimSpace(awsKeyARN)
	if awsKeyARN == "" {
		return nil, fmt.Errorf("aws key arn cannot be empty")
	}

	return &kmsSignatureClient{
		networkPassphrase: networkPassphrase,
		accountPublicKey:  publicKey,
		keypairStore:      keypairStore,
		client:            client,
		kmsKeyARN:         awsKeyARN,
	}, nil
}

func (sc *kmsSignatureClient) GetAccountPublicKey(_ context.Context) (string, error) {
	return sc.accountPublicKey, nil
}

func (sc *kmsSignatureClient) NetworkPassphrase() string {
	return sc.networkPassphrase
}

func (sc *kmsSignatureClient) SignStellarTransaction(ctx context.Context, tx *txnbuild.Transaction, stellarAccounts ...string) (*txnbuild.Transaction, error) {
	if tx == nil {
		return nil, ErrInvalidTransaction
	}

	if len(stellarAccounts) == 0 {
		return nil, fmt.Errorf("stellar accounts cannot be empty in %T", sc)
	}

	for _, stellarAccount := range stellarAccounts {
		if stellarAccount != sc.accountPublicKey {
			return nil, fmt.Errorf("stellar account %s is not allowed to sign %T", stellarAccount, sc)
		}
	}

	kpFull, err := sc.getKPFull(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting keypair full in %T: %w", sc, err)
	}

	signedTx, err := tx.Sign(sc.NetworkPassphrase(), kpFull)
	if err != nil {
		return nil, fmt.Errorf("signing transaction in %T: %w", sc, err)
	}

	return signedTx, nil
}

func (sc *kmsSignatureClient) getKPFull(ctx context.Context) (*keypair.Full, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.kpFull != nil {
		return sc.kpFull, nil
	}

	kp, err := sc.keypairStore.GetByPublicKey(ctx, sc.accountPublicKey)
	if err != nil {
		return nil, fmt.Errorf("getting keypair for public key %s in %T: %w", sc.accountPublicKey, sc, err)
	}

	output, err := sc.client.DecryptWithContext(ctx, &kms.DecryptInput{
		CiphertextBlob:    kp.EncryptedPrivateKey,
		EncryptionContext: awskms.GetPrivateKeyEncryptionContext(kp.PublicKey),
		KeyId:             &sc.kmsKeyARN,
	})
	if err != nil {
		return nil, fmt.Errorf("decrypting platform account private key in %T: %w", sc, err)
	}

	kpFull, err := keypair.ParseFull(string(output.Plaintext))
	if err != nil {
		return nil, fmt.Errorf("parsing platform account private key in %T: %w", sc, err)
	}
	if kpFull.Address() != sc.accountPublicKey {
		return nil, fmt.Errorf("decrypted private key does not belong to %s in %T", sc.accountPublicKey, sc)
	}

	sc.kpFull = kpFull
	return kpFull, nil
}
