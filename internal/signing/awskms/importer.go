package awskms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/strkey"

	"github.com/impactsmiles/smiles-wallet/internal/signing/store"
)

var (
	ErrInvalidPrivateKeyProvided = errors.New("invalid private key provided")
	ErrMismatchPlatformAccount   = errors.New("private key does not match the configured platform account")
)

// KeyImporter encrypts a platform seed (operator or issuer) with a KMS key and stores the ciphertext in keypairs,
// where the KMS signature client reads it back.
type KeyImporter interface {
	ImportPlatformKey(ctx context.Context, seed string) error
}

type keyImporter struct {
	client           kmsiface.KMSAPI
	kmsKeyARN        string
	keypairStore     store.KeypairStore
	accountPublicKey string
}

var _ KeyImporter = (*keyImporter)(nil)

func (s *keyImporter) ImportPlatformKey(ctx context.Context, seed string) error {
	if !strkey.IsValidEd25519SecretSeed(seed) {
		return ErrInvalidPrivateKeyProvided
	}

	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return fmt.Errorf("parsing platform private key: %w", err)
	}

	if kp.Address() != s.accountPublicKey {
		return ErrMismatchPlatformAccount
	}

	output, err := s.client.EncryptWithContext(ctx, &kms.EncryptInput{
		EncryptionContext: GetPrivateKeyEncryptionContext(kp.Address()),
		KeyId:             aws.String(s.kmsKeyARN),
		Plaintext:         []byte(seed),
	})
	if err != nil {
		return fmt.Errorf("encrypting platform account private key: %w", err)
	}

	err = s.keypairStore.Insert(ctx, kp.Address(), output.CiphertextBlob)
	if err != nil {
		if errors.Is(err, store.ErrPublicKeyAlreadyExists) {
			return err
		}
		return fmt.Errorf("storing platform account encrypted private key: %w", err)
	}

	return nil
}

func NewKeyImporter(client kmsiface.KMSAPI, kmsKeyARN string, keypairStore store.KeypairStore, accountPublicKey string) (*keyImporter, error) {
	if client == nil {
		return nil, fmt.Errorf("kms cannot be nil")
	}

	kmsKeyARN = strings.TrimSpace(kmsKeyARN)
	if kmsKeyARN == "" {
		return nil, fmt.Errorf("aws key arn cannot be empty")
	}

	if keypairStore == nil {
		return nil, fmt.Errorf("keypair store cannot be nil")
	}

	if !strkey.IsValidEd25519PublicKey(accountPublicKey) {
		return nil, fmt.Errorf("invalid platform account public key provided")
	}

	return &keyImporter{
		client:           client,
		kmsKeyARN:        kmsKeyARN,
		keypairStore:     keypairStore,
		accountPublicKey: accountPublicKey,
	}, nil
}
