package utils

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"

	"github.com/impactsmiles/smiles-wallet/internal/db"
	"github.com/impactsmiles/smiles-wallet/internal/signing"
	"github.com/impactsmiles/smiles-wallet/internal/signing/awskms"
	"github.com/impactsmiles/smiles-wallet/internal/signing/store"
)

func DefaultPersistentPreRunE(cfgOpts config.ConfigOptions) func(_ *cobra.Command, _ []string) error {
	return func(_ *cobra.Command, _ []string) error {
		if err := cfgOpts.RequireE(); err != nil {
			return fmt.Errorf("requiring values of config options: %w", err)
		}
		if err := cfgOpts.SetValues(); err != nil {
			return fmt.Errorf("setting values of config options: %w", err)
		}
		return nil
	}
}

type SignatureClientOptions struct {
	Type              signing.SignatureClientType
	NetworkPassphrase string
	AccountPublicKey  string
	DBConnectionPool  db.ConnectionPool

	// Env Options
	AccountSecretKey string

	// AWS KMS
	KMSKeyARN string
	AWSRegion string
}

//nolint:wrapcheck // defer is used to wrap the error
func SignatureClientResolver(signatureClientOpts *SignatureClientOptions) (sigClient signing.SignatureClient, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("resolving signature client: %w", err)
		}
	}()

	switch signatureClientOpts.Type {
	case signing.EnvSignatureClientType:
		envClient, err := signing.NewEnvSignatureClient(signatureClientOpts.AccountSecretKey, signatureClientOpts.NetworkPassphrase)
		if err != nil {
			return nil, err
		}
		if want := signatureClientOpts.AccountPublicKey; want != "" {
			if got, _ := envClient.GetAccountPublicKey(context.Background()); got != want {
				return nil, fmt.Errorf("the private key does not belong to %s", want)
			}
		}
		return envClient, nil
	case signing.KMSSignatureClientType:
		kmsClient, err := awskms.GetKMSClient(signatureClientOpts.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("instantiating kms client: %w", err)
		}

		return signing.NewKMSSignatureClient(
			signatureClientOpts.AccountPublicKey,
			signatureClientOpts.NetworkPassphrase,
			store.NewKeypairModel(signatureClientOpts.DBConnectionPool),
			kmsClient,
			signatureClientOpts.KMSKeyARN,
		)
	}

	return nil, signing.ErrInvalidSignatureClientType
}
