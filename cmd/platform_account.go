package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/cmd/utils"
	"github.com/impactsmiles/smiles-wallet/internal/db"
	"github.com/impactsmiles/smiles-wallet/internal/signing"
	"github.com/impactsmiles/smiles-wallet/internal/signing/awskms"
	"github.com/impactsmiles/smiles-wallet/internal/signing/store"
)

type kmsImportConfig struct {
	databaseURL      string
	kmsKeyARN        string
	awsRegion        string
	accountPublicKey string
}

type platformAccountCmd struct {
	role signing.PlatformRole
}

func (c *platformAccountCmd) Command() *cobra.Command {
	cmd := cobra.Command{
		Use:   fmt.Sprintf("%s-account", c.role),
		Short: fmt.Sprintf("%s account private key management.", c.role),
	}

	cmd.AddCommand(c.kmsCommand())

	return &cmd
}

func (c *platformAccountCmd) kmsCommand() *cobra.Command {
	cfg := kmsImportConfig{}
	cfgOpts := config.ConfigOptions{
		utils.DatabaseURLOption(&cfg.databaseURL),
		utils.PlatformAccountPublicKeyOption(c.role, &cfg.accountPublicKey),
	}
	cfgOpts = append(cfgOpts, utils.AWSOptions(&cfg.awsRegion, &cfg.kmsKeyARN, true)...)

	cmd := &cobra.Command{
		Use:   "kms",
		Short: fmt.Sprintf("Manage the %s account private key using KMS.", c.role),
	}

	var (
		importer         awskms.KeyImporter
		dbConnectionPool db.ConnectionPool
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: fmt.Sprintf("Import the %s account private key. The key is encrypted with KMS before it is stored.", c.role),
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfgOpts.RequireE(); err != nil {
				return fmt.Errorf("requiring values of config options: %w", err)
			}

			if err := cfgOpts.SetValues(); err != nil {
				return fmt.Errorf("setting values of config options: %w", err)
			}

			var err error
			dbConnectionPool, err = db.OpenDBConnectionPool(cmd.Context(), cfg.databaseURL)
			if err != nil {
				return fmt.Errorf("opening connection pool: %w", err)
			}

			kmsClient, err := awskms.GetKMSClient(cfg.awsRegion)
			if err != nil {
				return fmt.Errorf("getting kms client: %w", err)
			}

			importer, err = awskms.NewKeyImporter(kmsClient, cfg.kmsKeyARN, store.NewKeypairModel(dbConnectionPool), cfg.accountPublicKey)
			if err != nil {
				return fmt.Errorf("instantiating kms key importer: %w", err)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			defer func() {
				if closeErr := dbConnectionPool.Close(); closeErr != nil {
					log.Ctx(ctx).Errorf("closing connection pool: %v", closeErr)
				}
			}()

			passwordPrompter, err := utils.NewDefaultPasswordPrompter(
				fmt.Sprintf("Input the %s account private key (key will be hidden):", c.role), os.Stdin, os.Stdout)
			if err != nil {
				return fmt.Errorf("instantiating password prompter: %w", err)
			}

			seed, err := passwordPrompter.Run()
			if err != nil {
				return fmt.Errorf("getting %s account seed input: %w", c.role, err)
			}

			err = importer.ImportPlatformKey(ctx, seed)
			if err != nil {
				if errors.Is(err, awskms.ErrMismatchPlatformAccount) {
					return fmt.Errorf("the private key provided doesn't belong to the configured %s account public key", c.role)
				}
				return fmt.Errorf("importing %s account seed: %w", c.role, err)
			}

			log.Ctx(ctx).Infof("Successfully imported and encrypted the %s account private key", c.role)
			return nil
		},
	}

	cmd.AddCommand(importCmd)

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
