package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"go/types"
	"time"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/cmd/utils"
	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/apptracker/dryrun"
	"github.com/impactsmiles/smiles-wallet/internal/apptracker/sentry"
	"github.com/impactsmiles/smiles-wallet/internal/db"
	"github.com/impactsmiles/smiles-wallet/internal/serve"
	"github.com/impactsmiles/smiles-wallet/internal/signing"
)

// servicesConfig is the configuration shared by every command that talks to the ledger.
type servicesConfig struct {
	serve.Configs

	sentryDSN          string
	stellarEnvironment string
	requestTimeoutSecs int
	receiptTimeoutSecs int
	operatorSigner     utils.SignatureClientOptions
	issuerSigner       utils.SignatureClientOptions
	signingPool        db.ConnectionPool
}

func (c *servicesConfig) options() config.ConfigOptions {
	cfgOpts := config.ConfigOptions{
		utils.DatabaseURLOption(&c.DatabaseURL),
		utils.LogLevelOption(&c.LogLevel),
		utils.NetworkPassphraseOption(&c.NetworkPassphrase),
		utils.BaseFeeOption(&c.BaseFee),
		utils.RPCURLOption(&c.RPCURL),
		utils.HorizonClientURLOption(&c.HorizonURL),
		utils.LedgerRequestTimeoutOption(&c.requestTimeoutSecs),
		utils.LedgerReceiptTimeoutOption(&c.receiptTimeoutSecs),
		utils.TokenOption(&c.Token),
		utils.KeyVaultMasterKeyOption(&c.KeyVaultMasterKey),
		utils.WalletInitialFundingOption(&c.WalletInitialFunding),
		utils.RedisURLOption(&c.RedisURL),
		utils.ProofTopicsOption(&c.ProofTopics),
		utils.ProofScanCeilingOption(&c.ProofScanCeiling),
		utils.ProofRetryWorkersOption(&c.ProofRetryWorkers),
		{
			Name:      "tracker-dsn",
			Usage:     "The Sentry DSN. If empty, tracked errors are only logged.",
			OptType:   types.String,
			ConfigKey: &c.sentryDSN,
			Required:  false,
		},
		utils.StellarEnvironmentOption(&c.stellarEnvironment),
	}
	cfgOpts = append(cfgOpts, utils.PlatformSignatureProviderOptions(signing.OperatorRole, &c.operatorSigner)...)
	cfgOpts = append(cfgOpts, utils.PlatformSignatureProviderOptions(signing.IssuerRole, &c.issuerSigner)...)
	cfgOpts = append(cfgOpts, utils.AWSOptions(&c.operatorSigner.AWSRegion, &c.operatorSigner.KMSKeyARN, false)...)
	return cfgOpts
}

// resolve builds the app tracker and both platform signature clients once the option values are set.
func (c *servicesConfig) resolve(ctx context.Context) error {
	log.DefaultLogger.SetLevel(c.LogLevel)
	c.LedgerRequestTimeout = time.Duration(c.requestTimeoutSecs) * time.Second
	c.LedgerReceiptTimeout = time.Duration(c.receiptTimeoutSecs) * time.Second

	appTracker, err := newAppTracker(c.sentryDSN, c.stellarEnvironment)
	if err != nil {
		return err
	}
	c.AppTracker = appTracker

	c.signingPool, err = db.OpenDBConnectionPool(ctx, c.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening signing connection pool: %w", err)
	}

	c.issuerSigner.AWSRegion = c.operatorSigner.AWSRegion
	c.issuerSigner.KMSKeyARN = c.operatorSigner.KMSKeyARN
	for _, scOpts := range []*utils.SignatureClientOptions{&c.operatorSigner, &c.issuerSigner} {
		scOpts.DBConnectionPool = c.signingPool
		scOpts.NetworkPassphrase = c.NetworkPassphrase
	}

	if c.OperatorSignatureClient, err = utils.SignatureClientResolver(&c.operatorSigner); err != nil {
		return fmt.Errorf("resolving operator signature client: %w", err)
	}
	if c.IssuerSignatureClient, err = utils.SignatureClientResolver(&c.issuerSigner); err != nil {
		return fmt.Errorf("resolving issuer signature client: %w", err)
	}
	return nil
}

func (c *servicesConfig) close() {
	if c.signingPool == nil {
		return
	}
	if err := c.signingPool.Close(); err != nil {
		log.Errorf("closing signing connection pool: %v", err)
	}
}

// newServiceContainer opens the database and wires every service for a one-off command.
func (c *servicesConfig) newServiceContainer(ctx context.Context) (serve.ServiceContainer, error) {
	dbProvider, err := serve.NewDatabaseProvider(ctx, c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating database provider: %w", err)
	}

	deps := c.ServiceDependencies()
	deps.DatabaseProvider = dbProvider
	container, err := serve.NewServiceContainer(ctx, deps)
	if err != nil {
		if closeErr := dbProvider.GetConnectionPool().Close(); closeErr != nil {
			log.Ctx(ctx).Errorf("closing database connection pool: %v", closeErr)
		}
		return nil, fmt.Errorf("creating service container: %w", err)
	}
	return container, nil
}

func newAppTracker(sentryDSN, stellarEnvironment string) (apptracker.AppTracker, error) {
	if sentryDSN == "" {
		return &dryrun.DryRunTracker{}, nil
	}
	appTracker, err := sentry.NewSentryTracker(sentryDSN, stellarEnvironment, 5)
	if err != nil {
		return nil, fmt.Errorf("initializing App Tracker: %w", err)
	}
	return appTracker, nil
}

// withContainer resolves the config, runs fn against a fresh service container and tears everything down.
func (c *servicesConfig) withContainer(ctx context.Context, fn func(serve.ServiceContainer) error) error {
	defer c.close()

	container, err := c.newServiceContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	return fn(container)
}

// servicesPreRunE parses the shared options and resolves the signers before a subcommand runs.
func (c *servicesConfig) servicesPreRunE(cfgOpts config.ConfigOptions) func(*cobra.Command, []string) error {
	defaultPreRun := utils.DefaultPersistentPreRunE(cfgOpts)
	return func(cmd *cobra.Command, args []string) error {
		if err := defaultPreRun(cmd, args); err != nil {
			return err
		}
		return c.resolve(cmd.Context())
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
