package utils

import (
	"fmt"
	"go/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	"github.com/stellar/go-stellar-sdk/network"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/txnbuild"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/signing"
)

func DatabaseURLOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "database-url",
		Usage:       "Database connection URL.",
		OptType:     types.String,
		ConfigKey:   configKey,
		FlagDefault: "postgres://postgres@localhost:5432/smiles-wallet?sslmode=disable",
		Required:    true,
	}
}

func LogLevelOption(configKey *logrus.Level) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "log-level",
		Usage:          `The log level used in this project. Options: "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", or "PANIC".`,
		OptType:        types.String,
		FlagDefault:    "INFO",
		ConfigKey:      configKey,
		CustomSetValue: SetConfigOptionLogLevel,
		Required:       false,
	}
}

func NetworkPassphraseOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "network-passphrase",
		Usage:       "Stellar Network Passphrase to connect.",
		OptType:     types.String,
		ConfigKey:   configKey,
		FlagDefault: network.TestNetworkPassphrase,
		Required:    true,
	}
}

func BaseFeeOption(configKey *int) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "base-fee",
		Usage:       "The base fee (in stroops) for submitting a Stellar transaction",
		OptType:     types.Int,
		ConfigKey:   configKey,
		FlagDefault: 100 * txnbuild.MinBaseFee,
		Required:    true,
	}
}

func HorizonClientURLOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "horizon-url",
		Usage:       "The URL of the Stellar Horizon server used to read the proof topics.",
		OptType:     types.String,
		ConfigKey:   configKey,
		FlagDefault: horizonclient.DefaultTestNetClient.HorizonURL,
		Required:    true,
	}
}

func RPCURLOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "rpc-url",
		Usage:       "The URL of the Stellar RPC server used to submit transactions and read balances.",
		OptType:     types.String,
		ConfigKey:   configKey,
		FlagDefault: "http://localhost:8000",
		Required:    true,
	}
}

func SentryDSNOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:      "tracker-dsn",
		Usage:     "The Sentry DSN",
		OptType:   types.String,
		ConfigKey: configKey,
		Required:  true,
	}
}

func StellarEnvironmentOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "stellar-environment",
		Usage:       "The environment reported with tracked errors.",
		OptType:     types.String,
		ConfigKey:   configKey,
		FlagDefault: "development",
		Required:    false,
	}
}

func TokenOption(configKey *entities.Asset) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "token",
		Usage:          "The economy token id in the CODE:ISSUER format, e.g. SMILE:GB...",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionAsset,
		ConfigKey:      configKey,
		Required:       true,
	}
}

func KeyVaultMasterKeyOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:      "wallet-encryption-key",
		Usage:     "The master key the custodial wallet private keys are encrypted with.",
		OptType:   types.String,
		ConfigKey: configKey,
		Required:  true,
	}
}

func WalletInitialFundingOption(configKey *decimal.Decimal) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "wallet-initial-funding",
		Usage:          "The native amount (XLM) the operator funds every new wallet account with.",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionDecimal,
		ConfigKey:      configKey,
		FlagDefault:    "2",
		Required:       true,
	}
}

func RedisURLOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:      "redis-url",
		Usage:     "The Redis URL caching known token associations. If empty, every association check goes to the ledger.",
		OptType:   types.String,
		ConfigKey: configKey,
		Required:  false,
	}
}

func ProofTopicsOption(configKey *map[entities.ProofKind]string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "proof-topics",
		Usage:          "The topic account of each proof kind, e.g. mission_completion=GA...,donation=GB...,badge_award=GC... Kinds without a topic are stored but never anchored.",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionProofTopics,
		ConfigKey:      configKey,
		Required:       false,
	}
}

func ProofScanCeilingOption(configKey *int) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "proof-scan-ceiling",
		Usage:       "The maximum number of topic messages read when verifying or aggregating proofs.",
		OptType:     types.Int,
		ConfigKey:   configKey,
		FlagDefault: 1000,
		Required:    false,
	}
}

func ProofRetryWorkersOption(configKey *int) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "proof-retry-workers",
		Usage:       "The number of workers resubmitting pending proofs.",
		OptType:     types.Int,
		ConfigKey:   configKey,
		FlagDefault: 4,
		Required:    false,
	}
}

func LedgerRequestTimeoutOption(configKey *int) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "ledger-request-timeout",
		Usage:       "Timeout in seconds for a single RPC or Horizon request.",
		OptType:     types.Int,
		ConfigKey:   configKey,
		FlagDefault: 30,
		Required:    false,
	}
}

func LedgerReceiptTimeoutOption(configKey *int) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "ledger-receipt-timeout",
		Usage:       "Seconds to wait for a submitted transaction's receipt before reporting the ledger unavailable.",
		OptType:     types.Int,
		ConfigKey:   configKey,
		FlagDefault: 60,
		Required:    false,
	}
}

func AWSOptions(awsRegionConfigKey *string, kmsKeyARN *string, required bool) config.ConfigOptions {
	awsOpts := config.ConfigOptions{
		{
			Name:        "aws-region",
			Usage:       `The AWS region. It's required if a configured signature provider is "KMS"`,
			OptType:     types.String,
			ConfigKey:   awsRegionConfigKey,
			FlagDefault: "us-east-2",
			Required:    required,
		},
		{
			Name:      "kms-key-arn",
			Usage:     `The KMS Key ARN. It's required if a configured signature provider is "KMS"`,
			OptType:   types.String,
			ConfigKey: kmsKeyARN,
			Required:  required,
		},
	}
	return awsOpts
}

func PlatformAccountPublicKeyOption(role signing.PlatformRole, configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           fmt.Sprintf("%s-account-public-key", role),
		Usage:          fmt.Sprintf("The %s account public key.", role),
		OptType:        types.String,
		CustomSetValue: SetConfigOptionStellarPublicKey,
		ConfigKey:      configKey,
		Required:       true,
	}
}

func PlatformAccountPrivateKeyOption(role signing.PlatformRole, configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           fmt.Sprintf("%s-account-private-key", role),
		Usage:          fmt.Sprintf(`The %s account private key. It's required if its signature provider is "ENV"`, role),
		OptType:        types.String,
		CustomSetValue: SetConfigOptionStellarPrivateKey,
		ConfigKey:      configKey,
		Required:       false,
	}
}

func PlatformAccountSignatureClientProviderOption(role signing.PlatformRole, configKey *signing.SignatureClientType) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           fmt.Sprintf("%s-account-signature-provider", role),
		Usage:          fmt.Sprintf("The %s account signature client provider. Options: ENV, KMS", role),
		OptType:        types.String,
		CustomSetValue: SetConfigOptionSignatureClientProvider,
		ConfigKey:      configKey,
		FlagDefault:    string(signing.EnvSignatureClientType),
		Required:       true,
	}
}

// PlatformSignatureProviderOptions binds the key options of one platform role. The AWS options are shared between
// roles, so they are added once by the caller.
func PlatformSignatureProviderOptions(role signing.PlatformRole, scOpts *SignatureClientOptions) config.ConfigOptions {
	return config.ConfigOptions{
		PlatformAccountPublicKeyOption(role, &scOpts.AccountPublicKey),
		PlatformAccountSignatureClientProviderOption(role, &scOpts.Type),
		PlatformAccountPrivateKeyOption(role, &scOpts.AccountSecretKey),
	}
}
