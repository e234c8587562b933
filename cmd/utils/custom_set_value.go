package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/strkey"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/signing"
)

func SetConfigOptionStellarPublicKey(co *config.ConfigOption) error {
	publicKey := viper.GetString(co.Name)

	kp, err := keypair.ParseAddress(publicKey)
	if err != nil {
		return fmt.Errorf("validating public key in %s: %w", co.Name, err)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return unexpectedTypeError(co, "string")
	}
	*key = kp.Address()

	return nil
}

// SetConfigOptionStellarPrivateKey accepts an empty value, the key is only required by some signature providers.
func SetConfigOptionStellarPrivateKey(co *config.ConfigOption) error {
	privateKey := viper.GetString(co.Name)
	if privateKey != "" && !strkey.IsValidEd25519SecretSeed(privateKey) {
		return fmt.Errorf("invalid private key provided in %s", co.Name)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return unexpectedTypeError(co, "string")
	}
	*key = privateKey

	return nil
}

func SetConfigOptionLogLevel(co *config.ConfigOption) error {
	logLevelStr := viper.GetString(co.Name)
	logLevel, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return fmt.Errorf("couldn't parse log level in %s: %w", co.Name, err)
	}

	key, ok := co.ConfigKey.(*logrus.Level)
	if !ok {
		return unexpectedTypeError(co, "logrus.Level")
	}
	*key = logLevel

	return nil
}

func SetConfigOptionSignatureClientProvider(co *config.ConfigOption) error {
	provider := signing.SignatureClientType(strings.ToUpper(strings.TrimSpace(viper.GetString(co.Name))))
	if !provider.IsValid() {
		return fmt.Errorf("invalid signature client provider %q in %s: %w", provider, co.Name, signing.ErrInvalidSignatureClientType)
	}

	key, ok := co.ConfigKey.(*signing.SignatureClientType)
	if !ok {
		return unexpectedTypeError(co, "signing.SignatureClientType")
	}
	*key = provider

	return nil
}

// SetConfigOptionAsset parses a token id in the CODE:ISSUER format.
func SetConfigOptionAsset(co *config.ConfigOption) error {
	tokenID := viper.GetString(co.Name)
	if tokenID == "" {
		return fmt.Errorf("%s cannot be empty: %w", co.Name, entities.ErrConfiguration)
	}

	asset, err := entities.ParseAsset(tokenID)
	if err != nil {
		return fmt.Errorf("parsing token in %s: %w", co.Name, err)
	}

	key, ok := co.ConfigKey.(*entities.Asset)
	if !ok {
		return unexpectedTypeError(co, "entities.Asset")
	}
	*key = asset

	return nil
}

func SetConfigOptionDecimal(co *config.ConfigOption) error {
	value, err := decimal.NewFromString(strings.TrimSpace(viper.GetString(co.Name)))
	if err != nil {
		return fmt.Errorf("parsing decimal in %s: %w", co.Name, err)
	}
	if value.IsNegative() {
		return fmt.Errorf("%s cannot be negative", co.Name)
	}

	key, ok := co.ConfigKey.(*decimal.Decimal)
	if !ok {
		return unexpectedTypeError(co, "decimal.Decimal")
	}
	*key = value

	return nil
}

// SetConfigOptionProofTopics parses kind=ACCOUNT pairs separated by commas, e.g.
// "mission_completion=GA...,donation=GB...".
func SetConfigOptionProofTopics(co *config.ConfigOption) error {
	raw := strings.TrimSpace(viper.GetString(co.Name))
	topics := make(map[entities.ProofKind]string)
	if raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			kindStr, accountID, found := strings.Cut(strings.TrimSpace(pair), "=")
			if !found {
				return fmt.Errorf("invalid topic %q in %s, expected kind=ACCOUNT", pair, co.Name)
			}
			kind, err := entities.ParseProofKind(strings.TrimSpace(kindStr))
			if err != nil {
				return fmt.Errorf("parsing topic kind in %s: %w", co.Name, err)
			}
			accountID = strings.TrimSpace(accountID)
			if !strkey.IsValidEd25519PublicKey(accountID) {
				return fmt.Errorf("invalid topic account %q for %s in %s", accountID, kind, co.Name)
			}
			if _, dup := topics[kind]; dup {
				return fmt.Errorf("duplicated topic for %s in %s", kind, co.Name)
			}
			topics[kind] = accountID
		}
	}

	key, ok := co.ConfigKey.(*map[entities.ProofKind]string)
	if !ok {
		return unexpectedTypeError(co, "map[entities.ProofKind]string")
	}
	*key = topics

	return nil
}

// SetConfigOptionPEMList reads PEM encoded public keys. Several keys are concatenated, blank lines allowed.
func SetConfigOptionPEMList(co *config.ConfigOption) error {
	raw := viper.GetString(co.Name)
	var keys []string
	const footer = "-----END PUBLIC KEY-----"
	for _, block := range strings.SplitAfter(raw, footer) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if !strings.HasPrefix(block, "-----BEGIN PUBLIC KEY-----") || !strings.HasSuffix(block, footer) {
			return fmt.Errorf("invalid PEM public key in %s", co.Name)
		}
		keys = append(keys, block)
	}

	key, ok := co.ConfigKey.(*[]string)
	if !ok {
		return unexpectedTypeError(co, "[]string")
	}
	*key = keys

	return nil
}

func unexpectedTypeError(co *config.ConfigOption, expected string) error {
	return fmt.Errorf("the expected type for the config key in %s is a %s, but a %T was provided instead", co.Name, expected, co.ConfigKey)
}
