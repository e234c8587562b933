package utils

import (
	"go/types"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/signing"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

// customSetterTestCase is a test case to test a custom_set_value function.
type customSetterTestCase[T any] struct {
	name            string
	args            []string
	envValue        string
	wantErrContains string
	wantResult      T
}

// customSetterTester tests a custom_set_value function, according with the customSetterTestCase provided.
func customSetterTester[T any](t *testing.T, tc customSetterTestCase[T], co config.ConfigOption) {
	t.Helper()
	ClearTestEnvironment(t)
	if tc.envValue != "" {
		envName := strings.ToUpper(co.Name)
		envName = strings.ReplaceAll(envName, "-", "_")
		t.Setenv(envName, tc.envValue)
	}

	// start the CLI command
	testCmd := cobra.Command{
		RunE: func(cmd *cobra.Command, args []string) error {
			co.Require()
			return co.SetValue()
		},
	}
	// mock the command line output
	buf := new(strings.Builder)
	testCmd.SetOut(buf)

	// Initialize the command for the given option
	err := co.Init(&testCmd)
	require.NoError(t, err)

	// execute command line
	if len(tc.args) > 0 {
		testCmd.SetArgs(tc.args)
	}
	err = testCmd.Execute()

	// check the result
	if tc.wantErrContains != "" {
		assert.Error(t, err)
		assert.Contains(t, err.Error(), tc.wantErrContains)
	} else {
		assert.NoError(t, err)
	}

	if !utils.IsEmpty(tc.wantResult) {
		destPointer, ok := co.ConfigKey.(*T)
		require.True(t, ok)
		assert.Equal(t, tc.wantResult, *destPointer)
	}
}

// clearTestEnvironment removes all envs from the test environment. It's useful
// to make tests independent from the localhost environment variables.
func ClearTestEnvironment(t *testing.T) {
	t.Helper()

	// remove all envs from tghe test environment
	for _, env := range os.Environ() {
		key := env[:strings.Index(env, "=")]
		t.Setenv(key, "")
	}
}

func TestSetConfigOptionStellarPublicKey(t *testing.T) {
	opts := struct{ sep10SigningPublicKey string }{}

	co := config.ConfigOption{
		Name:           "wallet-signing-key",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionStellarPublicKey,
		ConfigKey:      &opts.sep10SigningPublicKey,
	}
	expectedPublicKey := "GAX46JJZ3NPUM2EUBTTGFM6ITDF7IGAFNBSVWDONPYZJREHFPP2I5U7S"

	testCases := []customSetterTestCase[string]{
		{
			name:            "returns an error if the public key is empty",
			wantErrContains: "validating public key in wallet-signing-key: strkey is 0 bytes long; minimum valid length is 5",
		},
		{
			name:            "returns an error if the public key is invalid",
			args:            []string{"--wallet-signing-key", "invalid_public_key"},
			wantErrContains: "validating public key in wallet-signing-key: base32 decode failed: illegal base32 data at input byte 18",
		},
		{
			name:            "returns an error if the public key is invalid (private key instead)",
			args:            []string{"--wallet-signing-key", "SDISQRUPIHAO5WIIGY4QRDCINZSA44TX3OIIUK3C63NUKN5DABKEQ276"},
			wantErrContains: "validating public key in wallet-signing-key: invalid version byte",
		},
		{
			name:       "handles Stellar public key through the CLI flag",
			args:       []string{"--wallet-signing-key", "GAX46JJZ3NPUM2EUBTTGFM6ITDF7IGAFNBSVWDONPYZJREHFPP2I5U7S"},
			wantResult: expectedPublicKey,
		},
		{
			name:       "handles Stellar public key through the ENV vars",
			envValue:   "GAX46JJZ3NPUM2EUBTTGFM6ITDF7IGAFNBSVWDONPYZJREHFPP2I5U7S",
			wantResult: expectedPublicKey,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts.sep10SigningPublicKey = ""
			customSetterTester(t, tc, co)
		})
	}
}

func TestSetConfigOptionStellarPrivateKey(t *testing.T) {
	opts := struct{ distributionPrivateKey string }{}

	co := config.ConfigOption{
		Name:           "distribution-private-key",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionStellarPrivateKey,
		ConfigKey:      &opts.distributionPrivateKey,
	}
	expectedPrivateKey := "SBUSPEKAZKLZSWHRSJ2HWDZUK6I3IVDUWA7JJZSGBLZ2WZIUJI7FPNB5"

	testCases := []customSetterTestCase[string]{
		{
			name:            "returns an error if the private key is invalid",
			args:            []string{"--distribution-private-key", "invalid_private_key"},
			wantErrContains: `invalid private key provided in distribution-private-key`,
		},
		{
			name:            "returns an error if the private key is invalid (public key instead)",
			args:            []string{"--distribution-private-key", "GAX46JJZ3NPUM2EUBTTGFM6ITDF7IGAFNBSVWDONPYZJREHFPP2I5U7S"},
			wantErrContains: `invalid private key provided in distribution-private-key`,
		},
		{
			name:       "handles Stellar private key through the CLI flag",
			args:       []string{"--distribution-private-key", "SBUSPEKAZKLZSWHRSJ2HWDZUK6I3IVDUWA7JJZSGBLZ2WZIUJI7FPNB5"},
			wantResult: expectedPrivateKey,
		},
		{
			name:       "handles Stellar private key through the ENV flag",
			envValue:   "SBUSPEKAZKLZSWHRSJ2HWDZUK6I3IVDUWA7JJZSGBLZ2WZIUJI7FPNB5",
			wantResult: expectedPrivateKey,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts.distributionPrivateKey = ""
			customSetterTester[string](t, tc, co)
		})
	}
}

func Test_SetConfigOptionLogLevel(t *testing.T) {
	opts := struct{ logrusLevel logrus.Level }{}

	co := config.ConfigOption{
		Name:           "log-level",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionLogLevel,
		ConfigKey:      &opts.logrusLevel,
	}

	testCases := []customSetterTestCase[logrus.Level]{
		{
			name:            "returns an error if the log level is empty",
			args:            []string{},
			wantErrContains: `couldn't parse log level in log-level: not a valid logrus Level: ""`,
		},
		{
			name:            "returns an error if the log level is invalid",
			args:            []string{"--log-level", "test"},
			wantErrContains: `couldn't parse log level in log-level: not a valid logrus Level: "test"`,
		},
		{
			name:       "handles messenger type TRACE (through CLI args)",
			args:       []string{"--log-level", "TRACE"},
			wantResult: logrus.TraceLevel,
		},
		{
			name:       "handles messenger type TRACE (through ENV vars)",
			envValue:   "TRACE",
			wantResult: logrus.TraceLevel,
		},
		{
			name:       "handles messenger type INFO (through CLI args)",
			args:       []string{"--log-level", "iNfO"},
			wantResult: logrus.InfoLevel,
		},
		{
			name:       "handles messenger type INFO (through ENV vars)",
			envValue:   "INFO",
			wantResult: logrus.InfoLevel,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts.logrusLevel = 0
			customSetterTester[logrus.Level](t, tc, co)
		})
	}
}

func TestSetConfigOptionAsset(t *testing.T) {
	opts := struct{ token entities.Asset }{}

	co := config.ConfigOption{
		Name:           "token",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionAsset,
		ConfigKey:      &opts.token,
	}
	expectedToken := entities.Asset{Code: "SMILE", Issuer: "GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5"}

	testCases := []customSetterTestCase[entities.Asset]{
		{
			name:            "returns an error if the token is empty",
			wantErrContains: "token cannot be empty: configuration error",
		},
		{
			name:            "returns an error if the token has no issuer",
			args:            []string{"--token", "SMILE"},
			wantErrContains: `parsing token in token: invalid token id: "SMILE" is not in the CODE:ISSUER format`,
		},
		{
			name:            "returns an error if the code is too long",
			args:            []string{"--token", "SMILESSMILESSMILES:GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5"},
			wantErrContains: "must be 1-12 alphanumeric characters",
		},
		{
			name:       "handles the token through the CLI flag",
			args:       []string{"--token", "SMILE:GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5"},
			wantResult: expectedToken,
		},
		{
			name:       "handles the token through the ENV vars",
			envValue:   "SMILE:GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5",
			wantResult: expectedToken,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts.token = entities.Asset{}
			customSetterTester(t, tc, co)
		})
	}
}

func TestSetConfigOptionDecimal(t *testing.T) {
	opts := struct{ funding decimal.Decimal }{}

	co := config.ConfigOption{
		Name:           "wallet-initial-funding",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionDecimal,
		ConfigKey:      &opts.funding,
	}

	testCases := []customSetterTestCase[decimal.Decimal]{
		{
			name:            "returns an error if the value is not a number",
			args:            []string{"--wallet-initial-funding", "two"},
			wantErrContains: "parsing decimal in wallet-initial-funding",
		},
		{
			name:            "returns an error if the value is negative",
			args:            []string{"--wallet-initial-funding", "-1"},
			wantErrContains: "wallet-initial-funding cannot be negative",
		},
		{
			name:       "handles the amount through the CLI flag",
			args:       []string{"--wallet-initial-funding", "2.5"},
			wantResult: decimal.RequireFromString("2.5"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts.funding = decimal.Zero
			customSetterTester(t, tc, co)
		})
	}
}

func TestSetConfigOptionSignatureClientProvider(t *testing.T) {
	opts := struct{ provider signing.SignatureClientType }{}

	co := config.ConfigOption{
		Name:           "operator-account-signature-provider",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionSignatureClientProvider,
		ConfigKey:      &opts.provider,
	}

	testCases := []customSetterTestCase[signing.SignatureClientType]{
		{
			name:            "returns an error for an unknown provider",
			args:            []string{"--operator-account-signature-provider", "VAULT"},
			wantErrContains: `invalid signature client provider "VAULT" in operator-account-signature-provider`,
		},
		{
			name:       "handles a lower case provider",
			args:       []string{"--operator-account-signature-provider", "kms"},
			wantResult: signing.KMSSignatureClientType,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts.provider = ""
			customSetterTester(t, tc, co)
		})
	}
}

func TestSetConfigOptionProofTopics(t *testing.T) {
	opts := struct{ topics map[entities.ProofKind]string }{}

	co := config.ConfigOption{
		Name:           "proof-topics",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionProofTopics,
		ConfigKey:      &opts.topics,
	}
	missions := "GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5"
	donations := "GB7TAYRUZGE6TVT7NHP5SMIZRNQA6PLM423EYISAOAP3MKYIQMVYP2JO"

	testCases := []customSetterTestCase[map[entities.ProofKind]string]{
		{
			name:            "returns an error for a pair without account",
			args:            []string{"--proof-topics", "donation"},
			wantErrContains: `invalid topic "donation" in proof-topics, expected kind=ACCOUNT`,
		},
		{
			name:            "returns an error for an unknown kind",
			args:            []string{"--proof-topics", "purchase=" + missions},
			wantErrContains: `parsing topic kind in proof-topics: invalid proof kind "purchase"`,
		},
		{
			name:            "returns an error for an invalid account",
			args:            []string{"--proof-topics", "donation=GABC"},
			wantErrContains: `invalid topic account "GABC" for donation in proof-topics`,
		},
		{
			name:            "returns an error for a duplicated kind",
			args:            []string{"--proof-topics", "donation=" + missions + ",donation=" + donations},
			wantErrContains: "duplicated topic for donation in proof-topics",
		},
		{
			name:     "handles topics through the ENV vars",
			envValue: "mission_completion=" + missions + ", donation=" + donations,
			wantResult: map[entities.ProofKind]string{
				entities.ProofKindMissionCompletion: missions,
				entities.ProofKindDonation:          donations,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts.topics = nil
			customSetterTester(t, tc, co)
		})
	}
}

func TestSetConfigOptionPEMList(t *testing.T) {
	opts := struct{ keys []string }{}

	co := config.ConfigOption{
		Name:           "client-auth-public-keys",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionPEMList,
		ConfigKey:      &opts.keys,
	}
	pemKey := "-----BEGIN PUBLIC KEY-----\nMFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAE\n-----END PUBLIC KEY-----"

	testCases := []customSetterTestCase[[]string]{
		{
			name:            "returns an error for a value that is not PEM",
			args:            []string{"--client-auth-public-keys", "GABC"},
			wantErrContains: "invalid PEM public key in client-auth-public-keys",
		},
		{
			name:       "handles two concatenated keys",
			envValue:   pemKey + "\n" + pemKey,
			wantResult: []string{pemKey, pemKey},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts.keys = nil
			customSetterTester(t, tc, co)
		})
	}
}
