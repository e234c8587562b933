package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go-stellar-sdk/amount"
	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/txnbuild"
	"github.com/stellar/stellar-rpc/protocol"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/signing"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

const (
	DefaultReceiptTimeout      = 60 * time.Second
	DefaultReceiptPollInterval = time.Second
	DefaultTransactionTimeout  = 90 * time.Second
	DefaultReadAttempts        = 4
	DefaultSubmitAttempts      = 5
	DefaultRetryDelay          = 250 * time.Millisecond
)

// Client performs token-economy operations against the ledger. Every mutation returns only after a receipt.
type Client interface {
	CreateAccount(ctx context.Context, params CreateAccountParams) (string, error)
	AssociateToken(ctx context.Context, params AssociateTokenParams) (bool, error)
	IsAssociated(ctx context.Context, accountID string) (bool, error)
	Mint(ctx context.Context, amount int64) (entities.TokenOperationResult, error)
	Burn(ctx context.Context, params BurnParams) (entities.TokenOperationResult, error)
	Transfer(ctx context.Context, params TransferParams) (entities.TokenOperationResult, error)
	GetTokenBalance(ctx context.Context, accountID string) (int64, error)
	GetNativeBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	TransactionSucceeded(ctx context.Context, txHash string) (bool, error)
	SubmitTopicMessage(ctx context.Context, topicID string, payload []byte) (string, error)
	QueryTopicMessages(ctx context.Context, topicID string, limit int) ([]entities.TopicMessage, error)
	OperatorAccountID() string
	TokenID() entities.Asset
	EnsureOperatorAssociation(ctx context.Context) error
	EnsureTopicAccount(ctx context.Context, topicID string, funding decimal.Decimal) error
	Health(ctx context.Context) (entities.RPCGetHealthResult, error)
}

type CreateAccountParams struct {
	PublicKey      string
	InitialFunding decimal.Decimal
}

type AssociateTokenParams struct {
	AccountID string
	TokenID   entities.Asset
	Signer    *keypair.Full
}

// BurnParams burns operator supply when From is empty.
type BurnParams struct {
	Amount int64
	From   string
	Signer *keypair.Full
}

// TransferParams moves tokens from From to To. A nil Signer is only valid when From is the operator account.
type TransferParams struct {
	Amount int64
	From   string
	To     string
	Signer *keypair.Full
}

type Options struct {
	RPCService          RPCService
	HorizonClient       horizonclient.ClientInterface
	OperatorSigner      signing.SignatureClient
	IssuerSigner        signing.SignatureClient
	Token               entities.Asset
	BaseFee             int64
	TransactionTimeout  time.Duration
	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration
	ReadAttempts        uint
	SubmitAttempts      uint
	RetryDelay          time.Duration
}

func (o *Options) Validate() error {
	if o.RPCService == nil {
		return fmt.Errorf("%w: rpc service cannot be nil", entities.ErrConfiguration)
	}
	if o.HorizonClient == nil {
		return fmt.Errorf("%w: horizon client cannot be nil", entities.ErrConfiguration)
	}
	if o.OperatorSigner == nil {
		return fmt.Errorf("%w: operator signature client cannot be nil", entities.ErrConfiguration)
	}
	if o.IssuerSigner == nil {
		return fmt.Errorf("%w: issuer signature client cannot be nil", entities.ErrConfiguration)
	}
	if err := o.Token.Validate(); err != nil {
		return fmt.Errorf("%w: %w", entities.ErrConfiguration, err)
	}
	if o.BaseFee < txnbuild.MinBaseFee {
		return fmt.Errorf("%w: base fee must be at least %d", entities.ErrConfiguration, txnbuild.MinBaseFee)
	}
	return nil
}

type stellarClient struct {
	rpc                 RPCService
	horizon             horizonclient.ClientInterface
	operatorSigner      signing.SignatureClient
	issuerSigner        signing.SignatureClient
	operatorAccountID   string
	token               entities.Asset
	networkPassphrase   string
	baseFee             int64
	txTimeout           time.Duration
	receiptTimeout      time.Duration
	receiptPollInterval time.Duration
	readAttempts        uint
	submitAttempts      uint
	retryDelay          time.Duration
	sourceLocks         *utils.KeyedMutex
}

var _ Client = (*stellarClient)(nil)

func NewClient(ctx context.Context, opts Options) (*stellarClient, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validating ledger client options: %w", err)
	}

	operatorAccountID, err := opts.OperatorSigner.GetAccountPublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: getting operator public key: %w", entities.ErrConfiguration, err)
	}
	issuerAccountID, err := opts.IssuerSigner.GetAccountPublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: getting issuer public key: %w", entities.ErrConfiguration, err)
	}
	if issuerAccountID != opts.Token.Issuer {
		return nil, fmt.Errorf("%w: issuer signer %s does not hold the token issuer %s", entities.ErrConfiguration, issuerAccountID, opts.Token.Issuer)
	}
	if operatorAccountID == issuerAccountID {
		return nil, fmt.Errorf("%w: the operator and issuer accounts must differ", entities.ErrConfiguration)
	}

	c := &stellarClient{
		rpc:                 opts.RPCService,
		horizon:             opts.HorizonClient,
		operatorSigner:      opts.OperatorSigner,
		issuerSigner:        opts.IssuerSigner,
		operatorAccountID:   operatorAccountID,
		token:               opts.Token,
		networkPassphrase:   opts.RPCService.NetworkPassphrase(),
		baseFee:             opts.BaseFee,
		txTimeout:           opts.TransactionTimeout,
		receiptTimeout:      opts.ReceiptTimeout,
		receiptPollInterval: opts.ReceiptPollInterval,
		readAttempts:        opts.ReadAttempts,
		submitAttempts:      opts.SubmitAttempts,
		retryDelay:          opts.RetryDelay,
		sourceLocks:         utils.NewKeyedMutex(),
	}
	c.applyDefaults()
	return c, nil
}

func (c *stellarClient) applyDefaults() {
	if c.txTimeout <= 0 {
		c.txTimeout = DefaultTransactionTimeout
	}
	if c.receiptTimeout <= 0 {
		c.receiptTimeout = DefaultReceiptTimeout
	}
	if c.receiptPollInterval <= 0 {
		c.receiptPollInterval = DefaultReceiptPollInterval
	}
	if c.readAttempts == 0 {
		c.readAttempts = DefaultReadAttempts
	}
	if c.submitAttempts == 0 {
		c.submitAttempts = DefaultSubmitAttempts
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
}

func (c *stellarClient) OperatorAccountID() string {
	return c.operatorAccountID
}

func (c *stellarClient) TokenID() entities.Asset {
	return c.token
}

func (c *stellarClient) operatorTxSigner() txSigner {
	return platformSigner(c.operatorSigner, c.operatorAccountID)
}

func (c *stellarClient) creditAsset() txnbuild.CreditAsset {
	return txnbuild.CreditAsset{Code: c.token.Code, Issuer: c.token.Issuer}
}

func (c *stellarClient) CreateAccount(ctx context.Context, params CreateAccountParams) (string, error) {
	if !params.InitialFunding.IsPositive() {
		return "", fmt.Errorf("initial funding: %w", errInvalidAmount)
	}

	_, err := c.submit(ctx, txRequest{
		label:  "create_account",
		source: c.operatorAccountID,
		operations: []txnbuild.Operation{&txnbuild.CreateAccount{
			Destination: params.PublicKey,
			Amount:      params.InitialFunding.StringFixed(7),
		}},
		signers: []txSigner{c.operatorTxSigner()},
	})
	if err != nil {
		return "", fmt.Errorf("creating account %s: %w", params.PublicKey, err)
	}

	log.Ctx(ctx).Infof("created ledger account %s funded with %s", params.PublicKey, params.InitialFunding.String())
	return params.PublicKey, nil
}

// AssociateToken opens a trustline from the owner account. The owner is the transaction source and sole signer.
func (c *stellarClient) AssociateToken(ctx context.Context, params AssociateTokenParams) (bool, error) {
	if params.Signer == nil {
		return false, fmt.Errorf("associating %s: %w", params.AccountID, ErrSignerRequired)
	}
	if params.Signer.Address() != params.AccountID {
		return false, fmt.Errorf("associating %s: %w", params.AccountID, ErrSignerMismatch)
	}

	asset := txnbuild.CreditAsset{Code: params.TokenID.Code, Issuer: params.TokenID.Issuer}
	changeTrustAsset, err := asset.ToChangeTrustAsset()
	if err != nil {
		return false, fmt.Errorf("converting %s to a trustline asset: %w", params.TokenID.String(), err)
	}

	_, err = c.submit(ctx, txRequest{
		label:      "associate_token",
		source:     params.AccountID,
		operations: []txnbuild.Operation{&txnbuild.ChangeTrust{Line: changeTrustAsset}},
		signers:    []txSigner{keypairSigner(params.Signer, c.networkPassphrase)},
	})
	if err != nil {
		return false, fmt.Errorf("associating %s with %s: %w", params.AccountID, params.TokenID.String(), err)
	}
	return true, nil
}

func (c *stellarClient) IsAssociated(ctx context.Context, accountID string) (bool, error) {
	return readWithRetry(ctx, c, func(ctx context.Context) (bool, error) {
		trustLine, err := getTrustLineEntry(ctx, c.rpc, accountID, c.token)
		if err != nil {
			return false, err
		}
		return trustLine != nil, nil
	})
}

// Mint issues new supply into the operator account.
func (c *stellarClient) Mint(ctx context.Context, amt int64) (entities.TokenOperationResult, error) {
	if !validAmount(amt) {
		return entities.FailedOperation(entities.ErrorKindConfiguration, ""), fmt.Errorf("minting %d: %w", amt, errInvalidAmount)
	}

	hash, err := c.submit(ctx, txRequest{
		label:  "mint",
		source: c.operatorAccountID,
		operations: []txnbuild.Operation{&txnbuild.Payment{
			SourceAccount: c.token.Issuer,
			Destination:   c.operatorAccountID,
			Amount:        amount.StringFromInt64(amt * amount.One),
			Asset:         c.creditAsset(),
		}},
		signers: []txSigner{c.operatorTxSigner(), platformSigner(c.issuerSigner, c.token.Issuer)},
	})
	if err != nil {
		return c.failedResult(err, hash), fmt.Errorf("minting %d: %w", amt, err)
	}

	return c.succeededResult(ctx, hash, c.operatorAccountID), nil
}

// Burn pays tokens back to the issuer, which removes them from circulation.
func (c *stellarClient) Burn(ctx context.Context, params BurnParams) (entities.TokenOperationResult, error) {
	from := params.From
	if from == "" {
		from = c.operatorAccountID
	}
	if !validAmount(params.Amount) {
		return entities.FailedOperation(entities.ErrorKindConfiguration, ""), fmt.Errorf("burning %d: %w", params.Amount, errInvalidAmount)
	}

	signers, err := c.paymentSigners(from, params.Signer)
	if err != nil {
		return entities.FailedOperation(entities.ErrorKindConfiguration, ""), fmt.Errorf("burning from %s: %w", from, err)
	}

	hash, err := c.submit(ctx, txRequest{
		label:      "burn",
		source:     c.operatorAccountID,
		operations: []txnbuild.Operation{c.payment(from, c.token.Issuer, params.Amount)},
		signers:    signers,
	})
	if err != nil {
		return c.failedResult(err, hash), fmt.Errorf("burning %d from %s: %w", params.Amount, from, err)
	}

	return c.succeededResult(ctx, hash, from), nil
}

// Transfer moves tokens between two accounts. The operator is the transaction source and pays the fee.
func (c *stellarClient) Transfer(ctx context.Context, params TransferParams) (entities.TokenOperationResult, error) {
	if !validAmount(params.Amount) {
		return entities.FailedOperation(entities.ErrorKindConfiguration, ""), fmt.Errorf("transferring %d: %w", params.Amount, errInvalidAmount)
	}

	signers, err := c.paymentSigners(params.From, params.Signer)
	if err != nil {
		return entities.FailedOperation(entities.ErrorKindConfiguration, ""), fmt.Errorf("transferring from %s: %w", params.From, err)
	}

	hash, err := c.submit(ctx, txRequest{
		label:      "transfer",
		source:     c.operatorAccountID,
		operations: []txnbuild.Operation{c.payment(params.From, params.To, params.Amount)},
		signers:    signers,
	})
	if err != nil {
		return c.failedResult(err, hash), fmt.Errorf("transferring %d from %s to %s: %w", params.Amount, params.From, params.To, err)
	}

	return c.succeededResult(ctx, hash, params.To), nil
}

func validAmount(amt int64) bool {
	return amt > 0 && amt <= MaxTokenAmount
}

func (c *stellarClient) payment(from, to string, amt int64) *txnbuild.Payment {
	payment := &txnbuild.Payment{
		Destination: to,
		Amount:      amount.StringFromInt64(amt * amount.One),
		Asset:       c.creditAsset(),
	}
	if from != c.operatorAccountID {
		payment.SourceAccount = from
	}
	return payment
}

// paymentSigners always includes the operator, as the transaction source, plus the owner of a non-operator payer.
func (c *stellarClient) paymentSigners(from string, signer *keypair.Full) ([]txSigner, error) {
	signers := []txSigner{c.operatorTxSigner()}
	if from == c.operatorAccountID {
		return signers, nil
	}
	if signer == nil {
		return nil, ErrSignerRequired
	}
	if signer.Address() != from {
		return nil, ErrSignerMismatch
	}
	return append(signers, keypairSigner(signer, c.networkPassphrase)), nil
}

// succeededResult attaches a best-effort balance for balanceOf. A failed read leaves NewBalance unset.
func (c *stellarClient) succeededResult(ctx context.Context, hash, balanceOf string) entities.TokenOperationResult {
	result := entities.TokenOperationResult{Success: true, TransactionID: hash}
	balance, err := c.GetTokenBalance(ctx, balanceOf)
	if err != nil {
		log.Ctx(ctx).Warnf("reading balance of %s after transaction %s: %v", balanceOf, hash, err)
		return result
	}
	result.NewBalance = &balance
	return result
}

func (c *stellarClient) failedResult(err error, hash string) entities.TokenOperationResult {
	var receiptErr *ReceiptError
	if errors.As(err, &receiptErr) {
		hash = receiptErr.TxHash
	}
	return entities.FailedOperation(entities.KindOf(err), hash)
}

// GetTokenBalance returns whole tokens. An account without a trustline holds zero.
func (c *stellarClient) GetTokenBalance(ctx context.Context, accountID string) (int64, error) {
	return readWithRetry(ctx, c, func(ctx context.Context) (int64, error) {
		trustLine, err := getTrustLineEntry(ctx, c.rpc, accountID, c.token)
		if err != nil {
			return 0, err
		}
		if trustLine == nil {
			return 0, nil
		}
		return int64(trustLine.Balance) / amount.One, nil
	})
}

func (c *stellarClient) GetNativeBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return readWithRetry(ctx, c, func(ctx context.Context) (decimal.Decimal, error) {
		accountEntry, err := getAccountEntry(ctx, c.rpc, accountID)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.New(int64(accountEntry.Balance), -7), nil
	})
}

// TransactionSucceeded reports whether txHash has a SUCCESS receipt. An unknown hash is false.
func (c *stellarClient) TransactionSucceeded(ctx context.Context, txHash string) (bool, error) {
	return readWithRetry(ctx, c, func(ctx context.Context) (bool, error) {
		result, err := c.rpc.GetTransaction(ctx, txHash)
		if err != nil {
			return false, fmt.Errorf("getting transaction %s: %w", txHash, err)
		}
		return result.Status == protocol.TransactionStatusSuccess, nil
	})
}

// EnsureOperatorAssociation opens the operator trustline when it is missing.
func (c *stellarClient) EnsureOperatorAssociation(ctx context.Context) error {
	associated, err := c.IsAssociated(ctx, c.operatorAccountID)
	if err != nil {
		return fmt.Errorf("checking operator association: %w", err)
	}
	if associated {
		return nil
	}

	changeTrustAsset, err := c.creditAsset().ToChangeTrustAsset()
	if err != nil {
		return fmt.Errorf("converting token to a trustline asset: %w", err)
	}
	_, err = c.submit(ctx, txRequest{
		label:      "associate_operator",
		source:     c.operatorAccountID,
		operations: []txnbuild.Operation{&txnbuild.ChangeTrust{Line: changeTrustAsset}},
		signers:    []txSigner{c.operatorTxSigner()},
	})
	if err != nil {
		return fmt.Errorf("associating operator account: %w", err)
	}

	log.Ctx(ctx).Infof("associated operator account %s with %s", c.operatorAccountID, c.token.String())
	return nil
}

// EnsureTopicAccount creates a topic account that does not exist yet.
func (c *stellarClient) EnsureTopicAccount(ctx context.Context, topicID string, funding decimal.Decimal) error {
	_, err := readWithRetry(ctx, c, func(ctx context.Context) (int64, error) {
		return c.rpc.GetAccountLedgerSequence(ctx, topicID)
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return fmt.Errorf("checking topic account %s: %w", topicID, err)
	}

	if _, err = c.CreateAccount(ctx, CreateAccountParams{PublicKey: topicID, InitialFunding: funding}); err != nil {
		return fmt.Errorf("creating topic account: %w", err)
	}
	return nil
}

func (c *stellarClient) Health(ctx context.Context) (entities.RPCGetHealthResult, error) {
	health, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return entities.RPCGetHealthResult{}, fmt.Errorf("%w: getting RPC health: %w", entities.ErrLedgerUnavailable, err)
	}
	return health, nil
}
