package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
)

type RPCServiceMock struct {
	mock.Mock
}

var _ RPCService = (*RPCServiceMock)(nil)

func (r *RPCServiceMock) GetTransaction(ctx context.Context, transactionHash string) (entities.RPCGetTransactionResult, error) {
	args := r.Called(ctx, transactionHash)
	return args.Get(0).(entities.RPCGetTransactionResult), args.Error(1)
}

func (r *RPCServiceMock) SendTransaction(ctx context.Context, transactionXDR string) (entities.RPCSendTransactionResult, error) {
	args := r.Called(ctx, transactionXDR)
	return args.Get(0).(entities.RPCSendTransactionResult), args.Error(1)
}

func (r *RPCServiceMock) GetHealth(ctx context.Context) (entities.RPCGetHealthResult, error) {
	args := r.Called(ctx)
	return args.Get(0).(entities.RPCGetHealthResult), args.Error(1)
}

func (r *RPCServiceMock) GetLedgerEntries(ctx context.Context, keys []string) (entities.RPCGetLedgerEntriesResult, error) {
	args := r.Called(ctx, keys)
	return args.Get(0).(entities.RPCGetLedgerEntriesResult), args.Error(1)
}

func (r *RPCServiceMock) GetAccountLedgerSequence(ctx context.Context, address string) (int64, error) {
	args := r.Called(ctx, address)
	return args.Get(0).(int64), args.Error(1)
}

func (r *RPCServiceMock) NetworkPassphrase() string {
	args := r.Called()
	return args.String(0)
}

// NewRPCServiceMock creates a new instance of RPCServiceMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewRPCServiceMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *RPCServiceMock {
	mock := &RPCServiceMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

type ClientMock struct {
	mock.Mock
}

var _ Client = (*ClientMock)(nil)

func (c *ClientMock) CreateAccount(ctx context.Context, params CreateAccountParams) (string, error) {
	args := c.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (c *ClientMock) AssociateToken(ctx context.Context, params AssociateTokenParams) (bool, error) {
	args := c.Called(ctx, params)
	return args.Bool(0), args.Error(1)
}

func (c *ClientMock) IsAssociated(ctx context.Context, accountID string) (bool, error) {
	args := c.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

func (c *ClientMock) Mint(ctx context.Context, amount int64) (entities.TokenOperationResult, error) {
	args := c.Called(ctx, amount)
	return args.Get(0).(entities.TokenOperationResult), args.Error(1)
}

func (c *ClientMock) Burn(ctx context.Context, params BurnParams) (entities.TokenOperationResult, error) {
	args := c.Called(ctx, params)
	return args.Get(0).(entities.TokenOperationResult), args.Error(1)
}

func (c *ClientMock) Transfer(ctx context.Context, params TransferParams) (entities.TokenOperationResult, error) {
	args := c.Called(ctx, params)
	return args.Get(0).(entities.TokenOperationResult), args.Error(1)
}

func (c *ClientMock) GetTokenBalance(ctx context.Context, accountID string) (int64, error) {
	args := c.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (c *ClientMock) GetNativeBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	args := c.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (c *ClientMock) TransactionSucceeded(ctx context.Context, txHash string) (bool, error) {
	args := c.Called(ctx, txHash)
	return args.Bool(0), args.Error(1)
}

func (c *ClientMock) SubmitTopicMessage(ctx context.Context, topicID string, payload []byte) (string, error) {
	args := c.Called(ctx, topicID, payload)
	return args.String(0), args.Error(1)
}

func (c *ClientMock) QueryTopicMessages(ctx context.Context, topicID string, limit int) ([]entities.TopicMessage, error) {
	args := c.Called(ctx, topicID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.TopicMessage), args.Error(1)
}

func (c *ClientMock) OperatorAccountID() string {
	args := c.Called()
	return args.String(0)
}

func (c *ClientMock) TokenID() entities.Asset {
	args := c.Called()
	return args.Get(0).(entities.Asset)
}

func (c *ClientMock) EnsureOperatorAssociation(ctx context.Context) error {
	args := c.Called(ctx)
	return args.Error(0)
}

func (c *ClientMock) EnsureTopicAccount(ctx context.Context, topicID string, funding decimal.Decimal) error {
	args := c.Called(ctx, topicID, funding)
	return args.Error(0)
}

func (c *ClientMock) Health(ctx context.Context) (entities.RPCGetHealthResult, error) {
	args := c.Called(ctx)
	return args.Get(0).(entities.RPCGetHealthResult), args.Error(1)
}

// NewClientMock creates a new instance of ClientMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewClientMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *ClientMock {
	mock := &ClientMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
