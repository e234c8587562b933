package wallet

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
)

type StoreMock struct {
	mock.Mock
}

var _ Store = (*StoreMock)(nil)

func (s *StoreMock) Insert(ctx context.Context, wallet *entities.Wallet) error {
	args := s.Called(ctx, wallet)
	return args.Error(0)
}

func (s *StoreMock) GetActive(ctx context.Context, ownerKind entities.OwnerKind, ownerID string) (*entities.Wallet, error) {
	args := s.Called(ctx, ownerKind, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (s *StoreMock) GetByAccountID(ctx context.Context, accountID string) (*entities.Wallet, error) {
	args := s.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (s *StoreMock) UpdateBalances(ctx context.Context, walletID string, native decimal.Decimal, token int64) error {
	args := s.Called(ctx, walletID, native, token)
	return args.Error(0)
}

func (s *StoreMock) Deactivate(ctx context.Context, ownerKind entities.OwnerKind, ownerID string) error {
	args := s.Called(ctx, ownerKind, ownerID)
	return args.Error(0)
}

// NewStoreMock creates a new instance of StoreMock. It also registers a testing interface on the mock and a cleanup
// function to assert the mocks expectations.
func NewStoreMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *StoreMock {
	mock := &StoreMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

type JournalMock struct {
	mock.Mock
}

var _ Journal = (*JournalMock)(nil)

func (j *JournalMock) Record(ctx context.Context, op *TokenOperation) error {
	args := j.Called(ctx, op)
	return args.Error(0)
}

func (j *JournalMock) ListByStatus(ctx context.Context, status OperationStatus, limit int) ([]*TokenOperation, error) {
	args := j.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*TokenOperation), args.Error(1)
}

func (j *JournalMock) Resolve(ctx context.Context, id string, from OperationStatus, resolve ResolveFunc) (bool, error) {
	args := j.Called(ctx, id, from, resolve)
	return args.Bool(0), args.Error(1)
}

// NewJournalMock creates a new instance of JournalMock. It also registers a testing interface on the mock and a
// cleanup function to assert the mocks expectations.
func NewJournalMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *JournalMock {
	mock := &JournalMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

type AssociationCacheMock struct {
	mock.Mock
}

var _ AssociationCache = (*AssociationCacheMock)(nil)

func (a *AssociationCacheMock) IsKnownAssociated(ctx context.Context, tokenID, accountID string) (bool, error) {
	args := a.Called(ctx, tokenID, accountID)
	return args.Bool(0), args.Error(1)
}

func (a *AssociationCacheMock) MarkAssociated(ctx context.Context, tokenID, accountID string) error {
	args := a.Called(ctx, tokenID, accountID)
	return args.Error(0)
}

// NewAssociationCacheMock creates a new instance of AssociationCacheMock. It also registers a testing interface on
// the mock and a cleanup function to assert the mocks expectations.
func NewAssociationCacheMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *AssociationCacheMock {
	mock := &AssociationCacheMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

type ManagerMock struct {
	mock.Mock
}

var _ Manager = (*ManagerMock)(nil)

func (m *ManagerMock) OwnerKind() entities.OwnerKind {
	args := m.Called()
	return args.Get(0).(entities.OwnerKind)
}

func (m *ManagerMock) CreateWallet(ctx context.Context, ownerID string) (*entities.Wallet, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *ManagerMock) GetWallet(ctx context.Context, ownerID string) (*entities.Wallet, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *ManagerMock) DeactivateWallet(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

func (m *ManagerMock) GetOrCreateWallet(ctx context.Context, ownerID string) (*entities.Wallet, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *ManagerMock) GetLiveBalance(ctx context.Context, ownerID string) (entities.Balance, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(entities.Balance), args.Error(1)
}

func (m *ManagerMock) AssociateToken(ctx context.Context, ownerID string, tokenID entities.Asset) (bool, error) {
	args := m.Called(ctx, ownerID, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *ManagerMock) MintTo(ctx context.Context, ownerID string, amount int64) (entities.TokenOperationResult, error) {
	args := m.Called(ctx, ownerID, amount)
	return args.Get(0).(entities.TokenOperationResult), args.Error(1)
}

func (m *ManagerMock) TransferTo(ctx context.Context, params TransferToParams) (entities.TokenOperationResult, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(entities.TokenOperationResult), args.Error(1)
}

func (m *ManagerMock) BurnFrom(ctx context.Context, ownerID string, amount int64) (entities.TokenOperationResult, error) {
	args := m.Called(ctx, ownerID, amount)
	return args.Get(0).(entities.TokenOperationResult), args.Error(1)
}

// NewManagerMock creates a new instance of ManagerMock. It also registers a testing interface on the mock and a
// cleanup function to assert the mocks expectations.
func NewManagerMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *ManagerMock {
	mock := &ManagerMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
