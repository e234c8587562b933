package proof

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
)

type StoreMock struct {
	mock.Mock
}

var _ Store = (*StoreMock)(nil)

func (s *StoreMock) Insert(ctx context.Context, record *entities.ProofRecord) error {
	args := s.Called(ctx, record)
	return args.Error(0)
}

func (s *StoreMock) MarkSubmitted(ctx context.Context, id, messageID string) error {
	args := s.Called(ctx, id, messageID)
	return args.Error(0)
}

func (s *StoreMock) MarkAttemptFailed(ctx context.Context, id string, attemptErr error) error {
	args := s.Called(ctx, id, attemptErr)
	return args.Error(0)
}

func (s *StoreMock) ListPending(ctx context.Context, limit int) ([]*entities.ProofRecord, error) {
	args := s.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ProofRecord), args.Error(1)
}

func (s *StoreMock) GetByHash(ctx context.Context, kind entities.ProofKind, proofHash string) (*entities.ProofRecord, error) {
	args := s.Called(ctx, kind, proofHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProofRecord), args.Error(1)
}

func (s *StoreMock) GetByHashes(ctx context.Context, kind entities.ProofKind, proofHashes []string) ([]*entities.ProofRecord, error) {
	args := s.Called(ctx, kind, proofHashes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ProofRecord), args.Error(1)
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

type ProofLedgerMock struct {
	mock.Mock
}

var _ ProofLedger = (*ProofLedgerMock)(nil)

func (p *ProofLedgerMock) LogEvent(ctx context.Context, kind entities.ProofKind, data map[string]any) (entities.ProofReceipt, error) {
	args := p.Called(ctx, kind, data)
	return args.Get(0).(entities.ProofReceipt), args.Error(1)
}

func (p *ProofLedgerMock) Verify(ctx context.Context, kind entities.ProofKind, proofHash string) (bool, error) {
	args := p.Called(ctx, kind, proofHash)
	return args.Bool(0), args.Error(1)
}

func (p *ProofLedgerMock) Aggregate(ctx context.Context, kind entities.ProofKind) (Aggregate, error) {
	args := p.Called(ctx, kind)
	return args.Get(0).(Aggregate), args.Error(1)
}

func (p *ProofLedgerMock) RetryPending(ctx context.Context, limit int) (int, error) {
	args := p.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

// NewProofLedgerMock creates a new instance of ProofLedgerMock. It also registers a testing interface on the mock
// and a cleanup function to assert the mocks expectations.
func NewProofLedgerMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *ProofLedgerMock {
	mock := &ProofLedgerMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
