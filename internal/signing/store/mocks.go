package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type KeypairStoreMock struct {
	mock.Mock
}

var _ KeypairStore = (*KeypairStoreMock)(nil)

func (s *KeypairStoreMock) GetByPublicKey(ctx context.Context, publicKey string) (*Keypair, error) {
	args := s.Called(ctx, publicKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Keypair), args.Error(1)
}

func (s *KeypairStoreMock) Insert(ctx context.Context, publicKey string, encryptedPrivateKey []byte) error {
	args := s.Called(ctx, publicKey, encryptedPrivateKey)
	return args.Error(0)
}

// NewKeypairStoreMock creates a new instance of KeypairStoreMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewKeypairStoreMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *KeypairStoreMock {
	mock := &KeypairStoreMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
