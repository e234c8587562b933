package keyvault

import (
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stretchr/testify/mock"
)

type KeyVaultMock struct {
	mock.Mock
}

var _ KeyVault = (*KeyVaultMock)(nil)

func (m *KeyVaultMock) GenerateKeyPair() (*keypair.Full, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keypair.Full), args.Error(1)
}

func (m *KeyVaultMock) Encrypt(privateKey, publicKey string) (string, error) {
	args := m.Called(privateKey, publicKey)
	return args.String(0), args.Error(1)
}

func (m *KeyVaultMock) Decrypt(ciphertext, publicKey string) (*keypair.Full, error) {
	args := m.Called(ciphertext, publicKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keypair.Full), args.Error(1)
}

// NewKeyVaultMock creates a new instance of KeyVaultMock. It also registers a testing interface on the mock and a
// cleanup function to assert the mocks expectations.
func NewKeyVaultMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *KeyVaultMock {
	m := &KeyVaultMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
