package auth

import (
	"net/http"

	"github.com/stretchr/testify/mock"
)

type HTTPRequestVerifierMock struct {
	mock.Mock
}

var _ HTTPRequestVerifier = (*HTTPRequestVerifierMock)(nil)

func (m *HTTPRequestVerifierMock) VerifyHTTPRequest(req *http.Request) (string, error) {
	args := m.Called(req)
	return args.String(0), args.Error(1)
}

func NewHTTPRequestVerifierMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *HTTPRequestVerifierMock {
	mock := &HTTPRequestVerifierMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
