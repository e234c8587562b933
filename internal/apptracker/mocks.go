package apptracker

import (
	"github.com/stretchr/testify/mock"
)

type MockAppTracker struct {
	mock.Mock
}

var _ AppTracker = (*MockAppTracker)(nil)

func (sv *MockAppTracker) CaptureMessage(message string) {
	sv.Called(message)
}

func (sv *MockAppTracker) CaptureException(exception error) {
	sv.Called(exception)
}

func (sv *MockAppTracker) CaptureExceptionWithTags(exception error, tags map[string]string) {
	sv.Called(exception, tags)
}

// NewMockAppTracker creates a new instance of MockAppTracker. It also registers a testing interface on the mock and a
// cleanup function to assert the mocks expectations.
func NewMockAppTracker(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockAppTracker {
	m := &MockAppTracker{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
