package economy

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
)

type OrchestratorMock struct {
	mock.Mock
}

var _ Orchestrator = (*OrchestratorMock)(nil)

func (o *OrchestratorMock) CompleteMission(ctx context.Context, params CompleteMissionParams) (MissionResult, error) {
	args := o.Called(ctx, params)
	return args.Get(0).(MissionResult), args.Error(1)
}

func (o *OrchestratorMock) PurchaseReward(ctx context.Context, userID, rewardID string) (PurchaseResult, error) {
	args := o.Called(ctx, userID, rewardID)
	return args.Get(0).(PurchaseResult), args.Error(1)
}

func (o *OrchestratorMock) TransferDonation(ctx context.Context, params TransferDonationParams) (DonationResult, error) {
	args := o.Called(ctx, params)
	return args.Get(0).(DonationResult), args.Error(1)
}

func (o *OrchestratorMock) RecordBadgeAward(ctx context.Context, params BadgeAwardParams) (entities.ProofReceipt, error) {
	args := o.Called(ctx, params)
	return args.Get(0).(entities.ProofReceipt), args.Error(1)
}

// NewOrchestratorMock creates a new instance of OrchestratorMock. It also registers a testing interface on the mock
// and a cleanup function to assert the mocks expectations.
func NewOrchestratorMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *OrchestratorMock {
	mock := &OrchestratorMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
