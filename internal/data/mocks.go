package data

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type RecordStoreMock struct {
	mock.Mock
}

var _ RecordStore = (*RecordStoreMock)(nil)

func (r *RecordStoreMock) GetMission(ctx context.Context, missionID string) (*Mission, error) {
	args := r.Called(ctx, missionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Mission), args.Error(1)
}

func (r *RecordStoreMock) GetUser(ctx context.Context, userID string) (*User, error) {
	args := r.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (r *RecordStoreMock) GetReward(ctx context.Context, rewardID string) (*Reward, error) {
	args := r.Called(ctx, rewardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reward), args.Error(1)
}

func (r *RecordStoreMock) GetCommunity(ctx context.Context, communityID string) (*Community, error) {
	args := r.Called(ctx, communityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Community), args.Error(1)
}

func (r *RecordStoreMock) ClaimMission(ctx context.Context, userID, missionID string) error {
	args := r.Called(ctx, userID, missionID)
	return args.Error(0)
}

func (r *RecordStoreMock) ReleaseMissionClaim(ctx context.Context, userID, missionID string) error {
	args := r.Called(ctx, userID, missionID)
	return args.Error(0)
}

func (r *RecordStoreMock) MarkMissionRewarded(ctx context.Context, completion MissionCompletion) error {
	args := r.Called(ctx, completion)
	return args.Error(0)
}

func (r *RecordStoreMock) RecordRewardPurchase(ctx context.Context, purchase RewardPurchase) error {
	args := r.Called(ctx, purchase)
	return args.Error(0)
}

func (r *RecordStoreMock) RecordDonation(ctx context.Context, donation Donation) error {
	args := r.Called(ctx, donation)
	return args.Error(0)
}

func (r *RecordStoreMock) UpdateUserSmiles(ctx context.Context, userID string, smiles int64) error {
	args := r.Called(ctx, userID, smiles)
	return args.Error(0)
}

// NewRecordStoreMock creates a new instance of RecordStoreMock. It also registers a testing interface on the mock
// and a cleanup function to assert the mocks expectations.
func NewRecordStoreMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *RecordStoreMock {
	mock := &RecordStoreMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
