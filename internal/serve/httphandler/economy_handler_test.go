package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/guregu/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/data"
	"github.com/impactsmiles/smiles-wallet/internal/economy"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/ledger"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

type economyHandlerFixture struct {
	orchestrator *economy.OrchestratorMock
	records      *data.RecordStoreMock
	appTracker   *apptracker.MockAppTracker
	router       chi.Router
}

func newEconomyHandlerFixture(t *testing.T) economyHandlerFixture {
	t.Helper()
	f := economyHandlerFixture{
		orchestrator: economy.NewOrchestratorMock(t),
		records:      data.NewRecordStoreMock(t),
		appTracker:   apptracker.NewMockAppTracker(t),
	}
	handler := EconomyHandler{Orchestrator: f.orchestrator, Records: f.records, AppTracker: f.appTracker}

	r := chi.NewRouter()
	r.Post("/missions/{missionID}/complete", handler.CompleteMission)
	r.Post("/rewards/{rewardID}/purchase", handler.PurchaseReward)
	r.Post("/donations", handler.TransferDonation)
	r.Post("/badges/{badgeID}/award", handler.AwardBadge)
	f.router = r
	return f
}

func (f economyHandlerFixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, path, strings.NewReader(body))
	require.NoError(t, err)
	rw := httptest.NewRecorder()
	f.router.ServeHTTP(rw, req)
	return rw
}

func decodeBody(t *testing.T, rw *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	return body
}

func TestEconomyHandler_CompleteMission(t *testing.T) {
	t.Run("records_the_completion_after_settlement", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)
		params := economy.CompleteMissionParams{UserID: "u1", MissionID: "m1", ProofText: "planted", ProofImages: []string{"https://img.example/1.png"}}
		f.orchestrator.
			On("CompleteMission", mock.Anything, params).
			Return(economy.MissionResult{
				Settlement: economy.Settlement{Success: true, TransactionID: "tx-1"},
				Reward:     10,
				NewBalance: utils.PointOf(int64(60)),
			}, nil).
			Once()
		f.records.
			On("MarkMissionRewarded", mock.Anything, data.MissionCompletion{
				UserID:        "u1",
				MissionID:     "m1",
				TransactionID: "tx-1",
				ProofText:     null.StringFrom("planted"),
				ProofImages:   []string{"https://img.example/1.png"},
			}).
			Return(nil).
			Once()
		f.records.On("UpdateUserSmiles", mock.Anything, "u1", int64(60)).Return(nil).Once()

		rw := f.post(t, "/missions/m1/complete", `{"userId":"u1","proofText":"planted","proofImages":["https://img.example/1.png"]}`)

		assert.Equal(t, http.StatusOK, rw.Code)
		body := decodeBody(t, rw)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "tx-1", body["transactionId"])
		assert.Equal(t, float64(60), body["newBalance"])
	})

	t.Run("already_rewarded_is_a_conflict", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)
		f.orchestrator.
			On("CompleteMission", mock.Anything, economy.CompleteMissionParams{UserID: "u1", MissionID: "m1"}).
			Return(economy.MissionResult{}, fmt.Errorf("checking mission: %w", data.ErrMissionAlreadyRewarded)).
			Once()

		rw := f.post(t, "/missions/m1/complete", `{"userId":"u1"}`)

		assert.Equal(t, http.StatusConflict, rw.Code)
		f.records.AssertNotCalled(t, "MarkMissionRewarded", mock.Anything, mock.Anything)
	})

	t.Run("missing_user_is_rejected_before_the_economy", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)

		rw := f.post(t, "/missions/m1/complete", `{"proofText":"x"}`)

		assert.Equal(t, http.StatusBadRequest, rw.Code)
		body := decodeBody(t, rw)
		assert.Equal(t, "Validation error.", body["error"])
		assert.Equal(t, map[string]any{"userID": "This field is required"}, body["extras"])
	})

	t.Run("malformed_body", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)

		rw := f.post(t, "/missions/m1/complete", `{"userId":`)

		assert.Equal(t, http.StatusBadRequest, rw.Code)
		assert.Equal(t, "Invalid request body.", decodeBody(t, rw)["error"])
	})

	t.Run("record_write_failure_still_reports_the_settlement", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)
		f.orchestrator.
			On("CompleteMission", mock.Anything, mock.Anything).
			Return(economy.MissionResult{Settlement: economy.Settlement{Success: true, TransactionID: "tx-2"}, Reward: 5}, nil).
			Once()
		f.records.On("MarkMissionRewarded", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
		f.appTracker.On("CaptureException", mock.Anything).Return().Once()

		rw := f.post(t, "/missions/m1/complete", `{"userId":"u1"}`)

		assert.Equal(t, http.StatusOK, rw.Code)
		assert.Equal(t, "tx-2", decodeBody(t, rw)["transactionId"])
	})
}

func TestEconomyHandler_PurchaseReward(t *testing.T) {
	t.Run("records_the_purchase", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)
		f.orchestrator.
			On("PurchaseReward", mock.Anything, "u1", "r1").
			Return(economy.PurchaseResult{
				Settlement: economy.Settlement{Success: true, TransactionID: "tx-3"},
				Price:      20,
				NewBalance: utils.PointOf(int64(30)),
			}, nil).
			Once()
		f.records.
			On("RecordRewardPurchase", mock.Anything, data.RewardPurchase{UserID: "u1", RewardID: "r1", Price: 20, TransactionID: "tx-3"}).
			Return(nil).
			Once()
		f.records.On("UpdateUserSmiles", mock.Anything, "u1", int64(30)).Return(nil).Once()

		rw := f.post(t, "/rewards/r1/purchase", `{"userId":"u1"}`)

		assert.Equal(t, http.StatusOK, rw.Code)
		assert.Equal(t, float64(20), decodeBody(t, rw)["price"])
	})

	t.Run("insufficient_balance", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)
		err := fmt.Errorf("user u1 holds 5, needs 20: %w", entities.ErrInsufficientBalance)
		f.orchestrator.
			On("PurchaseReward", mock.Anything, "u1", "r1").
			Return(economy.PurchaseResult{Settlement: economy.Settlement{ErrorKind: entities.ErrorKindInsufficientBalance}, Price: 20}, err).
			Once()

		rw := f.post(t, "/rewards/r1/purchase", `{"userId":"u1"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rw.Code)
		body := decodeBody(t, rw)
		assert.Equal(t, "Insufficient balance.", body["error"])
		assert.Equal(t, map[string]any{"errorKind": "insufficient_balance"}, body["extras"])
	})

	t.Run("unknown_reward", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)
		f.orchestrator.
			On("PurchaseReward", mock.Anything, "u1", "nope").
			Return(economy.PurchaseResult{}, fmt.Errorf("reward nope: %w", entities.ErrNotFound)).
			Once()

		rw := f.post(t, "/rewards/nope/purchase", `{"userId":"u1"}`)

		assert.Equal(t, http.StatusNotFound, rw.Code)
	})
}

func TestEconomyHandler_TransferDonation(t *testing.T) {
	t.Run("community_donation", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)
		f.orchestrator.
			On("TransferDonation", mock.Anything, economy.TransferDonationParams{UserID: "u1", CommunityID: "c1", Amount: 7, PostID: "p1"}).
			Return(economy.DonationResult{
				Settlement:          economy.Settlement{Success: true, TransactionID: "tx-4"},
				Amount:              7,
				NewBalance:          utils.PointOf(int64(3)),
				NewCommunityBalance: utils.PointOf(int64(107)),
			}, nil).
			Once()
		f.records.
			On("RecordDonation", mock.Anything, data.Donation{UserID: "u1", CommunityID: null.StringFrom("c1"), PostID: "p1", Amount: 7, TransactionID: "tx-4"}).
			Return(nil).
			Once()
		f.records.On("UpdateUserSmiles", mock.Anything, "u1", int64(3)).Return(nil).Once()

		rw := f.post(t, "/donations", `{"userId":"u1","communityId":"c1","amount":7,"postId":"p1"}`)

		assert.Equal(t, http.StatusOK, rw.Code)
		assert.Equal(t, float64(107), decodeBody(t, rw)["newCommunityBalance"])
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)

		rw := f.post(t, "/donations", `{"userId":"u1","amount":0,"postId":"p1"}`)

		assert.Equal(t, http.StatusBadRequest, rw.Code)
		assert.Equal(t, map[string]any{"amount": "Should be greater than 0"}, decodeBody(t, rw)["extras"])
	})

	t.Run("amount_beyond_token_range", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)

		body := fmt.Sprintf(`{"userId":"u1","amount":%d,"postId":"p1"}`, ledger.MaxTokenAmount+1)
		rw := f.post(t, "/donations", body)

		assert.Equal(t, http.StatusBadRequest, rw.Code)
		assert.Equal(t, map[string]any{"amount": fmt.Sprintf("Should be less than or equal %d", ledger.MaxTokenAmount)}, decodeBody(t, rw)["extras"])
		f.orchestrator.AssertNotCalled(t, "TransferDonation", mock.Anything, mock.Anything)
	})

	t.Run("ledger_unavailable", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)
		f.orchestrator.
			On("TransferDonation", mock.Anything, mock.Anything).
			Return(economy.DonationResult{Settlement: economy.Settlement{TransactionID: "tx-5"}}, fmt.Errorf("paying: %w", entities.ErrLedgerUnavailable)).
			Once()

		rw := f.post(t, "/donations", `{"userId":"u1","amount":2,"postId":"p1"}`)

		assert.Equal(t, http.StatusServiceUnavailable, rw.Code)
		assert.Equal(t, map[string]any{"errorKind": "ledger_unavailable", "transactionId": "tx-5"}, decodeBody(t, rw)["extras"])
	})

	t.Run("unexpected_error", func(t *testing.T) {
		f := newEconomyHandlerFixture(t)
		f.orchestrator.
			On("TransferDonation", mock.Anything, mock.Anything).
			Return(economy.DonationResult{}, errors.New("boom")).
			Once()
		f.appTracker.On("CaptureException", mock.Anything).Return().Once()

		rw := f.post(t, "/donations", `{"userId":"u1","amount":2,"postId":"p1"}`)

		assert.Equal(t, http.StatusInternalServerError, rw.Code)
	})
}

func TestEconomyHandler_AwardBadge(t *testing.T) {
	f := newEconomyHandlerFixture(t)
	f.orchestrator.
		On("RecordBadgeAward", mock.Anything, economy.BadgeAwardParams{UserID: "u1", BadgeID: "b1", Reason: "streak"}).
		Return(entities.ProofReceipt{ProofID: "msg-1", ProofHash: "abc"}, nil).
		Once()

	rw := f.post(t, "/badges/b1/award", `{"userId":"u1","reason":"streak"}`)

	assert.Equal(t, http.StatusCreated, rw.Code)
	assert.Equal(t, map[string]any{"proofId": "msg-1", "proofHash": "abc"}, decodeBody(t, rw))
}
