package httphandler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/guregu/null"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/data"
	"github.com/impactsmiles/smiles-wallet/internal/economy"
)

// EconomyHandler exposes the economy events. It is the caller the orchestrator expects: the domain records are
// written here, and only once the settlement succeeded.
type EconomyHandler struct {
	Orchestrator economy.Orchestrator
	Records      data.RecordStore
	AppTracker   apptracker.AppTracker
}

type CompleteMissionRequest struct {
	MissionID   string   `json:"-"           validate:"required"`
	UserID      string   `json:"userId"      validate:"required"`
	ProofText   string   `json:"proofText"   validate:"max=4096"`
	ProofImages []string `json:"proofImages" validate:"max=10,dive,url"`
}

type PurchaseRewardRequest struct {
	RewardID string `json:"-"      validate:"required"`
	UserID   string `json:"userId" validate:"required"`
}

type TransferDonationRequest struct {
	UserID      string `json:"userId"      validate:"required"`
	CommunityID string `json:"communityId"`
	Amount      int64  `json:"amount"      validate:"gt=0,lte=922337203685"`
	PostID      string `json:"postId"      validate:"required"`
}

type AwardBadgeRequest struct {
	BadgeID string `json:"-"      validate:"required"`
	UserID  string `json:"userId" validate:"required"`
	Reason  string `json:"reason" validate:"max=512"`
}

func (h EconomyHandler) CompleteMission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reqBody := CompleteMissionRequest{MissionID: chi.URLParam(r, "missionID")}
	if httpErr := DecodeJSONAndValidate(ctx, r, &reqBody, h.AppTracker); httpErr != nil {
		httpErr.Render(w)
		return
	}

	result, err := h.Orchestrator.CompleteMission(ctx, economy.CompleteMissionParams{
		UserID:      reqBody.UserID,
		MissionID:   reqBody.MissionID,
		ProofText:   reqBody.ProofText,
		ProofImages: reqBody.ProofImages,
	})
	if err != nil {
		economyErrorResponse(ctx, err, result.Settlement, h.AppTracker).Render(w)
		return
	}

	completion := data.MissionCompletion{
		UserID:        reqBody.UserID,
		MissionID:     reqBody.MissionID,
		TransactionID: result.TransactionID,
		ProofText:     null.NewString(reqBody.ProofText, reqBody.ProofText != ""),
		ProofImages:   reqBody.ProofImages,
	}
	if err = h.Records.MarkMissionRewarded(ctx, completion); err != nil {
		h.reportRecordFailure(ctx, fmt.Errorf("marking mission %s rewarded for user %s after %s: %w", reqBody.MissionID, reqBody.UserID, result.TransactionID, err))
	}
	h.syncSmiles(ctx, reqBody.UserID, result.NewBalance)

	httpjson.Render(w, result, httpjson.JSON)
}

func (h EconomyHandler) PurchaseReward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reqBody := PurchaseRewardRequest{RewardID: chi.URLParam(r, "rewardID")}
	if httpErr := DecodeJSONAndValidate(ctx, r, &reqBody, h.AppTracker); httpErr != nil {
		httpErr.Render(w)
		return
	}

	result, err := h.Orchestrator.PurchaseReward(ctx, reqBody.UserID, reqBody.RewardID)
	if err != nil {
		economyErrorResponse(ctx, err, result.Settlement, h.AppTracker).Render(w)
		return
	}

	purchase := data.RewardPurchase{
		UserID:        reqBody.UserID,
		RewardID:      reqBody.RewardID,
		Price:         result.Price,
		TransactionID: result.TransactionID,
	}
	if err = h.Records.RecordRewardPurchase(ctx, purchase); err != nil {
		h.reportRecordFailure(ctx, fmt.Errorf("recording purchase of reward %s by user %s after %s: %w", reqBody.RewardID, reqBody.UserID, result.TransactionID, err))
	}
	h.syncSmiles(ctx, reqBody.UserID, result.NewBalance)

	httpjson.Render(w, result, httpjson.JSON)
}

func (h EconomyHandler) TransferDonation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody TransferDonationRequest
	if httpErr := DecodeJSONAndValidate(ctx, r, &reqBody, h.AppTracker); httpErr != nil {
		httpErr.Render(w)
		return
	}

	result, err := h.Orchestrator.TransferDonation(ctx, economy.TransferDonationParams{
		UserID:      reqBody.UserID,
		CommunityID: reqBody.CommunityID,
		Amount:      reqBody.Amount,
		PostID:      reqBody.PostID,
	})
	if err != nil {
		economyErrorResponse(ctx, err, result.Settlement, h.AppTracker).Render(w)
		return
	}

	donation := data.Donation{
		UserID:        reqBody.UserID,
		CommunityID:   null.NewString(reqBody.CommunityID, reqBody.CommunityID != ""),
		PostID:        reqBody.PostID,
		Amount:        reqBody.Amount,
		TransactionID: result.TransactionID,
	}
	if err = h.Records.RecordDonation(ctx, donation); err != nil {
		h.reportRecordFailure(ctx, fmt.Errorf("recording donation by user %s after %s: %w", reqBody.UserID, result.TransactionID, err))
	}
	h.syncSmiles(ctx, reqBody.UserID, result.NewBalance)

	httpjson.Render(w, result, httpjson.JSON)
}

func (h EconomyHandler) AwardBadge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reqBody := AwardBadgeRequest{BadgeID: chi.URLParam(r, "badgeID")}
	if httpErr := DecodeJSONAndValidate(ctx, r, &reqBody, h.AppTracker); httpErr != nil {
		httpErr.Render(w)
		return
	}

	receipt, err := h.Orchestrator.RecordBadgeAward(ctx, economy.BadgeAwardParams{
		UserID:  reqBody.UserID,
		BadgeID: reqBody.BadgeID,
		Reason:  reqBody.Reason,
	})
	if err != nil {
		economyErrorResponse(ctx, err, economy.Settlement{}, h.AppTracker).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, receipt, httpjson.JSON)
}

// syncSmiles mirrors the confirmed token balance onto the user record.
func (h EconomyHandler) syncSmiles(ctx context.Context, userID string, balance *int64) {
	if balance == nil {
		return
	}
	if err := h.Records.UpdateUserSmiles(ctx, userID, *balance); err != nil {
		log.Ctx(ctx).Warnf("updating smiles of user %s: %v", userID, err)
	}
}

// reportRecordFailure flags a settled event whose record could not be written. The response still reports the
// settlement, which already happened on the ledger.
func (h EconomyHandler) reportRecordFailure(ctx context.Context, err error) {
	log.Ctx(ctx).Error(err)
	if h.AppTracker != nil {
		h.AppTracker.CaptureException(err)
	}
}
