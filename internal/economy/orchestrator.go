// Package economy turns business events into wallet settlements and proofs.
package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/guregu/null"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/data"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
	"github.com/impactsmiles/smiles-wallet/internal/proof"
	"github.com/impactsmiles/smiles-wallet/internal/wallet"
)

const (
	eventMissionCompletion = "mission_completion"
	eventRewardPurchase    = "reward_purchase"
	eventDonation          = "donation"
	eventBadgeAward        = "badge_award"

	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
)

var ErrInvalidRequest = errors.New("invalid economy request")

type Orchestrator interface {
	CompleteMission(ctx context.Context, params CompleteMissionParams) (MissionResult, error)
	PurchaseReward(ctx context.Context, userID, rewardID string) (PurchaseResult, error)
	TransferDonation(ctx context.Context, params TransferDonationParams) (DonationResult, error)
	RecordBadgeAward(ctx context.Context, params BadgeAwardParams) (entities.ProofReceipt, error)
}

type CompleteMissionParams struct {
	UserID      string
	MissionID   string
	ProofText   string
	ProofImages []string
}

type TransferDonationParams struct {
	UserID string
	// CommunityID is empty for donations that are burned instead of paid to a community.
	CommunityID string
	Amount      int64
	PostID      string
}

type BadgeAwardParams struct {
	UserID  string
	BadgeID string
	Reason  string
}

// Settlement is the part every economy result shares. Success is true only when the ledger confirmed the
// settling transaction. ProofLogFailed does not affect Success.
type Settlement struct {
	Success        bool                   `json:"success"`
	TransactionID  string                 `json:"transactionId,omitempty"`
	ErrorKind      entities.ErrorKind     `json:"errorKind,omitempty"`
	ProofLogFailed bool                   `json:"proofLogFailed"`
	Proof          *entities.ProofReceipt `json:"proof,omitempty"`
}

type MissionResult struct {
	Settlement
	Reward     int64  `json:"reward"`
	NewBalance *int64 `json:"newBalance,omitempty"`
}

type PurchaseResult struct {
	Settlement
	Price      int64  `json:"price"`
	NewBalance *int64 `json:"newBalance,omitempty"`
}

type DonationResult struct {
	Settlement
	Amount              int64  `json:"amount"`
	NewBalance          *int64 `json:"newBalance,omitempty"`
	NewCommunityBalance *int64 `json:"newCommunityBalance,omitempty"`
}

type Options struct {
	Records        data.RecordStore
	Users          wallet.Manager
	Communities    wallet.Manager
	Proofs         proof.ProofLedger
	Locker         *OwnerLocker
	MetricsService metrics.MetricsService
}

func (o *Options) Validate() error {
	if o.Records == nil {
		return fmt.Errorf("record store cannot be nil")
	}
	if o.Users == nil || o.Users.OwnerKind() != entities.OwnerKindUser {
		return fmt.Errorf("users wallet manager must be scoped to %s", entities.OwnerKindUser)
	}
	if o.Communities == nil || o.Communities.OwnerKind() != entities.OwnerKindCommunity {
		return fmt.Errorf("communities wallet manager must be scoped to %s", entities.OwnerKindCommunity)
	}
	if o.Proofs == nil {
		return fmt.Errorf("proof ledger cannot be nil")
	}
	if o.MetricsService == nil {
		return fmt.Errorf("metrics service cannot be nil")
	}
	return nil
}

type orchestrator struct {
	records        data.RecordStore
	users          wallet.Manager
	communities    wallet.Manager
	proofs         proof.ProofLedger
	locker         *OwnerLocker
	metricsService metrics.MetricsService
}

var _ Orchestrator = (*orchestrator)(nil)

func NewOrchestrator(opts Options) (*orchestrator, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: validating orchestrator options: %w", entities.ErrConfiguration, err)
	}

	locker := opts.Locker
	if locker == nil {
		locker = NewOwnerLocker()
	}

	return &orchestrator{
		records:        opts.Records,
		users:          opts.Users,
		communities:    opts.Communities,
		proofs:         opts.Proofs,
		locker:         locker,
		metricsService: opts.MetricsService,
	}, nil
}

// CompleteMission pays the mission reward to the user: from the sponsoring community's wallet when there is one,
// otherwise by minting. The (user, mission) pair is claimed in the record store before anything settles, so a
// concurrent or repeated completion gets ErrMissionAlreadyRewarded. A failed settlement releases the claim unless
// tokens may already have moved. The caller marks the claim rewarded after a successful result.
func (o *orchestrator) CompleteMission(ctx context.Context, params CompleteMissionParams) (MissionResult, error) {
	mission, err := o.records.GetMission(ctx, params.MissionID)
	if err != nil {
		return MissionResult{Settlement: failedSettlement(err)}, fmt.Errorf("loading mission: %w", err)
	}
	result := MissionResult{Reward: mission.Reward}
	if _, err = o.records.GetUser(ctx, params.UserID); err != nil {
		result.Settlement = failedSettlement(err)
		return result, fmt.Errorf("loading user: %w", err)
	}

	logger := log.Ctx(ctx).WithField("event", eventMissionCompletion).
		WithField("user_id", params.UserID).WithField("mission_id", mission.ID)

	debitKind, debitID := entities.OwnerKindUser, params.UserID
	if mission.IsSponsored() {
		debitKind, debitID = entities.OwnerKindCommunity, mission.CommunityID.String
	}
	unlock, err := o.locker.Lock(ctx, debitKind, debitID)
	if err != nil {
		result.Settlement = failedSettlement(err)
		return result, err
	}
	defer unlock()

	if err = o.records.ClaimMission(ctx, params.UserID, mission.ID); err != nil {
		if errors.Is(err, data.ErrMissionAlreadyRewarded) {
			return result, err
		}
		result.Settlement = failedSettlement(err)
		return result, fmt.Errorf("claiming mission completion: %w", err)
	}

	var settled entities.TokenOperationResult
	if mission.IsSponsored() {
		settled, err = o.payFromCommunity(ctx, mission.CommunityID.String, params.UserID, mission.Reward)
	} else {
		settled, err = o.users.MintTo(ctx, params.UserID, mission.Reward)
	}
	if err != nil {
		result.Settlement = settlementOf(settled, err)
		o.metricsService.IncEconomyEvent(eventMissionCompletion, outcomeFailed)
		logger.Warnf("mission reward was not settled: %v", err)
		if mayHaveMoved(settled, err) {
			logger.Warnf("keeping the mission claim until %s is reconciled", settled.TransactionID)
		} else if releaseErr := o.records.ReleaseMissionClaim(context.WithoutCancel(ctx), params.UserID, mission.ID); releaseErr != nil {
			logger.Errorf("releasing mission claim: %v", releaseErr)
		}
		return result, fmt.Errorf("settling mission %s for user %s: %w", mission.ID, params.UserID, err)
	}
	result.Settlement = settlementOf(settled, nil)

	proofData := map[string]any{
		"userId":        params.UserID,
		"missionId":     mission.ID,
		"reward":        mission.Reward,
		"transactionId": settled.TransactionID,
	}
	if mission.IsSponsored() {
		proofData["communityId"] = mission.CommunityID.String
	}
	if params.ProofText != "" {
		proofData["proofText"] = params.ProofText
	}
	if len(params.ProofImages) > 0 {
		proofData["proofImages"] = params.ProofImages
	}
	o.logProof(ctx, &result.Settlement, entities.ProofKindMissionCompletion, proofData)

	result.NewBalance = o.liveTokenBalance(ctx, o.users, params.UserID, settled.NewBalance)
	o.metricsService.IncEconomyEvent(eventMissionCompletion, outcomeSucceeded)
	logger.Infof("mission reward of %d settled in %s", mission.Reward, settled.TransactionID)
	return result, nil
}

// payFromCommunity moves amount from the community's wallet, created on demand, to the user.
func (o *orchestrator) payFromCommunity(ctx context.Context, communityID, userID string, amount int64) (entities.TokenOperationResult, error) {
	source, err := o.communities.GetOrCreateWallet(ctx, communityID)
	if err != nil {
		return entities.FailedOperation(entities.KindOf(err), ""), fmt.Errorf("resolving wallet of community %s: %w", communityID, err)
	}
	if err = o.ensureFunds(ctx, o.communities, communityID, amount); err != nil {
		return entities.FailedOperation(entities.KindOf(err), ""), err
	}
	return o.users.TransferTo(ctx, wallet.TransferToParams{OwnerID: userID, Amount: amount, Source: source})
}

// PurchaseReward debits the reward price from the user: paid to the providing community, or burned for platform
// rewards. The balance is checked before any ledger mutation and again right before the debit.
func (o *orchestrator) PurchaseReward(ctx context.Context, userID, rewardID string) (PurchaseResult, error) {
	reward, err := o.records.GetReward(ctx, rewardID)
	if err != nil {
		return PurchaseResult{Settlement: failedSettlement(err)}, fmt.Errorf("loading reward: %w", err)
	}
	result := PurchaseResult{Price: reward.Price}
	if _, err = o.records.GetUser(ctx, userID); err != nil {
		result.Settlement = failedSettlement(err)
		return result, fmt.Errorf("loading user: %w", err)
	}

	logger := log.Ctx(ctx).WithField("event", eventRewardPurchase).WithField("user_id", userID).WithField("reward_id", reward.ID)

	unlock, err := o.locker.Lock(ctx, entities.OwnerKindUser, userID)
	if err != nil {
		result.Settlement = failedSettlement(err)
		return result, err
	}
	defer unlock()

	settled, err := o.debitUser(ctx, userID, reward.CommunityID, reward.Price)
	if err != nil {
		result.Settlement = settlementOf(settled, err)
		o.metricsService.IncEconomyEvent(eventRewardPurchase, outcomeFailed)
		logger.Warnf("reward purchase was not settled: %v", err)
		return result, fmt.Errorf("settling purchase of reward %s by user %s: %w", reward.ID, userID, err)
	}
	result.Settlement = settlementOf(settled, nil)

	proofData := map[string]any{
		"purpose":       "reward_purchase",
		"userId":        userID,
		"rewardId":      reward.ID,
		"price":         reward.Price,
		"transactionId": settled.TransactionID,
	}
	if reward.IsCommunityProvided() {
		proofData["communityId"] = reward.CommunityID.String
	}
	o.logProof(ctx, &result.Settlement, entities.ProofKindDonation, proofData)

	result.NewBalance = o.liveTokenBalance(ctx, o.users, userID, nil)
	o.metricsService.IncEconomyEvent(eventRewardPurchase, outcomeSucceeded)
	logger.Infof("reward purchased for %d in %s", reward.Price, settled.TransactionID)
	return result, nil
}

// TransferDonation pays amount from the user to the community, creating the community wallet first when needed.
// Without a community the amount is burned.
func (o *orchestrator) TransferDonation(ctx context.Context, params TransferDonationParams) (DonationResult, error) {
	if params.Amount <= 0 {
		return DonationResult{}, fmt.Errorf("%w: donation amount must be positive", ErrInvalidRequest)
	}
	result := DonationResult{Amount: params.Amount}

	if _, err := o.records.GetUser(ctx, params.UserID); err != nil {
		result.Settlement = failedSettlement(err)
		return result, fmt.Errorf("loading user: %w", err)
	}
	communityID := null.NewString(params.CommunityID, params.CommunityID != "")
	if communityID.Valid {
		if _, err := o.records.GetCommunity(ctx, params.CommunityID); err != nil {
			result.Settlement = failedSettlement(err)
			return result, fmt.Errorf("loading community: %w", err)
		}
	}

	logger := log.Ctx(ctx).WithField("event", eventDonation).WithField("user_id", params.UserID).WithField("post_id", params.PostID)

	unlock, err := o.locker.Lock(ctx, entities.OwnerKindUser, params.UserID)
	if err != nil {
		result.Settlement = failedSettlement(err)
		return result, err
	}
	defer unlock()

	settled, err := o.debitUser(ctx, params.UserID, communityID, params.Amount)
	if err != nil {
		result.Settlement = settlementOf(settled, err)
		o.metricsService.IncEconomyEvent(eventDonation, outcomeFailed)
		logger.Warnf("donation was not settled: %v", err)
		return result, fmt.Errorf("settling donation of %d by user %s: %w", params.Amount, params.UserID, err)
	}
	result.Settlement = settlementOf(settled, nil)

	proofData := map[string]any{
		"purpose":       "donation",
		"userId":        params.UserID,
		"postId":        params.PostID,
		"amount":        params.Amount,
		"transactionId": settled.TransactionID,
	}
	if communityID.Valid {
		proofData["communityId"] = params.CommunityID
	}
	o.logProof(ctx, &result.Settlement, entities.ProofKindDonation, proofData)

	result.NewBalance = o.liveTokenBalance(ctx, o.users, params.UserID, nil)
	if communityID.Valid {
		result.NewCommunityBalance = o.liveTokenBalance(ctx, o.communities, params.CommunityID, settled.NewBalance)
	}
	o.metricsService.IncEconomyEvent(eventDonation, outcomeSucceeded)
	logger.Infof("donation of %d settled in %s", params.Amount, settled.TransactionID)
	return result, nil
}

// debitUser takes amount from the user's wallet, paying it to communityID when set and burning it otherwise. The
// caller holds the user's lock. The balance is read again once the community wallet is resolved.
func (o *orchestrator) debitUser(ctx context.Context, userID string, communityID null.String, amount int64) (entities.TokenOperationResult, error) {
	if err := o.ensureFunds(ctx, o.users, userID, amount); err != nil {
		return entities.FailedOperation(entities.KindOf(err), ""), err
	}

	if !communityID.Valid || communityID.String == "" {
		return o.users.BurnFrom(ctx, userID, amount)
	}

	if _, err := o.communities.GetOrCreateWallet(ctx, communityID.String); err != nil {
		return entities.FailedOperation(entities.KindOf(err), ""), fmt.Errorf("resolving wallet of community %s: %w", communityID.String, err)
	}
	source, err := o.users.GetWallet(ctx, userID)
	if err != nil {
		return entities.FailedOperation(entities.KindOf(err), ""), err
	}
	if err = o.ensureFunds(ctx, o.users, userID, amount); err != nil {
		return entities.FailedOperation(entities.KindOf(err), ""), err
	}
	return o.communities.TransferTo(ctx, wallet.TransferToParams{OwnerID: communityID.String, Amount: amount, Source: source})
}

// ensureFunds reads the live balance and fails with ErrInsufficientBalance when it is below amount. An owner
// without a wallet holds nothing.
func (o *orchestrator) ensureFunds(ctx context.Context, manager wallet.Manager, ownerID string, amount int64) error {
	balance, err := manager.GetLiveBalance(ctx, ownerID)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return fmt.Errorf("reading balance of %s %s: %w", manager.OwnerKind(), ownerID, err)
	}
	if balance.Token < amount {
		return fmt.Errorf("%w: %s %s holds %d, needs %d", entities.ErrInsufficientBalance, manager.OwnerKind(), ownerID, balance.Token, amount)
	}
	return nil
}

// RecordBadgeAward only anchors a badge_award proof. Badges move no tokens.
func (o *orchestrator) RecordBadgeAward(ctx context.Context, params BadgeAwardParams) (entities.ProofReceipt, error) {
	if _, err := o.records.GetUser(ctx, params.UserID); err != nil {
		return entities.ProofReceipt{}, fmt.Errorf("loading user: %w", err)
	}

	proofData := map[string]any{"userId": params.UserID, "badgeId": params.BadgeID}
	if params.Reason != "" {
		proofData["reason"] = params.Reason
	}
	receipt, err := o.proofs.LogEvent(ctx, entities.ProofKindBadgeAward, proofData)
	if err != nil {
		o.metricsService.IncEconomyEvent(eventBadgeAward, outcomeFailed)
		return receipt, fmt.Errorf("logging badge %s for user %s: %w", params.BadgeID, params.UserID, err)
	}
	o.metricsService.IncEconomyEvent(eventBadgeAward, outcomeSucceeded)
	return receipt, nil
}

// logProof anchors a proof for a settled event. A failure is only flagged on the settlement.
func (o *orchestrator) logProof(ctx context.Context, settlement *Settlement, kind entities.ProofKind, proofData map[string]any) {
	receipt, err := o.proofs.LogEvent(ctx, kind, proofData)
	if err != nil {
		settlement.ProofLogFailed = true
		log.Ctx(ctx).WithField("proof_kind", string(kind)).WithField("proof_hash", receipt.ProofHash).
			Warnf("settled without a proof, it will be retried: %v", err)
		return
	}
	settlement.Proof = &receipt
}

// liveTokenBalance re-reads the owner's balance, falling back to the settlement's balance when the read fails.
func (o *orchestrator) liveTokenBalance(ctx context.Context, manager wallet.Manager, ownerID string, fallback *int64) *int64 {
	balance, err := manager.GetLiveBalance(ctx, ownerID)
	if err != nil {
		log.Ctx(ctx).Warnf("re-reading balance of %s %s: %v", manager.OwnerKind(), ownerID, err)
		return fallback
	}
	return &balance.Token
}

// mayHaveMoved reports whether a failed settlement could still have moved tokens: a mint stranded with the operator,
// or a submitted transaction whose receipt never arrived.
func mayHaveMoved(result entities.TokenOperationResult, err error) bool {
	if errors.Is(err, entities.ErrTransferAfterMintFailed) {
		return true
	}
	return errors.Is(err, entities.ErrLedgerUnavailable) && result.TransactionID != ""
}

func settlementOf(result entities.TokenOperationResult, err error) Settlement {
	if err != nil {
		kind := result.ErrorKind
		if kind == entities.ErrorKindNone {
			kind = entities.KindOf(err)
		}
		return Settlement{TransactionID: result.TransactionID, ErrorKind: kind}
	}
	return Settlement{Success: true, TransactionID: result.TransactionID}
}

func failedSettlement(err error) Settlement {
	return Settlement{ErrorKind: entities.KindOf(err)}
}
