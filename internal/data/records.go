package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

var ErrMissionAlreadyRewarded = errors.New("mission already rewarded for user")

// RecordStore is the CRUD surface the economy flows read from. A mission is claimed before it settles; the other
// writes run only after a settlement succeeded.
type RecordStore interface {
	GetMission(ctx context.Context, missionID string) (*Mission, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	GetReward(ctx context.Context, rewardID string) (*Reward, error)
	GetCommunity(ctx context.Context, communityID string) (*Community, error)
	ClaimMission(ctx context.Context, userID, missionID string) error
	ReleaseMissionClaim(ctx context.Context, userID, missionID string) error
	MarkMissionRewarded(ctx context.Context, completion MissionCompletion) error
	RecordRewardPurchase(ctx context.Context, purchase RewardPurchase) error
	RecordDonation(ctx context.Context, donation Donation) error
	UpdateUserSmiles(ctx context.Context, userID string, smiles int64) error
}

type RecordModel struct {
	DB             *sqlx.DB
	MetricsService metrics.MetricsService
}

var _ RecordStore = (*RecordModel)(nil)

func NewRecordModel(db *sqlx.DB, metricsService metrics.MetricsService) (*RecordModel, error) {
	if db == nil {
		return nil, errors.New("sqlx handle must be initialized")
	}
	if metricsService == nil {
		return nil, errors.New("metrics service must be initialized")
	}
	return &RecordModel{DB: db, MetricsService: metricsService}, nil
}

func (m *RecordModel) observe(queryType, table string, start time.Time, err error) {
	m.MetricsService.ObserveDBQueryDuration(queryType, table, time.Since(start).Seconds())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		m.MetricsService.IncDBQueryError(queryType, table, utils.GetDBErrorType(err))
		return
	}
	m.MetricsService.IncDBQuery(queryType, table)
}

// get loads one row of table by id into dest. A missing row wraps entities.ErrNotFound.
func (m *RecordModel) get(ctx context.Context, dest any, queryType, table, query, id string) error {
	start := time.Now()
	err := m.DB.GetContext(ctx, dest, query, id)
	m.observe(queryType, table, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", table, id, entities.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("getting %s %s: %w", table, id, err)
	}
	return nil
}

func (m *RecordModel) GetMission(ctx context.Context, missionID string) (*Mission, error) {
	var mission Mission
	const query = `SELECT id, reward, community_id, created_at FROM missions WHERE id = $1`
	if err := m.get(ctx, &mission, "GetMission", "missions", query, missionID); err != nil {
		return nil, err
	}
	return &mission, nil
}

func (m *RecordModel) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	const query = `SELECT id, smiles, created_at, updated_at FROM users WHERE id = $1`
	if err := m.get(ctx, &user, "GetUser", "users", query, userID); err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *RecordModel) GetReward(ctx context.Context, rewardID string) (*Reward, error) {
	var reward Reward
	const query = `SELECT id, price, community_id, created_at FROM rewards WHERE id = $1`
	if err := m.get(ctx, &reward, "GetReward", "rewards", query, rewardID); err != nil {
		return nil, err
	}
	return &reward, nil
}

func (m *RecordModel) GetCommunity(ctx context.Context, communityID string) (*Community, error) {
	var community Community
	const query = `SELECT id, name, created_at FROM communities WHERE id = $1`
	if err := m.get(ctx, &community, "GetCommunity", "communities", query, communityID); err != nil {
		return nil, err
	}
	return &community, nil
}

// ClaimMission inserts the (user, mission) row in the settling state. Only one caller can hold the claim: any
// existing row, settling or rewarded, returns ErrMissionAlreadyRewarded.
func (m *RecordModel) ClaimMission(ctx context.Context, userID, missionID string) error {
	const query = `
		INSERT INTO user_missions (user_id, mission_id, status)
		VALUES ($1, $2, 'settling')
		ON CONFLICT (user_id, mission_id) DO NOTHING
	`
	start := time.Now()
	result, err := m.DB.ExecContext(ctx, query, userID, missionID)
	m.observe("ClaimMission", "user_missions", start, err)
	if err != nil {
		return fmt.Errorf("claiming mission %s for user %s: %w", missionID, userID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting claimed missions: %w", err)
	}
	if rows == 0 {
		return ErrMissionAlreadyRewarded
	}
	return nil
}

// ReleaseMissionClaim drops a claim whose settlement failed, so the mission can be completed again. Rewarded rows
// are left alone.
func (m *RecordModel) ReleaseMissionClaim(ctx context.Context, userID, missionID string) error {
	const query = `DELETE FROM user_missions WHERE user_id = $1 AND mission_id = $2 AND status = 'settling'`
	start := time.Now()
	_, err := m.DB.ExecContext(ctx, query, userID, missionID)
	m.observe("ReleaseMissionClaim", "user_missions", start, err)
	if err != nil {
		return fmt.Errorf("releasing claim on mission %s for user %s: %w", missionID, userID, err)
	}
	return nil
}

// MarkMissionRewarded turns the claim into a rewarded row carrying the settling transaction. A row that is
// already rewarded returns ErrMissionAlreadyRewarded.
func (m *RecordModel) MarkMissionRewarded(ctx context.Context, completion MissionCompletion) error {
	const query = `
		INSERT INTO user_missions (user_id, mission_id, status, transaction_id, proof_text, proof_images, rewarded_at)
		VALUES ($1, $2, 'rewarded', $3, $4, $5, NOW())
		ON CONFLICT (user_id, mission_id) DO UPDATE SET
			status = 'rewarded',
			transaction_id = EXCLUDED.transaction_id,
			proof_text = EXCLUDED.proof_text,
			proof_images = EXCLUDED.proof_images,
			rewarded_at = EXCLUDED.rewarded_at
		WHERE user_missions.status = 'settling'
	`
	start := time.Now()
	result, err := m.DB.ExecContext(ctx, query,
		completion.UserID, completion.MissionID, completion.TransactionID, completion.ProofText, pq.Array(completion.ProofImages),
	)
	m.observe("MarkMissionRewarded", "user_missions", start, err)
	if err != nil {
		return fmt.Errorf("marking mission %s rewarded for user %s: %w", completion.MissionID, completion.UserID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting rewarded missions: %w", err)
	}
	if rows == 0 {
		return ErrMissionAlreadyRewarded
	}
	return nil
}

func (m *RecordModel) RecordRewardPurchase(ctx context.Context, purchase RewardPurchase) error {
	if purchase.ID == "" {
		purchase.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO reward_purchases (id, user_id, reward_id, price, transaction_id)
		VALUES (:id, :user_id, :reward_id, :price, :transaction_id)
	`
	start := time.Now()
	_, err := m.DB.NamedExecContext(ctx, query, purchase)
	m.observe("RecordRewardPurchase", "reward_purchases", start, err)
	if err != nil {
		return fmt.Errorf("recording purchase of reward %s by user %s: %w", purchase.RewardID, purchase.UserID, err)
	}
	return nil
}

func (m *RecordModel) RecordDonation(ctx context.Context, donation Donation) error {
	if donation.ID == "" {
		donation.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO donations (id, user_id, community_id, post_id, amount, transaction_id)
		VALUES (:id, :user_id, :community_id, :post_id, :amount, :transaction_id)
	`
	start := time.Now()
	_, err := m.DB.NamedExecContext(ctx, query, donation)
	m.observe("RecordDonation", "donations", start, err)
	if err != nil {
		return fmt.Errorf("recording donation by user %s to post %s: %w", donation.UserID, donation.PostID, err)
	}
	return nil
}

// UpdateUserSmiles overwrites the user's cached token count with a balance read from the ledger.
func (m *RecordModel) UpdateUserSmiles(ctx context.Context, userID string, smiles int64) error {
	const query = `UPDATE users SET smiles = $2, updated_at = NOW() WHERE id = $1`
	start := time.Now()
	result, err := m.DB.ExecContext(ctx, query, userID, smiles)
	m.observe("UpdateUserSmiles", "users", start, err)
	if err != nil {
		return fmt.Errorf("updating smiles of user %s: %w", userID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting updated users: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("users %s: %w", userID, entities.ErrNotFound)
	}
	return nil
}
