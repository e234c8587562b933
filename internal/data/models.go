// Package data reads and writes the platform records the economy settles against: users, missions, rewards,
// communities and the rows that mark a settlement done.
package data

import (
	"time"

	"github.com/guregu/null"
)

type Community struct {
	ID        string    `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type User struct {
	ID        string    `db:"id"         json:"id"`
	Smiles    int64     `db:"smiles"     json:"smiles"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Mission rewards a user on completion. A mission with a community is paid from that community's wallet,
// otherwise the reward is minted.
type Mission struct {
	ID          string      `db:"id"           json:"id"`
	Reward      int64       `db:"reward"       json:"reward"`
	CommunityID null.String `db:"community_id" json:"communityId"`
	CreatedAt   time.Time   `db:"created_at"   json:"createdAt"`
}

func (m Mission) IsSponsored() bool {
	return m.CommunityID.Valid && m.CommunityID.String != ""
}

// Reward is a marketplace item. Community rewards are paid to the community, platform rewards are burned.
type Reward struct {
	ID          string      `db:"id"           json:"id"`
	Price       int64       `db:"price"        json:"price"`
	CommunityID null.String `db:"community_id" json:"communityId"`
	CreatedAt   time.Time   `db:"created_at"   json:"createdAt"`
}

func (r Reward) IsCommunityProvided() bool {
	return r.CommunityID.Valid && r.CommunityID.String != ""
}

type MissionCompletion struct {
	UserID        string      `db:"user_id"`
	MissionID     string      `db:"mission_id"`
	TransactionID string      `db:"transaction_id"`
	ProofText     null.String `db:"proof_text"`
	ProofImages   []string    `db:"-"`
}

type RewardPurchase struct {
	ID            string `db:"id"`
	UserID        string `db:"user_id"`
	RewardID      string `db:"reward_id"`
	Price         int64  `db:"price"`
	TransactionID string `db:"transaction_id"`
}

type Donation struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	CommunityID   null.String `db:"community_id"`
	PostID        string      `db:"post_id"`
	Amount        int64       `db:"amount"`
	TransactionID string      `db:"transaction_id"`
}
