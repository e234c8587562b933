package entities

import (
	"fmt"
	"time"
)

type ProofKind string

const (
	ProofKindMissionCompletion ProofKind = "mission_completion"
	ProofKindDonation          ProofKind = "donation"
	ProofKindBadgeAward        ProofKind = "badge_award"
)

func (k ProofKind) IsValid() bool {
	switch k {
	case ProofKindMissionCompletion, ProofKindDonation, ProofKindBadgeAward:
		return true
	default:
		return false
	}
}

func ParseProofKind(s string) (ProofKind, error) {
	k := ProofKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid proof kind %q", s)
	}
	return k, nil
}

// ProofPayload is the JSON document whose SHA-256 is anchored on the kind's topic.
type ProofPayload struct {
	Type      ProofKind      `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

type ProofStatus string

const (
	ProofStatusPending   ProofStatus = "pending"
	ProofStatusSubmitted ProofStatus = "submitted"
)

type ProofRecord struct {
	ID          string      `db:"id"`
	Kind        ProofKind   `db:"kind"`
	ProofHash   string      `db:"proof_hash"`
	Payload     []byte      `db:"payload"`
	TopicID     string      `db:"topic_id"`
	MessageID   *string     `db:"message_id"`
	Status      ProofStatus `db:"status"`
	Attempts    int         `db:"attempts"`
	LastError   *string     `db:"last_error"`
	SubmittedAt *time.Time  `db:"submitted_at"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

// ProofReceipt identifies a logged proof: the ledger message id and the payload hash.
type ProofReceipt struct {
	ProofID   string `json:"proofId"`
	ProofHash string `json:"proofHash"`
}

// TopicMessage is one anchored message read back from a topic.
type TopicMessage struct {
	MessageID          string    `json:"messageId"`
	ContentHash        string    `json:"contentHash"`
	ConsensusTimestamp time.Time `json:"consensusTimestamp"`
}
