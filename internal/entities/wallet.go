package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OwnerKind string

const (
	OwnerKindUser      OwnerKind = "user"
	OwnerKindCommunity OwnerKind = "community"
)

func (k OwnerKind) IsValid() bool {
	switch k {
	case OwnerKindUser, OwnerKindCommunity:
		return true
	default:
		return false
	}
}

func ParseOwnerKind(s string) (OwnerKind, error) {
	k := OwnerKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid owner kind %q", s)
	}
	return k, nil
}

// Wallet is a custodied ledger account. The balance columns are a cache; the ledger is authoritative.
type Wallet struct {
	ID                  string          `db:"id"                    json:"id"`
	OwnerID             string          `db:"owner_id"              json:"ownerId"`
	OwnerKind           OwnerKind       `db:"owner_kind"            json:"ownerKind"`
	AccountID           string          `db:"account_id"            json:"accountId"`
	PublicKey           string          `db:"public_key"            json:"publicKey"`
	EncryptedPrivateKey string          `db:"encrypted_private_key" json:"-"`
	NativeBalance       decimal.Decimal `db:"native_balance"        json:"nativeBalance"`
	TokenBalance        int64           `db:"token_balance"         json:"tokenBalance"`
	IsActive            bool            `db:"is_active"             json:"isActive"`
	CreatedAt           time.Time       `db:"created_at"            json:"createdAt"`
	UpdatedAt           time.Time       `db:"updated_at"            json:"updatedAt"`
}

type Balance struct {
	Native decimal.Decimal `json:"native"`
	Token  int64           `json:"token"`
}
