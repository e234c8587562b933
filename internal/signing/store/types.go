package store

import (
	"context"
	"time"
)

// Keypair is a platform key whose private half is encrypted by AWS KMS.
type Keypair struct {
	PublicKey           string    `db:"public_key"`
	EncryptedPrivateKey []byte    `db:"encrypted_private_key"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

type KeypairStore interface {
	GetByPublicKey(ctx context.Context, publicKey string) (*Keypair, error)
	Insert(ctx context.Context, publicKey string, encryptedPrivateKey []byte) error
}
