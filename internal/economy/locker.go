package economy

import (
	"context"
	"fmt"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

// OwnerLocker serialises debiting flows per owner. Flows for different owners never wait on each other.
type OwnerLocker struct {
	locks *utils.KeyedMutex
}

func NewOwnerLocker() *OwnerLocker {
	return &OwnerLocker{locks: utils.NewKeyedMutex()}
}

// Lock blocks until the owner is free or ctx is done. The returned func releases the lock.
func (l *OwnerLocker) Lock(ctx context.Context, ownerKind entities.OwnerKind, ownerID string) (func(), error) {
	unlock, err := l.locks.Lock(ctx, string(ownerKind)+":"+ownerID)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s %s: %w", ownerKind, ownerID, err)
	}
	return unlock, nil
}
