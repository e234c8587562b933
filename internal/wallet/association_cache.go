package wallet

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const associatedAccountsKeyPrefix = "associated_accounts:"

// AssociationCache remembers accounts known to hold a token trustline. A miss only means unknown.
type AssociationCache interface {
	IsKnownAssociated(ctx context.Context, tokenID, accountID string) (bool, error)
	MarkAssociated(ctx context.Context, tokenID, accountID string) error
}

// RedisAssociationCache keeps one Redis set of associated accounts per token.
type RedisAssociationCache struct {
	client *redis.Client
}

var _ AssociationCache = (*RedisAssociationCache)(nil)

func NewRedisAssociationCache(redisURL string) (*RedisAssociationCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &RedisAssociationCache{client: redis.NewClient(opts)}, nil
}

func associatedAccountsKey(tokenID string) string {
	return associatedAccountsKeyPrefix + tokenID
}

func (r *RedisAssociationCache) IsKnownAssociated(ctx context.Context, tokenID, accountID string) (bool, error) {
	known, err := r.client.SIsMember(ctx, associatedAccountsKey(tokenID), accountID).Result()
	if err != nil {
		return false, fmt.Errorf("checking association of %s in cache: %w", accountID, err)
	}
	return known, nil
}

func (r *RedisAssociationCache) MarkAssociated(ctx context.Context, tokenID, accountID string) error {
	if err := r.client.SAdd(ctx, associatedAccountsKey(tokenID), accountID).Err(); err != nil {
		return fmt.Errorf("caching association of %s: %w", accountID, err)
	}
	return nil
}

func (r *RedisAssociationCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

func (r *RedisAssociationCache) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("closing redis client: %w", err)
	}
	return nil
}

// NoopAssociationCache knows nothing, so every check goes to the ledger.
type NoopAssociationCache struct{}

var _ AssociationCache = NoopAssociationCache{}

func (NoopAssociationCache) IsKnownAssociated(context.Context, string, string) (bool, error) {
	return false, nil
}

func (NoopAssociationCache) MarkAssociated(context.Context, string, string) error {
	return nil
}
