package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore tracks refresh token ids that may no longer be used.
type RevocationStore interface {
	// Consume marks jti as used and reports whether it was still unused.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	// Revoke marks jti as unusable.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// RedisRevocationStore keeps the deny-list in Redis with per-key expiry.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore constructs the store.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) key(jti string) string {
	return "auth:revoked:" + jti
}

// Consume uses SETNX so two concurrent refreshes cannot both succeed.
func (s *RedisRevocationStore) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	return s.client.SetNX(ctx, s.key(jti), "1", ttl).Result()
}

// Revoke stores jti until its natural expiry.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.key(jti), "1", ttl).Err()
}
