package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "idem:"

// IdempotencyStore remembers which order a client-supplied idempotency
// key resolved to, so a retried request replays the stored result
// instead of re-running the operation. Keys are namespaced by the
// acting account, so one client's key never resolves to another
// client's order.
type IdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewIdempotencyStore builds a store over a Redis client.
func NewIdempotencyStore(client redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Lookup returns the order ID recorded for the account's key, or ""
// when the key has not been seen by that account.
func (s *IdempotencyStore) Lookup(ctx context.Context, operation, accountID, key string) (string, error) {
	if s == nil || s.client == nil || key == "" {
		return "", nil
	}
	val, err := s.client.Get(ctx, redisKey(operation, accountID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Record stores the order ID for the account's key. The first writer
// wins; a concurrent duplicate leaves the original value in place.
func (s *IdempotencyStore) Record(ctx context.Context, operation, accountID, key, orderID string) error {
	if s == nil || s.client == nil || key == "" {
		return nil
	}
	return s.client.SetNX(ctx, redisKey(operation, accountID, key), orderID, s.ttl).Err()
}

func redisKey(operation, accountID, key string) string {
	return idempotencyKeyPrefix + operation + ":" + accountID + ":" + key
}
