package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrIdempotencyPending means another request holding the same key has not finished yet
var ErrIdempotencyPending = errors.New("idempotency key is in use by a request in flight")

const (
	idempotencyKeyPrefix  = "idempotency:"
	idempotencyPending    = "__pending__"
	idempotencyPendingTTL = time.Minute
)

// IdempotencyStore remembers which entity a client retry key produced
type IdempotencyStore interface {
	// Reserve claims key within scope. When the key already completed it returns the
	// stored entity ID and reserved=false.
	Reserve(ctx context.Context, scope, key string) (entityID string, reserved bool, err error)
	// Complete records the entity created for a reserved key
	Complete(ctx context.Context, scope, key, entityID string) error
	// Release drops a reservation whose request failed so the client can retry
	Release(ctx context.Context, scope, key string) error
}

// RedisIdempotencyStore keeps idempotency keys in redis
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore returns a redis-backed store, or a store that never remembers anything when client is nil
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) IdempotencyStore {
	if client == nil {
		return noopIdempotencyStore{}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func idempotencyRedisKey(scope, key string) string {
	return idempotencyKeyPrefix + scope + ":" + key
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, scope, key string) (string, bool, error) {
	k := idempotencyRedisKey(scope, key)

	ok, err := s.client.SetNX(ctx, k, idempotencyPending, idempotencyPendingTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Reserve(ctx, scope, key)
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if val == idempotencyPending {
		return "", false, ErrIdempotencyPending
	}
	return val, false, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, scope, key, entityID string) error {
	if err := s.client.Set(ctx, idempotencyRedisKey(scope, key), entityID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, idempotencyRedisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

type noopIdempotencyStore struct{}

func (noopIdempotencyStore) Reserve(context.Context, string, string) (string, bool, error) {
	return "", true, nil
}

func (noopIdempotencyStore) Complete(context.Context, string, string, string) error { return nil }

func (noopIdempotencyStore) Release(context.Context, string, string) error { return nil }
