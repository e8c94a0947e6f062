package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uniedit/videogen/internal/shared/middleware"
)

const idempotencyKeyPrefix = "videogen:idempotency:"

// IdempotencyStore keeps replayable submission responses in Redis.
type IdempotencyStore struct {
	client redis.UniversalClient
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a Redis-backed idempotency store.
func NewIdempotencyStore(client redis.UniversalClient) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

func idempotencyKey(key string) string {
	return idempotencyKeyPrefix + key
}

func idempotencyLockKey(key string) string {
	return idempotencyKeyPrefix + key + ":lock"
}

// Get returns the stored response, or nil when there is none.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*middleware.CachedResponse, error) {
	data, err := s.client.Get(ctx, idempotencyKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotent response: %w", err)
	}
	var resp middleware.CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode idempotent response: %w", err)
	}
	return &resp, nil
}

// Lock marks key as in flight for up to ttl. It reports false when another
// request holds it.
func (s *IdempotencyStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyLockKey(key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock idempotency key: %w", err)
	}
	return ok, nil
}

// Unlock releases the in-flight mark.
func (s *IdempotencyStore) Unlock(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyLockKey(key)).Err()
}

// Put stores resp for ttl.
func (s *IdempotencyStore) Put(ctx context.Context, key string, resp *middleware.CachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode idempotent response: %w", err)
	}
	if err := s.client.Set(ctx, idempotencyKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("set idempotent response: %w", err)
	}
	return nil
}
