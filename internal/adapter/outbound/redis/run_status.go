package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uniedit/videogen/internal/module/generation"
	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

const (
	runStatusKeyPrefix  = "videogen:run:"
	defaultRunStatusTTL = time.Hour
)

// RunStatusStore keeps generation run snapshots in Redis with a TTL.
type RunStatusStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRunStatusStore creates a run status store. A non-positive ttl uses one hour.
func NewRunStatusStore(client redis.UniversalClient, ttl time.Duration) *RunStatusStore {
	if ttl <= 0 {
		ttl = defaultRunStatusTTL
	}
	return &RunStatusStore{client: client, ttl: ttl}
}

func runStatusKey(runID string) string {
	return runStatusKeyPrefix + runID
}

func (s *RunStatusStore) Save(ctx context.Context, status generation.Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode run status: %w", err)
	}
	if err := s.client.Set(ctx, runStatusKey(status.RunID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set run status: %w", err)
	}
	return nil
}

func (s *RunStatusStore) Get(ctx context.Context, runID string) (generation.Status, error) {
	data, err := s.client.Get(ctx, runStatusKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return generation.Status{}, apperrors.NotFound("run " + runID)
	}
	if err != nil {
		return generation.Status{}, fmt.Errorf("get run status: %w", err)
	}
	return decodeRunStatus(data)
}

func decodeRunStatus(data []byte) (generation.Status, error) {
	var status generation.Status
	if err := json.Unmarshal(data, &status); err != nil {
		return generation.Status{}, fmt.Errorf("decode run status: %w", err)
	}
	return status, nil
}

// Compile-time interface check
var _ generation.StatusStore = (*RunStatusStore)(nil)
