package generation

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// StatusStore keeps run snapshots for status queries. Entries expire after a TTL.
type StatusStore interface {
	Save(ctx context.Context, status Status) error
	Get(ctx context.Context, runID string) (Status, error)
}

// MemoryStore is a process-local StatusStore.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	status    Status
	expiresAt time.Time
}

// NewMemoryStore creates a store whose entries live for ttl after their last save.
// A non-positive ttl keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Save(_ context.Context, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	var exp time.Time
	if s.ttl > 0 {
		exp = now.Add(s.ttl)
	}
	s.entries[status.RunID] = memoryEntry{status: status, expiresAt: exp}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, runID string) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[runID]
	if !ok || e.expired(s.now()) {
		return Status{}, apperrors.NotFound("run " + runID)
	}
	return e.status, nil
}

func (s *MemoryStore) pruneLocked(now time.Time) {
	for id, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, id)
		}
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

var _ StatusStore = (*MemoryStore)(nil)
