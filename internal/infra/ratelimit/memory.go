// Package ratelimit holds the in-process submission limiter used when Redis
// is not configured.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/uniedit/videogen/internal/shared/middleware"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a token bucket per key refilling limit tokens per window.
// Buckets idle for longer than a window are dropped.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	every  rate.Limit
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

var _ middleware.Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter creates a limiter allowing limit requests per window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		every:   rate.Every(window / time.Duration(limit)),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes one token from the bucket of key.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (middleware.LimitResult, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.every, m.limit)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	// Time until the bucket is full again.
	missing := float64(m.limit) - tokens
	resetAt := now.Add(time.Duration(missing / float64(m.every) * float64(time.Second)))

	return middleware.LimitResult{
		Allowed:   allowed,
		Limit:     m.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.window {
		return
	}
	m.lastSweep = now
	for k, b := range m.buckets {
		if now.Sub(b.lastSeen) > m.window {
			delete(m.buckets, k)
		}
	}
}
