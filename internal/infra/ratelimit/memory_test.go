package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLimiter(3, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 2; i >= 0; i-- {
		res, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, i, res.Remaining)
	}

	res, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.WithinDuration(t, now.Add(time.Minute), res.ResetAt, time.Millisecond)

	// Other keys have their own bucket.
	res, _ = l.Allow(ctx, "b")
	assert.True(t, res.Allowed)

	// One token refills every window/limit.
	now = now.Add(21 * time.Second)
	res, _ = l.Allow(ctx, "a")
	assert.True(t, res.Allowed)
	res, _ = l.Allow(ctx, "a")
	assert.False(t, res.Allowed)
}

func TestMemoryLimiterDropsIdleBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLimiter(1, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = l.Allow(ctx, "a")
	_, _ = l.Allow(ctx, "b")
	assert.Len(t, l.buckets, 2)

	now = now.Add(2 * time.Minute)
	res, _ := l.Allow(ctx, "c")
	assert.True(t, res.Allowed)
	assert.Len(t, l.buckets, 1)
}
