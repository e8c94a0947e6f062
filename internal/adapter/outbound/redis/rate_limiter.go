package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/uniedit/videogen/internal/shared/middleware"
)

const rateLimitKeyPrefix = "videogen:ratelimit:"

// slidingWindow trims the window, counts it and records the request when
// under the limit. Scores are unix milliseconds. Returns {allowed, count, oldest}.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)
	local allowed = 0
	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, ttl)
		count = count + 1
		allowed = 1
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local first = now
	if #oldest == 2 then
		first = tonumber(oldest[2])
	end
	return {allowed, count, first}
`)

// RateLimiter is a sliding-window limiter shared by every server instance.
type RateLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	now    func() time.Time
}

var _ middleware.Limiter = (*RateLimiter)(nil)

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(client redis.UniversalClient, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window, now: time.Now}
}

func rateLimitKey(key string) string {
	return rateLimitKeyPrefix + key
}

// Allow records one request under key if the window has room.
func (r *RateLimiter) Allow(ctx context.Context, key string) (middleware.LimitResult, error) {
	now := r.now().UnixMilli()
	res, err := slidingWindow.Run(ctx, r.client, []string{rateLimitKey(key)},
		now,
		now-r.window.Milliseconds(),
		r.limit,
		r.window.Milliseconds(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return middleware.LimitResult{}, fmt.Errorf("rate limit check: %w", err)
	}
	if len(res) != 3 {
		return middleware.LimitResult{}, fmt.Errorf("rate limit check: unexpected reply %v", res)
	}
	return windowResult(res[0] == 1, int(res[1]), res[2], r.limit, r.window), nil
}

func windowResult(allowed bool, count int, oldest int64, limit int, window time.Duration) middleware.LimitResult {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return middleware.LimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(oldest).Add(window),
	}
}
