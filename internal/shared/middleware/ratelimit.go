package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// LimitResult is the outcome of one rate limit check.
type LimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a request under key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (LimitResult, error)
}

// RateLimit rejects requests over the limit with 429. Limiter errors let the
// request through.
func RateLimit(l Limiter, keyFunc func(*gin.Context) string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		res, err := l.Allow(c.Request.Context(), keyFunc(c))
		if err != nil {
			logger.Warn("rate limit check failed", zap.Error(err), zap.String("path", c.FullPath()))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			appErr := apperrors.RateLimited("too many generation requests, retry later")
			c.AbortWithStatusJSON(appErr.StatusCode, appErr.ToResponse())
			return
		}
		c.Next()
	}
}
