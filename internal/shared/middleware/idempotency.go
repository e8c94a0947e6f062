package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// IdempotencyKeyHeader is the header carrying the client's idempotency key.
const IdempotencyKeyHeader = "Idempotency-Key"

const (
	defaultIdempotencyTTL     = 24 * time.Hour
	defaultIdempotencyLockTTL = time.Minute
)

// CachedResponse is a response replayed for a repeated idempotency key.
type CachedResponse struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
}

// IdempotencyStore keeps responses and in-flight locks by key.
// Get returns nil, nil when nothing is stored.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Put(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error
}

// IdempotencyConfig holds idempotency middleware configuration.
type IdempotencyConfig struct {
	// TTL is how long a response is replayed.
	TTL time.Duration
	// LockTTL bounds how long a request may hold its key in flight. It must
	// outlast the slowest handler or a repeat can run twice.
	LockTTL time.Duration
	// Scope separates callers so equal keys from different callers never collide.
	Scope func(*gin.Context) string
}

type capturingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key, and rejects a repeat while the first is still running.
// Requests without the header pass through. Only responses below 400 are
// stored, so a rejected request can be retried with the same key.
func Idempotency(store IdempotencyStore, cfg IdempotencyConfig, logger *zap.Logger) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultIdempotencyTTL
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultIdempotencyLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if store == nil || key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyCacheKey(c, cfg.Scope, key)

		cached, err := store.Get(ctx, cacheKey)
		if err != nil {
			logger.Warn("idempotency lookup failed", zap.Error(err))
		} else if cached != nil {
			for k, v := range cached.Headers {
				c.Header(k, v)
			}
			c.Header("Idempotent-Replayed", "true")
			c.Data(cached.StatusCode, cached.Headers["Content-Type"], cached.Body)
			c.Abort()
			return
		}

		locked, err := store.Lock(ctx, cacheKey, cfg.LockTTL)
		if err != nil {
			logger.Warn("idempotency lock failed", zap.Error(err))
			c.Next()
			return
		}
		if !locked {
			appErr := apperrors.NewAppError("REQUEST_IN_PROGRESS",
				"a request with this idempotency key is already being processed", http.StatusConflict, nil)
			c.AbortWithStatusJSON(appErr.StatusCode, appErr.ToResponse())
			return
		}
		defer func() {
			if err := store.Unlock(context.WithoutCancel(ctx), cacheKey); err != nil {
				logger.Warn("idempotency unlock failed", zap.Error(err))
			}
		}()

		w := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		if status := w.Status(); status < http.StatusBadRequest {
			headers := make(map[string]string, len(w.Header()))
			for k := range w.Header() {
				if k != http.CanonicalHeaderKey(RequestIDHeader) {
					headers[k] = w.Header().Get(k)
				}
			}
			resp := &CachedResponse{StatusCode: status, Headers: headers, Body: w.body.Bytes()}
			if err := store.Put(context.WithoutCancel(ctx), cacheKey, resp, cfg.TTL); err != nil {
				logger.Warn("idempotency store failed", zap.Error(err))
			}
		}
	}
}

func idempotencyCacheKey(c *gin.Context, scope func(*gin.Context) string, key string) string {
	s := ""
	if scope != nil {
		s = scope(c)
	}
	hash := sha256.Sum256([]byte(s + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key))
	return hex.EncodeToString(hash[:])
}
