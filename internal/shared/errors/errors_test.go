package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns message", func(t *testing.T) {
		err := &AppError{
			Code:    "TEST_ERROR",
			Message: "test error message",
		}
		assert.Equal(t, "test error message", err.Error())
	})

	t.Run("Unwrap returns wrapped error", func(t *testing.T) {
		wrapped := errors.New("wrapped error")
		err := &AppError{
			Code:    "TEST_ERROR",
			Message: "test message",
			Err:     wrapped,
		}
		assert.Equal(t, wrapped, err.Unwrap())
	})
}

func TestNewAppError(t *testing.T) {
	wrapped := errors.New("original")
	err := NewAppError("CUSTOM_ERROR", "custom message", 418, wrapped)

	assert.Equal(t, "CUSTOM_ERROR", err.Code)
	assert.Equal(t, "custom message", err.Message)
	assert.Equal(t, 418, err.StatusCode)
	assert.Equal(t, wrapped, err.Err)
}

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"configuration", ConfigurationError("no key"), "CONFIGURATION_ERROR", http.StatusUnauthorized, ErrConfiguration},
		{"validation", ValidationError("bad prompt"), "VALIDATION_ERROR", http.StatusUnprocessableEntity, ErrValidation},
		{"rejected", RemoteRejected("bad model"), "REMOTE_REJECTED", http.StatusBadGateway, ErrRemoteRejected},
		{"failed", RemoteFailed("quota exceeded"), "REMOTE_FAILED", http.StatusBadGateway, ErrRemoteFailed},
		{"unavailable", RemoteUnavailable("dial", errors.New("refused")), "REMOTE_UNAVAILABLE", http.StatusServiceUnavailable, ErrRemoteUnavailable},
		{"timeout", Timeout("too slow"), "TIMEOUT", http.StatusGatewayTimeout, ErrTimeout},
		{"malformed", MalformedResult("no urls"), "MALFORMED_RESULT", http.StatusBadGateway, ErrMalformedResult},
		{"cancelled", Cancelled(""), "CANCELLED", StatusClientClosedRequest, ErrCancelled},
		{"not found", NotFound("run"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"rate limited", RateLimited(""), "RATE_LIMITED", http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.status, GetStatusCode(tt.err))
			assert.Equal(t, tt.code, CodeOf(tt.err))
		})
	}
}

func TestTimeoutAndFailureAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(Timeout("x"), ErrRemoteFailed))
	assert.False(t, errors.Is(RemoteFailed("x"), ErrTimeout))
	assert.False(t, errors.Is(Cancelled("x"), ErrTimeout))
}

func TestRemoteUnavailable_IncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := RemoteUnavailable("query task", cause)

	assert.Equal(t, "query task: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestPrefix(t *testing.T) {
	t.Run("keeps app error kind", func(t *testing.T) {
		err := Prefix("wan-2.6-t2v", RemoteFailed("quota exceeded"))

		var appErr *AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "REMOTE_FAILED", appErr.Code)
		assert.Equal(t, "wan-2.6-t2v: quota exceeded", err.Error())
		assert.True(t, errors.Is(err, ErrRemoteFailed))
	})

	t.Run("wraps plain errors", func(t *testing.T) {
		base := errors.New("boom")
		err := Prefix("ctx", base)
		assert.Equal(t, "ctx: boom", err.Error())
		assert.True(t, errors.Is(err, base))
	})
}

func TestGetStatusCode_Sentinels(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, GetStatusCode(fmt.Errorf("wrap: %w", ErrTimeout)))
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(errors.New("unknown")))
	assert.Equal(t, "INTERNAL_ERROR", CodeOf(errors.New("unknown")))
}

func TestToResponse(t *testing.T) {
	resp := ValidationError("prompt too long").ToResponse()
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "prompt too long", resp.Error.Message)
}
