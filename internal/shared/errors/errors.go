package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds raised by the generation pipeline.
var (
	ErrConfiguration     = errors.New("missing configuration")
	ErrValidation        = errors.New("invalid input")
	ErrRemoteRejected    = errors.New("remote rejected request")
	ErrRemoteFailed      = errors.New("remote task failed")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrTimeout           = errors.New("operation timed out")
	ErrMalformedResult   = errors.New("malformed result")
	ErrCancelled         = errors.New("operation cancelled")
	ErrNotFound          = errors.New("resource not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrInternal          = errors.New("internal error")
)

// StatusClientClosedRequest is the non-standard status used for cancelled runs.
const StatusClientClosedRequest = 499

// AppError represents an application error with HTTP status and error code.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse represents the JSON error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewAppError creates a new application error.
func NewAppError(code string, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ConfigurationError reports a credential or setting that is absent before any network call.
func ConfigurationError(message string) *AppError {
	return &AppError{
		Code:       "CONFIGURATION_ERROR",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Err:        ErrConfiguration,
	}
}

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        ErrValidation,
	}
}

// Validationf formats a validation error.
func Validationf(format string, args ...any) *AppError {
	return ValidationError(fmt.Sprintf(format, args...))
}

// RemoteRejected reports a non-success envelope from a create, query or upload endpoint.
func RemoteRejected(message string) *AppError {
	return &AppError{
		Code:       "REMOTE_REJECTED",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        ErrRemoteRejected,
	}
}

// RemoteFailed reports a task that reached the terminal fail state.
func RemoteFailed(message string) *AppError {
	return &AppError{
		Code:       "REMOTE_FAILED",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        ErrRemoteFailed,
	}
}

// RemoteUnavailable wraps transport failures and open circuits.
func RemoteUnavailable(message string, err error) *AppError {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &AppError{
		Code:       "REMOTE_UNAVAILABLE",
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Err:        errors.Join(ErrRemoteUnavailable, err),
	}
}

// Timeout reports a poll loop that ran out of attempts. The remote task may still be running.
func Timeout(message string) *AppError {
	return &AppError{
		Code:       "TIMEOUT",
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Err:        ErrTimeout,
	}
}

// MalformedResult reports a success state whose result payload is unusable.
func MalformedResult(message string) *AppError {
	return &AppError{
		Code:       "MALFORMED_RESULT",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        ErrMalformedResult,
	}
}

// Cancelled reports an operation stopped by its caller.
func Cancelled(message string) *AppError {
	if message == "" {
		message = "operation cancelled"
	}
	return &AppError{
		Code:       "CANCELLED",
		Message:    message,
		StatusCode: StatusClientClosedRequest,
		Err:        ErrCancelled,
	}
}

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// RateLimited creates a rate limited error.
func RateLimited(message string) *AppError {
	if message == "" {
		message = "too many requests"
	}
	return &AppError{
		Code:       "RATE_LIMITED",
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Err:        ErrRateLimited,
	}
}

// Internal creates an internal error.
func Internal(message string, err error) *AppError {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        errors.Join(ErrInternal, err),
	}
}

// Prefix returns a copy of err with context prepended to its message.
// Code, status and the wrapped chain are preserved.
func Prefix(prefix string, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return &AppError{
		Code:       appErr.Code,
		Message:    prefix + ": " + appErr.Message,
		StatusCode: appErr.StatusCode,
		Err:        appErr,
	}
}

// ToResponse converts an AppError to ErrorResponse.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    e.Code,
			Message: e.Message,
		},
	}
}

// CodeOf returns the AppError code of err, or INTERNAL_ERROR.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrConfiguration):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrCancelled):
		return StatusClientClosedRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrRemoteRejected), errors.Is(err, ErrRemoteFailed), errors.Is(err, ErrMalformedResult):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
