package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// Error writes err as {"error":{"code","message"}} with the status of its kind.
// Errors outside the taxonomy are reported as a generic internal error.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal("internal error", nil)
	}
	status := appErr.StatusCode
	if status == 0 {
		status = apperrors.GetStatusCode(err)
	}
	c.AbortWithStatusJSON(status, appErr.ToResponse())
}

// ErrorWithCode writes a bare error body.
func ErrorWithCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, apperrors.ErrorResponse{
		Error: apperrors.ErrorDetail{Code: code, Message: message},
	})
}

// BadRequest sends a 400 Bad Request response.
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusBadRequest, "BAD_REQUEST", message)
}
