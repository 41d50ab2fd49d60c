package handlers

import (
	"errors"
	"net/http"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/meetup"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/notification"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/stats"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps domain errors to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, meetup.ErrValidation), errors.Is(err, stats.ErrSelfAction):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, meetup.ErrNotFound), errors.Is(err, notification.ErrNotFound), errors.Is(err, stats.ErrNotBlocked):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, meetup.ErrForbidden), errors.Is(err, notification.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, meetup.ErrConflict), errors.Is(err, stats.ErrAlreadyBlocked), errors.Is(err, stats.ErrAlreadyReported):
		return http.StatusConflict, "conflict"
	case errors.Is(err, meetup.ErrGeoMismatch):
		return http.StatusUnprocessableEntity, "geo_mismatch"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondError writes err to the client. Unknown errors are logged and
// hidden behind a generic message.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		_ = c.Error(err)
		c.JSON(status, ErrorResponse{Error: "internal server error", Code: code})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "validation_failed"})
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "user not authenticated", Code: "unauthorized"})
}
