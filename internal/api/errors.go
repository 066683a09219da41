package api

import (
	"errors"
	"net/http"

	ordererrors "order-inventory-service/internal/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps the service error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ordererrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ordererrors.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, ordererrors.ErrInvalidRequest),
		errors.Is(err, ordererrors.ErrInsufficientStock),
		errors.Is(err, ordererrors.ErrDependentReference),
		errors.Is(err, ordererrors.ErrConstraintViolation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("request_id", c.GetString(requestIDHeader)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{
		"error":   http.StatusText(status),
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}
