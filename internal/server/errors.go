package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/blessingsjourney/payhook/internal/payment/domain"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware translates errors recorded on the gin context into
// JSON responses, so handlers only decide WHICH error occurred.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, gin.H) {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidPayload), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid payload",
		}
	case errors.Is(err, paymentdomain.ErrNotFound):
		return http.StatusNotFound, gin.H{
			"found":   false,
			"message": "Payment not found",
		}
	default:
		return http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal server error",
		}
	}
}

// classifyErrorForLog reduces an error to low-cardinality type/code labels
// for request logs.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, paymentdomain.ErrInvalidPayload), errors.Is(err, ErrInvalidRequest):
		return "validation", "invalid_payload"
	case errors.Is(err, paymentdomain.ErrNotFound):
		return "not_found", "payment_not_found"
	case errors.Is(err, paymentdomain.ErrEventIgnored):
		return "ignored", "event_ignored"
	default:
		return "internal", "internal_error"
	}
}
