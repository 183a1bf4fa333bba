package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrNoSeatsAvailable),
		errors.Is(err, domain.ErrFlightDeparted),
		errors.Is(err, domain.ErrFlightUnavailable),
		errors.Is(err, domain.ErrCancellationClosed),
		errors.Is(err, domain.ErrSeatTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status of the first sentinel it wraps.
// Unknown errors are reported as 500 without their text.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if domain.IsRetryable(err) {
		c.Header("Retry-After", "1")
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
