package domain

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

var (
	ErrNoSeatsAvailable    = errors.New("no seats available")
	ErrPaymentDeclined     = errors.New("payment declined")
	ErrGenerationExhausted = errors.New("pnr generation exhausted")
	ErrFlightDeparted      = errors.New("flight has already departed")
	ErrFlightUnavailable   = errors.New("flight is not open for booking")
	ErrCancellationClosed  = errors.New("cancellation window is closed")
	ErrSeatTaken           = errors.New("seat is already booked")
)

// Inventory bookkeeping errors. ErrCapacityOverflow always indicates a bug.
var (
	ErrLockTimeout      = errors.New("lock timeout")
	ErrLockNotHeld      = errors.New("flight lock is not held")
	ErrSeatsExhausted   = errors.New("seats exhausted")
	ErrCapacityOverflow = errors.New("capacity overflow")
)

// IsRetryable reports whether the caller may retry the same request as is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
