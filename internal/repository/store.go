package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

var ErrDuplicatePNR = errors.New("duplicate pnr")

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	FareHistory(ctx context.Context, flightID int64, since time.Time) ([]domain.FareQuote, error)
}

type BookingRepository interface {
	GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error)
	// BookingHistory returns the audit entries of a booking, oldest first.
	BookingHistory(ctx context.Context, pnr string) ([]domain.BookingHistoryEntry, error)
}

// FlightTx is a store transaction that holds the row of one flight locked
// until Commit or Rollback. Seat counts are only ever changed through it.
type FlightTx interface {
	Flight() domain.Flight
	// AdjustSeats applies delta to seats_available and returns the new value.
	// It fails with domain.ErrSeatsExhausted or domain.ErrCapacityOverflow
	// when the result would leave [0, total_seats].
	AdjustSeats(ctx context.Context, delta int) (int, error)
	PNRExists(ctx context.Context, pnr string) (bool, error)
	// SeatTaken reports whether a confirmed booking on this flight holds seat.
	SeatTaken(ctx context.Context, seat string) (bool, error)
	// CreateBooking inserts booking. A failed insert leaves the transaction
	// usable: ErrDuplicatePNR means the code was taken concurrently and may
	// be regenerated, domain.ErrSeatTaken means the seat was.
	CreateBooking(ctx context.Context, booking *domain.Booking) error
	AddHistory(ctx context.Context, entry domain.BookingHistoryEntry) error
	GetBookingForUpdate(ctx context.Context, pnr string) (*domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, pnr string, status domain.BookingStatus) error
	SaveFareQuote(ctx context.Context, quote domain.FareQuote) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type TxBeginner interface {
	// BeginFlight opens a transaction and locks the flight row, waiting at
	// most lockTimeout for a competing holder.
	BeginFlight(ctx context.Context, flightID int64, lockTimeout time.Duration) (FlightTx, error)
}

type Store interface {
	FlightRepository
	BookingRepository
	TxBeginner
}

func seatBoundsError(delta int) error {
	if delta < 0 {
		return domain.ErrSeatsExhausted
	}
	return domain.ErrCapacityOverflow
}

const defaultPerformer = "system"

func performedBy(e domain.BookingHistoryEntry) string {
	if e.PerformedBy == "" {
		return defaultPerformer
	}
	return e.PerformedBy
}
