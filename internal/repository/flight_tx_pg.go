package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgLockNotAvailable = "55P03"
	pgUniqueViolation  = "23505"

	seatConstraint = "bookings_flight_seat_confirmed_idx"
)

// PGStore is the Postgres backed Store.
type PGStore struct {
	*PGFlightRepository
	*PGBookingRepository
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{
		PGFlightRepository:  NewFlightRepository(db),
		PGBookingRepository: NewBookingRepository(db),
		db:                  db,
	}
}

func (s *PGStore) BeginFlight(ctx context.Context, flightID int64, lockTimeout time.Duration) (FlightTx, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	flight, err := lockFlight(ctx, tx, flightID, lockTimeout)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	return &pgFlightTx{tx: tx, flight: *flight}, nil
}

func lockFlight(ctx context.Context, tx pgx.Tx, flightID int64, lockTimeout time.Duration) (*domain.Flight, error) {
	if lockTimeout > 0 {
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, fmt.Sprintf("%dms", lockTimeout.Milliseconds())); err != nil {
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}

	f, err := scanFlight(tx.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1 FOR UPDATE`, flightID))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("flight %d: %w", flightID, domain.ErrNotFound)
	case isPgError(err, pgLockNotAvailable):
		return nil, fmt.Errorf("flight %d row lock: %w", flightID, domain.ErrLockTimeout)
	case err != nil:
		return nil, fmt.Errorf("lock flight %d: %w", flightID, err)
	}
	return f, nil
}

type pgFlightTx struct {
	tx     pgx.Tx
	flight domain.Flight
}

func (t *pgFlightTx) Flight() domain.Flight {
	return t.flight
}

func (t *pgFlightTx) AdjustSeats(ctx context.Context, delta int) (int, error) {
	var available int
	err := t.tx.QueryRow(ctx, `
		UPDATE flights
		SET seats_available = seats_available + $2, updated_at = now()
		WHERE id = $1 AND seats_available + $2 BETWEEN 0 AND total_seats
		RETURNING seats_available`, t.flight.ID, delta).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, seatBoundsError(delta)
	}
	if err != nil {
		return 0, fmt.Errorf("adjust seats: %w", err)
	}
	t.flight.SeatsAvailable = available
	return available, nil
}

func (t *pgFlightTx) PNRExists(ctx context.Context, pnr string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE pnr=$1)`, pnr).Scan(&exists)
	return exists, err
}

func (t *pgFlightTx) SeatTaken(ctx context.Context, seat string) (bool, error) {
	var taken bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM bookings WHERE flight_id=$1 AND seat_number=$2 AND booking_status=$3)`,
		t.flight.ID, seat, domain.BookingStatusConfirmed).Scan(&taken)
	return taken, err
}

// CreateBooking runs the insert under a savepoint so a unique violation does
// not abort the surrounding transaction.
func (t *pgFlightTx) CreateBooking(ctx context.Context, b *domain.Booking) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	err = sp.QueryRow(ctx, `
		INSERT INTO bookings (pnr, flight_id, passenger_name, passenger_age, passenger_phone, passenger_email,
		                      seat_number, booking_status, final_fare, payment_status, payment_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11)
		RETURNING id, created_at, updated_at`,
		b.PNR, b.FlightID, b.Passenger.Name, b.Passenger.Age, b.Passenger.Phone, b.Passenger.Email,
		b.SeatNumber, b.Status, b.FinalFare.StringFixed(2), b.PaymentStatus, b.PaymentRef).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		_ = sp.Rollback(ctx)
		return insertBookingError(err, b)
	}
	return sp.Commit(ctx)
}

func insertBookingError(err error, b *domain.Booking) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	if pgErr.ConstraintName == seatConstraint {
		return fmt.Errorf("seat %s on flight %d: %w", b.SeatNumber, b.FlightID, domain.ErrSeatTaken)
	}
	return fmt.Errorf("%w: %s", ErrDuplicatePNR, b.PNR)
}

func (t *pgFlightTx) AddHistory(ctx context.Context, e domain.BookingHistoryEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO booking_history (pnr, action, description, performed_by, performed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.PNR, e.Action, e.Description, performedBy(e), e.PerformedAt)
	return err
}

func (t *pgFlightTx) GetBookingForUpdate(ctx context.Context, pnr string) (*domain.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE pnr=$1 AND flight_id=$2 FOR UPDATE`, pnr, t.flight.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", pnr, domain.ErrNotFound)
	}
	return b, err
}

func (t *pgFlightTx) UpdateBookingStatus(ctx context.Context, pnr string, status domain.BookingStatus) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE bookings SET booking_status=$1, updated_at=now() WHERE pnr=$2 AND flight_id=$3`, status, pnr, t.flight.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", pnr, domain.ErrNotFound)
	}
	return nil
}

func (t *pgFlightTx) SaveFareQuote(ctx context.Context, q domain.FareQuote) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO fare_history (flight_id, base_fare, occupancy, seats_available, total_seats, hours_to_departure,
		                          seat_factor, time_factor, demand_factor, demand_level, computed_fare, computed_at)
		VALUES ($1, $2::numeric, $3::numeric, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric, $10, $11::numeric, $12)`,
		q.FlightID, q.BaseFare.String(), q.Occupancy.String(), q.SeatsAvailable, q.TotalSeats, q.HoursToDeparture,
		q.SeatFactor.String(), q.TimeFactor.String(), q.DemandFactor.String(), q.DemandLevel,
		q.ComputedFare.StringFixed(2), q.ComputedAt)
	return err
}

func (t *pgFlightTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgFlightTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

var (
	_ Store    = (*PGStore)(nil)
	_ FlightTx = (*pgFlightTx)(nil)
)
