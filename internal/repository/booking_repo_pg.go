package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, pnr, flight_id, passenger_name, passenger_age, passenger_phone, passenger_email, seat_number, booking_status, final_fare::text, payment_status, payment_ref, created_at, updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *PGBookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE pnr=$1`, pnr))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", pnr, domain.ErrNotFound)
	}
	return b, err
}

func (r *PGBookingRepository) BookingHistory(ctx context.Context, pnr string) ([]domain.BookingHistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT pnr, action, description, performed_by, performed_at
		FROM booking_history WHERE pnr=$1 ORDER BY performed_at, id`, pnr)
	if err != nil {
		return nil, fmt.Errorf("query booking history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.BookingHistoryEntry, 0)
	for rows.Next() {
		var e domain.BookingHistoryEntry
		if err := rows.Scan(&e.PNR, &e.Action, &e.Description, &e.PerformedBy, &e.PerformedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b    domain.Booking
		fare string
	)
	if err := row.Scan(&b.ID, &b.PNR, &b.FlightID, &b.Passenger.Name, &b.Passenger.Age, &b.Passenger.Phone,
		&b.Passenger.Email, &b.SeatNumber, &b.Status, &fare, &b.PaymentStatus, &b.PaymentRef,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if err := parseDecimals(decimalField{fare, &b.FinalFare}); err != nil {
		return nil, err
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
