package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const flightColumns = `id, flight_no, origin, destination, departure_time, arrival_time, total_seats, seats_available, base_fare::text, status, created_at, updated_at`

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) *PGFlightRepository {
	return &PGFlightRepository{db: db}
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
	}
	return f, err
}

func (r *PGFlightRepository) FareHistory(ctx context.Context, flightID int64, since time.Time) ([]domain.FareQuote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT flight_id, base_fare::text, occupancy::text, seats_available, total_seats, hours_to_departure,
		       seat_factor::text, time_factor::text, demand_factor::text, demand_level, computed_fare::text, computed_at
		FROM fare_history
		WHERE flight_id = $1 AND computed_at >= $2
		ORDER BY computed_at`, flightID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := make([]domain.FareQuote, 0)
	for rows.Next() {
		var (
			q                                             domain.FareQuote
			base, occ, seatF, timeF, demandF, computedStr string
		)
		if err := rows.Scan(&q.FlightID, &base, &occ, &q.SeatsAvailable, &q.TotalSeats, &q.HoursToDeparture,
			&seatF, &timeF, &demandF, &q.DemandLevel, &computedStr, &q.ComputedAt); err != nil {
			return nil, err
		}
		q.Mode = domain.QuoteModeCharge
		if err := parseDecimals(
			decimalField{base, &q.BaseFare},
			decimalField{occ, &q.Occupancy},
			decimalField{seatF, &q.SeatFactor},
			decimalField{timeF, &q.TimeFactor},
			decimalField{demandF, &q.DemandFactor},
			decimalField{computedStr, &q.ComputedFare},
		); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var (
		f    domain.Flight
		fare string
	)
	if err := row.Scan(&f.ID, &f.FlightNo, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime,
		&f.TotalSeats, &f.SeatsAvailable, &fare, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := parseDecimals(decimalField{fare, &f.BaseFare}); err != nil {
		return nil, err
	}
	return &f, nil
}

type decimalField struct {
	raw string
	dst *decimal.Decimal
}

func parseDecimals(fields ...decimalField) error {
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return fmt.Errorf("parse numeric %q: %w", f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
