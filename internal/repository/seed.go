package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	seedAirports = []string{"DEL", "BOM", "BLR", "MAA", "CCU", "HYD"}
	seedAirlines = []string{"AI", "6E", "SG", "UK"}
)

// SampleFlights builds n scheduled flights departing within the next week,
// for running the service on the memory driver.
func SampleFlights(n int, now time.Time) []domain.Flight {
	flights := make([]domain.Flight, 0, n)
	for i := 0; i < n; i++ {
		origin := seedAirports[rand.IntN(len(seedAirports))]
		destination := origin
		for destination == origin {
			destination = seedAirports[rand.IntN(len(seedAirports))]
		}

		day := now.AddDate(0, 0, 1+rand.IntN(7)).Truncate(24 * time.Hour)
		departure := day.Add(time.Duration(6+rand.IntN(17)) * time.Hour)
		total := 180
		flights = append(flights, domain.Flight{
			ID:             int64(i + 1),
			FlightNo:       fmt.Sprintf("%s%d", seedAirlines[rand.IntN(len(seedAirlines))], 100+i),
			Origin:         origin,
			Destination:    destination,
			DepartureTime:  departure,
			ArrivalTime:    departure.Add(time.Duration(1+rand.IntN(4)) * time.Hour),
			TotalSeats:     total,
			SeatsAvailable: 10 + rand.IntN(total-10+1),
			BaseFare:       decimal.NewFromInt(int64(3000 + rand.IntN(9001))),
			Status:         domain.FlightStatusScheduled,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return flights
}

// SeedFlights inserts flights into an empty flights table. Flight IDs are
// assigned by the database.
func SeedFlights(ctx context.Context, db *pgxpool.Pool, flights []domain.Flight) (int, error) {
	var count int
	if err := db.QueryRow(ctx, `SELECT count(*) FROM flights`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count flights: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, f := range flights {
		batch.Queue(`
			INSERT INTO flights (flight_no, origin, destination, departure_time, arrival_time, total_seats,
			                     seats_available, base_fare, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9)
			ON CONFLICT (flight_no) DO NOTHING`,
			f.FlightNo, f.Origin, f.Destination, f.DepartureTime, f.ArrivalTime, f.TotalSeats,
			f.SeatsAvailable, f.BaseFare.StringFixed(2), f.Status)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("insert flights: %w", err)
	}
	return len(flights), nil
}
