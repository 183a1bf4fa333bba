package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("PG_INTEGRATION") == "" {
		t.Skip("set PG_INTEGRATION=1 to run postgres integration tests")
	}

	ctx := context.Background()
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:15.2-alpine"),
		postgres.WithDatabase("flightbooking"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func seedOne(t *testing.T, pool *pgxpool.Pool, available, total int) domain.Flight {
	t.Helper()
	ctx := context.Background()
	f := testFlight(0, available, total)
	n, err := SeedFlights(ctx, pool, []domain.Flight{f})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	flights, err := NewFlightRepository(pool).List(ctx)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	return flights[0]
}

func TestPGStore_BookingLifecycle(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	store := NewPGStore(pool)
	flight := seedOne(t, pool, 2, 10)
	assert.True(t, flight.BaseFare.Equal(decimal.RequireFromString("5000")))

	tx, err := store.BeginFlight(ctx, flight.ID, time.Second)
	require.NoError(t, err)
	require.NoError(t, tx.CreateBooking(ctx, testBooking("PGT001", flight.ID)))
	left, err := tx.AdjustSeats(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, left)
	require.NoError(t, tx.SaveFareQuote(ctx, domain.FareQuote{
		FlightID:     flight.ID,
		BaseFare:     flight.BaseFare,
		Occupancy:    decimal.RequireFromString("0.8"),
		SeatFactor:   decimal.RequireFromString("1.5"),
		TimeFactor:   decimal.RequireFromString("1.0"),
		DemandFactor: decimal.RequireFromString("1.0"),
		DemandLevel:  domain.DemandLow,
		ComputedFare: decimal.RequireFromString("7500.00"),
		ComputedAt:   time.Now(),
	}))
	require.NoError(t, tx.Commit(ctx))

	b, err := store.GetByPNR(ctx, "PGT001")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	assert.True(t, b.FinalFare.Equal(decimal.RequireFromString("5000")))

	history, err := store.FareHistory(ctx, flight.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].ComputedFare.Equal(decimal.RequireFromString("7500")))

	tx, err = store.BeginFlight(ctx, flight.ID, time.Second)
	require.NoError(t, err)
	require.NoError(t, tx.UpdateBookingStatus(ctx, "PGT001", domain.BookingStatusCancelled))
	_, err = tx.AdjustSeats(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	got, err := store.GetByID(ctx, flight.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SeatsAvailable)
}

func TestPGStore_SeatBoundsAndDuplicatePNR(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	store := NewPGStore(pool)
	flight := seedOne(t, pool, 0, 10)

	tx, err := store.BeginFlight(ctx, flight.ID, time.Second)
	require.NoError(t, err)
	_, err = tx.AdjustSeats(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrSeatsExhausted)
	require.NoError(t, tx.Rollback(ctx))

	tx, err = store.BeginFlight(ctx, flight.ID, time.Second)
	require.NoError(t, err)
	require.NoError(t, tx.CreateBooking(ctx, testBooking("PGT002", flight.ID)))
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.BeginFlight(ctx, flight.ID, time.Second)
	require.NoError(t, err)
	dup := testBooking("PGT002", flight.ID)
	dup.SeatNumber = "14C"
	assert.ErrorIs(t, tx.CreateBooking(ctx, dup), ErrDuplicatePNR)

	// The failed insert must not abort the transaction.
	dup.PNR = "PGT003"
	require.NoError(t, tx.CreateBooking(ctx, dup))

	taken := testBooking("PGT004", flight.ID)
	assert.ErrorIs(t, tx.CreateBooking(ctx, taken), domain.ErrSeatTaken)
	require.NoError(t, tx.Commit(ctx))

	_, err = store.GetByPNR(ctx, "PGT003")
	require.NoError(t, err)
}

func TestPGStore_SeatTakenAndHistory(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	store := NewPGStore(pool)
	flight := seedOne(t, pool, 5, 10)
	at := time.Now().UTC().Truncate(time.Millisecond)

	tx, err := store.BeginFlight(ctx, flight.ID, time.Second)
	require.NoError(t, err)
	require.NoError(t, tx.CreateBooking(ctx, testBooking("HIST0001", flight.ID)))
	require.NoError(t, tx.AddHistory(ctx, domain.BookingHistoryEntry{
		PNR: "HIST0001", Action: domain.BookingActionCreated, Description: "created", PerformedAt: at,
	}))
	require.NoError(t, tx.AddHistory(ctx, domain.BookingHistoryEntry{
		PNR: "HIST0001", Action: domain.BookingActionPaymentSuccess, PerformedAt: at.Add(time.Millisecond),
	}))
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.BeginFlight(ctx, flight.ID, time.Second)
	require.NoError(t, err)
	taken, err := tx.SeatTaken(ctx, "12A")
	require.NoError(t, err)
	assert.True(t, taken)
	require.NoError(t, tx.UpdateBookingStatus(ctx, "HIST0001", domain.BookingStatusCancelled))
	taken, err = tx.SeatTaken(ctx, "12A")
	require.NoError(t, err)
	assert.False(t, taken)
	require.NoError(t, tx.Commit(ctx))

	history, err := store.BookingHistory(ctx, "HIST0001")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.BookingActionCreated, history[0].Action)
	assert.Equal(t, "system", history[0].PerformedBy)
	assert.True(t, history[0].PerformedAt.Equal(at))
	assert.Equal(t, domain.BookingActionPaymentSuccess, history[1].Action)
}

func TestPGStore_RowLockTimeout(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	store := NewPGStore(pool)
	flight := seedOne(t, pool, 5, 10)

	holder, err := store.BeginFlight(ctx, flight.ID, time.Second)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var waitErr error
	go func() {
		defer wg.Done()
		_, waitErr = store.BeginFlight(ctx, flight.ID, 200*time.Millisecond)
	}()
	wg.Wait()
	assert.ErrorIs(t, waitErr, domain.ErrLockTimeout)

	require.NoError(t, holder.Rollback(ctx))
}
