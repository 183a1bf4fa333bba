package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlight(id int64, available, total int) domain.Flight {
	return domain.Flight{
		ID:             id,
		FlightNo:       "AI101",
		Origin:         "DEL",
		Destination:    "BOM",
		DepartureTime:  time.Now().Add(48 * time.Hour),
		ArrivalTime:    time.Now().Add(50 * time.Hour),
		TotalSeats:     total,
		SeatsAvailable: available,
		BaseFare:       decimal.RequireFromString("5000.00"),
		Status:         domain.FlightStatusScheduled,
	}
}

func testBooking(pnr string, flightID int64) *domain.Booking {
	return &domain.Booking{
		PNR:           pnr,
		FlightID:      flightID,
		Passenger:     domain.Passenger{Name: "Asha Rao", Age: 30, Phone: "9876543210"},
		SeatNumber:    "12A",
		Status:        domain.BookingStatusConfirmed,
		FinalFare:     decimal.RequireFromString("5000.00"),
		PaymentStatus: domain.PaymentStatusSuccess,
	}
}

func TestMemoryStore_CommitPublishesChanges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testFlight(1, 5, 10))

	tx, err := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, err)

	require.NoError(t, tx.CreateBooking(ctx, testBooking("ABC123", 1)))
	left, err := tx.AdjustSeats(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 4, left)
	require.NoError(t, tx.SaveFareQuote(ctx, domain.FareQuote{FlightID: 1, ComputedAt: time.Now()}))

	// Not visible before commit.
	f, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, f.SeatsAvailable)
	_, err = store.GetByPNR(ctx, "ABC123")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, tx.Commit(ctx))

	f, err = store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, f.SeatsAvailable)

	b, err := store.GetByPNR(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	assert.NotZero(t, b.ID)

	history, err := store.FareHistory(ctx, 1, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMemoryStore_RollbackDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testFlight(1, 5, 10))

	tx, err := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, err)
	require.NoError(t, tx.CreateBooking(ctx, testBooking("ABC123", 1)))
	_, err = tx.AdjustSeats(ctx, -1)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	f, _ := store.GetByID(ctx, 1)
	assert.Equal(t, 5, f.SeatsAvailable)
	_, err = store.GetByPNR(ctx, "ABC123")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Error(t, tx.Commit(ctx))
}

func TestMemoryStore_SeatBounds(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testFlight(1, 0, 2), testFlight(2, 2, 2))

	tx, err := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, err)
	_, err = tx.AdjustSeats(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrSeatsExhausted)
	require.NoError(t, tx.Rollback(ctx))

	tx, err = store.BeginFlight(ctx, 2, time.Second)
	require.NoError(t, err)
	_, err = tx.AdjustSeats(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrCapacityOverflow)
	require.NoError(t, tx.Rollback(ctx))
}

func TestMemoryStore_CommitRechecksBounds(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testFlight(1, 1, 10))

	// Two unserialized transactions both see one seat left.
	first, err := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, err)
	second, err := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, err)

	_, err = first.AdjustSeats(ctx, -1)
	require.NoError(t, err)
	_, err = second.AdjustSeats(ctx, -1)
	require.NoError(t, err)

	require.NoError(t, first.Commit(ctx))
	assert.ErrorIs(t, second.Commit(ctx), domain.ErrSeatsExhausted)

	f, _ := store.GetByID(ctx, 1)
	assert.Equal(t, 0, f.SeatsAvailable)
}

func TestMemoryStore_DuplicatePNR(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testFlight(1, 5, 10), testFlight(2, 5, 10))

	tx, _ := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, tx.CreateBooking(ctx, testBooking("ABC123", 1)))
	require.NoError(t, tx.Commit(ctx))

	tx, _ = store.BeginFlight(ctx, 2, time.Second)
	exists, err := tx.PNRExists(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.ErrorIs(t, tx.CreateBooking(ctx, testBooking("ABC123", 2)), ErrDuplicatePNR)
	require.NoError(t, tx.Rollback(ctx))
}

func TestMemoryStore_UpdateBookingStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testFlight(1, 5, 10), testFlight(2, 5, 10))

	tx, _ := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, tx.CreateBooking(ctx, testBooking("ABC123", 1)))
	require.NoError(t, tx.Commit(ctx))

	// A booking is only reachable through its own flight's transaction.
	other, _ := store.BeginFlight(ctx, 2, time.Second)
	_, err := other.GetBookingForUpdate(ctx, "ABC123")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, other.Rollback(ctx))

	tx, _ = store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, tx.UpdateBookingStatus(ctx, "ABC123", domain.BookingStatusCancelled))
	require.NoError(t, tx.Commit(ctx))

	b, err := store.GetByPNR(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
}

func TestMemoryStore_ListAndNotFound(t *testing.T) {
	ctx := context.Background()
	later := testFlight(1, 5, 10)
	sooner := testFlight(2, 5, 10)
	sooner.DepartureTime = later.DepartureTime.Add(-time.Hour)
	store := NewMemoryStore(later, sooner)

	flights, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, flights, 2)
	assert.Equal(t, int64(2), flights[0].ID)

	_, err = store.GetByID(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.BeginFlight(ctx, 99, time.Second)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSampleFlights(t *testing.T) {
	now := time.Now()
	flights := SampleFlights(30, now)
	require.Len(t, flights, 30)
	for _, f := range flights {
		assert.NotEqual(t, f.Origin, f.Destination)
		assert.True(t, f.DepartureTime.After(now))
		assert.True(t, f.SeatsAvailable >= 10 && f.SeatsAvailable <= f.TotalSeats)
		assert.True(t, f.BaseFare.IsPositive())
	}
}

func TestMemoryStore_SeatTaken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testFlight(1, 5, 10), testFlight(2, 5, 10))

	tx, err := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, err)
	require.NoError(t, tx.CreateBooking(ctx, testBooking("ABC123", 1)))
	taken, err := tx.SeatTaken(ctx, "12A")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.ErrorIs(t, tx.CreateBooking(ctx, testBooking("ABC124", 1)), domain.ErrSeatTaken)
	require.NoError(t, tx.Commit(ctx))

	other, err := store.BeginFlight(ctx, 2, time.Second)
	require.NoError(t, err)
	taken, err = other.SeatTaken(ctx, "12A")
	require.NoError(t, err)
	assert.False(t, taken)
	require.NoError(t, other.Rollback(ctx))

	tx, err = store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, err)
	require.NoError(t, tx.UpdateBookingStatus(ctx, "ABC123", domain.BookingStatusCancelled))
	taken, err = tx.SeatTaken(ctx, "12A")
	require.NoError(t, err)
	assert.False(t, taken)
	require.NoError(t, tx.CreateBooking(ctx, testBooking("ABC125", 1)))
	require.NoError(t, tx.Commit(ctx))
}

func TestMemoryStore_CommitRechecksSeat(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testFlight(1, 5, 10))

	first, err := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, err)
	second, err := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, err)

	require.NoError(t, first.CreateBooking(ctx, testBooking("ABC123", 1)))
	require.NoError(t, second.CreateBooking(ctx, testBooking("XYZ789", 1)))
	require.NoError(t, first.Commit(ctx))
	assert.ErrorIs(t, second.Commit(ctx), domain.ErrSeatTaken)

	_, err = store.GetByPNR(ctx, "XYZ789")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_BookingHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testFlight(1, 5, 10))
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tx, err := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, err)
	require.NoError(t, tx.CreateBooking(ctx, testBooking("ABC123", 1)))
	require.NoError(t, tx.AddHistory(ctx, domain.BookingHistoryEntry{
		PNR: "ABC123", Action: domain.BookingActionCreated, Description: "created", PerformedAt: at,
	}))
	require.NoError(t, tx.AddHistory(ctx, domain.BookingHistoryEntry{
		PNR: "ABC123", Action: domain.BookingActionPaymentSuccess, PerformedBy: "gateway", PerformedAt: at,
	}))

	history, err := store.BookingHistory(ctx, "ABC123")
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, tx.Commit(ctx))

	history, err = store.BookingHistory(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.BookingActionCreated, history[0].Action)
	assert.Equal(t, "system", history[0].PerformedBy)
	assert.Equal(t, "gateway", history[1].PerformedBy)

	rolled, err := store.BeginFlight(ctx, 1, time.Second)
	require.NoError(t, err)
	require.NoError(t, rolled.AddHistory(ctx, domain.BookingHistoryEntry{PNR: "ABC123", Action: domain.BookingActionCancelled}))
	require.NoError(t, rolled.Rollback(ctx))

	history, err = store.BookingHistory(ctx, "ABC123")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
