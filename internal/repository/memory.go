package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

// MemoryStore keeps flights, bookings and fare history in process. A
// transaction works on a private copy and publishes it on Commit, so nothing
// it does is visible before then. Commit re-checks seat bounds against the
// current state, which keeps the invariants even without an external lock;
// serializing transactions per flight is still the job of the caller's locker.
type MemoryStore struct {
	mu       sync.RWMutex
	flights  map[int64]domain.Flight
	bookings map[string]domain.Booking
	fares    []domain.FareQuote
	history  []domain.BookingHistoryEntry
	nextID   int64
	now      func() time.Time
}

func NewMemoryStore(flights ...domain.Flight) *MemoryStore {
	s := &MemoryStore{
		flights:  make(map[int64]domain.Flight, len(flights)),
		bookings: make(map[string]domain.Booking),
		now:      time.Now,
	}
	for _, f := range flights {
		s.flights[f.ID] = f
	}
	return s
}

func (s *MemoryStore) List(_ context.Context) ([]domain.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flights := make([]domain.Flight, 0, len(s.flights))
	for _, f := range s.flights {
		flights = append(flights, f)
	}
	sort.Slice(flights, func(i, j int) bool {
		return flights[i].DepartureTime.Before(flights[j].DepartureTime)
	})
	return flights, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id int64) (*domain.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flights[id]
	if !ok {
		return nil, fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
	}
	return &f, nil
}

func (s *MemoryStore) FareHistory(_ context.Context, flightID int64, since time.Time) ([]domain.FareQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]domain.FareQuote, 0)
	for _, q := range s.fares {
		if q.FlightID == flightID && !q.ComputedAt.Before(since) {
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

func (s *MemoryStore) GetByPNR(_ context.Context, pnr string) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[pnr]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", pnr, domain.ErrNotFound)
	}
	return &b, nil
}

func (s *MemoryStore) BookingHistory(_ context.Context, pnr string) ([]domain.BookingHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.BookingHistoryEntry, 0)
	for _, e := range s.history {
		if e.PNR == pnr {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *MemoryStore) BeginFlight(ctx context.Context, flightID int64, _ time.Duration) (FlightTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	return &memoryFlightTx{
		store:    s,
		flight:   *f,
		bookings: make(map[string]domain.Booking),
	}, nil
}

type memoryFlightTx struct {
	store    *MemoryStore
	flight   domain.Flight
	delta    int
	bookings map[string]domain.Booking
	fares    []domain.FareQuote
	history  []domain.BookingHistoryEntry
	closed   bool
}

func (t *memoryFlightTx) Flight() domain.Flight {
	return t.flight
}

func (t *memoryFlightTx) AdjustSeats(_ context.Context, delta int) (int, error) {
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	next := t.flight.SeatsAvailable + delta
	if next < 0 || next > t.flight.TotalSeats {
		return 0, seatBoundsError(delta)
	}
	t.flight.SeatsAvailable = next
	t.delta += delta
	return next, nil
}

func (t *memoryFlightTx) PNRExists(_ context.Context, pnr string) (bool, error) {
	if _, ok := t.bookings[pnr]; ok {
		return true, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	_, ok := t.store.bookings[pnr]
	return ok, nil
}

func (t *memoryFlightTx) SeatTaken(_ context.Context, seat string) (bool, error) {
	for _, b := range t.bookings {
		if t.holdsSeat(b, seat) {
			return true, nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for pnr, b := range t.store.bookings {
		if _, staged := t.bookings[pnr]; staged {
			continue
		}
		if t.holdsSeat(b, seat) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryFlightTx) holdsSeat(b domain.Booking, seat string) bool {
	return b.FlightID == t.flight.ID && b.SeatNumber == seat && b.Status == domain.BookingStatusConfirmed
}

func (t *memoryFlightTx) CreateBooking(ctx context.Context, b *domain.Booking) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	exists, err := t.PNRExists(ctx, b.PNR)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePNR, b.PNR)
	}
	if b.Status == domain.BookingStatusConfirmed {
		taken, err := t.SeatTaken(ctx, b.SeatNumber)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("seat %s on flight %d: %w", b.SeatNumber, b.FlightID, domain.ErrSeatTaken)
		}
	}
	now := t.store.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	t.bookings[b.PNR] = *b
	return nil
}

func (t *memoryFlightTx) GetBookingForUpdate(ctx context.Context, pnr string) (*domain.Booking, error) {
	if b, ok := t.bookings[pnr]; ok {
		return &b, nil
	}
	b, err := t.store.GetByPNR(ctx, pnr)
	if err != nil {
		return nil, err
	}
	if b.FlightID != t.flight.ID {
		return nil, fmt.Errorf("booking %s: %w", pnr, domain.ErrNotFound)
	}
	return b, nil
}

func (t *memoryFlightTx) UpdateBookingStatus(ctx context.Context, pnr string, status domain.BookingStatus) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	b, err := t.GetBookingForUpdate(ctx, pnr)
	if err != nil {
		return err
	}
	b.Status = status
	b.UpdatedAt = t.store.now()
	t.bookings[pnr] = *b
	return nil
}

func (t *memoryFlightTx) AddHistory(_ context.Context, e domain.BookingHistoryEntry) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	e.PerformedBy = performedBy(e)
	if e.PerformedAt.IsZero() {
		e.PerformedAt = t.store.now()
	}
	t.history = append(t.history, e)
	return nil
}

func (t *memoryFlightTx) SaveFareQuote(_ context.Context, q domain.FareQuote) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	t.fares = append(t.fares, q)
	return nil
}

func (t *memoryFlightTx) Commit(_ context.Context) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	t.closed = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.flights[t.flight.ID]
	if !ok {
		return fmt.Errorf("flight %d: %w", t.flight.ID, domain.ErrNotFound)
	}
	next := current.SeatsAvailable + t.delta
	if next < 0 || next > current.TotalSeats {
		return seatBoundsError(t.delta)
	}
	for pnr, b := range t.bookings {
		if existing, ok := s.bookings[pnr]; ok && existing.ID != b.ID {
			return fmt.Errorf("%w: %s", ErrDuplicatePNR, pnr)
		}
		if b.ID == 0 && b.Status == domain.BookingStatusConfirmed && t.seatHeldLocked(b) {
			return fmt.Errorf("seat %s on flight %d: %w", b.SeatNumber, b.FlightID, domain.ErrSeatTaken)
		}
	}

	if t.delta != 0 {
		current.SeatsAvailable = next
		current.UpdatedAt = s.now()
		s.flights[current.ID] = current
	}
	for pnr, b := range t.bookings {
		if b.ID == 0 {
			s.nextID++
			b.ID = s.nextID
		}
		s.bookings[pnr] = b
	}
	s.fares = append(s.fares, t.fares...)
	s.history = append(s.history, t.history...)
	return nil
}

// seatHeldLocked reports whether another booking holds b's seat once this
// transaction's own status changes are applied. The store lock must be held.
func (t *memoryFlightTx) seatHeldLocked(b domain.Booking) bool {
	for pnr, other := range t.store.bookings {
		if staged, ok := t.bookings[pnr]; ok {
			other = staged
		}
		if pnr != b.PNR && other.FlightID == b.FlightID && other.SeatNumber == b.SeatNumber &&
			other.Status == domain.BookingStatusConfirmed {
			return true
		}
	}
	return false
}

func (t *memoryFlightTx) Rollback(_ context.Context) error {
	t.closed = true
	return nil
}

func (t *memoryFlightTx) checkOpen() error {
	if t.closed {
		return fmt.Errorf("transaction on flight %d is closed", t.flight.ID)
	}
	return nil
}

var (
	_ Store    = (*MemoryStore)(nil)
	_ FlightTx = (*memoryFlightTx)(nil)
)
