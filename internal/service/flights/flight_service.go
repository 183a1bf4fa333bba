package flights

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	QuoteFare(ctx context.Context, id int64) (domain.FareQuote, error)
	FareHistory(ctx context.Context, id int64, since time.Time) ([]domain.FareQuote, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

// Quoter prices a flight for display without locking it.
type Quoter interface {
	Quote(f domain.Flight) (domain.FareQuote, error)
}

type FlightService struct {
	repo    repository.FlightRepository
	cache   FlightCache
	pricing Quoter
	log     *zap.Logger
}

type FlightServiceOption func(*FlightService)

func WithLogger(log *zap.Logger) FlightServiceOption {
	return func(s *FlightService) {
		s.log = log
	}
}

// NewFlightService builds the read side of the flight catalogue. cache may be
// nil.
func NewFlightService(repo repository.FlightRepository, cache FlightCache, pricing Quoter, opts ...FlightServiceOption) *FlightService {
	s := &FlightService{repo: repo, cache: cache, pricing: pricing, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all flights. Seat counts may lag by the cache TTL.
func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err != nil {
			s.log.Warn("read flights cache", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.log.Warn("write flights cache", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

// QuoteFare prices the flight as it is right now. The quote is informational:
// the amount charged is computed again under the flight lock at booking time.
func (s *FlightService) QuoteFare(ctx context.Context, id int64) (domain.FareQuote, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.FareQuote{}, err
	}
	if !f.Bookable() {
		return domain.FareQuote{}, fmt.Errorf("flight %d is %s: %w", id, f.Status, domain.ErrFlightUnavailable)
	}
	return s.pricing.Quote(*f)
}

// FareHistory returns the fares charged on the flight since the given time.
func (s *FlightService) FareHistory(ctx context.Context, id int64, since time.Time) ([]domain.FareQuote, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.FareHistory(ctx, id, since)
}

var _ FlightUseCase = (*FlightService)(nil)
