package pricing

import (
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	seatFactorFull   = decimal.RequireFromString("1.5")
	seatFactorHigh   = decimal.RequireFromString("1.2")
	seatFactorMedium = decimal.RequireFromString("1.1")
	seatFactorLow    = decimal.RequireFromString("0.95")

	timeFactorDay   = decimal.RequireFromString("1.4")
	timeFactorDays  = decimal.RequireFromString("1.2")
	timeFactorWeek  = decimal.RequireFromString("1.1")
	timeFactorLater = decimal.RequireFromString("1.0")
)

// Input is everything a single fare computation depends on.
type Input struct {
	FlightID       int64
	BaseFare       decimal.Decimal
	SeatsAvailable int
	TotalSeats     int
	DepartureTime  time.Time
	Now            time.Time
	Demand         domain.DemandLevel
	Mode           domain.QuoteMode
}

// Compute is the pricing formula. It has no side effects.
func Compute(in Input) (domain.FareQuote, error) {
	if in.TotalSeats <= 0 {
		return domain.FareQuote{}, fmt.Errorf("%w: total seats must be positive", domain.ErrValidation)
	}
	if in.SeatsAvailable < 0 || in.SeatsAvailable > in.TotalSeats {
		return domain.FareQuote{}, fmt.Errorf("%w: seats available %d out of range [0, %d]", domain.ErrValidation, in.SeatsAvailable, in.TotalSeats)
	}
	if !in.BaseFare.IsPositive() {
		return domain.FareQuote{}, fmt.Errorf("%w: base fare must be positive", domain.ErrValidation)
	}

	left := in.DepartureTime.Sub(in.Now)
	if left < 0 {
		return domain.FareQuote{}, domain.ErrFlightDeparted
	}

	demandFactor, err := DemandFactor(in.Demand)
	if err != nil {
		return domain.FareQuote{}, err
	}

	seatFactor := SeatFactor(in.SeatsAvailable, in.TotalSeats)
	timeFactor := TimeFactor(left)

	fare := in.BaseFare.Mul(seatFactor).Mul(timeFactor).Mul(demandFactor).Round(2)

	occupied := decimal.NewFromInt(int64(in.TotalSeats - in.SeatsAvailable))
	occupancy := occupied.DivRound(decimal.NewFromInt(int64(in.TotalSeats)), 4)

	return domain.FareQuote{
		FlightID:         in.FlightID,
		Mode:             in.Mode,
		BaseFare:         in.BaseFare,
		Occupancy:        occupancy,
		SeatsAvailable:   in.SeatsAvailable,
		TotalSeats:       in.TotalSeats,
		HoursToDeparture: int(left / time.Hour),
		SeatFactor:       seatFactor,
		TimeFactor:       timeFactor,
		DemandFactor:     demandFactor,
		DemandLevel:      in.Demand,
		ComputedFare:     fare,
		ComputedAt:       in.Now,
	}, nil
}

// SeatFactor grades occupancy (1 - available/total). The comparisons are
// done on integers so a tier boundary is hit exactly.
func SeatFactor(available, total int) decimal.Decimal {
	occupied := total - available
	switch {
	case occupied*10 >= total*8:
		return seatFactorFull
	case occupied*10 >= total*5:
		return seatFactorHigh
	case occupied*10 >= total*3:
		return seatFactorMedium
	default:
		return seatFactorLow
	}
}

// TimeFactor grades the time left before departure. left must not be negative.
func TimeFactor(left time.Duration) decimal.Decimal {
	switch {
	case left < 24*time.Hour:
		return timeFactorDay
	case left < 72*time.Hour:
		return timeFactorDays
	case left < 168*time.Hour:
		return timeFactorWeek
	default:
		return timeFactorLater
	}
}

// LockedSnapshot is a flight snapshot read under the flight lock.
type LockedSnapshot interface {
	Snapshot() domain.Flight
	Held() bool
}

type Engine struct {
	demand DemandSource
	now    func() time.Time
}

type EngineOption func(*Engine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(demand DemandSource, opts ...EngineOption) *Engine {
	e := &Engine{demand: demand, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Quote prices a flight for display. It takes no lock and the result must
// never be charged.
func (e *Engine) Quote(f domain.Flight) (domain.FareQuote, error) {
	return e.compute(f, domain.QuoteModeDisplay)
}

// Charge prices the flight held by a lease. The returned quote is the amount
// to charge and persist.
func (e *Engine) Charge(s LockedSnapshot) (domain.FareQuote, error) {
	if !s.Held() {
		return domain.FareQuote{}, domain.ErrLockNotHeld
	}
	return e.compute(s.Snapshot(), domain.QuoteModeCharge)
}

func (e *Engine) compute(f domain.Flight, mode domain.QuoteMode) (domain.FareQuote, error) {
	return Compute(Input{
		FlightID:       f.ID,
		BaseFare:       f.BaseFare,
		SeatsAvailable: f.SeatsAvailable,
		TotalSeats:     f.TotalSeats,
		DepartureTime:  f.DepartureTime,
		Now:            e.now(),
		Demand:         e.demand.Sample(f.ID),
		Mode:           mode,
	})
}
