package pricing

import (
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeLease struct {
	flight domain.Flight
	held   bool
}

func (l fakeLease) Snapshot() domain.Flight { return l.flight }
func (l fakeLease) Held() bool              { return l.held }

func baseInput() Input {
	return Input{
		FlightID:       1,
		BaseFare:       decimal.RequireFromString("5000.00"),
		SeatsAvailable: 36,
		TotalSeats:     180,
		DepartureTime:  testNow.Add(10 * time.Hour),
		Now:            testNow,
		Demand:         domain.DemandLow,
		Mode:           domain.QuoteModeDisplay,
	}
}

func TestCompute_Scenario(t *testing.T) {
	testCases := []struct {
		demand   domain.DemandLevel
		expected string
	}{
		{demand: domain.DemandLow, expected: "10500.00"},
		{demand: domain.DemandMedium, expected: "12075.00"},
		{demand: domain.DemandHigh, expected: "13650.00"},
	}

	for _, tc := range testCases {
		t.Run(string(tc.demand), func(t *testing.T) {
			in := baseInput()
			in.Demand = tc.demand

			quote, err := Compute(in)
			require.NoError(t, err)

			assert.Equal(t, "1.5", quote.SeatFactor.String())
			assert.Equal(t, "1.4", quote.TimeFactor.String())
			assert.Equal(t, tc.expected, quote.ComputedFare.StringFixed(2))
			assert.Equal(t, tc.demand, quote.DemandLevel)
			assert.Equal(t, "0.8", quote.Occupancy.String())
			assert.Equal(t, 10, quote.HoursToDeparture)
		})
	}
}

func TestSeatFactor_Boundaries(t *testing.T) {
	testCases := []struct {
		name      string
		available int
		total     int
		expected  string
	}{
		{name: "exactly 0.8", available: 20, total: 100, expected: "1.5"},
		{name: "0.7999", available: 2001, total: 10000, expected: "1.2"},
		{name: "full", available: 0, total: 100, expected: "1.5"},
		{name: "exactly 0.5", available: 50, total: 100, expected: "1.2"},
		{name: "just under 0.5", available: 51, total: 100, expected: "1.1"},
		{name: "exactly 0.3", available: 70, total: 100, expected: "1.1"},
		{name: "just under 0.3", available: 71, total: 100, expected: "0.95"},
		{name: "empty", available: 100, total: 100, expected: "0.95"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SeatFactor(tc.available, tc.total).String())
		})
	}
}

func TestTimeFactor_Tiers(t *testing.T) {
	testCases := []struct {
		left     time.Duration
		expected string
	}{
		{left: 0, expected: "1.4"},
		{left: 23*time.Hour + 59*time.Minute, expected: "1.4"},
		{left: 24 * time.Hour, expected: "1.2"},
		{left: 71 * time.Hour, expected: "1.2"},
		{left: 72 * time.Hour, expected: "1.1"},
		{left: 167 * time.Hour, expected: "1.1"},
		{left: 168 * time.Hour, expected: "1"},
		{left: 30 * 24 * time.Hour, expected: "1"},
	}

	for _, tc := range testCases {
		t.Run(tc.left.String(), func(t *testing.T) {
			assert.Equal(t, tc.expected, TimeFactor(tc.left).String())
		})
	}
}

func TestCompute_FlightDeparted(t *testing.T) {
	in := baseInput()
	in.DepartureTime = testNow.Add(-time.Minute)

	_, err := Compute(in)
	assert.ErrorIs(t, err, domain.ErrFlightDeparted)
}

func TestCompute_InvalidInput(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Input)
	}{
		{name: "zero total seats", mutate: func(in *Input) { in.TotalSeats = 0 }},
		{name: "negative availability", mutate: func(in *Input) { in.SeatsAvailable = -1 }},
		{name: "availability above total", mutate: func(in *Input) { in.SeatsAvailable = 181 }},
		{name: "zero base fare", mutate: func(in *Input) { in.BaseFare = decimal.Zero }},
		{name: "unknown demand", mutate: func(in *Input) { in.Demand = "EXTREME" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			tc.mutate(&in)
			_, err := Compute(in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCompute_RoundsToCents(t *testing.T) {
	in := baseInput()
	in.BaseFare = decimal.RequireFromString("3333.33")
	in.SeatsAvailable = 100
	in.TotalSeats = 100
	in.DepartureTime = testNow.Add(200 * time.Hour)
	in.Demand = domain.DemandMedium

	quote, err := Compute(in)
	require.NoError(t, err)

	// 3333.33 * 0.95 * 1.0 * 1.15 = 3641.663025
	assert.Equal(t, "3641.66", quote.ComputedFare.StringFixed(2))
}

func TestEngine_QuoteAndCharge(t *testing.T) {
	engine := NewEngine(FixedDemand(domain.DemandHigh), WithClock(func() time.Time { return testNow }))
	flight := domain.Flight{
		ID:             7,
		BaseFare:       decimal.RequireFromString("5000.00"),
		SeatsAvailable: 36,
		TotalSeats:     180,
		DepartureTime:  testNow.Add(10 * time.Hour),
	}

	quote, err := engine.Quote(flight)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteModeDisplay, quote.Mode)
	assert.Equal(t, "13650.00", quote.ComputedFare.StringFixed(2))
	assert.Equal(t, int64(7), quote.FlightID)

	charge, err := engine.Charge(fakeLease{flight: flight, held: true})
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteModeCharge, charge.Mode)
	assert.True(t, quote.ComputedFare.Equal(charge.ComputedFare))

	_, err = engine.Charge(fakeLease{flight: flight, held: false})
	assert.ErrorIs(t, err, domain.ErrLockNotHeld)
}

func TestDemandSources(t *testing.T) {
	uniform := &UniformDemand{intN: func(n int) int { return n - 1 }}
	assert.Equal(t, domain.DemandHigh, uniform.Sample(1))

	weighted := &WeightedDemand{float: func() float64 { return 0.1 }}
	assert.Equal(t, domain.DemandLow, weighted.Sample(1))
	weighted.float = func() float64 { return 0.5 }
	assert.Equal(t, domain.DemandMedium, weighted.Sample(1))
	weighted.float = func() float64 { return 0.95 }
	assert.Equal(t, domain.DemandHigh, weighted.Sample(1))

	for _, model := range []string{"", "uniform", "weighted", "low", "medium", "high"} {
		src, err := NewDemandSource(model)
		require.NoError(t, err, model)
		_, err = DemandFactor(src.Sample(1))
		assert.NoError(t, err, model)
	}

	_, err := NewDemandSource("seasonal")
	assert.Error(t, err)
}
