package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DemandLevel string

const (
	DemandLow    DemandLevel = "LOW"
	DemandMedium DemandLevel = "MEDIUM"
	DemandHigh   DemandLevel = "HIGH"
)

type QuoteMode string

const (
	// QuoteModeDisplay quotes are read-only and never persisted.
	QuoteModeDisplay QuoteMode = "QUOTE"
	// QuoteModeCharge quotes are computed under the flight lock and are what gets charged.
	QuoteModeCharge QuoteMode = "CHARGE"
)

// FareQuote is an immutable record of one pricing decision.
type FareQuote struct {
	FlightID         int64           `json:"flight_id"`
	Mode             QuoteMode       `json:"mode"`
	BaseFare         decimal.Decimal `json:"base_fare"`
	Occupancy        decimal.Decimal `json:"occupancy"`
	SeatsAvailable   int             `json:"seats_available"`
	TotalSeats       int             `json:"total_seats"`
	HoursToDeparture int             `json:"hours_to_departure"`
	SeatFactor       decimal.Decimal `json:"seat_factor"`
	TimeFactor       decimal.Decimal `json:"time_factor"`
	DemandFactor     decimal.Decimal `json:"demand_factor"`
	DemandLevel      DemandLevel     `json:"demand_level"`
	ComputedFare     decimal.Decimal `json:"computed_fare"`
	ComputedAt       time.Time       `json:"computed_at"`
}
