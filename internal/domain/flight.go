package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusDelayed   FlightStatus = "DELAYED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
)

type Flight struct {
	ID             int64           `json:"id"`
	FlightNo       string          `json:"flight_no"`
	Origin         string          `json:"origin"`
	Destination    string          `json:"destination"`
	DepartureTime  time.Time       `json:"departure_time"`
	ArrivalTime    time.Time       `json:"arrival_time"`
	TotalSeats     int             `json:"total_seats"`
	SeatsAvailable int             `json:"seats_available"`
	BaseFare       decimal.Decimal `json:"base_fare"`
	Status         FlightStatus    `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Bookable reports whether the flight accepts new bookings at all,
// regardless of remaining capacity.
func (f Flight) Bookable() bool {
	return f.Status != FlightStatusCancelled
}
