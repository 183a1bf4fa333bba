package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking or cancellation commits.
type BookingEvent struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	PNR           string          `json:"pnr"`
	FlightID      int64           `json:"flight_id"`
	SeatNumber    string          `json:"seat_number"`
	PassengerName string          `json:"passenger_name"`
	Email         string          `json:"email,omitempty"`
	Status        string          `json:"status"`
	FinalFare     decimal.Decimal `json:"final_fare"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		EventID:       uuid.NewString(),
		Type:          eventType,
		PNR:           b.PNR,
		FlightID:      b.FlightID,
		SeatNumber:    b.SeatNumber,
		PassengerName: b.Passenger.Name,
		Email:         b.Passenger.Email,
		Status:        string(b.Status),
		FinalFare:     b.FinalFare,
		OccurredAt:    at,
	}
}

func DecodeBookingEvent(msg kafka.Message) (BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return BookingEvent{}, fmt.Errorf("decode booking event at offset %d: %w", msg.Offset, err)
	}
	return event, nil
}
