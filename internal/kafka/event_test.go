package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingEvent_Decode(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := &domain.Booking{
		PNR:        "K7Q2ZP",
		FlightID:   42,
		Passenger:  domain.Passenger{Name: "Ravi Kumar", Age: 41, Phone: "9123456780", Email: "ravi@example.com"},
		SeatNumber: "14C",
		Status:     domain.BookingStatusConfirmed,
		FinalFare:  decimal.RequireFromString("12075.00"),
	}

	event := NewBookingEvent(EventBookingConfirmed, b, at)
	assert.NotEmpty(t, event.EventID)

	data, err := json.Marshal(event)
	require.NoError(t, err)

	got, err := DecodeBookingEvent(kafka.Message{Value: data})
	require.NoError(t, err)
	assert.Equal(t, EventBookingConfirmed, got.Type)
	assert.Equal(t, "K7Q2ZP", got.PNR)
	assert.Equal(t, "ravi@example.com", got.Email)
	assert.True(t, got.FinalFare.Equal(b.FinalFare))
	assert.True(t, got.OccurredAt.Equal(at))
}

func TestDecodeBookingEvent_Invalid(t *testing.T) {
	_, err := DecodeBookingEvent(kafka.Message{Value: []byte("{not json"), Offset: 9})
	assert.ErrorContains(t, err, "offset 9")
}
