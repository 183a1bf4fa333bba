package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type Passenger struct {
	Name  string `json:"name" validate:"required,min=2,max=200"`
	Age   int    `json:"age" validate:"gt=0,lt=120"`
	Phone string `json:"phone" validate:"required,min=10,max=15"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type Booking struct {
	ID            int64           `json:"-"`
	PNR           string          `json:"pnr"`
	FlightID      int64           `json:"flight_id"`
	Passenger     Passenger       `json:"passenger"`
	SeatNumber    string          `json:"seat_number"`
	Status        BookingStatus   `json:"booking_status"`
	FinalFare     decimal.Decimal `json:"final_fare"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentRef    string          `json:"payment_ref"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type BookingAction string

const (
	BookingActionCreated        BookingAction = "CREATED"
	BookingActionPaymentSuccess BookingAction = "PAYMENT_SUCCESS"
	BookingActionCancelled      BookingAction = "CANCELLED"
)

// BookingHistoryEntry is one audit record of a booking. Entries are written in
// the same transaction as the change they describe.
type BookingHistoryEntry struct {
	PNR         string        `json:"pnr"`
	Action      BookingAction `json:"action"`
	Description string        `json:"description"`
	PerformedBy string        `json:"performed_by"`
	PerformedAt time.Time     `json:"performed_at"`
}

// TxState is a step of the booking transaction state machine.
type TxState string

const (
	TxInitiated  TxState = "INITIATED"
	TxLocked     TxState = "LOCKED"
	TxPriced     TxState = "PRICED"
	TxCharged    TxState = "CHARGED"
	TxPersisted  TxState = "PERSISTED"
	TxCommitted  TxState = "COMMITTED"
	TxRolledBack TxState = "ROLLED_BACK"
)
