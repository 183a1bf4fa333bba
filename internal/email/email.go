package email

import (
	"context"

	"github.com/Domenick1991/flightbooking/internal/kafka"
	"go.uber.org/zap"
)

// Sender delivers booking notifications. Delivery is a structured log line;
// wiring a mail provider only has to replace Send.
type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(_ context.Context, event kafka.BookingEvent) error {
	if event.Email == "" {
		s.log.Debug("no email on booking, skipping notification", zap.String("pnr", event.PNR))
		return nil
	}
	s.log.Info("send email",
		zap.String("to", event.Email),
		zap.String("type", event.Type),
		zap.String("pnr", event.PNR),
		zap.Int64("flight_id", event.FlightID),
		zap.String("seat", event.SeatNumber),
		zap.String("fare", event.FinalFare.StringFixed(2)),
	)
	return nil
}
