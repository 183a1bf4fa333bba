package booking

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/inventory"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/payment"
	"github.com/Domenick1991/flightbooking/internal/pnr"
	"github.com/Domenick1991/flightbooking/internal/pricing"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultCancellationCutoff = 2 * time.Hour

// pnrInsertAttempts bounds how often a code is regenerated when another
// flight's transaction inserts the same code first.
const pnrInsertAttempts = 3

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, pnr string) (*domain.Booking, error)
	GetBooking(ctx context.Context, pnr string) (*BookingDetails, error)
}

type Store interface {
	repository.BookingRepository
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

type Inventory interface {
	AcquireLock(ctx context.Context, flightID int64) (*inventory.Lease, error)
}

type Pricer interface {
	Quote(f domain.Flight) (domain.FareQuote, error)
	Charge(s pricing.LockedSnapshot) (domain.FareQuote, error)
}

type PaymentGateway interface {
	Charge(ctx context.Context, amount decimal.Decimal) (payment.Receipt, error)
	Refund(ctx context.Context, charge payment.Receipt) (payment.Receipt, error)
}

type PNRGenerator interface {
	Generate(ctx context.Context, registry pnr.Registry) (string, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type FlightsCache interface {
	InvalidateFlights(ctx context.Context) error
}

type BookingService struct {
	store              Store
	inventory          Inventory
	pricing            Pricer
	payments           PaymentGateway
	pnrs               PNRGenerator
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	cache              FlightsCache
	cancellationCutoff time.Duration
	validate           *validator.Validate
	now                func() time.Time
	log                *zap.Logger
}

type CreateBookingInput struct {
	FlightID   int64            `json:"flight_id" validate:"gt=0"`
	Passenger  domain.Passenger `json:"passenger"`
	SeatNumber string           `json:"seat_number" validate:"required,max=5,alphanum"`
}

// BookingDetails is a booking together with its audit trail and what the
// same seat would cost now.
type BookingDetails struct {
	Booking *domain.Booking
	History []domain.BookingHistoryEntry
	// CurrentFare is nil when the flight can no longer be quoted.
	CurrentFare *domain.FareQuote
	// PriceDifference is the current fare minus the fare paid.
	PriceDifference decimal.Decimal
	CanCancel       bool
}

type BookingServiceOption func(*BookingService)

// WithProducer publishes committed bookings and cancellations to topic.
func WithProducer(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = topic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithFlightsCache(cache FlightsCache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = cache
	}
}

// WithCancellationCutoff closes cancellation d before departure. A negative
// d lets bookings be cancelled until departure and after.
func WithCancellationCutoff(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.cancellationCutoff = d
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func WithLogger(log *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

func NewBookingService(
	store Store,
	inv Inventory,
	pricer Pricer,
	payments PaymentGateway,
	pnrs PNRGenerator,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		store:              store,
		inventory:          inv,
		pricing:            pricer,
		payments:           payments,
		pnrs:               pnrs,
		cancellationCutoff: DefaultCancellationCutoff,
		validate:           newValidator(),
		now:                time.Now,
		log:                zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking sells one seat on a flight. Seat check, pricing, payment and
// persistence all happen under the flight lock, so the fare charged is the
// fare for the seat count that was actually sold against. Nothing is written
// unless every step succeeds, and a charge is refunded if a later step fails.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (booking *domain.Booking, err error) {
	trace := s.newTrace(input.FlightID)
	defer func() {
		metrics.BookingsTotal.WithLabelValues(resultLabel(err)).Inc()
	}()

	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}
	input.SeatNumber = strings.ToUpper(input.SeatNumber)

	lease, err := s.inventory.AcquireLock(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			trace.to(domain.TxRolledBack, zap.Error(err))
		}
		_ = lease.Rollback(context.WithoutCancel(ctx))
	}()
	trace.to(domain.TxLocked)

	flight := lease.Snapshot()
	if !flight.Bookable() {
		return nil, fmt.Errorf("flight %d is %s: %w", flight.ID, flight.Status, domain.ErrFlightUnavailable)
	}
	if flight.SeatsAvailable <= 0 {
		return nil, fmt.Errorf("flight %d: %w", flight.ID, domain.ErrNoSeatsAvailable)
	}
	taken, err := lease.Tx().SeatTaken(ctx, input.SeatNumber)
	if err != nil {
		return nil, fmt.Errorf("check seat: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("seat %s on flight %d: %w", input.SeatNumber, flight.ID, domain.ErrSeatTaken)
	}

	quote, err := s.pricing.Charge(lease)
	if err != nil {
		return nil, err
	}
	trace.to(domain.TxPriced, zap.String("fare", quote.ComputedFare.StringFixed(2)))

	receipt, err := s.payments.Charge(ctx, quote.ComputedFare)
	if err != nil {
		return nil, fmt.Errorf("charge %s: %w", quote.ComputedFare.StringFixed(2), err)
	}
	trace.to(domain.TxCharged, zap.String("payment_ref", receipt.TransactionID))
	defer func() {
		if err != nil {
			s.refund(ctx, receipt)
		}
	}()

	booking, err = s.persist(ctx, lease, input, quote, receipt)
	if err != nil {
		return nil, err
	}
	trace.to(domain.TxPersisted, zap.String("pnr", booking.PNR))

	if err := lease.Commit(ctx); err != nil {
		return nil, err
	}
	trace.to(domain.TxCommitted)

	metrics.FaresCharged.Observe(quote.ComputedFare.InexactFloat64())
	s.afterCommit(ctx, kafka.EventBookingConfirmed, booking)
	return booking, nil
}

func (s *BookingService) persist(
	ctx context.Context,
	lease *inventory.Lease,
	input CreateBookingInput,
	quote domain.FareQuote,
	receipt payment.Receipt,
) (*domain.Booking, error) {
	booking := &domain.Booking{
		FlightID:      input.FlightID,
		Passenger:     input.Passenger,
		SeatNumber:    input.SeatNumber,
		Status:        domain.BookingStatusConfirmed,
		FinalFare:     quote.ComputedFare,
		PaymentStatus: domain.PaymentStatusSuccess,
		PaymentRef:    receipt.TransactionID,
	}
	if err := s.insertBooking(ctx, lease, booking); err != nil {
		return nil, err
	}

	at := s.now()
	flightNo := lease.Snapshot().FlightNo
	if err := s.addHistory(ctx, lease, booking.PNR, domain.BookingActionCreated, at,
		"Booking created for %s on flight %s, seat %s", input.Passenger.Name, flightNo, booking.SeatNumber); err != nil {
		return nil, err
	}
	if err := s.addHistory(ctx, lease, booking.PNR, domain.BookingActionPaymentSuccess, at,
		"Payment of %s processed successfully, ref %s", quote.ComputedFare.StringFixed(2), receipt.TransactionID); err != nil {
		return nil, err
	}
	if err := lease.Tx().SaveFareQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("save fare quote: %w", err)
	}
	if _, err := lease.Decrement(ctx); err != nil {
		if errors.Is(err, domain.ErrSeatsExhausted) {
			return nil, fmt.Errorf("flight %d: %w", input.FlightID, domain.ErrNoSeatsAvailable)
		}
		return nil, err
	}
	return booking, nil
}

// insertBooking assigns a fresh PNR and inserts the booking. The registry
// check only sees committed codes, so a code taken by a concurrent booking on
// another flight shows up as ErrDuplicatePNR and is regenerated.
func (s *BookingService) insertBooking(ctx context.Context, lease *inventory.Lease, booking *domain.Booking) error {
	for attempt := 1; ; attempt++ {
		code, err := s.pnrs.Generate(ctx, lease)
		if err != nil {
			return err
		}
		booking.PNR = code

		err = lease.Tx().CreateBooking(ctx, booking)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicatePNR) {
			return fmt.Errorf("create booking: %w", err)
		}
		if attempt >= pnrInsertAttempts {
			return fmt.Errorf("%w: code taken concurrently %d times", domain.ErrGenerationExhausted, attempt)
		}
		s.log.Debug("pnr taken concurrently", zap.String("pnr", code), zap.Int("attempt", attempt))
	}
}

func (s *BookingService) addHistory(
	ctx context.Context,
	lease *inventory.Lease,
	code string,
	action domain.BookingAction,
	at time.Time,
	format string,
	args ...any,
) error {
	err := lease.Tx().AddHistory(ctx, domain.BookingHistoryEntry{
		PNR:         code,
		Action:      action,
		Description: fmt.Sprintf(format, args...),
		PerformedAt: at,
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", action, err)
	}
	return nil
}

// CancelBooking cancels a confirmed booking and returns its seat to the
// flight. The booking is re-read under the flight lock, so of two concurrent
// cancellations exactly one succeeds and the other gets domain.ErrNotFound.
func (s *BookingService) CancelBooking(ctx context.Context, code string) (booking *domain.Booking, err error) {
	defer func() {
		metrics.CancellationsTotal.WithLabelValues(resultLabel(err)).Inc()
	}()

	existing, err := s.store.GetByPNR(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing.Status != domain.BookingStatusConfirmed {
		return nil, fmt.Errorf("confirmed booking %s: %w", code, domain.ErrNotFound)
	}

	lease, err := s.inventory.AcquireLock(ctx, existing.FlightID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lease.Rollback(context.WithoutCancel(ctx))
	}()

	booking, err = lease.Tx().GetBookingForUpdate(ctx, code)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil, fmt.Errorf("confirmed booking %s: %w", code, domain.ErrNotFound)
	}

	flight := lease.Snapshot()
	if !s.cancellationOpen(flight.DepartureTime) {
		return nil, fmt.Errorf("booking %s on flight departing %s: %w",
			code, flight.DepartureTime.Format(time.RFC3339), domain.ErrCancellationClosed)
	}

	if err := lease.Tx().UpdateBookingStatus(ctx, code, domain.BookingStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if err := s.addHistory(ctx, lease, code, domain.BookingActionCancelled, s.now(),
		"Booking cancelled, seat %s released", booking.SeatNumber); err != nil {
		return nil, err
	}
	if _, err := lease.Increment(ctx); err != nil {
		if errors.Is(err, domain.ErrCapacityOverflow) {
			s.log.Error("seat count would exceed capacity on cancellation",
				zap.String("pnr", code), zap.Int64("flight_id", flight.ID))
		}
		return nil, err
	}
	if err := lease.Commit(ctx); err != nil {
		return nil, err
	}

	booking.Status = domain.BookingStatusCancelled
	booking.UpdatedAt = s.now()

	s.refund(ctx, payment.Receipt{
		TransactionID: booking.PaymentRef,
		Amount:        booking.FinalFare,
		Status:        payment.StatusSuccess,
	})
	s.afterCommit(ctx, kafka.EventBookingCancelled, booking)
	return booking, nil
}

// GetBooking returns the booking with its history, whether it can still be
// cancelled, and how its fare compares with a display quote for the flight.
func (s *BookingService) GetBooking(ctx context.Context, code string) (*BookingDetails, error) {
	booking, err := s.store.GetByPNR(ctx, code)
	if err != nil {
		return nil, err
	}
	history, err := s.store.BookingHistory(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("booking history: %w", err)
	}
	flight, err := s.store.GetByID(ctx, booking.FlightID)
	if err != nil {
		return nil, err
	}

	details := &BookingDetails{
		Booking:   booking,
		History:   history,
		CanCancel: booking.Status == domain.BookingStatusConfirmed && s.cancellationOpen(flight.DepartureTime),
	}
	if !flight.Bookable() {
		return details, nil
	}
	quote, err := s.pricing.Quote(*flight)
	if err != nil {
		s.log.Debug("no current quote", zap.String("pnr", code), zap.Error(err))
		return details, nil
	}
	details.CurrentFare = &quote
	details.PriceDifference = quote.ComputedFare.Sub(booking.FinalFare)
	return details, nil
}

// cancellationOpen reports whether a booking on a flight departing at
// departure may still be cancelled.
func (s *BookingService) cancellationOpen(departure time.Time) bool {
	return s.cancellationCutoff < 0 || s.now().Before(departure.Add(-s.cancellationCutoff))
}

func (s *BookingService) refund(ctx context.Context, charge payment.Receipt) {
	refund, err := s.payments.Refund(context.WithoutCancel(ctx), charge)
	if err != nil {
		s.log.Error("refund failed", zap.String("payment_ref", charge.TransactionID), zap.Error(err))
		return
	}
	s.log.Info("refunded",
		zap.String("payment_ref", charge.TransactionID),
		zap.String("refund_ref", refund.TransactionID),
		zap.String("amount", charge.Amount.StringFixed(2)))
}

// afterCommit runs the side effects that are not part of the atomic unit.
// Their failures are logged and never reported to the caller.
func (s *BookingService) afterCommit(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.cache != nil {
		if err := s.cache.InvalidateFlights(ctx); err != nil {
			s.log.Warn("invalidate flights cache", zap.Error(err))
		}
	}
	if err := s.publish(ctx, eventType, booking); err != nil {
		s.log.Warn("failed to publish booking event",
			zap.String("type", eventType), zap.String("pnr", booking.PNR), zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.NewBookingEvent(eventType, booking, s.now())
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.PNR, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, booking.PNR, event)
	}
	return nil
}

type trace struct {
	log   *zap.Logger
	state domain.TxState
}

func (s *BookingService) newTrace(flightID int64) *trace {
	return &trace{
		log:   s.log.With(zap.Int64("flight_id", flightID)),
		state: domain.TxInitiated,
	}
}

func (t *trace) to(state domain.TxState, fields ...zap.Field) {
	fields = append(fields, zap.String("from", string(t.state)), zap.String("to", string(state)))
	t.log.Debug("booking transaction", fields...)
	t.state = state
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	msgs := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		field := strings.TrimPrefix(fe.Namespace(), "CreateBookingInput.")
		if fe.Param() != "" {
			return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s must satisfy %s", field, fe.Tag())
	})
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, domain.ErrNoSeatsAvailable):
		return "no_seats"
	case errors.Is(err, domain.ErrFlightUnavailable):
		return "flight_unavailable"
	case errors.Is(err, domain.ErrFlightDeparted):
		return "departed"
	case errors.Is(err, domain.ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, domain.ErrCancellationClosed):
		return "cancellation_closed"
	case errors.Is(err, domain.ErrSeatTaken):
		return "seat_taken"
	default:
		return "error"
	}
}

var _ BookingUseCase = (*BookingService)(nil)
