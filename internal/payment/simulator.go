package payment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultSuccessRate = 0.9

type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusRefunded Status = "REFUNDED"
)

// Receipt is the simulated gateway response for a charge or refund.
type Receipt struct {
	TransactionID string
	Amount        decimal.Decimal
	Status        Status
	Message       string
}

// Simulator is a stochastic stand-in for a payment gateway.
type Simulator struct {
	successRate float64
	latency     time.Duration
	float       func() float64
}

type Option func(*Simulator)

func WithSuccessRate(p float64) Option {
	return func(s *Simulator) {
		s.successRate = p
	}
}

// WithLatency makes every charge block for d, honoring ctx.
func WithLatency(d time.Duration) Option {
	return func(s *Simulator) {
		s.latency = d
	}
}

func WithSource(float func() float64) Option {
	return func(s *Simulator) {
		s.float = float
	}
}

func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		successRate: DefaultSuccessRate,
		float:       rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Charge succeeds with the configured probability. A declined charge returns
// domain.ErrPaymentDeclined together with the failed receipt.
func (s *Simulator) Charge(ctx context.Context, amount decimal.Decimal) (Receipt, error) {
	if !amount.IsPositive() {
		return Receipt{}, fmt.Errorf("%w: charge amount must be positive", domain.ErrValidation)
	}
	if err := s.wait(ctx); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{
		TransactionID: uuid.NewString(),
		Amount:        amount,
	}
	if s.float() < s.successRate {
		receipt.Status = StatusSuccess
		receipt.Message = "payment processed successfully"
		return receipt, nil
	}

	receipt.Status = StatusFailed
	receipt.Message = "payment declined by bank"
	return receipt, domain.ErrPaymentDeclined
}

// Refund reverses a successful charge. Simulated refunds always succeed.
func (s *Simulator) Refund(ctx context.Context, charge Receipt) (Receipt, error) {
	if charge.Status != StatusSuccess {
		return Receipt{}, fmt.Errorf("refund of %s transaction %s", charge.Status, charge.TransactionID)
	}
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	return Receipt{
		TransactionID: uuid.NewString(),
		Amount:        charge.Amount.Neg(),
		Status:        StatusRefunded,
		Message:       "refund of " + charge.TransactionID,
	}, nil
}

func (s *Simulator) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
