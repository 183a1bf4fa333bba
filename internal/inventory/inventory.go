package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
)

const DefaultLockTimeout = 3 * time.Second

// Inventory hands out exclusive leases on flights. While a lease is held no
// other caller can read the flight for pricing or change its seat count.
type Inventory struct {
	store       repository.TxBeginner
	locker      Locker
	lockTimeout time.Duration
	log         *zap.Logger
}

type Option func(*Inventory)

func WithLockTimeout(d time.Duration) Option {
	return func(i *Inventory) {
		if d > 0 {
			i.lockTimeout = d
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(i *Inventory) {
		i.log = log
	}
}

func New(store repository.TxBeginner, locker Locker, opts ...Option) *Inventory {
	i := &Inventory{
		store:       store,
		locker:      locker,
		lockTimeout: DefaultLockTimeout,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// AcquireLock waits at most the configured lock timeout for the flight and
// returns a lease holding it. The lease must be finished with Commit or
// Rollback.
func (i *Inventory) AcquireLock(ctx context.Context, flightID int64) (*Lease, error) {
	start := time.Now()
	backend := i.locker.Backend()

	lockCtx, cancel := context.WithTimeout(ctx, i.lockTimeout)
	release, err := i.locker.Acquire(lockCtx, flightID)
	cancel()
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			metrics.LockTimeouts.WithLabelValues(backend).Inc()
			i.log.Warn("flight lock timeout", zap.Int64("flight_id", flightID), zap.Duration("waited", time.Since(start)))
			return nil, fmt.Errorf("flight %d: %w", flightID, domain.ErrLockTimeout)
		}
		return nil, fmt.Errorf("acquire flight %d: %w", flightID, err)
	}

	remaining := i.lockTimeout - time.Since(start)
	if remaining < time.Millisecond {
		remaining = time.Millisecond
	}
	tx, err := i.store.BeginFlight(ctx, flightID, remaining)
	if err != nil {
		release()
		if errors.Is(err, domain.ErrLockTimeout) {
			metrics.LockTimeouts.WithLabelValues(backend).Inc()
		}
		return nil, err
	}

	waited := time.Since(start)
	metrics.LockWaitSeconds.WithLabelValues(backend).Observe(waited.Seconds())
	i.log.Debug("flight lock acquired", zap.Int64("flight_id", flightID), zap.Duration("waited", waited))

	return &Lease{
		flightID: flightID,
		tx:       tx,
		release:  release,
		held:     true,
	}, nil
}

// Lease is an exclusive hold on one flight and the store transaction opened
// under it. A lease belongs to a single goroutine.
type Lease struct {
	flightID int64
	tx       repository.FlightTx
	release  func()
	held     bool
}

func (l *Lease) FlightID() int64 {
	return l.flightID
}

// Snapshot returns the flight as seen by this lease, including seat changes
// it has made.
func (l *Lease) Snapshot() domain.Flight {
	return l.tx.Flight()
}

func (l *Lease) Held() bool {
	return l.held
}

// Tx exposes the store transaction for writes that commit together with the
// seat count.
func (l *Lease) Tx() repository.FlightTx {
	return l.tx
}

// Decrement takes one seat and returns the seats left.
func (l *Lease) Decrement(ctx context.Context) (int, error) {
	return l.adjust(ctx, -1)
}

// Increment gives one seat back and returns the seats left.
func (l *Lease) Increment(ctx context.Context) (int, error) {
	return l.adjust(ctx, 1)
}

func (l *Lease) PNRExists(ctx context.Context, pnr string) (bool, error) {
	if !l.held {
		return false, domain.ErrLockNotHeld
	}
	return l.tx.PNRExists(ctx, pnr)
}

func (l *Lease) adjust(ctx context.Context, delta int) (int, error) {
	if !l.held {
		return 0, domain.ErrLockNotHeld
	}
	return l.tx.AdjustSeats(ctx, delta)
}

// Commit makes the lease's changes durable and releases the flight.
func (l *Lease) Commit(ctx context.Context) error {
	if !l.held {
		return domain.ErrLockNotHeld
	}
	defer l.finish()
	if err := l.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit flight %d: %w", l.flightID, err)
	}
	return nil
}

// Rollback discards the lease's changes and releases the flight. It is a
// no-op once the lease is finished.
func (l *Lease) Rollback(ctx context.Context) error {
	if !l.held {
		return nil
	}
	defer l.finish()
	return l.tx.Rollback(ctx)
}

func (l *Lease) finish() {
	l.held = false
	l.release()
}
