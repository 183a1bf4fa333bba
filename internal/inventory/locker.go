package inventory

import (
	"context"
	"sync"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Locker serializes access to a flight across the callers that share it.
// Acquire blocks until the flight is free or ctx is done, and returns the
// function that gives the lock back.
type Locker interface {
	Acquire(ctx context.Context, flightID int64) (release func(), err error)
	Backend() string
}

// MemoryLocker is a per-flight mutex for a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[int64]chan struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[int64]chan struct{})}
}

func (l *MemoryLocker) Acquire(ctx context.Context, flightID int64) (func(), error) {
	slot := l.slot(flightID)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}

func (l *MemoryLocker) Backend() string {
	return BackendMemory
}

func (l *MemoryLocker) slot(flightID int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[flightID]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[flightID] = s
	}
	return s
}
