package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingsTotal counts finished booking transactions by result
	// ("committed" or the failure reason).
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "transactions_total",
			Help:      "The total number of finished booking transactions",
		},
		[]string{"result"},
	)

	CancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "cancellations_total",
			Help:      "The total number of finished cancellation transactions",
		},
		[]string{"result"},
	)

	// LockWaitSeconds The time spent waiting for a flight lock
	LockWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inventory",
			Name:      "lock_wait_seconds",
			Help:      "The time spent waiting for a flight lock",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend"},
	)

	LockTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "lock_timeouts_total",
			Help:      "The total number of flight lock acquisitions that timed out",
		},
		[]string{"backend"},
	)

	FaresCharged = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pricing",
			Name:      "charged_fare",
			Help:      "Distribution of fares charged to passengers",
			Buckets:   prometheus.ExponentialBuckets(1000, 1.5, 10),
		},
	)
)
