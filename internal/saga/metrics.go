package saga

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sagasCommittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saga_committed_total",
		Help: "Number of sagas that reached the committed state.",
	})
	sagasRolledBackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saga_rolled_back_total",
		Help: "Number of sagas that failed and were rolled back.",
	})
	rollbackAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saga_rollback_attempts_total",
		Help: "Number of step rollback attempts across all sagas.",
	})
	rollbackFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saga_rollback_failures_total",
		Help: "Number of step rollback attempts whose compensating call failed.",
	})
	sagaDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "saga_duration_seconds",
		Help:    "Wall-clock duration of saga executions.",
		Buckets: prometheus.DefBuckets,
	})
)

// Metric accessors for tests using prometheus/testutil.

func CommittedTotal() prometheus.Counter        { return sagasCommittedTotal }
func RolledBackTotal() prometheus.Counter       { return sagasRolledBackTotal }
func RollbackAttemptsTotal() prometheus.Counter { return rollbackAttemptsTotal }
func RollbackFailuresTotal() prometheus.Counter { return rollbackFailuresTotal }
func DurationSeconds() prometheus.Histogram     { return sagaDurationSeconds }
