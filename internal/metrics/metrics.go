package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AttemptsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attempts_opened_total",
			Help: "Attempts opened, by challenge type",
		},
		[]string{"type"},
	)
	AttemptsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attempts_closed_total",
			Help: "Attempts that reached a terminal status",
		},
		[]string{"type", "status"},
	)
	PointsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_applied_total",
			Help: "Absolute ledger points applied by the scoring engine",
		},
		[]string{"type"},
	)
	OracleRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_requests_total",
			Help: "Validation oracle calls by outcome (valid, invalid, error)",
		},
		[]string{"provider", "outcome"},
	)
	OracleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_request_duration_seconds",
			Help:    "Latency of validation oracle calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)
	SweeperExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeper_expired_total",
			Help: "Attempts expired by the sweeper",
		},
	)
)

// Register adds the domain collectors to reg. Call once at startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		AttemptsOpened,
		AttemptsClosed,
		PointsApplied,
		OracleRequests,
		OracleDuration,
		SweeperExpired,
	)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ObservePoints records a scoring delta. Deductions count by magnitude.
func ObservePoints(challengeType string, delta int) {
	PointsApplied.WithLabelValues(challengeType).Add(float64(abs(delta)))
}
