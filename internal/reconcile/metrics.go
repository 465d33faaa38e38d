package reconcile

import (
	"github.com/bissquit/statusboard/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by outcome",
		},
		[]string{"result"},
	)

	statusUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "sync",
			Name:      "status_updates_total",
			Help:      "Service status changes written by sync runs",
		},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Sync run duration",
			Buckets:   prometheus.DefBuckets,
		},
	)

	breakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "sync",
			Name:      "breaker_state",
			Help:      "Metrics source breaker state (0 closed, 1 half-open, 2 open)",
		},
	)
)

func recordRun(result Result, seconds float64) {
	outcome := "ok"
	switch {
	case result.Skipped:
		outcome = "fallback"
	case result.Errors > 0:
		outcome = "partial"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	statusUpdates.Add(float64(result.Updated))
	runDuration.Observe(seconds)
}
