package probe

import (
	"time"

	"github.com/bissquit/statusboard/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "probe",
			Name:      "checks_total",
			Help:      "Availability checks by outcome",
		},
		[]string{"result"},
	)

	probeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "probe",
			Name:      "check_duration_seconds",
			Help:      "Availability check duration",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

func recordProbe(available bool, d time.Duration) {
	result := "unreachable"
	if available {
		result = "available"
	}
	probesTotal.WithLabelValues(result).Inc()
	probeDuration.Observe(d.Seconds())
}
