package servermetrics

import (
	"github.com/bissquit/statusboard/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "collector",
			Name:      "samples_total",
			Help:      "Resource samples recorded by background collectors",
		},
		[]string{"source"},
	)

	collectErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "collector",
			Name:      "errors_total",
			Help:      "Failed collection attempts",
		},
		[]string{"source"},
	)
)
