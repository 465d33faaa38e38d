package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrSourceUnavailable is returned while the breaker refuses to call the source.
var ErrSourceUnavailable = errors.New("metrics source unavailable")

// BreakerConfig contains circuit breaker configuration.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// BreakerSource guards a Source with a circuit breaker. While the breaker is open calls
// fail fast with ErrSourceUnavailable.
type BreakerSource struct {
	next Source
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerSource wraps next.
func NewBreakerSource(next Source, cfg BreakerConfig) *BreakerSource {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "metrics-source",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			breakerState.Set(float64(to))
		},
	})

	return &BreakerSource{next: next, cb: cb}
}

// FetchInstances calls the wrapped source through the breaker.
func (s *BreakerSource) FetchInstances(ctx context.Context) ([]InstanceState, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.FetchInstances(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return result.([]InstanceState), nil
}

// State reports the breaker state: closed, half-open or open.
func (s *BreakerSource) State() string {
	return s.cb.State().String()
}
