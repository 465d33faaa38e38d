// Package reconcile keeps service statuses in line with an external Prometheus-compatible
// metrics source.
package reconcile

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// InstanceState is the up/down state of one scraped instance.
type InstanceState struct {
	Instance string `json:"instance"`
	Up       bool   `json:"up"`
}

// Source returns the current instance states.
type Source interface {
	FetchInstances(ctx context.Context) ([]InstanceState, error)
}

// PrometheusConfig contains PrometheusSource configuration.
type PrometheusConfig struct {
	URL            string
	Token          string
	DatasourcePath string
	Query          string
	Timeout        time.Duration
}

// PrometheusSource runs an instant query against the Prometheus HTTP API, usually through
// a Grafana datasource proxy.
type PrometheusSource struct {
	api     v1.API
	query   string
	timeout time.Duration
}

// NewPrometheusSource creates a source for the given endpoint.
func NewPrometheusSource(cfg PrometheusConfig) (*PrometheusSource, error) {
	address := strings.TrimRight(cfg.URL, "/") + "/" + strings.Trim(cfg.DatasourcePath, "/")
	client, err := api.NewClient(api.Config{
		Address: strings.TrimRight(address, "/"),
		RoundTripper: &bearerTransport{
			token: cfg.Token,
			next:  api.DefaultRoundTripper,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create prometheus client: %w", err)
	}

	return &PrometheusSource{
		api:     v1.NewAPI(client),
		query:   cfg.Query,
		timeout: cfg.Timeout,
	}, nil
}

// FetchInstances runs the configured query. A sample with value 1 is up.
func (s *PrometheusSource) FetchInstances(ctx context.Context) ([]InstanceState, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	value, _, err := s.api.Query(ctx, s.query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", s.query, err)
	}

	vector, ok := value.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("query %q: unexpected result type %s", s.query, value.Type())
	}

	states := make([]InstanceState, 0, len(vector))
	for _, sample := range vector {
		states = append(states, InstanceState{
			Instance: string(sample.Metric[model.InstanceLabel]),
			Up:       sample.Value == 1,
		})
	}
	return states, nil
}

type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token == "" {
		return t.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.next.RoundTrip(req)
}
