package reconcile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vectorResponse = `{
  "status": "success",
  "data": {
    "resultType": "vector",
    "result": [
      {"metric": {"instance": "10.0.0.1:9100", "job": "node_exporter"}, "value": [1700000000, "1"]},
      {"metric": {"instance": "10.0.0.2:9100", "job": "node_exporter"}, "value": [1700000000, "0"]}
    ]
  }
}`

func TestPrometheusSource_FetchInstances(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/grafana/api/datasources/proxy/1/api/v1/query" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.Form.Get("query")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(vectorResponse))
	}))
	defer srv.Close()

	source, err := NewPrometheusSource(PrometheusConfig{
		URL:            srv.URL + "/grafana/",
		Token:          "secret",
		DatasourcePath: "/api/datasources/proxy/1",
		Query:          `up{job="node_exporter"}`,
		Timeout:        time.Second,
	})
	require.NoError(t, err)

	states, err := source.FetchInstances(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, `up{job="node_exporter"}`, gotQuery)
	assert.Equal(t, []InstanceState{
		{Instance: "10.0.0.1:9100", Up: true},
		{Instance: "10.0.0.2:9100", Up: false},
	}, states)
}

func TestPrometheusSource_Errors(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		source, err := NewPrometheusSource(PrometheusConfig{URL: srv.URL, Query: "up"})
		require.NoError(t, err)
		_, err = source.FetchInstances(context.Background())
		assert.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		source, err := NewPrometheusSource(PrometheusConfig{URL: srv.URL, Query: "up", Timeout: 100 * time.Millisecond})
		require.NoError(t, err)

		start := time.Now()
		_, err = source.FetchInstances(context.Background())
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestBreakerSource(t *testing.T) {
	next := &fakeSource{err: errors.New("boom")}
	source := NewBreakerSource(next, BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	for range 2 {
		_, err := source.FetchInstances(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSourceUnavailable)
	}
	assert.Equal(t, "open", source.State())

	_, err := source.FetchInstances(ctx)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, 2, next.calls)
}

func TestBreakerSource_PassesResults(t *testing.T) {
	want := []InstanceState{{Instance: "a", Up: true}}
	source := NewBreakerSource(&fakeSource{states: want}, BreakerConfig{})

	got, err := source.FetchInstances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "closed", source.State())
}
