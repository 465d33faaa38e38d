package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestTargetURL(t *testing.T) {
	tests := []struct {
		address string
		port    *int
		want    string
	}{
		{"10.0.0.1", nil, "http://10.0.0.1"},
		{"10.0.0.1", intPtr(8080), "http://10.0.0.1:8080"},
		{"https://example.com/health", nil, "https://example.com/health"},
		{"https://example.com/health", intPtr(8443), "https://example.com:8443/health"},
		{"http://example.com:81", intPtr(82), "http://example.com:81"},
		{"::1", intPtr(80), "http://[::1]:80"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, TargetURL(tt.address, tt.port))
		})
	}
}

func TestProber_Check(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	mux.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/get-only", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(Config{Timeout: time.Second})
	ctx := context.Background()

	t.Run("available", func(t *testing.T) {
		d := p.Check(ctx, Request{URL: srv.URL + "/ok"})
		assert.True(t, d.Available)
		assert.Equal(t, http.StatusOK, d.StatusCode)
		assert.Equal(t, "OK", d.Reason)
		assert.Equal(t, http.MethodHead, d.Method)
		assert.Empty(t, d.Error)
	})

	t.Run("follows redirects", func(t *testing.T) {
		d := p.Check(ctx, Request{URL: srv.URL + "/redirect", Method: "get"})
		assert.True(t, d.Available)
		assert.Equal(t, srv.URL+"/ok", d.FinalURL)
		assert.Equal(t, http.MethodGet, d.Method)
	})

	t.Run("error status", func(t *testing.T) {
		d := p.Check(ctx, Request{URL: srv.URL + "/fail"})
		assert.False(t, d.Available)
		assert.Equal(t, http.StatusServiceUnavailable, d.StatusCode)
		assert.Contains(t, d.Error, "503")
	})

	t.Run("method choice", func(t *testing.T) {
		assert.False(t, p.Check(ctx, Request{URL: srv.URL + "/get-only"}).Available)
		assert.True(t, p.Check(ctx, Request{URL: srv.URL + "/get-only", Method: http.MethodGet}).Available)
	})

	t.Run("invalid url", func(t *testing.T) {
		d := p.Check(ctx, Request{URL: "http://bad host"})
		assert.False(t, d.Available)
		assert.NotEmpty(t, d.Error)
	})
}

func TestProber_UnreachableWithinTimeout(t *testing.T) {
	// the kernel completes the handshake but nothing ever answers
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	p := New(Config{Timeout: 200 * time.Millisecond})
	start := time.Now()
	available := p.Probe(context.Background(), ln.Addr().String(), nil)
	elapsed := time.Since(start)

	assert.False(t, available)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestProber_ClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	p := New(Config{Timeout: time.Second})
	d := p.Check(context.Background(), Request{URL: TargetURL("127.0.0.1", intPtr(addr.Port))})
	assert.False(t, d.Available)
	assert.NotEmpty(t, d.Error)
}

func TestProber_ProbeAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	services := []domain.Service{
		{ID: "a", Address: strPtr(srv.URL)},
		{ID: "b"},
		{ID: "c", Address: strPtr("http://127.0.0.1:1")},
	}

	p := New(Config{Timeout: time.Second, Concurrency: 2, RateLimit: 100, Burst: 5})
	results := p.ProbeAll(context.Background(), services)

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ServiceID)
	assert.True(t, results[0].Available)
	assert.Equal(t, "c", results[1].ServiceID)
	assert.False(t, results[1].Available)
}
