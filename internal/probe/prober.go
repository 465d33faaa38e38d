// Package probe checks whether services answer HTTP requests.
//
// A probe never fails: every transport error, timeout or error status collapses
// into Available=false with a human-readable Error.
package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMethod      = http.MethodHead
	DefaultConcurrency = 8
)

// Config contains prober configuration.
type Config struct {
	Timeout time.Duration
	Method  string
	// RateLimit caps outbound probes per second; zero disables pacing.
	RateLimit   float64
	Burst       int
	Concurrency int
}

// Prober performs HTTP reachability checks.
type Prober struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a new prober.
func New(config Config) *Prober {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Method == "" {
		config.Method = DefaultMethod
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RateLimit > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	return &Prober{
		config:     config,
		httpClient: &http.Client{},
		limiter:    limiter,
	}
}

// Request describes one check. Empty Method and zero Timeout use the prober defaults.
type Request struct {
	URL     string
	Method  string
	Timeout time.Duration
}

// Diagnostics is the outcome of a check.
type Diagnostics struct {
	Available  bool   `json:"available"`
	URL        string `json:"url"`
	FinalURL   string `json:"finalUrl,omitempty"`
	Method     string `json:"method"`
	StatusCode int    `json:"statusCode,omitempty"`
	Reason     string `json:"reason,omitempty"`
	ElapsedMS  int64  `json:"elapsedMs"`
	Error      string `json:"error,omitempty"`
}

// TargetURL builds the URL probed for a service address. Addresses that carry a
// scheme are used as they are, with port added when they have none; bare hosts
// are probed over plain http.
func TargetURL(address string, port *int) string {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		if port == nil {
			return address
		}
		u, err := url.Parse(address)
		if err != nil || u.Port() != "" {
			return address
		}
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(*port))
		return u.String()
	}
	if port != nil {
		return "http://" + net.JoinHostPort(address, strconv.Itoa(*port))
	}
	return "http://" + address
}

// Probe reports whether address answers within the configured timeout.
func (p *Prober) Probe(ctx context.Context, address string, port *int) bool {
	return p.Check(ctx, Request{URL: TargetURL(address, port)}).Available
}

// Check performs one request and reports what happened. Redirects are followed;
// any final status below 400 counts as available.
func (p *Prober) Check(ctx context.Context, req Request) (d Diagnostics) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = p.config.Method
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = p.config.Timeout
	}

	d = Diagnostics{URL: req.URL, Method: method}
	start := time.Now()
	defer func() {
		d.ElapsedMS = time.Since(start).Milliseconds()
		recordProbe(d.Available, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.limiter.Wait(ctx); err != nil {
		d.Error = "probe rate limit: " + err.Error()
		return d
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		d.Error = "invalid url: " + err.Error()
		return d
	}
	httpReq.Header.Set("User-Agent", "statusboard-probe")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		d.Error = describeError(err, timeout)
		return d
	}
	defer func() { _ = resp.Body.Close() }()

	d.FinalURL = resp.Request.URL.String()
	d.StatusCode = resp.StatusCode
	d.Reason = strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	d.Available = resp.StatusCode < http.StatusBadRequest
	if !d.Available {
		d.Error = "unexpected status " + resp.Status
	}
	return d
}

func describeError(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out after " + timeout.String()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out after " + timeout.String()
	}
	return err.Error()
}

// Result pairs a service with its probe outcome.
type Result struct {
	ServiceID string `json:"serviceId"`
	Diagnostics
}

// ProbeAll probes every service that has an address, with bounded concurrency.
// Results keep the order of services.
func (p *Prober) ProbeAll(ctx context.Context, services []domain.Service) []Result {
	targets := make([]domain.Service, 0, len(services))
	for _, svc := range services {
		if svc.HasAddress() {
			targets = append(targets, svc)
		}
	}

	results := make([]Result, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for i := range targets {
		svc := targets[i]
		g.Go(func() error {
			results[i] = Result{
				ServiceID:   svc.ID,
				Diagnostics: p.Check(gctx, Request{URL: TargetURL(*svc.Address, svc.Port)}),
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
