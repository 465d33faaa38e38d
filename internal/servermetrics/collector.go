package servermetrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bissquit/statusboard/internal/catalog"
	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
	"golang.org/x/text/cases"
)

const defaultCollectTimeout = 10 * time.Second

// ServiceCatalog is the part of the catalog the collector needs.
type ServiceCatalog interface {
	ListServices(ctx context.Context) ([]domain.Service, error)
	ApplyStatus(ctx context.Context, id string, status domain.ServiceStatus, source domain.StatusSource) (*domain.Service, bool, error)
}

// CollectorConfig holds Metrics API collector configuration.
type CollectorConfig struct {
	BaseURL string
	Timeout time.Duration
	// ApplyStatus derives a status from each sample and writes it when it changed.
	ApplyStatus bool
}

// Collector pulls per-server resource usage from an external Metrics API and
// records a sample for every catalog service whose name matches the server name.
type Collector struct {
	config     CollectorConfig
	httpClient *http.Client
	samples    *Service
	catalog    ServiceCatalog
}

// NewCollector creates a new collector.
func NewCollector(config CollectorConfig, samples *Service, catalog ServiceCatalog) *Collector {
	if config.Timeout == 0 {
		config.Timeout = defaultCollectTimeout
	}
	return &Collector{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		samples:    samples,
		catalog:    catalog,
	}
}

type serverUsage struct {
	ServerName  string  `json:"server_name"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage"`
}

// CollectResult summarizes one collection pass.
type CollectResult struct {
	Recorded  int `json:"recorded"`
	Unmatched int `json:"unmatched"`
	Changed   int `json:"changed"`
}

// Collect runs one collection pass.
func (c *Collector) Collect(ctx context.Context) (CollectResult, error) {
	var result CollectResult

	usage, err := c.fetch(ctx)
	if err != nil {
		collectErrors.WithLabelValues("metrics_api").Inc()
		return result, err
	}

	services, err := c.catalog.ListServices(ctx)
	if err != nil {
		return result, fmt.Errorf("list services: %w", err)
	}
	fold := cases.Fold()
	byName := make(map[string][]domain.Service, len(services))
	for _, svc := range services {
		key := fold.String(strings.TrimSpace(svc.Name))
		byName[key] = append(byName[key], svc)
	}

	logger := ctxlog.FromContext(ctx)
	for _, u := range usage {
		matched := byName[fold.String(strings.TrimSpace(u.ServerName))]
		if len(matched) == 0 {
			logger.Debug("no service for server", "server", u.ServerName)
			result.Unmatched++
			continue
		}

		for _, svc := range matched {
			if _, err := c.samples.Record(ctx, Sample{
				ServiceID: svc.ID,
				CPUUsage:  clampPercent(u.CPUUsage),
				RAMUsage:  clampPercent(u.MemoryUsage),
				DiskUsage: clampPercent(u.DiskUsage),
			}); err != nil {
				return result, err
			}
			result.Recorded++
			samplesCollected.WithLabelValues("metrics_api").Inc()

			if !c.config.ApplyStatus {
				continue
			}
			status := catalog.DeriveFromUsage(u.CPUUsage, u.MemoryUsage, u.DiskUsage)
			_, changed, err := c.catalog.ApplyStatus(ctx, svc.ID, status, domain.StatusSourceCollector)
			if err != nil {
				logger.Error("failed to apply usage status", "service_id", svc.ID, "error", err)
				continue
			}
			if changed {
				result.Changed++
			}
		}
	}
	return result, nil
}

// Run is a periodic job wrapper around Collect.
func (c *Collector) Run(ctx context.Context) {
	ctx, logger := ctxlog.With(ctx, "component", "metrics_collector")
	result, err := c.Collect(ctx)
	if err != nil {
		logger.Error("metrics collection failed", "error", err)
		return
	}
	logger.Debug("metrics collected",
		"recorded", result.Recorded,
		"unmatched", result.Unmatched,
		"changed", result.Changed,
	)
}

func (c *Collector) fetch(ctx context.Context) ([]serverUsage, error) {
	url := strings.TrimRight(c.config.BaseURL, "/") + "/metrics/servers/all"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch server metrics: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("metrics api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var usage []serverUsage
	if err := json.NewDecoder(resp.Body).Decode(&usage); err != nil {
		return nil, fmt.Errorf("decode server metrics: %w", err)
	}
	return usage, nil
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
