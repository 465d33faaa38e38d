package servermetrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Usage is one reading of local resource usage, in percent.
type Usage struct {
	CPU  float64
	RAM  float64
	Disk float64
}

// UsageReader reads local resource usage.
type UsageReader func(ctx context.Context) (Usage, error)

// HostSampler records the resource usage of the machine the process runs on
// as samples of one catalog service.
type HostSampler struct {
	serviceID string
	read      UsageReader
	samples   *Service
}

// NewHostSampler creates a sampler. A nil reader reads the host through gopsutil.
func NewHostSampler(serviceID string, samples *Service, read UsageReader) *HostSampler {
	if read == nil {
		read = ReadHostUsage("/")
	}
	return &HostSampler{serviceID: serviceID, read: read, samples: samples}
}

// Sample records one reading.
func (h *HostSampler) Sample(ctx context.Context) (*domain.ServerMetrics, error) {
	u, err := h.read(ctx)
	if err != nil {
		collectErrors.WithLabelValues("host").Inc()
		return nil, err
	}
	m, err := h.samples.Record(ctx, Sample{
		ServiceID: h.serviceID,
		CPUUsage:  clampPercent(u.CPU),
		RAMUsage:  clampPercent(u.RAM),
		DiskUsage: clampPercent(u.Disk),
	})
	if err != nil {
		return nil, err
	}
	samplesCollected.WithLabelValues("host").Inc()
	return m, nil
}

// Run is a periodic job wrapper around Sample.
func (h *HostSampler) Run(ctx context.Context) {
	if _, err := h.Sample(ctx); err != nil {
		ctxlog.FromContext(ctx).Error("host sampling failed", "service_id", h.serviceID, "error", err)
	}
}

// ReadHostUsage returns a reader that measures CPU over one second, virtual memory,
// and the filesystem mounted at path.
func ReadHostUsage(path string) UsageReader {
	return func(ctx context.Context) (Usage, error) {
		cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false)
		if err != nil {
			return Usage{}, fmt.Errorf("read cpu usage: %w", err)
		}
		if len(cpuPercent) == 0 {
			return Usage{}, errors.New("read cpu usage: no data")
		}

		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return Usage{}, fmt.Errorf("read memory usage: %w", err)
		}

		du, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			return Usage{}, fmt.Errorf("read disk usage: %w", err)
		}

		return Usage{CPU: cpuPercent[0], RAM: vm.UsedPercent, Disk: du.UsedPercent}, nil
	}
}
