// Package servermetrics records and serves resource-usage samples of services.
package servermetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/store"
	"github.com/google/uuid"
)

// Service implements sample recording and listing.
type Service struct {
	repo store.Repository
	now  func() time.Time
}

// NewService creates a new server metrics service.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Sample is a resource reading in percent.
type Sample struct {
	ServiceID string
	CPUUsage  float64
	RAMUsage  float64
	DiskUsage float64
}

// Record stores a sample stamped with the current time.
func (s *Service) Record(ctx context.Context, sample Sample) (*domain.ServerMetrics, error) {
	m := &domain.ServerMetrics{
		ID:        uuid.NewString(),
		ServiceID: sample.ServiceID,
		CPUUsage:  sample.CPUUsage,
		RAMUsage:  sample.RAMUsage,
		DiskUsage: sample.DiskUsage,
		Timestamp: store.Timestamp(s.now()),
	}
	if err := s.repo.CreateServerMetrics(ctx, m); err != nil {
		return nil, fmt.Errorf("record server metrics: %w", err)
	}
	return m, nil
}

// List returns samples newest first, optionally for a single service.
func (s *Service) List(ctx context.Context, serviceID string) ([]domain.ServerMetrics, error) {
	samples, err := s.repo.ListServerMetrics(ctx, store.MetricsFilter{ServiceID: serviceID})
	if err != nil {
		return nil, fmt.Errorf("list server metrics: %w", err)
	}
	return samples, nil
}
