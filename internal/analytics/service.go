package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/store"
)

// Reader is the read side of the entity store the reports are computed from.
type Reader interface {
	ListServices(ctx context.Context) ([]domain.Service, error)
	GetService(ctx context.Context, id string) (*domain.Service, error)
	ListIncidents(ctx context.Context) ([]domain.Incident, error)
	ListServerMetrics(ctx context.Context, filter store.MetricsFilter) ([]domain.ServerMetrics, error)
}

// Service loads store snapshots and runs the report functions over them.
type Service struct {
	repo Reader
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a new analytics service reporting calendar days in loc.
func NewService(repo Reader, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// ParseRange resolves a requested range relative to the current time.
func (s *Service) ParseRange(preset, start, end string) (Range, error) {
	return ParseRange(preset, start, end, s.now(), s.loc)
}

// Summary returns the headline view of r.
func (s *Service) Summary(ctx context.Context, r Range) (Summary, error) {
	services, incidents, err := s.catalogSnapshot(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(r, services, incidents), nil
}

// Daily returns per-day scores, statuses and incident counts of r.
func (s *Service) Daily(ctx context.Context, r Range) ([]DailyPoint, error) {
	incidents, err := s.repo.ListIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return Daily(r, incidents), nil
}

// Load returns load and stability rankings of r.
func (s *Service) Load(ctx context.Context, r Range, limit int) (Rankings, error) {
	services, incidents, err := s.catalogSnapshot(ctx)
	if err != nil {
		return Rankings{}, err
	}
	metrics, err := s.metrics(ctx, r, "")
	if err != nil {
		return Rankings{}, err
	}
	return Rank(Loads(r, services, metrics, incidents), limit), nil
}

// Distribution returns the catalog and incident distributions of r.
func (s *Service) Distribution(ctx context.Context, r Range) (Distributions, error) {
	services, incidents, err := s.catalogSnapshot(ctx)
	if err != nil {
		return Distributions{}, err
	}
	return Distribute(r, services, incidents), nil
}

// MetricSeries returns the bucketed usage series of r, for one service or all of them.
func (s *Service) MetricSeries(ctx context.Context, r Range, serviceID string) (Series, error) {
	metrics, err := s.metrics(ctx, r, serviceID)
	if err != nil {
		return Series{}, err
	}
	return MetricSeries(r, metrics, serviceID), nil
}

// Dayparts returns per-daypart usage averages of r.
func (s *Service) Dayparts(ctx context.Context, r Range) ([]DaypartReport, error) {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	metrics, err := s.metrics(ctx, r, "")
	if err != nil {
		return nil, err
	}
	return Dayparts(r, services, metrics), nil
}

// ServiceDetail returns the detail report of one service.
func (s *Service) ServiceDetail(ctx context.Context, id string) (ServiceDetail, error) {
	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		return ServiceDetail{}, err
	}
	incidents, err := s.repo.ListIncidents(ctx)
	if err != nil {
		return ServiceDetail{}, fmt.Errorf("list incidents: %w", err)
	}
	return DetailFor(*svc, incidents, s.now(), s.loc), nil
}

func (s *Service) catalogSnapshot(ctx context.Context) ([]domain.Service, []domain.Incident, error) {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list services: %w", err)
	}
	incidents, err := s.repo.ListIncidents(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list incidents: %w", err)
	}
	return services, incidents, nil
}

func (s *Service) metrics(ctx context.Context, r Range, serviceID string) ([]domain.ServerMetrics, error) {
	metrics, err := s.repo.ListServerMetrics(ctx, store.MetricsFilter{
		ServiceID: serviceID,
		Since:     r.Start,
		Until:     r.End,
	})
	if err != nil {
		return nil, fmt.Errorf("list server metrics: %w", err)
	}
	return metrics, nil
}
