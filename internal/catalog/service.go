// Package catalog owns the service catalog: creation, status changes and their audit trail,
// bulk import and export.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/store"
	"github.com/google/uuid"
)

// Service implements catalog business logic on top of the entity store.
// Every status change goes through it so that each one leaves a history row.
type Service struct {
	repo  store.Repository
	now   func() time.Time
	newID func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new catalog service.
func NewService(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateServiceInput holds the caller-supplied fields of a new service.
type CreateServiceInput struct {
	Name        string
	Description *string
	Category    string
	Region      string
	Type        *string
	Status      domain.ServiceStatus
	Icon        *string
	Address     *string
	Port        *int
}

// ListServices returns all services.
func (s *Service) ListServices(ctx context.Context) ([]domain.Service, error) {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// GetService returns a service by id.
func (s *Service) GetService(ctx context.Context, id string) (*domain.Service, error) {
	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}

// CreateService stores a new service together with its initial history row.
// Status defaults to operational.
func (s *Service) CreateService(ctx context.Context, in CreateServiceInput, source domain.StatusSource) (*domain.Service, error) {
	status := in.Status
	if status == "" {
		status = domain.ServiceStatusOperational
	}
	if !status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}

	now := store.Timestamp(s.now())
	svc := &domain.Service{
		ID:          s.newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Region:      strings.TrimSpace(in.Region),
		Type:        in.Type,
		Status:      status,
		Icon:        in.Icon,
		Address:     in.Address,
		Port:        in.Port,
		UpdatedAt:   now,
	}

	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		if err := repo.CreateService(ctx, svc); err != nil {
			return err
		}
		return repo.CreateStatusHistoryEntry(ctx, s.historyEntry(svc, source))
	})
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

// SetStatus changes the status of a service and appends a history row,
// even when the status does not change.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.ServiceStatus, source domain.StatusSource) (*domain.Service, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}

	var updated *domain.Service
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		svc, err := repo.UpdateServiceStatus(ctx, id, status, s.now())
		if err != nil {
			return err
		}
		if err := repo.CreateStatusHistoryEntry(ctx, s.historyEntry(svc, source)); err != nil {
			return err
		}
		updated = svc
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set service status: %w", err)
	}
	return updated, nil
}

// ApplyStatus changes the status only when it differs from the current one.
// It reports whether a change was written.
func (s *Service) ApplyStatus(ctx context.Context, id string, status domain.ServiceStatus, source domain.StatusSource) (*domain.Service, bool, error) {
	current, err := s.GetService(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if current.Status == status {
		return current, false, nil
	}
	updated, err := s.SetStatus(ctx, id, status, source)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

// StatusHistory returns the status trail of a service, newest first.
// Unknown ids yield an empty trail.
func (s *Service) StatusHistory(ctx context.Context, serviceID string) ([]domain.StatusHistoryEntry, error) {
	entries, err := s.repo.ListStatusHistory(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return entries, nil
}

func (s *Service) historyEntry(svc *domain.Service, source domain.StatusSource) *domain.StatusHistoryEntry {
	return &domain.StatusHistoryEntry{
		ID:        s.newID(),
		ServiceID: svc.ID,
		Status:    svc.Status,
		Source:    source,
		Timestamp: svc.UpdatedAt,
	}
}
