// Package incidents records incidents raised against catalog services.
package incidents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/store"
	"github.com/google/uuid"
)

// Service implements incident business logic.
type Service struct {
	repo store.Repository
	now  func() time.Time
}

// NewService creates a new incidents service.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateIncidentInput holds the caller-supplied fields of a new incident.
type CreateIncidentInput struct {
	ServiceID   string
	Title       string
	Description *string
	Status      domain.IncidentStatus
	Severity    domain.IncidentSeverity
	StartedAt   *time.Time
	ResolvedAt  *time.Time
}

// ListIncidents returns all incidents, most recently started first.
func (s *Service) ListIncidents(ctx context.Context) ([]domain.Incident, error) {
	incidents, err := s.repo.ListIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return incidents, nil
}

// GetIncident returns an incident by id.
func (s *Service) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	inc, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return inc, nil
}

// CreateIncident stores a new incident. StartedAt defaults to now and status to investigating.
// The referenced service is not required to exist.
func (s *Service) CreateIncident(ctx context.Context, in CreateIncidentInput) (*domain.Incident, error) {
	status := in.Status
	if status == "" {
		status = domain.IncidentStatusInvestigating
	}
	if !status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}
	if !in.Severity.IsValid() {
		return nil, domain.ErrInvalidSeverity
	}

	now := store.Timestamp(s.now())
	startedAt := now
	if in.StartedAt != nil {
		startedAt = store.Timestamp(*in.StartedAt)
	}

	var resolvedAt *time.Time
	if in.ResolvedAt != nil {
		r := store.Timestamp(*in.ResolvedAt)
		if r.Before(startedAt) {
			return nil, domain.ErrResolvedBeforeStart
		}
		resolvedAt = &r
	}

	inc := &domain.Incident{
		ID:          uuid.NewString(),
		ServiceID:   strings.TrimSpace(in.ServiceID),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      status,
		Severity:    in.Severity,
		StartedAt:   startedAt,
		ResolvedAt:  resolvedAt,
		CreatedAt:   now,
	}

	if err := s.repo.CreateIncident(ctx, inc); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	return inc, nil
}
