// Package memory implements store.Repository in process memory.
// State lives as long as the Store value and is lost on restart.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/store"
)

// Store is a mutex-guarded in-memory repository. Services and incidents are cloned
// on the way in and out, so callers never alias stored pointer fields.
type Store struct {
	mu        sync.RWMutex
	services  map[string]domain.Service
	incidents map[string]domain.Incident
	history   map[string][]domain.StatusHistoryEntry
	metrics   []domain.ServerMetrics
}

var _ store.Repository = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		services:  make(map[string]domain.Service),
		incidents: make(map[string]domain.Incident),
		history:   make(map[string][]domain.StatusHistoryEntry),
	}
}

// ListServices returns all services ordered by name, then id.
func (s *Store) ListServices(_ context.Context) ([]domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	services := make([]domain.Service, 0, len(s.services))
	for _, svc := range s.services {
		services = append(services, svc.Clone())
	}
	slices.SortFunc(services, func(a, b domain.Service) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return services, nil
}

// GetService returns the service with the given id.
func (s *Store) GetService(_ context.Context, id string) (*domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[id]
	if !ok {
		return nil, domain.ErrServiceNotFound
	}
	svc = svc.Clone()
	return &svc, nil
}

// CreateService stores a new service.
func (s *Store) CreateService(_ context.Context, service *domain.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.services[service.ID] = service.Clone()
	return nil
}

// UpdateServiceStatus changes the status of a service.
func (s *Store) UpdateServiceStatus(_ context.Context, id string, status domain.ServiceStatus, at time.Time) (*domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[id]
	if !ok {
		return nil, domain.ErrServiceNotFound
	}
	svc.Status = status
	svc.UpdatedAt = store.NextUpdatedAt(svc.UpdatedAt, at)
	s.services[id] = svc
	svc = svc.Clone()
	return &svc, nil
}

// ListIncidents returns all incidents, most recently started first.
func (s *Store) ListIncidents(_ context.Context) ([]domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	incidents := make([]domain.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		incidents = append(incidents, inc.Clone())
	}
	slices.SortFunc(incidents, func(a, b domain.Incident) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return incidents, nil
}

// GetIncident returns the incident with the given id.
func (s *Store) GetIncident(_ context.Context, id string) (*domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, ok := s.incidents[id]
	if !ok {
		return nil, domain.ErrIncidentNotFound
	}
	inc = inc.Clone()
	return &inc, nil
}

// CreateIncident stores a new incident.
func (s *Store) CreateIncident(_ context.Context, incident *domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.incidents[incident.ID] = incident.Clone()
	return nil
}

// ListStatusHistory returns the status trail of a service, newest first.
func (s *Store) ListStatusHistory(_ context.Context, serviceID string) ([]domain.StatusHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.history[serviceID]
	out := make([]domain.StatusHistoryEntry, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = row
	}
	slices.SortStableFunc(out, func(a, b domain.StatusHistoryEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}

// CreateStatusHistoryEntry appends a status history row.
func (s *Store) CreateStatusHistoryEntry(_ context.Context, entry *domain.StatusHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[entry.ServiceID] = append(s.history[entry.ServiceID], *entry)
	return nil
}

// ListServerMetrics returns the samples that pass filter, newest first.
func (s *Store) ListServerMetrics(_ context.Context, filter store.MetricsFilter) ([]domain.ServerMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ServerMetrics, 0)
	for i := len(s.metrics) - 1; i >= 0; i-- {
		if filter.Match(&s.metrics[i]) {
			out = append(out, s.metrics[i])
		}
	}
	slices.SortStableFunc(out, func(a, b domain.ServerMetrics) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}

// CreateServerMetrics appends a sample.
func (s *Store) CreateServerMetrics(_ context.Context, m *domain.ServerMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = append(s.metrics, *m)
	return nil
}

// WithinTx runs fn directly. Every write is visible as soon as it returns; a crash
// between two writes loses the whole store anyway, so nothing partial outlives it.
func (s *Store) WithinTx(_ context.Context, fn func(repo store.Repository) error) error {
	return fn(s)
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error {
	return nil
}
