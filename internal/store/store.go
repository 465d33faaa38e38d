// Package store defines the Entity Store contract shared by every backing implementation.
package store

import (
	"context"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
)

// MetricsFilter narrows ListServerMetrics. Zero values disable a condition.
type MetricsFilter struct {
	ServiceID string
	Since     time.Time
	Until     time.Time
}

// Match reports whether m passes the filter. Since is inclusive, Until exclusive.
func (f MetricsFilter) Match(m *domain.ServerMetrics) bool {
	if f.ServiceID != "" && m.ServiceID != f.ServiceID {
		return false
	}
	if !f.Since.IsZero() && m.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !m.Timestamp.Before(f.Until) {
		return false
	}
	return true
}

// Repository owns services, incidents, status history and server metrics.
//
// ListServices orders by name, then id. ListIncidents orders by startedAt, newest first.
// ListStatusHistory and ListServerMetrics order by timestamp, newest first.
type Repository interface {
	ListServices(ctx context.Context) ([]domain.Service, error)
	GetService(ctx context.Context, id string) (*domain.Service, error)
	CreateService(ctx context.Context, service *domain.Service) error
	// UpdateServiceStatus sets status and moves updatedAt to at. When at is not after the
	// stored updatedAt, updatedAt advances by one microsecond instead so it always grows.
	// The returned service carries the effective updatedAt.
	UpdateServiceStatus(ctx context.Context, id string, status domain.ServiceStatus, at time.Time) (*domain.Service, error)

	ListIncidents(ctx context.Context) ([]domain.Incident, error)
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	CreateIncident(ctx context.Context, incident *domain.Incident) error

	ListStatusHistory(ctx context.Context, serviceID string) ([]domain.StatusHistoryEntry, error)
	CreateStatusHistoryEntry(ctx context.Context, entry *domain.StatusHistoryEntry) error

	ListServerMetrics(ctx context.Context, filter MetricsFilter) ([]domain.ServerMetrics, error)
	CreateServerMetrics(ctx context.Context, m *domain.ServerMetrics) error

	// WithinTx runs fn against a repository whose writes commit together.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
	Ping(ctx context.Context) error
}

// Timestamp normalizes t to the precision every implementation can store.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// NextUpdatedAt returns the updatedAt a status change at `at` should store
// given the current value.
func NextUpdatedAt(current, at time.Time) time.Time {
	at = Timestamp(at)
	if !at.After(current) {
		return current.Add(time.Microsecond)
	}
	return at
}
