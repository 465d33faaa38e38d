package domain

import (
	"strconv"
	"time"
)

// ServiceStatus represents the operational status of a service.
type ServiceStatus string

// Service statuses.
const (
	ServiceStatusOperational ServiceStatus = "operational"
	ServiceStatusDegraded    ServiceStatus = "degraded"
	ServiceStatusDown        ServiceStatus = "down"
	ServiceStatusMaintenance ServiceStatus = "maintenance"
	ServiceStatusLoading     ServiceStatus = "loading"
)

// ServiceStatuses lists every valid status in display order.
var ServiceStatuses = []ServiceStatus{
	ServiceStatusOperational,
	ServiceStatusDegraded,
	ServiceStatusDown,
	ServiceStatusMaintenance,
	ServiceStatusLoading,
}

// IsValid checks if the service status is valid.
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusOperational, ServiceStatusDegraded, ServiceStatusDown,
		ServiceStatusMaintenance, ServiceStatusLoading:
		return true
	}
	return false
}

// Service represents a monitored service or server.
type Service struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Category    string        `json:"category"`
	Region      string        `json:"region"`
	Type        *string       `json:"type"`
	Status      ServiceStatus `json:"status"`
	Icon        *string       `json:"icon"`
	Address     *string       `json:"address"`
	Port        *int          `json:"port"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Clone returns a copy that shares no pointers with s.
func (s Service) Clone() Service {
	s.Description = clonePtr(s.Description)
	s.Type = clonePtr(s.Type)
	s.Icon = clonePtr(s.Icon)
	s.Address = clonePtr(s.Address)
	s.Port = clonePtr(s.Port)
	return s
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// HasAddress reports whether the service can be reached over the network.
func (s *Service) HasAddress() bool {
	return s.Address != nil && *s.Address != ""
}

// HostPort returns "address:port", or just the address when no port is set.
func (s *Service) HostPort() string {
	if !s.HasAddress() {
		return ""
	}
	if s.Port == nil {
		return *s.Address
	}
	return *s.Address + ":" + strconv.Itoa(*s.Port)
}

// NaturalKey identifies a service by its descriptive fields rather than its id.
// Bulk import uses it to skip records that already exist.
func (s *Service) NaturalKey() string {
	port := ""
	if s.Port != nil {
		port = strconv.Itoa(*s.Port)
	}
	return s.Name + "\x00" + s.Region + "\x00" + s.Category + "\x00" + deref(s.Address) + "\x00" + port
}

// StatusSource tells who changed a service status.
type StatusSource string

// Status sources.
const (
	StatusSourceCreate    StatusSource = "create"
	StatusSourceManual    StatusSource = "manual"
	StatusSourceProbe     StatusSource = "probe"
	StatusSourceSync      StatusSource = "sync"
	StatusSourceCollector StatusSource = "collector"
	StatusSourceImport    StatusSource = "import"
)

// StatusHistoryEntry is one row of the append-only status audit trail.
type StatusHistoryEntry struct {
	ID        string        `json:"id"`
	ServiceID string        `json:"serviceId"`
	Status    ServiceStatus `json:"status"`
	Source    StatusSource  `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
