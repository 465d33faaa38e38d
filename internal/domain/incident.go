package domain

import "time"

// IncidentStatus is the lifecycle stage of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusIdentified    IncidentStatus = "identified"
	IncidentStatusMonitoring    IncidentStatus = "monitoring"
	IncidentStatusResolved      IncidentStatus = "resolved"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusInvestigating, IncidentStatusIdentified,
		IncidentStatusMonitoring, IncidentStatusResolved:
		return true
	}
	return false
}

// IncidentSeverity is how badly an incident affects its service.
type IncidentSeverity string

// Incident severities.
const (
	IncidentSeverityMinor    IncidentSeverity = "minor"
	IncidentSeverityMajor    IncidentSeverity = "major"
	IncidentSeverityCritical IncidentSeverity = "critical"
)

// IncidentSeverities lists severities from least to most severe.
var IncidentSeverities = []IncidentSeverity{
	IncidentSeverityMinor,
	IncidentSeverityMajor,
	IncidentSeverityCritical,
}

// IsValid checks if the severity is valid.
func (s IncidentSeverity) IsValid() bool {
	switch s {
	case IncidentSeverityMinor, IncidentSeverityMajor, IncidentSeverityCritical:
		return true
	}
	return false
}

// Incident is a recorded period of abnormal behavior of a service.
// ServiceID is not checked against the catalog and may dangle.
type Incident struct {
	ID          string           `json:"id"`
	ServiceID   string           `json:"serviceId"`
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	Status      IncidentStatus   `json:"status"`
	Severity    IncidentSeverity `json:"severity"`
	StartedAt   time.Time        `json:"startedAt"`
	ResolvedAt  *time.Time       `json:"resolvedAt"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Clone returns a copy that shares no pointers with i.
func (i Incident) Clone() Incident {
	i.Description = clonePtr(i.Description)
	i.ResolvedAt = clonePtr(i.ResolvedAt)
	return i
}

// IsActive reports whether the incident has not been resolved yet.
func (i *Incident) IsActive() bool {
	return i.Status != IncidentStatusResolved
}

// TimeToResolve returns how long the incident lasted and whether it has been resolved.
func (i *Incident) TimeToResolve() (time.Duration, bool) {
	if i.ResolvedAt == nil {
		return 0, false
	}
	return i.ResolvedAt.Sub(i.StartedAt), true
}
