package analytics

import (
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func catalogOf(statuses ...domain.ServiceStatus) []domain.Service {
	out := make([]domain.Service, 0, len(statuses))
	for i, st := range statuses {
		out = append(out, domain.Service{ID: string(rune('a' + i)), Name: string(rune('a' + i)), Status: st})
	}
	return out
}

func incident(id, serviceID string, sev domain.IncidentSeverity, started time.Time, resolvedAfter time.Duration) domain.Incident {
	inc := domain.Incident{
		ID:        id,
		ServiceID: serviceID,
		Severity:  sev,
		Status:    domain.IncidentStatusInvestigating,
		StartedAt: started,
	}
	if resolvedAfter > 0 {
		inc.Status = domain.IncidentStatusResolved
		inc.ResolvedAt = ptr(started.Add(resolvedAfter))
	}
	return inc
}

func TestUptime(t *testing.T) {
	op := domain.ServiceStatusOperational
	down := domain.ServiceStatusDown

	assert.Equal(t, "0.00", Uptime(nil))
	assert.Equal(t, "100.00", Uptime(catalogOf(op, op)))
	assert.Equal(t, "66.67", Uptime(catalogOf(op, op, down)))
	assert.Equal(t, "33.33", Uptime(catalogOf(op, down, domain.ServiceStatusLoading)))
	assert.Equal(t, "0.00", Uptime(catalogOf(down)))
}

func TestMTTR(t *testing.T) {
	assert.Zero(t, MTTR(nil))
	assert.Zero(t, MTTR([]domain.Incident{incident("1", "a", domain.IncidentSeverityMinor, now, 0)}))

	incidents := []domain.Incident{
		incident("1", "a", domain.IncidentSeverityMinor, now, 30*time.Minute),
		incident("2", "a", domain.IncidentSeverityMajor, now, 90*time.Minute),
		incident("3", "a", domain.IncidentSeverityMajor, now, 0),
	}
	assert.Equal(t, int64(60), MTTR(incidents))

	assert.Equal(t, int64(2), MTTR([]domain.Incident{
		incident("1", "a", domain.IncidentSeverityMinor, now, 90*time.Second),
		incident("2", "a", domain.IncidentSeverityMinor, now, 150*time.Second),
	}))
}

func TestDayScoreAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		counts     SeverityCounts
		wantScore  int
		wantStatus string
	}{
		{"quiet day", SeverityCounts{}, 100, DayOperational},
		{"critical and minor", SeverityCounts{Critical: 1, Minor: 1, Total: 2}, 94, DayDown},
		{"critical floor", SeverityCounts{Critical: 10, Total: 10}, 85, DayDown},
		{"major", SeverityCounts{Major: 2, Minor: 1, Total: 3}, 95, DayDegraded},
		{"major floor", SeverityCounts{Major: 20, Total: 20}, 90, DayDegraded},
		{"minor", SeverityCounts{Minor: 3, Total: 3}, 97, DayMinor},
		{"minor floor", SeverityCounts{Minor: 9, Total: 9}, 95, DayMinor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantScore, DayScore(tt.counts))
			assert.Equal(t, tt.wantStatus, DayStatus(tt.counts))
		})
	}
}

func TestDaily(t *testing.T) {
	r := Range{
		Start:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Location: time.UTC,
	}
	incidents := []domain.Incident{
		incident("1", "a", domain.IncidentSeverityCritical, time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC), 0),
		incident("2", "b", domain.IncidentSeverityMinor, time.Date(2024, 3, 2, 23, 0, 0, 0, time.UTC), 0),
		incident("3", "b", domain.IncidentSeverityMajor, time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), 0),
		incident("4", "b", domain.IncidentSeverityMajor, time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC), 0),
	}

	points := Daily(r, incidents)

	assert.Equal(t, []DailyPoint{
		{Date: "2024-03-01", Score: 100, Status: DayOperational},
		{Date: "2024-03-02", Score: 94, Status: DayDown, Incidents: SeverityCounts{Critical: 1, Minor: 1, Total: 2}},
		{Date: "2024-03-03", Score: 98, Status: DayDegraded, Incidents: SeverityCounts{Major: 1, Total: 1}},
	}, points)
}

func TestDaily_GroupsByLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	r, err := ParseRange("custom", "2024-03-01", "2024-03-02", now, loc)
	if !assert.NoError(t, err) {
		return
	}
	// 03:00 UTC on the 2nd is still the 1st in UTC-5
	incidents := []domain.Incident{
		incident("1", "a", domain.IncidentSeverityCritical, time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC), 0),
	}

	points := Daily(r, incidents)
	assert.Equal(t, DayDown, points[0].Status)
	assert.Equal(t, DayOperational, points[1].Status)
}

func TestSummarize(t *testing.T) {
	r := Range{Start: now.Add(-24 * time.Hour), End: now, Location: time.UTC}
	svcs := catalogOf(domain.ServiceStatusOperational, domain.ServiceStatusDown)
	incidents := []domain.Incident{
		incident("1", "a", domain.IncidentSeverityMinor, now.Add(-2*time.Hour), 30*time.Minute),
		incident("2", "a", domain.IncidentSeverityMajor, now.Add(-time.Hour), 0),
		incident("3", "a", domain.IncidentSeverityMajor, now.Add(-48*time.Hour), 0),
	}

	s := Summarize(r, svcs, incidents)

	assert.Equal(t, 2, s.TotalServices)
	assert.Equal(t, 1, s.Operational)
	assert.Equal(t, "50.00", s.Uptime)
	assert.Equal(t, 2, s.ActiveIncidents, "open incidents count regardless of range")
	assert.Equal(t, int64(30), s.MTTRMinutes)
	assert.Equal(t, 2, s.Incidents)
}

func TestSummarize_ActiveIncidentStartedBeforeRange(t *testing.T) {
	r, err := ParseRange("7d", "", "", now, time.UTC)
	require.NoError(t, err)

	old := incident("1", "a", domain.IncidentSeverityCritical, now.Add(-20*24*time.Hour), 0)
	resolved := incident("2", "a", domain.IncidentSeverityMajor, now.Add(-20*24*time.Hour), time.Hour)

	s := Summarize(r, nil, []domain.Incident{old, resolved})

	assert.Equal(t, 1, s.ActiveIncidents)
	assert.Equal(t, 0, s.Incidents)
	assert.Equal(t, int64(0), s.MTTRMinutes)
}
