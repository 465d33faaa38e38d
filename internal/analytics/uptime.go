package analytics

import (
	"math"
	"strconv"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
)

// Uptime is the share of operational services in percent, formatted with two
// decimals. An empty catalog yields "0.00".
func Uptime(services []domain.Service) string {
	if len(services) == 0 {
		return "0.00"
	}
	operational := countStatus(services, domain.ServiceStatusOperational)
	return formatPercent(float64(operational) / float64(len(services)) * 100)
}

// MTTR is the mean time to resolve in whole minutes over resolved incidents, 0 when
// none are resolved.
func MTTR(incidents []domain.Incident) int64 {
	var total time.Duration
	var resolved int
	for i := range incidents {
		if d, ok := incidents[i].TimeToResolve(); ok {
			total += d
			resolved++
		}
	}
	if resolved == 0 {
		return 0
	}
	return int64(math.Round(total.Minutes() / float64(resolved)))
}

// SeverityCounts counts incidents per severity.
type SeverityCounts struct {
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
	Total    int `json:"total"`
}

// CountSeverities tallies incidents by severity.
func CountSeverities(incidents []domain.Incident) SeverityCounts {
	var c SeverityCounts
	for _, inc := range incidents {
		switch inc.Severity {
		case domain.IncidentSeverityCritical:
			c.Critical++
		case domain.IncidentSeverityMajor:
			c.Major++
		case domain.IncidentSeverityMinor:
			c.Minor++
		}
		c.Total++
	}
	return c
}

// DayScore is the heuristic uptime score of a day given its incident counts. It is a
// visualization proxy derived from incident severities only, not a measured uptime.
func DayScore(c SeverityCounts) int {
	switch {
	case c.Critical > 0:
		return max(85, 100-5*c.Critical-2*c.Major-c.Minor)
	case c.Major > 0:
		return max(90, 100-2*c.Major-c.Minor)
	case c.Minor > 0:
		return max(95, 100-c.Minor)
	}
	return 100
}

// Calendar day statuses.
const (
	DayOperational = "operational"
	DayDegraded    = "degraded"
	DayDown        = "down"
	DayMinor       = "minor"
)

// DayStatus classifies a day by its most severe incident: critical is down, major is
// degraded, anything else is minor, and a day without incidents is operational.
func DayStatus(c SeverityCounts) string {
	switch {
	case c.Total == 0:
		return DayOperational
	case c.Critical > 0:
		return DayDown
	case c.Major > 0:
		return DayDegraded
	}
	return DayMinor
}

// DailyPoint describes one calendar day of a range.
type DailyPoint struct {
	Date      string         `json:"date"`
	Score     int            `json:"score"`
	Status    string         `json:"status"`
	Incidents SeverityCounts `json:"incidents"`
}

// Daily returns one point per calendar day of r, grouping incidents by the local day
// they started on.
func Daily(r Range, incidents []domain.Incident) []DailyPoint {
	loc := r.loc()
	byDay := make(map[string][]domain.Incident)
	for _, inc := range incidents {
		key := dayKey(inc.StartedAt, loc)
		byDay[key] = append(byDay[key], inc)
	}

	days := r.Days()
	points := make([]DailyPoint, 0, len(days))
	for _, day := range days {
		key := dayKey(day, loc)
		counts := CountSeverities(byDay[key])
		points = append(points, DailyPoint{
			Date:      key,
			Score:     DayScore(counts),
			Status:    DayStatus(counts),
			Incidents: counts,
		})
	}
	return points
}

// Summary is the headline view of a range.
type Summary struct {
	Range           Range  `json:"range"`
	TotalServices   int    `json:"totalServices"`
	Operational     int    `json:"operational"`
	Uptime          string `json:"uptime"`
	ActiveIncidents int    `json:"activeIncidents"`
	MTTRMinutes     int64  `json:"mttrMinutes"`
	Incidents       int    `json:"incidents"`
}

// Summarize builds the headline view. The incident count and MTTR consider incidents
// that started inside r. Active incidents and service figures reflect the current
// state, so an incident opened before r and still unresolved is counted.
func Summarize(r Range, services []domain.Service, incidents []domain.Incident) Summary {
	inRange := IncidentsIn(r, incidents)

	active := 0
	for i := range incidents {
		if incidents[i].IsActive() {
			active++
		}
	}

	return Summary{
		Range:           r,
		TotalServices:   len(services),
		Operational:     countStatus(services, domain.ServiceStatusOperational),
		Uptime:          Uptime(services),
		ActiveIncidents: active,
		MTTRMinutes:     MTTR(inRange),
		Incidents:       len(inRange),
	}
}

// IncidentsIn returns the incidents that started inside r.
func IncidentsIn(r Range, incidents []domain.Incident) []domain.Incident {
	var out []domain.Incident
	for _, inc := range incidents {
		if r.Contains(inc.StartedAt) {
			out = append(out, inc)
		}
	}
	return out
}

func countStatus(services []domain.Service, status domain.ServiceStatus) int {
	n := 0
	for _, svc := range services {
		if svc.Status == status {
			n++
		}
	}
	return n
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', 2, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
