package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
)

// DetailDays is how many days the service detail view covers, today included.
const DetailDays = 30

// Per-day scores of the service detail view by worst incident severity.
const (
	criticalDayScore = 50
	majorDayScore    = 85
	minorDayScore    = 95
)

// DayUptime is the score of one day of a single service.
type DayUptime struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

// ServiceDetail is the report of a single service.
type ServiceDetail struct {
	Service         domain.Service    `json:"service"`
	Days            []DayUptime       `json:"days"`
	AverageUptime   string            `json:"averageUptime"`
	TotalIncidents  int               `json:"totalIncidents"`
	ActiveIncidents int               `json:"activeIncidents"`
	Incidents       []domain.Incident `json:"incidents"`
}

// DetailFor builds the detail report of svc for the DetailDays days ending today in loc.
// A day scores 50 with a critical incident, 85 with a major one, 95 with a minor one
// and 100 without incidents.
func DetailFor(svc domain.Service, incidents []domain.Incident, now time.Time, loc *time.Location) ServiceDetail {
	if loc == nil {
		loc = time.UTC
	}

	own := make([]domain.Incident, 0)
	worst := make(map[string]int)
	for _, inc := range incidents {
		if inc.ServiceID != svc.ID {
			continue
		}
		own = append(own, inc)
		key := dayKey(inc.StartedAt, loc)
		if score := incidentDayScore(inc.Severity); score < scoreOr100(worst, key) {
			worst[key] = score
		}
	}
	slices.SortFunc(own, func(a, b domain.Incident) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	today := startOfDay(now.In(loc))
	days := make([]DayUptime, 0, DetailDays)
	total := 0
	for i := DetailDays - 1; i >= 0; i-- {
		key := dayKey(today.AddDate(0, 0, -i), loc)
		score := scoreOr100(worst, key)
		days = append(days, DayUptime{Date: key, Score: score})
		total += score
	}

	active := 0
	for i := range own {
		if own[i].IsActive() {
			active++
		}
	}

	return ServiceDetail{
		Service:         svc,
		Days:            days,
		AverageUptime:   formatPercent(float64(total) / float64(len(days))),
		TotalIncidents:  len(own),
		ActiveIncidents: active,
		Incidents:       own,
	}
}

func incidentDayScore(s domain.IncidentSeverity) int {
	switch s {
	case domain.IncidentSeverityCritical:
		return criticalDayScore
	case domain.IncidentSeverityMajor:
		return majorDayScore
	case domain.IncidentSeverityMinor:
		return minorDayScore
	}
	return 100
}

func scoreOr100(m map[string]int, key string) int {
	if v, ok := m[key]; ok {
		return v
	}
	return 100
}
