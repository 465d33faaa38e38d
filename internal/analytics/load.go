package analytics

import (
	"cmp"
	"slices"

	"github.com/bissquit/statusboard/internal/domain"
)

// ServiceLoad is the resource load and stability of one service over a range.
type ServiceLoad struct {
	ServiceID         string  `json:"serviceId"`
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	AvgCPU            float64 `json:"avgCpu"`
	AvgRAM            float64 `json:"avgRam"`
	AvgDisk           float64 `json:"avgDisk"`
	TotalLoad         float64 `json:"totalLoad"`
	Stability         float64 `json:"stability"`
	Samples           int     `json:"samples"`
	CriticalIncidents int     `json:"criticalIncidents"`
}

// Rankings lists services by load and by stability.
type Rankings struct {
	MostLoaded  []ServiceLoad `json:"mostLoaded"`
	LeastLoaded []ServiceLoad `json:"leastLoaded"`
	MostStable  []ServiceLoad `json:"mostStable"`
	LeastStable []ServiceLoad `json:"leastStable"`
}

// Loads computes per-service averages over the samples and critical incidents that fall
// inside r. TotalLoad is the mean of the three averages. Stability is
// 100 - critical/samples*100, or 100 without samples. The result is ordered by name,
// then id.
func Loads(r Range, services []domain.Service, metrics []domain.ServerMetrics, incidents []domain.Incident) []ServiceLoad {
	type sums struct {
		cpu, ram, disk float64
		n              int
	}
	byService := make(map[string]*sums, len(services))
	for _, m := range metrics {
		if !r.Contains(m.Timestamp) {
			continue
		}
		s := byService[m.ServiceID]
		if s == nil {
			s = &sums{}
			byService[m.ServiceID] = s
		}
		s.cpu += m.CPUUsage
		s.ram += m.RAMUsage
		s.disk += m.DiskUsage
		s.n++
	}

	critical := make(map[string]int)
	for _, inc := range IncidentsIn(r, incidents) {
		if inc.Severity == domain.IncidentSeverityCritical {
			critical[inc.ServiceID]++
		}
	}

	loads := make([]ServiceLoad, 0, len(services))
	for _, svc := range services {
		l := ServiceLoad{
			ServiceID:         svc.ID,
			Name:              svc.Name,
			Category:          svc.Category,
			Stability:         100,
			CriticalIncidents: critical[svc.ID],
		}
		if s := byService[svc.ID]; s != nil {
			n := float64(s.n)
			l.Samples = s.n
			l.AvgCPU = round2(s.cpu / n)
			l.AvgRAM = round2(s.ram / n)
			l.AvgDisk = round2(s.disk / n)
			l.TotalLoad = round2((s.cpu/n + s.ram/n + s.disk/n) / 3)
			l.Stability = round2(100 - float64(l.CriticalIncidents)/n*100)
		}
		loads = append(loads, l)
	}
	slices.SortFunc(loads, byNameThenID)
	return loads
}

// Rank orders loads into the four ranking lists, each capped at limit entries when
// limit is positive. Load lists only include services that have samples. Ties are
// broken by name, then id.
func Rank(loads []ServiceLoad, limit int) Rankings {
	sampled := make([]ServiceLoad, 0, len(loads))
	for _, l := range loads {
		if l.Samples > 0 {
			sampled = append(sampled, l)
		}
	}

	return Rankings{
		MostLoaded:  top(sampled, limit, func(a, b ServiceLoad) int { return cmp.Compare(b.TotalLoad, a.TotalLoad) }),
		LeastLoaded: top(sampled, limit, func(a, b ServiceLoad) int { return cmp.Compare(a.TotalLoad, b.TotalLoad) }),
		MostStable:  top(loads, limit, func(a, b ServiceLoad) int { return cmp.Compare(b.Stability, a.Stability) }),
		LeastStable: top(loads, limit, func(a, b ServiceLoad) int { return cmp.Compare(a.Stability, b.Stability) }),
	}
}

func top(loads []ServiceLoad, limit int, by func(a, b ServiceLoad) int) []ServiceLoad {
	out := slices.Clone(loads)
	slices.SortFunc(out, func(a, b ServiceLoad) int {
		if c := by(a, b); c != 0 {
			return c
		}
		return byNameThenID(a, b)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []ServiceLoad{}
	}
	return out
}

func byNameThenID(a, b ServiceLoad) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ServiceID, b.ServiceID)
}
