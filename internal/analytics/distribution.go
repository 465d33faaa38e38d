package analytics

import (
	"cmp"
	"slices"

	"github.com/bissquit/statusboard/internal/domain"
)

// Bucket is a group-by count.
type Bucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CategoryCounts holds counts keyed by name within one category.
type CategoryCounts struct {
	Category string         `json:"category"`
	Counts   map[string]int `json:"counts"`
}

// Distributions groups the catalog and the incidents of a range.
type Distributions struct {
	Category []Bucket `json:"category"`
	// Type omits services without a type.
	Type   []Bucket `json:"type"`
	Region []Bucket `json:"region"`
	Status []Bucket `json:"status"`
	// StatusByCategory counts current service statuses per category.
	StatusByCategory []CategoryCounts `json:"statusByCategory"`
	// SeverityByCategory counts incidents in range per severity and the category of their
	// service. Incidents whose service is unknown fall under "unknown".
	SeverityByCategory []CategoryCounts `json:"severityByCategory"`
}

// UnknownCategory groups incidents whose service no longer resolves.
const UnknownCategory = "unknown"

// Distribute computes all distributions. Buckets are ordered by count descending, then
// name, so the output does not depend on the order of services.
func Distribute(r Range, services []domain.Service, incidents []domain.Incident) Distributions {
	var categories, types, regions, statuses []string
	categoryByID := make(map[string]string, len(services))
	statusByCategory := make(map[string]map[string]int)

	for _, svc := range services {
		categories = append(categories, svc.Category)
		regions = append(regions, svc.Region)
		statuses = append(statuses, string(svc.Status))
		if svc.Type != nil && *svc.Type != "" {
			types = append(types, *svc.Type)
		}
		categoryByID[svc.ID] = svc.Category
		increment(statusByCategory, svc.Category, string(svc.Status))
	}

	severityByCategory := make(map[string]map[string]int)
	for _, inc := range IncidentsIn(r, incidents) {
		category, ok := categoryByID[inc.ServiceID]
		if !ok {
			category = UnknownCategory
		}
		increment(severityByCategory, category, string(inc.Severity))
	}

	return Distributions{
		Category:           GroupCount(categories),
		Type:               GroupCount(types),
		Region:             GroupCount(regions),
		Status:             GroupCount(statuses),
		StatusByCategory:   matrix(statusByCategory),
		SeverityByCategory: matrix(severityByCategory),
	}
}

// GroupCount counts occurrences of each value.
func GroupCount(values []string) []Bucket {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for name, n := range counts {
		buckets = append(buckets, Bucket{Name: name, Count: n})
	}
	slices.SortFunc(buckets, func(a, b Bucket) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return buckets
}

func increment(m map[string]map[string]int, outer, inner string) {
	if m[outer] == nil {
		m[outer] = make(map[string]int)
	}
	m[outer][inner]++
}

func matrix(m map[string]map[string]int) []CategoryCounts {
	out := make([]CategoryCounts, 0, len(m))
	for category, counts := range m {
		out = append(out, CategoryCounts{Category: category, Counts: counts})
	}
	slices.SortFunc(out, func(a, b CategoryCounts) int { return cmp.Compare(a.Category, b.Category) })
	return out
}
