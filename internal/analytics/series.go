package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
)

// SeriesPoint is the mean usage of the samples inside one bucket.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	CPU       float64   `json:"cpu"`
	RAM       float64   `json:"ram"`
	Disk      float64   `json:"disk"`
	Count     int       `json:"count"`
}

// Series is a bucketed metric series.
type Series struct {
	Range         Range         `json:"range"`
	ServiceID     string        `json:"serviceId,omitempty"`
	BucketSeconds int64         `json:"bucketSeconds"`
	Points        []SeriesPoint `json:"points"`
}

// MetricSeries averages the samples inside r per bucket of r.Bucket. Only buckets with
// at least one sample appear, oldest first. An empty serviceID covers all services.
func MetricSeries(r Range, metrics []domain.ServerMetrics, serviceID string) Series {
	type acc struct {
		cpu, ram, disk float64
		n              int
	}
	buckets := make(map[time.Time]*acc)
	for _, m := range metrics {
		if serviceID != "" && m.ServiceID != serviceID {
			continue
		}
		if !r.Contains(m.Timestamp) {
			continue
		}
		key := BucketStart(m.Timestamp, r.Bucket, r.loc())
		a := buckets[key]
		if a == nil {
			a = &acc{}
			buckets[key] = a
		}
		a.cpu += m.CPUUsage
		a.ram += m.RAMUsage
		a.disk += m.DiskUsage
		a.n++
	}

	points := make([]SeriesPoint, 0, len(buckets))
	for ts, a := range buckets {
		n := float64(a.n)
		points = append(points, SeriesPoint{
			Timestamp: ts,
			CPU:       round2(a.cpu / n),
			RAM:       round2(a.ram / n),
			Disk:      round2(a.disk / n),
			Count:     a.n,
		})
	}
	slices.SortFunc(points, func(a, b SeriesPoint) int { return a.Timestamp.Compare(b.Timestamp) })

	return Series{
		Range:         r,
		ServiceID:     serviceID,
		BucketSeconds: int64(r.Bucket / time.Second),
		Points:        points,
	}
}

// BucketStart returns the start of the bucket holding t. Widths up to a day divide the
// local day into equal slots from midnight. Wider widths group whole local days into
// blocks counted from the Unix epoch day, so a block never depends on the range start.
func BucketStart(t time.Time, width time.Duration, loc *time.Location) time.Time {
	local := t.In(loc)
	midnight := startOfDay(local)

	hours := int(width / time.Hour)
	if hours <= 0 {
		hours = 1
	}
	if hours <= 24 {
		slot := local.Hour() / hours * hours
		return time.Date(midnight.Year(), midnight.Month(), midnight.Day(), slot, 0, 0, 0, loc)
	}

	blockDays := hours / 24
	y, m, d := local.Date()
	epochDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
	blockStart := epochDay - epochDay%int64(blockDays)
	return time.Date(1970, time.January, 1+int(blockStart), 0, 0, 0, 0, loc)
}

// Daypart names.
const (
	Morning   = "morning"
	Afternoon = "afternoon"
	Evening   = "evening"
)

// Daypart returns the part of the day an hour belongs to: morning [06,12),
// afternoon [12,18), evening [18,06).
func Daypart(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Afternoon
	}
	return Evening
}

// Averages is the mean usage of a set of samples.
type Averages struct {
	CPU   float64 `json:"cpu"`
	RAM   float64 `json:"ram"`
	Disk  float64 `json:"disk"`
	Count int     `json:"count"`
}

// DaypartReport holds per-daypart averages of one service. A daypart without samples
// is nil.
type DaypartReport struct {
	ServiceID string    `json:"serviceId"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Morning   *Averages `json:"morning"`
	Afternoon *Averages `json:"afternoon"`
	Evening   *Averages `json:"evening"`
}

// Dayparts reports morning, afternoon and evening averages for every service with
// samples in r, ordered by name then id. Hours are read in the range location.
func Dayparts(r Range, services []domain.Service, metrics []domain.ServerMetrics) []DaypartReport {
	type acc struct {
		cpu, ram, disk float64
		n              int
	}
	parts := make(map[string]map[string]*acc)
	for _, m := range metrics {
		if !r.Contains(m.Timestamp) {
			continue
		}
		part := Daypart(m.Timestamp.In(r.loc()).Hour())
		if parts[m.ServiceID] == nil {
			parts[m.ServiceID] = make(map[string]*acc)
		}
		a := parts[m.ServiceID][part]
		if a == nil {
			a = &acc{}
			parts[m.ServiceID][part] = a
		}
		a.cpu += m.CPUUsage
		a.ram += m.RAMUsage
		a.disk += m.DiskUsage
		a.n++
	}

	average := func(a *acc) *Averages {
		if a == nil {
			return nil
		}
		n := float64(a.n)
		return &Averages{CPU: round2(a.cpu / n), RAM: round2(a.ram / n), Disk: round2(a.disk / n), Count: a.n}
	}

	reports := make([]DaypartReport, 0, len(parts))
	for _, svc := range services {
		p, ok := parts[svc.ID]
		if !ok {
			continue
		}
		reports = append(reports, DaypartReport{
			ServiceID: svc.ID,
			Name:      svc.Name,
			Category:  svc.Category,
			Morning:   average(p[Morning]),
			Afternoon: average(p[Afternoon]),
			Evening:   average(p[Evening]),
		})
	}
	slices.SortFunc(reports, func(a, b DaypartReport) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ServiceID, b.ServiceID)
	})
	return reports
}
