package analytics

import (
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(serviceID string, cpu, ram, disk float64, at time.Time) domain.ServerMetrics {
	return domain.ServerMetrics{ServiceID: serviceID, CPUUsage: cpu, RAMUsage: ram, DiskUsage: disk, Timestamp: at}
}

func TestLoadsAndRank(t *testing.T) {
	r := Range{Start: now.Add(-24 * time.Hour), End: now, Location: time.UTC}
	svcs := []domain.Service{
		{ID: "1", Name: "alpha"},
		{ID: "2", Name: "beta"},
		{ID: "3", Name: "gamma"},
		{ID: "4", Name: "idle"},
	}
	metrics := []domain.ServerMetrics{
		sample("1", 90, 60, 30, now.Add(-time.Hour)),
		sample("1", 70, 40, 30, now.Add(-2*time.Hour)),
		sample("2", 10, 20, 30, now.Add(-time.Hour)),
		sample("2", 10, 20, 30, now.Add(-2*time.Hour)),
		sample("2", 10, 20, 30, now.Add(-3*time.Hour)),
		sample("2", 10, 20, 30, now.Add(-4*time.Hour)),
		sample("3", 20, 20, 20, now.Add(-time.Hour)),
		sample("3", 99, 99, 99, now.Add(-48*time.Hour)),
	}
	incidents := []domain.Incident{
		incident("i1", "2", domain.IncidentSeverityCritical, now.Add(-time.Hour), 0),
		incident("i2", "2", domain.IncidentSeverityMajor, now.Add(-time.Hour), 0),
		incident("i3", "1", domain.IncidentSeverityCritical, now.Add(-72*time.Hour), 0),
	}

	loads := Loads(r, svcs, metrics, incidents)
	require.Len(t, loads, 4)

	alpha := loads[0]
	assert.Equal(t, 80.0, alpha.AvgCPU)
	assert.Equal(t, 50.0, alpha.AvgRAM)
	assert.Equal(t, 30.0, alpha.AvgDisk)
	assert.Equal(t, 53.33, alpha.TotalLoad)
	assert.Equal(t, 100.0, alpha.Stability)
	assert.Equal(t, 2, alpha.Samples)

	beta := loads[1]
	assert.Equal(t, 20.0, beta.TotalLoad)
	assert.Equal(t, 1, beta.CriticalIncidents)
	assert.Equal(t, 75.0, beta.Stability)

	gamma := loads[2]
	assert.Equal(t, 1, gamma.Samples)
	assert.Equal(t, 20.0, gamma.TotalLoad)

	idle := loads[3]
	assert.Zero(t, idle.Samples)
	assert.Equal(t, 100.0, idle.Stability)

	rank := Rank(loads, 2)
	assert.Equal(t, []string{"alpha", "beta"}, names(rank.MostLoaded))
	// beta and gamma tie on load; name breaks the tie
	assert.Equal(t, []string{"beta", "gamma"}, names(rank.LeastLoaded))
	assert.Equal(t, []string{"alpha", "gamma"}, names(rank.MostStable))
	assert.Equal(t, []string{"beta", "alpha"}, names(rank.LeastStable))

	all := Rank(loads, 0)
	assert.Len(t, all.MostLoaded, 3)
	assert.Len(t, all.MostStable, 4)
}

func TestRank_Empty(t *testing.T) {
	rank := Rank(nil, 5)
	assert.NotNil(t, rank.MostLoaded)
	assert.Empty(t, rank.MostLoaded)
	assert.Empty(t, rank.LeastStable)
}

func TestLoads_OrderIndependent(t *testing.T) {
	r := Range{Start: now.Add(-24 * time.Hour), End: now, Location: time.UTC}
	a := domain.Service{ID: "1", Name: "same"}
	b := domain.Service{ID: "2", Name: "same"}
	metrics := []domain.ServerMetrics{
		sample("1", 50, 50, 50, now.Add(-time.Hour)),
		sample("2", 50, 50, 50, now.Add(-time.Hour)),
	}

	first := Rank(Loads(r, []domain.Service{a, b}, metrics, nil), 0)
	second := Rank(Loads(r, []domain.Service{b, a}, metrics, nil), 0)
	assert.Equal(t, first, second)
	assert.Equal(t, "1", first.MostLoaded[0].ServiceID)
}

func names(loads []ServiceLoad) []string {
	out := make([]string, 0, len(loads))
	for _, l := range loads {
		out = append(out, l.Name)
	}
	return out
}
