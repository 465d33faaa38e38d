// Package storetest holds the behavior every store.Repository implementation must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty repository.
type Factory func(t *testing.T) store.Repository

var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func service(id, name string) *domain.Service {
	return &domain.Service{
		ID:        id,
		Name:      name,
		Category:  "Backend",
		Region:    "prod",
		Type:      ptr("Backend"),
		Status:    domain.ServiceStatusOperational,
		Address:   ptr("10.0.0.1"),
		Port:      ptr(8080),
		UpdatedAt: base,
	}
}

// Run exercises repo contract cases, each against a fresh repository.
func Run(t *testing.T, newRepo Factory) {
	t.Run("services", func(t *testing.T) { testServices(t, newRepo(t)) })
	t.Run("status update clamps updatedAt", func(t *testing.T) { testUpdateStatus(t, newRepo(t)) })
	t.Run("incidents", func(t *testing.T) { testIncidents(t, newRepo(t)) })
	t.Run("status history", func(t *testing.T) { testHistory(t, newRepo(t)) })
	t.Run("server metrics", func(t *testing.T) { testMetrics(t, newRepo(t)) })
	t.Run("within tx", func(t *testing.T) { testWithinTx(t, newRepo(t)) })
	t.Run("returned values are detached", func(t *testing.T) { testDetached(t, newRepo(t)) })
}

func testServices(t *testing.T, repo store.Repository) {
	ctx := context.Background()

	require.NoError(t, repo.CreateService(ctx, service("b", "web")))
	require.NoError(t, repo.CreateService(ctx, service("a", "web")))
	minimal := &domain.Service{ID: "c", Name: "api", Category: "Backend", Region: "dev",
		Status: domain.ServiceStatusLoading, UpdatedAt: base}
	require.NoError(t, repo.CreateService(ctx, minimal))

	list, err := repo.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{list[0].ID, list[1].ID, list[2].ID})

	got, err := repo.GetService(ctx, "c")
	require.NoError(t, err)
	assert.Nil(t, got.Address)
	assert.Nil(t, got.Port)
	assert.Nil(t, got.Type)
	assert.Equal(t, domain.ServiceStatusLoading, got.Status)

	got, err = repo.GetService(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", *got.Address)
	assert.Equal(t, 8080, *got.Port)
	assert.True(t, got.UpdatedAt.Equal(base))

	_, err = repo.GetService(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrServiceNotFound))
}

func testUpdateStatus(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.CreateService(ctx, service("a", "web")))

	later := base.Add(time.Minute)
	svc, err := repo.UpdateServiceStatus(ctx, "a", domain.ServiceStatusDown, later)
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceStatusDown, svc.Status)
	assert.True(t, svc.UpdatedAt.Equal(later))

	// a clock that did not move still advances updatedAt
	svc, err = repo.UpdateServiceStatus(ctx, "a", domain.ServiceStatusDegraded, base)
	require.NoError(t, err)
	assert.True(t, svc.UpdatedAt.Equal(later.Add(time.Microsecond)), svc.UpdatedAt)

	_, err = repo.UpdateServiceStatus(ctx, "missing", domain.ServiceStatusDown, later)
	assert.True(t, errors.Is(err, domain.ErrServiceNotFound))
}

func testIncidents(t *testing.T, repo store.Repository) {
	ctx := context.Background()

	older := &domain.Incident{ID: "i1", ServiceID: "dangling", Title: "disk full",
		Status: domain.IncidentStatusResolved, Severity: domain.IncidentSeverityMinor,
		StartedAt: base.Add(-time.Hour), ResolvedAt: ptr(base), CreatedAt: base}
	newer := &domain.Incident{ID: "i2", ServiceID: "a", Title: "outage", Description: ptr("all down"),
		Status: domain.IncidentStatusInvestigating, Severity: domain.IncidentSeverityCritical,
		StartedAt: base, CreatedAt: base}
	require.NoError(t, repo.CreateIncident(ctx, older))
	require.NoError(t, repo.CreateIncident(ctx, newer))

	list, err := repo.ListIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "i2", list[0].ID)
	assert.Equal(t, "i1", list[1].ID)

	got, err := repo.GetIncident(ctx, "i1")
	require.NoError(t, err)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.ResolvedAt.Equal(base))
	assert.Nil(t, got.Description)

	_, err = repo.GetIncident(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrIncidentNotFound))
}

func testDetached(t *testing.T, repo store.Repository) {
	ctx := context.Background()

	in := service("a", "web")
	require.NoError(t, repo.CreateService(ctx, in))
	*in.Address = "changed-by-caller"

	got, err := repo.GetService(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got.Address)
	assert.Equal(t, "10.0.0.1", *got.Address)

	*got.Address = "10.9.9.9"
	*got.Port = 1

	list, err := repo.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	*list[0].Type = "Frontend"

	updated, err := repo.UpdateServiceStatus(ctx, "a", domain.ServiceStatusDown, base.Add(time.Minute))
	require.NoError(t, err)
	*updated.Address = "10.8.8.8"

	got, err = repo.GetService(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", *got.Address)
	assert.Equal(t, 8080, *got.Port)
	assert.Equal(t, "Backend", *got.Type)

	inc := &domain.Incident{ID: "i1", ServiceID: "a", Title: "outage", Description: ptr("all down"),
		Status: domain.IncidentStatusResolved, Severity: domain.IncidentSeverityMajor,
		StartedAt: base, ResolvedAt: ptr(base.Add(time.Hour)), CreatedAt: base}
	require.NoError(t, repo.CreateIncident(ctx, inc))

	gotInc, err := repo.GetIncident(ctx, "i1")
	require.NoError(t, err)
	*gotInc.Description = "edited"
	*gotInc.ResolvedAt = base

	gotInc, err = repo.GetIncident(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "all down", *gotInc.Description)
	assert.True(t, gotInc.ResolvedAt.Equal(base.Add(time.Hour)))
}

func testHistory(t *testing.T, repo store.Repository) {
	ctx := context.Background()

	for i, status := range []domain.ServiceStatus{domain.ServiceStatusOperational, domain.ServiceStatusDown} {
		require.NoError(t, repo.CreateStatusHistoryEntry(ctx, &domain.StatusHistoryEntry{
			ID: string(rune('a' + i)), ServiceID: "svc", Status: status,
			Source: domain.StatusSourceManual, Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.CreateStatusHistoryEntry(ctx, &domain.StatusHistoryEntry{
		ID: "other", ServiceID: "other", Status: domain.ServiceStatusDown,
		Source: domain.StatusSourceSync, Timestamp: base,
	}))

	entries, err := repo.ListStatusHistory(ctx, "svc")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ServiceStatusDown, entries[0].Status)
	assert.Equal(t, domain.ServiceStatusOperational, entries[1].Status)

	entries, err = repo.ListStatusHistory(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func testMetrics(t *testing.T, repo store.Repository) {
	ctx := context.Background()

	for i := range 4 {
		svc := "a"
		if i == 3 {
			svc = "b"
		}
		require.NoError(t, repo.CreateServerMetrics(ctx, &domain.ServerMetrics{
			ID: string(rune('0' + i)), ServiceID: svc,
			CPUUsage: float64(10 * i), RAMUsage: 50, DiskUsage: 20,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := repo.ListServerMetrics(ctx, store.MetricsFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "3", all[0].ID)

	ofA, err := repo.ListServerMetrics(ctx, store.MetricsFilter{ServiceID: "a"})
	require.NoError(t, err)
	assert.Len(t, ofA, 3)

	window, err := repo.ListServerMetrics(ctx, store.MetricsFilter{
		Since: base.Add(time.Hour),
		Until: base.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "2", window[0].ID)
	assert.Equal(t, "1", window[1].ID)
}

func testWithinTx(t *testing.T, repo store.Repository) {
	ctx := context.Background()

	err := repo.WithinTx(ctx, func(tx store.Repository) error {
		if err := tx.CreateService(ctx, service("a", "web")); err != nil {
			return err
		}
		return tx.CreateStatusHistoryEntry(ctx, &domain.StatusHistoryEntry{
			ID: "h", ServiceID: "a", Status: domain.ServiceStatusOperational,
			Source: domain.StatusSourceCreate, Timestamp: base,
		})
	})
	require.NoError(t, err)

	_, err = repo.GetService(ctx, "a")
	require.NoError(t, err)
	entries, err := repo.ListStatusHistory(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	boom := errors.New("boom")
	err = repo.WithinTx(ctx, func(store.Repository) error { return boom })
	assert.ErrorIs(t, err, boom)

	require.NoError(t, repo.Ping(ctx))
}
