package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/store"
	"github.com/bissquit/statusboard/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	return NewService(repo, WithClock(func() time.Time { return fixedNow })), repo
}

func ptr[T any](v T) *T { return &v }

func TestService_CreateService_DefaultsAndHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateService(ctx, CreateServiceInput{
		Name:     "API Gateway",
		Category: "Backend",
		Region:   "prod",
		Address:  ptr("10.0.0.1"),
		Port:     ptr(8080),
	}, domain.StatusSourceCreate)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.ServiceStatusOperational, created.Status)
	assert.Equal(t, fixedNow, created.UpdatedAt)

	history, err := svc.StatusHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ServiceStatusOperational, history[0].Status)
	assert.Equal(t, domain.StatusSourceCreate, history[0].Source)
	assert.Equal(t, created.UpdatedAt, history[0].Timestamp)
}

func TestService_CreateService_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateService(ctx, CreateServiceInput{
		Name:        "DB",
		Description: ptr("Primary database"),
		Category:    "Database",
		Region:      "eu",
		Type:        ptr("PSQL"),
		Status:      domain.ServiceStatusMaintenance,
		Icon:        ptr("database"),
		Address:     ptr("db.local"),
		Port:        ptr(5432),
	}, domain.StatusSourceCreate)
	require.NoError(t, err)

	got, err := svc.GetService(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestService_CreateService_InvalidStatus(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateService(context.Background(), CreateServiceInput{
		Name: "x", Category: "c", Region: "r", Status: "broken",
	}, domain.StatusSourceCreate)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestService_SetStatus_AppendsEveryCall(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateService(ctx, CreateServiceInput{Name: "web", Category: "Frontend", Region: "prod"}, domain.StatusSourceCreate)
	require.NoError(t, err)

	statuses := []domain.ServiceStatus{
		domain.ServiceStatusDown,
		domain.ServiceStatusDown,
		domain.ServiceStatusOperational,
	}
	prev := created.UpdatedAt
	for _, status := range statuses {
		updated, err := svc.SetStatus(ctx, created.ID, status, domain.StatusSourceManual)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
		// the clock is frozen, so updatedAt must still move forward
		assert.True(t, updated.UpdatedAt.After(prev), "updatedAt must increase")
		prev = updated.UpdatedAt
	}

	history, err := svc.StatusHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, len(statuses)+1)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i-1].Timestamp.Before(history[i].Timestamp), "history must be newest first")
	}
	assert.Equal(t, domain.ServiceStatusOperational, history[0].Status)
	assert.Equal(t, domain.StatusSourceManual, history[0].Source)
}

func TestService_SetStatus_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, "missing", domain.ServiceStatusDown, domain.StatusSourceManual)
	assert.ErrorIs(t, err, domain.ErrServiceNotFound)

	_, err = svc.SetStatus(ctx, "missing", "unknown", domain.StatusSourceManual)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestService_ApplyStatus_SkipsUnchanged(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateService(ctx, CreateServiceInput{Name: "web", Category: "Frontend", Region: "prod"}, domain.StatusSourceCreate)
	require.NoError(t, err)

	_, changed, err := svc.ApplyStatus(ctx, created.ID, domain.ServiceStatusOperational, domain.StatusSourceSync)
	require.NoError(t, err)
	assert.False(t, changed)

	updated, changed, err := svc.ApplyStatus(ctx, created.ID, domain.ServiceStatusDown, domain.StatusSourceSync)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.ServiceStatusDown, updated.Status)

	history, err := svc.StatusHistory(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, domain.StatusSourceSync, history[0].Source)
}

// failingHistoryRepo fails every history append.
type failingHistoryRepo struct {
	*memory.Store
}

func (r failingHistoryRepo) CreateStatusHistoryEntry(context.Context, *domain.StatusHistoryEntry) error {
	return errors.New("disk full")
}

func (r failingHistoryRepo) WithinTx(ctx context.Context, fn func(store.Repository) error) error {
	return fn(r)
}

func TestService_CreateService_HistoryFailureSurfaces(t *testing.T) {
	svc := NewService(failingHistoryRepo{memory.New()})

	_, err := svc.CreateService(context.Background(), CreateServiceInput{Name: "a", Category: "b", Region: "c"}, domain.StatusSourceCreate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestDeriveFromProbe(t *testing.T) {
	assert.Equal(t, domain.ServiceStatusOperational, DeriveFromProbe(true))
	assert.Equal(t, domain.ServiceStatusDown, DeriveFromProbe(false))
}

func TestDeriveFromUsage(t *testing.T) {
	tests := []struct {
		name           string
		cpu, ram, disk float64
		want           domain.ServiceStatus
	}{
		{"idle host is down", 0, 0, 40, domain.ServiceStatusDown},
		{"normal", 35, 50, 60, domain.ServiceStatusOperational},
		{"critical cpu", 95, 10, 10, domain.ServiceStatusDegraded},
		{"critical disk", 10, 10, 91, domain.ServiceStatusDegraded},
		{"high ram", 10, 85, 10, domain.ServiceStatusMaintenance},
		{"high disk", 10, 10, 86, domain.ServiceStatusMaintenance},
		{"disk at threshold", 10, 10, 85, domain.ServiceStatusOperational},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveFromUsage(tt.cpu, tt.ram, tt.disk))
		})
	}
}
