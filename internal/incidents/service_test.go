package incidents

import (
	"context"
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(now time.Time) *Service {
	s := NewService(memory.New())
	s.now = func() time.Time { return now }
	return s
}

func TestService_CreateIncident(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	started := now.Add(-2 * time.Hour)
	resolved := now.Add(-time.Hour)

	tests := []struct {
		name    string
		input   CreateIncidentInput
		wantErr error
		check   func(t *testing.T, inc *domain.Incident)
	}{
		{
			name: "defaults",
			input: CreateIncidentInput{
				ServiceID: "svc-1",
				Title:     "Latency spike",
				Severity:  domain.IncidentSeverityMinor,
			},
			check: func(t *testing.T, inc *domain.Incident) {
				assert.Equal(t, domain.IncidentStatusInvestigating, inc.Status)
				assert.Equal(t, now, inc.StartedAt)
				assert.Equal(t, now, inc.CreatedAt)
				assert.Nil(t, inc.ResolvedAt)
				assert.True(t, inc.IsActive())
			},
		},
		{
			name: "resolved with explicit times",
			input: CreateIncidentInput{
				ServiceID:  "svc-1",
				Title:      "Outage",
				Status:     domain.IncidentStatusResolved,
				Severity:   domain.IncidentSeverityCritical,
				StartedAt:  &started,
				ResolvedAt: &resolved,
			},
			check: func(t *testing.T, inc *domain.Incident) {
				assert.Equal(t, started, inc.StartedAt)
				require.NotNil(t, inc.ResolvedAt)
				d, ok := inc.TimeToResolve()
				assert.True(t, ok)
				assert.Equal(t, time.Hour, d)
				assert.False(t, inc.IsActive())
			},
		},
		{
			name: "resolved before start",
			input: CreateIncidentInput{
				ServiceID:  "svc-1",
				Title:      "Backwards",
				Severity:   domain.IncidentSeverityMajor,
				StartedAt:  &resolved,
				ResolvedAt: &started,
			},
			wantErr: domain.ErrResolvedBeforeStart,
		},
		{
			name: "unknown severity",
			input: CreateIncidentInput{
				ServiceID: "svc-1",
				Title:     "x",
				Severity:  "apocalyptic",
			},
			wantErr: domain.ErrInvalidSeverity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(now)
			inc, err := svc.CreateIncident(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, inc.ID)
			tt.check(t, inc)

			got, err := svc.GetIncident(context.Background(), inc.ID)
			require.NoError(t, err)
			assert.Equal(t, inc, got)
		})
	}
}

func TestService_ListIncidents_NewestFirst(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()

	for i, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		started := now.Add(-offset)
		_, err := svc.CreateIncident(ctx, CreateIncidentInput{
			ServiceID: "svc",
			Title:     string(rune('a' + i)),
			Severity:  domain.IncidentSeverityMinor,
			StartedAt: &started,
		})
		require.NoError(t, err)
	}

	incidents, err := svc.ListIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, incidents, 3)
	assert.Equal(t, "b", incidents[0].Title)
	assert.Equal(t, "c", incidents[1].Title)
	assert.Equal(t, "a", incidents[2].Title)
}

func TestService_GetIncident_NotFound(t *testing.T) {
	svc := newTestService(time.Now())
	_, err := svc.GetIncident(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrIncidentNotFound)
}
