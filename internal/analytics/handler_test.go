package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/store/memory"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	repo := memory.New()
	svc := NewService(repo, time.UTC)
	svc.now = func() time.Time { return now }

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	return r, repo
}

func seed(t *testing.T, repo *memory.Store) {
	t.Helper()
	ctx := context.Background()

	for _, s := range []domain.Service{
		{ID: "1", Name: "api", Category: "Backend", Region: "prod", Status: domain.ServiceStatusOperational, UpdatedAt: now},
		{ID: "2", Name: "web", Category: "Frontend", Region: "prod", Status: domain.ServiceStatusDown, UpdatedAt: now},
	} {
		require.NoError(t, repo.CreateService(ctx, &s))
	}

	inc := incident("i1", "1", domain.IncidentSeverityCritical, now.Add(-2*time.Hour), 30*time.Minute)
	inc.CreatedAt = now
	require.NoError(t, repo.CreateIncident(ctx, &inc))

	for i, m := range []domain.ServerMetrics{
		sample("1", 40, 40, 40, now.Add(-90*time.Minute)),
		sample("1", 60, 60, 60, now.Add(-80*time.Minute)),
	} {
		m.ID = string(rune('a' + i))
		require.NoError(t, repo.CreateServerMetrics(ctx, &m))
	}
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec.Code
}

func TestHandler_Summary(t *testing.T) {
	router, repo := newTestRouter(t)
	seed(t, repo)

	var s Summary
	require.Equal(t, http.StatusOK, get(t, router, "/analytics/summary?range=24h", &s))
	assert.Equal(t, 2, s.TotalServices)
	assert.Equal(t, "50.00", s.Uptime)
	assert.Equal(t, int64(30), s.MTTRMinutes)
	assert.Equal(t, Preset24h, s.Range.Preset)
}

func TestHandler_InvalidRange(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{
		"/analytics/summary?range=1y",
		"/analytics/daily?range=custom&start=2024-03-01",
		"/analytics/load?limit=-1",
	} {
		assert.Equal(t, http.StatusBadRequest, get(t, router, path, nil), path)
	}
}

func TestHandler_Reports(t *testing.T) {
	router, repo := newTestRouter(t)
	seed(t, repo)

	var daily []DailyPoint
	require.Equal(t, http.StatusOK, get(t, router, "/analytics/daily?range=7d", &daily))
	require.Len(t, daily, 8)
	assert.Equal(t, DayDown, daily[len(daily)-1].Status)

	var rank Rankings
	require.Equal(t, http.StatusOK, get(t, router, "/analytics/load?range=24h&limit=1", &rank))
	require.Len(t, rank.MostLoaded, 1)
	assert.Equal(t, 50.0, rank.MostLoaded[0].TotalLoad)
	assert.Equal(t, 50.0, rank.MostLoaded[0].Stability)

	var dist Distributions
	require.Equal(t, http.StatusOK, get(t, router, "/analytics/distribution", &dist))
	assert.Len(t, dist.Category, 2)

	var series Series
	require.Equal(t, http.StatusOK, get(t, router, "/analytics/metrics-series?range=24h&serviceId=1", &series))
	require.Len(t, series.Points, 1)
	assert.Equal(t, 2, series.Points[0].Count)
	assert.Equal(t, 50.0, series.Points[0].CPU)

	var parts []DaypartReport
	require.Equal(t, http.StatusOK, get(t, router, "/analytics/dayparts?range=24h", &parts))
	require.Len(t, parts, 1)
	require.NotNil(t, parts[0].Afternoon)
}

func TestHandler_ServiceDetail(t *testing.T) {
	router, repo := newTestRouter(t)
	seed(t, repo)

	var d ServiceDetail
	require.Equal(t, http.StatusOK, get(t, router, "/analytics/services/1", &d))
	assert.Equal(t, "api", d.Service.Name)
	assert.Len(t, d.Days, DetailDays)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/analytics/services/missing", nil))
}
