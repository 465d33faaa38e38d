package reconcile

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/pkg/periodic"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	h.RegisterAdminRoutes(r)
	return r
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHandler_NotConfigured(t *testing.T) {
	router := newTestRouter(NewHandler(nil, nil))

	rec := serve(router, http.MethodGet, "/sync/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"configured":false,"running":false}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPost, "/sync").Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/sync/instances").Code)
}

func TestHandler_Trigger(t *testing.T) {
	source := &fakeSource{states: []InstanceState{{Instance: "10.0.0.1", Up: false}}}
	services, _ := seedCatalog(t)
	syncer := NewSyncer(NewReconciler(source, services), nil, periodic.Config{Name: "sync", Interval: time.Hour})
	router := newTestRouter(NewHandler(syncer, source))

	rec := serve(router, http.MethodPost, "/sync")
	require.Equal(t, http.StatusOK, rec.Code)
	var result Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, Result{Updated: 1}, result)

	rec = serve(router, http.MethodGet, "/sync/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.True(t, st.Configured)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, 1, st.LastRun.Result.Updated)
}

func TestHandler_TriggerWhileLocked(t *testing.T) {
	source := &fakeSource{}
	services, _ := seedCatalog(t)
	syncer := NewSyncer(NewReconciler(source, services), &fakeLocker{held: true}, periodic.Config{Name: "sync", Interval: time.Hour})
	router := newTestRouter(NewHandler(syncer, source))

	rec := serve(router, http.MethodPost, "/sync")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"sync already in progress"}`, rec.Body.String())
}

func TestHandler_ListInstances(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		source := &fakeSource{states: []InstanceState{{Instance: "10.0.0.1:9100", Up: true}}}
		router := newTestRouter(NewHandler(nil, source))

		rec := serve(router, http.MethodGet, "/sync/instances")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"instance":"10.0.0.1:9100","up":true}]`, rec.Body.String())
	})

	t.Run("upstream failure", func(t *testing.T) {
		router := newTestRouter(NewHandler(nil, &fakeSource{err: errors.New("timeout")}))

		rec := serve(router, http.MethodGet, "/sync/instances")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
