package reconcile

import (
	"context"
	"net/http"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Handler exposes sync state and manual triggers over HTTP. A nil syncer means the
// external source is not configured.
type Handler struct {
	syncer *Syncer
	source Source
}

// NewHandler creates a new sync handler. syncer and source may both be nil.
func NewHandler(syncer *Syncer, source Source) *Handler {
	return &Handler{syncer: syncer, source: source}
}

// RegisterRoutes registers public sync routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sync/status", h.GetStatus)
	r.Get("/sync/instances", h.ListInstances)
}

// RegisterAdminRoutes registers sync routes that require admin auth.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/sync", h.Trigger)
}

// GetStatus handles GET /sync/status.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	if h.syncer == nil {
		httputil.JSON(w, http.StatusOK, Status{})
		return
	}
	httputil.JSON(w, http.StatusOK, h.syncer.Status())
}

// Trigger handles POST /sync.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		httputil.Error(w, http.StatusBadRequest, domain.ErrSyncNotConfigured.Error())
		return
	}

	// a cancelled fetch would mark every service loading
	ctx := context.WithoutCancel(r.Context())
	result, err := h.syncer.TryRun(ctx)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
			{Error: domain.ErrSyncInProgress, Status: http.StatusConflict},
		})
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// ListInstances handles GET /sync/instances.
func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		httputil.Error(w, http.StatusBadRequest, domain.ErrSyncNotConfigured.Error())
		return
	}

	states, err := h.source.FetchInstances(r.Context())
	if err != nil {
		ctxlog.FromContext(r.Context()).Warn("metrics source fetch failed", "error", err)
		httputil.Error(w, http.StatusBadGateway, "Metrics source unavailable")
		return
	}
	httputil.JSON(w, http.StatusOK, states)
}
