package analytics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// DefaultRankingLimit caps ranking lists when no limit is requested.
const DefaultRankingLimit = 5

// Handler serves analytics endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new analytics handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers analytics routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/summary", h.Summary)
		r.Get("/daily", h.Daily)
		r.Get("/load", h.Load)
		r.Get("/distribution", h.Distribution)
		r.Get("/metrics-series", h.MetricSeries)
		r.Get("/dayparts", h.Dayparts)
		r.Get("/services/{id}", h.ServiceDetail)
	})
}

// Summary handles GET /analytics/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	data, err := h.service.Summary(r.Context(), rng)
	respond(w, r, data, err)
}

// Daily handles GET /analytics/daily.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	data, err := h.service.Daily(r.Context(), rng)
	respond(w, r, data, err)
}

// Load handles GET /analytics/load.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	limit := DefaultRankingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.Error(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}
	data, err := h.service.Load(r.Context(), rng, limit)
	respond(w, r, data, err)
}

// Distribution handles GET /analytics/distribution.
func (h *Handler) Distribution(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	data, err := h.service.Distribution(r.Context(), rng)
	respond(w, r, data, err)
}

// MetricSeries handles GET /analytics/metrics-series.
func (h *Handler) MetricSeries(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	data, err := h.service.MetricSeries(r.Context(), rng, r.URL.Query().Get("serviceId"))
	respond(w, r, data, err)
}

// Dayparts handles GET /analytics/dayparts.
func (h *Handler) Dayparts(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	data, err := h.service.Dayparts(r.Context(), rng)
	respond(w, r, data, err)
}

// ServiceDetail handles GET /analytics/services/{id}.
func (h *Handler) ServiceDetail(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ServiceDetail(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, data, err)
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (Range, bool) {
	q := r.URL.Query()
	rng, err := h.service.ParseRange(q.Get("range"), q.Get("start"), q.Get("end"))
	if err != nil {
		if errors.Is(err, ErrInvalidRange) {
			httputil.ValidationError(w, "Invalid range", err)
			return Range{}, false
		}
		httputil.HandleError(r.Context(), w, err, nil)
		return Range{}, false
	}
	return rng, true
}

func respond[T any](w http.ResponseWriter, r *http.Request, data T, err error) {
	if err != nil {
		httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
			{Error: domain.ErrServiceNotFound, Status: http.StatusNotFound, Message: "Service not found"},
		})
		return
	}
	httputil.JSON(w, http.StatusOK, data)
}
