package servermetrics

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for server metrics.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new server metrics handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: httputil.NewValidator(),
	}
}

// RegisterRoutes registers server metrics routes. Agents push samples without credentials.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/server-metrics", h.ListServerMetrics)
	r.Post("/server-metrics", h.CreateServerMetrics)
}

// CreateServerMetricsRequest represents the request body for POST /server-metrics.
// Pointers let a legitimate 0% reading pass the required check.
type CreateServerMetricsRequest struct {
	ServiceID string   `json:"serviceId" validate:"required,max=255"`
	CPUUsage  *float64 `json:"cpuUsage" validate:"required,min=0,max=100"`
	RAMUsage  *float64 `json:"ramUsage" validate:"required,min=0,max=100"`
	DiskUsage *float64 `json:"diskUsage" validate:"required,min=0,max=100"`
}

// ListServerMetrics handles GET /server-metrics?serviceId= request.
func (h *Handler) ListServerMetrics(w http.ResponseWriter, r *http.Request) {
	samples, err := h.service.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("serviceId")))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}
	httputil.JSON(w, http.StatusOK, samples)
}

// CreateServerMetrics handles POST /server-metrics request.
func (h *Handler) CreateServerMetrics(w http.ResponseWriter, r *http.Request) {
	var req CreateServerMetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ValidationError(w, "Invalid metrics data", err)
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, "Invalid metrics data", err)
		return
	}

	m, err := h.service.Record(r.Context(), Sample{
		ServiceID: req.ServiceID,
		CPUUsage:  *req.CPUUsage,
		RAMUsage:  *req.RAMUsage,
		DiskUsage: *req.DiskUsage,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}
	httputil.JSON(w, http.StatusCreated, m)
}
