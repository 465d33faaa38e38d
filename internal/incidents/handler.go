package incidents

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for incidents.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: httputil.NewValidator(),
	}
}

// RegisterRoutes registers public incident routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/incidents", h.ListIncidents)
	r.Get("/incidents/{id}", h.GetIncident)
}

// RegisterAdminRoutes registers routes that create incidents.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/incidents", h.CreateIncident)
}

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	ServiceID   string     `json:"serviceId" validate:"required,max=255"`
	Title       string     `json:"title" validate:"required,max=500"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	Status      string     `json:"status" validate:"omitempty,oneof=investigating identified monitoring resolved"`
	Severity    string     `json:"severity" validate:"required,oneof=minor major critical"`
	StartedAt   *time.Time `json:"startedAt"`
	ResolvedAt  *time.Time `json:"resolvedAt"`
}

// ToInput converts the request to service input.
func (r *CreateIncidentRequest) ToInput() CreateIncidentInput {
	return CreateIncidentInput{
		ServiceID:   r.ServiceID,
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.IncidentStatus(r.Status),
		Severity:    domain.IncidentSeverity(r.Severity),
		StartedAt:   r.StartedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

// ListIncidents handles GET /incidents request.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.service.ListIncidents(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, incidents)
}

// GetIncident handles GET /incidents/{id} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	inc, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, inc)
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ValidationError(w, "Invalid incident data", err)
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.Title = strings.TrimSpace(req.Title)

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, "Invalid incident data", err)
		return
	}

	inc, err := h.service.CreateIncident(r.Context(), req.ToInput())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, inc)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrResolvedBeforeStart):
		httputil.ValidationError(w, "Invalid incident data", err)
	default:
		httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
			{Error: domain.ErrIncidentNotFound, Status: http.StatusNotFound, Message: "Incident not found"},
			{Error: domain.ErrInvalidStatus, Status: http.StatusBadRequest, Message: "Invalid status value"},
			{Error: domain.ErrInvalidSeverity, Status: http.StatusBadRequest, Message: "Invalid severity value"},
		})
	}
}
