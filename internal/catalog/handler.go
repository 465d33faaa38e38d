package catalog

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the catalog module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: httputil.NewValidator(),
	}
}

// RegisterRoutes registers public catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/services", h.ListServices)
	r.Get("/services/{id}", h.GetService)
	r.Get("/status-history/{serviceId}", h.GetStatusHistory)
	r.Get("/export-services", h.ExportServices)
}

// RegisterAdminRoutes registers routes that mutate the catalog.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/services", h.CreateService)
	r.Patch("/services/{id}/status", h.UpdateServiceStatus)
	r.Post("/import-services", h.ImportServices)
}

// CreateServiceRequest represents the request body for creating a service.
type CreateServiceRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Category    string  `json:"category" validate:"required,max=255"`
	Region      string  `json:"region" validate:"required,max=255"`
	Type        *string `json:"type" validate:"omitempty,max=255"`
	Status      string  `json:"status" validate:"omitempty,oneof=operational degraded down maintenance loading"`
	Icon        *string `json:"icon" validate:"omitempty,max=255"`
	Address     *string `json:"address" validate:"omitempty,max=2048"`
	Port        *int    `json:"port" validate:"omitempty,min=1,max=65535"`
}

func (r *CreateServiceRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.Region = strings.TrimSpace(r.Region)
	r.Description = trimmed(r.Description)
	r.Type = trimmed(r.Type)
	r.Icon = trimmed(r.Icon)
	r.Address = trimmed(r.Address)
}

// ToInput converts the request to service input.
func (r *CreateServiceRequest) ToInput() CreateServiceInput {
	return CreateServiceInput{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Region:      r.Region,
		Type:        r.Type,
		Status:      domain.ServiceStatus(r.Status),
		Icon:        r.Icon,
		Address:     r.Address,
		Port:        r.Port,
	}
}

// UpdateStatusRequest represents the request body for PATCH /services/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=operational degraded down maintenance loading"`
}

// ListServices handles GET /services request.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ListServices(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, services)
}

// GetService handles GET /services/{id} request.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.service.GetService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, svc)
}

// CreateService handles POST /services request.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ValidationError(w, "Invalid service data", err)
		return
	}
	req.normalize()

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, "Invalid service data", err)
		return
	}

	svc, err := h.service.CreateService(r.Context(), req.ToInput(), domain.StatusSourceCreate)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, svc)
}

// UpdateServiceStatus handles PATCH /services/{id}/status request.
func (h *Handler) UpdateServiceStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ValidationError(w, "Invalid status value", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, "Invalid status value", err)
		return
	}

	svc, err := h.service.SetStatus(r.Context(), chi.URLParam(r, "id"), domain.ServiceStatus(req.Status), domain.StatusSourceManual)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, svc)
}

// GetStatusHistory handles GET /status-history/{serviceId} request.
func (h *Handler) GetStatusHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.StatusHistory(r.Context(), chi.URLParam(r, "serviceId"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// ImportServices handles POST /import-services request.
func (h *Handler) ImportServices(w http.ResponseWriter, r *http.Request) {
	var payload ImportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.ValidationError(w, "Invalid import data", err)
		return
	}

	result, err := h.service.Import(r.Context(), payload)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// ExportServices handles GET /export-services?format=json|csv request.
func (h *Handler) ExportServices(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = FormatJSON
	}

	export, err := h.service.Export(r.Context(), format)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Attachment(w, export.Filename, export.ContentType, export.Body)
}

var serviceErrors = []httputil.ErrorMapping{
	{Error: domain.ErrServiceNotFound, Status: http.StatusNotFound, Message: "Service not found"},
	{Error: domain.ErrInvalidStatus, Status: http.StatusBadRequest, Message: "Invalid status value"},
	{Error: domain.ErrUnsupportedFormat, Status: http.StatusBadRequest, Message: "Unsupported format"},
	{Error: domain.ErrEmptyImport, Status: http.StatusBadRequest, Message: "No data provided"},
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, serviceErrors)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
