package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/statusboard/internal/catalog"
	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// ServiceCatalog is the part of the catalog the probe endpoints need.
type ServiceCatalog interface {
	GetService(ctx context.Context, id string) (*domain.Service, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
	ApplyStatus(ctx context.Context, id string, status domain.ServiceStatus, source domain.StatusSource) (*domain.Service, bool, error)
}

// Handler exposes availability checks over HTTP.
type Handler struct {
	prober    *Prober
	catalog   ServiceCatalog
	validator *validator.Validate
}

// NewHandler creates a new probe handler.
func NewHandler(prober *Prober, catalog ServiceCatalog) *Handler {
	return &Handler{
		prober:    prober,
		catalog:   catalog,
		validator: httputil.NewValidator(),
	}
}

// RegisterRoutes registers probe routes. Checks are public, but ?apply=true writes
// the service status, so those requests pass through applyGuard first. A nil guard
// leaves apply open.
func (h *Handler) RegisterRoutes(r chi.Router, applyGuard func(http.Handler) http.Handler) {
	r.Post("/check-availability", h.CheckAll)
	r.With(guardApply(applyGuard)).Post("/check-availability/{id}", h.CheckService)
	r.Post("/check-url", h.CheckURL)
}

func guardApply(guard func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if guard == nil {
			return next
		}
		guarded := guard(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if wantsApply(r) {
				guarded.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func wantsApply(r *http.Request) bool {
	apply, _ := strconv.ParseBool(r.URL.Query().Get("apply"))
	return apply
}

// CheckResponse is returned by POST /check-availability/{id}.
type CheckResponse struct {
	ServiceID string `json:"serviceId"`
	Diagnostics
	// Status and Changed are set only when the result was applied to the service.
	Status  domain.ServiceStatus `json:"status,omitempty"`
	Changed *bool                `json:"changed,omitempty"`
}

// CheckService handles POST /check-availability/{id}. With ?apply=true the outcome
// also becomes the service status.
func (h *Handler) CheckService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	svc, err := h.catalog.GetService(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrServiceNotFound) {
		httputil.HandleError(ctx, w, err, nil)
		return
	}
	if err != nil || !svc.HasAddress() {
		httputil.Error(w, http.StatusNotFound, "Service not found or no address")
		return
	}

	method := r.URL.Query().Get("method")
	if method != "" && method != http.MethodHead && method != http.MethodGet {
		httputil.Error(w, http.StatusBadRequest, "method must be HEAD or GET")
		return
	}

	diag := h.prober.Check(ctx, Request{URL: TargetURL(*svc.Address, svc.Port), Method: method})
	resp := CheckResponse{ServiceID: svc.ID, Diagnostics: diag}

	if wantsApply(r) {
		updated, changed, err := h.catalog.ApplyStatus(ctx, svc.ID, catalog.DeriveFromProbe(diag.Available), domain.StatusSourceProbe)
		if err != nil {
			httputil.HandleError(ctx, w, err, []httputil.ErrorMapping{
				{Error: domain.ErrServiceNotFound, Status: http.StatusNotFound, Message: "Service not found or no address"},
			})
			return
		}
		resp.Status = updated.Status
		resp.Changed = &changed
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// CheckAll handles POST /check-availability: probes every service with an address.
func (h *Handler) CheckAll(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.ListServices(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	results := h.prober.ProbeAll(r.Context(), services)
	available := 0
	for _, res := range results {
		if res.Available {
			available++
		}
	}
	ctxlog.FromContext(r.Context()).Info("bulk availability check",
		"checked", len(results),
		"available", available,
	)
	httputil.JSON(w, http.StatusOK, results)
}

// CheckURLRequest represents the request body for POST /check-url.
type CheckURLRequest struct {
	URL       string `json:"url" validate:"required,url"`
	Method    string `json:"method" validate:"omitempty,oneof=HEAD GET"`
	TimeoutMS int    `json:"timeoutMs" validate:"omitempty,min=100,max=30000"`
}

// CheckURL handles POST /check-url: an ad-hoc diagnostic check of any URL.
func (h *Handler) CheckURL(w http.ResponseWriter, r *http.Request) {
	var req CheckURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ValidationError(w, "Invalid check request", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, "Invalid check request", err)
		return
	}

	diag := h.prober.Check(r.Context(), Request{
		URL:     req.URL,
		Method:  req.Method,
		Timeout: time.Duration(req.TimeoutMS) * time.Millisecond,
	})
	httputil.JSON(w, http.StatusOK, diag)
}
