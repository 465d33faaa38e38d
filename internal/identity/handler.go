package identity

import (
	"net/http"

	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Handler serves the credential check endpoint.
type Handler struct{}

// NewHandler creates a new identity handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterAdminRoutes registers routes mounted behind Middleware.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/auth/verify", h.Verify)
}

// VerifyResponse is returned for valid credentials.
type VerifyResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username"`
}

// Verify handles GET /auth/verify. Reaching it means Middleware accepted the credentials.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, VerifyResponse{
		Authenticated: true,
		Username:      Username(r.Context()),
	})
}
