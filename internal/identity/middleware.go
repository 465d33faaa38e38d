package identity

import (
	"context"
	"net/http"

	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
)

type contextKey string

// UsernameKey stores the authenticated admin name in the request context.
const UsernameKey contextKey = "admin_username"

// Realm is announced in WWW-Authenticate challenges.
const Realm = "statusboard"

// Middleware rejects requests without valid admin Basic credentials.
func Middleware(auth *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok || !auth.Verify(username, password) {
				ctxlog.FromContext(r.Context()).Warn("admin authentication failed",
					"has_credentials", ok,
				)
				w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)
				httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), UsernameKey, username)
			ctx, _ = ctxlog.With(ctx, "admin", username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Username extracts the authenticated admin name from context.
func Username(ctx context.Context) string {
	if name, ok := ctx.Value(UsernameKey).(string); ok {
		return name
	}
	return ""
}
