package middleware

import (
	"net/http"

	"github.com/latticeworks/substrate/internal/httputil"
	"github.com/latticeworks/substrate/internal/identity"
)

// RequireRole gates a route on the authenticated identity's role. On
// mismatch the request halts with 403 before any dependencies are built.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identity.FromContext(r.Context())
			if !ok || id.Role != role {
				httputil.WriteMessage(w, http.StatusForbidden, httputil.CodeForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
