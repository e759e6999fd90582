package middleware

import (
	"net/http"

	"github.com/sparkier-io/sparkier/internal/domain/user"
)

// RequireRole returns middleware that restricts access to users holding at
// least one of the given roles. A user with both the client and consultant
// roles passes either check.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == nil {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			for _, role := range roles {
				if u.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		})
	}
}
