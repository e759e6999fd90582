// Package middleware provides HTTP middleware for Sparkier.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sparkier-io/sparkier/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID tags every request with an ID for log correlation. An incoming
// X-Request-ID header is honored so IDs survive the edge proxy; otherwise a
// fresh UUID is minted. The ID is stored in the context and echoed on the
// response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
