package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/sparkier-io/sparkier/internal/domain/user"
	"github.com/sparkier-io/sparkier/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. idempotencyKV
// may be nil, in which case intake requests are not deduplicated by
// X-Idempotency-Key.
func MountRoutes(r chi.Router, h *Handlers, idempotencyKV jetstream.KeyValue) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.HealthReady)

	r.Get("/ws", h.Hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		// The deadline stays off /ws; those connections are long-lived.
		r.Use(chimw.Timeout(60 * time.Second))

		// Auth (public routes handled by middleware exemption)
		r.Post("/auth/register", h.RegisterUser)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)
		r.Get("/auth/email-exists", h.EmailExists)

		// Auth (authenticated)
		r.Post("/auth/logout", h.Logout)
		r.Get("/auth/me", h.GetCurrentUser)
		r.Post("/auth/change-password", h.ChangePassword)

		// Catalog. Reads are public; writes need the consultant role.
		r.Get("/sparks", h.ListSparks)
		r.Get("/sparks/slug/{slug}", h.GetSparkBySlug)
		r.Get("/sparks/{id}", h.GetSpark)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(user.RoleConsultant, user.RoleAdmin))
			r.Get("/sparks/mine", h.ListMySparks)
			r.Post("/sparks", h.CreateSpark)
			r.Put("/sparks/{id}", h.UpdateSpark)
			r.Delete("/sparks/{id}", h.DeleteSpark)
		})

		// Intake. Anonymous callers are admitted by the auth middleware; an
		// unauthenticated intake resolves to a sign-up-required outcome.
		r.Group(func(r chi.Router) {
			if idempotencyKV != nil {
				r.Use(middleware.Idempotency(idempotencyKV))
			}
			r.Post("/intake/sparks/{slug}", h.ResolveIntake)
			r.Post("/intake/resume", h.ResumeIntake)
		})

		// Requests
		r.Get("/requests", h.ListRequests)
		r.Get("/requests/{id}", h.GetRequest)
		r.With(middleware.RequireRole(user.RoleConsultant, user.RoleAdmin)).
			Put("/requests/{id}/status", h.UpdateRequestStatus)

		// Users (admin only)
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(user.RoleAdmin))
			r.Get("/", h.ListUsersHandler)
			r.Post("/", h.CreateUserHandler)
			r.Put("/{id}", h.UpdateUserHandler)
			r.Delete("/{id}", h.DeleteUserHandler)
		})
	})
}
