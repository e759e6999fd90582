package http

import (
	"net/http"

	"github.com/sparkier-io/sparkier/internal/adapter/otel"
	"github.com/sparkier-io/sparkier/internal/adapter/ws"
	"github.com/sparkier-io/sparkier/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Auth     *service.AuthService
	Catalog  *service.CatalogService
	Intake   *service.IntakeService
	Requests *service.RequestService
	Hub      *ws.Hub

	// Metrics may be nil when telemetry is disabled.
	Metrics *otel.Metrics

	// Ready reports whether backing services (database, queue) are reachable.
	// nil means always ready.
	Ready func() error
}

// Health responds to liveness probes.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady responds to readiness probes, checking backing services.
func (h *Handlers) HealthReady(w http.ResponseWriter, _ *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
