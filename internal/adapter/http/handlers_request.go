package http

import (
	"net/http"

	"github.com/sparkier-io/sparkier/internal/adapter/otel"
	"github.com/sparkier-io/sparkier/internal/domain/request"
	"github.com/sparkier-io/sparkier/internal/domain/user"
	"github.com/sparkier-io/sparkier/internal/middleware"
)

// ListRequests returns the caller's requests: the ones they opened as a
// client, plus the ones targeting their sparks if they consult.
func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	out := struct {
		AsClient     []request.ClientRequest `json:"as_client"`
		AsConsultant []request.ClientRequest `json:"as_consultant,omitempty"`
	}{}

	var err error
	out.AsClient, err = h.Requests.ListForClient(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, err, "requests not found")
		return
	}

	if u.HasRole(user.RoleConsultant) {
		out.AsConsultant, err = h.Requests.ListForConsultant(r.Context(), u.ID)
		if err != nil {
			writeDomainError(w, err, "requests not found")
			return
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// GetRequest returns one request, if the caller may see it.
func (h *Handlers) GetRequest(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())

	req, err := h.Requests.Get(r.Context(), urlParam(r, "id"), u)
	if err != nil {
		writeDomainError(w, err, "request not found")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// UpdateRequestStatus applies a consultant or admin status transition.
func (h *Handlers) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())

	body, ok := readJSON[request.UpdateStatusRequest](w, r)
	if !ok {
		return
	}

	id := urlParam(r, "id")
	ctx, span := otel.StartRequestSpan(r.Context(), id, string(body.Status))
	defer span.End()

	updated, err := h.Requests.UpdateStatus(ctx, id, body.Status, u)
	if err != nil {
		writeDomainError(w, err, "request not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
