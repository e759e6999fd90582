package http

import (
	"net/http"

	"github.com/sparkier-io/sparkier/internal/domain/spark"
	"github.com/sparkier-io/sparkier/internal/domain/user"
	"github.com/sparkier-io/sparkier/internal/middleware"
)

// ListSparks returns the public catalog.
func (h *Handlers) ListSparks(w http.ResponseWriter, r *http.Request) {
	sparks, err := h.Catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "sparks not found")
		return
	}
	writeJSON(w, http.StatusOK, sparks)
}

// ListMySparks returns the sparks published by the calling consultant.
func (h *Handlers) ListMySparks(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	sparks, err := h.Catalog.ListByConsultant(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, err, "sparks not found")
		return
	}
	writeJSON(w, http.StatusOK, sparks)
}

// GetSpark returns a spark by ID.
func (h *Handlers) GetSpark(w http.ResponseWriter, r *http.Request) {
	sp, err := h.Catalog.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "spark not found")
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

// sparkView is the marketing page shape: the spark plus derived pricing
// fields, so the frontend never parses the decimal price string itself.
type sparkView struct {
	spark.Spark
	PriceValue float64 `json:"price_value"`
	Free       bool    `json:"free"`
}

func newSparkView(sp *spark.Spark) sparkView {
	v := sp.PriceValue()
	return sparkView{Spark: *sp, PriceValue: v, Free: v == 0}
}

// GetSparkBySlug returns a spark by its URL slug. This is the marketing page
// lookup and is served from cache when warm.
func (h *Handlers) GetSparkBySlug(w http.ResponseWriter, r *http.Request) {
	sp, err := h.Catalog.GetBySlug(r.Context(), urlParam(r, "slug"))
	if err != nil {
		writeDomainError(w, err, "spark not found")
		return
	}
	writeJSON(w, http.StatusOK, newSparkView(sp))
}

// CreateSpark publishes a new spark owned by the calling consultant. Admins
// may publish on behalf of another consultant by setting consultant_id.
func (h *Handlers) CreateSpark(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req, ok := readJSON[spark.CreateRequest](w, r)
	if !ok {
		return
	}
	if !u.HasRole(user.RoleAdmin) || req.ConsultantID == "" {
		req.ConsultantID = u.ID
	}

	sp, err := h.Catalog.Create(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "spark not found")
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

// UpdateSpark applies a partial update to a spark the caller owns.
func (h *Handlers) UpdateSpark(w http.ResponseWriter, r *http.Request) {
	_, sp, ok := h.ownedSpark(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[spark.UpdateRequest](w, r)
	if !ok {
		return
	}

	updated, err := h.Catalog.Update(r.Context(), sp.ID, &req)
	if err != nil {
		writeDomainError(w, err, "spark not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteSpark removes a spark the caller owns from the catalog.
func (h *Handlers) DeleteSpark(w http.ResponseWriter, r *http.Request) {
	_, sp, ok := h.ownedSpark(w, r)
	if !ok {
		return
	}

	if err := h.Catalog.Delete(r.Context(), sp.ID); err != nil {
		writeDomainError(w, err, "spark not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ownedSpark loads the spark from the id URL param and checks the caller owns
// it (or is an admin). On failure it writes the error response itself.
func (h *Handlers) ownedSpark(w http.ResponseWriter, r *http.Request) (*user.User, *spark.Spark, bool) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, nil, false
	}

	sp, err := h.Catalog.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "spark not found")
		return nil, nil, false
	}

	if !u.HasRole(user.RoleAdmin) && sp.ConsultantID != u.ID {
		writeError(w, http.StatusForbidden, "not allowed")
		return nil, nil, false
	}
	return u, sp, true
}
