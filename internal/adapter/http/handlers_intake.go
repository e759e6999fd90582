package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sparkier-io/sparkier/internal/adapter/otel"
	"github.com/sparkier-io/sparkier/internal/domain/intake"
	"github.com/sparkier-io/sparkier/internal/middleware"
)

// sessionCookieName identifies an anonymous visitor across the sign-up
// funnel, so a remembered booking intent can be resumed after sign-in.
const sessionCookieName = "sparkier_session"

// sessionID returns the visitor's session ID from the X-Session-Id header or
// the session cookie, minting and setting a new one when absent.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get("X-Session-Id"); id != "" {
		return id
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

type intakeRequest struct {
	Message string `json:"message,omitempty"`
}

type intakeResponse struct {
	Outcome   string `json:"outcome"`
	SparkSlug string `json:"spark_slug,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ResolveIntake handles a "book this spark" click, anonymous or
// authenticated, and returns exactly one outcome.
func (h *Handlers) ResolveIntake(w http.ResponseWriter, r *http.Request) {
	slug := urlParam(r, "slug")
	u := middleware.UserFromContext(r.Context())
	sid := sessionID(w, r)

	var body intakeRequest
	if r.ContentLength > 0 {
		var ok bool
		if body, ok = readJSON[intakeRequest](w, r); !ok {
			return
		}
	}

	clientID := ""
	if u != nil {
		clientID = u.ID
	}
	ctx, span := otel.StartIntakeSpan(r.Context(), slug, clientID)
	defer span.End()

	start := time.Now()
	out, err := h.Intake.Resolve(ctx, slug, sid, u, body.Message)
	h.recordIntake(r, out, time.Since(start))

	if err != nil {
		if errors.Is(err, intake.ErrSparkNotFound) {
			writeError(w, http.StatusNotFound, "spark not found")
			return
		}
		writeDomainError(w, err, "spark not found")
		return
	}

	h.writeOutcome(w, out, sid)
}

// ResumeIntake completes a booking remembered before sign-up. Called by the
// frontend right after authentication succeeds.
func (h *Handlers) ResumeIntake(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	sid := sessionID(w, r)

	start := time.Now()
	out, err := h.Intake.ResumeAfterSignIn(r.Context(), sid, u)
	h.recordIntake(r, out, time.Since(start))

	if err != nil {
		switch {
		case errors.Is(err, intake.ErrNoSparkRemembered):
			writeError(w, http.StatusNotFound, "no spark remembered for this session")
		case errors.Is(err, intake.ErrSparkNotFound):
			writeError(w, http.StatusNotFound, "spark not found")
		default:
			writeDomainError(w, err, "spark not found")
		}
		return
	}

	h.writeOutcome(w, out, sid)
}

// writeOutcome maps the closed outcome set to a discriminated JSON response.
func (h *Handlers) writeOutcome(w http.ResponseWriter, out intake.Outcome, sid string) {
	switch o := out.(type) {
	case intake.RequiresSignUp:
		writeJSON(w, http.StatusOK, intakeResponse{
			Outcome:   "requires_signup",
			SparkSlug: o.SparkSlug,
			SessionID: sid,
		})
	case intake.ResumeExisting:
		writeJSON(w, http.StatusOK, intakeResponse{
			Outcome:   "resume_existing",
			RequestID: o.RequestID,
		})
	case intake.Created:
		writeJSON(w, http.StatusCreated, intakeResponse{
			Outcome:   "created",
			RequestID: o.RequestID,
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// recordIntake updates intake metrics for one resolution.
func (h *Handlers) recordIntake(r *http.Request, out intake.Outcome, d time.Duration) {
	if h.Metrics == nil {
		return
	}
	ctx := r.Context()

	var outcome string
	switch out.(type) {
	case intake.RequiresSignUp:
		outcome = "requires_signup"
		h.Metrics.SignUpDeferred.Add(ctx, 1)
	case intake.ResumeExisting:
		outcome = "resume_existing"
		h.Metrics.RequestsResumed.Add(ctx, 1)
	case intake.Created:
		outcome = "created"
		h.Metrics.RequestsCreated.Add(ctx, 1)
	default:
		outcome = "error"
	}

	h.Metrics.IntakeResolved.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
	h.Metrics.IntakeDuration.Record(ctx, d.Seconds())
}
