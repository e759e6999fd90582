package http

import (
	"net/http"

	"github.com/sparkier-io/sparkier/internal/domain/user"
	"github.com/sparkier-io/sparkier/internal/middleware"
)

// refreshCookieName holds the refresh token. HttpOnly and path-scoped to the
// auth endpoints so scripts and other routes never see it.
const refreshCookieName = "sparkier_refresh"

func setRefreshCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/v1/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// RegisterUser creates a client account. Self-registration always yields the
// client role; consultants and admins are provisioned by an admin.
func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.CreateRequest](w, r)
	if !ok {
		return
	}
	req.Roles = []user.Role{user.RoleClient}

	u, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Login authenticates and returns an access token. The refresh token travels
// in an HttpOnly cookie only.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, refreshToken, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	setRefreshCookie(w, refreshToken, 30*24*3600)
	writeJSON(w, http.StatusOK, resp)
}

// Refresh rotates the refresh token and issues a new access token.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	resp, newToken, err := h.Auth.RefreshTokens(r.Context(), cookie.Value)
	if err != nil {
		setRefreshCookie(w, "", -1)
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	setRefreshCookie(w, newToken, 30*24*3600)
	writeJSON(w, http.StatusOK, resp)
}

// Logout revokes all refresh tokens for the caller.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.Auth.Logout(r.Context(), u.ID); err != nil {
		writeDomainError(w, err, "user not found")
		return
	}

	setRefreshCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// GetCurrentUser returns the authenticated user.
func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ChangePassword updates the caller's password after verifying the current one.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req, ok := readJSON[user.ChangePasswordRequest](w, r)
	if !ok {
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), u.ID, req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// EmailExists tells the sign-up funnel whether to show "sign in" or
// "create account" for an email. It is a public route; it leaks no more
// than the registration form itself.
func (h *Handlers) EmailExists(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	exists, err := h.Auth.EmailExists(r.Context(), email)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// --- Admin user management ---

// ListUsersHandler returns all users.
func (h *Handlers) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.Auth.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err, "users not found")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUserHandler provisions a user with explicit roles (consultants, admins).
func (h *Handlers) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.CreateRequest](w, r)
	if !ok {
		return
	}

	u, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// UpdateUserHandler updates a user's name, roles, or enabled flag.
func (h *Handlers) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.UpdateRequest](w, r)
	if !ok {
		return
	}

	u, err := h.Auth.UpdateUser(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUserHandler removes a user.
func (h *Handlers) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.DeleteUser(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
