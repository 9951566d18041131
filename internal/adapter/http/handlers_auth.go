package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Strob0t/dexcache/internal/domain/user"
)

// CreateUser handles PUT /api/create-user.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.CreateRequest](w, r)
	if !ok {
		return
	}

	u, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeSuccess(w, http.StatusCreated, envelope{
		"message": fmt.Sprintf("User '%s' created successfully", u.Username),
		"user":    u,
	})
}

// Login handles POST /api/login. The token is returned in the body and set
// as an HttpOnly session cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		slog.Debug("login failed", "username", req.Username, "error", err)
		writeDomainError(w, err, "invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    resp.AccessToken,
		Path:     "/api",
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   resp.ExpiresIn,
	})
	writeSuccess(w, http.StatusOK, envelope{
		"message":      fmt.Sprintf("User '%s' logged in successfully", resp.User.Username),
		"access_token": resp.AccessToken,
		"expires_in":   resp.ExpiresIn,
	})
}

// Logout handles POST /api/logout by expiring the session cookie. Tokens are
// stateless, so a bearer token stays valid until it expires.
func (h *Handlers) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    "",
		Path:     "/api",
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	writeSuccess(w, http.StatusOK, envelope{"message": "User logged out successfully"})
}

// ResetUsers handles DELETE /api/reset-users.
func (h *Handlers) ResetUsers(w http.ResponseWriter, r *http.Request) {
	n, err := h.Auth.ResetUsers(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{
		"message": "Users table recreated successfully",
		"deleted": n,
	})
}
