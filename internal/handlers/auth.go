package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/crucial707/asset-custody/internal/auth"
	"github.com/crucial707/asset-custody/internal/middleware"
	"github.com/crucial707/asset-custody/internal/repo"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	UserRepo     *repo.UserRepo
	Secret       []byte
	TTL          time.Duration
	SecureCookie bool
	Now          func() time.Time
}

func (h *AuthHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// ==========================
// Login (email + password; inactive users are refused)
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Email = strings.TrimSpace(input.Email)
	if !validateInput(w, input) {
		return
	}

	user, err := h.UserRepo.GetByEmail(r.Context(), input.Email)
	if errors.Is(err, repo.ErrNotFound) {
		JSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		slog.Error("login lookup failed", "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		JSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !user.Active {
		JSONError(w, "user is inactive", http.StatusForbidden)
		return
	}

	token, expires, err := auth.Issue(h.Secret, user, h.TTL, h.now())
	if err != nil {
		slog.Error("issue token failed", "user_id", user.ID, "err", err)
		JSONError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expires,
		"user":       user,
	})
}

// ==========================
// Me
// ==========================
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		JSONError(w, "missing authorization", http.StatusUnauthorized)
		return
	}
	user, err := h.UserRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeRepoError(w, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ==========================
// Logout (clears the session cookie)
// ==========================
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
