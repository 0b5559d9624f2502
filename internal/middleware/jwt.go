package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/crucial707/asset-custody/internal/auth"
)

type key string

const (
	UserIDKey key = "user_id"
	claimsKey key = "claims"
)

// JWTMiddleware accepts a bearer token or the session cookie and stores the
// caller's claims in the request context.
func JWTMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			if token == "" {
				if c, err := r.Cookie(auth.CookieName); err == nil {
					token = c.Value
				}
			}
			if token == "" {
				writeError(w, "missing authorization", http.StatusUnauthorized)
				return
			}

			claims, err := auth.Parse(secret, token)
			if err != nil {
				writeError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns ctx carrying claims. Handlers tests use it to fake a login.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, c.UserID)
	return context.WithValue(ctx, claimsKey, c)
}

// GetUserID returns the authenticated user id, if any.
func GetUserID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(UserIDKey).(int)
	return id, ok
}

// GetClaims returns the authenticated caller's claims, if any.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// RequireRole rejects callers whose role is not one of roles with 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := GetClaims(r.Context())
			if !ok {
				writeError(w, "missing authorization", http.StatusUnauthorized)
				return
			}
			if !allowed[c.Role] {
				writeError(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
