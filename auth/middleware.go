package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RolesKey  contextKey = "roles"
)

// TokenCookie is the name of the HttpOnly session cookie set at login.
const TokenCookie = "token"

// Middleware handles JWT validation for incoming HTTP calls.
// Public routes (register/login/health) are mounted outside of it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Retrieve the session token: HttpOnly cookie first, Bearer header as fallback
		tokenStr, ok := extractToken(r)
		if !ok {
			unauthorized(w, "authorization token is missing")
			return
		}

		// 2. Validate the JWT and extract claims
		claims, err := ValidateToken(tokenStr)
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}

		// 3. Inject user identity into context for downstream handlers
		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, RolesKey, claims.Roles)

		// Continue the execution chain with the enriched context
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken supports both browser sessions (cookie) and API clients (header).
// The WebSocket upgrade rides on the cookie, since browsers cannot set headers there.
func extractToken(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		return token, token != ""
	}
	return "", false
}

// UserIDFromContext returns the authenticated user injected by Middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

// RolesFromContext returns the roles carried by the validated token, if any.
func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(RolesKey).([]string)
	return roles
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
