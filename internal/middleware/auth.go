package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/checkme-health/checkme-backend/internal/services"
)

type contextKey string

const identityKey contextKey = "identity"

// CallerIdentity returns the authenticated caller set by RequireAuth.
func CallerIdentity(r *http.Request) (services.Identity, bool) {
	ident, ok := r.Context().Value(identityKey).(services.Identity)
	return ident, ok
}

func extractBearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// RequireAuth resolves the session token to a caller identity and stores it
// on the request context. 401 when missing or invalid.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, "Missing session token")
			return
		}

		ident, ok, err := services.ValidateSession(r.Context(), token)
		if err != nil || !ok {
			writeAuthError(w, http.StatusUnauthorized, "Invalid session token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a subtree to one role. Must be mounted after RequireAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := CallerIdentity(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "Missing session token")
				return
			}
			if ident.Role != role {
				writeAuthError(w, http.StatusForbidden, "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
