package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/custodia/internal/config"
)

// APIKeyActor is the audit actor recorded for API key requests.
const APIKeyActor = "api-key"

// SessionLookup resolves the logged-in username for a request.
type SessionLookup func(r *http.Request) (username string, ok bool)

// RequireAuth admits requests carrying a valid login session or, when
// RequireAPIKey is set, a valid X-API-Key header. The authenticated name is
// stored as the audit actor. Unauthenticated API calls get 401; browsers are
// redirected to /login.
func RequireAuth(cfg *config.SecurityConfig, lookup SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" && cfg.RequireAPIKey {
				if !isValidAPIKey(apiKey, cfg.APIKeys) {
					slog.Warn("auth: invalid API key",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
					)
					writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
					return
				}
				ctx := withActor(r.Context(), APIKeyActor)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if username, ok := lookup(r); ok {
				ctx := withActor(r.Context(), username)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if wantsJSON(r) {
				writeAuthError(w, http.StatusUnauthorized, "login required", "AUTH_REQUIRED")
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// isValidAPIKey checks if the provided key matches any configured key.
// Uses constant-time comparison and checks ALL keys to prevent timing attacks.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
