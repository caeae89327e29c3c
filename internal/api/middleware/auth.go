package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// KeyVerifier answers whether a candidate API key is valid.
type KeyVerifier interface {
	Verify(candidate string) bool
}

// APIKey returns middleware that requires a valid API key, supplied either
// in the X-API-Key header or the api_key query parameter.
func APIKey(verifier KeyVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}

			if key == "" {
				writeJSONError(w, http.StatusUnauthorized, "API key required")
				return
			}
			if !verifier.Verify(key) {
				logger.Warn("invalid api key attempt", slog.String("remote", ClientIP(r)))
				writeJSONError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
