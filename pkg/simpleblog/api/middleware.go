package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
	"github.com/tendant/simple-blog/pkg/simpleblog"
)

// SecretHeader carries the shared secret on mutating requests.
const SecretHeader = "X-Admin-Secret"

// credential extracts the caller's shared secret from SecretHeader or an
// Authorization bearer token.
func credential(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(SecretHeader)); v != "" {
		return v
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// RequireSecret rejects requests whose credential does not match secret.
func RequireSecret(secret simpleblog.SharedSecret) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := secret.Verify(credential(r)); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PublicCORS allows browsers on allowedOrigins to call the API. An empty
// list allows every origin.
func PublicCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", SecretHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
}
