package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/airas/airas/internal/api/models"
)

// AdminToken guards the admin endpoints with a static bearer token.
// An empty token disables them: every request gets 404.
func AdminToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				problem := models.NewNotFound(GetRequestID(r.Context()), "admin endpoints are disabled")
				problem.Instance = r.URL.Path
				problem.Write(w)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			// Check for Bearer prefix (case-insensitive)
			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			presented := authHeader[len(bearerPrefix):]
			if presented == "" {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			if subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
				writeUnauthorized(w, r, "invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeUnauthorized writes a 401 Unauthorized response.
// The response package imports this one, so the problem is written directly.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	w.Header().Set("WWW-Authenticate", `Bearer realm="airas-admin"`)
	problem.Write(w)
}
