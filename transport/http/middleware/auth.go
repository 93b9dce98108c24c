package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const SessionKey contextKey = "session"

// Auth pulls the session token out of the Authorization header. The
// token is opaque; whether it names a live session is the engine's call,
// the middleware only rejects requests that carry no token at all.
func Auth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"Missing or invalid token"}}`, http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" {
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"Missing or invalid token"}}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession extracts the session token from request context
func GetSession(ctx context.Context) string {
	s, _ := ctx.Value(SessionKey).(string)
	return s
}
