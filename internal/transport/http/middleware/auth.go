package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/go-credential-api/internal/infrastructure/jwt"
)

type contextKey string

const claimsKey contextKey = "claims"

// Auth returns middleware that validates the Bearer session token and
// injects its claims into the request context.
func Auth(codec *jwtinfra.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := codec.VerifySessionToken(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts session-token claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.SessionClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.SessionClaims)
	return c, ok
}
