package middleware

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/bcnelson/netbox-restconf-sync/internal/auth"
)

type contextKey string

const PrincipalContextKey contextKey = "principal"

// Auth creates authentication middleware for the admin API. A request is let
// through when its bearer token equals apiKey, or when verifier accepts it as
// an ID token. Either may be unset.
func Auth(apiKey string, verifier auth.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract the token from the Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"code":401,"message":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, `{"code":401,"message":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == "" {
				http.Error(w, `{"code":401,"message":"empty token"}`, http.StatusUnauthorized)
				return
			}

			ctx := r.Context()

			if apiKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) == 1 {
				ctx = context.WithValue(ctx, PrincipalContextKey, &auth.Principal{Subject: "admin-key"})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if verifier != nil {
				principal, err := verifier.Verify(ctx, token)
				if err == nil {
					ctx = context.WithValue(ctx, PrincipalContextKey, principal)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				log.Printf("[Auth] rejected token: %v", err)
			}

			http.Error(w, `{"code":401,"message":"invalid token"}`, http.StatusUnauthorized)
		})
	}
}

// GetPrincipalFromContext retrieves the authenticated caller from the request context.
func GetPrincipalFromContext(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(PrincipalContextKey).(*auth.Principal)
	return p
}
