package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/viewlulu/pouch-backend/internal/auth"
)

type contextKey string

const identityContextKey contextKey = "identity"

// TokenVerifier resolves a bearer token to a caller identity.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Identity, error)
}

// respondUnauthorized writes the structured JSON body every rejected caller
// receives, matching the handlers' error shape.
func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"message": "unauthorized"}`))
}

// RequireAuth is middleware that requires a valid bearer token in the
// Authorization header.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondUnauthorized(w)
				return
			}

			identity, err := verifier.VerifyToken(token)
			if err != nil {
				respondUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityFromContext retrieves the authenticated identity from the
// request context.
func GetIdentityFromContext(ctx context.Context) *auth.Identity {
	identity, ok := ctx.Value(identityContextKey).(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}

// SetIdentityInContext adds an identity to the context.
// This is primarily for testing - use RequireAuth middleware in production.
func SetIdentityInContext(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
