package auth

import (
	"context"
	"net/http"

	"github.com/campushub/gateway/internal/interfaces"
)

type contextKey struct{}

// identityKey carries the resolved Identity through the request context
var identityKey contextKey

// WithIdentity returns a context carrying the identity
func WithIdentity(ctx context.Context, identity *interfaces.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom extracts the resolved identity from a request context,
// returning nil for anonymous requests
func IdentityFrom(ctx context.Context) *interfaces.Identity {
	identity, _ := ctx.Value(identityKey).(*interfaces.Identity)
	return identity
}

// Middleware resolves the request's bearer token and stores the identity in
// the context. It never rejects a request: unauthenticated callers proceed
// as anonymous and the backend service decides whether that is acceptable.
func Middleware(resolver interfaces.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity := resolver.Resolve(r.Context(), token)
			if identity != nil {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity wraps a handler that must not run anonymously, such as
// the multipart upload route. This is the one place the gateway itself
// enforces authentication.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
