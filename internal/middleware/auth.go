package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/thiagolins/pixbank-be/internal/auth"
	"github.com/thiagolins/pixbank-be/internal/http/respond"
)

type contextKey string

const identityKey contextKey = "identity"

// Authenticate resolves the request's identity through the configured
// strategy and stores it in the request context. Requests the strategy
// rejects never reach the next handler.
func Authenticate(strategy auth.Strategy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := strategy.Authenticate(r)
		if err != nil {
			if errors.Is(err, auth.ErrNoToken) {
				respond.Error(w, http.StatusUnauthorized, "authorization token not provided")
				return
			}
			respond.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFrom extracts the authenticated identity placed by Authenticate.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}
