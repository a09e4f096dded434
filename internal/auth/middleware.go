// internal/auth/middleware.go
//
// RequireToken gates an agent route on a valid bearer token.
//
// Every credential failure answers 401 with the same body, so a caller
// cannot tell a missing token from an expired or under-scoped one.  Store
// outages answer 500.
package auth

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/respond"
	"github.com/yanizio/tenancy/internal/token"
)

// Authenticator is satisfied by *token.Authenticator.
type Authenticator interface {
	Authenticate(ctx context.Context, secret string, need token.Ability) (*token.AccessToken, error)
}

// UnauthenticatedMessage is the one body every 401 carries.
const UnauthenticatedMessage = "Unauthenticated."

// RequireToken authenticates with ability need (0 for none) and stores
// the token in the request context.
func RequireToken(a Authenticator, need token.Ability, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := a.Authenticate(r.Context(), Bearer(r), need)
			switch {
			case errors.Is(err, token.ErrUnauthenticated):
				w.Header().Set("WWW-Authenticate", `Bearer realm="agent"`)
				respond.JSONError(w, http.StatusUnauthorized, UnauthenticatedMessage)
				return
			case err != nil:
				log.Errorw("token lookup failed", "path", r.URL.Path, "err", err)
				respond.JSONError(w, http.StatusInternalServerError, "Server error.")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), tok)))
		})
	}
}
