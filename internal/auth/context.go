// internal/auth/context.go
//
// Agent credential helpers.
//
// Usage
// -----
//
//	// After the authenticator accepts a bearer token:
//	ctx = auth.WithToken(ctx, tok)
//
//	// Downstream code retrieves it.
//	tok, ok := auth.TokenFrom(ctx)
//
// Notes
// -----
// • Agents never carry a session or cookie.  The bearer header is the
//   only credential read here.
package auth

import (
	"context"
	"net/http"

	"github.com/yanizio/tenancy/internal/token"
)

type tokenKey struct{}

// WithToken returns a context carrying the authenticated token.
func WithToken(ctx context.Context, tok *token.AccessToken) context.Context {
	return context.WithValue(ctx, tokenKey{}, tok)
}

// TokenFrom extracts the token stored by WithToken.
func TokenFrom(ctx context.Context) (*token.AccessToken, bool) {
	tok, ok := ctx.Value(tokenKey{}).(*token.AccessToken)
	return tok, ok && tok != nil
}

// Bearer returns the request's bearer credential, or "".
func Bearer(r *http.Request) string {
	return token.BearerFrom(r.Header.Get("Authorization"))
}
