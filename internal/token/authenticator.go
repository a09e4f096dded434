// internal/token/authenticator.go
//
// Bearer-token authenticator for tenant-side agents.
//
// Context
// -------
// `Authenticate` runs the checks in this order and stops at the first
// failure:
//
//  1. credential present
//  2. token exists (looked up by digest)
//  3. not expired
//  4. holds every required ability (status checks require none)
//
// Once all pass, usage is recorded unconditionally.  Later steps in the
// same request (for example, a cancelled tenant) do not undo it.  A
// failed usage write fails the authentication.
//
// Every credential failure returns ErrUnauthenticated with no hint about
// which check failed.  Store read failures other than not-found are
// returned as-is so the edge can answer 500.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/metrics"
)

// ErrUnauthenticated covers missing, unknown, expired, and under-scoped
// credentials alike.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator is safe for concurrent use.
type Authenticator struct {
	store Store
	clock clock.Clock
	log   *zap.SugaredLogger
}

// NewAuthenticator wires an Authenticator.  A nil clock uses wall time.
func NewAuthenticator(s Store, clk clock.Clock, log *zap.SugaredLogger) *Authenticator {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Authenticator{store: s, clock: clk, log: log}
}

// Authenticate validates secret and returns the token with usage already
// recorded.  Pass 0 for need when no ability is required.
func (a *Authenticator) Authenticate(ctx context.Context, secret string, need Ability) (*AccessToken, error) {
	if secret == "" {
		return nil, a.reject("missing")
	}

	tok, err := a.store.ByDigest(ctx, Digest(secret))
	if errors.Is(err, ErrNotFound) {
		return nil, a.reject("unknown")
	}
	if err != nil {
		metrics.TokenAuthTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	now := a.clock.Now().UTC()
	if tok.Expired(now) {
		return nil, a.reject("expired")
	}
	if need != 0 && !tok.Can(need) {
		return nil, a.reject("ability")
	}

	if err := a.store.RecordUsage(ctx, tok.ID, now); err != nil {
		a.log.Errorw("token usage write failed", "token_id", tok.ID, "err", err)
		metrics.TokenAuthTotal.WithLabelValues("usage_error").Inc()
		return nil, fmt.Errorf("%w: usage not recorded", ErrUnauthenticated)
	}
	tok.UseCount++
	tok.LastUsedAt = &now

	metrics.TokenAuthTotal.WithLabelValues("ok").Inc()
	return tok, nil
}

func (a *Authenticator) reject(outcome string) error {
	metrics.TokenAuthTotal.WithLabelValues(outcome).Inc()
	return ErrUnauthenticated
}

// BearerFrom extracts the credential from an Authorization header value.
// It returns "" when the scheme is not Bearer.
func BearerFrom(header string) string {
	scheme, cred, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(cred)
}
