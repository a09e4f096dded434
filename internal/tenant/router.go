// internal/tenant/router.go
//
// Connection router.
//
// Context
// -------
// The router turns a tenant that passed the gate into a live *Routing:
//
//  1. Resolve the tenant's credential override (may be a Vault reference).
//  2. Build the engine-specific Descriptor.
//  3. Check out the tenant's pool from the Pool (keyed by tenant id).
//  4. Eagerly take one connection and ping it, so a broken or stale
//     target fails now instead of halfway through the handler.
//
// `Bind` additionally closes any Routing already present in the request
// context before installing the new one, so a serving context never holds
// two bindings.
//
// Notes
// -----
// • Errors wrap ErrConnect and are never retried.
// • Nothing here is process-global; the Router itself is immutable.
package tenant

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/metrics"
	"github.com/yanizio/tenancy/internal/tenant/meta"
	"github.com/yanizio/tenancy/internal/vault"
)

// ErrConnect marks a failure to establish the tenant connection.
var ErrConnect = errors.New("tenant store unreachable")

// SecretResolver turns a possibly-referenced secret into its value.
// *vault.Client satisfies it.
type SecretResolver interface {
	Resolve(ctx context.Context, s string) (string, error)
}

// Router is safe for concurrent use.
type Router struct {
	pool     *Pool
	defaults Defaults
	secrets  SecretResolver
	log      *zap.SugaredLogger
}

// NewRouter wires a Router.  secrets may be nil when no tenant carries a
// Vault reference.
func NewRouter(pool *Pool, d Defaults, secrets SecretResolver, log *zap.SugaredLogger) *Router {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Router{pool: pool, defaults: d, secrets: secrets, log: log}
}

// Activate opens a fresh binding for rec.  The caller owns the result and
// must Close it.
func (rt *Router) Activate(ctx context.Context, rec *meta.Record) (*Routing, error) {
	pw, err := rt.tenantPassword(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("%w: tenant %d credentials: %v", ErrConnect, rec.ID, err)
	}
	desc, err := BuildDescriptor(rec, rt.defaults, pw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	db, release, err := rt.pool.Acquire(ctx, rec.ID, desc)
	if err != nil {
		rt.log.Errorw("tenant pool open failed",
			"tenant_id", rec.ID, "target", desc.Redacted(), "err", err)
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	conn, err := db.Connx(ctx)
	if err == nil {
		err = conn.PingContext(ctx)
		if err != nil {
			_ = conn.Close()
		}
	}
	if err != nil {
		release()
		metrics.TenantPoolOpenErrorsTotal.Inc()
		rt.log.Errorw("tenant connection failed",
			"tenant_id", rec.ID, "target", desc.Redacted(), "err", err)
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	return &Routing{
		Tenant:     rec,
		Prefs:      PrefsFor(rec),
		Descriptor: desc,
		Conn:       conn,
		release:    release,
	}, nil
}

// Bind replaces whatever Routing ctx carries with a fresh one for rec.
func (rt *Router) Bind(ctx context.Context, rec *meta.Record) (context.Context, *Routing, error) {
	if prev := FromContext(ctx); prev != nil {
		_ = prev.Close()
	}
	r, err := rt.Activate(ctx, rec)
	if err != nil {
		return ctx, nil, err
	}
	return WithRouting(ctx, r), r, nil
}

func (rt *Router) tenantPassword(ctx context.Context, rec *meta.Record) (string, error) {
	if rec.DBPassword == nil || *rec.DBPassword == "" {
		return "", nil
	}
	if rt.secrets == nil {
		if vault.IsRef(*rec.DBPassword) {
			return "", errors.New("vault reference without a resolver")
		}
		return *rec.DBPassword, nil
	}
	return rt.secrets.Resolve(ctx, *rec.DBPassword)
}
