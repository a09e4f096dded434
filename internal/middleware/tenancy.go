// internal/middleware/tenancy.go
//
// Tenancy middleware: host → tenant → gate → routing context.
//
// Context
// -------
// For every browser-style request:
//
//  1. Resolve the Host header against the base domains.  No tenant means
//     a platform request, handed to the Platform handler untouched.
//  2. Look the slug up in the Directory.  Every request reads fresh, so a
//     suspension applies to the very next request.
//  3. Run the lifecycle gate.  Rejections answer 404, 403 (with the
//     suspension reason), or 503 with Retry-After.
//  4. Bind a fresh tenant connection into the request context and close
//     it once the tenant handler returns.
//
// Notes
// -----
// • A failed connection answers 503.  It is never retried here.
// • Directory errors other than not-found answer 500 and are logged.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/metrics"
	"github.com/yanizio/tenancy/internal/respond"
	"github.com/yanizio/tenancy/internal/tenant"
	"github.com/yanizio/tenancy/internal/tenant/meta"
)

// Binder is satisfied by *tenant.Router.
type Binder interface {
	Bind(ctx context.Context, rec *meta.Record) (context.Context, *tenant.Routing, error)
}

// Tenancy holds the collaborators of the gate chain.
type Tenancy struct {
	// Domains returns the ordered base domains.  It is a func so a config
	// reload takes effect without rebuilding the chain.
	Domains   func() []string
	Directory tenant.Directory
	Router    Binder
	Platform  http.Handler
	Log       *zap.SugaredLogger
}

// Wrap returns a handler that serves tenant hosts with next.
func (t *Tenancy) Wrap(next http.Handler) http.Handler {
	log := t.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	platform := t.Platform
	if platform == nil {
		platform = http.NotFoundHandler()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug, ok := tenant.Resolve(r.Host, t.Domains())
		if !ok {
			metrics.TenantResolveTotal.WithLabelValues("platform").Inc()
			platform.ServeHTTP(w, r)
			return
		}

		rec, err := t.Directory.FindBySlug(r.Context(), slug)
		switch {
		case errors.Is(err, meta.ErrNotFound):
			rec = nil
		case err != nil:
			metrics.TenantResolveTotal.WithLabelValues("error").Inc()
			log.Errorw("tenant lookup failed", "slug", slug, "err", err)
			respond.Error(w, r, http.StatusInternalServerError, "")
			return
		}
		metrics.TenantResolveTotal.WithLabelValues("tenant").Inc()

		if rej := tenant.Check(rec); rej != nil {
			metrics.TenantGateRejectTotal.WithLabelValues(rej.Kind.String()).Inc()
			log.Infow("tenant gate rejected", "slug", slug, "kind", rej.Kind.String())
			respond.Error(w, r, StatusFor(rej), rej.Reason)
			return
		}

		ctx, rt, err := t.Router.Bind(r.Context(), rec)
		if err != nil {
			log.Errorw("tenant routing failed", "tenant_id", rec.ID, "err", err)
			respond.Error(w, r, http.StatusServiceUnavailable, "")
			return
		}
		defer func() {
			if err := rt.Close(); err != nil {
				log.Warnw("tenant connection close", "tenant_id", rec.ID, "err", err)
			}
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// StatusFor maps a gate rejection to its HTTP status.
func StatusFor(rej *tenant.Rejection) int {
	switch rej.Kind {
	case tenant.KindForbidden:
		return http.StatusForbidden
	case tenant.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusNotFound
	}
}
