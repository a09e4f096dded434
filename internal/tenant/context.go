// context.go defines the request-scoped routing context.
//
// A *Routing binds one resolved tenant to one checked-out connection on
// that tenant's isolated store.  It lives only in the request's
// context.Context, so two in-flight requests can never observe each
// other's binding.  Prefs carries display preferences as an immutable
// value for the rendering layer.
package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/tenancy/internal/tenant/meta"
)

// Prefs is the per-request presentation context.
type Prefs struct {
	Name       string
	Locale     string
	Location   *time.Location
	DateFormat string
}

// PrefsFor builds Prefs from a tenant record.  Unknown time zones fall back
// to UTC and an empty date format to ISO-8601 dates.
func PrefsFor(rec *meta.Record) Prefs {
	loc, err := time.LoadLocation(rec.Timezone)
	if err != nil || rec.Timezone == "" {
		loc = time.UTC
	}
	df := rec.DateFormat
	if df == "" {
		df = time.DateOnly
	}
	locale := rec.Locale
	if locale == "" {
		locale = "en"
	}
	return Prefs{Name: rec.Name, Locale: locale, Location: loc, DateFormat: df}
}

// FormatDate renders t in the tenant's zone and date format.
func (p Prefs) FormatDate(t time.Time) string {
	return t.In(p.Location).Format(p.DateFormat)
}

// Routing is the active tenant binding for one request.
type Routing struct {
	Tenant     *meta.Record
	Prefs      Prefs
	Descriptor Descriptor
	Conn       *sqlx.Conn

	once    sync.Once
	release func()
	err     error
}

// Close returns the connection and the pool checkout.  Safe to call more
// than once.
func (r *Routing) Close() error {
	r.once.Do(func() {
		if r.Conn != nil {
			r.err = r.Conn.Close()
		}
		if r.release != nil {
			r.release()
		}
	})
	return r.err
}

type routingKey struct{}

// WithRouting stores r in ctx.
func WithRouting(ctx context.Context, r *Routing) context.Context {
	return context.WithValue(ctx, routingKey{}, r)
}

// FromContext returns the Routing stored by the tenancy middleware, or nil
// on platform-level requests.
func FromContext(ctx context.Context) *Routing {
	r, _ := ctx.Value(routingKey{}).(*Routing)
	return r
}
