// internal/tenant/directory.go
//
// Tenant directory: read-only lookup over the control-plane catalogue.
//
// Every call queries the control plane, so suspension or cancellation
// takes effect on the very next request.  Nothing is cached here; the
// only long-lived per-tenant state is the connection pool.
package tenant

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/tenancy/internal/tenant/meta"
)

// Directory finds tenant records.  Lookups return meta.ErrNotFound when
// no row matches.
type Directory interface {
	FindBySlug(ctx context.Context, slug string) (*meta.Record, error)
	FindByID(ctx context.Context, id uint64) (*meta.Record, error)
}

// SQLDirectory implements Directory on the control-plane database.
type SQLDirectory struct {
	db sqlx.QueryerContext
}

// NewDirectory wraps the control-plane handle.
func NewDirectory(db sqlx.QueryerContext) *SQLDirectory { return &SQLDirectory{db: db} }

func (d *SQLDirectory) FindBySlug(ctx context.Context, slug string) (*meta.Record, error) {
	return meta.BySlug(ctx, d.db, slug)
}

func (d *SQLDirectory) FindByID(ctx context.Context, id uint64) (*meta.Record, error) {
	return meta.ByID(ctx, d.db, id)
}
