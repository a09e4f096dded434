// internal/tenant/meta/repository.go
//
// Tenant-table query helpers.
//
// Context
// -------
// Read-only access to the control-plane **tenant** table:
//
//   - `BySlug`       — browser path, one lookup per request.
//   - `ByID`         — telemetry path, tenant owning an access token.
//   - `CountServing` — startup sanity check.
//
// Unlike a serving filter, `BySlug` and `ByID` return cancelled and
// suspended rows too.  The lifecycle gate, not SQL, decides what happens
// to them, so every request sees the current status without caching.
//
// Notes
// -----
//   - Column list matches the fields in `Record`; update both together.
//   - `sql.ErrNoRows` is translated to `ErrNotFound`; other errors are
//     wrapped and returned so the caller can log them.
package meta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no tenant row matches.
var ErrNotFound = errors.New("tenant not found")

const selectColumns = `
        SELECT t.id, t.slug, t.name, t.db_name, t.db_host, t.db_port,
               t.db_username, t.db_password, t.locale, t.timezone,
               t.date_format, t.status, t.suspended_reason,
               t.provisioning_status, t.trial_ends_at,
               p.id AS ` + "`plan.id`" + `, p.slug AS ` + "`plan.slug`" + `,
               p.name AS ` + "`plan.name`" + `
        FROM   tenant t
        LEFT JOIN plan p ON p.id = t.plan_id`

// BySlug fetches a single tenant row by routing key, including its plan.
func BySlug(ctx context.Context, db sqlx.QueryerContext, slug string) (*Record, error) {
	const q = selectColumns + `
        WHERE  t.slug = ?
        LIMIT  1`
	return getOne(ctx, db, q, slug)
}

// ByID fetches a single tenant row by primary key, including its plan.
func ByID(ctx context.Context, db sqlx.QueryerContext, id uint64) (*Record, error) {
	const q = selectColumns + `
        WHERE  t.id = ?
        LIMIT  1`
	return getOne(ctx, db, q, id)
}

// CountServing returns how many tenants could pass the gate right now.
func CountServing(ctx context.Context, db sqlx.QueryerContext) (int, error) {
	const q = `
        SELECT COUNT(*)
        FROM   tenant
        WHERE  status IN ('trial', 'active')
          AND  provisioning_status = 'ready'`
	var n int
	if err := sqlx.GetContext(ctx, db, &n, q); err != nil {
		return 0, fmt.Errorf("meta.CountServing: %w", err)
	}
	return n, nil
}

func getOne(ctx context.Context, db sqlx.QueryerContext, q string, arg any) (*Record, error) {
	var rec Record
	if err := sqlx.GetContext(ctx, db, &rec, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("meta: tenant lookup: %w", err)
	}
	return &rec, nil
}
