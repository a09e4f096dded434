// internal/tenant/meta/settings.go
//
// Tenant-store settings fetcher.
//
// Context
// -------
// Each isolated store carries a small `setting (name, value)` table.  Unlike
// control-plane rows, these live *inside* the tenant's own database, so the
// query must run on the request's routed connection and never on a shared
// handle.
//
// Notes
// -----
//   - Names are case-sensitive and unique.
//   - The helper never logs; callers wrap errors if they need more detail.
package meta

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Settings loads all rows from the tenant store's `setting` table.
func Settings(ctx context.Context, q sqlx.QueryerContext) (map[string]string, error) {
	const stmt = `SELECT name, value FROM setting`

	rows := make([]struct {
		Key   string `db:"name"`
		Value string `db:"value"`
	}, 0, 8)

	if err := sqlx.SelectContext(ctx, q, &rows, stmt); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}
