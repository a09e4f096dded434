// internal/token/store.go
//
// Control-plane queries for access tokens.
//
// Context
// -------
// Two statements, both parameterised:
//
//  1. `ByDigest`     — one SELECT by `token_hash`.
//  2. `RecordUsage`  — one UPDATE that bumps `use_count` in SQL, so
//     concurrent requests with the same token never lose an increment.
//
// `RecordUsage` fails when no row was touched; the authenticator treats
// that as a failed authentication rather than silently losing accounting.
package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no token matches the digest.
var ErrNotFound = errors.New("access token not found")

// Store is the token persistence surface the Authenticator needs.
type Store interface {
	ByDigest(ctx context.Context, digest string) (*AccessToken, error)
	RecordUsage(ctx context.Context, id uint64, at time.Time) error
}

// SQLStore implements Store on the control-plane database.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps db.
func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

// ByDigest fetches a token by the digest of its secret.
func (s *SQLStore) ByDigest(ctx context.Context, digest string) (*AccessToken, error) {
	const q = `
        SELECT id, tenant_id, name, abilities, expires_at, last_used_at, use_count
        FROM   access_token
        WHERE  token_hash = ?
        LIMIT  1`
	var tok AccessToken
	if err := s.db.GetContext(ctx, &tok, q, digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("token.ByDigest: %w", err)
	}
	return &tok, nil
}

// RecordUsage stamps last_used_at and increments use_count atomically.
func (s *SQLStore) RecordUsage(ctx context.Context, id uint64, at time.Time) error {
	const q = `
        UPDATE access_token
        SET    last_used_at = ?, use_count = use_count + 1
        WHERE  id = ?`
	res, err := s.db.ExecContext(ctx, q, at, id)
	if err != nil {
		return fmt.Errorf("token.RecordUsage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("token.RecordUsage: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("token.RecordUsage: %d rows affected for id %d", n, id)
	}
	return nil
}
