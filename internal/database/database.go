// Package database centralises sqlx connection helpers.  Three drivers are
// linked in, one per supported engine:
//
//	mysql   – go-sql-driver/mysql (MySQL, MariaDB)
//	pgx     – jackc/pgx/v5/stdlib (PostgreSQL)
//	sqlite3 – mattn/go-sqlite3 (file-based tenant stores)
//
// Public entry points:
//
//	Open(driver, dsn)                       – conservative pool sizes.
//	OpenWithOptions(ctx, driver, dsn, opts) – fine-grained control.
//
// Both helpers Ping the database before returning so callers fail fast.
// There is deliberately no retry loop: a failed open is surfaced to the
// caller as-is.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names registered with database/sql.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// Options tunes one pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultOptions suits process-wide pools such as the control plane.
var DefaultOptions = Options{
	MaxOpenConns:    15,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
}

// Open returns a *sqlx.DB with DefaultOptions.
func Open(driver, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(context.Background(), driver, dsn, DefaultOptions)
}

// OpenWithOptions opens and pings a pool.  Used by the tenant pool to keep
// per-tenant resource usage small.
func OpenWithOptions(ctx context.Context, driver, dsn string, o Options) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", driver, err)
	}

	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(o.MaxIdleConns)
	db.SetConnMaxLifetime(o.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping %s: %w", driver, err)
	}
	return db, nil
}
