// internal/heartbeat/recorder.go
//
// Heartbeat persistence.
//
// Context
// -------
// Heartbeats are append-only observations: one INSERT per submission,
// never an upsert, so two identical payloads produce two rows with
// distinct ids.  The id is a random UUID and the timestamp comes from the
// server clock, never from the agent.
//
// Schema reference
//
//	CREATE TABLE heartbeat (
//	    id                CHAR(36) PRIMARY KEY,
//	    tenant_id         BIGINT UNSIGNED NOT NULL,
//	    received_at       TIMESTAMP(6) NOT NULL,
//	    schema_version    INT NULL,
//	    app_version       VARCHAR(64) NULL,
//	    uptime_seconds    BIGINT NULL,
//	    queue_depth       BIGINT NULL,
//	    active_users      BIGINT NULL,
//	    error_rate        DOUBLE NULL,
//	    response_time_ms  DOUBLE NULL,
//	    seats_used        BIGINT NULL,
//	    storage_bytes     BIGINT NULL,
//	    ai_requests       BIGINT NULL,
//	    extra             JSON NULL,
//	    source_ip         VARCHAR(45) NULL,
//	    source_country    CHAR(2) NULL,
//	    user_agent        VARCHAR(255) NULL,
//	    KEY (tenant_id, received_at)
//	);
package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/tenancy/internal/requestinfo"
)

// Heartbeat is one persisted observation.
type Heartbeat struct {
	ID         string
	TenantID   uint64
	ReceivedAt time.Time
	Payload    Payload
	Source     requestinfo.Source
}

// Recorder persists heartbeats.  Implementations assign ID and
// ReceivedAt.
type Recorder interface {
	RecordHeartbeat(ctx context.Context, tenantID uint64, p Payload, src requestinfo.Source) (Heartbeat, error)
}

// SQLRecorder writes to the control-plane `heartbeat` table.
type SQLRecorder struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewSQLRecorder wires a recorder.  A nil clock uses wall time.
func NewSQLRecorder(db *sqlx.DB, clk clock.Clock) *SQLRecorder {
	if clk == nil {
		clk = clock.New()
	}
	return &SQLRecorder{db: db, clock: clk}
}

type row struct {
	ID             string    `db:"id"`
	TenantID       uint64    `db:"tenant_id"`
	ReceivedAt     time.Time `db:"received_at"`
	SchemaVersion  *int      `db:"schema_version"`
	AppVersion     *string   `db:"app_version"`
	UptimeSeconds  *int64    `db:"uptime_seconds"`
	QueueDepth     *int64    `db:"queue_depth"`
	ActiveUsers    *int64    `db:"active_users"`
	ErrorRate      *float64  `db:"error_rate"`
	ResponseTimeMS *float64  `db:"response_time_ms"`
	SeatsUsed      *int64    `db:"seats_used"`
	StorageBytes   *int64    `db:"storage_bytes"`
	AIRequests     *int64    `db:"ai_requests"`
	Extra          *string   `db:"extra"`
	SourceIP       *string   `db:"source_ip"`
	SourceCountry  *string   `db:"source_country"`
	UserAgent      *string   `db:"user_agent"`
}

const insertHeartbeat = `
        INSERT INTO heartbeat (
            id, tenant_id, received_at, schema_version, app_version,
            uptime_seconds, queue_depth, active_users, error_rate,
            response_time_ms, seats_used, storage_bytes, ai_requests,
            extra, source_ip, source_country, user_agent
        ) VALUES (
            :id, :tenant_id, :received_at, :schema_version, :app_version,
            :uptime_seconds, :queue_depth, :active_users, :error_rate,
            :response_time_ms, :seats_used, :storage_bytes, :ai_requests,
            :extra, :source_ip, :source_country, :user_agent
        )`

// RecordHeartbeat inserts one row.
func (r *SQLRecorder) RecordHeartbeat(ctx context.Context, tenantID uint64, p Payload, src requestinfo.Source) (Heartbeat, error) {
	hb := Heartbeat{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		ReceivedAt: r.clock.Now().UTC(),
		Payload:    p,
		Source:     src,
	}

	rw := row{
		ID:             hb.ID,
		TenantID:       tenantID,
		ReceivedAt:     hb.ReceivedAt,
		SchemaVersion:  p.SchemaVersion,
		AppVersion:     p.AppVersion,
		UptimeSeconds:  p.UptimeSeconds,
		QueueDepth:     p.QueueDepth,
		ActiveUsers:    p.ActiveUsers,
		ErrorRate:      p.ErrorRate,
		ResponseTimeMS: p.ResponseTimeMS,
		SeatsUsed:      p.SeatsUsed,
		StorageBytes:   p.StorageBytes,
		AIRequests:     p.AIRequests,
		SourceIP:       nonEmpty(src.IP),
		SourceCountry:  nonEmpty(src.Country),
		UserAgent:      nonEmpty(truncate(src.UserAgent, 255)),
	}
	if len(p.Extra) > 0 {
		b, err := json.Marshal(p.Extra)
		if err != nil {
			return Heartbeat{}, fmt.Errorf("heartbeat: encode extra: %w", err)
		}
		s := string(b)
		rw.Extra = &s
	}

	if _, err := r.db.NamedExecContext(ctx, insertHeartbeat, rw); err != nil {
		return Heartbeat{}, fmt.Errorf("heartbeat: insert: %w", err)
	}
	return hb, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// truncate cuts s to at most n bytes on a rune boundary and drops any
// invalid sequences, so the result fits a utf8mb4 column.
func truncate(s string, n int) string {
	if len(s) > n {
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return strings.ToValidUTF8(s, "")
}
