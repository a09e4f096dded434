// internal/tenant/meta/model.go
//
// `tenant` table row model.
//
// Context
// -------
// The `Record` struct mirrors one row in the control-plane **tenant** table
// joined with its **plan**.  It carries the routing key (`slug`), the
// isolated-store locator, display preferences, and the two lifecycle axes
// the gate reads.
//
// Schema reference
//
//	CREATE TABLE tenant (
//	    id                  BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    slug                VARCHAR(63)  NOT NULL UNIQUE,
//	    name                VARCHAR(255) NOT NULL,
//	    db_name             VARCHAR(255) NOT NULL,
//	    db_host             VARCHAR(255) NULL,
//	    db_port             INT          NULL,
//	    db_username         VARCHAR(128) NULL,
//	    db_password         VARCHAR(512) NULL,
//	    locale              VARCHAR(16)  NOT NULL DEFAULT 'en',
//	    timezone            VARCHAR(64)  NOT NULL DEFAULT 'UTC',
//	    date_format         VARCHAR(32)  NOT NULL DEFAULT '2006-01-02',
//	    status              VARCHAR(16)  NOT NULL DEFAULT 'trial',
//	    suspended_reason    VARCHAR(255) NULL,
//	    provisioning_status VARCHAR(16)  NOT NULL DEFAULT 'pending',
//	    trial_ends_at       TIMESTAMP    NULL,
//	    plan_id             BIGINT UNSIGNED NULL,
//	    created_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
// Notes
// -----
// • Nullable columns are pointers; callers must nil-check before use.
// • `SuspendedReason` only means something when Status is suspended, and
//   `TrialEndsAt` only when Status is trial.  Use the accessor methods.
// • `DBPassword` may be a `vault:` reference.
package meta

import "time"

// Status is the billing/account lifecycle axis.
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
)

// Provisioning is the isolated-store readiness axis.
type Provisioning string

const (
	ProvisioningPending    Provisioning = "pending"
	ProvisioningInProgress Provisioning = "provisioning"
	ProvisioningReady      Provisioning = "ready"
	ProvisioningFailed     Provisioning = "failed"
)

// Plan is a read-only reference joined onto Record.
type Plan struct {
	ID   *uint64 `db:"id"`
	Slug *string `db:"slug"`
	Name *string `db:"name"`
}

// Record mirrors one row in the `tenant` table.
type Record struct {
	ID                 uint64       `db:"id"`
	Slug               string       `db:"slug"`
	Name               string       `db:"name"`
	DBName             string       `db:"db_name"`
	DBHost             *string      `db:"db_host"`
	DBPort             *int         `db:"db_port"`
	DBUsername         *string      `db:"db_username"`
	DBPassword         *string      `db:"db_password"`
	Locale             string       `db:"locale"`
	Timezone           string       `db:"timezone"`
	DateFormat         string       `db:"date_format"`
	Status             Status       `db:"status"`
	SuspendedReason    *string      `db:"suspended_reason"`
	ProvisioningStatus Provisioning `db:"provisioning_status"`
	TrialEndsAt        *time.Time   `db:"trial_ends_at"`
	Plan               Plan         `db:"plan"`
}

// IsCancelled reports the terminal lifecycle state.
func (r *Record) IsCancelled() bool { return r.Status == StatusCancelled }

// IsSuspended reports whether the tenant is suspended.
func (r *Record) IsSuspended() bool { return r.Status == StatusSuspended }

// IsTrial reports whether the tenant is on trial.
func (r *Record) IsTrial() bool { return r.Status == StatusTrial }

// IsReady reports whether the isolated store finished provisioning.
func (r *Record) IsReady() bool { return r.ProvisioningStatus == ProvisioningReady }

// Reason returns the suspension reason, or "" when not suspended.
func (r *Record) Reason() string {
	if !r.IsSuspended() || r.SuspendedReason == nil {
		return ""
	}
	return *r.SuspendedReason
}

// TrialEnd returns the trial end, or nil when not on trial.
func (r *Record) TrialEnd() *time.Time {
	if !r.IsTrial() {
		return nil
	}
	return r.TrialEndsAt
}

// TrialDaysRemaining returns whole days left in the trial relative to now,
// floored and never negative.  ok is false when no trial end applies.
func (r *Record) TrialDaysRemaining(now time.Time) (days int, ok bool) {
	end := r.TrialEnd()
	if end == nil {
		return 0, false
	}
	left := end.Sub(now)
	if left <= 0 {
		return 0, true
	}
	return int(left / (24 * time.Hour)), true
}
