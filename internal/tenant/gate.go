// internal/tenant/gate.go
//
// Lifecycle gate.
//
// Context
// -------
// Two independent axes decide whether a resolved tenant may be served:
//
//  1. Existence     – no record, or status cancelled  → NotFound.
//  2. Suspension    – status suspended                → Forbidden + reason.
//  3. Provisioning  – isolated store not ready        → Unavailable.
//
// The checks run in that order because each one is a hard stop.  The gate
// only reads state; it never transitions a tenant.  Telemetry handlers use
// `CheckExists` alone: agents must be able to observe suspension rather
// than be locked out by it.
package tenant

import (
	"fmt"

	"github.com/yanizio/tenancy/internal/tenant/meta"
)

// Kind classifies a gate rejection.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Rejection is returned when the gate refuses a request.  Reason is only
// set for suspension.
type Rejection struct {
	Kind   Kind
	Reason string
}

func (r *Rejection) Error() string {
	if r.Reason != "" {
		return fmt.Sprintf("tenant gate: %s: %s", r.Kind, r.Reason)
	}
	return "tenant gate: " + r.Kind.String()
}

// Retryable reports whether the caller should try again later.
func (r *Rejection) Retryable() bool { return r.Kind == KindUnavailable }

// Check evaluates all three axes for the browser path.  A nil rec means
// the routing key matched no tenant.
func Check(rec *meta.Record) *Rejection {
	if rej := CheckExists(rec); rej != nil {
		return rej
	}
	if rec.IsSuspended() {
		return &Rejection{Kind: KindForbidden, Reason: rec.Reason()}
	}
	if !rec.IsReady() {
		return &Rejection{Kind: KindUnavailable}
	}
	return nil
}

// CheckExists evaluates only the existence axis.
func CheckExists(rec *meta.Record) *Rejection {
	if rec == nil || rec.IsCancelled() {
		return &Rejection{Kind: KindNotFound}
	}
	return nil
}
