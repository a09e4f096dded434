// components/agent/agent.go
//
// Agent component: telemetry endpoints for tenant-side agents.
//
//   POST /heartbeat   ability "heartbeat"; records one observation
//   GET  /status      any valid token; reports the tenant's lifecycle
//
// Both routes authenticate with a bearer token.  A token whose tenant is
// missing or cancelled answers 404 on both routes, so agents see one
// visibility policy.  A suspended tenant is reported and still accepted.
//
//------------------------------------------------------------------------------

package agent

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/auth"
	"github.com/yanizio/tenancy/internal/heartbeat"
	"github.com/yanizio/tenancy/internal/requestinfo"
	"github.com/yanizio/tenancy/internal/respond"
	"github.com/yanizio/tenancy/internal/tenant"
	"github.com/yanizio/tenancy/internal/tenant/meta"
	"github.com/yanizio/tenancy/internal/token"
)

// Ingestor is satisfied by *heartbeat.Ingestor.
type Ingestor interface {
	Ingest(ctx context.Context, t *meta.Record, body []byte, src requestinfo.Source) (heartbeat.Receipt, error)
}

// Component wires the agent routes.
type Component struct {
	Auth      auth.Authenticator
	Directory tenant.Directory
	Ingestor  Ingestor
	Clock     clock.Clock
	Log       *zap.SugaredLogger
}

/*──────────────────────────── component surface ────────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "agent" }

// Routes builds the router mounted at "/" and "/api/agent".
func (c *Component) Routes() chi.Router {
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Log == nil {
		c.Log = zap.NewNop().Sugar()
	}
	r := chi.NewRouter()
	r.With(auth.RequireToken(c.Auth, token.AbilityHeartbeat, c.Log)).Post("/heartbeat", c.handleHeartbeat)
	r.With(auth.RequireToken(c.Auth, 0, c.Log)).Get("/status", c.handleStatus)
	return r
}

/*──────────────────────────── wire shapes ──────────────────────────────────*/

type heartbeatResponse struct {
	Success      bool   `json:"success"`
	HeartbeatID  string `json:"heartbeat_id"`
	ReceivedAt   string `json:"received_at"`
	TenantStatus string `json:"tenant_status"`
}

type statusResponse struct {
	Status             string  `json:"status"`
	IsSuspended        bool    `json:"is_suspended"`
	SuspendedReason    *string `json:"suspended_reason"`
	IsTrial            bool    `json:"is_trial"`
	TrialEndsAt        *string `json:"trial_ends_at"`
	TrialDaysRemaining *int    `json:"trial_days_remaining"`
}

const (
	msgTenantNotFound = "Tenant not found."
	msgInvalid        = "The given data was invalid."
	msgServerError    = "Server error."
)

/*──────────────────────────── handlers ─────────────────────────────────────*/

func (c *Component) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	rec, ok := c.owner(w, r)
	if !ok {
		return
	}

	body, err := heartbeat.ReadBody(r.Body)
	if err != nil && !errors.Is(err, heartbeat.ErrValidation) {
		respond.JSONError(w, http.StatusBadRequest, "Unreadable body.")
		return
	}
	if err != nil {
		c.writeValidation(w, err)
		return
	}

	receipt, err := c.Ingestor.Ingest(r.Context(), rec, body, requestinfo.FromContext(r.Context()).Source())
	var rej *tenant.Rejection
	switch {
	case err == nil:
	case errors.As(err, &rej):
		respond.JSONError(w, http.StatusNotFound, msgTenantNotFound)
		return
	case errors.Is(err, heartbeat.ErrValidation):
		c.writeValidation(w, err)
		return
	default:
		respond.JSONError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	respond.JSON(w, http.StatusOK, heartbeatResponse{
		Success:      true,
		HeartbeatID:  receipt.ID,
		ReceivedAt:   receipt.ReceivedAt.UTC().Format(time.RFC3339),
		TenantStatus: string(receipt.TenantStatus),
	})
}

func (c *Component) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, ok := c.owner(w, r)
	if !ok {
		return
	}
	if rej := tenant.CheckExists(rec); rej != nil {
		respond.JSONError(w, http.StatusNotFound, msgTenantNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, statusFor(rec, c.Clock.Now()))
}

// owner loads the tenant owning the request's token.  A missing row
// yields (nil, true) so the caller's gate check answers 404.
func (c *Component) owner(w http.ResponseWriter, r *http.Request) (*meta.Record, bool) {
	tok, ok := auth.TokenFrom(r.Context())
	if !ok {
		respond.JSONError(w, http.StatusUnauthorized, auth.UnauthenticatedMessage)
		return nil, false
	}
	rec, err := c.Directory.FindByID(r.Context(), tok.TenantID)
	switch {
	case errors.Is(err, meta.ErrNotFound):
		return nil, true
	case err != nil:
		c.Log.Errorw("token tenant lookup failed", "tenant_id", tok.TenantID, "err", err)
		respond.JSONError(w, http.StatusInternalServerError, msgServerError)
		return nil, false
	}
	return rec, true
}

func (c *Component) writeValidation(w http.ResponseWriter, err error) {
	var ve *heartbeat.ValidationError
	if !errors.As(err, &ve) {
		respond.JSONError(w, http.StatusUnprocessableEntity, msgInvalid)
		return
	}
	respond.JSON(w, http.StatusUnprocessableEntity, respond.ErrorBody{Error: msgInvalid, Errors: ve.ByField()})
}

func statusFor(rec *meta.Record, now time.Time) statusResponse {
	out := statusResponse{
		Status:      string(rec.Status),
		IsSuspended: rec.IsSuspended(),
		IsTrial:     rec.IsTrial(),
	}
	if reason := rec.Reason(); reason != "" {
		out.SuspendedReason = &reason
	}
	if end := rec.TrialEnd(); end != nil {
		s := end.UTC().Format(time.RFC3339)
		out.TrialEndsAt = &s
	}
	if days, ok := rec.TrialDaysRemaining(now); ok {
		out.TrialDaysRemaining = &days
	}
	return out
}
