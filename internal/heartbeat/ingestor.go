// internal/heartbeat/ingestor.go
//
// Ingestor: the telemetry write path after authentication.
//
// Order of checks
//
//  1. tenant missing or cancelled → *tenant.Rejection{KindNotFound}
//  2. payload decode and validation → *ValidationError
//  3. one Recorder write
//
// Suspension does not block ingestion.  The receipt reports the tenant's
// current status so the agent can throttle or stop on its own.  Nothing
// is persisted when steps 1 or 2 fail.
package heartbeat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/metrics"
	"github.com/yanizio/tenancy/internal/requestinfo"
	"github.com/yanizio/tenancy/internal/tenant"
	"github.com/yanizio/tenancy/internal/tenant/meta"
)

// Receipt is returned to the agent on success.
type Receipt struct {
	ID           string
	ReceivedAt   time.Time
	TenantStatus meta.Status
}

// Ingestor is safe for concurrent use.
type Ingestor struct {
	rec Recorder
	log *zap.SugaredLogger
}

// NewIngestor wires an Ingestor around a Recorder.
func NewIngestor(rec Recorder, log *zap.SugaredLogger) *Ingestor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Ingestor{rec: rec, log: log}
}

// Ingest validates body and records it for t.
func (in *Ingestor) Ingest(ctx context.Context, t *meta.Record, body []byte, src requestinfo.Source) (Receipt, error) {
	if rej := tenant.CheckExists(t); rej != nil {
		metrics.HeartbeatRejectedTotal.WithLabelValues("not_found").Inc()
		return Receipt{}, rej
	}

	p, err := Decode(body)
	if err == nil {
		err = p.Validate()
	}
	if err != nil {
		metrics.HeartbeatRejectedTotal.WithLabelValues("validation").Inc()
		return Receipt{}, err
	}

	hb, err := in.rec.RecordHeartbeat(ctx, t.ID, *p, src)
	if err != nil {
		metrics.HeartbeatRejectedTotal.WithLabelValues("store").Inc()
		in.log.Errorw("heartbeat write failed", "tenant_id", t.ID, "err", err)
		return Receipt{}, err
	}

	metrics.HeartbeatRecordedTotal.Inc()
	in.log.Debugw("heartbeat recorded", "tenant_id", t.ID, "heartbeat_id", hb.ID)
	return Receipt{ID: hb.ID, ReceivedAt: hb.ReceivedAt, TenantStatus: t.Status}, nil
}
