// internal/tenant/pool.go
//
// Per-tenant connection pools, keyed by tenant identity.
//
// Context
// -------
// The Pool lazily opens one *sqlx.DB per tenant id, stores it in a
// sync.Map, and evicts it on idle TTL or LRU pressure.  Keys are tenant
// ids, never worker or goroutine identity, so a pool can only ever serve
// the tenant whose descriptor opened it.
//
// Workflow
// --------
//  1. `Acquire(ctx, id, desc)` looks up the entry for id.
//  2. A fingerprint mismatch (the tenant's locator changed) retires the
//     old entry; its pool closes once the last checkout is returned.
//  3. Cold opens collapse through singleflight so concurrent first hits
//     for one tenant open exactly one pool.  The open runs detached from
//     the first caller's cancellation and is bounded by OpenTimeout, so
//     one disconnecting client cannot fail the requests waiting with it.
//  4. The caller gets the pool plus a release func; it must call release
//     exactly once.
//
// Notes
// -----
// • open failures are returned, never retried.
// • Safe for concurrent use.
package tenant

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/tenancy/internal/database"
	"github.com/yanizio/tenancy/internal/metrics"
)

// Static defaults.  Override via config.Pool.
const (
	IdleTTL       = 30 * time.Minute
	MaxEntries    = 100
	EvictInterval = 5 * time.Minute
	OpenTimeout   = 10 * time.Second
)

// OpenFunc opens a pool for a descriptor.  Tests swap it for sqlmock.
type OpenFunc func(ctx context.Context, d Descriptor) (*sqlx.DB, error)

// PoolOptions configures a Pool.
type PoolOptions struct {
	IdleTTL    time.Duration
	MaxEntries int
	DB         database.Options
	Open       OpenFunc // nil → database.OpenWithOptions
}

// Pool is safe for concurrent checkout and return.
type Pool struct {
	sfg        singleflight.Group
	m          sync.Map // tenant id → *entry
	open       OpenFunc
	idleTTL    time.Duration
	maxEntries int
	log        *zap.SugaredLogger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewPool builds a Pool.  Call Start to run the background evictor.
func NewPool(o PoolOptions, log *zap.SugaredLogger) *Pool {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = IdleTTL
	}
	open := o.Open
	if open == nil {
		dbOpts := o.DB
		open = func(ctx context.Context, d Descriptor) (*sqlx.DB, error) {
			return database.OpenWithOptions(ctx, d.Driver, d.DSN(), dbOpts)
		}
	}
	return &Pool{
		open:       open,
		idleTTL:    o.IdleTTL,
		maxEntries: o.MaxEntries,
		log:        log,
		stop:       make(chan struct{}),
	}
}

// Acquire returns the pool for tenant id opened with desc.
func (p *Pool) Acquire(ctx context.Context, id uint64, desc Descriptor) (*sqlx.DB, func(), error) {
	fp := desc.Fingerprint()

	for {
		if v, ok := p.m.Load(id); ok {
			ent := v.(*entry)
			if ent.fingerprint != fp {
				p.invalidate(id, ent, "descriptor changed")
				continue
			}
			ent.acquire()
			if atomic.LoadInt32(&ent.retired) == 1 {
				// Lost a race with the evictor; try again.
				ent.release()
				continue
			}
			return ent.db, p.releaser(ent), nil
		}

		key := strconv.FormatUint(id, 10) + "/" + fp
		v, err, _ := p.sfg.Do(key, func() (interface{}, error) {
			if v, ok := p.m.Load(id); ok {
				return v.(*entry), nil
			}
			octx, cancel := context.WithTimeout(context.WithoutCancel(ctx), OpenTimeout)
			defer cancel()
			db, err := p.open(octx, desc)
			if err != nil {
				metrics.TenantPoolOpenErrorsTotal.Inc()
				return nil, err
			}
			ent := newEntry(id, fp, db)
			p.m.Store(id, ent)
			metrics.TenantPoolOpenTotal.Inc()
			metrics.ActiveTenantPools.Inc()
			p.log.Infow("tenant pool opened", "tenant_id", id, "target", desc.Redacted())
			return ent, nil
		})
		if err != nil {
			return nil, nil, err
		}
		ent := v.(*entry)
		if ent.fingerprint != fp {
			continue
		}
		ent.acquire()
		if atomic.LoadInt32(&ent.retired) == 1 {
			ent.release()
			continue
		}
		return ent.db, p.releaser(ent), nil
	}
}

// Invalidate drops any pool held for tenant id.
func (p *Pool) Invalidate(id uint64) {
	if v, ok := p.m.Load(id); ok {
		p.invalidate(id, v.(*entry), "invalidated")
	}
}

// Len reports how many tenant pools are open.
func (p *Pool) Len() int {
	n := 0
	p.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Close stops the evictor and closes every idle pool.  Busy pools close
// when their last connection is returned.
func (p *Pool) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.m.Range(func(key, value any) bool {
		p.invalidate(key.(uint64), value.(*entry), "shutdown")
		return true
	})
}

// invalidate removes ent if it is still the entry for id and reports
// whether it did.
func (p *Pool) invalidate(id uint64, ent *entry, why string) bool {
	if !p.m.CompareAndDelete(id, ent) {
		return false
	}
	ent.retire()
	metrics.TenantPoolEvictTotal.Inc()
	metrics.ActiveTenantPools.Dec()
	p.log.Infow("tenant pool retired", "tenant_id", id, "reason", why)
	return true
}

func (p *Pool) releaser(ent *entry) func() {
	var once sync.Once
	return func() { once.Do(ent.release) }
}
