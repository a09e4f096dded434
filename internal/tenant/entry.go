// internal/tenant/entry.go
//
// Pool entry.
//
// Context
// -------
// One entry per tenant id.  It owns the tenant's *sqlx.DB, the fingerprint
// of the descriptor that opened it, a `lastSeen` UnixNano timestamp used by
// the evictor, and an `inUse` count of checked-out connections.  The
// evictor never closes an entry whose inUse is above zero.
//
// Notes
// -----
//   - Entries are replaced, never mutated, when a descriptor changes.
//   - Oxford commas, two spaces after periods.
package tenant

import (
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
)

type entry struct {
	tenantID    uint64
	fingerprint string
	db          *sqlx.DB
	lastSeen    int64 // UnixNano
	inUse       int64
	retired     int32 // set once the entry leaves the map
}

func newEntry(id uint64, fp string, db *sqlx.DB) *entry {
	return &entry{
		tenantID:    id,
		fingerprint: fp,
		db:          db,
		lastSeen:    time.Now().UnixNano(),
	}
}

func (e *entry) touch() { atomic.StoreInt64(&e.lastSeen, time.Now().UnixNano()) }

func (e *entry) acquire() { atomic.AddInt64(&e.inUse, 1); e.touch() }

// release drops one checkout and closes the pool if the entry was retired
// while connections were still out.
func (e *entry) release() {
	if atomic.AddInt64(&e.inUse, -1) == 0 && atomic.LoadInt32(&e.retired) == 1 {
		_ = e.db.Close()
	}
}

// retire marks the entry as removed and closes it when idle.  It reports
// whether the close happened now.
func (e *entry) retire() bool {
	if !atomic.CompareAndSwapInt32(&e.retired, 0, 1) {
		return false
	}
	if atomic.LoadInt64(&e.inUse) == 0 {
		_ = e.db.Close()
		return true
	}
	return false
}

func (e *entry) busy() bool { return atomic.LoadInt64(&e.inUse) > 0 }
