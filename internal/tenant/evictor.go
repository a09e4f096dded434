// evictor.go houses the eviction loop for Pool.  Every EvictInterval it
// scans the map and retires:
//
//   - tenant pools idle longer than idleTTL
//   - least-recently-used pools when map size exceeds maxEntries
//
// Pools with checked-out connections are skipped in both passes.  Each
// eviction is logged and updates Prometheus counters.
package tenant

import (
	"sort"
	"sync/atomic"
	"time"
)

// Start runs the evictor until Close is called.
func (p *Pool) Start(interval time.Duration) {
	if interval <= 0 {
		interval = EvictInterval
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-p.stop:
				return
			case now := <-t.C:
				p.evict(now)
			}
		}
	}()
}

// evict runs one idle pass followed by one LRU pass.
func (p *Pool) evict(now time.Time) {
	var count int

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	p.m.Range(func(key, value any) bool {
		count++
		ent := value.(*entry)
		if ent.busy() {
			return true
		}
		idle := now.Sub(time.Unix(0, atomic.LoadInt64(&ent.lastSeen)))
		if idle > p.idleTTL && p.invalidate(key.(uint64), ent, "idle "+idle.Truncate(time.Second).String()) {
			count--
		}
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	if p.maxEntries <= 0 || count <= p.maxEntries {
		return
	}
	type kv struct {
		id  uint64
		ent *entry
		at  int64
	}
	var all []kv
	p.m.Range(func(key, value any) bool {
		ent := value.(*entry)
		all = append(all, kv{id: key.(uint64), ent: ent, at: atomic.LoadInt64(&ent.lastSeen)})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
	excess := len(all) - p.maxEntries
	for _, c := range all {
		if excess <= 0 {
			break
		}
		if c.ent.busy() {
			continue
		}
		if p.invalidate(c.id, c.ent, "lru pressure") {
			excess--
		}
	}
}
