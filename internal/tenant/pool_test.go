package tenant

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOpener hands out one sqlmock handle per tenant database name and
// counts how many times each was opened.
type mockOpener struct {
	mu    sync.Mutex
	mocks map[string]sqlmock.Sqlmock
	opens map[string]int
	// newDB builds each handle; sqlmock's option type is unexported, so
	// options are captured in this constructor rather than stored.
	newDB func() (*sql.DB, sqlmock.Sqlmock, error)
}

func newMockOpener() *mockOpener {
	return &mockOpener{
		mocks: map[string]sqlmock.Sqlmock{},
		opens: map[string]int{},
		newDB: func() (*sql.DB, sqlmock.Sqlmock, error) { return sqlmock.New() },
	}
}

func (m *mockOpener) open(_ context.Context, d Descriptor) (*sqlx.DB, error) {
	db, mock, err := m.newDB()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.mocks[d.Database] = mock
	m.opens[d.Database]++
	m.mu.Unlock()
	return sqlx.NewDb(db, "sqlmock"), nil
}

func (m *mockOpener) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[name]
}

func descFor(name string) Descriptor {
	return Descriptor{
		Engine:   EngineNetwork,
		Driver:   "mysql",
		Host:     "10.0.0.5",
		Port:     3306,
		Username: "platform",
		Database: name,
	}
}

func TestPool_ReusesTenantPool(t *testing.T) {
	op := newMockOpener()
	p := NewPool(PoolOptions{Open: op.open}, nil)
	defer p.Close()

	db1, rel1, err := p.Acquire(context.Background(), 1, descFor("tenant_a"))
	require.NoError(t, err)
	rel1()
	db2, rel2, err := p.Acquire(context.Background(), 1, descFor("tenant_a"))
	require.NoError(t, err)
	rel2()

	assert.Same(t, db1, db2)
	assert.Equal(t, 1, op.count("tenant_a"))
	assert.Equal(t, 1, p.Len())
}

func TestPool_ReleaseIsIdempotent(t *testing.T) {
	op := newMockOpener()
	p := NewPool(PoolOptions{Open: op.open}, nil)
	defer p.Close()

	_, rel, err := p.Acquire(context.Background(), 1, descFor("tenant_a"))
	require.NoError(t, err)
	rel()
	rel()

	v, ok := p.m.Load(uint64(1))
	require.True(t, ok)
	assert.Equal(t, int64(0), atomic.LoadInt64(&v.(*entry).inUse))
}

func TestPool_SeparatePoolsPerTenant(t *testing.T) {
	op := newMockOpener()
	p := NewPool(PoolOptions{Open: op.open}, nil)
	defer p.Close()

	a, ra, err := p.Acquire(context.Background(), 1, descFor("tenant_a"))
	require.NoError(t, err)
	defer ra()
	b, rb, err := p.Acquire(context.Background(), 2, descFor("tenant_b"))
	require.NoError(t, err)
	defer rb()

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, p.Len())
}

func TestPool_FingerprintChangeRetiresOldPool(t *testing.T) {
	op := newMockOpener()
	p := NewPool(PoolOptions{Open: op.open}, nil)
	defer p.Close()

	old, rel, err := p.Acquire(context.Background(), 1, descFor("tenant_a"))
	require.NoError(t, err)
	rel()
	op.mocks["tenant_a"].ExpectClose()

	moved, rel2, err := p.Acquire(context.Background(), 1, descFor("tenant_a_v2"))
	require.NoError(t, err)
	defer rel2()

	assert.NotSame(t, old, moved)
	assert.Equal(t, 1, p.Len())
	assert.NoError(t, op.mocks["tenant_a"].ExpectationsWereMet())
}

func TestPool_RetiredBusyPoolClosesOnLastRelease(t *testing.T) {
	op := newMockOpener()
	p := NewPool(PoolOptions{Open: op.open}, nil)
	defer p.Close()

	_, rel, err := p.Acquire(context.Background(), 1, descFor("tenant_a"))
	require.NoError(t, err)
	v, _ := p.m.Load(uint64(1))
	ent := v.(*entry)

	p.Invalidate(1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ent.retired))
	assert.Equal(t, 0, p.Len())

	op.mocks["tenant_a"].ExpectClose()
	rel()
	assert.NoError(t, op.mocks["tenant_a"].ExpectationsWereMet())
}

func TestPool_ConcurrentColdOpenCollapses(t *testing.T) {
	var opens int32
	gate := make(chan struct{})
	open := func(ctx context.Context, d Descriptor) (*sqlx.DB, error) {
		atomic.AddInt32(&opens, 1)
		<-gate
		db, _, err := sqlmock.New()
		if err != nil {
			return nil, err
		}
		return sqlx.NewDb(db, "sqlmock"), nil
	}
	p := NewPool(PoolOptions{Open: open}, nil)
	defer p.Close()

	const n = 16
	var wg sync.WaitGroup
	dbs := make([]*sqlx.DB, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, rel, err := p.Acquire(context.Background(), 9, descFor("tenant_z"))
			if assert.NoError(t, err) {
				dbs[i] = db
				rel()
			}
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&opens))
	for _, db := range dbs {
		assert.Same(t, dbs[0], db)
	}
}

func TestPool_OpenErrorNotCached(t *testing.T) {
	calls := 0
	open := func(ctx context.Context, d Descriptor) (*sqlx.DB, error) {
		calls++
		return nil, errors.New("dial tcp: connection refused")
	}
	p := NewPool(PoolOptions{Open: open}, nil)
	defer p.Close()

	_, _, err := p.Acquire(context.Background(), 1, descFor("tenant_a"))
	require.Error(t, err)
	_, _, err = p.Acquire(context.Background(), 1, descFor("tenant_a"))
	require.Error(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, p.Len())
}

func TestEvict_IdleSkipsBusy(t *testing.T) {
	op := newMockOpener()
	p := NewPool(PoolOptions{Open: op.open, IdleTTL: time.Minute}, nil)
	defer p.Close()

	_, relA, err := p.Acquire(context.Background(), 1, descFor("tenant_a"))
	require.NoError(t, err)
	relA()
	_, relB, err := p.Acquire(context.Background(), 2, descFor("tenant_b"))
	require.NoError(t, err)
	defer relB()

	p.evict(time.Now().Add(time.Hour))

	_, okA := p.m.Load(uint64(1))
	_, okB := p.m.Load(uint64(2))
	assert.False(t, okA, "idle pool should be evicted")
	assert.True(t, okB, "busy pool must survive")
}

func TestEvict_LRUPressure(t *testing.T) {
	op := newMockOpener()
	p := NewPool(PoolOptions{Open: op.open, MaxEntries: 1}, nil)
	defer p.Close()

	for id, name := range map[uint64]string{1: "tenant_a", 2: "tenant_b"} {
		_, rel, err := p.Acquire(context.Background(), id, descFor(name))
		require.NoError(t, err)
		rel()
	}
	now := time.Now()
	v1, _ := p.m.Load(uint64(1))
	v2, _ := p.m.Load(uint64(2))
	atomic.StoreInt64(&v1.(*entry).lastSeen, now.Add(-2*time.Second).UnixNano())
	atomic.StoreInt64(&v2.(*entry).lastSeen, now.Add(-1*time.Second).UnixNano())

	p.evict(now)

	assert.Equal(t, 1, p.Len())
	_, ok := p.m.Load(uint64(2))
	assert.True(t, ok, "most recently used pool should remain")
}

func TestPool_ColdOpenSurvivesFirstCallerCancel(t *testing.T) {
	var opens int32
	started := make(chan struct{})
	gate := make(chan struct{})
	var bounded atomic.Bool
	open := func(ctx context.Context, d Descriptor) (*sqlx.DB, error) {
		if atomic.AddInt32(&opens, 1) == 1 {
			close(started)
		}
		_, ok := ctx.Deadline()
		bounded.Store(ok)
		<-gate
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		db, _, err := sqlmock.New()
		if err != nil {
			return nil, err
		}
		return sqlx.NewDb(db, "sqlmock"), nil
	}
	p := NewPool(PoolOptions{Open: open}, nil)
	defer p.Close()

	firstCtx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		if _, rel, err := p.Acquire(firstCtx, 4, descFor("tenant_d")); err == nil {
			rel()
		}
	}()
	<-started

	secondErr := make(chan error, 1)
	go func() {
		_, rel, err := p.Acquire(context.Background(), 4, descFor("tenant_d"))
		if err == nil {
			rel()
		}
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(gate)
	<-firstDone

	require.NoError(t, <-secondErr)
	assert.True(t, bounded.Load(), "open should run under a deadline")
	assert.Equal(t, int32(1), atomic.LoadInt32(&opens))
	assert.Equal(t, 1, p.Len())
}

func TestPool_InvalidateReportsRemoval(t *testing.T) {
	op := newMockOpener()
	p := NewPool(PoolOptions{Open: op.open}, nil)
	defer p.Close()

	_, rel, err := p.Acquire(context.Background(), 1, descFor("tenant_a"))
	require.NoError(t, err)
	rel()
	v, ok := p.m.Load(uint64(1))
	require.True(t, ok)
	ent := v.(*entry)

	assert.True(t, p.invalidate(1, ent, "test"))
	assert.False(t, p.invalidate(1, ent, "test"), "second removal must report false")
	assert.Equal(t, 0, p.Len())
}

func TestEvict_StaleEntryDoesNotReduceCount(t *testing.T) {
	op := newMockOpener()
	p := NewPool(PoolOptions{Open: op.open, IdleTTL: time.Hour, MaxEntries: 1}, nil)
	defer p.Close()

	for id, name := range map[uint64]string{1: "tenant_a", 2: "tenant_b"} {
		_, rel, err := p.Acquire(context.Background(), id, descFor(name))
		require.NoError(t, err)
		rel()
	}
	now := time.Now()
	v1, _ := p.m.Load(uint64(1))
	v2, _ := p.m.Load(uint64(2))
	atomic.StoreInt64(&v1.(*entry).lastSeen, now.Add(-2*time.Second).UnixNano())
	atomic.StoreInt64(&v2.(*entry).lastSeen, now.Add(-1*time.Second).UnixNano())

	// A removal that loses the race is not an eviction: LRU pressure
	// must still bring the map down to MaxEntries.
	assert.False(t, p.invalidate(1, newEntry(1, "other", nil), "stale"))
	p.evict(now)

	assert.Equal(t, 1, p.Len())
	_, ok := p.m.Load(uint64(2))
	assert.True(t, ok)
}
