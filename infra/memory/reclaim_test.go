package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	h  Handle
	id int
}

type recordingPool struct {
	mu  sync.Mutex
	got []int
}

func (p *recordingPool) PutAny(v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, v.(*item).id)
}

func (p *recordingPool) ids() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.got...)
}

func TestReclaimerReleasesAfterBarrier(t *testing.T) {
	d := NewDomain()
	pool := &recordingPool{}
	r := NewReclaimer(d, pool, time.Hour)
	defer r.Close()

	a, b := &item{id: 1}, &item{id: 2}
	r.Retire(&a.h, a)
	r.Retire(&b.h, b)

	require.NoError(t, r.Barrier(context.Background()))

	assert.ElementsMatch(t, []int{1, 2}, pool.ids())
	assert.Equal(t, int64(0), r.Pending())
	assert.Equal(t, uint64(2), r.Released())
	assert.False(t, a.h.Retired())
	assert.GreaterOrEqual(t, d.GracePeriods(), uint64(1))
}

func TestReclaimerDefersWhileReaderActive(t *testing.T) {
	d := NewDomain()
	pool := &recordingPool{}
	r := NewReclaimer(d, pool, time.Hour)
	defer r.Close()

	g := d.Enter()
	it := &item{id: 7}
	r.Retire(&it.h, it)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, r.Barrier(ctx), context.DeadlineExceeded)
	assert.Empty(t, pool.ids())
	assert.True(t, it.h.Retired())

	g.Exit()

	require.NoError(t, r.Barrier(context.Background()))
	assert.Equal(t, []int{7}, pool.ids())
}

func TestReclaimerRetireTwicePanics(t *testing.T) {
	d := NewDomain()
	r := NewReclaimer(d, &recordingPool{}, time.Hour)
	defer r.Close()

	g := d.Enter()
	defer g.Exit()

	it := &item{id: 1}
	r.Retire(&it.h, it)

	assert.Panics(t, func() { r.Retire(&it.h, it) })
}

func TestReclaimerCloseFlushes(t *testing.T) {
	d := NewDomain()
	pool := &recordingPool{}
	r := NewReclaimer(d, pool, time.Hour)

	for i := 0; i < 10; i++ {
		it := &item{id: i}
		r.Retire(&it.h, it)
	}
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.Len(t, pool.ids(), 10)
	assert.Equal(t, int64(0), r.Pending())

	late := &item{id: 99}
	r.Retire(&late.h, late)
	assert.Contains(t, pool.ids(), 99)
}

func TestPoolPutAnyResets(t *testing.T) {
	p := NewPool(func() *item { return &item{} }, func(it *item) { it.id = -1 })
	it := &item{id: 5}
	p.PutAny(it)
	assert.Equal(t, -1, it.id)
	assert.Panics(t, func() { p.PutAny("nope") })
}
