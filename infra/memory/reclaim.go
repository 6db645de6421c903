package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ReclaimablePool is where released objects go.
// It is intentionally type-erased.
type ReclaimablePool interface {
	PutAny(any)
}

// ReclaimFunc adapts a function to ReclaimablePool.
type ReclaimFunc func(any)

func (f ReclaimFunc) PutAny(v any) { f(v) }

// Handle is the deferred-free handle embedded in every reclaimable
// object. It links the object into the retire list without allocating.
type Handle struct {
	next    *Handle
	obj     any
	epoch   uint64
	retired atomic.Bool
}

// Retired reports whether the object was handed to a Reclaimer and has
// not been released yet.
func (h *Handle) Retired() bool {
	return h.retired.Load()
}

// Reclaimer releases retired objects once a grace period has passed
// since their retirement.
//
// Retire is non-blocking and safe from any goroutine. Releases happen on
// the reclaimer goroutine, or synchronously in Barrier and Close.
type Reclaimer struct {
	domain *Domain
	pool   ReclaimablePool

	head     atomic.Pointer[Handle]
	pending  atomic.Int64
	released atomic.Uint64

	kick     chan struct{}
	barriers chan chan struct{}
	interval time.Duration

	flushMu sync.Mutex
	closed  atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewReclaimer starts a reclaimer. interval is the backstop period at
// which the retire list is polled even without a kick; values <= 0
// default to 100ms.
func NewReclaimer(d *Domain, pool ReclaimablePool, interval time.Duration) *Reclaimer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reclaimer{
		domain:   d,
		pool:     pool,
		kick:     make(chan struct{}, 1),
		barriers: make(chan chan struct{}),
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Retire schedules obj for release after a grace period. h must be the
// handle embedded in obj and the object must already be unreachable
// for new readers. Retiring the same handle twice panics.
//
// Retire does not block unless the reclaimer is already closed, in
// which case obj is released inline after a grace period.
func (r *Reclaimer) Retire(h *Handle, obj any) {
	if h.retired.Swap(true) {
		panic("memory: handle retired twice")
	}
	h.obj = obj
	h.epoch = r.domain.Epoch()
	for {
		old := r.head.Load()
		h.next = old
		if r.head.CompareAndSwap(old, h) {
			break
		}
	}
	r.pending.Add(1)

	if r.closed.Load() {
		r.flush()
		return
	}
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Barrier waits until every object retired before the call has been
// released.
func (r *Reclaimer) Barrier(ctx context.Context) error {
	if r.closed.Load() {
		r.flush()
		return nil
	}
	done := make(chan struct{})
	select {
	case r.barriers <- done:
	case <-r.ctx.Done():
		r.flush()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the reclaimer goroutine and releases everything pending.
// Close is safe to call multiple times.
func (r *Reclaimer) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.cancel()
	r.wg.Wait()
	r.flush()
	return nil
}

// Pending returns the number of retired objects not yet released.
func (r *Reclaimer) Pending() int64 {
	return r.pending.Load()
}

// Released returns the number of objects released so far.
func (r *Reclaimer) Released() uint64 {
	return r.released.Load()
}

func (r *Reclaimer) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case done := <-r.barriers:
			r.flush()
			close(done)
		case <-r.kick:
			r.flush()
		case <-ticker.C:
			r.flush()
		}
	}
}

// flush takes the whole retire list, waits for a grace period unless one
// already covers every handle, and releases the batch.
func (r *Reclaimer) flush() int {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	batch := r.head.Swap(nil)
	if batch == nil {
		return 0
	}

	for h := batch; h != nil; h = h.next {
		if !r.domain.Safe(h.epoch) {
			r.domain.Synchronize()
			break
		}
	}

	n := 0
	for h := batch; h != nil; {
		next, obj := h.next, h.obj
		h.next, h.obj = nil, nil
		h.retired.Store(false)
		r.pool.PutAny(obj)
		n++
		h = next
	}
	r.pending.Add(-int64(n))
	r.released.Add(uint64(n))
	return n
}
