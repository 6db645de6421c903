package kennel

import (
	"iter"
	"sync/atomic"

	"kennel/infra/memory"
	"kennel/infra/spin"
)

// bounds is an immutable description of the list published after every
// mutation. Readers load it once and walk exactly n links from first.
type bounds struct {
	first *Dog
	last  *Dog
	n     int
}

var emptyBounds = &bounds{}

// List is an intrusive, circular, doubly-linked FIFO of dogs around a
// sentinel.
//
// Writers (InsertTail, RemoveHead) are serialized by a spin lock and
// never wait for readers. Readers (Range, Snapshot, Len) take no lock:
// they announce themselves to the grace-period domain, load the
// published bounds and follow forward links. Forward links of non-tail
// dogs are never rewritten and an unlinked dog keeps its forward link
// until it is released, so a reader always sees the list exactly as it
// was when its bounds were published.
type List struct {
	mu     spin.Lock
	domain *memory.Domain

	head  Dog
	state atomic.Pointer[bounds]

	inserted atomic.Uint64
	removed  atomic.Uint64
}

// NewList creates an empty list whose readers are tracked by d.
func NewList(d *memory.Domain) *List {
	l := &List{domain: d}
	l.head.next.Store(&l.head)
	l.head.prev = &l.head
	l.state.Store(emptyBounds)
	return l
}

// InsertTail publishes dog as the new tail. The dog must be fully
// populated; it becomes visible to readers in a single atomic store.
// Linking a dog that is, or was, part of a list and has not been
// released panics.
func (l *List) InsertTail(dog *Dog) {
	if dog.Linked() || dog.reclaim.Retired() {
		panic("kennel: insert of a linked or retired dog")
	}
	nb := new(bounds)

	l.mu.Lock()
	tail := l.head.prev
	dog.prev = tail
	dog.next.Store(&l.head)
	tail.next.Store(dog)
	l.head.prev = dog

	cur := l.state.Load()
	nb.first, nb.last, nb.n = cur.first, dog, cur.n+1
	if cur.n == 0 {
		nb.first = dog
	}
	l.state.Store(nb)
	l.inserted.Add(1)
	l.mu.Unlock()
}

// RemoveHead unlinks the oldest dog and returns it, or nil when the list
// is empty. Readers that already hold the dog may keep reading it; the
// caller owns it and must retire it rather than free or reuse it.
func (l *List) RemoveHead() *Dog {
	nb := new(bounds)

	l.mu.Lock()
	first := l.head.next.Load()
	if first == &l.head {
		l.mu.Unlock()
		return nil
	}
	next := first.next.Load()
	l.head.next.Store(next)
	next.prev = &l.head
	first.prev = poison

	cur := l.state.Load()
	if cur.n > 1 {
		nb.first, nb.last, nb.n = next, cur.last, cur.n-1
	} else {
		nb = emptyBounds
	}
	l.state.Store(nb)
	l.removed.Add(1)
	l.mu.Unlock()

	return first
}

// Drain removes every dog, handing each to retire. It returns the number
// of dogs removed.
func (l *List) Drain(retire func(*Dog)) int {
	n := 0
	for d := l.RemoveHead(); d != nil; d = l.RemoveHead() {
		retire(d)
		n++
	}
	return n
}

// Range calls fn for each dog from head to tail inside one read-side
// critical section. The dogs passed to fn are valid only until fn
// returns. Range stops early when fn returns false.
func (l *List) Range(fn func(*Dog) bool) {
	g := l.domain.Enter()
	defer g.Exit()

	b := l.state.Load()
	d := b.first
	for i := 0; i < b.n; i++ {
		if !fn(d) {
			return
		}
		d = d.next.Load()
	}
}

// Snapshot returns a lazy, restartable sequence of the list's payloads.
// Each iteration is one read-side critical section, so a consumer that
// lingers inside the loop delays reclamation.
func (l *List) Snapshot() iter.Seq[View] {
	return func(yield func(View) bool) {
		l.Range(func(d *Dog) bool {
			return yield(d.View())
		})
	}
}

// Len returns the number of dogs currently linked.
func (l *List) Len() int {
	return l.state.Load().n
}

// Inserted and Removed count mutations over the list's lifetime.
func (l *List) Inserted() uint64 { return l.inserted.Load() }
func (l *List) Removed() uint64 { return l.removed.Load() }
