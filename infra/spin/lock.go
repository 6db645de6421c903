// Package spin implements the writer lock that serializes list
// mutations.
//
// Lock is a FIFO ticket spin lock: goroutines are admitted in the order
// they asked for the lock, and a waiter never sleeps, it only yields its
// processor after a short busy-wait. Critical sections must stay O(1)
// and must not block, sleep or perform I/O.
package spin

import (
	"runtime"
	"sync/atomic"
)

const spins = 32

// Lock is a ticket lock. The zero value is unlocked.
type Lock struct {
	next    atomic.Uint32
	_pad    [60]byte
	serving atomic.Uint32
}

// Lock acquires l. It does not fail; it busy-waits until the caller's
// ticket is served.
func (l *Lock) Lock() {
	ticket := l.next.Add(1) - 1
	for i := 0; l.serving.Load() != ticket; i++ {
		if i >= spins {
			runtime.Gosched()
		}
	}
}

// TryLock acquires l only if it is free.
func (l *Lock) TryLock() bool {
	s := l.serving.Load()
	return l.next.CompareAndSwap(s, s+1)
}

// Unlock releases l. Unlocking a free lock panics.
func (l *Lock) Unlock() {
	if l.serving.Load() == l.next.Load() {
		panic("spin: unlock of unlocked lock")
	}
	l.serving.Add(1)
}

// Locked reports whether l is held. Diagnostic only.
func (l *Lock) Locked() bool {
	return l.serving.Load() != l.next.Load()
}

// Waiters returns the number of goroutines queued behind the holder.
func (l *Lock) Waiters() int {
	n := int(l.next.Load() - l.serving.Load())
	if n <= 1 {
		return 0
	}
	return n - 1
}
