package memory

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// readerCount keeps one parity counter on its own cache line.
type readerCount struct {
	n    atomic.Int64
	_pad [56]byte
}

// Domain tracks read-side critical sections against a global epoch.
//
// A reader is counted under the parity of the epoch it entered in.
// Synchronize flips the epoch and waits for the old parity to drain;
// once it returns, every reader that was active before the flip has
// exited.
type Domain struct {
	epoch atomic.Uint64
	_pad1 [56]byte

	readers [2]readerCount

	completed atomic.Uint64
	graces    atomic.Uint64
	gpMu      sync.Mutex
}

// NewDomain creates an empty domain at epoch zero.
func NewDomain() *Domain {
	return &Domain{}
}

// Guard is an open read-side critical section. Exit must be called
// exactly once.
type Guard struct {
	d   *Domain
	idx uint64
}

// Enter opens a read-side critical section. It never blocks; it only
// retries when an epoch flip races with the announcement.
func (d *Domain) Enter() Guard {
	for {
		e := d.epoch.Load()
		c := &d.readers[e&1].n
		c.Add(1)
		if d.epoch.Load() == e {
			return Guard{d: d, idx: e & 1}
		}
		c.Add(-1)
	}
}

// Exit closes the critical section.
func (g Guard) Exit() {
	g.d.readers[g.idx].n.Add(-1)
}

// Epoch returns the current global epoch.
func (d *Domain) Epoch() uint64 {
	return d.epoch.Load()
}

// Safe reports whether an object retired at epoch e can no longer be
// referenced by any reader.
func (d *Domain) Safe(e uint64) bool {
	return d.completed.Load() > e
}

// Readers returns the number of open critical sections. Diagnostic only.
func (d *Domain) Readers() int64 {
	return d.readers[0].n.Load() + d.readers[1].n.Load()
}

// GracePeriods returns how many grace periods have completed.
func (d *Domain) GracePeriods() uint64 {
	return d.graces.Load()
}

// Synchronize waits for a full grace period. It blocks, so it must not
// be called from a path that is required to stay non-blocking, and it
// must never be called from inside a critical section of d.
func (d *Domain) Synchronize() {
	d.gpMu.Lock()
	defer d.gpMu.Unlock()

	old := d.epoch.Add(1) - 1
	waitDrained(&d.readers[old&1].n)

	// Grace periods are serialized, so all earlier parities drained too.
	d.completed.Store(old + 1)
	d.graces.Add(1)
}

func waitDrained(n *atomic.Int64) {
	const (
		spins   = 64
		yields  = 1024
		maxWait = time.Millisecond
	)
	for i := 0; n.Load() != 0; i++ {
		switch {
		case i < spins:
		case i < spins+yields:
			runtime.Gosched()
		default:
			wait := time.Duration(i-spins-yields+1) * 10 * time.Microsecond
			if wait > maxWait {
				wait = maxWait
			}
			time.Sleep(wait)
		}
	}
}
