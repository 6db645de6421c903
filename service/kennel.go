package service

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"kennel/domain/kennel"
	"kennel/infra/memory"
	"kennel/infra/metrics"
	"kennel/jobs/broadcaster"
	"kennel/jobs/evictor"
)

var (
	ErrClosed   = errors.New("kennel: closed")
	ErrNoMemory = errors.New("kennel: out of memory")
)

// EventSink receives eviction events. Submit must not block.
type EventSink interface {
	Submit(broadcaster.Event) bool
}

type Options struct {
	EvictionInterval time.Duration
	ReclaimInterval  time.Duration

	// Alloc overrides how new dogs are obtained. By default they come
	// from the kennel's pool and allocation never fails.
	Alloc func() (*kennel.Dog, error)

	Events  EventSink
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

/*
Kennel is the context object that owns the list and everything that
mutates or reclaims it.

Construction order: domain → pool → reclaimer → list → evictor.
Teardown order (Close): evictor → drain list → reclaimer flush.
*/
type Kennel struct {
	domain    *memory.Domain
	pool      *memory.Pool[kennel.Dog]
	reclaimer *memory.Reclaimer
	list      *kennel.List
	evictor   *evictor.Evictor

	alloc   func() (*kennel.Dog, error)
	events  EventSink
	metrics *metrics.Metrics
	log     zerolog.Logger

	// gate keeps inserts out while Close drains the list.
	gate      sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// New wires a kennel. The evictor is not armed until Start.
func New(opts Options) *Kennel {
	if opts.EvictionInterval <= 0 {
		opts.EvictionInterval = 5 * time.Second
	}

	k := &Kennel{
		domain:  memory.NewDomain(),
		events:  opts.Events,
		metrics: opts.Metrics,
		log:     opts.Logger,
	}
	k.pool = memory.NewPool(func() *kennel.Dog { return &kennel.Dog{} }, kennel.ResetDog)
	k.reclaimer = memory.NewReclaimer(k.domain, k.pool, opts.ReclaimInterval)
	k.list = kennel.NewList(k.domain)
	k.evictor = evictor.New(opts.EvictionInterval, func() { k.EvictOldest() },
		k.log.With().Str("component", "evictor").Logger())

	k.alloc = opts.Alloc
	if k.alloc == nil {
		k.alloc = func() (*kennel.Dog, error) { return k.pool.Get(), nil }
	}
	if k.metrics != nil {
		k.metrics.Observe(k)
	}
	return k
}

//
// ──────────────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────────────
//

// Start arms the evictor and then runs register, which exposes the
// kennel to the outside world. If register fails the kennel is closed
// before the error is returned.
func (k *Kennel) Start(register func(*Kennel) error) error {
	k.evictor.Start()
	if register == nil {
		return nil
	}
	if err := register(k); err != nil {
		_ = k.Close()
		return errors.Wrap(err, "register kennel")
	}
	k.log.Debug().Msg("kennel loaded")
	return nil
}

// Close stops the evictor, drains the list and waits for every retired
// dog to be released. Close is idempotent.
func (k *Kennel) Close() error {
	var err error
	k.closeOnce.Do(func() {
		k.evictor.Stop()

		k.gate.Lock()
		k.closed = true
		drained := k.list.Drain(k.retire)
		k.gate.Unlock()

		err = k.reclaimer.Close()
		k.log.Debug().Int("drained", drained).Msg("kennel unloaded")
	})
	return err
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Insert appends a new dog. It fails only when the kennel is closed or
// allocation fails; nothing is linked in either case.
func (k *Kennel) Insert(breed string, age int, trainable bool) error {
	k.gate.RLock()
	defer k.gate.RUnlock()
	if k.closed {
		return ErrClosed
	}

	dog, err := k.alloc()
	if err != nil {
		return errors.WithSecondaryError(errors.Wrap(ErrNoMemory, "allocate dog"), err)
	}
	if dog == nil {
		return ErrNoMemory
	}
	dog.Breed, dog.Age, dog.Trainable = breed, age, trainable
	k.list.InsertTail(dog)

	if k.metrics != nil {
		k.metrics.Inserts.Inc()
	}
	k.log.Debug().Str("breed", breed).Int("age", age).Bool("trainable", trainable).Msg("entry stored")
	return nil
}

// EvictOldest removes the head dog, if any, and retires it. It never
// blocks: it is the evictor's fire function.
func (k *Kennel) EvictOldest() (kennel.View, bool) {
	dog := k.list.RemoveHead()
	if dog == nil {
		return kennel.View{}, false
	}
	v := dog.View()
	k.log.Debug().Str("breed", v.Breed).Int("age", v.Age).Bool("trainable", v.Trainable).Msg("entry deleted")
	k.retire(dog)

	if k.metrics != nil {
		k.metrics.Evictions.Inc()
	}
	if k.events != nil {
		k.events.Submit(broadcaster.Event{
			Breed:     v.Breed,
			Age:       v.Age,
			Trainable: v.Trainable,
			At:        time.Now().UTC(),
		})
	}
	return v, true
}

func (k *Kennel) retire(dog *kennel.Dog) {
	k.reclaimer.Retire(dog.Handle(), dog)
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// Snapshot returns the list's payloads from oldest to newest without
// taking the writer lock.
func (k *Kennel) Snapshot() iter.Seq[kennel.View] {
	return k.list.Snapshot()
}

// Len returns the number of dogs currently linked.
func (k *Kennel) Len() int { return k.list.Len() }

// Barrier waits until every dog retired so far has been released.
func (k *Kennel) Barrier(ctx context.Context) error {
	return k.reclaimer.Barrier(ctx)
}

// EvictorState exposes the scheduler state.
func (k *Kennel) EvictorState() evictor.State { return k.evictor.State() }

func (k *Kennel) Pending() int64 { return k.reclaimer.Pending() }
func (k *Kennel) Released() uint64 { return k.reclaimer.Released() }
func (k *Kennel) GracePeriods() uint64 { return k.domain.GracePeriods() }
