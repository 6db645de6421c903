// Package evictor runs the periodic head eviction.
//
// An Evictor is armed by Start, fires once per period and re-arms itself
// after every firing until Stop. The fire function runs on the
// evictor's own goroutine and must not block: the evictor treats it like
// a timer callback.
package evictor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type State int32

const (
	Idle State = iota
	Armed
	Firing
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Firing:
		return "firing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Evictor struct {
	period time.Duration
	fire   func()
	log    zerolog.Logger

	state atomic.Int32
	fired atomic.Uint64

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(period time.Duration, fire func(), log zerolog.Logger) *Evictor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Evictor{
		period: period,
		fire:   fire,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start arms the first firing one period from now. Starting twice, or
// after Stop, does nothing.
func (e *Evictor) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started || e.ctx.Err() != nil {
		return
	}
	e.started = true
	e.state.Store(int32(Armed))
	go e.run()
	e.log.Debug().Dur("period", e.period).Msg("evictor armed")
}

// Stop cancels future firings and waits for an in-flight firing to
// finish. No firing runs after Stop returns. Stop is idempotent.
func (e *Evictor) Stop() {
	e.mu.Lock()
	started := e.started
	e.cancel()
	e.mu.Unlock()

	if started {
		<-e.done
	}
	if State(e.state.Swap(int32(Stopped))) != Stopped {
		e.log.Debug().Uint64("fired", e.fired.Load()).Msg("evictor stopped")
	}
}

// State returns the current state.
func (e *Evictor) State() State {
	return State(e.state.Load())
}

// Fired returns the number of completed firings.
func (e *Evictor) Fired() uint64 {
	return e.fired.Load()
}

func (e *Evictor) run() {
	defer close(e.done)

	timer := time.NewTimer(e.period)
	defer timer.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-timer.C:
		}
		if e.ctx.Err() != nil {
			return
		}

		e.state.Store(int32(Firing))
		e.fire()
		e.fired.Add(1)
		e.state.Store(int32(Armed))

		timer.Reset(e.period)
	}
}
