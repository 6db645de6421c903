package memory

import "sync"

// Pool is a typed object pool.
// It is type-safe for normal use, but can also receive objects from
// the Reclaimer via PutAny.
type Pool[T any] struct {
	p     *sync.Pool
	reset func(*T)
}

// NewPool creates a pool. reset, when non-nil, scrubs an object before
// it is made available again.
func NewPool[T any](ctor func() *T, reset func(*T)) *Pool[T] {
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
		reset: reset,
	}
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

func (p *Pool[T]) Put(v *T) {
	if p.reset != nil {
		p.reset(v)
	}
	p.p.Put(v)
}

// PutAny allows Pool[T] to satisfy ReclaimablePool.
func (p *Pool[T]) PutAny(v any) {
	obj, ok := v.(*T)
	if !ok {
		panic("memory.Pool: PutAny received wrong type")
	}
	p.Put(obj)
}
