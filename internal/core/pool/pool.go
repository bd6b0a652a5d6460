// Package pool recycles frequently spawned objects. Instances keep their
// identity across acquire/release cycles; only their state is reset.
package pool

import (
	"errors"

	"go.uber.org/zap"
)

// ErrExhausted is returned by TryAcquire when every slot is in use and the
// pool is at capacity.
var ErrExhausted = errors.New("pool exhausted")

// Poolable is anything the pool can hand out.
type Poolable interface {
	Active() bool
	SetActive(active bool)
	Reset()
}

const DefaultMax = 1000

type Options struct {
	Initial int // instances created up front, inactive
	Max     int // hard cap on instances; <= 0 means DefaultMax
	Logger  *zap.Logger
}

// Pool is a bounded, ordered set of reusable instances. Not safe for
// concurrent use; touched only from the simulation goroutine.
type Pool[T Poolable] struct {
	items     []T
	factory   func() T
	max       int
	overflows int
	log       *zap.Logger
}

func New[T Poolable](factory func() T, opts Options) *Pool[T] {
	limit := opts.Max
	if limit <= 0 {
		limit = DefaultMax
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	initial := min(opts.Initial, limit)
	p := &Pool[T]{
		items:   make([]T, 0, max(initial, 16)),
		factory: factory,
		max:     limit,
		log:     log,
	}
	for i := 0; i < initial; i++ {
		obj := factory()
		obj.SetActive(false)
		p.items = append(p.items, obj)
	}
	return p
}

// Acquire returns a free instance (activated, then reset), or a new one while
// below capacity. At capacity with nothing free it force-reuses the first
// slot: that instance is reset and handed out even though some caller may
// still hold it. The overflow is logged and counted; use TryAcquire to refuse
// instead.
func (p *Pool[T]) Acquire() T {
	if obj, ok := p.acquire(); ok {
		return obj
	}
	p.overflows++
	p.log.Warn("pool at capacity, reusing first slot",
		zap.Int("max", p.max),
		zap.Int("overflows", p.overflows),
	)
	obj := p.items[0]
	obj.Reset()
	return obj
}

// TryAcquire is Acquire without the forced reuse.
func (p *Pool[T]) TryAcquire() (T, error) {
	if obj, ok := p.acquire(); ok {
		return obj, nil
	}
	var zero T
	return zero, ErrExhausted
}

func (p *Pool[T]) acquire() (T, bool) {
	for _, obj := range p.items {
		if !obj.Active() {
			obj.SetActive(true)
			obj.Reset()
			return obj, true
		}
	}
	if len(p.items) < p.max {
		obj := p.factory()
		obj.SetActive(true)
		p.items = append(p.items, obj)
		return obj, true
	}
	var zero T
	return zero, false
}

// Release marks obj free. Its state is reset lazily on the next Acquire.
func (p *Pool[T]) Release(obj T) {
	obj.SetActive(false)
}

// ReleaseAll marks every instance free.
func (p *Pool[T]) ReleaseAll() {
	for _, obj := range p.items {
		obj.SetActive(false)
	}
}

// Active returns the in-use instances in pool order.
func (p *Pool[T]) Active() []T {
	out := make([]T, 0, len(p.items))
	for _, obj := range p.items {
		if obj.Active() {
			out = append(out, obj)
		}
	}
	return out
}

func (p *Pool[T]) ActiveCount() int {
	n := 0
	for _, obj := range p.items {
		if obj.Active() {
			n++
		}
	}
	return n
}

func (p *Pool[T]) TotalCount() int { return len(p.items) }
func (p *Pool[T]) Max() int        { return p.max }

// Overflows reports how many times Acquire had to force-reuse a slot.
func (p *Pool[T]) Overflows() int { return p.overflows }

// Each calls fn for every in-use instance in pool order. Releasing the
// current instance from fn is fine.
func (p *Pool[T]) Each(fn func(T)) {
	for _, obj := range p.items {
		if obj.Active() {
			fn(obj)
		}
	}
}
