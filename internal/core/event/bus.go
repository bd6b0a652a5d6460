package event

import (
	"reflect"

	"go.uber.org/zap"
)

// Bus is a typed publish/subscribe channel. The event "name" is the Go type
// of the payload, so every payload struct is its own event.
//
// Emit delivers synchronously to a snapshot of the current subscribers.
// Post queues into a back buffer that Flush delivers later, in post order.
// Accessed only from the simulation goroutine, no locks.
type Bus struct {
	log      *zap.Logger
	handlers map[reflect.Type][]handler
	nextID   uint64
	closed   bool
	flushing bool

	front []pending
	back  []pending
}

type handler struct {
	id uint64
	fn func(any)
}

type pending struct {
	typ reflect.Type
	ev  any
}

// Subscription identifies one registered handler. The zero value is inert.
type Subscription struct {
	bus *Bus
	typ reflect.Type
	id  uint64
}

// Cancel removes the handler. Safe to call more than once and from inside
// the handler itself.
func (s Subscription) Cancel() {
	if s.bus != nil {
		s.bus.remove(s.typ, s.id)
	}
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		log:      log,
		handlers: make(map[reflect.Type][]handler),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Subscribe registers fn for events of type T. Handlers run in registration
// order. Subscribing to a closed bus returns an inert Subscription.
func Subscribe[T any](b *Bus, fn func(T)) Subscription {
	return b.add(typeOf[T](), func(ev any) { fn(ev.(T)) })
}

// SubscribeOnce registers fn for the next event of type T only. fn runs at
// most once even when the event is re-emitted from inside a handler.
func SubscribeOnce[T any](b *Bus, fn func(T)) Subscription {
	var sub Subscription
	fired := false
	sub = b.add(typeOf[T](), func(ev any) {
		if fired {
			return
		}
		fired = true
		sub.Cancel()
		fn(ev.(T))
	})
	return sub
}

// Emit delivers ev to every handler subscribed to T when the call starts.
// A panicking handler is logged and skipped; the rest still run.
func Emit[T any](b *Bus, ev T) {
	if b.closed {
		return
	}
	b.dispatch(typeOf[T](), ev)
}

// Post queues ev for the next Flush.
func Post[T any](b *Bus, ev T) {
	if b.closed {
		return
	}
	b.back = append(b.back, pending{typ: typeOf[T](), ev: ev})
}

// Clear drops every handler for T.
func Clear[T any](b *Bus) {
	delete(b.handlers, typeOf[T]())
}

// ListenerCount reports how many handlers are subscribed to T.
func ListenerCount[T any](b *Bus) int {
	return len(b.handlers[typeOf[T]()])
}

// Unsubscribe is the bus-side form of sub.Cancel.
func (b *Bus) Unsubscribe(sub Subscription) {
	if sub.bus == b {
		sub.Cancel()
	}
}

// ClearAll drops every handler for every event type.
func (b *Bus) ClearAll() {
	clear(b.handlers)
}

// Close clears all handlers and queued events. Afterwards Subscribe, Emit and
// Post are no-ops.
func (b *Bus) Close() {
	b.ClearAll()
	b.front = nil
	b.back = nil
	b.closed = true
}

func (b *Bus) Closed() bool { return b.closed }

// Pending reports the number of posted events awaiting Flush.
func (b *Bus) Pending() int { return len(b.back) }

// Flush swaps the buffers and delivers everything posted before the call.
// Events posted by handlers during the flush wait for the next one, and a
// Flush from inside a handler does nothing.
func (b *Bus) Flush() int {
	if b.flushing {
		return 0
	}
	b.flushing = true
	defer func() { b.flushing = false }()

	b.front, b.back = b.back, b.front[:0]
	n := len(b.front)
	for i := 0; i < n && !b.closed; i++ {
		p := b.front[i]
		b.dispatch(p.typ, p.ev)
	}
	clear(b.front)
	b.front = b.front[:0]
	return n
}

func (b *Bus) add(t reflect.Type, fn func(any)) Subscription {
	if b.closed {
		return Subscription{}
	}
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], handler{id: id, fn: fn})
	return Subscription{bus: b, typ: t, id: id}
}

// remove rebuilds the handler slice instead of editing it in place, so a
// dispatch already holding the old slice keeps its snapshot intact.
func (b *Bus) remove(t reflect.Type, id uint64) {
	hs := b.handlers[t]
	for i, h := range hs {
		if h.id != id {
			continue
		}
		if len(hs) == 1 {
			delete(b.handlers, t)
			return
		}
		next := make([]handler, 0, len(hs)-1)
		next = append(next, hs[:i]...)
		next = append(next, hs[i+1:]...)
		b.handlers[t] = next
		return
	}
}

func (b *Bus) dispatch(t reflect.Type, ev any) {
	hs := b.handlers[t]
	for _, h := range hs {
		b.call(t, h, ev)
	}
}

func (b *Bus) call(t reflect.Type, h handler, ev any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("event", t.String()),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	h.fn(ev)
}
