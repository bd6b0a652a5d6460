package ecs

import (
	"slices"
	"time"

	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/scene"
	"go.uber.org/zap"
)

// Registry is the directory of live entities. It keeps a tag index in step
// with every registered entity's tags by listening to TagAdded/TagRemoved,
// and drops an entity on its own when the entity emits Destroyed.
// Accessed only from the simulation goroutine.
type Registry struct {
	log       *zap.Logger
	ids       IDSource
	container scene.Container

	entries  map[EntityID]*entry
	list     []*Entity // registration order
	scratch  []*Entity
	tagIndex map[string]map[EntityID]*Entity
	minted   map[EntityID]event.Subscription // unregistered: releases the ID on Destroy

	events *event.Bus
}

// entry remembers what the registry indexed for an entity, so removal does
// not depend on the entity's current tag set (Destroy clears it first).
type entry struct {
	entity *Entity
	tags   map[string]struct{}
	subs   []event.Subscription
}

type RegistryOption func(*Registry)

func WithLogger(log *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithIDSource replaces the default generational IDPool.
func WithIDSource(ids IDSource) RegistryOption {
	return func(r *Registry) {
		if ids != nil {
			r.ids = ids
		}
	}
}

// NewRegistry creates a registry inserting entity nodes into container.
// container may be nil when nothing spatial is needed.
func NewRegistry(container scene.Container, opts ...RegistryOption) *Registry {
	r := &Registry{
		log:       zap.NewNop(),
		ids:       NewIDPool(),
		container: container,
		entries:   make(map[EntityID]*entry, 256),
		list:      make([]*Entity, 0, 256),
		tagIndex:  make(map[string]map[EntityID]*Entity),
		minted:    make(map[EntityID]event.Subscription),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.events = event.NewBus(r.log)
	return r
}

func (r *Registry) Events() *event.Bus { return r.events }
func (r *Registry) Count() int         { return len(r.entries) }
func (r *Registry) IDs() IDSource      { return r.ids }

// NewEntity builds an entity with an ID from the registry's IDSource. It is
// not registered until Add. IDs already held by registered entities (added
// with IDs from elsewhere) are skipped. Destroying the entity gives its ID
// back whether or not it is registered at the time.
func (r *Registry) NewEntity(opts Options) *Entity {
	id := r.mint()
	if opts.Logger == nil {
		opts.Logger = r.log
	}
	e := NewEntity(id, opts)
	r.watchDetached(e)
	return e
}

func (r *Registry) mint() EntityID {
	for {
		id := r.ids.Next()
		if _, taken := r.entries[id]; !taken {
			return id
		}
		// Keep the ID booked so it is released when its holder is destroyed.
		r.minted[id] = event.Subscription{}
		r.log.Debug("minted id already registered", zap.Stringer("id", id))
	}
}

// watchDetached releases e's ID if e is destroyed while not registered.
func (r *Registry) watchDetached(e *Entity) {
	id := e.id
	r.minted[id] = event.SubscribeOnce(e.events, func(Destroyed) {
		if _, back := r.entries[id]; back {
			return
		}
		delete(r.minted, id)
		r.ids.Release(id)
	})
}

// Spawn is NewEntity followed by Add.
func (r *Registry) Spawn(opts Options) *Entity {
	return r.Add(r.NewEntity(opts))
}

// Add registers e. If an entity with the same ID is already registered the
// call is a no-op and the registered entity is returned.
func (r *Registry) Add(e *Entity) *Entity {
	if e == nil {
		return nil
	}
	if existing, ok := r.entries[e.id]; ok {
		r.log.Warn("entity id already registered",
			zap.Stringer("id", e.id),
			zap.String("name", existing.entity.name),
		)
		return existing.entity
	}
	if e.destroyed {
		r.log.Warn("refusing to register destroyed entity", zap.Stringer("id", e.id))
		return e
	}

	if watch, ok := r.minted[e.id]; ok {
		watch.Cancel()
		r.minted[e.id] = event.Subscription{}
	}

	en := &entry{entity: e, tags: make(map[string]struct{}, len(e.tags))}
	r.entries[e.id] = en
	r.list = append(r.list, e)
	if r.container != nil {
		r.container.AddChild(e.node)
	}
	for tag := range e.tags {
		r.indexTag(en, tag)
	}

	en.subs = append(en.subs,
		event.Subscribe(e.events, func(ev TagAdded) { r.indexTag(en, ev.Tag) }),
		event.Subscribe(e.events, func(ev TagRemoved) { r.unindexTag(en, ev.Tag) }),
		event.Subscribe(e.events, func(ev Destroyed) { r.Remove(ev.Entity.id) }),
	)

	event.Emit(r.events, EntityAdded{Entity: e})
	return e
}

// Remove unregisters the entity with id. Reports false if it is not registered.
func (r *Registry) Remove(id EntityID) bool {
	en, ok := r.entries[id]
	if !ok {
		return false
	}
	e := en.entity
	for tag := range en.tags {
		r.unindexTag(en, tag)
	}
	for _, s := range en.subs {
		s.Cancel()
	}
	delete(r.entries, id)
	if i := slices.Index(r.list, e); i >= 0 {
		r.list = slices.Delete(r.list, i, i+1)
	}
	if r.container != nil {
		r.container.RemoveChild(e.node)
	}
	// A merely removed entity may be added back, so it keeps its ID until
	// it is destroyed.
	if _, ok := r.minted[id]; ok {
		if e.destroyed {
			delete(r.minted, id)
			r.ids.Release(id)
		} else {
			r.watchDetached(e)
		}
	}

	event.Emit(r.events, EntityRemoved{Entity: e})
	return true
}

func (r *Registry) Has(id EntityID) bool {
	_, ok := r.entries[id]
	return ok
}

func (r *Registry) Get(id EntityID) (*Entity, bool) {
	en, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return en.entity, true
}

// GetByName returns the earliest-registered entity with the given name.
func (r *Registry) GetByName(name string) (*Entity, bool) {
	for _, e := range r.list {
		if e.name == name {
			return e, true
		}
	}
	return nil, false
}

// GetByTag returns the entities carrying tag, ordered by ID.
func (r *Registry) GetByTag(tag string) []*Entity {
	return sortedBucket(r.tagIndex[tag])
}

// GetByTags returns the entities carrying every tag, ordered by ID. An empty
// tag list matches nothing.
func (r *Registry) GetByTags(tags ...string) []*Entity {
	if len(tags) == 0 {
		return nil
	}
	bucket := r.smallestBucket(tags)
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*Entity, 0, len(bucket))
	for _, e := range bucket {
		if e.HasTags(tags...) {
			out = append(out, e)
		}
	}
	sortByID(out)
	return out
}

// All returns every registered entity in registration order.
func (r *Registry) All() []*Entity {
	return slices.Clone(r.list)
}

// Each calls fn for every registered entity in registration order. fn may add
// or remove entities; those changes show up on the next pass.
func (r *Registry) Each(fn func(*Entity)) {
	list := append(r.scratch[:0], r.list...)
	r.scratch = nil
	for _, e := range list {
		if en, ok := r.entries[e.id]; ok && en.entity == e {
			fn(e)
		}
	}
	clear(list)
	r.scratch = list[:0]
}

// Update ticks every registered entity. Inactive ones skip themselves.
func (r *Registry) Update(dt time.Duration) {
	r.Each(func(e *Entity) { e.Update(dt) })
}

// Clear destroys every registered entity and empties the registry.
func (r *Registry) Clear() {
	for _, e := range slices.Clone(r.list) {
		e.Destroy()
		// Destroy normally removes through the Destroyed handler; this covers
		// an entity whose handler was cleared by outside code.
		r.Remove(e.id)
	}
	clear(r.entries)
	clear(r.tagIndex)
	r.list = r.list[:0]
}

// TagCount reports how many distinct tags currently have at least one entity.
func (r *Registry) TagCount() int { return len(r.tagIndex) }

func (r *Registry) indexTag(en *entry, tag string) {
	en.tags[tag] = struct{}{}
	bucket, ok := r.tagIndex[tag]
	if !ok {
		bucket = make(map[EntityID]*Entity)
		r.tagIndex[tag] = bucket
	}
	bucket[en.entity.id] = en.entity
}

func (r *Registry) unindexTag(en *entry, tag string) {
	delete(en.tags, tag)
	bucket, ok := r.tagIndex[tag]
	if !ok {
		return
	}
	delete(bucket, en.entity.id)
	if len(bucket) == 0 {
		delete(r.tagIndex, tag)
	}
}

func (r *Registry) smallestBucket(tags []string) map[EntityID]*Entity {
	best := r.tagIndex[tags[0]]
	for _, t := range tags[1:] {
		b := r.tagIndex[t]
		if len(b) < len(best) {
			best = b
		}
	}
	return best
}

func sortedBucket(bucket map[EntityID]*Entity) []*Entity {
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*Entity, 0, len(bucket))
	for _, e := range bucket {
		out = append(out, e)
	}
	sortByID(out)
	return out
}

func sortByID(es []*Entity) {
	slices.SortFunc(es, func(a, b *Entity) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
}
