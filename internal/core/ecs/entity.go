package ecs

import (
	"slices"
	"time"

	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/scene"
	"go.uber.org/zap"
)

// Options configures a new Entity. The zero value gives an active, untagged
// entity named after its ID.
type Options struct {
	Name     string
	Tags     []string
	Inactive bool
	Logger   *zap.Logger
}

// Entity is a named, tagged container of components with a spatial node.
// At most one component per concrete type is attached at a time.
// Accessed only from the simulation goroutine.
type Entity struct {
	id     EntityID
	name   string
	tags   map[string]struct{}
	active bool
	node   *scene.Node

	components map[ComponentType]Component
	order      []Component // attachment order, drives Update
	scratch    []Component
	updating   bool

	events    *event.Bus
	log       *zap.Logger
	destroyed bool
}

func NewEntity(id EntityID, opts Options) *Entity {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	e := &Entity{
		id:         id,
		name:       opts.Name,
		tags:       make(map[string]struct{}, len(opts.Tags)),
		active:     !opts.Inactive,
		node:       scene.NewNode(),
		components: make(map[ComponentType]Component, 4),
		events:     event.NewBus(log),
		log:        log,
	}
	if e.name == "" {
		e.name = id.String()
	}
	for _, t := range opts.Tags {
		e.tags[t] = struct{}{}
	}
	e.node.SetVisible(e.active)
	return e
}

func (e *Entity) ID() EntityID         { return e.id }
func (e *Entity) Name() string         { return e.name }
func (e *Entity) SetName(name string)  { e.name = name }
func (e *Entity) Events() *event.Bus   { return e.events }
func (e *Entity) Node() *scene.Node    { return e.node }
func (e *Entity) Position() scene.Vec2 { return e.node.Position }
func (e *Entity) Visible() bool        { return e.node.Visible() }
func (e *Entity) Destroyed() bool      { return e.destroyed }
func (e *Entity) Active() bool         { return e.active }
func (e *Entity) ComponentCount() int  { return len(e.order) }

// SetPosition moves the entity to p.
func (e *Entity) SetPosition(p scene.Vec2) { e.node.Position = p }

// Translate moves the entity by d.
func (e *Entity) Translate(d scene.Vec2) {
	e.node.Position = e.node.Position.Add(d)
}

// SetActive toggles the active flag and node visibility. While inactive the
// entity's Update does nothing.
func (e *Entity) SetActive(active bool) {
	if e.active == active {
		return
	}
	e.active = active
	e.node.SetVisible(active)
	if active {
		event.Emit(e.events, Activated{Entity: e})
	} else {
		event.Emit(e.events, Deactivated{Entity: e})
	}
}

// AddComponent attaches c and returns it. If a component of the same concrete
// type is already attached, c is discarded and the existing one is returned.
// A component attached elsewhere is detached from its old owner first.
func (e *Entity) AddComponent(c Component) Component {
	t := TypeOf(c)
	if existing, ok := e.components[t]; ok {
		e.log.Warn("component type already attached",
			zap.String("entity", e.name),
			zap.Stringer("type", t),
		)
		return existing
	}
	if prev := c.base().owner; prev != nil {
		prev.RemoveComponent(t)
	}

	e.components[t] = c
	e.order = append(e.order, c)
	c.base().owner = e
	if h, ok := c.(Attacher); ok {
		h.OnAttach()
	}
	event.Emit(e.events, ComponentAdded{Entity: e, Component: c})
	return c
}

// RemoveComponent detaches the component of type t. Reports false if none is
// attached.
func (e *Entity) RemoveComponent(t ComponentType) bool {
	c, ok := e.components[t]
	if !ok {
		return false
	}
	if h, ok := c.(Detacher); ok {
		h.OnDetach()
	}
	c.base().owner = nil
	delete(e.components, t)
	if i := slices.Index(e.order, c); i >= 0 {
		e.order = slices.Delete(e.order, i, i+1)
	}
	event.Emit(e.events, ComponentRemoved{Entity: e, Component: c})
	return true
}

func (e *Entity) GetComponent(t ComponentType) (Component, bool) {
	c, ok := e.components[t]
	return c, ok
}

func (e *Entity) HasComponent(t ComponentType) bool {
	_, ok := e.components[t]
	return ok
}

// Components returns the attached components in attachment order.
func (e *Entity) Components() []Component {
	return slices.Clone(e.order)
}

// AddTag adds tag. Adding a tag the entity already has emits nothing.
func (e *Entity) AddTag(tag string) {
	if _, ok := e.tags[tag]; ok {
		return
	}
	e.tags[tag] = struct{}{}
	event.Emit(e.events, TagAdded{Entity: e, Tag: tag})
}

// RemoveTag removes tag. Removing an absent tag emits nothing.
func (e *Entity) RemoveTag(tag string) {
	if _, ok := e.tags[tag]; !ok {
		return
	}
	delete(e.tags, tag)
	event.Emit(e.events, TagRemoved{Entity: e, Tag: tag})
}

func (e *Entity) HasTag(tag string) bool {
	_, ok := e.tags[tag]
	return ok
}

// HasTags reports whether e carries every tag. True for an empty list.
func (e *Entity) HasTags(tags ...string) bool {
	for _, t := range tags {
		if _, ok := e.tags[t]; !ok {
			return false
		}
	}
	return true
}

// HasAnyTag reports whether e carries at least one of tags.
func (e *Entity) HasAnyTag(tags ...string) bool {
	for _, t := range tags {
		if _, ok := e.tags[t]; ok {
			return true
		}
	}
	return false
}

// Tags returns the tag set as a sorted slice.
func (e *Entity) Tags() []string {
	out := make([]string, 0, len(e.tags))
	for t := range e.tags {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Update ticks every enabled component in attachment order. Components added
// during the pass wait for the next one; components removed during the pass
// are skipped.
func (e *Entity) Update(dt time.Duration) {
	if !e.active || e.destroyed {
		return
	}
	var list []Component
	if e.updating {
		list = make([]Component, 0, len(e.order))
	} else {
		list = e.scratch[:0]
	}
	list = append(list, e.order...)

	outer := e.updating
	e.updating = true
	for _, c := range list {
		b := c.base()
		if b.owner != e || b.disabled {
			continue
		}
		if u, ok := c.(Updater); ok {
			u.Update(dt)
		}
		if !e.active || e.destroyed {
			break
		}
	}
	e.updating = outer

	if !outer {
		clear(list)
		e.scratch = list[:0]
	}
}

// Destroy detaches every component (OnDetach only, no per-component events),
// drops all tags silently, leaves the scene graph, emits Destroyed and closes
// the event bus. Calling it again does nothing.
func (e *Entity) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true

	comps := e.order
	e.order = nil
	clear(e.components)
	for _, c := range comps {
		if h, ok := c.(Detacher); ok {
			h.OnDetach()
		}
		c.base().owner = nil
	}

	clear(e.tags)
	e.node.RemoveFromParent()

	event.Emit(e.events, Destroyed{Entity: e})
	e.events.Close()
}
