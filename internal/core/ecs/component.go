package ecs

import (
	"reflect"
	"time"
)

// Component is a unit of per-entity behavior. Concrete components embed Base,
// which is the only way to satisfy this interface:
//
//	type Health struct {
//		ecs.Base
//		HP int
//	}
//
// Lifecycle hooks are optional; implement any of Attacher, Detacher, Enabler,
// Disabler and Updater.
type Component interface {
	base() *Base
}

type Attacher interface{ OnAttach() }
type Detacher interface{ OnDetach() }
type Enabler interface{ OnEnable() }
type Disabler interface{ OnDisable() }

// Updater receives the per-frame tick while the component is enabled and its
// owner is active.
type Updater interface {
	Update(dt time.Duration)
}

// Base carries the owner back-reference and the enabled flag. The zero value
// is enabled and detached.
type Base struct {
	owner    *Entity
	disabled bool
}

func (b *Base) base() *Base { return b }

func (b *Base) Enabled() bool { return !b.disabled }

// Owner returns the entity the component is attached to, or nil.
func (b *Base) Owner() *Entity { return b.owner }

// ComponentType keys an entity's component map. It is the dynamic type of the
// component value, normally a pointer type such as *Health.
type ComponentType = reflect.Type

func TypeOf(c Component) ComponentType {
	return reflect.TypeOf(c)
}

// TypeFor returns the key used for components of type T.
func TypeFor[T Component]() ComponentType {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// SetEnabled flips c's enabled flag and fires OnEnable/OnDisable. Setting the
// current value does nothing.
func SetEnabled(c Component, enabled bool) {
	b := c.base()
	if b.Enabled() == enabled {
		return
	}
	b.disabled = !enabled
	if enabled {
		if h, ok := c.(Enabler); ok {
			h.OnEnable()
		}
		return
	}
	if h, ok := c.(Disabler); ok {
		h.OnDisable()
	}
}

// OwnerOf is Base.Owner for callers holding only the interface.
func OwnerOf(c Component) *Entity {
	return c.base().owner
}

// DestroyComponent asks the owner to remove c's type. No-op when detached.
func DestroyComponent(c Component) {
	if owner := c.base().owner; owner != nil {
		owner.RemoveComponent(TypeOf(c))
	}
}

// Get returns e's component of type T.
func Get[T Component](e *Entity) (T, bool) {
	var zero T
	c, ok := e.components[TypeFor[T]()]
	if !ok {
		return zero, false
	}
	t, ok := c.(T)
	return t, ok
}

func Has[T Component](e *Entity) bool {
	_, ok := e.components[TypeFor[T]()]
	return ok
}

func Remove[T Component](e *Entity) bool {
	return e.RemoveComponent(TypeFor[T]())
}
