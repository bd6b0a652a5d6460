package game

import (
	"time"

	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/system"
)

// Hit is posted for each overlapping pair found by a watched check. A is the
// entity with the first tag of the pair.
type Hit struct {
	A, B     *ecs.Entity
	Distance float64
}

type tagPair struct{ a, b string }

// CollisionSystem tests circle colliders between tagged groups. Only
// registered, visible entities carrying a Collider take part.
type CollisionSystem struct {
	reg     *ecs.Registry
	bus     *event.Bus
	watched []tagPair
}

// NewCollisionSystem posts hits to bus; a nil bus makes Update a no-op.
func NewCollisionSystem(reg *ecs.Registry, bus *event.Bus) *CollisionSystem {
	return &CollisionSystem{reg: reg, bus: bus}
}

func (c *CollisionSystem) Phase() system.Phase { return system.PhaseUpdate }

// Watch adds a pair checked on every Update.
func (c *CollisionSystem) Watch(tagA, tagB string) {
	c.watched = append(c.watched, tagPair{tagA, tagB})
}

// Update runs every watched check and posts a Hit per collision. Hits are
// queued, not delivered: the bus owner flushes them.
func (c *CollisionSystem) Update(_ time.Duration) {
	if c.bus == nil {
		return
	}
	for _, p := range c.watched {
		for _, hit := range c.Check(p.a, p.b) {
			event.Post(c.bus, hit)
		}
	}
}

// Check returns every pair (a tagged tagA, b tagged tagB) whose colliders
// overlap, strictly closer than the sum of radii. An entity carrying both
// tags never collides with itself.
func (c *CollisionSystem) Check(tagA, tagB string) []Hit {
	groupA := c.group(tagA)
	groupB := c.group(tagB)
	var out []Hit
	for _, a := range groupA {
		for _, b := range groupB {
			if a.e == b.e {
				continue
			}
			d := a.e.Position().Dist(b.e.Position())
			if d < a.col.Radius+b.col.Radius {
				out = append(out, Hit{A: a.e, B: b.e, Distance: d})
			}
		}
	}
	return out
}

// Overlaps reports whether two entities' colliders touch. Hidden entities
// and entities without a Collider never overlap.
func (c *CollisionSystem) Overlaps(a, b *ecs.Entity) bool {
	ca, ok := collider(a)
	if !ok {
		return false
	}
	cb, ok := collider(b)
	if !ok {
		return false
	}
	return a.Position().Dist(b.Position()) < ca.Radius+cb.Radius
}

// CollisionsFor lists entities tagged tag that overlap e, excluding e.
func (c *CollisionSystem) CollisionsFor(e *ecs.Entity, tag string) []*ecs.Entity {
	var out []*ecs.Entity
	for _, o := range c.group(tag) {
		if o.e != e && c.Overlaps(e, o.e) {
			out = append(out, o.e)
		}
	}
	return out
}

type member struct {
	e   *ecs.Entity
	col *Collider
}

func (c *CollisionSystem) group(tag string) []member {
	ents := c.reg.GetByTag(tag)
	out := make([]member, 0, len(ents))
	for _, e := range ents {
		if col, ok := collider(e); ok {
			out = append(out, member{e, col})
		}
	}
	return out
}

func collider(e *ecs.Entity) (*Collider, bool) {
	if !e.Visible() {
		return nil, false
	}
	col, ok := ecs.Get[*Collider](e)
	if !ok || !col.Enabled() {
		return nil, false
	}
	return col, true
}
