package game

import (
	"time"

	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/scene"
)

// Input supplies a movement direction. Mover normalizes vectors longer
// than 1.
type Input interface {
	Direction() scene.Vec2
}

// StaticInput is an Input with a settable direction.
type StaticInput struct {
	Dir scene.Vec2
}

func (s *StaticInput) Direction() scene.Vec2 { return s.Dir }

// Mover moves its owner along the input direction at Speed units/s.
type Mover struct {
	ecs.Base
	Speed float64
	Input Input
}

func (m *Mover) Update(dt time.Duration) {
	if m.Input == nil {
		return
	}
	dir := m.Input.Direction()
	if dir.IsZero() {
		return
	}
	if dir.Len() > 1 {
		dir = dir.Normalize()
	}
	m.Owner().Translate(dir.Scale(m.Speed * dt.Seconds()))
}

// arriveDistance is how close Chase gets before it stops moving.
const arriveDistance = 0.1

// Chase steers its owner straight at Target.
type Chase struct {
	ecs.Base
	Speed  float64
	Target *ecs.Entity
}

func (c *Chase) Update(dt time.Duration) {
	if c.Target == nil || c.Target.Destroyed() {
		return
	}
	owner := c.Owner()
	delta := c.Target.Position().Sub(owner.Position())
	dist := delta.Len()
	if dist <= arriveDistance {
		return
	}
	step := c.Speed * dt.Seconds()
	if step > dist {
		step = dist
	}
	owner.Translate(delta.Scale(step / dist))
}

// Health tracks hit points. It implements persist.Stateful.
type Health struct {
	ecs.Base
	Max     int
	Current int
}

func NewHealth(hp int) *Health {
	return &Health{Max: hp, Current: hp}
}

// TakeDamage subtracts amount (clamped at zero) and reports whether the
// owner is now dead.
func (h *Health) TakeDamage(amount int) bool {
	if amount < 0 {
		amount = 0
	}
	h.Current -= amount
	if h.Current < 0 {
		h.Current = 0
	}
	return h.Current == 0
}

func (h *Health) Heal(amount int) {
	h.Current = min(h.Max, h.Current+max(amount, 0))
}

func (h *Health) Dead() bool { return h.Current <= 0 }
func (h *Health) Reset()     { h.Current = h.Max }

func (h *Health) StateKey() string { return "health" }

func (h *Health) SaveState() map[string]float64 {
	return map[string]float64{"current": float64(h.Current), "max": float64(h.Max)}
}

func (h *Health) LoadState(m map[string]float64) {
	if v, ok := m["max"]; ok {
		h.Max = int(v)
	}
	if v, ok := m["current"]; ok {
		h.Current = int(v)
	}
}

// Collider is a circle around the owner's position.
type Collider struct {
	ecs.Base
	Radius float64
}
