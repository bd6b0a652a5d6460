package game

import (
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/scene"
)

const (
	TagEnemy     = "enemy"
	TagPlayer    = "player"
	TagCharacter = "character"
)

// Enemy is a pooled entity. Pool activity is the entity's active flag, so a
// released enemy stops updating and drops out of collision checks at once.
type Enemy struct {
	*ecs.Entity
	Chase    *Chase
	Health   *Health
	Collider *Collider
}

// EnemyConfig sets the stats every pooled enemy is built with.
type EnemyConfig struct {
	Speed  float64
	Health int
	Radius float64
}

// NewEnemyFactory returns a pool factory. Each enemy is registered with reg
// once, inactive, and stays registered for the pool's lifetime.
func NewEnemyFactory(reg *ecs.Registry, cfg EnemyConfig) func() *Enemy {
	return func() *Enemy {
		e := reg.NewEntity(ecs.Options{Tags: []string{TagEnemy}, Inactive: true})
		en := &Enemy{
			Entity:   e,
			Chase:    &Chase{Speed: cfg.Speed},
			Health:   NewHealth(cfg.Health),
			Collider: &Collider{Radius: cfg.Radius},
		}
		e.AddComponent(en.Chase)
		e.AddComponent(en.Health)
		e.AddComponent(en.Collider)
		reg.Add(e)
		return en
	}
}

// Reset restores full health and moves the enemy to the origin.
func (en *Enemy) Reset() {
	en.Health.Reset()
	en.SetPosition(scene.Vec2{})
}

// SetTarget points the chase behavior at t.
func (en *Enemy) SetTarget(t *ecs.Entity) {
	en.Chase.Target = t
}
