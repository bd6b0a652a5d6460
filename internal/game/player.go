package game

import (
	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/ecs"
)

// NewPlayer registers the player entity: a Mover driven by in, Health and a
// Collider.
func NewPlayer(reg *ecs.Registry, in Input, cfg config.PlayerConfig) *ecs.Entity {
	e := reg.NewEntity(ecs.Options{Name: "player", Tags: []string{TagPlayer, TagCharacter}})
	e.AddComponent(&Mover{Speed: cfg.Speed, Input: in})
	e.AddComponent(NewHealth(cfg.Health))
	e.AddComponent(&Collider{Radius: cfg.Radius})
	return reg.Add(e)
}
