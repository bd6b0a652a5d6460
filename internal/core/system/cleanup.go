package system

import (
	"time"

	"github.com/l1jgo/simcore/internal/core/ecs"
)

// CleanupSystem flushes the world's deferred destruction queue at the end of
// a pass.
type CleanupSystem struct {
	world *ecs.World
}

func NewCleanupSystem(world *ecs.World) *CleanupSystem {
	return &CleanupSystem{world: world}
}

func (s *CleanupSystem) Phase() Phase { return PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.world.FlushDestroyQueue()
}
