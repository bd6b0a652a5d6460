package ecs

import (
	"time"

	"github.com/l1jgo/simcore/internal/core/scene"
)

// World is the top-level container: it owns the Registry and a deferred
// destruction queue flushed by CleanupSystem at the end of each update, so
// entities can be killed from inside their own update without tearing down
// mid-pass.
type World struct {
	registry     *Registry
	root         *scene.Node
	destroyQueue []*Entity
	queued       map[*Entity]struct{}
}

// NewWorld creates a world with a fresh scene root as the registry container.
func NewWorld(opts ...RegistryOption) *World {
	root := scene.NewNode()
	return &World{
		registry:     NewRegistry(root, opts...),
		root:         root,
		destroyQueue: make([]*Entity, 0, 64),
		queued:       make(map[*Entity]struct{}, 64),
	}
}

func (w *World) Registry() *Registry { return w.registry }
func (w *World) Root() *scene.Node   { return w.root }

// Spawn creates and registers an entity.
func (w *World) Spawn(opts Options) *Entity {
	return w.registry.Spawn(opts)
}

// Update ticks the registry.
func (w *World) Update(dt time.Duration) {
	w.registry.Update(dt)
}

// MarkForDestruction queues e for the next flush. Marking twice is harmless.
func (w *World) MarkForDestruction(e *Entity) {
	if e == nil || e.destroyed {
		return
	}
	if _, ok := w.queued[e]; ok {
		return
	}
	w.queued[e] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, e)
}

// PendingDestruction reports how many entities wait for the next flush.
func (w *World) PendingDestruction() int { return len(w.destroyQueue) }

// FlushDestroyQueue destroys queued entities in mark order and returns how
// many it destroyed. Entities marked during the flush are destroyed too.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for i := 0; i < len(w.destroyQueue); i++ {
		e := w.destroyQueue[i]
		if !e.destroyed {
			e.Destroy()
			n++
		}
	}
	clear(w.queued)
	clear(w.destroyQueue)
	w.destroyQueue = w.destroyQueue[:0]
	return n
}
