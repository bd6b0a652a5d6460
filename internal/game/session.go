package game

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/loop"
	"github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/persist"
	"github.com/l1jgo/simcore/internal/scripting"
)

// PrefabPlayer is the prefab name used for the player when a table has it.
const PrefabPlayer = "player"

// Renderer draws a session once per frame.
type Renderer interface {
	Render(s *Session)
}

// PlayerDied is emitted on the session bus when the player's health hits zero.
type PlayerDied struct {
	Player *ecs.Entity
}

type Options struct {
	Logger   *zap.Logger
	Scripts  *scripting.Engine // nil disables script components and damage hooks
	Prefabs  *data.PrefabTable // nil spawns a built-in player only
	Input    Input
	Renderer Renderer
	Clock    loop.Clock
	Host     loop.Host
	Rand     *rand.Rand
}

// Stats is a snapshot of session counters for HUDs and logs.
type Stats struct {
	Enemies      int
	Spawned      int
	Hits         int
	PlayerHealth int
	PlayerMax    int
	Frames       uint64
	Over         bool
}

// Session wires one simulation: a world, its systems and the frame loop.
//
// Fixed steps run the collision check. Each frame then delivers the hits it
// posted, updates every entity, spawns enemies and flushes destruction.
type Session struct {
	cfg *config.Config
	log *zap.Logger

	world     *ecs.World
	bus       *event.Bus
	runner    *system.Runner
	spawn     *SpawnSystem
	collision *CollisionSystem
	loop      *loop.Loop
	scripts   *scripting.Engine
	builder   *data.Builder
	renderer  Renderer

	player *ecs.Entity
	health *Health

	hits         int
	over         bool
	deathPending bool
}

func NewSession(cfg *config.Config, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rng := opts.Rand
	if rng == nil {
		seed := cfg.Spawn.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	in := opts.Input
	if in == nil {
		in = &StaticInput{}
	}

	s := &Session{
		cfg:      cfg,
		log:      log,
		world:    ecs.NewWorld(ecs.WithLogger(log)),
		bus:      event.NewBus(log),
		runner:   system.NewRunner(),
		scripts:  opts.Scripts,
		renderer: opts.Renderer,
	}
	reg := s.world.Registry()

	if opts.Prefabs != nil {
		s.builder = data.NewBuilder(opts.Prefabs, log)
		RegisterKinds(s.builder, in, opts.Scripts)
	}
	if err := s.spawnPlayer(in); err != nil {
		return nil, err
	}
	if err := s.spawnPrefabs(); err != nil {
		return nil, err
	}

	s.spawn = NewSpawnSystem(
		NewEnemyFactory(reg, EnemyConfig{
			Speed:  cfg.Spawn.EnemySpeed,
			Health: cfg.Spawn.EnemyHealth,
			Radius: cfg.Spawn.EnemyRadius,
		}),
		SpawnConfig{
			Rate:             cfg.Spawn.Rate,
			MaxEnemies:       cfg.Spawn.MaxEnemies,
			SpawnRadius:      cfg.Spawn.SpawnRadius,
			MinSpawnDistance: cfg.Spawn.MinSpawnDistance,
			InitialPool:      cfg.Pool.Initial,
			PoolMax:          cfg.Pool.Max,
		},
		rng, log,
	)
	s.spawn.SetTarget(s.player)

	s.collision = NewCollisionSystem(reg, s.bus)
	s.collision.Watch(TagPlayer, TagEnemy)
	event.Subscribe(s.bus, s.onHit)

	s.runner.Register(system.Func{P: system.PhasePreUpdate, Fn: func(time.Duration) { s.bus.Flush() }})
	s.runner.Register(s.collision)
	s.runner.Register(s.spawn)
	s.runner.Register(system.NewCleanupSystem(s.world))

	s.loop = loop.New(loop.Callbacks{
		FixedUpdate: s.fixedUpdate,
		Update:      s.update,
		Render:      s.render,
	}, loop.Options{
		FixedStep: cfg.Loop.FixedStep,
		MaxDelta:  cfg.Loop.MaxDelta,
		Clock:     opts.Clock,
		Host:      opts.Host,
		Logger:    log,
	})
	return s, nil
}

func (s *Session) spawnPlayer(in Input) error {
	reg := s.world.Registry()
	if s.builder == nil || s.builder.Table().Get(PrefabPlayer) == nil {
		s.player = NewPlayer(reg, in, s.cfg.Player)
		s.health, _ = ecs.Get[*Health](s.player)
		return nil
	}

	p, err := s.builder.Build(reg, PrefabPlayer)
	if err != nil {
		return fmt.Errorf("build player: %w", err)
	}
	p.AddTag(TagPlayer)
	if !ecs.Has[*Health](p) {
		p.AddComponent(NewHealth(s.cfg.Player.Health))
	}
	if !ecs.Has[*Collider](p) {
		p.AddComponent(&Collider{Radius: s.cfg.Player.Radius})
	}
	s.player = p
	s.health, _ = ecs.Get[*Health](p)
	return nil
}

func (s *Session) spawnPrefabs() error {
	if s.builder == nil {
		return nil
	}
	for _, name := range s.builder.Table().Names() {
		if name == PrefabPlayer {
			continue
		}
		if _, err := s.builder.Build(s.world.Registry(), name); err != nil {
			return fmt.Errorf("build prefab: %w", err)
		}
	}
	return nil
}

func (s *Session) fixedUpdate(step time.Duration) {
	s.runner.TickPhase(system.PhaseUpdate, step)
}

func (s *Session) update(dt time.Duration) {
	s.runner.TickRange(system.PhaseInput, system.PhasePreUpdate, dt)
	s.world.Update(dt)
	s.runner.TickRange(system.PhasePostUpdate, system.PhaseCleanup, dt)
}

func (s *Session) render() {
	if s.renderer != nil {
		s.renderer.Render(s)
	}
}

// onHit applies a player/enemy contact: the player takes damage and the
// enemy goes back to the pool. A pair posted twice before delivery counts
// once, since the enemy is already inactive.
func (s *Session) onHit(h Hit) {
	en, ok := s.spawn.Find(h.B)
	if !ok || !en.Active() || s.over {
		return
	}
	dmg := s.cfg.Player.Damage
	if s.scripts != nil {
		dmg = s.scripts.CalcDamage(dmg, s.health.Current)
	}
	dead := s.health.TakeDamage(dmg)
	s.spawn.Despawn(en)
	s.hits++

	if dead {
		s.over = true
		s.announceDeath()
	}
}

// announceDeath emits PlayerDied and pauses the loop. Before Start the
// announcement waits for the loop to run, so subscribers added in between
// still see it.
func (s *Session) announceDeath() {
	if !s.loop.Running() {
		s.deathPending = true
		return
	}
	s.deathPending = false
	s.log.Info("player died", zap.Int("hits", s.hits), zap.Uint64("frames", s.loop.FrameCount()))
	event.Emit(s.bus, PlayerDied{Player: s.player})
	s.loop.Pause()
}

// Start begins scheduling frames on the configured host.
func (s *Session) Start() {
	s.loop.Start()
	if s.deathPending {
		s.announceDeath()
	}
}

// Stop halts the loop; the world is left intact.
func (s *Session) Stop() { s.loop.Stop() }

// Close stops the loop and destroys every entity.
func (s *Session) Close() {
	s.loop.Stop()
	s.spawn.Clear()
	s.world.Registry().Clear()
	s.bus.Close()
}

func (s *Session) Loop() *loop.Loop             { return s.loop }
func (s *Session) World() *ecs.World            { return s.world }
func (s *Session) Registry() *ecs.Registry      { return s.world.Registry() }
func (s *Session) Bus() *event.Bus              { return s.bus }
func (s *Session) Player() *ecs.Entity          { return s.player }
func (s *Session) PlayerHealth() *Health        { return s.health }
func (s *Session) Spawner() *SpawnSystem        { return s.spawn }
func (s *Session) Collisions() *CollisionSystem { return s.collision }
func (s *Session) Runner() *system.Runner       { return s.runner }
func (s *Session) Scripts() *scripting.Engine   { return s.scripts }
func (s *Session) Over() bool                   { return s.over }
func (s *Session) Config() *config.Config       { return s.cfg }

// Capture snapshots every registered entity, pooled enemies included.
func (s *Session) Capture() []persist.EntitySnapshot {
	return persist.Capture(s.world.Registry())
}

// Restore applies snaps to the session's entities and points every active
// enemy back at the player. Snapshots of enemies beyond the current pool
// size come back as missing. A restored dead player ends the session the
// same way a fatal hit does; a restored live one resumes it.
func (s *Session) Restore(snaps []persist.EntitySnapshot) persist.RestoreResult {
	res := persist.Restore(s.world.Registry(), snaps)
	for _, en := range s.spawn.Active() {
		en.SetTarget(s.player)
	}
	switch dead := s.health.Dead(); {
	case dead && !s.over:
		s.over = true
		s.announceDeath()
	case !dead && s.over:
		s.over = false
		s.deathPending = false
		s.loop.Resume()
	}
	return res
}

func (s *Session) Stats() Stats {
	return Stats{
		Enemies:      s.spawn.ActiveCount(),
		Spawned:      s.spawn.Spawned(),
		Hits:         s.hits,
		PlayerHealth: s.health.Current,
		PlayerMax:    s.health.Max,
		Frames:       s.loop.FrameCount(),
		Over:         s.over,
	}
}
