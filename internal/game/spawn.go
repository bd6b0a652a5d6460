package game

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/pool"
	"github.com/l1jgo/simcore/internal/core/scene"
	"github.com/l1jgo/simcore/internal/core/system"
)

type SpawnConfig struct {
	Rate             float64 // enemies per second; <= 0 disables spawning
	MaxEnemies       int
	SpawnRadius      float64
	MinSpawnDistance float64
	InitialPool      int
	PoolMax          int // defaults to MaxEnemies
}

// SpawnSystem keeps a ring of chasing enemies around a target, drawing them
// from a bounded pool.
type SpawnSystem struct {
	cfg    SpawnConfig
	pool   *pool.Pool[*Enemy]
	target *ecs.Entity
	timer  float64
	rng    *rand.Rand
	log    *zap.Logger

	byEntity map[*ecs.Entity]*Enemy
	spawned  int
}

func NewSpawnSystem(factory func() *Enemy, cfg SpawnConfig, rng *rand.Rand, log *zap.Logger) *SpawnSystem {
	if log == nil {
		log = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.MaxEnemies <= 0 {
		cfg.MaxEnemies = 50
	}
	s := &SpawnSystem{
		cfg:      cfg,
		rng:      rng,
		log:      log,
		byEntity: make(map[*ecs.Entity]*Enemy),
	}
	poolMax := cfg.PoolMax
	if poolMax <= 0 {
		poolMax = cfg.MaxEnemies
	}
	s.pool = pool.New(func() *Enemy {
		en := factory()
		s.byEntity[en.Entity] = en
		return en
	}, pool.Options{
		Initial: cfg.InitialPool,
		Max:     poolMax,
		Logger:  log,
	})
	return s
}

func (s *SpawnSystem) Phase() system.Phase { return system.PhasePostUpdate }

// SetTarget sets the entity enemies spawn around and chase. Enemies already
// alive keep their old target.
func (s *SpawnSystem) SetTarget(t *ecs.Entity) { s.target = t }

// Update accumulates spawn time and spawns one enemy per elapsed interval
// while below the enemy cap. Without a target nothing accumulates.
func (s *SpawnSystem) Update(dt time.Duration) {
	if s.target == nil || s.cfg.Rate <= 0 {
		return
	}
	s.timer += dt.Seconds()
	interval := 1 / s.cfg.Rate
	for s.timer >= interval {
		s.timer -= interval
		if s.pool.ActiveCount() < s.cfg.MaxEnemies {
			s.Spawn()
		}
	}
}

// Spawn places one enemy at a random point on the ring
// [MinSpawnDistance, SpawnRadius] around the target.
func (s *SpawnSystem) Spawn() *Enemy {
	en := s.pool.Acquire()
	origin := scene.Vec2{}
	if s.target != nil {
		origin = s.target.Position()
	}
	angle := s.rng.Float64() * 2 * math.Pi
	dist := s.cfg.MinSpawnDistance + s.rng.Float64()*(s.cfg.SpawnRadius-s.cfg.MinSpawnDistance)
	en.SetPosition(origin.Add(scene.Vec2{X: math.Cos(angle) * dist, Y: math.Sin(angle) * dist}))
	en.SetTarget(s.target)
	s.spawned++
	s.log.Debug("enemy spawned",
		zap.Stringer("entity", en.ID()),
		zap.Float64("x", en.Position().X),
		zap.Float64("y", en.Position().Y),
	)
	return en
}

// Despawn returns en to the pool.
func (s *SpawnSystem) Despawn(en *Enemy) {
	s.pool.Release(en)
}

// Find maps an entity back to its pooled enemy, active or not.
func (s *SpawnSystem) Find(e *ecs.Entity) (*Enemy, bool) {
	en, ok := s.byEntity[e]
	return en, ok
}

func (s *SpawnSystem) Active() []*Enemy         { return s.pool.Active() }
func (s *SpawnSystem) ActiveCount() int         { return s.pool.ActiveCount() }
func (s *SpawnSystem) Spawned() int             { return s.spawned }
func (s *SpawnSystem) Pool() *pool.Pool[*Enemy] { return s.pool }

// Clear releases every enemy and resets the spawn timer.
func (s *SpawnSystem) Clear() {
	s.pool.ReleaseAll()
	s.timer = 0
}
