package game

import (
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/loop"
	"github.com/l1jgo/simcore/internal/core/scene"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/scripting"
)

const frame = 10 * time.Millisecond

type rig struct {
	s     *Session
	clock *loop.ManualClock
	host  *loop.ManualHost
}

func (r *rig) run(frames int) {
	for i := 0; i < frames; i++ {
		r.clock.Advance(frame)
		r.host.Step()
	}
}

// testConfig spawns enemies one unit from the player so contact comes a few
// frames after each spawn.
func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Loop.FixedStep = frame
	cfg.Spawn.Rate = 2
	cfg.Spawn.MaxEnemies = 5
	cfg.Spawn.SpawnRadius = 1
	cfg.Spawn.MinSpawnDistance = 1
	cfg.Spawn.EnemySpeed = 5
	return cfg
}

func newRig(t *testing.T, cfg *config.Config, opts Options) *rig {
	t.Helper()
	r := &rig{clock: loop.NewManualClock(time.Unix(0, 0)), host: &loop.ManualHost{}}
	opts.Clock = r.clock
	opts.Host = r.host
	opts.Rand = rand.New(rand.NewSource(1))
	s, err := NewSession(cfg, opts)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(s.Close)
	r.s = s
	s.Start()
	return r
}

func TestSessionEnemiesChaseAndHitPlayer(t *testing.T) {
	r := newRig(t, testConfig(), Options{})
	r.run(300)

	st := r.s.Stats()
	if st.Hits == 0 {
		t.Fatalf("no contact after 3s: %+v", st)
	}
	if st.PlayerHealth != 100-10*st.Hits {
		t.Fatalf("health %d after %d hits", st.PlayerHealth, st.Hits)
	}
	if st.Spawned != st.Enemies+st.Hits {
		t.Fatalf("every hit enemy should be despawned: %+v", st)
	}
	if st.Frames != 300 || st.Over {
		t.Fatalf("stats = %+v", st)
	}
	for _, en := range r.s.Spawner().Active() {
		if en.Position().Len() < 0.8 {
			t.Fatalf("active enemy %v left inside contact range", en.ID())
		}
	}
}

func TestSessionPlayerDeathPausesLoop(t *testing.T) {
	cfg := testConfig()
	cfg.Player.Health = 20

	core, logs := observer.New(zapcore.InfoLevel)
	r := newRig(t, cfg, Options{Logger: zap.New(core)})

	died := 0
	event.Subscribe(r.s.Bus(), func(PlayerDied) { died++ })

	for i := 0; i < 1000 && !r.s.Over(); i++ {
		r.run(1)
	}
	if !r.s.Over() || died != 1 {
		t.Fatalf("over=%v died=%d", r.s.Over(), died)
	}
	if !r.s.Loop().Paused() || r.s.PlayerHealth().Current != 0 {
		t.Fatal("death should pause the loop with health at zero")
	}
	if logs.FilterMessage("player died").Len() != 1 {
		t.Fatal("death not logged")
	}

	before := r.s.Stats()
	r.run(100)
	after := r.s.Stats()
	if after.Hits != before.Hits || after.Spawned != before.Spawned {
		t.Fatalf("simulation advanced while paused: %+v -> %+v", before, after)
	}
	if after.Frames != before.Frames+100 {
		t.Fatal("paused loop should keep rendering frames")
	}
	if died != 1 {
		t.Fatal("PlayerDied emitted more than once")
	}
}

func TestSessionScriptedDamage(t *testing.T) {
	eng, err := scripting.NewEngine("", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(eng.Close)
	if err := eng.LoadString("damage.lua", `function calc_damage(base, hp) return 3 end`); err != nil {
		t.Fatal(err)
	}

	r := newRig(t, testConfig(), Options{Scripts: eng})
	r.run(200)
	st := r.s.Stats()
	if st.Hits == 0 || st.PlayerHealth != 100-3*st.Hits {
		t.Fatalf("scripted damage not applied: %+v", st)
	}
}

func TestSessionPlayerMovesWithInput(t *testing.T) {
	cfg := testConfig()
	cfg.Spawn.Rate = 0
	in := &StaticInput{}
	r := newRig(t, cfg, Options{Input: in})

	in.Dir.X = 1
	r.run(100)
	if x := r.s.Player().Position().X; x < 4.9 || x > 5.1 {
		t.Fatalf("player x = %v after 1s at speed 5", x)
	}
	if r.s.Stats().Spawned != 0 {
		t.Fatal("rate 0 disables spawning")
	}
}

const testPrefabs = `
prefabs:
  - name: player
    tags: [player]
    components:
      - kind: mover
        params: { speed: 2 }
      - kind: health
        params: { max: 40 }
  - name: drifter
    tags: [decor]
    position: { x: 1, y: 1 }
    components:
      - kind: script
        params: { behavior: drift }
  - name: still
    tags: [decor]
    active: false
`

func TestSessionBuildsPrefabs(t *testing.T) {
	eng, err := scripting.NewEngine("", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(eng.Close)
	if err := eng.LoadString("drift.lua", `behavior("drift", { update = function(self, dt) self:move(dt, 0) end })`); err != nil {
		t.Fatal(err)
	}
	table, err := data.ParsePrefabTable([]byte(testPrefabs))
	if err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Spawn.Rate = 0
	r := newRig(t, cfg, Options{Scripts: eng, Prefabs: table})

	if h := r.s.PlayerHealth(); h.Max != 40 {
		t.Fatalf("player health max = %d, want prefab value", h.Max)
	}
	if !ecs.Has[*Collider](r.s.Player()) {
		t.Fatal("prefab player without collider should get one from config")
	}

	reg := r.s.Registry()
	drifter, ok := reg.GetByName("drifter")
	if !ok {
		t.Fatal("drifter not built")
	}
	still, ok := reg.GetByName("still")
	if !ok || still.Active() {
		t.Fatal("still should exist inactive")
	}
	if n := len(reg.GetByTag("decor")); n != 2 {
		t.Fatalf("decor count = %d", n)
	}

	r.run(50)
	if x := drifter.Position().X; x < 1.49 || x > 1.51 {
		t.Fatalf("drifter x = %v after 0.5s", x)
	}
}

func TestSessionBadPrefabFails(t *testing.T) {
	table, err := data.ParsePrefabTable([]byte(`
prefabs:
  - name: broken
    components:
      - kind: script
        params: { behavior: nope }
`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewSession(testConfig(), Options{Prefabs: table}); err == nil {
		t.Fatal("script kind without an engine should fail the session")
	}
}

type countingRenderer struct{ frames int }

func (c *countingRenderer) Render(*Session) { c.frames++ }

func TestSessionRendersEveryFrameAndCloses(t *testing.T) {
	rend := &countingRenderer{}
	r := newRig(t, testConfig(), Options{Renderer: rend})
	r.run(120)
	if rend.frames != 120 {
		t.Fatalf("rendered %d frames", rend.frames)
	}

	r.s.Stop()
	if r.host.Pending() {
		t.Fatal("stop should cancel the pending frame")
	}
	r.s.Close()
	if n := r.s.Registry().Count(); n != 0 {
		t.Fatalf("registry holds %d entities after close", n)
	}
}

func TestSessionSnapshotRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.Spawn.EnemySpeed = 0
	src := newRig(t, cfg, Options{})
	src.run(160)
	src.s.PlayerHealth().TakeDamage(35)
	src.s.Player().SetPosition(scene.Vec2{X: 2, Y: -1})
	snaps := src.s.Capture()

	dst := newRig(t, cfg, Options{})
	res := dst.s.Restore(snaps)
	if len(res.Missing) != 0 || res.Applied != len(snaps) {
		t.Fatalf("applied=%d missing=%d of %d", res.Applied, len(res.Missing), len(snaps))
	}
	if dst.s.PlayerHealth().Current != 65 || !dst.s.Player().Position().Eq(scene.Vec2{X: 2, Y: -1}, 1e-9) {
		t.Fatal("player state not restored")
	}
	want := src.s.Spawner().ActiveCount()
	if want == 0 || dst.s.Spawner().ActiveCount() != want {
		t.Fatalf("active enemies = %d, want %d", dst.s.Spawner().ActiveCount(), want)
	}
	for _, en := range dst.s.Spawner().Active() {
		if en.Chase.Target != dst.s.Player() || !en.Visible() {
			t.Fatal("restored enemies should be visible and chase the player")
		}
	}
}

func TestSessionRestoreDeadPlayerEndsSession(t *testing.T) {
	cfg := testConfig()
	src := newRig(t, cfg, Options{})
	src.s.PlayerHealth().TakeDamage(1000)
	snaps := src.s.Capture()

	clock := loop.NewManualClock(time.Unix(0, 0))
	host := &loop.ManualHost{}
	dst, err := NewSession(cfg, Options{Clock: clock, Host: host, Rand: rand.New(rand.NewSource(1))})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(dst.Close)

	dst.Restore(snaps)
	died := 0
	event.Subscribe(dst.Bus(), func(PlayerDied) { died++ })
	if !dst.Over() || died != 0 {
		t.Fatalf("before start: over=%v died=%d", dst.Over(), died)
	}

	dst.Start()
	r := &rig{s: dst, clock: clock, host: host}
	r.run(200)
	if died != 1 || !dst.Loop().Paused() {
		t.Fatalf("died=%d paused=%v", died, dst.Loop().Paused())
	}
	if st := dst.Stats(); st.Spawned != 0 || dst.Loop().FixedStepCount() != 0 {
		t.Fatalf("simulation ran after restoring a dead player: %+v", st)
	}
}

func TestSessionRestoreWhileRunning(t *testing.T) {
	cfg := testConfig()
	cfg.Spawn.Rate = 0
	r := newRig(t, cfg, Options{})
	alive := r.s.Capture()

	r.s.PlayerHealth().TakeDamage(1000)
	dead := r.s.Capture()
	r.s.PlayerHealth().Reset()

	died := 0
	event.Subscribe(r.s.Bus(), func(PlayerDied) { died++ })
	r.s.Restore(dead)
	if died != 1 || !r.s.Over() || !r.s.Loop().Paused() {
		t.Fatalf("died=%d over=%v paused=%v", died, r.s.Over(), r.s.Loop().Paused())
	}

	r.s.Restore(alive)
	if r.s.Over() || r.s.Loop().Paused() || r.s.PlayerHealth().Current != 100 {
		t.Fatal("restoring a live player should resume the session")
	}
	r.run(10)
	if r.s.Loop().FixedStepCount() == 0 || died != 1 {
		t.Fatalf("steps=%d died=%d", r.s.Loop().FixedStepCount(), died)
	}
}
