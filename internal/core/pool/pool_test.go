package pool

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type bullet struct {
	active bool
	resets int
	hp     int
}

func (b *bullet) Active() bool          { return b.active }
func (b *bullet) SetActive(active bool) { b.active = active }
func (b *bullet) Reset() {
	b.resets++
	b.hp = 10
}

func countingFactory(made *int) func() *bullet {
	return func() *bullet {
		*made++
		return &bullet{hp: 10}
	}
}

func TestInitialInstancesAreInactive(t *testing.T) {
	made := 0
	p := New(countingFactory(&made), Options{Initial: 3, Max: 5})
	if made != 3 || p.TotalCount() != 3 || p.ActiveCount() != 0 {
		t.Fatalf("made=%d total=%d active=%d", made, p.TotalCount(), p.ActiveCount())
	}

	clamped := New(countingFactory(&made), Options{Initial: 10, Max: 2})
	if clamped.TotalCount() != 2 {
		t.Fatalf("initial should clamp to max, total = %d", clamped.TotalCount())
	}
	if New(countingFactory(&made), Options{}).Max() != DefaultMax {
		t.Fatal("zero max should fall back to the default")
	}
}

func TestAcquireReusesFreeInstanceBeforeAllocating(t *testing.T) {
	made := 0
	p := New(countingFactory(&made), Options{Initial: 1, Max: 4})

	a := p.Acquire()
	if made != 1 || !a.Active() || a.resets != 1 {
		t.Fatalf("first acquire should reuse the preallocated instance (made=%d resets=%d)", made, a.resets)
	}
	b := p.Acquire()
	if made != 2 || b == a || !b.Active() {
		t.Fatal("second acquire should allocate")
	}
	if b.resets != 0 {
		t.Fatal("a freshly built instance is not reset")
	}
}

func TestReleaseThenAcquireReturnsSameInstance(t *testing.T) {
	made := 0
	p := New(countingFactory(&made), Options{Max: 4})
	obj := p.Acquire()
	obj.hp = 1

	p.Release(obj)
	if obj.Active() {
		t.Fatal("release should mark inactive")
	}
	if obj.hp != 1 {
		t.Fatal("release must not reset eagerly")
	}

	again := p.Acquire()
	if again != obj {
		t.Fatal("acquire after release should hand back the same instance")
	}
	if again.hp != 10 || again.resets != 1 {
		t.Fatal("reused instance should be reset")
	}
	if made != 1 {
		t.Fatalf("made = %d, want 1", made)
	}
}

func TestTotalNeverExceedsMax(t *testing.T) {
	made := 0
	p := New(countingFactory(&made), Options{Max: 3})
	for i := 0; i < 50; i++ {
		p.Acquire()
		if p.TotalCount() > 3 {
			t.Fatalf("total = %d after %d acquires", p.TotalCount(), i+1)
		}
	}
	if made != 3 {
		t.Fatalf("made = %d, want 3", made)
	}
}

// Saturated pools force-reuse slot 0 even though it is still handed out.
// The overlap is deliberate parity behaviour and is surfaced through a warning
// and the Overflows counter rather than prevented.
func TestOverflowForceReusesFirstSlot(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	made := 0
	p := New(countingFactory(&made), Options{Max: 2, Logger: zap.New(core)})
	first := p.Acquire()
	p.Acquire()
	first.hp = 3

	got := p.Acquire()
	if got != first {
		t.Fatal("overflow should reuse slot 0")
	}
	if !got.Active() {
		t.Fatal("forced reuse leaves the instance active")
	}
	if got.hp != 10 || got.resets != 1 {
		t.Fatal("forced reuse should reset the instance")
	}
	if p.Overflows() != 1 || logs.FilterMessage("pool at capacity, reusing first slot").Len() != 1 {
		t.Fatal("overflow should be counted and logged")
	}
	if p.ActiveCount() != 2 {
		t.Fatalf("active = %d, the reused slot is now shared", p.ActiveCount())
	}
}

func TestTryAcquireRefusesWhenExhausted(t *testing.T) {
	made := 0
	p := New(countingFactory(&made), Options{Max: 1})
	obj, err := p.TryAcquire()
	if err != nil || obj == nil {
		t.Fatalf("first TryAcquire: %v", err)
	}
	if _, err := p.TryAcquire(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if p.Overflows() != 0 {
		t.Fatal("TryAcquire must not count as an overflow")
	}
	p.Release(obj)
	if again, err := p.TryAcquire(); err != nil || again != obj {
		t.Fatal("TryAcquire should succeed again after release")
	}
}

func TestReleaseAllAndEach(t *testing.T) {
	made := 0
	p := New(countingFactory(&made), Options{Max: 5})
	a := p.Acquire()
	b := p.Acquire()
	c := p.Acquire()
	p.Release(b)

	var seen []*bullet
	p.Each(func(x *bullet) { seen = append(seen, x) })
	if len(seen) != 2 || seen[0] != a || seen[1] != c {
		t.Fatal("Each should visit active instances in pool order")
	}
	if act := p.Active(); len(act) != 2 || act[0] != a || act[1] != c {
		t.Fatal("Active should list in-use instances in pool order")
	}

	p.Each(func(x *bullet) { p.Release(x) })
	if p.ActiveCount() != 0 {
		t.Fatal("releasing from Each should work")
	}

	p.Acquire()
	p.Acquire()
	p.ReleaseAll()
	if p.ActiveCount() != 0 || p.TotalCount() != 3 {
		t.Fatalf("active=%d total=%d", p.ActiveCount(), p.TotalCount())
	}
}
