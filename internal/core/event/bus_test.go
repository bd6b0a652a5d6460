package event

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type ping struct{ N int }
type pong struct{ S string }

func TestEmitDeliversToTypedSubscribers(t *testing.T) {
	b := NewBus(nil)
	var pings []int
	var pongs []string
	Subscribe(b, func(e ping) { pings = append(pings, e.N) })
	Subscribe(b, func(e pong) { pongs = append(pongs, e.S) })

	Emit(b, ping{N: 1})
	Emit(b, ping{N: 2})
	Emit(b, pong{S: "x"})

	if len(pings) != 2 || pings[0] != 1 || pings[1] != 2 {
		t.Fatalf("pings = %v", pings)
	}
	if len(pongs) != 1 || pongs[0] != "x" {
		t.Fatalf("pongs = %v", pongs)
	}
}

func TestHandlersRunInRegistrationOrder(t *testing.T) {
	b := NewBus(nil)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		Subscribe(b, func(ping) { order = append(order, i) })
	}
	Emit(b, ping{})
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v", order)
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	sub := Subscribe(b, func(ping) { calls++ })
	Emit(b, ping{})
	sub.Cancel()
	sub.Cancel()
	Emit(b, ping{})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if ListenerCount[ping](b) != 0 {
		t.Fatalf("listener count = %d", ListenerCount[ping](b))
	}
}

func TestUnsubscribeForeignSubscriptionIgnored(t *testing.T) {
	a, b := NewBus(nil), NewBus(nil)
	sub := Subscribe(a, func(ping) {})
	b.Unsubscribe(sub)
	if ListenerCount[ping](a) != 1 {
		t.Fatal("unsubscribe through another bus must not remove the handler")
	}
	a.Unsubscribe(sub)
	if ListenerCount[ping](a) != 0 {
		t.Fatal("unsubscribe through owning bus should remove the handler")
	}
}

func TestSnapshotIsolatesInFlightEmission(t *testing.T) {
	b := NewBus(nil)
	var calls []string
	var second Subscription

	Subscribe(b, func(ping) {
		calls = append(calls, "first")
		second.Cancel()
		Subscribe(b, func(ping) { calls = append(calls, "late") })
	})
	second = Subscribe(b, func(ping) { calls = append(calls, "second") })

	Emit(b, ping{})
	// The snapshot taken at emit start still includes "second" and excludes "late".
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("first emission calls = %v", calls)
	}

	calls = nil
	Emit(b, ping{})
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "late" {
		t.Fatalf("second emission calls = %v", calls)
	}
}

func TestSelfCancelDuringDeliveryDoesNotSkipOthers(t *testing.T) {
	b := NewBus(nil)
	hits := make([]int, 3)
	var subs [3]Subscription
	for i := 0; i < 3; i++ {
		i := i
		subs[i] = Subscribe(b, func(ping) {
			hits[i]++
			subs[i].Cancel()
		})
	}
	Emit(b, ping{})
	Emit(b, ping{})
	for i, h := range hits {
		if h != 1 {
			t.Fatalf("handler %d hit %d times", i, h)
		}
	}
}

func TestSubscribeOnceFiresExactlyOnce(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	SubscribeOnce(b, func(e ping) {
		calls++
		if e.N == 0 {
			// Re-entrant emission before the outer delivery finishes.
			Emit(b, ping{N: 1})
		}
	})
	Emit(b, ping{})
	Emit(b, ping{})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if ListenerCount[ping](b) != 0 {
		t.Fatal("once handler should be removed after firing")
	}
}

func TestPanickingHandlerIsIsolatedAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	b := NewBus(zap.New(core))
	after := 0
	Subscribe(b, func(ping) { panic("boom") })
	Subscribe(b, func(ping) { after++ })

	Emit(b, ping{})

	if after != 1 {
		t.Fatalf("handler after the panicking one ran %d times", after)
	}
	if logs.FilterMessage("event handler panicked").Len() != 1 {
		t.Fatalf("expected one panic log, got %d", logs.Len())
	}
}

func TestClearAndClearAll(t *testing.T) {
	b := NewBus(nil)
	Subscribe(b, func(ping) {})
	Subscribe(b, func(ping) {})
	Subscribe(b, func(pong) {})

	Clear[ping](b)
	if ListenerCount[ping](b) != 0 || ListenerCount[pong](b) != 1 {
		t.Fatal("Clear should only drop handlers of the given type")
	}
	b.ClearAll()
	if ListenerCount[pong](b) != 0 {
		t.Fatal("ClearAll should drop everything")
	}
}

func TestClosedBusIsInert(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	Subscribe(b, func(ping) { calls++ })
	b.Close()

	Emit(b, ping{})
	Post(b, ping{})
	sub := Subscribe(b, func(ping) { calls++ })
	sub.Cancel()
	Emit(b, ping{})

	if calls != 0 {
		t.Fatalf("closed bus delivered %d events", calls)
	}
	if !b.Closed() || b.Pending() != 0 {
		t.Fatal("closed bus should report closed with nothing pending")
	}
}

func TestPostDefersUntilFlush(t *testing.T) {
	b := NewBus(nil)
	var got []int
	Subscribe(b, func(e ping) {
		got = append(got, e.N)
		if e.N == 1 {
			Post(b, ping{N: 99})
		}
	})

	Post(b, ping{N: 1})
	Post(b, ping{N: 2})
	if len(got) != 0 {
		t.Fatal("posted events must not be delivered before Flush")
	}
	if n := b.Flush(); n != 2 {
		t.Fatalf("flushed %d, want 2", n)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got = %v", got)
	}
	if b.Pending() != 1 {
		t.Fatalf("event posted during flush should wait, pending = %d", b.Pending())
	}
	b.Flush()
	if got[len(got)-1] != 99 {
		t.Fatalf("got = %v", got)
	}
}

func TestFlushFromHandlerIsIgnored(t *testing.T) {
	b := NewBus(nil)
	var got []int
	nested := -1
	Subscribe(b, func(e ping) {
		got = append(got, e.N)
		if e.N == 1 {
			Post(b, ping{N: 3})
			nested = b.Flush()
		}
	})

	Post(b, ping{N: 1})
	Post(b, ping{N: 2})
	if n := b.Flush(); n != 2 || nested != 0 {
		t.Fatalf("flushed %d, nested %d", n, nested)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got = %v", got)
	}
	if b.Flush() != 1 || got[2] != 3 {
		t.Fatalf("got = %v", got)
	}
}

func TestFlushPreservesOrderAcrossTypes(t *testing.T) {
	b := NewBus(nil)
	var seq []string
	Subscribe(b, func(ping) { seq = append(seq, "ping") })
	Subscribe(b, func(pong) { seq = append(seq, "pong") })

	Post(b, pong{})
	Post(b, ping{})
	Post(b, pong{})
	b.Flush()

	want := []string{"pong", "ping", "pong"}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("seq = %v, want %v", seq, want)
		}
	}
}
