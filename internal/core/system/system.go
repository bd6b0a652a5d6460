package system

import "time"

// Phase orders systems within one pass of the runner.
type Phase int

const (
	PhaseInput      Phase = iota // 0: consume input / queued commands
	PhasePreUpdate               // 1: deliver last pass's deferred events
	PhaseUpdate                  // 2: simulation logic
	PhasePostUpdate              // 3: spawning, bookkeeping
	PhaseCleanup                 // 4: destroy queued entities

	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every simulation system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Func adapts a plain function into a System.
type Func struct {
	P  Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() Phase            { return f.P }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
