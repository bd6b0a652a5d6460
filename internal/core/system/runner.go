package system

import "time"

// Runner executes systems in phase order each pass. Systems sharing a phase
// keep their registration order. Registering during a pass takes effect on
// the next one.
type Runner struct {
	phases [phaseCount][]System
	n      int
}

func NewRunner() *Runner {
	return &Runner{}
}

// Register adds s at the end of its phase. Systems reporting a phase
// outside the known range run with PhaseCleanup.
func (r *Runner) Register(s System) {
	p := clampPhase(s.Phase())
	r.phases[p] = append(r.phases[p], s)
	r.n++
}

func (r *Runner) Len() int { return r.n }

// Tick runs every system once.
func (r *Runner) Tick(dt time.Duration) {
	r.TickRange(PhaseInput, PhaseCleanup, dt)
}

// TickPhase runs only the systems registered for phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.TickRange(phase, phase, dt)
}

// TickRange runs the systems whose phase lies in [from, to].
func (r *Runner) TickRange(from, to Phase, dt time.Duration) {
	if from < PhaseInput {
		from = PhaseInput
	}
	for p := from; p <= to && p < phaseCount; p++ {
		for _, s := range r.phases[p] {
			s.Update(dt)
		}
	}
}

func clampPhase(p Phase) Phase {
	switch {
	case p < PhaseInput:
		return PhaseInput
	case p >= phaseCount:
		return PhaseCleanup
	}
	return p
}
