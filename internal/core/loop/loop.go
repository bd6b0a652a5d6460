// Package loop is the frame scheduler: a fixed-step simulation pass run as
// many whole steps as the accumulated time allows, one variable-step pass,
// then one render, every frame.
package loop

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultFixedStep = time.Second / 60
	DefaultMaxDelta  = 250 * time.Millisecond
)

// Callbacks are the three per-frame passes. Nil entries are skipped.
type Callbacks struct {
	FixedUpdate func(step time.Duration)
	Update      func(dt time.Duration)
	Render      func()
}

type Options struct {
	FixedStep time.Duration // default DefaultFixedStep
	MaxDelta  time.Duration // per-frame delta clamp, default DefaultMaxDelta
	Clock     Clock         // default SystemClock
	Host      Host          // default a ManualHost (frames run via Frame/Step)
	Logger    *zap.Logger
}

// Loop states: stopped, running, running+paused.
// Accessed only from the host's frame goroutine.
type Loop struct {
	cb        Callbacks
	fixedStep time.Duration
	maxDelta  time.Duration
	clock     Clock
	host      Host
	log       *zap.Logger

	running     bool
	paused      bool
	lastTime    time.Time
	accumulator time.Duration
	frame       FrameID
	frames      uint64
	steps       uint64
}

func New(cb Callbacks, opts Options) *Loop {
	l := &Loop{
		cb:        cb,
		fixedStep: opts.FixedStep,
		maxDelta:  opts.MaxDelta,
		clock:     opts.Clock,
		host:      opts.Host,
		log:       opts.Logger,
	}
	if l.fixedStep <= 0 {
		l.fixedStep = DefaultFixedStep
	}
	if l.maxDelta <= 0 {
		l.maxDelta = DefaultMaxDelta
	}
	if l.clock == nil {
		l.clock = SystemClock{}
	}
	if l.host == nil {
		l.host = &ManualHost{}
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	return l
}

func (l *Loop) Running() bool              { return l.running }
func (l *Loop) Paused() bool               { return l.paused }
func (l *Loop) FixedStep() time.Duration   { return l.fixedStep }
func (l *Loop) Accumulator() time.Duration { return l.accumulator }
func (l *Loop) FrameCount() uint64         { return l.frames }
func (l *Loop) FixedStepCount() uint64     { return l.steps }
func (l *Loop) Host() Host                 { return l.host }

// Alpha is how far the accumulator sits between two fixed steps, in [0,1).
// Renderers use it to interpolate.
func (l *Loop) Alpha() float64 {
	return float64(l.accumulator) / float64(l.fixedStep)
}

// Start moves a stopped loop to running and requests the first frame.
// No-op when already running.
func (l *Loop) Start() {
	if l.running {
		return
	}
	l.running = true
	l.paused = false
	l.lastTime = l.clock.Now()
	l.accumulator = 0
	l.log.Debug("loop started",
		zap.Duration("fixed_step", l.fixedStep),
		zap.Duration("max_delta", l.maxDelta),
	)
	l.schedule()
}

// Stop cancels the pending frame. A frame already running completes, but
// does not reschedule.
func (l *Loop) Stop() {
	if !l.running {
		return
	}
	l.running = false
	l.paused = false
	if l.frame != 0 {
		l.host.CancelFrame(l.frame)
		l.frame = 0
	}
	l.log.Debug("loop stopped", zap.Uint64("frames", l.frames))
}

// Pause freezes simulation. Render keeps running every frame.
func (l *Loop) Pause() {
	if l.running && !l.paused {
		l.paused = true
	}
}

// Resume unfreezes simulation. The paused interval is not charged as delta
// on the next frame.
func (l *Loop) Resume() {
	if !l.running || !l.paused {
		return
	}
	l.paused = false
	l.lastTime = l.clock.Now()
}

// Frame runs one frame body without scheduling another. The host-driven path
// calls it and then reschedules.
func (l *Loop) Frame() {
	now := l.clock.Now()
	dt := now.Sub(l.lastTime)
	if dt < 0 {
		dt = 0
	}
	if dt > l.maxDelta {
		dt = l.maxDelta
	}
	l.lastTime = now

	if !l.paused {
		l.accumulator += dt
		for l.accumulator >= l.fixedStep {
			if l.cb.FixedUpdate != nil {
				l.cb.FixedUpdate(l.fixedStep)
			}
			l.accumulator -= l.fixedStep
			l.steps++
		}
		if l.cb.Update != nil {
			l.cb.Update(dt)
		}
	}
	if l.cb.Render != nil {
		l.cb.Render()
	}
	l.frames++
}

func (l *Loop) tick() {
	l.frame = 0
	if !l.running {
		return
	}
	l.Frame()
	l.schedule()
}

func (l *Loop) schedule() {
	if l.running && l.frame == 0 {
		l.frame = l.host.RequestFrame(l.tick)
	}
}
