package render

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/l1jgo/simcore/internal/core/loop"
	"github.com/l1jgo/simcore/internal/core/scene"
)

// DefaultHold is how long a key press keeps steering. Terminals report
// presses and auto-repeat but no releases.
const DefaultHold = 150 * time.Millisecond

// Keyboard turns terminal key events into a movement direction. It
// implements game.Input; Direction may be called from the frame goroutine
// while Run feeds events from another.
type Keyboard struct {
	clock loop.Clock
	hold  time.Duration

	mu    sync.Mutex
	dir   scene.Vec2
	since time.Time

	quit     chan struct{}
	quitOnce sync.Once
}

// NewKeyboard creates a keyboard. A nil clock uses the system clock; hold
// <= 0 uses DefaultHold.
func NewKeyboard(clock loop.Clock, hold time.Duration) *Keyboard {
	if clock == nil {
		clock = loop.SystemClock{}
	}
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Keyboard{clock: clock, hold: hold, quit: make(chan struct{})}
}

// Direction returns the last steered direction, or zero once the hold time
// has passed without a new press.
func (k *Keyboard) Direction() scene.Vec2 {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.clock.Now().Sub(k.since) > k.hold {
		return scene.Vec2{}
	}
	return k.dir
}

// Quit is closed when the user asks to leave.
func (k *Keyboard) Quit() <-chan struct{} { return k.quit }

// Run reads events from screen until the screen is finalized or the user
// quits. Resize events resync the screen and call onResize, if set.
func (k *Keyboard) Run(screen tcell.Screen, onResize func()) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		if _, ok := ev.(*tcell.EventResize); ok {
			screen.Sync()
			if onResize != nil {
				onResize()
			}
			continue
		}
		if !k.HandleEvent(ev) {
			return
		}
	}
}

// HandleEvent applies one event. It returns false once quit was requested.
func (k *Keyboard) HandleEvent(ev tcell.Event) bool {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return true
	}
	if isQuit(key) {
		k.quitOnce.Do(func() { close(k.quit) })
		return false
	}
	if d, ok := keyDirection(key); ok {
		k.mu.Lock()
		k.dir = d
		k.since = k.clock.Now()
		k.mu.Unlock()
	}
	return true
}

func isQuit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q' || ev.Rune() == 'Q'
	}
	return false
}

// keyDirection maps arrows, WASD and vi keys to unit directions. Space
// stops. World y grows downward, matching screen rows.
func keyDirection(ev *tcell.EventKey) (scene.Vec2, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return scene.Vec2{Y: -1}, true
	case tcell.KeyDown:
		return scene.Vec2{Y: 1}, true
	case tcell.KeyRight:
		return scene.Vec2{X: 1}, true
	case tcell.KeyLeft:
		return scene.Vec2{X: -1}, true
	case tcell.KeyRune:
	default:
		return scene.Vec2{}, false
	}

	switch ev.Rune() {
	case 'w', 'W', 'k':
		return scene.Vec2{Y: -1}, true
	case 's', 'S', 'j':
		return scene.Vec2{Y: 1}, true
	case 'd', 'D', 'l':
		return scene.Vec2{X: 1}, true
	case 'a', 'A', 'h':
		return scene.Vec2{X: -1}, true
	case 'y':
		return scene.Vec2{X: -1, Y: -1}.Normalize(), true
	case 'u':
		return scene.Vec2{X: 1, Y: -1}.Normalize(), true
	case 'b':
		return scene.Vec2{X: -1, Y: 1}.Normalize(), true
	case 'n':
		return scene.Vec2{X: 1, Y: 1}.Normalize(), true
	case ' ':
		return scene.Vec2{}, true
	}
	return scene.Vec2{}, false
}
