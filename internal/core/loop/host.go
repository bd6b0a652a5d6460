package loop

import (
	"context"
	"time"
)

// FrameID identifies a pending frame request. Zero means none.
type FrameID uint64

// Host is the frame-callback mechanism the loop schedules itself on. A host
// runs at most one requested callback per frame and never runs two at once.
type Host interface {
	RequestFrame(fn func()) FrameID
	CancelFrame(id FrameID)
}

// ManualHost runs the pending frame only when Step is called.
type ManualHost struct {
	next    FrameID
	pending func()
	id      FrameID
}

func (h *ManualHost) RequestFrame(fn func()) FrameID {
	h.next++
	h.id = h.next
	h.pending = fn
	return h.id
}

func (h *ManualHost) CancelFrame(id FrameID) {
	if id != 0 && id == h.id {
		h.pending = nil
		h.id = 0
	}
}

// Pending reports whether a frame is waiting.
func (h *ManualHost) Pending() bool { return h.pending != nil }

// Step runs the pending frame, if any. Reports whether one ran.
func (h *ManualHost) Step() bool {
	fn := h.pending
	if fn == nil {
		return false
	}
	h.pending = nil
	h.id = 0
	fn()
	return true
}

// TickerHost drives frames from a time.Ticker. Every callback runs on the
// goroutine that called Run, so the loop stays single-threaded.
type TickerHost struct {
	interval time.Duration
	host     ManualHost
}

// NewTickerHost creates a host firing every interval (e.g. time.Second/60).
func NewTickerHost(interval time.Duration) *TickerHost {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &TickerHost{interval: interval}
}

func (h *TickerHost) RequestFrame(fn func()) FrameID { return h.host.RequestFrame(fn) }
func (h *TickerHost) CancelFrame(id FrameID)        { h.host.CancelFrame(id) }

// Run blocks, executing one pending frame per tick, until ctx is done or no
// frame is pending after a tick (the loop was stopped).
func (h *TickerHost) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !h.host.Step() {
				return nil
			}
		}
	}
}
