package render

import (
	"math"

	"github.com/l1jgo/simcore/internal/core/scene"
)

// Camera maps world coordinates to terminal cells. One world unit is two
// columns wide and one row tall, so emoji glyphs keep a square footprint.
type Camera struct {
	Center     scene.Vec2
	Zoom       float64 // cells per world unit vertically; 0 means 1
	ViewWidth  int     // in terminal columns
	ViewHeight int     // in terminal rows
}

func NewCamera(viewW, viewH int) *Camera {
	return &Camera{Zoom: 1, ViewWidth: viewW, ViewHeight: viewH}
}

func (c *Camera) zoom() float64 {
	if c.Zoom <= 0 {
		return 1
	}
	return c.Zoom
}

// WorldToScreen converts p to a cell. visible is false when the cell (and
// the column right of it, for wide glyphs) falls outside the viewport.
func (c *Camera) WorldToScreen(p scene.Vec2) (sx, sy int, visible bool) {
	z := c.zoom()
	sx = c.ViewWidth/2 + int(math.Floor((p.X-c.Center.X)*z*2))
	sy = c.ViewHeight/2 + int(math.Floor((p.Y-c.Center.Y)*z))
	visible = sx >= 0 && sx+1 < c.ViewWidth && sy >= 0 && sy < c.ViewHeight
	return
}

// ScreenToWorld returns the world point at the top-left of cell (sx, sy).
func (c *Camera) ScreenToWorld(sx, sy int) scene.Vec2 {
	z := c.zoom()
	return scene.Vec2{
		X: c.Center.X + float64(sx-c.ViewWidth/2)/(z*2),
		Y: c.Center.Y + float64(sy-c.ViewHeight/2)/z,
	}
}
