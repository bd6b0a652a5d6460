package render

import (
	"sort"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/game"
)

// hudRows is the number of bottom rows reserved for the HUD.
const hudRows = 2

// Glyph is how one class of entity is drawn. Lower Order draws first.
type Glyph struct {
	Text  string
	Style tcell.Style
	Order int
}

// Renderer draws a game session onto a tcell screen. It implements
// game.Renderer.
type Renderer struct {
	screen tcell.Screen

	mu     sync.Mutex // guards camera; Resize runs on the input goroutine
	camera *Camera
	glyphs map[string]Glyph // by tag, checked in tagOrder
	tags   []string
	other  Glyph
}

func NewRenderer(screen tcell.Screen) *Renderer {
	w, h := screen.Size()
	r := &Renderer{
		screen: screen,
		camera: NewCamera(w, h-hudRows),
		glyphs: make(map[string]Glyph),
		other:  Glyph{Text: "·", Style: tcell.StyleDefault.Foreground(tcell.ColorGray)},
	}
	r.SetGlyph(game.TagPlayer, Glyph{Text: "🙂", Order: 30})
	r.SetGlyph(game.TagEnemy, Glyph{Text: "👾", Order: 20})
	r.SetGlyph("lit", Glyph{Text: "💡", Order: 10})
	r.SetGlyph("decor", Glyph{Text: "✨", Order: 10})
	return r
}

// SetGlyph sets the glyph for entities tagged tag. Tags set earlier win when
// an entity carries several.
func (r *Renderer) SetGlyph(tag string, g Glyph) {
	if _, ok := r.glyphs[tag]; !ok {
		r.tags = append(r.tags, tag)
	}
	r.glyphs[tag] = g
}

func (r *Renderer) Camera() *Camera { return r.camera }

// Resize updates the viewport after the terminal size changed. Safe to call
// while another goroutine renders.
func (r *Renderer) Resize() {
	w, h := r.screen.Size()
	r.mu.Lock()
	r.camera.ViewWidth = w
	r.camera.ViewHeight = h - hudRows
	r.mu.Unlock()
}

// Render draws one frame centered on the player, then the HUD.
func (r *Renderer) Render(s *game.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screen.Clear()
	if p := s.Player(); p != nil {
		r.camera.Center = p.Position()
	}
	r.drawEntities(s.Registry())
	r.DrawHUD(s.Stats())
	r.screen.Show()
}

type drawable struct {
	e *ecs.Entity
	g Glyph
}

func (r *Renderer) drawEntities(reg *ecs.Registry) {
	all := reg.All()
	list := make([]drawable, 0, len(all))
	for _, e := range all {
		if !e.Visible() {
			continue
		}
		list = append(list, drawable{e, r.glyphFor(e)})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].g.Order < list[j].g.Order })

	for _, d := range list {
		sx, sy, ok := r.camera.WorldToScreen(d.e.Position())
		if !ok {
			continue
		}
		r.putGlyph(sx, sy, d.g.Text, d.g.Style)
	}
}

func (r *Renderer) glyphFor(e *ecs.Entity) Glyph {
	for _, tag := range r.tags {
		if e.HasTag(tag) {
			return r.glyphs[tag]
		}
	}
	return r.other
}

// putGlyph draws a single glyph (ASCII or multi-rune emoji) at (x, y).
func (r *Renderer) putGlyph(x, y int, glyph string, style tcell.Style) {
	runes := []rune(glyph)
	if len(runes) == 0 {
		return
	}
	var combc []rune
	if len(runes) > 1 {
		combc = runes[1:]
	}
	r.screen.SetContent(x, y, runes[0], combc, style)
	if runewidth.StringWidth(glyph) == 2 {
		r.screen.SetContent(x+1, y, ' ', nil, style)
	}
}
