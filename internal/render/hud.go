package render

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/l1jgo/simcore/internal/game"
)

// DrawHUD renders the separator and status line at the bottom of the
// screen, and a banner over the view once the session is over.
func (r *Renderer) DrawHUD(st game.Stats) {
	w, h := r.screen.Size()
	hudY := h - hudRows
	r.drawHLine(hudY, tcell.ColorGray)

	hpColor := tcell.ColorGreen
	switch {
	case st.PlayerHealth*4 <= st.PlayerMax:
		hpColor = tcell.ColorRed
	case st.PlayerHealth*2 <= st.PlayerMax:
		hpColor = tcell.ColorYellow
	}
	hp := fmt.Sprintf("HP %d/%d", st.PlayerHealth, st.PlayerMax)
	r.drawText(0, hudY+1, hp, tcell.StyleDefault.Foreground(hpColor))

	rest := fmt.Sprintf("  enemies %d  spawned %d  hits %d  frame %d",
		st.Enemies, st.Spawned, st.Hits, st.Frames)
	r.drawText(runewidth.StringWidth(hp), hudY+1, rest, tcell.StyleDefault.Foreground(tcell.ColorWhite))

	if st.Over {
		msg := "GAME OVER - press q to quit"
		x := (w - runewidth.StringWidth(msg)) / 2
		r.drawText(max(x, 0), (h-hudRows)/2, msg, tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true))
	}
}

func (r *Renderer) drawHLine(y int, color tcell.Color) {
	w, _ := r.screen.Size()
	style := tcell.StyleDefault.Foreground(color)
	for x := 0; x < w; x++ {
		r.screen.SetContent(x, y, '─', nil, style)
	}
}

func (r *Renderer) drawText(x, y int, text string, style tcell.Style) {
	col := x
	for _, ch := range text {
		r.screen.SetContent(col, y, ch, nil, style)
		col += runewidth.RuneWidth(ch)
	}
}
