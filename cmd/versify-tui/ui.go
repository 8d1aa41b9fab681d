package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/gulley/versify/internal/library"
	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/reveal"
)

// Layout of the practice screen: two header rows, a blank row, the poem,
// then the input row in line mode and a status row at the bottom.
const (
	headerRows = 3
	marginLeft = 2
)

var (
	styleDefault  = tcell.StyleDefault
	styleTitle    = tcell.StyleDefault.Bold(true)
	styleAuthor   = tcell.StyleDefault.Italic(true).Foreground(tcell.ColorGray)
	styleMasked   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleRevealed = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleHint     = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleNext     = tcell.StyleDefault.Reverse(true)
	stylePending  = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleGhost    = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleSelected = tcell.StyleDefault.Reverse(true)
)

func cellStyle(k reveal.Kind) tcell.Style {
	switch k {
	case reveal.Revealed:
		return styleRevealed
	case reveal.Masked:
		return styleMasked
	case reveal.Hint:
		return styleHint
	case reveal.Next:
		return styleNext
	case reveal.Pending:
		return stylePending
	}
	return styleDefault
}

// drawText writes s at (x, y) and returns the column after it.
func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) int {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

// view is what the practice screen shows besides the frame.
type view struct {
	title  string
	author string
	input  string
	status string
}

// drawPractice renders one frame. In line mode the typed buffer is drawn
// under the poem, with a ghost of the current line above it when enabled.
func drawPractice(s tcell.Screen, f reveal.Frame, v view) {
	s.Clear()
	_, height := s.Size()

	drawText(s, marginLeft, 0, styleTitle, v.title)
	drawText(s, marginLeft, 1, styleAuthor, v.author)

	y := headerRows
	for _, line := range f.Lines {
		x := marginLeft
		for _, c := range line.Cells {
			s.SetContent(x, y, c.Char, nil, cellStyle(c.Kind))
			x++
		}
		y++
	}

	if f.Mode == match.LineBuffer && !f.Complete {
		y++
		for _, line := range f.Lines {
			if line.Current && line.Ghost != "" {
				drawText(s, marginLeft, y, styleGhost, line.Ghost)
				y++
			}
		}
		x := drawText(s, marginLeft, y, styleDefault, "> "+v.input)
		s.ShowCursor(x, y)
	} else {
		s.HideCursor()
	}

	status := v.status
	if status == "" {
		status = fmt.Sprintf("%3.0f%%  %s mode  Esc quit  Ctrl+R reset  Ctrl+D dots  Ctrl+L line", f.Progress, f.Mode)
		if f.Complete {
			status = "Complete!  Esc quit  Ctrl+R again"
		}
	}
	drawText(s, marginLeft, height-1, styleStatus, status)
	s.Show()
}

// drawPicker renders the poem list with the current search query.
func drawPicker(s tcell.Screen, list []library.Summary, selected int, query string) {
	s.Clear()
	_, height := s.Size()

	drawText(s, marginLeft, 0, styleTitle, "Choose a poem")
	drawText(s, marginLeft, 1, styleStatus, "Search: "+query)

	rows := height - headerRows - 1
	first := 0
	if selected >= rows {
		first = selected - rows + 1
	}
	for i := first; i < len(list) && i-first < rows; i++ {
		p := list[i]
		style := styleDefault
		if i == selected {
			style = styleSelected
		}
		label := p.Title
		if p.Author != "" {
			label += "  (" + p.Author + ")"
		}
		drawText(s, marginLeft, headerRows+i-first, style, label)
	}
	if len(list) == 0 {
		drawText(s, marginLeft, headerRows, styleStatus, "No poems match.")
	}
	drawText(s, marginLeft, height-1, styleStatus, "Up/Down select  Enter practise  Esc quit")
	s.Show()
}

// keyOf converts a terminal key event to the engine's key model. ok is
// false for keys the engine has no name for.
func keyOf(ev *tcell.EventKey) (k match.Key, ok bool) {
	mods := ev.Modifiers()
	k.Alt = mods&tcell.ModAlt != 0
	k.Meta = mods&tcell.ModMeta != 0
	k.Shift = mods&tcell.ModShift != 0
	k.Ctrl = mods&tcell.ModCtrl != 0

	switch ev.Key() {
	case tcell.KeyRune:
		r := ev.Rune()
		k.Name = string(r)
		if r >= 'A' && r <= 'Z' {
			k.Shift = true
		}
		return k, true
	case tcell.KeyEnter:
		k.Name = match.KeyEnter
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		k.Name = match.KeyBackspace
	case tcell.KeyTab:
		k.Name = match.KeyTab
	case tcell.KeyLeft:
		k.Name = match.KeyArrowLeft
	case tcell.KeyRight:
		k.Name = match.KeyArrowRight
	case tcell.KeyUp:
		k.Name = match.KeyArrowUp
	case tcell.KeyDown:
		k.Name = match.KeyArrowDown
	case tcell.KeyHome:
		k.Name = match.KeyHome
	case tcell.KeyEnd:
		k.Name = match.KeyEnd
	default:
		return match.Key{}, false
	}
	return k, true
}

// dropLastRune implements backspace on the line-mode input buffer.
func dropLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}
