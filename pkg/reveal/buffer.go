package reveal

import (
	"unicode"

	"github.com/gulley/versify/pkg/match"
)

func formatBuffer(pos match.Position, opts Options) ([]Line, bool) {
	if len(pos.Lines) == 0 {
		return nil, false
	}
	out := make([]Line, len(pos.Lines))
	hinted := false
	for i, text := range pos.Lines {
		switch {
		case pos.Complete:
			out[i] = plainLine(text, Literal)
		case pos.IsRevealed(i):
			out[i] = plainLine(text, Revealed)
			out[i].Revealed = true
		case i == pos.Line:
			out[i], hinted = currentLine(text, pos.Pending, opts)
			out[i].Current = true
			if opts.ShowLine {
				out[i].Ghost = text
			}
		default:
			out[i] = maskedLine(text, opts)
		}
	}
	return out, hinted
}

func plainLine(text string, k Kind) Line {
	cells := make([]Cell, 0, len(text))
	for _, r := range text {
		cells = append(cells, Cell{Char: r, Kind: k})
	}
	return Line{Cells: cells}
}

func maskedLine(text string, opts Options) Line {
	cells := make([]Cell, 0, len(text))
	for _, r := range text {
		if match.IsMaskable(r) {
			cells = append(cells, Cell{Char: opts.mask(), Kind: Masked})
		} else {
			cells = append(cells, Cell{Char: r, Kind: Literal})
		}
	}
	return Line{Cells: cells}
}

// currentLine walks the target line against the cleaned pending input:
// runes that survive cleaning are confirmed in order while they keep
// matching, punctuation is always shown.
func currentLine(text, pending string, opts Options) (Line, bool) {
	typed := []rune(match.Clean(pending))
	pos := 0
	hinted := false

	cells := make([]Cell, 0, len(text))
	for _, r := range text {
		lr := unicode.ToLower(r)
		if !cleanable(lr) {
			cells = append(cells, Cell{Char: r, Kind: Literal})
			continue
		}
		switch {
		case pos < len(typed) && typed[pos] == lr:
			cells = append(cells, Cell{Char: r, Kind: Revealed})
			pos++
		case !hinted && opts.ShowHint && match.IsMaskable(r):
			cells = append(cells, Cell{Char: r, Kind: Hint})
			hinted = true
		case match.IsMaskable(r):
			cells = append(cells, Cell{Char: opts.mask(), Kind: Masked})
		default:
			cells = append(cells, Cell{Char: r, Kind: Literal})
		}
	}
	return Line{Cells: cells}, hinted
}

// cleanable reports whether r survives [match.Clean].
func cleanable(r rune) bool {
	return match.Clean(string(r)) != "" || unicode.IsSpace(r)
}
