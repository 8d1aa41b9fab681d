package reveal

import "github.com/gulley/versify/pkg/match"

func formatStream(pos match.Position, opts Options) ([]Line, bool) {
	if len(pos.Text) == 0 {
		return nil, false
	}
	lines := []Line{{}}
	hinted := false
	cur := &lines[0]

	for i, r := range pos.Text {
		var c Cell
		switch {
		case pos.Complete || i < pos.Cursor:
			c = Cell{Char: r, Kind: Revealed}
		case i == pos.Cursor:
			c = cursorCell(r, pos.Hinting || opts.ShowHint, opts)
			hinted = c.Kind == Hint
			cur.Current = true
		default:
			c = remainderCell(r, opts)
		}

		if r == '\n' {
			// A cursor parked on a line break is drawn at the end of its
			// line; otherwise the break itself is not a cell.
			if c.Kind == Next {
				cur.Cells = append(cur.Cells, Cell{Char: ' ', Kind: Next})
			}
			lines = append(lines, Line{})
			cur = &lines[len(lines)-1]
			continue
		}
		cur.Cells = append(cur.Cells, c)
	}
	return lines, hinted
}

func cursorCell(r rune, hint bool, opts Options) Cell {
	if !match.IsMaskable(r) {
		return Cell{Char: r, Kind: Next}
	}
	if hint {
		return Cell{Char: r, Kind: Hint}
	}
	if opts.Prompt == PromptText {
		return Cell{Char: r, Kind: Next}
	}
	return Cell{Char: opts.mask(), Kind: Next}
}

func remainderCell(r rune, opts Options) Cell {
	switch opts.Prompt {
	case PromptText:
		return Cell{Char: r, Kind: Pending}
	case PromptNone:
		if r == ' ' || r == '\t' {
			return Cell{Char: r, Kind: Literal}
		}
		return Cell{Char: ' ', Kind: Masked}
	default:
		if match.IsMaskable(r) {
			return Cell{Char: opts.mask(), Kind: Masked}
		}
		return Cell{Char: r, Kind: Literal}
	}
}
