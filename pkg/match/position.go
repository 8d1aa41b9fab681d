package match

// Position is a read-only snapshot of an engine's progress. Text and Lines
// alias the engine's target and must not be modified.
type Position struct {
	Mode     Mode
	Complete bool

	// CharStream fields.
	Text    []rune
	Cursor  int
	Hinting bool

	// LineBuffer fields.
	Lines    []string
	Line     int
	Revealed []bool
	Pending  string
}

// Units returns the confirmed and total unit counts: characters for
// CharStream, lines for LineBuffer.
func (p Position) Units() (done, total int) {
	switch p.Mode {
	case CharStream:
		return min(p.Cursor, len(p.Text)), len(p.Text)
	case LineBuffer:
		for _, r := range p.Revealed {
			if r {
				done++
			}
		}
		return done, len(p.Lines)
	}
	return 0, 0
}

// Progress returns done/total as a percentage. An empty position reports 0.
func (p Position) Progress() float64 {
	done, total := p.Units()
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// IsRevealed reports whether line i has been confirmed. Every line counts as
// revealed once the poem is complete.
func (p Position) IsRevealed(i int) bool {
	if p.Complete {
		return true
	}
	return i >= 0 && i < len(p.Revealed) && p.Revealed[i]
}
