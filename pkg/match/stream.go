package match

import "unicode"

// charStream is the whole-text stepper. cursor indexes the next unconfirmed
// rune of text.
type charStream struct {
	text    []rune
	cursor  int
	hinting bool
}

func newCharStream(text string) *charStream {
	return &charStream{text: []rune(text)}
}

func (s *charStream) reset() {
	s.cursor = 0
	s.hinting = false
}

func (s *charStream) complete() bool { return s.cursor >= len(s.text) }

// at returns the rune at i, or false past either end of the text.
func (s *charStream) at(i int) (rune, bool) {
	if i < 0 || i >= len(s.text) {
		return 0, false
	}
	return s.text[i], true
}

// runeAt is at without the flag; out-of-range positions read as NUL, which
// matches neither whitespace nor any key.
func (s *charStream) runeAt(i int) rune {
	r, _ := s.at(i)
	return r
}

func (s *charStream) key(k Key) Outcome {
	if s.complete() {
		return Outcome{}
	}
	if k.Name == KeySpace && k.Shift {
		s.hinting = true
		return Outcome{}
	}

	before := s.cursor
	if k.Whitespace() {
		s.advanceWhitespace()
	} else if r, ok := k.Rune(); ok && !k.Chorded() {
		expected := s.runeAt(s.cursor)
		if !unicode.IsSpace(expected) && foldEqual(r, expected) {
			s.cursor++
			s.skipLineEnd()
		}
	}
	return s.outcome(before)
}

// advanceWhitespace handles Space and Enter. A trailing space and its line
// break are consumed together.
func (s *charStream) advanceWhitespace() {
	next, following := s.runeAt(s.cursor), s.runeAt(s.cursor+1)
	switch {
	case next == ' ' && following == '\n':
		s.cursor += 2
	case next == '\n':
		s.cursor++
	case unicode.IsSpace(next):
		s.cursor++
		if s.runeAt(s.cursor) == '\n' {
			s.cursor++
		}
	}
}

// skipLineEnd runs after a confirmed character so the user never has to type
// a line break, or a trailing space before one.
func (s *charStream) skipLineEnd() {
	switch {
	case s.runeAt(s.cursor) == '\n':
		s.cursor++
	case s.runeAt(s.cursor) == ' ' && s.runeAt(s.cursor+1) == '\n':
		s.cursor += 2
	}
}

func (s *charStream) seek(index int) bool {
	if s.complete() || index < 0 || index >= len(s.text) {
		return false
	}
	s.cursor = index
	return true
}

func (s *charStream) outcome(before int) Outcome {
	if s.cursor > len(s.text) {
		s.cursor = len(s.text)
	}
	if s.cursor == before {
		return Outcome{}
	}
	return Outcome{
		Advanced:  true,
		Confirmed: s.cursor - before,
		Completed: s.complete(),
	}
}

func (s *charStream) position() Position {
	return Position{
		Mode:     CharStream,
		Complete: s.complete(),
		Text:     s.text,
		Cursor:   s.cursor,
		Hinting:  s.hinting,
	}
}
