package match

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// lineBuffer is the per-line fuzzy matcher. pending holds the raw contents
// of the input field for the current line.
type lineBuffer struct {
	lines    []string
	cleaned  []string
	revealed []bool
	current  int
	pending  string
	done     bool
}

func newLineBuffer(lines []string) *lineBuffer {
	b := &lineBuffer{
		lines:    lines,
		cleaned:  make([]string, len(lines)),
		revealed: make([]bool, len(lines)),
	}
	for i, l := range lines {
		b.cleaned[i] = Clean(l)
	}
	b.reset()
	return b
}

func (b *lineBuffer) reset() {
	clear(b.revealed)
	b.current = 0
	b.pending = ""
	b.done = false
	b.skipEmpty()
}

func (b *lineBuffer) complete() bool { return b.done }

// skipEmpty reveals lines with nothing to type (stanza breaks, rules made of
// punctuation) so the user is never asked to confirm them.
func (b *lineBuffer) skipEmpty() {
	for strings.TrimSpace(b.cleaned[b.current]) == "" {
		b.revealed[b.current] = true
		if b.current == len(b.lines)-1 {
			b.done = true
			return
		}
		b.current++
	}
}

func (b *lineBuffer) setInput(s string) Outcome {
	if b.done {
		return Outcome{}
	}
	b.pending = s
	if Clean(s) != b.cleaned[b.current] {
		return Outcome{}
	}

	b.revealed[b.current] = true
	out := Outcome{Advanced: true, Confirmed: 1}
	if b.current == len(b.lines)-1 {
		b.done = true
		out.Completed = true
		return out
	}
	b.current++
	b.pending = ""
	before := b.current
	b.skipEmpty()
	out.Confirmed += b.current - before
	if b.done {
		out.Confirmed++
		out.Completed = true
	}
	return out
}

// nextRune is the target rune at the position the next keystroke would
// fill, counting the pending input in runes.
func (b *lineBuffer) nextRune() (rune, bool) {
	if b.done {
		return 0, false
	}
	target := []rune(b.lines[b.current])
	i := utf8.RuneCountInString(b.pending)
	if i >= len(target) {
		return 0, false
	}
	return target[i], true
}

func (b *lineBuffer) allow(k Key) bool {
	if b.done {
		return false
	}
	if k.Chorded() || passThroughKeys[k.Name] {
		return true
	}
	r, ok := k.Rune()
	if !ok {
		return true
	}
	next, ok := b.nextRune()
	if !ok {
		return false
	}
	if isASCIILetter(next) {
		return foldEqual(r, next)
	}
	return r == next
}

func (b *lineBuffer) closeness() float64 {
	if b.done {
		return 1
	}
	typed := Clean(b.pending)
	if typed == "" {
		return 1
	}
	target := []rune(b.cleaned[b.current])
	n := utf8.RuneCountInString(typed)
	if n > len(target) {
		n = len(target)
	}
	if n == 0 {
		return 0
	}
	return matchr.JaroWinkler(typed, string(target[:n]), false)
}

func (b *lineBuffer) position() Position {
	return Position{
		Mode:     LineBuffer,
		Complete: b.done,
		Lines:    b.lines,
		Line:     b.current,
		Revealed: append([]bool(nil), b.revealed...),
		Pending:  b.pending,
	}
}
