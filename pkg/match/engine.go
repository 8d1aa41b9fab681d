// Package match implements the typing-progress engine of a practice session.
//
// An [Engine] tracks what the user has typed against a poem body and decides
// how much of it is confirmed. It has two granularities, selected by [Mode]:
//
//   - [CharStream] steps a single cursor through the flattened body text one
//     keystroke at a time. Wrong letters simply fail to advance.
//   - [LineBuffer] compares the contents of a text field with the current
//     line after [Clean] normalisation and confirms whole lines. A keystroke
//     gate ([Engine.Allow]) can reject wrong letters before they reach the
//     field.
//
// Shared concerns (reset, completion, progress, position) have one contract;
// the mode-specific advancement rules live in separate state types.
//
// An Engine is not safe for concurrent use. The hosting event loop must
// deliver events serially.
package match

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPoem is returned by [New] when there is no practisable text.
var ErrNoPoem = errors.New("match: no poem loaded")

// Mode selects the matching granularity of an [Engine].
type Mode int

const (
	// CharStream confirms one character of the flattened text per keystroke.
	CharStream Mode = iota

	// LineBuffer confirms a whole line when the typed buffer matches it.
	LineBuffer
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case CharStream:
		return "char"
	case LineBuffer:
		return "line"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool { return m == CharStream || m == LineBuffer }

// ParseMode converts a wire name ("char" or "line") to a [Mode].
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "char", "charstream", "stream":
		return CharStream, nil
	case "line", "linebuffer", "buffer":
		return LineBuffer, nil
	}
	return 0, fmt.Errorf("match: unknown mode %q", s)
}

// MarshalText implements [encoding.TextMarshaler].
func (m Mode) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("match: invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler] using [ParseMode].
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Outcome describes the effect of one event on the engine.
type Outcome struct {
	// Advanced is true when the cursor moved or a line was confirmed.
	Advanced bool

	// Confirmed counts the units newly confirmed by the event: characters in
	// CharStream mode, lines in LineBuffer mode.
	Confirmed int

	// Completed is true only for the event that completed the poem.
	Completed bool
}

// modeState is implemented by the per-mode state types.
type modeState interface {
	reset()
	complete() bool
	position() Position
}

// Engine is the typing-progress state machine for one poem. The zero value
// is an engine with no poem loaded: every event is a no-op and
// [Engine.Loaded] reports false.
type Engine struct {
	mode   Mode
	state  modeState
	stream *charStream
	buffer *lineBuffer
}

// New creates an engine over the body lines of a poem. It returns
// [ErrNoPoem] when lines hold no visible text.
func New(mode Mode, lines []string) (*Engine, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("match: new engine: invalid mode %d", int(mode))
	}
	if !hasText(lines) {
		return nil, ErrNoPoem
	}

	e := &Engine{mode: mode}
	switch mode {
	case CharStream:
		e.stream = newCharStream(strings.Join(lines, "\n"))
		e.state = e.stream
	case LineBuffer:
		e.buffer = newLineBuffer(lines)
		e.state = e.buffer
	}
	return e, nil
}

func hasText(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}

// Mode returns the granularity the engine was created with.
func (e *Engine) Mode() Mode { return e.mode }

// Loaded reports whether the engine has a poem to practise.
func (e *Engine) Loaded() bool { return e != nil && e.state != nil }

// IsComplete reports whether the whole poem has been confirmed. A completed
// engine ignores every further input event.
func (e *Engine) IsComplete() bool {
	return e.Loaded() && e.state.complete()
}

// Reset returns the engine to the state of a fresh load of the same text.
func (e *Engine) Reset() {
	if e.Loaded() {
		e.state.reset()
	}
}

// Position returns a snapshot of the engine's progress for rendering.
func (e *Engine) Position() Position {
	if !e.Loaded() {
		return Position{Mode: e.mode}
	}
	return e.state.position()
}

// Progress returns the confirmed percentage in [0, 100].
func (e *Engine) Progress() float64 { return e.Position().Progress() }

// Key feeds a key press to the engine.
//
// In CharStream mode printable keys and Space/Enter advance the cursor as
// described on [Engine]; Shift+Space turns the session hint on. In LineBuffer
// mode keys do not change state; use [Engine.Allow] to gate them and
// [Engine.SetInput] to deliver the resulting field contents.
func (e *Engine) Key(k Key) Outcome {
	if e.stream == nil {
		return Outcome{}
	}
	return e.stream.key(k)
}

// KeyUp feeds a key release. Releasing Space or Shift ends a CharStream
// session hint.
func (e *Engine) KeyUp(k Key) {
	if e.stream != nil && (k.Name == KeySpace || k.Name == KeyShift) {
		e.stream.hinting = false
	}
}

// Blur ends a CharStream session hint when the input loses focus.
func (e *Engine) Blur() {
	if e.stream != nil {
		e.stream.hinting = false
	}
}

// SetHinting toggles the CharStream session hint directly.
func (e *Engine) SetHinting(on bool) {
	if e.stream != nil {
		e.stream.hinting = on
	}
}

// Seek moves the CharStream cursor to index, as when the user clicks a
// masked character. Out-of-range indexes and completed engines are ignored.
func (e *Engine) Seek(index int) bool {
	if e.stream == nil {
		return false
	}
	return e.stream.seek(index)
}

// SetInput delivers the current contents of the LineBuffer input field.
func (e *Engine) SetInput(s string) Outcome {
	if e.buffer == nil {
		return Outcome{}
	}
	return e.buffer.setInput(s)
}

// Allow is the LineBuffer keystroke gate. It reports whether k may reach the
// input field. Rejection is a normal outcome, not an error. In CharStream mode
// every key is allowed.
func (e *Engine) Allow(k Key) bool {
	if e.buffer == nil {
		return e.Loaded() && !e.IsComplete()
	}
	return e.buffer.allow(k)
}

// NextRune returns the next expected character: the rune under the
// CharStream cursor, or the LineBuffer rune following the pending input.
func (e *Engine) NextRune() (rune, bool) {
	switch {
	case e.stream != nil:
		return e.stream.at(e.stream.cursor)
	case e.buffer != nil:
		return e.buffer.nextRune()
	}
	return 0, false
}

// Closeness scores how close the LineBuffer input is to the start of the
// current line, from 0 (unrelated) to 1 (on track). It is always 1 in
// CharStream mode, where wrong letters never enter the text.
func (e *Engine) Closeness() float64 {
	if e.buffer == nil {
		return 1
	}
	return e.buffer.closeness()
}
