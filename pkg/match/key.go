package match

import (
	"unicode"
	"unicode/utf8"
)

// Key names for the non-printable keys the engine distinguishes. Names follow
// the DOM KeyboardEvent.key convention so browser clients can forward events
// unchanged.
const (
	KeySpace      = " "
	KeyEnter      = "Enter"
	KeyBackspace  = "Backspace"
	KeyTab        = "Tab"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyHome       = "Home"
	KeyEnd        = "End"
	KeyShift      = "Shift"
)

// passThroughKeys are never rejected by the line-buffer keystroke gate.
var passThroughKeys = map[string]bool{
	KeyBackspace:  true,
	KeyTab:        true,
	KeyEnter:      true,
	KeyArrowLeft:  true,
	KeyArrowRight: true,
	KeyArrowUp:    true,
	KeyArrowDown:  true,
	KeyHome:       true,
	KeyEnd:        true,
}

// Key is a single key press as delivered by the hosting event loop.
type Key struct {
	// Name is the key value: a single character for printable keys, or a
	// name such as [KeyEnter] for everything else.
	Name  string `json:"key"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Shift bool   `json:"shift,omitempty"`
}

// Chorded reports whether the key was pressed together with Ctrl, Alt or
// Meta. Shift does not count: it produces capital letters.
func (k Key) Chorded() bool { return k.Ctrl || k.Alt || k.Meta }

// Rune returns the character a printable key produces. ok is false for named
// keys and for control characters.
func (k Key) Rune() (r rune, ok bool) {
	if k.Name == "" || utf8.RuneCountInString(k.Name) != 1 {
		return 0, false
	}
	r, _ = utf8.DecodeRuneInString(k.Name)
	if r == utf8.RuneError || unicode.IsControl(r) {
		return 0, false
	}
	return r, true
}

// Whitespace reports whether the key is Space or Enter, the two keys that
// advance over whitespace in character-stream practice.
func (k Key) Whitespace() bool { return k.Name == KeySpace || k.Name == KeyEnter }
