// Package reveal turns a [match.Position] into display data.
//
// [Format] is pure: it reads the engine snapshot and the display options and
// produces a [Frame] of cells, one per rune of the poem, each tagged with a
// [Kind] that tells a renderer how to style it. The same frame drives the
// browser client over the practice WebSocket and the terminal client.
//
// Masking is shared by both engine modes: an unconfirmed ASCII letter is
// shown as a dot (or a blank when dots are off); every other rune is shown
// literally whether or not it has been confirmed.
package reveal

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gulley/versify/pkg/match"
)

// Dot is the rune shown in place of a masked letter.
const Dot = '.'

// Kind classifies a displayed cell.
type Kind uint8

const (
	// Literal is shown as-is and carries no reveal state: punctuation,
	// digits and whitespace, or any rune of a completed poem.
	Literal Kind = iota

	// Revealed is a confirmed rune.
	Revealed

	// Masked is an unconfirmed letter shown as a dot or a blank.
	Masked

	// Hint is the single unconfirmed letter being given away.
	Hint

	// Next marks the CharStream cursor.
	Next

	// Pending is an unconfirmed rune shown plainly under [PromptText].
	Pending
)

var kindNames = [...]string{
	Literal:  "literal",
	Revealed: "revealed",
	Masked:   "masked",
	Hint:     "hint",
	Next:     "next",
	Pending:  "pending",
}

// String returns the lower-case name of k.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// MarshalText implements [encoding.TextMarshaler].
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("reveal: unknown kind %d", k)
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("reveal: unknown kind %q", b)
}

// Prompt selects how the not-yet-typed remainder of a CharStream poem is
// shown.
type Prompt string

const (
	// PromptDots masks remaining letters.
	PromptDots Prompt = "dots"

	// PromptText shows the remaining text plainly.
	PromptText Prompt = "text"

	// PromptNone hides the remaining text entirely.
	PromptNone Prompt = "none"
)

// ParsePrompt validates a prompt name. The empty string selects [PromptDots].
func ParsePrompt(s string) (Prompt, error) {
	switch p := Prompt(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PromptDots, nil
	case PromptDots, PromptText, PromptNone:
		return p, nil
	}
	return "", fmt.Errorf("reveal: unknown prompt mode %q", s)
}

// Options are the display toggles of one render pass.
type Options struct {
	// ShowDots masks letters with [Dot] instead of a blank.
	ShowDots bool

	// ShowHint gives away the first unconfirmed letter of the current line
	// or at the cursor. It is set by the hint scheduler.
	ShowHint bool

	// ShowLine adds a ghost copy of the current LineBuffer line.
	ShowLine bool

	// Prompt controls the CharStream remainder. Zero means [PromptDots].
	Prompt Prompt
}

// DefaultOptions are the display settings of a fresh session.
func DefaultOptions() Options {
	return Options{ShowDots: true, Prompt: PromptDots}
}

func (o Options) mask() rune {
	if o.ShowDots {
		return Dot
	}
	return ' '
}

// Cell is one displayed rune.
type Cell struct {
	Char rune
	Kind Kind
}

type cellJSON struct {
	Char string `json:"c"`
	Kind Kind   `json:"k"`
}

// MarshalJSON encodes the rune as a one-character string.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(cellJSON{Char: string(c.Char), Kind: c.Kind})
}

// UnmarshalJSON implements [json.Unmarshaler].
func (c *Cell) UnmarshalJSON(b []byte) error {
	var v cellJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	r := []rune(v.Char)
	if len(r) != 1 {
		return fmt.Errorf("reveal: cell must hold one rune, got %q", v.Char)
	}
	c.Char, c.Kind = r[0], v.Kind
	return nil
}

// Line is one displayed poem line.
type Line struct {
	Cells []Cell `json:"cells"`

	// Revealed is set for confirmed LineBuffer lines.
	Revealed bool `json:"revealed,omitempty"`

	// Current marks the line holding the cursor or being typed.
	Current bool `json:"current,omitempty"`

	// Ghost is the plain text of the current line when ShowLine is on.
	Ghost string `json:"ghost,omitempty"`
}

// String returns the displayed text of l.
func (l Line) String() string {
	var b strings.Builder
	for _, c := range l.Cells {
		b.WriteRune(c.Char)
	}
	return b.String()
}

// Frame is the complete display state of one render pass.
type Frame struct {
	Mode     match.Mode `json:"mode"`
	Lines    []Line     `json:"lines"`
	Progress float64    `json:"progress"`
	Complete bool       `json:"complete"`
	Hinted   bool       `json:"hinted,omitempty"`
}

// String renders the frame as plain text, one line per row.
func (f Frame) String() string {
	rows := make([]string, len(f.Lines))
	for i, l := range f.Lines {
		rows[i] = l.String()
	}
	return strings.Join(rows, "\n")
}

// Format renders pos under opts. A position with no target produces an
// empty frame.
func Format(pos match.Position, opts Options) Frame {
	f := Frame{
		Mode:     pos.Mode,
		Progress: pos.Progress(),
		Complete: pos.Complete,
	}
	switch pos.Mode {
	case match.CharStream:
		f.Lines, f.Hinted = formatStream(pos, opts)
	case match.LineBuffer:
		f.Lines, f.Hinted = formatBuffer(pos, opts)
	}
	return f
}
