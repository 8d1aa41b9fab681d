package server

import (
	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/reveal"
)

// Client → server message types.
const (
	msgKey      = "key"
	msgKeyUp    = "keyup"
	msgInput    = "input"
	msgReset    = "reset"
	msgSeek     = "seek"
	msgSettings = "settings"
	msgBlur     = "blur"
)

// Server → client message types.
const (
	msgReady = "ready"
	msgFrame = "frame"
	msgGate  = "gate"
	msgError = "error"
)

// clientMessage is any message a practice client sends. Which fields are
// read depends on Type.
type clientMessage struct {
	Type string `json:"type"`

	// key, keyup
	match.Key

	// input
	Value string `json:"value"`

	// seek
	Index int `json:"index"`

	// settings; HintDelay is in seconds.
	ShowDots  *bool    `json:"showDots,omitempty"`
	ShowLine  *bool    `json:"showLine,omitempty"`
	HintDelay *float64 `json:"hintDelay,omitempty"`
	Prompt    *string  `json:"prompt,omitempty"`
}

type poemHeader struct {
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Fingerprint string `json:"fingerprint"`
}

type settingsPayload struct {
	ShowDots  bool          `json:"showDots"`
	ShowLine  bool          `json:"showLine"`
	HintDelay float64       `json:"hintDelay"`
	Prompt    reveal.Prompt `json:"prompt"`
}

// serverMessage is any message the server sends.
type serverMessage struct {
	Type string `json:"type"`

	// ready
	Session  string           `json:"session,omitempty"`
	Poem     *poemHeader      `json:"poem,omitempty"`
	Mode     *match.Mode      `json:"mode,omitempty"`
	Settings *settingsPayload `json:"settings,omitempty"`
	Restored int              `json:"restored,omitempty"`

	// frame
	Seq       uint64        `json:"seq,omitempty"`
	Frame     *reveal.Frame `json:"frame,omitempty"`
	Closeness *float64      `json:"closeness,omitempty"`

	// gate
	Key     string `json:"key,omitempty"`
	Allowed *bool  `json:"allowed,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}
