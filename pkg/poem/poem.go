// Package poem parses raw poem text into a structured [Document].
//
// Two on-disk conventions are supported and exposed as named parse modes:
//
//   - [FormatPlain]: line 1 title, line 2 author, line 3 blank, body from
//     line 4. Stanza breaks inside the body are preserved.
//   - [FormatMarkdown]: "# Title", "*by Author*", then the body. Blank lines
//     are dropped entirely, so stanza breaks are not preserved.
//
// [Parse] picks the convention from the text itself; [ParsePlain] and
// [ParseMarkdown] force one. Parsing is best-effort: when the text is
// malformed a [*ParseError] is returned together with a usable document
// carrying fallback metadata.
package poem

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// UntitledTitle is used when neither the title line nor a filename yields
	// a title.
	UntitledTitle = "Untitled Poem"

	// UnknownAuthor is used when the attribution line is blank.
	UnknownAuthor = "Unknown Author"

	// previewLines is the number of non-blank body lines in [Metadata.Preview].
	previewLines = 3
)

var (
	// ErrEmptyText is wrapped by [ParseError] when the input has no content.
	ErrEmptyText = errors.New("poem: text is empty")

	// ErrEmptyBody is wrapped by [ParseError] when the header parsed but no
	// body lines remain.
	ErrEmptyBody = errors.New("poem: body is empty")
)

// Format identifies the text convention a [Document] was parsed from.
type Format int

const (
	// FormatPlain is the title / author / blank / body convention.
	FormatPlain Format = iota

	// FormatMarkdown is the "# Title" / "*by Author*" convention.
	FormatMarkdown
)

// String returns the lower-case name of the format.
func (f Format) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// Line is a single body line in reading order.
type Line struct {
	Text string `json:"text"`
}

// Blank reports whether the line holds only whitespace.
func (l Line) Blank() bool { return strings.TrimSpace(l.Text) == "" }

// Document is an immutable parsed poem. A new Document is produced for every
// load; nothing mutates one after [Parse] returns it.
type Document struct {
	Filename string `json:"filename,omitempty"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Body     []Line `json:"body"`
	Format   Format `json:"-"`
}

// Lines returns the body as plain strings.
func (d *Document) Lines() []string {
	out := make([]string, len(d.Body))
	for i, l := range d.Body {
		out[i] = l.Text
	}
	return out
}

// Text returns the body lines joined by newlines. This is the flattened
// target text typed in character-stream practice.
func (d *Document) Text() string {
	return strings.Join(d.Lines(), "\n")
}

// Empty reports whether the document has no body to practise.
func (d *Document) Empty() bool {
	return d == nil || len(d.Body) == 0
}

// Metadata summarises a document for list views.
type Metadata struct {
	LineCount int    `json:"lineCount"`
	CharCount int    `json:"charCount"`
	Preview   string `json:"preview"`
}

// Metadata derives the line count, character count and preview of d.
// LineCount counts non-blank lines, CharCount is the rune length of the
// trimmed body text and Preview joins the first three non-blank lines.
func (d *Document) Metadata() Metadata {
	var nonBlank []string
	for _, l := range d.Body {
		if !l.Blank() {
			nonBlank = append(nonBlank, l.Text)
		}
	}
	preview := nonBlank
	if len(preview) > previewLines {
		preview = preview[:previewLines]
	}
	return Metadata{
		LineCount: len(nonBlank),
		CharCount: utf8.RuneCountInString(strings.TrimSpace(d.Text())),
		Preview:   strings.Join(preview, "\n"),
	}
}

// ParseError reports malformed poem text. It is never fatal: the parser
// returns it alongside a best-effort [Document].
type ParseError struct {
	Filename string
	Format   Format
	Err      error
}

func (e *ParseError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("poem: parse %s text: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("poem: parse %s text %q: %v", e.Format, e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FallbackTitle derives a title from filename: the extension is stripped and
// hyphens and underscores become spaces. An empty filename yields
// [UntitledTitle].
func FallbackTitle(filename string) string {
	name := filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	if strings.TrimSpace(name) == "" {
		return UntitledTitle
	}
	return name
}
