package poem

import (
	"regexp"
	"strings"
)

var (
	markdownTitleRE  = regexp.MustCompile(`^\s*#+\s*`)
	markdownAuthorRE = regexp.MustCompile(`(?i)^by\s+`)
)

// DetectFormat reports which convention text follows. Text whose first
// non-blank line starts with '#' is markdown; anything else is plain.
func DetectFormat(text string) Format {
	for _, l := range splitLines(text) {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(l), "#") {
			return FormatMarkdown
		}
		return FormatPlain
	}
	return FormatPlain
}

// Parse detects the convention of text with [DetectFormat] and parses it
// accordingly. filename is used for the fallback title and may be empty.
func Parse(text, filename string) (*Document, error) {
	if DetectFormat(text) == FormatMarkdown {
		return ParseMarkdown(text, filename)
	}
	return ParsePlain(text, filename)
}

// ParsePlain parses the title / author / blank / body convention.
//
// A non-blank third line is reported by [Validate] but does not stop parsing:
// the body still starts at line 4. Leading and trailing blank lines of the
// body are trimmed; blank lines between stanzas are kept.
func ParsePlain(text, filename string) (*Document, error) {
	doc := &Document{
		Filename: filename,
		Title:    FallbackTitle(filename),
		Author:   UnknownAuthor,
		Format:   FormatPlain,
	}
	if strings.TrimSpace(text) == "" {
		return doc, &ParseError{Filename: filename, Format: FormatPlain, Err: ErrEmptyText}
	}

	lines := splitLines(text)
	if t := strings.TrimSpace(lines[0]); t != "" {
		doc.Title = t
	}
	if len(lines) > 1 {
		if a := strings.TrimSpace(lines[1]); a != "" {
			doc.Author = a
		}
	}
	if len(lines) > 3 {
		body := strings.TrimSpace(strings.Join(lines[3:], "\n"))
		if body != "" {
			for _, l := range strings.Split(body, "\n") {
				doc.Body = append(doc.Body, Line{Text: l})
			}
		}
	}
	if len(doc.Body) == 0 {
		return doc, &ParseError{Filename: filename, Format: FormatPlain, Err: ErrEmptyBody}
	}
	return doc, nil
}

// ParseMarkdown parses the "# Title" / "*by Author*" convention. All blank
// lines are discarded before the header is read, so the body never contains
// stanza breaks. Body lines are right-trimmed.
func ParseMarkdown(text, filename string) (*Document, error) {
	doc := &Document{
		Filename: filename,
		Title:    FallbackTitle(filename),
		Author:   UnknownAuthor,
		Format:   FormatMarkdown,
	}

	var lines []string
	for _, l := range splitLines(text) {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return doc, &ParseError{Filename: filename, Format: FormatMarkdown, Err: ErrEmptyText}
	}

	if t := strings.TrimSpace(markdownTitleRE.ReplaceAllString(lines[0], "")); t != "" {
		doc.Title = t
	}
	if len(lines) > 1 {
		a := strings.TrimSpace(strings.ReplaceAll(lines[1], "*", ""))
		a = strings.TrimSpace(markdownAuthorRE.ReplaceAllString(a, ""))
		if a != "" {
			doc.Author = a
		}
	}
	if len(lines) > 2 {
		for _, l := range lines[2:] {
			doc.Body = append(doc.Body, Line{Text: strings.TrimRight(l, " \t\r")})
		}
	}
	if len(doc.Body) == 0 {
		return doc, &ParseError{Filename: filename, Format: FormatMarkdown, Err: ErrEmptyBody}
	}
	return doc, nil
}

// splitLines splits on '\n' after folding CRLF line endings.
func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
