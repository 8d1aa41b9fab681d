package poem

import (
	"errors"
	"strings"
)

// Validation messages reported by [Validate], in the order they are checked.
const (
	MsgMissingText       = "Poem text is missing or invalid"
	MsgTooFewLines       = "Poem must have at least 4 lines (title, author, blank, content)"
	MsgMissingTitle      = "Title (line 1) is missing"
	MsgMissingAuthor     = "Author (line 2) is missing"
	MsgSeparatorNotBlank = "Line 3 should be blank to separate metadata from content"
	MsgMissingContent    = "Poem content is missing"
)

// ValidationResult lists the structural problems found in plain-format poem
// text. Problems are warnings: a text that fails validation still parses.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Err joins the validation messages into a single error, or returns nil when
// the text is valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, msg := range r.Errors {
		errs[i] = errors.New(msg)
	}
	return errors.Join(errs...)
}

// Validate checks text against the plain-format header contract. It never
// fails; every problem is reported in the result. Missing text short-circuits
// the remaining checks.
func Validate(text string) ValidationResult {
	var errs []string
	if text == "" {
		return ValidationResult{Valid: false, Errors: []string{MsgMissingText}}
	}

	lines := splitLines(text)
	// A missing line is neither blank nor filled: it never reports a missing
	// title or author, but does fail the separator check.
	blank := func(i int) bool {
		return i < len(lines) && strings.TrimSpace(lines[i]) == ""
	}

	if len(lines) < 4 {
		errs = append(errs, MsgTooFewLines)
	}
	if blank(0) {
		errs = append(errs, MsgMissingTitle)
	}
	if blank(1) {
		errs = append(errs, MsgMissingAuthor)
	}
	if !blank(2) {
		errs = append(errs, MsgSeparatorNotBlank)
	}

	hasContent := false
	if len(lines) > 3 {
		for _, l := range lines[3:] {
			if strings.TrimSpace(l) != "" {
				hasContent = true
				break
			}
		}
	}
	if !hasContent {
		errs = append(errs, MsgMissingContent)
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
