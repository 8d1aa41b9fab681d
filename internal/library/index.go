package library

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/gulley/versify/pkg/poem"
)

// IndexEntry is one poem file considered by [GenerateIndex].
type IndexEntry struct {
	Filename string   `json:"filename"`
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// IndexReport is the result of scanning a poem directory.
type IndexReport struct {
	// Entries holds every indexed poem, sorted by title.
	Entries []IndexEntry

	// Skipped lists .txt files excluded by the leading-underscore rule.
	Skipped []string

	// Unreadable maps files that could not be read to their error.
	Unreadable map[string]error
}

// Filenames returns the index content: the entry filenames in order.
func (r *IndexReport) Filenames() []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Filename
	}
	return out
}

// Invalid returns the entries whose header failed validation.
func (r *IndexReport) Invalid() []IndexEntry {
	var out []IndexEntry
	for _, e := range r.Entries {
		if !e.Valid {
			out = append(out, e)
		}
	}
	return out
}

// GenerateIndex scans the top level of fsys for poem files. Files without the
// .txt extension and files whose name starts with "_" are not poems. Each
// poem is checked against the title / author / blank header; poems with a
// broken header are still indexed but reported invalid. Entries are sorted
// by title, then filename.
func GenerateIndex(fsys fs.FS) (*IndexReport, error) {
	dirents, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("library: generate index: %w", err)
	}

	r := &IndexReport{Unreadable: make(map[string]error)}
	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || path.Ext(name) != poemExt {
			continue
		}
		if strings.HasPrefix(name, "_") {
			r.Skipped = append(r.Skipped, name)
			continue
		}
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			r.Unreadable[name] = err
			continue
		}
		r.Entries = append(r.Entries, indexEntry(name, string(b)))
	}

	slices.SortStableFunc(r.Entries, func(a, b IndexEntry) int {
		if c := collate(a.Title, b.Title); c != 0 {
			return c
		}
		return strings.Compare(a.Filename, b.Filename)
	})
	return r, nil
}

// indexEntry checks only the three header lines; body problems are left to
// the practice view.
func indexEntry(filename, text string) IndexEntry {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	at := func(i int) string {
		if i < len(lines) {
			return strings.TrimSpace(lines[i])
		}
		return ""
	}

	e := IndexEntry{Filename: filename, Title: at(0), Author: at(1), Valid: true}
	if e.Title == "" {
		e.Problems = append(e.Problems, poem.MsgMissingTitle)
	}
	if e.Author == "" {
		e.Problems = append(e.Problems, poem.MsgMissingAuthor)
	}
	if len(lines) < 3 || at(2) != "" {
		e.Problems = append(e.Problems, poem.MsgSeparatorNotBlank)
	}
	if len(e.Problems) > 0 {
		e.Valid = false
	}
	if e.Title == "" {
		e.Title = strings.TrimSuffix(filename, poemExt)
	}
	return e
}

// WriteIndex writes filenames as a JSON array indented by two spaces, the
// format read by [Library.Index].
func WriteIndex(w io.Writer, filenames []string) error {
	if filenames == nil {
		filenames = []string{}
	}
	b, err := json.MarshalIndent(filenames, "", "  ")
	if err != nil {
		return fmt.Errorf("library: encode index: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("library: write index: %w", err)
	}
	return nil
}
