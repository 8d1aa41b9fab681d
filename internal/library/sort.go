package library

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

// SortMode orders the poem list.
type SortMode string

const (
	SortTitleAsc   SortMode = "alpha-asc"
	SortTitleDesc  SortMode = "alpha-desc"
	SortAuthorAsc  SortMode = "author-asc"
	SortAuthorDesc SortMode = "author-desc"
	SortRecent     SortMode = "recent"
)

// ParseSortMode returns the named mode. Unknown names sort by title.
func ParseSortMode(s string) SortMode {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SortTitleAsc, SortTitleDesc, SortAuthorAsc, SortAuthorDesc, SortRecent:
		return m
	}
	return SortTitleAsc
}

var byPrefix = regexp.MustCompile(`(?i)^by\s+`)

// LastName returns the lower-cased last word of an author line, ignoring a
// leading "by". "by Robert Frost" sorts as "frost".
func LastName(author string) string {
	parts := strings.Fields(byPrefix.ReplaceAllString(strings.TrimSpace(author), ""))
	if len(parts) == 0 {
		return ""
	}
	return strings.ToLower(parts[len(parts)-1])
}

// collate compares strings case-insensitively, falling back to a byte
// comparison so the order is total.
func collate(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Sort orders list in place. The sort is stable: poems that compare equal
// keep their index order. Recent puts never-practised poems last.
func Sort(list []Summary, mode SortMode) {
	var less func(a, b Summary) int
	switch mode {
	case SortTitleDesc:
		less = func(a, b Summary) int { return collate(b.Title, a.Title) }
	case SortAuthorAsc:
		less = func(a, b Summary) int { return collate(LastName(a.Author), LastName(b.Author)) }
	case SortAuthorDesc:
		less = func(a, b Summary) int { return collate(LastName(b.Author), LastName(a.Author)) }
	case SortRecent:
		less = func(a, b Summary) int { return cmp.Compare(practiced(b), practiced(a)) }
	default:
		less = func(a, b Summary) int { return collate(a.Title, b.Title) }
	}
	slices.SortStableFunc(list, less)
}

func practiced(s Summary) int64 {
	if s.LastPracticed == nil {
		return 0
	}
	return *s.LastPracticed
}
