package library

import (
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// SearchOption configures a [Searcher].
type SearchOption func(*Searcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a word that
// also sounds like the query. Default: 0.70.
func WithPhoneticThreshold(threshold float64) SearchOption {
	return func(s *Searcher) { s.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a word that does
// not sound like the query. Default: 0.85.
func WithFuzzyThreshold(threshold float64) SearchOption {
	return func(s *Searcher) { s.fuzzyThreshold = threshold }
}

// Searcher filters poem summaries by a free-text query.
//
// Matching has two stages. First, a poem matches when its title, author or
// preview contains the query, case-insensitively. Only when no poem matches
// that way does the searcher fall back to approximate matching, so a
// misspelt "Frsot" still finds Robert Frost: the query is compared word by
// word against each title and author using Double Metaphone codes and
// Jaro-Winkler similarity.
//
// A Searcher is read-only after construction and safe for concurrent use.
type Searcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewSearcher returns a [Searcher] with default thresholds.
func NewSearcher(opts ...SearchOption) *Searcher {
	s := &Searcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search returns the poems matching query, in their input order. An empty
// query matches everything.
func (s *Searcher) Search(list []Summary, query string) []Summary {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(list)
	}

	var out []Summary
	for _, p := range list {
		if containsFold(p, q) {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		return out
	}

	qTokens := strings.Fields(q)
	qCodes := codesForTokens(qTokens)
	for _, p := range list {
		if s.approx(qTokens, qCodes, q, p.Title) || s.approx(qTokens, qCodes, q, p.Author) {
			out = append(out, p)
		}
	}
	return out
}

func containsFold(p Summary, q string) bool {
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Author), q) ||
		strings.Contains(strings.ToLower(p.Preview), q)
}

// approx reports whether field approximately matches the query.
func (s *Searcher) approx(qTokens []string, qCodes map[string]struct{}, q, field string) bool {
	f := strings.ToLower(strings.TrimSpace(byPrefix.ReplaceAllString(field, "")))
	if f == "" {
		return false
	}
	fTokens := strings.Fields(f)
	score := bestJWScore(qTokens, fTokens, q, f)
	if codesOverlap(qCodes, codesForTokens(fTokens)) {
		return score >= s.phoneticThreshold
	}
	return score >= s.fuzzyThreshold
}

// codesForTokens returns the union of the Double Metaphone codes of tokens.
// Empty codes are skipped.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore is the highest Jaro-Winkler similarity over the whole strings
// and over every pair of tokens.
func bestJWScore(qTokens, fTokens []string, q, f string) float64 {
	score := matchr.JaroWinkler(q, f, false)
	for _, a := range qTokens {
		for _, b := range fTokens {
			if s := matchr.JaroWinkler(a, b, false); s > score {
				score = s
			}
		}
	}
	return score
}
