package library_test

import (
	"slices"
	"testing"

	"github.com/gulley/versify/internal/library"
)

func ms(v int64) *int64 { return &v }

var catalogue = []library.Summary{
	{Filename: "gold.txt", Title: "Nothing Gold Can Stay", Author: "Robert Frost", Preview: "Nature's first green is gold,"},
	{Filename: "hope.txt", Title: "Hope is the thing with feathers", Author: "by Emily Dickinson", Preview: "That perches in the soul", LastPracticed: ms(200)},
	{Filename: "ozy.txt", Title: "Ozymandias", Author: "Percy Bysshe Shelley", Preview: "I met a traveller from an antique land", LastPracticed: ms(100)},
	{Filename: "tyger.txt", Title: "The Tyger", Author: "William Blake", Preview: "Tyger Tyger, burning bright"},
}

func filenames(list []library.Summary) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Filename
	}
	return out
}

func TestSearcher_Search(t *testing.T) {
	t.Parallel()
	s := library.NewSearcher()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "empty matches all", query: "  ", want: []string{"gold.txt", "hope.txt", "ozy.txt", "tyger.txt"}},
		{name: "title substring", query: "GOLD", want: []string{"gold.txt"}},
		{name: "author substring", query: "dickinson", want: []string{"hope.txt"}},
		{name: "preview substring", query: "antique", want: []string{"ozy.txt"}},
		{name: "misspelt author", query: "frsot", want: []string{"gold.txt"}},
		{name: "misspelt title", query: "ozymandeas", want: []string{"ozy.txt"}},
		{name: "no match", query: "xylophone", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := filenames(s.Search(catalogue, tt.query))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSearcher_SubstringWinsOverFuzzy(t *testing.T) {
	t.Parallel()
	// "the" is a substring of two titles; fuzzy matching must not add more.
	got := filenames(library.NewSearcher().Search(catalogue, "the"))
	if want := []string{"hope.txt", "tyger.txt"}; !slices.Equal(got, want) {
		t.Errorf("Search(the) = %v, want %v", got, want)
	}
}

func TestSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode library.SortMode
		want []string
	}{
		{library.SortTitleAsc, []string{"hope.txt", "gold.txt", "ozy.txt", "tyger.txt"}},
		{library.SortTitleDesc, []string{"tyger.txt", "ozy.txt", "gold.txt", "hope.txt"}},
		{library.SortAuthorAsc, []string{"tyger.txt", "hope.txt", "gold.txt", "ozy.txt"}},
		{library.SortAuthorDesc, []string{"ozy.txt", "gold.txt", "hope.txt", "tyger.txt"}},
		{library.SortRecent, []string{"hope.txt", "ozy.txt", "gold.txt", "tyger.txt"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			list := append([]library.Summary(nil), catalogue...)
			library.Sort(list, tt.mode)
			if got := filenames(list); !slices.Equal(got, tt.want) {
				t.Errorf("Sort(%s) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestParseSortMode(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]library.SortMode{
		"recent":     library.SortRecent,
		"AUTHOR-ASC": library.SortAuthorAsc,
		"":           library.SortTitleAsc,
		"shuffle":    library.SortTitleAsc,
	} {
		if got := library.ParseSortMode(in); got != want {
			t.Errorf("ParseSortMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLastName(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"by Robert Frost":     "frost",
		"BY  Emily Dickinson": "dickinson",
		"Unknown Author":      "author",
		"Homer":               "homer",
		"":                    "",
	} {
		if got := library.LastName(in); got != want {
			t.Errorf("LastName(%q) = %q, want %q", in, got, want)
		}
	}
}
