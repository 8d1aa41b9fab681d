package poem_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/gulley/versify/pkg/poem"
)

const frostPlain = `Nothing Gold Can Stay
Robert Frost

Nature's first green is gold,
Her hardest hue to hold.
Her early leaf's a flower;
But only so an hour.
Then leaf subsides to leaf.
So Eden sank to grief,
So dawn goes down to day.
Nothing gold can stay.
`

const frostMarkdown = `
# Nothing Gold Can Stay
*by Robert Frost*

Nature's first green is gold,
Her hardest hue to hold.

Her early leaf's a flower;
But only so an hour.
`

func TestParsePlain_Header(t *testing.T) {
	t.Parallel()

	doc, err := poem.ParsePlain(frostPlain, "nothing-gold.txt")
	if err != nil {
		t.Fatalf("ParsePlain: %v", err)
	}
	if doc.Title != "Nothing Gold Can Stay" {
		t.Errorf("Title = %q, want %q", doc.Title, "Nothing Gold Can Stay")
	}
	if doc.Author != "Robert Frost" {
		t.Errorf("Author = %q, want %q", doc.Author, "Robert Frost")
	}
	if len(doc.Body) != 8 {
		t.Fatalf("len(Body) = %d, want 8", len(doc.Body))
	}
	if doc.Body[0].Text != "Nature's first green is gold," {
		t.Errorf("Body[0] = %q", doc.Body[0].Text)
	}
	if doc.Format != poem.FormatPlain {
		t.Errorf("Format = %v, want plain", doc.Format)
	}
}

func TestParsePlain_PreservesStanzaBreaks(t *testing.T) {
	t.Parallel()

	text := "Title\nAuthor\n\n\n\nfirst\nsecond\n\nthird\n\n\n"
	doc, err := poem.ParsePlain(text, "")
	if err != nil {
		t.Fatalf("ParsePlain: %v", err)
	}
	want := []string{"first", "second", "", "third"}
	if got := doc.Lines(); !slices.Equal(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}

func TestParsePlain_FallbackTitleAndAuthor(t *testing.T) {
	t.Parallel()

	doc, err := poem.ParsePlain("\n\n\nA line\n", "my-favorite-poem.txt")
	if err != nil {
		t.Fatalf("ParsePlain: %v", err)
	}
	if doc.Title != "my favorite poem" {
		t.Errorf("Title = %q, want %q", doc.Title, "my favorite poem")
	}
	if doc.Author != poem.UnknownAuthor {
		t.Errorf("Author = %q, want %q", doc.Author, poem.UnknownAuthor)
	}
}

func TestParsePlain_NonBlankSeparatorStillParses(t *testing.T) {
	t.Parallel()

	doc, err := poem.ParsePlain("Title\nAuthor\nnot blank\nbody line\n", "")
	if err != nil {
		t.Fatalf("ParsePlain: %v", err)
	}
	if got := doc.Lines(); !slices.Equal(got, []string{"body line"}) {
		t.Errorf("Lines() = %q, want [body line]", got)
	}
}

func TestParsePlain_EmptyTextIsParseError(t *testing.T) {
	t.Parallel()

	doc, err := poem.ParsePlain("   \n", "")
	var perr *poem.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if !errors.Is(err, poem.ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
	if doc == nil || doc.Title != poem.UntitledTitle {
		t.Errorf("best-effort document = %+v, want fallback title", doc)
	}
	if !doc.Empty() {
		t.Error("Empty() = false, want true")
	}
}

func TestParsePlain_HeaderOnlyIsEmptyBody(t *testing.T) {
	t.Parallel()

	doc, err := poem.ParsePlain("Title\nAuthor\n\n", "")
	if !errors.Is(err, poem.ErrEmptyBody) {
		t.Fatalf("err = %v, want ErrEmptyBody", err)
	}
	if doc.Title != "Title" || doc.Author != "Author" {
		t.Errorf("header = %q / %q, want Title / Author", doc.Title, doc.Author)
	}
}

func TestParseMarkdown_DropsBlankLines(t *testing.T) {
	t.Parallel()

	doc, err := poem.ParseMarkdown(frostMarkdown, "")
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}
	if doc.Title != "Nothing Gold Can Stay" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.Author != "Robert Frost" {
		t.Errorf("Author = %q", doc.Author)
	}
	want := []string{
		"Nature's first green is gold,",
		"Her hardest hue to hold.",
		"Her early leaf's a flower;",
		"But only so an hour.",
	}
	if got := doc.Lines(); !slices.Equal(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}

func TestParseMarkdown_AuthorVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
	}{
		{"*by Robert Frost*", "Robert Frost"},
		{"By Emily Dickinson", "Emily Dickinson"},
		{"**BY  Walt Whitman**", "Walt Whitman"},
		{"Christina Rossetti", "Christina Rossetti"},
		{"**", poem.UnknownAuthor},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			doc, _ := poem.ParseMarkdown("# T\n"+tt.line+"\nbody\n", "")
			if doc.Author != tt.want {
				t.Errorf("Author = %q, want %q", doc.Author, tt.want)
			}
		})
	}
}

func TestParse_DetectsFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want poem.Format
	}{
		{"markdown", frostMarkdown, poem.FormatMarkdown},
		{"plain", frostPlain, poem.FormatPlain},
		{"empty", "", poem.FormatPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := poem.DetectFormat(tt.text); got != tt.want {
				t.Errorf("DetectFormat = %v, want %v", got, tt.want)
			}
			doc, _ := poem.Parse(tt.text, "")
			if doc.Format != tt.want {
				t.Errorf("Parse().Format = %v, want %v", doc.Format, tt.want)
			}
		})
	}
}

func TestFallbackTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
	}{
		{"my-favorite-poem.txt", "my favorite poem"},
		{"the_road_not_taken.txt", "the road not taken"},
		{"poems/ozymandias.md", "ozymandias"},
		{"", poem.UntitledTitle},
	}
	for _, tt := range tests {
		if got := poem.FallbackTitle(tt.filename); got != tt.want {
			t.Errorf("FallbackTitle(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	doc, err := poem.ParsePlain("T\nA\n\none\ntwo\n\nthree\nfour\n", "")
	if err != nil {
		t.Fatalf("ParsePlain: %v", err)
	}
	md := doc.Metadata()
	if md.LineCount != 4 {
		t.Errorf("LineCount = %d, want 4", md.LineCount)
	}
	if want := len("one\ntwo\n\nthree\nfour"); md.CharCount != want {
		t.Errorf("CharCount = %d, want %d", md.CharCount, want)
	}
	if md.Preview != "one\ntwo\nthree" {
		t.Errorf("Preview = %q, want %q", md.Preview, "one\ntwo\nthree")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantValid bool
		wantErrs  []string
	}{
		{
			name:      "valid",
			text:      frostPlain,
			wantValid: true,
		},
		{
			name:     "missing",
			text:     "",
			wantErrs: []string{poem.MsgMissingText},
		},
		{
			name:     "two lines",
			text:     "Title\nAuthor",
			wantErrs: []string{poem.MsgTooFewLines, poem.MsgSeparatorNotBlank, poem.MsgMissingContent},
		},
		{
			name:     "title only",
			text:     "Title",
			wantErrs: []string{poem.MsgTooFewLines, poem.MsgSeparatorNotBlank, poem.MsgMissingContent},
		},
		{
			name:     "header with trailing newline",
			text:     "Title\nAuthor\n",
			wantErrs: []string{poem.MsgTooFewLines, poem.MsgMissingContent},
		},
		{
			name:     "whitespace only",
			text:     "   ",
			wantErrs: []string{poem.MsgTooFewLines, poem.MsgMissingTitle, poem.MsgSeparatorNotBlank, poem.MsgMissingContent},
		},
		{
			name:     "blank title and author",
			text:     "\n\n\nbody",
			wantErrs: []string{poem.MsgMissingTitle, poem.MsgMissingAuthor},
		},
		{
			name:     "separator not blank",
			text:     "Title\nAuthor\noops\nbody",
			wantErrs: []string{poem.MsgSeparatorNotBlank},
		},
		{
			name:     "no content",
			text:     "Title\nAuthor\n\n  \n",
			wantErrs: []string{poem.MsgMissingContent},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := poem.Validate(tt.text)
			if res.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors %q)", res.Valid, tt.wantValid, res.Errors)
			}
			if !slices.Equal(res.Errors, tt.wantErrs) {
				t.Errorf("Errors = %q, want %q", res.Errors, tt.wantErrs)
			}
			if (res.Err() == nil) != tt.wantValid {
				t.Errorf("Err() = %v, want nil iff valid", res.Err())
			}
		})
	}
}
