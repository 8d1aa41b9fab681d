package reveal_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/reveal"
)

var gold = []string{
	"Nature's first green is gold,",
	"Her hardest hue to hold.",
	"So dawn goes down to day.",
}

func mustEngine(t *testing.T, mode match.Mode, lines []string) *match.Engine {
	t.Helper()
	e, err := match.New(mode, lines)
	if err != nil {
		t.Fatalf("match.New: %v", err)
	}
	return e
}

func TestFormat_MasksLettersOnly(t *testing.T) {
	t.Parallel()

	e := mustEngine(t, match.LineBuffer, []string{"So dawn goes down to day."})
	f := reveal.Format(e.Position(), reveal.DefaultOptions())

	if got, want := f.String(), ".. .... .... .... .. ...."; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	for _, c := range f.Lines[0].Cells {
		if c.Kind == reveal.Revealed {
			t.Fatalf("unexpected revealed cell %q", c.Char)
		}
	}
}

func TestFormat_BlankMaskWithoutDots(t *testing.T) {
	t.Parallel()

	e := mustEngine(t, match.LineBuffer, []string{"Go, now!"})
	f := reveal.Format(e.Position(), reveal.Options{})

	if got, want := f.String(), "  ,    !"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFormat_DigitsAreLiteral(t *testing.T) {
	t.Parallel()

	e := mustEngine(t, match.LineBuffer, []string{"At 3 a.m."})
	f := reveal.Format(e.Position(), reveal.DefaultOptions())

	if got, want := f.String(), ".. 3 ...."; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFormatLineBuffer_PartialInput(t *testing.T) {
	t.Parallel()

	e := mustEngine(t, match.LineBuffer, gold)
	e.SetInput("natures fi")
	f := reveal.Format(e.Position(), reveal.DefaultOptions())

	if got, want := f.Lines[0].String(), "Nature's fi... ..... .. ....,"; got != want {
		t.Errorf("current line = %q, want %q", got, want)
	}
	if !f.Lines[0].Current {
		t.Error("line 0 not marked current")
	}
	if got := f.Lines[0].Cells[0].Kind; got != reveal.Revealed {
		t.Errorf("first cell kind = %v, want revealed", got)
	}
	if got := f.Lines[0].Cells[6].Kind; got != reveal.Literal {
		t.Errorf("apostrophe kind = %v, want literal", got)
	}
}

func TestFormatLineBuffer_ConfirmedLinesAndProgress(t *testing.T) {
	t.Parallel()

	e := mustEngine(t, match.LineBuffer, gold)
	e.SetInput("natures first green is gold")
	f := reveal.Format(e.Position(), reveal.DefaultOptions())

	if !f.Lines[0].Revealed || f.Lines[0].String() != gold[0] {
		t.Errorf("line 0 = %q revealed=%v, want confirmed text", f.Lines[0].String(), f.Lines[0].Revealed)
	}
	if !f.Lines[1].Current {
		t.Error("line 1 not current after confirming line 0")
	}
	if got := f.Lines[2].String(); got != ".. .... .... .... .. ...." {
		t.Errorf("line 2 = %q, want masked", got)
	}
	if want := 100.0 / 3; math.Abs(f.Progress-want) > 1e-9 {
		t.Errorf("Progress = %v, want %v", f.Progress, want)
	}
}

func TestFormatLineBuffer_HintOnePerFrame(t *testing.T) {
	t.Parallel()

	e := mustEngine(t, match.LineBuffer, gold)
	e.SetInput("natures")
	opts := reveal.DefaultOptions()
	opts.ShowHint = true
	f := reveal.Format(e.Position(), opts)

	hints := 0
	var hinted rune
	for _, l := range f.Lines {
		for _, c := range l.Cells {
			if c.Kind == reveal.Hint {
				hints++
				hinted = c.Char
			}
		}
	}
	if hints != 1 || hinted != 'f' {
		t.Errorf("hints = %d (%q), want exactly one on 'f'", hints, hinted)
	}
	if !f.Hinted {
		t.Error("Frame.Hinted = false")
	}
}

func TestFormatLineBuffer_GhostLine(t *testing.T) {
	t.Parallel()

	e := mustEngine(t, match.LineBuffer, gold)
	opts := reveal.DefaultOptions()
	opts.ShowLine = true
	f := reveal.Format(e.Position(), opts)

	if f.Lines[0].Ghost != gold[0] {
		t.Errorf("ghost = %q, want %q", f.Lines[0].Ghost, gold[0])
	}
	if f.Lines[1].Ghost != "" {
		t.Errorf("non-current line has ghost %q", f.Lines[1].Ghost)
	}
}

func TestFormatLineBuffer_CompleteIsPlain(t *testing.T) {
	t.Parallel()

	e := mustEngine(t, match.LineBuffer, gold)
	for _, l := range gold {
		e.SetInput(l)
	}
	f := reveal.Format(e.Position(), reveal.DefaultOptions())

	if !f.Complete || f.Progress != 100 {
		t.Fatalf("Complete=%v Progress=%v, want true/100", f.Complete, f.Progress)
	}
	for i, l := range f.Lines {
		for _, c := range l.Cells {
			if c.Kind != reveal.Literal {
				t.Fatalf("line %d has %v cell after completion", i, c.Kind)
			}
		}
	}
	if got, want := f.String(), gold[0]+"\n"+gold[1]+"\n"+gold[2]; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFormatCharStream_Prompts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prompt reveal.Prompt
		want   string
	}{
		{name: "dots", prompt: reveal.PromptDots, want: "So .... ....\n.... ..."},
		{name: "text", prompt: reveal.PromptText, want: "So dawn goes\ndown to."},
		{name: "none", prompt: reveal.PromptNone, want: "So" + strings.Repeat(" ", 10) + "\n" + strings.Repeat(" ", 8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := mustEngine(t, match.CharStream, []string{"So dawn goes", "down to."})
			e.Key(match.Key{Name: "s"})
			e.Key(match.Key{Name: "o"})
			f := reveal.Format(e.Position(), reveal.Options{ShowDots: true, Prompt: tt.prompt})

			// The cursor sits on the space after "So".
			if got := f.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if c := f.Lines[0].Cells[2]; c.Kind != reveal.Next {
				t.Errorf("cursor cell = %v, want next", c.Kind)
			}
		})
	}
}

func TestFormatCharStream_Hint(t *testing.T) {
	t.Parallel()

	e := mustEngine(t, match.CharStream, []string{"So dawn"})
	e.Key(match.Key{Name: "s"})
	e.Key(match.Key{Name: "o"})
	e.Key(match.Key{Name: match.KeySpace})

	f := reveal.Format(e.Position(), reveal.DefaultOptions())
	if c := f.Lines[0].Cells[3]; c.Kind != reveal.Next || c.Char != reveal.Dot {
		t.Fatalf("cursor cell = %q/%v, want masked next", c.Char, c.Kind)
	}

	e.Key(match.Key{Name: match.KeySpace, Shift: true})
	f = reveal.Format(e.Position(), reveal.DefaultOptions())
	if c := f.Lines[0].Cells[3]; c.Kind != reveal.Hint || c.Char != 'd' {
		t.Errorf("cursor cell = %q/%v, want hint 'd'", c.Char, c.Kind)
	}
}

func TestFormat_EmptyPosition(t *testing.T) {
	t.Parallel()

	var e match.Engine
	f := reveal.Format(e.Position(), reveal.DefaultOptions())
	if len(f.Lines) != 0 || f.Progress != 0 {
		t.Errorf("Format(empty) = %+v, want empty frame", f)
	}
}

func TestParsePrompt(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]reveal.Prompt{
		"":      reveal.PromptDots,
		"dots":  reveal.PromptDots,
		"TEXT":  reveal.PromptText,
		" none": reveal.PromptNone,
	} {
		got, err := reveal.ParsePrompt(in)
		if err != nil || got != want {
			t.Errorf("ParsePrompt(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := reveal.ParsePrompt("stars"); err == nil {
		t.Error("ParsePrompt(stars) succeeded")
	}
}

func TestCell_JSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(reveal.Cell{Char: 'é', Kind: reveal.Hint})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"c":"é","k":"hint"}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}
	var c reveal.Cell
	if err := json.Unmarshal([]byte(`{"c":"ab","k":"hint"}`), &c); err == nil {
		t.Error("Unmarshal accepted a two-rune cell")
	}
}
