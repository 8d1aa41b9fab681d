package practice

import (
	"github.com/gulley/versify/pkg/match"
)

// Progress is the stored progress document of one poem.
type Progress struct {
	// Fingerprint identifies the poem content the progress was made on.
	// Progress recorded on a different text is stale and not resumed.
	Fingerprint string     `json:"fingerprint"`
	Mode        match.Mode `json:"mode"`

	// Units is the confirmed count: characters in char mode, lines in line
	// mode.
	Units     int     `json:"units"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	Complete  bool    `json:"complete"`
	UpdatedAt int64   `json:"updatedAt"`
}

// Resumable reports whether p can be replayed onto an engine of mode over
// content with the given fingerprint.
func (p Progress) Resumable(fingerprint string, mode match.Mode) bool {
	return !p.Complete && p.Units > 0 && p.Mode == mode && p.Fingerprint != "" && p.Fingerprint == fingerprint
}

func progressOf(pos match.Position, fingerprint string, nowMS int64) Progress {
	done, total := pos.Units()
	return Progress{
		Fingerprint: fingerprint,
		Mode:        pos.Mode,
		Units:       done,
		Total:       total,
		Percent:     pos.Progress(),
		Complete:    pos.Complete,
		UpdatedAt:   nowMS,
	}
}

// restore replays units of confirmed progress onto a fresh engine. Char
// mode seeks the cursor; line mode confirms lines one at a time with their
// own text. It returns the units actually restored.
func restore(e *match.Engine, units int) int {
	switch e.Mode() {
	case match.CharStream:
		if e.Seek(units) {
			return units
		}
	case match.LineBuffer:
		for range e.Position().Lines {
			pos := e.Position()
			if done, _ := pos.Units(); done >= units || pos.Complete {
				return done
			}
			e.SetInput(pos.Lines[pos.Line])
		}
	}
	done, _ := e.Position().Units()
	return done
}
