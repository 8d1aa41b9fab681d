package main

import (
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep"
)

func drain(t *testing.T, s beep.Streamer) (n int, peak float64) {
	t.Helper()
	buf := make([][2]float64, 512)
	for {
		k, ok := s.Stream(buf)
		for _, smp := range buf[:k] {
			peak = math.Max(peak, math.Max(math.Abs(smp[0]), math.Abs(smp[1])))
		}
		n += k
		if !ok {
			return n, peak
		}
	}
}

func TestTone_LengthAndGain(t *testing.T) {
	n, peak := drain(t, tone(sampleRate, 440, 50*time.Millisecond))
	if want := sampleRate.N(50 * time.Millisecond); n != want {
		t.Errorf("samples = %d, want %d", n, want)
	}
	if peak == 0 || peak > chimeGain {
		t.Errorf("peak = %v, want in (0, %v]", peak, chimeGain)
	}
}

func TestCompletionChime_IsSumOfNotes(t *testing.T) {
	n, _ := drain(t, completionChime(sampleRate))
	want := 2*sampleRate.N(110*time.Millisecond) + sampleRate.N(220*time.Millisecond)
	if n != want {
		t.Errorf("samples = %d, want %d", n, want)
	}
}

func TestChimer_DisabledIsSilent(t *testing.T) {
	c, err := newChimer(false)
	if err != nil {
		t.Fatalf("newChimer(false): %v", err)
	}
	// Must not touch the speaker.
	c.line()
	c.complete()
	c.close()
}
