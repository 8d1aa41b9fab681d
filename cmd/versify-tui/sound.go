package main

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(44100)
	chimeGain  = 0.3
)

// chimer plays short confirmation tones. A chimer whose speaker failed to
// initialise stays silent.
type chimer struct {
	enabled bool
}

func newChimer(enabled bool) (*chimer, error) {
	if !enabled {
		return &chimer{}, nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return &chimer{}, err
	}
	return &chimer{enabled: true}, nil
}

// line is played when a line is confirmed.
func (c *chimer) line() {
	if c.enabled {
		speaker.Play(tone(sampleRate, 880, 60*time.Millisecond))
	}
}

// complete is played when the poem is finished.
func (c *chimer) complete() {
	if c.enabled {
		speaker.Play(completionChime(sampleRate))
	}
}

func (c *chimer) close() {
	if c.enabled {
		speaker.Close()
	}
}

// completionChime is a rising C major arpeggio.
func completionChime(rate beep.SampleRate) beep.Streamer {
	return beep.Seq(
		tone(rate, 523.25, 110*time.Millisecond),
		tone(rate, 659.25, 110*time.Millisecond),
		tone(rate, 783.99, 220*time.Millisecond),
	)
}

// tone is a sine at freq that decays linearly to silence over d.
func tone(rate beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	n := rate.N(d)
	sine, err := generators.SineTone(rate, freq)
	if err != nil {
		return beep.Silence(n)
	}
	return &decay{s: beep.Take(n, sine), n: n}
}

type decay struct {
	s   beep.Streamer
	pos int
	n   int
}

func (d *decay) Stream(samples [][2]float64) (int, bool) {
	n, ok := d.s.Stream(samples)
	for i := range samples[:n] {
		g := chimeGain * (1 - float64(d.pos)/float64(d.n))
		samples[i][0] *= g
		samples[i][1] *= g
		d.pos++
	}
	return n, ok
}

func (d *decay) Err() error { return d.s.Err() }
