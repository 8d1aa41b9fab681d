// Package hint schedules delayed hint reveals for a practice session.
//
// A [Scheduler] is a debounced single-shot timer: every input event calls
// [Scheduler.Arm], which cancels any pending reveal and starts a new delay.
// When the user stays idle for the whole delay the reveal callback runs. A
// zero delay reveals immediately and synchronously.
//
// Re-arming is cancel-then-schedule under one lock. A callback whose timer
// already fired but which lost the race against a newer Arm or Cancel sees a
// stale generation and does nothing, so at most one reveal per arm can ever
// run and never after the user has moved on.
package hint

import (
	"sync"
	"time"
)

// Timer is a cancellable pending callback, satisfied by [*time.Timer].
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. [SystemClock] uses the runtime timers; tests
// substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Option configures a [Scheduler].
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// Scheduler owns the single outstanding hint timer of one engine.
type Scheduler struct {
	clock  Clock
	reveal func()

	mu        sync.Mutex
	delay     time.Duration
	timer     Timer
	gen       uint64
	lastInput time.Time
	stopped   bool
}

// New returns a scheduler that calls reveal after delay of idleness. reveal
// runs on the clock's goroutine when the delay is positive and on the
// caller's goroutine when it is zero; it must not call back into the
// scheduler synchronously.
func New(delay time.Duration, reveal func(), opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:  SystemClock,
		reveal: reveal,
		delay:  max(delay, 0),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Arm records an input event. It cancels the pending reveal and schedules a
// new one, or reveals immediately when the delay is zero.
func (s *Scheduler) Arm() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	s.lastInput = s.clock.Now()
	if s.delay == 0 {
		s.mu.Unlock()
		s.reveal()
		return
	}
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.delay, func() { s.fire(gen) })
	s.mu.Unlock()
}

// fire runs the reveal if no Arm or Cancel happened since generation gen
// was scheduled.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()
	s.reveal()
}

// Cancel drops the pending reveal, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Scheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Armed reports whether a reveal is pending.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// SetDelay changes the idle delay. The change applies from the next Arm.
func (s *Scheduler) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = max(d, 0)
}

// Delay returns the current idle delay.
func (s *Scheduler) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// LastInput returns the time of the most recent Arm.
func (s *Scheduler) LastInput() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInput
}

// Stop cancels the pending reveal and disables the scheduler for good.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.stopped = true
}
