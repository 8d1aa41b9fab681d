// Package practice runs practice sessions: one poem, one match engine and
// one hint scheduler per session, with every event serialised and each
// resulting display frame handed to a sink.
package practice

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gulley/versify/internal/hint"
	"github.com/gulley/versify/internal/library"
	"github.com/gulley/versify/internal/observe"
	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/reveal"
	"github.com/gulley/versify/pkg/store"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("practice: session closed")

// Update is one frame delivered to a session's sink.
type Update struct {
	// Seq increases by one with every update of a session.
	Seq   uint64
	Frame reveal.Frame

	// Closeness is the line-mode similarity of the pending input to the
	// current line, in [0, 1].
	Closeness float64
}

// Sink receives the updates of one session, in order. It is never called
// concurrently for the same session.
type Sink func(Update)

// Info describes a live session.
type Info struct {
	ID        string     `json:"id"`
	Poem      string     `json:"poem"`
	Mode      match.Mode `json:"mode"`
	StartedAt time.Time  `json:"startedAt"`
	Progress  float64    `json:"progress"`
	Complete  bool       `json:"complete"`
}

// Session is a single practice run. All exported methods are safe for
// concurrent use.
type Session struct {
	id      string
	poem    *library.Poem
	file    string
	started time.Time
	sink    Sink
	svc     *store.Service
	metrics *observe.Metrics
	log     *slog.Logger
	now     func() time.Time
	hints   *hint.Scheduler

	// sendMu orders sink calls. It is taken before mu is released so frames
	// leave in the order their transitions happened.
	sendMu sync.Mutex

	mu       sync.Mutex
	engine   *match.Engine
	settings Settings
	showHint bool
	seq      uint64
	closed   bool
	restored int
	wasReset bool
}

// sessionConfig carries the dependencies of a new session.
type sessionConfig struct {
	filename string
	poem     *library.Poem
	mode     match.Mode
	settings Settings
	sink     Sink
	svc      *store.Service
	metrics  *observe.Metrics
	log      *slog.Logger
	clock    hint.Clock
	resume   bool
}

func newSession(ctx context.Context, cfg sessionConfig) (*Session, error) {
	engine, err := match.New(cfg.mode, cfg.poem.Document.Lines())
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:       uuid.NewString(),
		poem:     cfg.poem,
		file:     cfg.filename,
		sink:     cfg.sink,
		svc:      cfg.svc,
		metrics:  cfg.metrics,
		now:      cfg.clock.Now,
		engine:   engine,
		settings: cfg.settings,
	}
	s.started = s.now()
	s.log = cfg.log.With("session_id", s.id, "poem", cfg.filename)
	s.hints = hint.New(cfg.settings.HintDelay, s.revealHint, hint.WithClock(cfg.clock))

	if cfg.resume {
		var p Progress
		if s.svc.Progress(ctx, s.file, &p) && p.Resumable(s.poem.Fingerprint, cfg.mode) {
			s.restored = restore(engine, p.Units)
			s.log.Debug("resumed progress", "units", s.restored)
		}
	}
	s.svc.MarkPracticed(ctx, s.file)
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Poem returns the poem being practiced.
func (s *Session) Poem() *library.Poem { return s.poem }

// Restored returns the units replayed from stored progress when the session
// opened.
func (s *Session) Restored() int { return s.restored }

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.id,
		Poem:      s.file,
		Mode:      s.engine.Mode(),
		StartedAt: s.started,
		Progress:  s.engine.Progress(),
		Complete:  s.engine.IsComplete(),
	}
}

// Settings returns the current display settings.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Frame renders the current state without changing it.
func (s *Session) Frame() reveal.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reveal.Format(s.engine.Position(), s.settings.options(s.showHint))
}

// Start delivers the initial frame.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.emitLocked()
	return nil
}

// Key feeds a key press. In line mode it reports the keystroke gate: false
// means the key must not reach the input field, and a rejected key re-arms
// the hint timer.
func (s *Session) Key(ctx context.Context, k match.Key) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	mode := s.engine.Mode()

	if mode == match.LineBuffer {
		allowed := s.engine.Allow(k)
		s.mu.Unlock()
		if allowed {
			// The field change that follows arrives as Input and re-arms.
			s.recordKey(ctx, mode, "allowed")
			return true, nil
		}
		s.recordKey(ctx, mode, "rejected")
		s.hints.Arm()
		return false, nil
	}

	out := s.engine.Key(k)
	s.showHint = false
	s.emitLocked()
	s.afterEvent(ctx, out)

	outcome := "ignored"
	if out.Advanced {
		outcome = "advanced"
	}
	s.recordKey(ctx, mode, outcome)
	return true, nil
}

// KeyUp feeds a key release.
func (s *Session) KeyUp(ctx context.Context, k match.Key) error {
	return s.applyCtx(ctx, func(e *match.Engine) match.Outcome {
		e.KeyUp(k)
		return match.Outcome{}
	}, false)
}

// Blur tells the session the input lost focus.
func (s *Session) Blur(ctx context.Context) error {
	return s.applyCtx(ctx, func(e *match.Engine) match.Outcome {
		e.Blur()
		return match.Outcome{}
	}, false)
}

// Input delivers the current contents of the line-mode input field.
func (s *Session) Input(ctx context.Context, value string) (match.Outcome, error) {
	var out match.Outcome
	err := s.applyCtx(ctx, func(e *match.Engine) match.Outcome {
		out = e.SetInput(value)
		return out
	}, true)
	return out, err
}

// Seek moves the char-mode cursor to index.
func (s *Session) Seek(ctx context.Context, index int) (bool, error) {
	var moved bool
	err := s.applyCtx(ctx, func(e *match.Engine) match.Outcome {
		moved = e.Seek(index)
		return match.Outcome{}
	}, true)
	return moved, err
}

// Reset restarts the poem from the beginning and cancels any pending hint.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.hints.Cancel()
	s.engine.Reset()
	s.showHint = false
	s.wasReset = true
	s.emitLocked()
	return nil
}

// UpdateSettings applies p, persists the result and re-renders. A changed
// hint delay applies from the next input event.
func (s *Session) UpdateSettings(ctx context.Context, p Patch) (Settings, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Settings{}, ErrClosed
	}
	s.settings = p.Apply(s.settings)
	settings := s.settings
	s.hints.SetDelay(settings.HintDelay)
	s.emitLocked()

	SaveSettings(ctx, s.svc, settings)
	return settings, nil
}

// Close stops the hint timer and stores the progress made. A session that
// was reset and left at the start clears the stored progress instead. Close
// is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.hints.Stop()
	pos := s.engine.Position()
	wasReset := s.wasReset
	s.mu.Unlock()

	switch done, _ := pos.Units(); {
	case pos.Complete:
	case done > 0:
		s.svc.SetProgress(ctx, s.file, progressOf(pos, s.poem.Fingerprint, s.now().UnixMilli()))
	case wasReset:
		// Restarted and left at the beginning: the stored progress is stale.
		s.svc.Remove(ctx, store.KindProgress, s.file)
	}
	s.log.Debug("session closed", "progress", pos.Progress())
	return nil
}

// applyCtx runs fn under the session lock, emits the new frame and, when arm
// is set, treats the call as an input event that clears and re-arms the hint.
func (s *Session) applyCtx(ctx context.Context, fn func(*match.Engine) match.Outcome, arm bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	out := fn(s.engine)
	if arm {
		s.showHint = false
	}
	s.emitLocked()
	if arm {
		s.afterEvent(ctx, out)
	}
	return nil
}

// emitLocked renders the current state and sends it. It must be called with
// mu held and returns with mu released.
func (s *Session) emitLocked() {
	s.seq++
	u := Update{
		Seq:       s.seq,
		Frame:     reveal.Format(s.engine.Position(), s.settings.options(s.showHint)),
		Closeness: s.engine.Closeness(),
	}
	s.sendMu.Lock()
	s.mu.Unlock()
	defer s.sendMu.Unlock()
	if s.sink != nil {
		s.sink(u)
	}
}

// afterEvent runs the bookkeeping of an input event outside the lock:
// metrics, completion persistence and the hint timer.
func (s *Session) afterEvent(ctx context.Context, out match.Outcome) {
	mode := s.engine.Mode()
	if s.metrics != nil && mode == match.LineBuffer {
		s.metrics.RecordLines(ctx, out.Confirmed)
	}
	if !out.Completed {
		// Char mode hints only while Shift+Space is held.
		if mode == match.LineBuffer {
			s.hints.Arm()
		}
		return
	}

	s.hints.Cancel()
	if s.metrics != nil {
		s.metrics.RecordCompletion(ctx, mode.String())
	}
	s.log.Info("poem completed", "mode", mode)

	s.mu.Lock()
	pos := s.engine.Position()
	s.mu.Unlock()
	s.svc.MarkPracticed(ctx, s.file)
	s.svc.SetProgress(ctx, s.file, progressOf(pos, s.poem.Fingerprint, s.now().UnixMilli()))
}

// revealHint is the hint scheduler callback.
func (s *Session) revealHint() {
	s.mu.Lock()
	if s.closed || s.engine.IsComplete() {
		s.mu.Unlock()
		return
	}
	s.showHint = true
	s.emitLocked()
	if s.metrics != nil {
		s.metrics.RecordHint(context.Background())
	}
}

func (s *Session) recordKey(ctx context.Context, mode match.Mode, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordKeystroke(ctx, mode.String(), outcome)
	}
}
