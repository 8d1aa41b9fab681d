package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gulley/versify/internal/hint"
	"github.com/gulley/versify/internal/library"
	"github.com/gulley/versify/internal/observe"
	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/store"
)

// ErrNotFound is returned when a session ID is unknown.
var ErrNotFound = errors.New("practice: session not found")

// Loader loads poems by filename. [*library.Library] implements it.
type Loader interface {
	Load(ctx context.Context, filename string) (*library.Poem, error)
}

// Defaults are the settings applied to new sessions.
type Defaults struct {
	Mode     match.Mode
	Settings Settings
}

// Option configures a [Manager].
type Option func(*Manager)

// WithStore sets the store service used for settings and progress.
func WithStore(svc *store.Service) Option {
	return func(m *Manager) {
		if svc != nil {
			m.svc = svc
		}
	}
}

// WithMetrics sets the metric instruments.
func WithMetrics(met *observe.Metrics) Option {
	return func(m *Manager) { m.metrics = met }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock replaces the wall clock of the hint schedulers.
func WithClock(c hint.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithDefaults sets the initial session defaults.
func WithDefaults(d Defaults) Option {
	return func(m *Manager) { m.defaults = d }
}

// OpenOptions select how a session starts. Zero values fall back to the
// manager defaults overlaid with stored preferences.
type OpenOptions struct {
	// Mode overrides the default mode when set.
	Mode *match.Mode

	// Resume replays stored progress when it matches the poem content.
	Resume bool
}

// Manager owns the live practice sessions. All exported methods are safe for
// concurrent use.
type Manager struct {
	loader  Loader
	svc     *store.Service
	metrics *observe.Metrics
	log     *slog.Logger
	clock   hint.Clock

	mu       sync.Mutex
	defaults Defaults
	sessions map[string]*Session
}

// NewManager returns a manager that loads poems through loader.
func NewManager(loader Loader, opts ...Option) *Manager {
	m := &Manager{
		loader:   loader,
		svc:      store.New(nil),
		log:      slog.Default(),
		clock:    hint.SystemClock,
		defaults: Defaults{Mode: match.LineBuffer, Settings: DefaultSettings()},
		sessions: make(map[string]*Session),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetDefaults replaces the defaults for sessions opened from now on.
func (m *Manager) SetDefaults(d Defaults) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults = d
}

// Defaults returns the current session defaults.
func (m *Manager) Defaults() Defaults {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaults
}

// Open loads filename and starts a session that reports to sink. The
// initial frame is not sent until [Session.Start] is called.
func (m *Manager) Open(ctx context.Context, filename string, opts OpenOptions, sink Sink) (*Session, error) {
	p, err := m.loader.Load(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("practice: open %q: %w", filename, err)
	}

	def := m.Defaults()
	mode := LoadMode(ctx, m.svc, def.Mode)
	if opts.Mode != nil && *opts.Mode != mode {
		mode = *opts.Mode
		m.svc.SetSetting(ctx, SettingMode, mode.String())
	}

	s, err := newSession(ctx, sessionConfig{
		filename: filename,
		poem:     p,
		mode:     mode,
		settings: LoadSettings(ctx, m.svc, def.Settings),
		sink:     sink,
		svc:      m.svc,
		metrics:  m.metrics,
		log:      m.log,
		clock:    m.clock,
		resume:   opts.Resume,
	})
	if err != nil {
		return nil, fmt.Errorf("practice: open %q: %w", filename, err)
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveSessions.Add(ctx, 1)
	}
	m.log.Info("practice session opened", "session_id", s.ID(), "poem", filename, "mode", mode, "active", n)
	return s, nil
}

// Get returns the live session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close closes and forgets the session with the given id.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if m.metrics != nil {
		m.metrics.ActiveSessions.Add(ctx, -1)
	}
	return s.Close(ctx)
}

// CloseAll closes every live session. It is used on shutdown.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := m.Close(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// List returns a snapshot of every live session, oldest first.
func (m *Manager) List() []Info {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]Info, len(sessions))
	for i, s := range sessions {
		out[i] = s.Info()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}
