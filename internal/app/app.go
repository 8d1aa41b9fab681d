// Package app wires the Versify subsystems into a running server.
//
// The App struct owns the full lifecycle: New opens the store, the poem
// library and the session manager, Run serves HTTP until the context ends,
// and Shutdown tears everything down in order.
//
// For testing, inject replacements via functional options (WithKV,
// WithPoemFS, WithMetrics). When an option is not provided, New builds the
// real implementation from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gulley/versify/internal/config"
	"github.com/gulley/versify/internal/health"
	"github.com/gulley/versify/internal/library"
	"github.com/gulley/versify/internal/observe"
	"github.com/gulley/versify/internal/practice"
	"github.com/gulley/versify/internal/resilience"
	"github.com/gulley/versify/internal/server"
	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/reveal"
	"github.com/gulley/versify/pkg/store"
)

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	log            *slog.Logger
	level          *slog.LevelVar
	registry       *config.Registry
	metrics        *observe.Metrics
	metricsHandler http.Handler

	kv       store.KV
	poems    fs.FS
	breaker  *resilience.CircuitBreaker
	svc      *store.Service
	lib      *library.Library
	sessions *practice.Manager
	handler  http.Handler
	srv      *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithKV injects a key-value backend instead of opening cfg.Store.Backend.
func WithKV(kv store.KV) Option {
	return func(a *App) { a.kv = kv }
}

// WithPoemFS serves poems from fsys instead of cfg.Library.Dir.
func WithPoemFS(fsys fs.FS) Option {
	return func(a *App) { a.poems = fsys }
}

// WithRegistry replaces the store backend registry. The default registry
// holds the built-in backends.
func WithRegistry(reg *config.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// WithMetrics sets the instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// WithLogger sets the logger and the level variable that config reloads
// adjust. level may be nil.
func WithLogger(l *slog.Logger, level *slog.LevelVar) Option {
	return func(a *App) {
		a.log = l
		a.level = level
	}
}

// New creates an App by wiring all subsystems together.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.registry == nil {
		a.registry = config.NewRegistry()
		RegisterStores(a.registry)
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	a.initLibrary()

	defaults, err := DefaultsFrom(cfg.Practice)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: practice defaults: %w", err)
	}
	a.sessions = practice.NewManager(a.lib,
		practice.WithStore(a.svc),
		practice.WithMetrics(a.metrics),
		practice.WithLogger(a.log),
		practice.WithDefaults(defaults),
	)

	probes := health.New(
		health.Checker{Name: "library", Check: a.lib.Check},
		health.Optional(health.Probe("store", a.svc.Available)),
	)
	srvOpts := []server.Option{
		server.WithLogger(a.log),
		server.WithMetrics(a.metrics),
		server.WithHealth(probes),
	}
	if a.metricsHandler != nil && cfg.Telemetry.Metrics() {
		srvOpts = append(srvOpts, server.WithMetricsHandler(a.metricsHandler))
	}
	a.handler = server.New(a.lib, a.svc, a.sessions, srvOpts...).Handler()

	a.srv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	return a, nil
}

// initStore opens the backend, unless one was injected, and puts the
// breaker and the service in front of it.
func (a *App) initStore(ctx context.Context) error {
	if a.kv == nil {
		kv, closer, err := a.registry.CreateStore(ctx, a.cfg.Store)
		if err != nil {
			return err
		}
		a.kv = kv
		if closer != nil {
			a.closers = append(a.closers, closer.Close)
		}
	}

	bc := a.cfg.Store.Breaker
	a.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "store",
		MaxFailures:  bc.MaxFailures,
		ResetTimeout: bc.ResetTimeout,
		HalfOpenMax:  bc.HalfOpenMax,
		IsFailure:    func(err error) bool { return errors.Is(err, store.ErrUnavailable) },
		OnStateChange: func(name string, from, to resilience.State) {
			a.log.Warn("circuit breaker state change", "name", name, "from", from, "to", to)
			a.metrics.RecordBreakerTransition(context.Background(), name, to.String())
		},
	})

	opts := []store.Option{
		store.WithBreaker(a.breaker),
		store.WithLogger(a.log),
		store.WithObserver(a.metrics.RecordStoreOp),
	}
	if a.cfg.Store.Prefix != "" {
		opts = append(opts, store.WithPrefix(a.cfg.Store.Prefix))
	}
	a.svc = store.New(a.kv, opts...)
	if !a.svc.Available(ctx) {
		a.log.Warn("store unavailable at startup; practice progress will not persist", "backend", a.cfg.Store.Backend)
	}
	return nil
}

func (a *App) initLibrary() {
	if a.poems == nil {
		a.poems = os.DirFS(a.cfg.Library.Dir)
	}
	a.lib = library.New(a.poems,
		library.WithIndexFile(a.cfg.Library.IndexFile),
		library.WithMaxConcurrentLoads(a.cfg.Library.MaxConcurrentLoads),
		library.WithLogger(a.log),
		library.WithLoadObserver(a.metrics.RecordPoemLoad),
	)
}

// DefaultsFrom converts the practice section of the config into session
// defaults.
func DefaultsFrom(pc config.PracticeConfig) (practice.Defaults, error) {
	mode, err := match.ParseMode(pc.Mode)
	if err != nil {
		return practice.Defaults{}, err
	}
	prompt, err := reveal.ParsePrompt(pc.Prompt)
	if err != nil {
		return practice.Defaults{}, err
	}
	return practice.Defaults{
		Mode: mode,
		Settings: practice.Settings{
			ShowDots:  pc.Dots(),
			ShowLine:  pc.ShowLine,
			HintDelay: pc.Delay(),
			Prompt:    prompt,
		},
	}, nil
}

// Handler returns the routed HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Sessions returns the practice session manager.
func (a *App) Sessions() *practice.Manager { return a.sessions }

// Store returns the store service.
func (a *App) Store() *store.Service { return a.svc }

// Run serves HTTP on the configured address and blocks until ctx is
// cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.srv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = a.srv.Serve(ln)
		}
		errCh <- err
	}()

	a.log.Info("versify listening", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// ApplyConfig applies the hot-reloadable parts of a changed config: the
// log level and the practice defaults. Everything else is logged as
// requiring a restart.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged && a.level != nil {
		a.level.Set(d.NewLogLevel.Level())
		a.log.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.PracticeChanged {
		defaults, err := DefaultsFrom(d.NewPractice)
		if err != nil {
			a.log.Warn("ignoring invalid practice defaults", "err", err)
		} else {
			a.sessions.SetDefaults(defaults)
			a.log.Info("practice defaults updated", "mode", defaults.Mode, "hint_delay", defaults.Settings.HintDelay)
		}
	}
	if len(d.RestartRequired) > 0 {
		a.log.Warn("config changes require a restart", "sections", d.RestartRequired)
	}
}

// Shutdown stops the HTTP server, closes every practice session so partial
// progress is stored, then releases the backends. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down", "sessions", a.sessions.Len(), "closers", len(a.closers))

		var errs []error
		if err := a.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http: %w", err))
		}
		if err := a.sessions.CloseAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("sessions: %w", err))
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.log.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				errs = append(errs, ctx.Err())
				shutdownErr = errors.Join(errs...)
				return
			default:
			}
			if err := closer(); err != nil {
				a.log.Warn("closer error", "index", i, "err", err)
			}
		}
		shutdownErr = errors.Join(errs...)
		a.log.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll releases backends opened before New failed.
func (a *App) closeAll() {
	for _, c := range a.closers {
		_ = c()
	}
}
