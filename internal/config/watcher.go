package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// defaultPollInterval is how often the watcher stats the config file.
const defaultPollInterval = 5 * time.Second

// stamp identifies one revision of the config file on disk.
type stamp struct {
	mod  time.Time
	size int64
	sum  [32]byte
}

// Watcher polls a config file and hands every valid revision that differs
// from the running config to a callback. Edits that do not change any
// setting, such as comments or reordering, are absorbed silently. A
// revision that fails to parse or validate is logged and skipped, and the
// running config stays in place.
type Watcher struct {
	path  string
	every time.Duration
	apply func(old, new *Config)
	log   *slog.Logger

	mu   sync.Mutex
	cur  *Config
	seen stamp

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the poll interval. Non-positive values are ignored.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.every = d
		}
	}
}

// WithWatcherLogger sets the logger for reload messages.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWatcher loads path and starts polling it. apply may be nil, in which
// case the watcher only tracks [Watcher.Current].
func NewWatcher(path string, apply func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:    path,
		every:   defaultPollInterval,
		apply:   apply,
		log:     slog.Default(),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}

	cfg, st, err := readRevision(path)
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	w.cur, w.seen = cfg, st

	go w.loop()
	return w, nil
}

// Current returns the config most recently applied.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cur
}

// Stop ends polling and waits for an in-flight reload to finish. It is safe
// to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.stopped
}

func (w *Watcher) loop() {
	defer close(w.stopped)
	t := time.NewTicker(w.every)
	defer t.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-t.C:
			w.poll()
		}
	}
}

// poll applies the file if it changed since the last look.
func (w *Watcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("config: stat failed, keeping current config", "path", w.path, "err", err)
		return
	}
	w.mu.Lock()
	seen := w.seen
	w.mu.Unlock()
	if info.ModTime().Equal(seen.mod) && info.Size() == seen.size {
		return
	}

	next, st, err := readRevision(w.path)
	if err != nil {
		w.log.Warn("config: rejected edit, keeping current config", "path", w.path, "err", err)
		// Remember the bad revision so it is reported once.
		w.mu.Lock()
		w.seen.mod, w.seen.size = info.ModTime(), info.Size()
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	prev := w.cur
	sameBytes := st.sum == w.seen.sum
	w.seen = st
	if sameBytes || !Diff(prev, next).Changed() {
		w.mu.Unlock()
		return
	}
	w.cur = next
	w.mu.Unlock()

	w.log.Info("config: reloaded", "path", w.path)
	if w.apply != nil {
		w.apply(prev, next)
	}
}

// readRevision parses and validates the file at path and stamps it.
func readRevision(path string) (*Config, stamp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stamp{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, stamp{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, stamp{}, err
	}
	return cfg, stamp{mod: info.ModTime(), size: info.Size(), sum: blake3.Sum256(data)}, nil
}
