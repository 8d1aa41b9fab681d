package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultPrefix namespaces every key the service writes.
const DefaultPrefix = "versify_"

// Key kinds. A full key is prefix + kind, optionally followed by "_" and an
// identifier: "versify_practiced_frost.txt".
const (
	KindPracticed = "practiced"
	KindProgress  = "progress"
	KindSettings  = "settings"
)

const probeKey = "__storage_test__"

// Breaker guards backend calls. [*resilience.CircuitBreaker] satisfies it.
type Breaker interface {
	Execute(fn func() error) error
}

// Observer is told about every backend operation and its result. It is used
// to feed metrics.
type Observer func(ctx context.Context, op string, err error)

// Option configures a [Service].
type Option func(*Service)

// WithPrefix overrides [DefaultPrefix].
func WithPrefix(p string) Option {
	return func(s *Service) {
		if p != "" {
			s.prefix = p
		}
	}
}

// WithBreaker routes every backend call through b.
func WithBreaker(b Breaker) Option {
	return func(s *Service) { s.breaker = b }
}

// WithClock overrides the time source used by [Service.MarkPracticed].
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used to report degraded operations.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver registers fn to observe backend operations.
func WithObserver(fn Observer) Option {
	return func(s *Service) { s.observe = fn }
}

// Service is the typed, failure-tolerant view of a [KV].
type Service struct {
	kv      KV
	prefix  string
	breaker Breaker
	now     func() time.Time
	log     *slog.Logger
	observe Observer
}

// New returns a service over kv. A nil kv yields a service that is always
// unavailable.
func New(kv KV, opts ...Option) *Service {
	s := &Service{
		kv:     kv,
		prefix: DefaultPrefix,
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Prefix returns the namespace prefix.
func (s *Service) Prefix() string { return s.prefix }

// Key builds the full key for kind and id. An empty id yields prefix+kind.
func (s *Service) Key(kind, id string) string {
	if id == "" {
		return s.prefix + kind
	}
	return s.prefix + kind + "_" + id
}

// do runs fn against the backend, through the breaker when one is set.
func (s *Service) do(ctx context.Context, op string, fn func() error) error {
	var err error
	switch {
	case s.kv == nil:
		err = ErrUnavailable
	case s.breaker != nil:
		err = s.breaker.Execute(fn)
	default:
		err = fn()
	}
	if s.observe != nil {
		s.observe(ctx, op, err)
	}
	return err
}

func (s *Service) warn(op, key string, err error) {
	if errors.Is(err, ErrQuotaExceeded) {
		s.log.Error("store quota exceeded, consider clearing old data", "op", op, "key", key)
		return
	}
	s.log.Warn("store operation failed", "op", op, "key", key, "err", err)
}

// Available probes the backend with a write and delete of a scratch key.
func (s *Service) Available(ctx context.Context) bool {
	err := s.do(ctx, "probe", func() error {
		if err := s.kv.Set(ctx, probeKey, probeKey); err != nil {
			return err
		}
		return s.kv.Delete(ctx, probeKey)
	})
	if err != nil {
		s.log.Warn("store not available", "err", err)
		return false
	}
	return true
}

// Get returns the raw value stored for kind and id.
func (s *Service) Get(ctx context.Context, kind, id string) (string, bool) {
	key := s.Key(kind, id)
	var (
		v  string
		ok bool
	)
	err := s.do(ctx, "get", func() error {
		var err error
		v, ok, err = s.kv.Get(ctx, key)
		return err
	})
	if err != nil {
		s.warn("get", key, err)
		return "", false
	}
	return v, ok
}

// Set stores value for kind and id and reports success.
func (s *Service) Set(ctx context.Context, kind, id, value string) bool {
	key := s.Key(kind, id)
	if err := s.do(ctx, "set", func() error { return s.kv.Set(ctx, key, value) }); err != nil {
		s.warn("set", key, err)
		return false
	}
	return true
}

// Remove deletes the value for kind and id and reports success.
func (s *Service) Remove(ctx context.Context, kind, id string) bool {
	key := s.Key(kind, id)
	if err := s.do(ctx, "delete", func() error { return s.kv.Delete(ctx, key) }); err != nil {
		s.warn("delete", key, err)
		return false
	}
	return true
}

// LastPracticed returns the time filename was last practised, in Unix
// milliseconds. ok is false when it never was or the value is unreadable.
func (s *Service) LastPracticed(ctx context.Context, filename string) (ms int64, ok bool) {
	v, ok := s.Get(ctx, KindPracticed, filename)
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		s.log.Warn("ignoring malformed practiced timestamp", "poem", filename, "value", v)
		return 0, false
	}
	return ms, true
}

// SetLastPracticed records ms (Unix milliseconds) as the last practice time
// of filename. Negative timestamps are rejected.
func (s *Service) SetLastPracticed(ctx context.Context, filename string, ms int64) bool {
	if ms < 0 {
		s.log.Warn("rejecting negative practiced timestamp", "poem", filename, "ms", ms)
		return false
	}
	return s.Set(ctx, KindPracticed, filename, strconv.FormatInt(ms, 10))
}

// MarkPracticed records now as the last practice time of filename.
func (s *Service) MarkPracticed(ctx context.Context, filename string) bool {
	return s.SetLastPracticed(ctx, filename, s.now().UnixMilli())
}

// Progress decodes the progress document of filename into v. It reports
// false when there is none or it does not decode.
func (s *Service) Progress(ctx context.Context, filename string, v any) bool {
	raw, ok := s.Get(ctx, KindProgress, filename)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.log.Warn("ignoring malformed progress", "poem", filename, "err", err)
		return false
	}
	return true
}

// SetProgress stores v as the JSON progress document of filename. v must
// encode to a JSON object.
func (s *Service) SetProgress(ctx context.Context, filename string, v any) bool {
	raw, err := encodeObject(v)
	if err != nil {
		s.log.Warn("rejecting progress", "poem", filename, "err", err)
		return false
	}
	return s.Set(ctx, KindProgress, filename, raw)
}

func encodeObject(v any) (string, error) {
	if v == nil {
		return "", errors.New("progress is nil")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode progress: %w", err)
	}
	if len(b) == 0 || b[0] != '{' {
		return "", fmt.Errorf("progress must be a JSON object, got %s", b)
	}
	return string(b), nil
}

// Setting returns the named setting, or def when it is unset or the store is
// unavailable.
func (s *Service) Setting(ctx context.Context, name, def string) string {
	if v, ok := s.Get(ctx, KindSettings, name); ok {
		return v
	}
	return def
}

// SetSetting stores a user preference.
func (s *Service) SetSetting(ctx context.Context, name, value string) bool {
	return s.Set(ctx, KindSettings, name, value)
}

// ClearAll removes every key under the prefix and returns how many were
// removed.
func (s *Service) ClearAll(ctx context.Context) int {
	keys, ok := s.keys(ctx, s.prefix)
	if !ok {
		return 0
	}
	n := 0
	for _, k := range keys {
		if err := s.do(ctx, "delete", func() error { return s.kv.Delete(ctx, k) }); err != nil {
			s.warn("delete", k, err)
			continue
		}
		n++
	}
	s.log.Info("cleared stored data", "keys", n)
	return n
}

func (s *Service) keys(ctx context.Context, prefix string) ([]string, bool) {
	var keys []string
	err := s.do(ctx, "keys", func() error {
		var err error
		keys, err = s.kv.Keys(ctx, prefix)
		return err
	})
	if err != nil {
		s.warn("keys", prefix, err)
		return nil, false
	}
	return keys, true
}

// Practiced is one entry of [Service.AllPracticed].
type Practiced struct {
	Filename  string `json:"filename"`
	Timestamp int64  `json:"timestamp"`
}

// Time returns the timestamp as a [time.Time].
func (p Practiced) Time() time.Time { return time.UnixMilli(p.Timestamp) }

// AllPracticed lists every practised poem, most recent first.
func (s *Service) AllPracticed(ctx context.Context) []Practiced {
	prefix := s.Key(KindPracticed, "") + "_"
	keys, ok := s.keys(ctx, prefix)
	if !ok {
		return nil
	}
	out := make([]Practiced, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, prefix)
		if ms, ok := s.LastPracticed(ctx, name); ok {
			out = append(out, Practiced{Filename: name, Timestamp: ms})
		}
	}
	slices.SortFunc(out, func(a, b Practiced) int {
		if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.Filename, b.Filename)
	})
	return out
}

// Stats summarises what the backend holds.
type Stats struct {
	Available      bool `json:"available"`
	TotalKeys      int  `json:"totalKeys"`
	VersifyKeys    int  `json:"versifyKeys"`
	PracticedPoems int  `json:"practicedPoems"`
}

// Stats counts keys. An unreachable backend yields the zero Stats.
func (s *Service) Stats(ctx context.Context) Stats {
	var total int
	if err := s.do(ctx, "len", func() error {
		var err error
		total, err = s.kv.Len(ctx)
		return err
	}); err != nil {
		s.warn("len", "", err)
		return Stats{}
	}
	keys, ok := s.keys(ctx, s.prefix)
	if !ok {
		return Stats{}
	}
	practiced := s.Key(KindPracticed, "") + "_"
	st := Stats{Available: true, TotalKeys: total, VersifyKeys: len(keys)}
	for _, k := range keys {
		if strings.HasPrefix(k, practiced) {
			st.PracticedPoems++
		}
	}
	return st
}
