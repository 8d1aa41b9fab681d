// Package server exposes the poem library, the store and practice sessions
// over HTTP. Practice itself runs over a WebSocket: the browser forwards key
// and input events and renders the frames the session sends back.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gulley/versify/internal/health"
	"github.com/gulley/versify/internal/library"
	"github.com/gulley/versify/internal/observe"
	"github.com/gulley/versify/internal/practice"
	"github.com/gulley/versify/pkg/store"
)

// defaultWriteTimeout bounds a single WebSocket write.
const defaultWriteTimeout = 5 * time.Second

// Option configures a [Server].
type Option func(*Server)

// WithMetrics enables the request middleware with the given instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithHealth serves the liveness and readiness probes of h.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSearcher replaces the poem searcher.
func WithSearcher(se *library.Searcher) Option {
	return func(s *Server) {
		if se != nil {
			s.searcher = se
		}
	}
}

// WithWriteTimeout bounds each WebSocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// Server holds the HTTP handlers. Build it with [New] and mount
// [Server.Handler].
type Server struct {
	lib      *library.Library
	svc      *store.Service
	sessions *practice.Manager
	searcher *library.Searcher

	metrics        *observe.Metrics
	metricsHandler http.Handler
	health         *health.Handler
	log            *slog.Logger
	writeTimeout   time.Duration
}

// New creates a server over the library, the store service and the session
// manager.
func New(lib *library.Library, svc *store.Service, sessions *practice.Manager, opts ...Option) *Server {
	s := &Server{
		lib:          lib,
		svc:          svc,
		sessions:     sessions,
		searcher:     library.NewSearcher(),
		log:          slog.Default(),
		writeTimeout: defaultWriteTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed handler, wrapped in the observability
// middleware when metrics are configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/poems", s.listPoems)
	mux.HandleFunc("GET /api/poems/{filename}", s.getPoem)
	mux.HandleFunc("POST /api/poems/{filename}/practiced", s.markPracticed)
	mux.HandleFunc("GET /api/practiced", s.listPracticed)
	mux.HandleFunc("GET /api/settings", s.getSettings)
	mux.HandleFunc("GET /api/settings/{name}", s.getSetting)
	mux.HandleFunc("PUT /api/settings/{name}", s.putSetting)
	mux.HandleFunc("GET /api/store/stats", s.storeStats)
	mux.HandleFunc("DELETE /api/store", s.clearStore)
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/practice", s.practice)

	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	if s.metrics == nil {
		return mux
	}
	return observe.Middleware(s.metrics, s.log)(mux)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("server: encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
