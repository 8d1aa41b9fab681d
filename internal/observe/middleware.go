package observe

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader carries the trace ID back to the client.
const TraceHeader = "X-Versify-Trace"

// recorder remembers what the wrapped handler wrote.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func (r *recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is needed for practice sockets. A hijacked request is recorded
// as 101.
func (r *recorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	c, rw, err := http.NewResponseController(r.ResponseWriter).Hijack()
	if err == nil {
		r.status = http.StatusSwitchingProtocols
	}
	return c, rw, err
}

// probe reports whether path is scraped by infrastructure rather than used
// by a reader. Probes are timed but not traced, and logged at debug.
func probe(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}

// route names the matched mux pattern, so poem filenames do not become
// metric labels. Unmatched requests fall back to the raw path.
func route(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.Method + " " + r.URL.Path
}

// Middleware times every request into m.HTTPRequestDuration and logs it
// to log. Non-probe requests also get a server span, continued from an
// incoming traceparent header when one is present, and the trace ID is
// echoed in [TraceHeader].
func Middleware(m *Metrics, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			ctx := r.Context()
			level := slog.LevelDebug

			var span trace.Span
			if !probe(r.URL.Path) {
				level = slog.LevelInfo
				ctx = prop.Extract(ctx, propagation.HeaderCarrier(r.Header))
				ctx, span = StartSpan(ctx, r.Method+" "+r.URL.Path,
					trace.WithSpanKind(trace.SpanKindServer),
					trace.WithAttributes(
						semconv.HTTPRequestMethodKey.String(r.Method),
						semconv.URLPath(r.URL.Path),
					),
				)
				defer span.End()
				if id := TraceID(ctx); id != "" {
					w.Header().Set(TraceHeader, id)
				}
				prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			name := route(r)
			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
				attribute.String("route", name),
				attribute.Int("status", rec.status),
			))
			if span != nil {
				span.SetAttributes(
					semconv.HTTPRoute(strings.TrimPrefix(name, r.Method+" ")),
					semconv.HTTPResponseStatusCode(rec.status),
				)
			}
			WithTrace(ctx, log).LogAttrs(ctx, level, "http request",
				slog.String("route", name),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.bytes),
				slog.Duration("elapsed", elapsed),
			)
		})
	}
}
