// Package observe provides application-wide observability primitives for
// Versify: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Versify metrics.
const meterName = "github.com/gulley/versify"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Practice ---

	// Keystrokes counts key events. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("outcome", ...)
	Keystrokes metric.Int64Counter

	// LinesConfirmed counts lines revealed by typing or skipping.
	LinesConfirmed metric.Int64Counter

	// Completions counts poems typed to the end. Use with attribute:
	//   attribute.String("mode", ...)
	Completions metric.Int64Counter

	// HintsShown counts hints revealed by the idle timer.
	HintsShown metric.Int64Counter

	// ActiveSessions tracks the number of live practice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- Store ---

	// StoreOps counts key-value operations. Use with attributes:
	//   attribute.String("op", ...), attribute.String("status", ...)
	StoreOps metric.Int64Counter

	// StoreErrors counts failed key-value operations by op.
	StoreErrors metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes. Use with
	// attributes: attribute.String("breaker", ...), attribute.String("to", ...)
	BreakerTransitions metric.Int64Counter

	// --- Library ---

	// PoemLoadDuration tracks the time to fetch and parse a poem. Use with
	// attribute: attribute.String("status", ...)
	PoemLoadDuration metric.Float64Histogram

	// --- HTTP middleware ---

	// HTTPRequestDuration is labelled with the mux route and the status code.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds for poem loads and
// HTTP requests.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Practice counters.
	if met.Keystrokes, err = m.Int64Counter("versify.practice.keystrokes",
		metric.WithDescription("Key events by mode and outcome."),
	); err != nil {
		return nil, err
	}
	if met.LinesConfirmed, err = m.Int64Counter("versify.practice.lines_confirmed",
		metric.WithDescription("Lines revealed during practice."),
	); err != nil {
		return nil, err
	}
	if met.Completions, err = m.Int64Counter("versify.practice.completions",
		metric.WithDescription("Poems practiced to completion by mode."),
	); err != nil {
		return nil, err
	}
	if met.HintsShown, err = m.Int64Counter("versify.practice.hints",
		metric.WithDescription("Hints revealed after the idle delay."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("versify.active_sessions",
		metric.WithDescription("Number of live practice sessions."),
	); err != nil {
		return nil, err
	}

	// Store counters.
	if met.StoreOps, err = m.Int64Counter("versify.store.operations",
		metric.WithDescription("Key-value store operations by op and status."),
	); err != nil {
		return nil, err
	}
	if met.StoreErrors, err = m.Int64Counter("versify.store.errors",
		metric.WithDescription("Failed key-value store operations by op."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("versify.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.PoemLoadDuration, err = m.Float64Histogram("versify.poem.load.duration",
		metric.WithDescription("Latency of fetching and parsing a poem."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("versify.http.request.duration",
		metric.WithDescription("HTTP request latency by route and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordKeystroke records one key event. outcome is the match outcome name
// (e.g. "advanced", "rejected").
func (m *Metrics) RecordKeystroke(ctx context.Context, mode, outcome string) {
	m.Keystrokes.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordLines adds n confirmed lines.
func (m *Metrics) RecordLines(ctx context.Context, n int) {
	if n > 0 {
		m.LinesConfirmed.Add(ctx, int64(n))
	}
}

// RecordCompletion records a poem practiced to the end.
func (m *Metrics) RecordCompletion(ctx context.Context, mode string) {
	m.Completions.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordHint records a revealed hint.
func (m *Metrics) RecordHint(ctx context.Context) {
	m.HintsShown.Add(ctx, 1)
}

// RecordStoreOp records a store operation; a non-nil err also increments
// [Metrics.StoreErrors]. Its signature matches store.Observer.
func (m *Metrics) RecordStoreOp(ctx context.Context, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.StoreErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
	m.StoreOps.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("status", status),
		),
	)
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, name, to string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("breaker", name),
			attribute.String("to", to),
		),
	)
}

// RecordPoemLoad records a poem fetch. Its signature matches
// library.LoadObserver.
func (m *Metrics) RecordPoemLoad(ctx context.Context, _ string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PoemLoadDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("status", status)),
	)
}
