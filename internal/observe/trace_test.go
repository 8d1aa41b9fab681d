package observe

import (
	"bytes"
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useTracer installs an in-memory tracer provider as the global one for the
// duration of the test.
func useTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func TestTraceID(t *testing.T) {
	useTracer(t)

	if got := TraceID(context.Background()); got != "" {
		t.Errorf("TraceID without span = %q, want empty", got)
	}

	ctx, span := StartSpan(context.Background(), "load poem")
	defer span.End()
	id := TraceID(ctx)
	if raw, err := hex.DecodeString(id); err != nil || len(raw) != 16 {
		t.Errorf("TraceID = %q, want 16 hex-encoded bytes", id)
	}
}

func TestStartPracticeSpan(t *testing.T) {
	exp := useTracer(t)

	_, span := StartPracticeSpan(context.Background(), "fire.txt", "line")
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name != "practice fire.txt" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	want := map[string]string{"versify.poem": "fire.txt", "versify.mode": "line"}
	for _, kv := range spans[0].Attributes {
		if w, ok := want[string(kv.Key)]; ok {
			if kv.Value.AsString() != w {
				t.Errorf("%s = %q, want %q", kv.Key, kv.Value.AsString(), w)
			}
			delete(want, string(kv.Key))
		}
	}
	if len(want) > 0 {
		t.Errorf("missing attributes: %v", want)
	}
}

func TestWithTrace(t *testing.T) {
	useTracer(t)

	tests := []struct {
		name     string
		withSpan bool
	}{
		{"span", true},
		{"no span", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.New(slog.NewTextHandler(&buf, nil))

			ctx := context.Background()
			if tt.withSpan {
				c, s := StartSpan(ctx, "session")
				defer s.End()
				ctx = c
			}
			WithTrace(ctx, base).Info("keystroke")

			out := buf.String()
			if got := strings.Contains(out, "trace_id="); got != tt.withSpan {
				t.Errorf("trace_id present = %v, want %v: %s", got, tt.withSpan, out)
			}
			if got := strings.Contains(out, "span_id="); got != tt.withSpan {
				t.Errorf("span_id present = %v, want %v: %s", got, tt.withSpan, out)
			}
		})
	}
}

func TestWithTrace_NilLoggerUsesDefault(t *testing.T) {
	if WithTrace(context.Background(), nil) != slog.Default() {
		t.Error("WithTrace(nil) did not fall back to slog.Default")
	}
}
