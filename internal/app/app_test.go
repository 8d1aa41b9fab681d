package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/gulley/versify/internal/app"
	"github.com/gulley/versify/internal/config"
	"github.com/gulley/versify/internal/observe"
	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/reveal"
	"github.com/gulley/versify/pkg/store/memstore"
)

func testPoems() fstest.MapFS {
	return fstest.MapFS{
		"list.json": {Data: []byte(`["fire.txt"]`)},
		"fire.txt":  {Data: []byte("Fire and Ice\nRobert Frost\n\nSome say the world will end in fire,\nSome say in ice.\n")},
	}
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...app.Option) *app.App {
	t.Helper()
	base := []app.Option{
		app.WithKV(memstore.New()),
		app.WithPoemFS(testPoems()),
		app.WithMetrics(testMetrics(t)),
		app.WithLogger(quietLogger(), nil),
	}
	a, err := app.New(context.Background(), cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func TestNew_WithInjectedDeps(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, config.Default())
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	for _, path := range []string{"/api/poems", "/api/poems/fire.txt", "/healthz", "/readyz"} {
		resp, err := srv.Client().Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}

	// No metrics handler was given, so /metrics is not routed.
	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404", resp.StatusCode)
	}
}

func TestNew_MetricsHandlerRespectsTelemetryToggle(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { io.WriteString(w, "ok") })
	off := false

	tests := []struct {
		name    string
		enabled *bool
		want    int
	}{
		{"default on", nil, http.StatusOK},
		{"disabled", &off, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			cfg.Telemetry.MetricsEnabled = tt.enabled
			a := newTestApp(t, cfg, app.WithMetricsHandler(h))

			rec := httptest.NewRecorder()
			a.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestNew_UnregisteredBackend(t *testing.T) {
	t.Parallel()

	_, err := app.New(context.Background(), config.Default(),
		app.WithRegistry(config.NewRegistry()),
		app.WithPoemFS(testPoems()),
		app.WithMetrics(testMetrics(t)),
		app.WithLogger(quietLogger(), nil),
	)
	if !errors.Is(err, config.ErrBackendNotRegistered) {
		t.Fatalf("err = %v, want ErrBackendNotRegistered", err)
	}
}

func TestNew_SQLiteBackend(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Store.Backend = config.StoreSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "versify.db")

	a, err := app.New(context.Background(), cfg,
		app.WithPoemFS(testPoems()),
		app.WithMetrics(testMetrics(t)),
		app.WithLogger(quietLogger(), nil),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if !a.Store().MarkPracticed(ctx, "fire.txt") {
		t.Fatal("MarkPracticed on sqlite backend failed")
	}
	if _, ok := a.Store().LastPracticed(ctx, "fire.txt"); !ok {
		t.Error("LastPracticed not found after MarkPracticed")
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestRegisterStores(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	app.RegisterStores(reg)
	got := reg.Backends()
	want := []config.StoreBackend{config.StoreMemory, config.StorePostgres, config.StoreSQLite}
	if len(got) != len(want) {
		t.Fatalf("Backends() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Backends()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDefaultsFrom(t *testing.T) {
	t.Parallel()

	off := false
	delay := 500 * time.Millisecond
	d, err := app.DefaultsFrom(config.PracticeConfig{
		Mode:      "char",
		ShowDots:  &off,
		ShowLine:  true,
		HintDelay: &delay,
		Prompt:    "text",
	})
	if err != nil {
		t.Fatalf("DefaultsFrom: %v", err)
	}
	if d.Mode != match.CharStream {
		t.Errorf("Mode = %v, want char", d.Mode)
	}
	if d.Settings.ShowDots || !d.Settings.ShowLine || d.Settings.HintDelay != delay || d.Settings.Prompt != reveal.PromptText {
		t.Errorf("Settings = %+v", d.Settings)
	}

	if _, err := app.DefaultsFrom(config.PracticeConfig{Mode: "word"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestApplyConfig(t *testing.T) {
	t.Parallel()

	level := new(slog.LevelVar)
	old := config.Default()
	a := newTestApp(t, old, app.WithLogger(quietLogger(), level))

	next := config.Default()
	next.Server.LogLevel = config.LogDebug
	next.Practice.Mode = "char"
	next.Store.Backend = config.StoreSQLite
	a.ApplyConfig(old, next)

	if level.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", level.Level())
	}
	if got := a.Sessions().Defaults().Mode; got != match.CharStream {
		t.Errorf("default mode = %v, want char", got)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, config.Default())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	// Shutdown is idempotent.
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}
