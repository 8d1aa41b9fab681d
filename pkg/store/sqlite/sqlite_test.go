package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/gulley/versify/pkg/store"
	"github.com/gulley/versify/pkg/store/sqlite"
)

func openTemp(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "versify.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_CRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTemp(t)

	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}
	if err := s.Set(ctx, "k", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "k", "2"); err != nil {
		t.Fatal(err)
	}
	if v, ok, err := s.Get(ctx, "k"); err != nil || !ok || v != "2" {
		t.Errorf("Get = %q, %v, %v; want 2", v, ok, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if n, err := s.Len(ctx); err != nil || n != 0 {
		t.Errorf("Len = %d, %v; want 0", n, err)
	}
}

func TestStore_Keys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTemp(t)

	for _, k := range []string{"versify_practiced_b", "versify_practiced_a", "versify_settings_x", "versify_practiced"} {
		if err := s.Set(ctx, k, "1"); err != nil {
			t.Fatal(err)
		}
	}
	keys, err := s.Keys(ctx, "versify_practiced_")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"versify_practiced_a", "versify_practiced_b"}; !slices.Equal(keys, want) {
		t.Errorf("Keys = %v, want %v", keys, want)
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "versify.db")

	s, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	svc := store.New(s)
	svc.SetSetting(ctx, "showDots", "false")
	s.Close()

	s, err = sqlite.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if got := store.New(s).Setting(ctx, "showDots", "true"); got != "false" {
		t.Errorf("Setting after reopen = %q, want false", got)
	}
}

func TestStore_ClosedIsUnavailable(t *testing.T) {
	t.Parallel()
	s, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
	if err := s.Set(context.Background(), "k", "v"); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Set on closed db = %v, want ErrUnavailable", err)
	}
}
