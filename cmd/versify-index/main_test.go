package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePoems(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var c cli
	var out, errOut bytes.Buffer
	parser, err := newParser(&c, &out, &errOut)
	if err != nil {
		t.Fatalf("newParser: %v", err)
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		t.Fatalf("Parse(%q): %v", args, err)
	}
	err = ctx.Run(ctx)
	return out.String(), err
}

func TestGenerate_WritesIndex(t *testing.T) {
	dir := writePoems(t, map[string]string{
		"road.txt":   "The Road Not Taken\nRobert Frost\n\nTwo roads diverged in a yellow wood,\n",
		"apple.txt":  "After Apple-Picking\nRobert Frost\n\nMy long two-pointed ladder's sticking\n",
		"broken.txt": "Untitled\n\nno author line\n",
		"_draft.txt": "Draft\nMe\n\nnot yet\n",
		"notes.md":   "# not a poem\n",
	})

	out, err := runCLI(t, dir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "list.json"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		t.Fatalf("index is not a JSON array: %v", err)
	}
	want := []string{"apple.txt", "road.txt", "broken.txt"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("index = %v, want %v", names, want)
	}

	for _, line := range []string{
		"skipped _draft.txt",
		"warning: broken.txt:",
		"indexed 3 poems",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}
}

func TestGenerate_DryRun(t *testing.T) {
	dir := writePoems(t, map[string]string{
		"road.txt": "The Road Not Taken\nRobert Frost\n\nTwo roads diverged in a yellow wood,\n",
	})

	out, err := runCLI(t, "generate", "--dry-run", dir)
	if err != nil {
		t.Fatalf("generate --dry-run: %v", err)
	}
	if !strings.Contains(out, `"road.txt"`) {
		t.Errorf("dry run output missing index:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "list.json")); !os.IsNotExist(err) {
		t.Errorf("dry run wrote the index (stat err = %v)", err)
	}
}

func TestCheck(t *testing.T) {
	good := writePoems(t, map[string]string{
		"road.txt": "The Road Not Taken\nRobert Frost\n\nTwo roads diverged in a yellow wood,\n",
	})
	if out, err := runCLI(t, "check", good); err != nil || !strings.Contains(out, "1 poems ok") {
		t.Errorf("check good dir: out=%q err=%v", out, err)
	}

	bad := writePoems(t, map[string]string{
		"broken.txt": "Untitled\n\nno author line\n",
	})
	_, err := runCLI(t, "check", bad)
	if !errors.Is(err, errProblems) {
		t.Errorf("check bad dir: err = %v, want errProblems", err)
	}
}
