// Command versify-index scans a poem directory and writes the list.json
// index the server reads. Poems with a broken header are indexed anyway and
// reported as warnings.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/alecthomas/kong"

	"github.com/gulley/versify/internal/library"
)

// cli defines the command-line interface for versify-index.
type cli struct {
	Generate GenerateCmd `cmd:"" default:"withargs" help:"Write the poem index (default command)"`
	Check    CheckCmd    `cmd:"" help:"Report header problems without writing anything"`
}

// GenerateCmd writes the index file.
type GenerateCmd struct {
	Dir    string `arg:"" optional:"" default:"poems" type:"existingdir" help:"Poem directory"`
	Out    string `short:"o" default:"list.json" help:"Index file name inside the poem directory"`
	DryRun bool   `name:"dry-run" help:"Print the index to stdout instead of writing it"`
}

// Run scans Dir and writes the index.
func (c *GenerateCmd) Run(ctx *kong.Context) error {
	report, err := library.GenerateIndex(os.DirFS(c.Dir))
	if err != nil {
		return err
	}
	printReport(ctx.Stdout, report)

	var buf bytes.Buffer
	if err := library.WriteIndex(&buf, report.Filenames()); err != nil {
		return err
	}
	buf.WriteByte('\n')

	if c.DryRun {
		_, err := ctx.Stdout.Write(buf.Bytes())
		return err
	}
	target := filepath.Join(c.Dir, c.Out)
	if err := writeFileAtomic(target, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "indexed %d poems into %s\n", len(report.Entries), target)
	return nil
}

// CheckCmd validates poem headers.
type CheckCmd struct {
	Dir string `arg:"" optional:"" default:"poems" type:"existingdir" help:"Poem directory"`
}

// errProblems is returned by check when any poem needs attention.
var errProblems = errors.New("poems with problems found")

// Run scans Dir and fails when any poem is invalid or unreadable.
func (c *CheckCmd) Run(ctx *kong.Context) error {
	report, err := library.GenerateIndex(os.DirFS(c.Dir))
	if err != nil {
		return err
	}
	printReport(ctx.Stdout, report)
	if n := len(report.Invalid()) + len(report.Unreadable); n > 0 {
		return fmt.Errorf("%d %w", n, errProblems)
	}
	fmt.Fprintf(ctx.Stdout, "%d poems ok\n", len(report.Entries))
	return nil
}

func printReport(w io.Writer, r *library.IndexReport) {
	for _, name := range r.Skipped {
		fmt.Fprintf(w, "skipped %s (leading underscore)\n", name)
	}
	for _, e := range r.Invalid() {
		for _, p := range e.Problems {
			fmt.Fprintf(w, "warning: %s: %s\n", e.Filename, p)
		}
	}
	names := make([]string, 0, len(r.Unreadable))
	for name := range r.Unreadable {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "error: %s: %v\n", name, r.Unreadable[name])
	}
}

// writeFileAtomic replaces path with data via a temporary file in the same
// directory, so the server never reads a half-written index.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".list-*.json")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

func newParser(c *cli, stdout, stderr io.Writer) (*kong.Kong, error) {
	return kong.New(c,
		kong.Name("versify-index"),
		kong.Description("Generate the poem index for a Versify library"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
}

func main() {
	var c cli
	parser, err := newParser(&c, os.Stdout, os.Stderr)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	ctx.FatalIfErrorf(ctx.Run(ctx))
}
