// Command versify-tui is a terminal practice client. It runs the practice
// engine in-process against a local poem directory and renders each frame
// with tcell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/gulley/versify/internal/app"
	"github.com/gulley/versify/internal/config"
	"github.com/gulley/versify/internal/library"
	"github.com/gulley/versify/internal/practice"
	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	dir := flag.String("poems", config.DefaultLibraryDir, "poem directory")
	index := flag.String("index", config.DefaultIndexFile, "index file inside the poem directory")
	poemName := flag.String("poem", "", "poem file to practise; empty shows the poem list")
	modeName := flag.String("mode", "", "match mode, line or char; empty uses the stored preference")
	resume := flag.Bool("resume", true, "resume stored progress")
	backend := flag.String("store", string(config.StoreSQLite), "store backend: memory, sqlite or postgres")
	sqlitePath := flag.String("sqlite", "versify.db", "sqlite database file")
	dsn := flag.String("dsn", "", "postgres connection string")
	sound := flag.Bool("sound", true, "play a chime on confirmed lines and completion")
	logPath := flag.String("log", "", "write logs to this file")
	flag.Parse()

	// The terminal is owned by the screen, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "versify-tui: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var openOpts practice.OpenOptions
	openOpts.Resume = *resume
	if *modeName != "" {
		m, err := match.ParseMode(*modeName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "versify-tui: %v\n", err)
			return 2
		}
		openOpts.Mode = &m
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := config.NewRegistry()
	app.RegisterStores(reg)
	kv, closer, err := reg.CreateStore(ctx, config.StoreConfig{
		Backend:     config.StoreBackend(*backend),
		PostgresDSN: *dsn,
		SQLitePath:  *sqlitePath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "versify-tui: %v\n", err)
		return 1
	}
	if closer != nil {
		defer closer.Close()
	}
	svc := store.New(kv, store.WithLogger(logger))

	lib := library.New(os.DirFS(*dir), library.WithIndexFile(*index), library.WithLogger(logger))
	sessions := practice.NewManager(lib, practice.WithStore(svc), practice.WithLogger(logger))
	defer sessions.CloseAll(context.WithoutCancel(ctx))

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "versify-tui: %v\n", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "versify-tui: %v\n", err)
		return 1
	}

	chime, err := newChimer(*sound)
	if err != nil {
		logger.Warn("audio disabled", "err", err)
	}

	t := newTUI(screen, lib, svc, sessions, chime)
	err = t.run(ctx, *poemName, openOpts)
	chime.close()
	screen.Fini()

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "versify-tui: %v\n", err)
		return 1
	}
	return 0
}
