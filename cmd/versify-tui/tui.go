package main

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/gulley/versify/internal/library"
	"github.com/gulley/versify/internal/practice"
	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/reveal"
	"github.com/gulley/versify/pkg/store"
)

// tui runs the poem picker and practice screens on one tcell screen. All
// drawing happens on the goroutine that calls run; sessions report frames
// by posting interrupt events.
type tui struct {
	screen   tcell.Screen
	lib      *library.Library
	svc      *store.Service
	sessions *practice.Manager
	searcher *library.Searcher
	chime    *chimer

	events chan tcell.Event
	quit   chan struct{}
}

func newTUI(s tcell.Screen, lib *library.Library, svc *store.Service, sessions *practice.Manager, chime *chimer) *tui {
	if chime == nil {
		chime = &chimer{}
	}
	return &tui{
		screen:   s,
		lib:      lib,
		svc:      svc,
		sessions: sessions,
		searcher: library.NewSearcher(),
		chime:    chime,
		events:   make(chan tcell.Event, 64),
		quit:     make(chan struct{}),
	}
}

// run shows the picker until the user quits. When poem is set it is
// practised directly and leaving it ends the program.
func (t *tui) run(ctx context.Context, poem string, opts practice.OpenOptions) error {
	go t.screen.ChannelEvents(t.events, t.quit)
	defer close(t.quit)

	if poem != "" {
		return t.practise(ctx, poem, opts)
	}
	for {
		name, ok, err := t.pick(ctx)
		if err != nil || !ok {
			return err
		}
		if err := t.practise(ctx, name, opts); err != nil {
			return err
		}
	}
}

func (t *tui) next(ctx context.Context) (tcell.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev, ok := <-t.events:
		if !ok {
			return nil, context.Canceled
		}
		return ev, nil
	}
}

// pick shows the poem list. ok is false when the user quits.
func (t *tui) pick(ctx context.Context) (name string, ok bool, err error) {
	all, err := t.lib.Summaries(ctx)
	if err != nil {
		return "", false, err
	}
	for i := range all {
		if ms, found := t.svc.LastPracticed(ctx, all[i].Filename); found {
			all[i].LastPracticed = &ms
		}
	}
	library.Sort(all, library.SortTitleAsc)

	query := ""
	list := all
	selected := 0
	for {
		drawPicker(t.screen, list, selected, query)
		ev, err := t.next(ctx)
		if err != nil {
			return "", false, err
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			t.screen.Sync()
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				return "", false, nil
			case tcell.KeyEnter:
				if len(list) > 0 {
					return list[selected].Filename, true, nil
				}
			case tcell.KeyUp:
				selected = max(selected-1, 0)
			case tcell.KeyDown:
				selected = min(selected+1, max(len(list)-1, 0))
			case tcell.KeyBackspace, tcell.KeyBackspace2:
				query = dropLastRune(query)
				list, selected = t.searcher.Search(all, query), 0
			case tcell.KeyRune:
				query += string(ev.Rune())
				list, selected = t.searcher.Search(all, query), 0
			}
		}
	}
}

// practise runs one session until the user leaves it.
func (t *tui) practise(ctx context.Context, name string, opts practice.OpenOptions) error {
	var id string
	sess, err := t.sessions.Open(ctx, name, opts, func(u practice.Update) {
		_ = t.screen.PostEvent(tcell.NewEventInterrupt(sessionUpdate{id: id, Update: u}))
	})
	if err != nil {
		return err
	}
	defer t.sessions.Close(context.WithoutCancel(ctx), sess.ID())
	id = sess.ID()

	doc := sess.Poem().Document
	p := &practiceScreen{
		sess: sess,
		mode: sess.Info().Mode,
		view: view{title: doc.Title, author: doc.Author},
	}
	if n := sess.Restored(); n > 0 {
		p.view.status = fmt.Sprintf("Resumed at %d %s. Keep going!", n, unitName(p.mode))
	}
	if err := sess.Start(ctx); err != nil {
		return err
	}

	for {
		ev, err := t.next(ctx)
		if err != nil {
			return err
		}
		switch ev := ev.(type) {
		case *tcell.EventInterrupt:
			u, ok := ev.Data().(sessionUpdate)
			if !ok || u.id != sess.ID() || u.Seq <= p.seq {
				continue
			}
			p.apply(u.Update, t.chime)
			drawPractice(t.screen, p.frame, p.view)
		case *tcell.EventResize:
			t.screen.Sync()
			drawPractice(t.screen, p.frame, p.view)
		case *tcell.EventKey:
			leave, err := p.handleKey(ctx, ev)
			if err != nil || leave {
				return err
			}
		}
	}
}

// sessionUpdate tags a frame with its session so frames from a session
// that has just been closed are ignored.
type sessionUpdate struct {
	id string
	practice.Update
}

// practiceScreen is the client-side state of one session: the last frame
// and, in line mode, the text typed into the input row.
type practiceScreen struct {
	sess  *practice.Session
	mode  match.Mode
	view  view
	frame reveal.Frame
	seq   uint64
}

// apply takes a new frame from the session and chimes on confirmed lines
// and on completion. The input row is managed by handleKey.
func (p *practiceScreen) apply(u practice.Update, chime *chimer) {
	prev := p.frame
	p.frame, p.seq = u.Frame, u.Seq
	switch {
	case u.Frame.Complete && !prev.Complete && p.seq > 1:
		chime.complete()
	case p.mode == match.LineBuffer && u.Frame.Progress > prev.Progress && p.seq > 1:
		chime.line()
	}
	if u.Frame.Progress != prev.Progress && p.seq > 1 {
		p.view.status = ""
	}
}

// handleKey applies one key press. leave is true when the user exits.
func (p *practiceScreen) handleKey(ctx context.Context, ev *tcell.EventKey) (leave bool, err error) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true, nil
	case tcell.KeyCtrlR:
		p.view.input = ""
		return false, p.sess.Reset(ctx)
	case tcell.KeyCtrlD:
		dots := !p.sess.Settings().ShowDots
		_, err := p.sess.UpdateSettings(ctx, practice.Patch{ShowDots: &dots})
		return false, err
	case tcell.KeyCtrlL:
		line := !p.sess.Settings().ShowLine
		_, err := p.sess.UpdateSettings(ctx, practice.Patch{ShowLine: &line})
		return false, err
	}

	k, ok := keyOf(ev)
	if !ok {
		return false, nil
	}
	if p.mode == match.CharStream {
		_, err := p.sess.Key(ctx, k)
		return false, err
	}

	allowed, err := p.sess.Key(ctx, k)
	if err != nil || !allowed {
		return false, err
	}
	switch r, printable := k.Rune(); {
	case k.Name == match.KeyBackspace:
		p.view.input = dropLastRune(p.view.input)
	case printable && !k.Chorded():
		p.view.input += string(r)
	default:
		return false, nil
	}
	out, err := p.sess.Input(ctx, p.view.input)
	if err != nil {
		return false, err
	}
	// Clear the row now rather than when the frame arrives: keys typed
	// ahead of that frame already belong to the next line.
	if out.Advanced {
		p.view.input = ""
	}
	return false, nil
}

func unitName(m match.Mode) string {
	if m == match.LineBuffer {
		return "lines"
	}
	return "characters"
}
