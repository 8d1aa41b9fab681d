package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"

	"github.com/gulley/versify/internal/observe"
	"github.com/gulley/versify/internal/practice"
	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/reveal"
)

// outboundBuffer is the number of messages queued per connection before the
// session blocks on a slow client.
const outboundBuffer = 64

// conn is one practice WebSocket connection. It owns the outbound queue:
// every message, whether a frame from the session or a direct reply, goes
// through out so a single goroutine writes to the socket.
type conn struct {
	ws      *websocket.Conn
	out     chan serverMessage
	done    chan struct{}
	timeout time.Duration
}

// send queues m. It gives up when the connection is gone.
func (c *conn) send(m serverMessage) {
	select {
	case c.out <- m:
	case <-c.done:
	}
}

func (c *conn) sink(u practice.Update) {
	frame := u.Frame
	closeness := u.Closeness
	c.send(serverMessage{Type: msgFrame, Seq: u.Seq, Frame: &frame, Closeness: &closeness})
}

// writeLoop drains out until ctx is done.
func (c *conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-c.out:
			data, err := json.Marshal(m)
			if err != nil {
				return err
			}
			wctx, cancel := context.WithTimeout(ctx, c.timeout)
			err = c.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

// practice upgrades GET /api/practice?poem=&mode=&resume= to a WebSocket and
// runs a session on it. Bad parameters and unknown poems are answered with a
// plain HTTP error before the upgrade.
func (s *Server) practice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("poem")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing poem parameter")
		return
	}
	var opts practice.OpenOptions
	if raw := q.Get("mode"); raw != "" {
		mode, err := match.ParseMode(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Mode = &mode
	}
	if raw := q.Get("resume"); raw != "" {
		resume, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "resume must be a boolean")
			return
		}
		opts.Resume = resume
	}

	c := &conn{
		out:     make(chan serverMessage, outboundBuffer),
		done:    make(chan struct{}),
		timeout: s.writeTimeout,
	}
	sess, err := s.sessions.Open(r.Context(), name, opts, c.sink)
	if err != nil {
		writeError(w, loadStatus(err), err.Error())
		return
	}

	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("server: websocket accept", "err", err)
		_ = s.sessions.Close(context.WithoutCancel(r.Context()), sess.ID())
		return
	}
	c.ws = ws
	s.serve(r.Context(), c, sess)
}

// serve runs the connection until either side goes away.
func (s *Server) serve(parent context.Context, c *conn, sess *practice.Session) {
	p := sess.Poem()
	mode := sess.Info().Mode
	ctx, span := observe.StartPracticeSpan(parent, p.Document.Filename, mode.String())
	ctx, cancel := context.WithCancel(ctx)
	log := observe.WithTrace(ctx, s.log).With("session_id", sess.ID())
	defer func() {
		cancel()
		close(c.done)
		if err := s.sessions.Close(context.WithoutCancel(parent), sess.ID()); err != nil {
			log.Warn("server: close session", "err", err)
		}
		c.ws.Close(websocket.StatusNormalClosure, "session closed")
		span.End()
	}()

	go func() {
		if err := c.writeLoop(ctx); err != nil && ctx.Err() == nil {
			log.Debug("server: websocket write", "err", err)
			cancel()
		}
	}()

	c.send(serverMessage{
		Type:    msgReady,
		Session: sess.ID(),
		Poem: &poemHeader{
			Filename:    p.Document.Filename,
			Title:       p.Document.Title,
			Author:      p.Document.Author,
			Fingerprint: p.Fingerprint,
		},
		Mode:     &mode,
		Settings: settingsOf(sess.Settings()),
		Restored: sess.Restored(),
	})
	if err := sess.Start(ctx); err != nil {
		return
	}

	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				log.Debug("server: websocket read", "err", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(serverMessage{Type: msgError, Message: "malformed message"})
			continue
		}
		if err := s.dispatch(ctx, c, sess, msg); err != nil {
			if errors.Is(err, practice.ErrClosed) {
				return
			}
			c.send(serverMessage{Type: msgError, Message: err.Error()})
		}
	}
}

var errUnknownMessage = errors.New("unknown message type")

// dispatch applies one client message to the session.
func (s *Server) dispatch(ctx context.Context, c *conn, sess *practice.Session, msg clientMessage) error {
	switch msg.Type {
	case msgKey:
		allowed, err := sess.Key(ctx, msg.Key)
		if err != nil {
			return err
		}
		if sess.Info().Mode == match.LineBuffer {
			c.send(serverMessage{Type: msgGate, Key: msg.Name, Allowed: &allowed})
		}
		return nil
	case msgKeyUp:
		return sess.KeyUp(ctx, msg.Key)
	case msgInput:
		_, err := sess.Input(ctx, msg.Value)
		return err
	case msgReset:
		return sess.Reset(ctx)
	case msgSeek:
		_, err := sess.Seek(ctx, msg.Index)
		return err
	case msgBlur:
		return sess.Blur(ctx)
	case msgSettings:
		patch, err := patchOf(msg)
		if err != nil {
			return err
		}
		_, err = sess.UpdateSettings(ctx, patch)
		return err
	}
	return errUnknownMessage
}

func patchOf(msg clientMessage) (practice.Patch, error) {
	p := practice.Patch{ShowDots: msg.ShowDots, ShowLine: msg.ShowLine}
	if msg.HintDelay != nil {
		if *msg.HintDelay < 0 {
			return p, errors.New("hintDelay must not be negative")
		}
		d := time.Duration(*msg.HintDelay * float64(time.Second))
		p.HintDelay = &d
	}
	if msg.Prompt != nil {
		pr, err := reveal.ParsePrompt(*msg.Prompt)
		if err != nil {
			return p, err
		}
		p.Prompt = &pr
	}
	return p, nil
}

func settingsOf(s practice.Settings) *settingsPayload {
	return &settingsPayload{
		ShowDots:  s.ShowDots,
		ShowLine:  s.ShowLine,
		HintDelay: s.HintDelay.Seconds(),
		Prompt:    s.Prompt,
	}
}
