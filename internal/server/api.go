package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gulley/versify/internal/library"
	"github.com/gulley/versify/internal/practice"
	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/poem"
	"github.com/gulley/versify/pkg/store"
)

// maxSettingBody caps PUT /api/settings bodies.
const maxSettingBody = 4 << 10

// poemBody is the GET /api/poems/{filename} response.
type poemBody struct {
	Filename      string                `json:"filename"`
	Title         string                `json:"title"`
	Author        string                `json:"author"`
	Format        string                `json:"format"`
	Lines         []string              `json:"lines"`
	Metadata      poem.Metadata         `json:"metadata"`
	Validation    poem.ValidationResult `json:"validation"`
	Fingerprint   string                `json:"fingerprint"`
	ParseError    string                `json:"parseError,omitempty"`
	LastPracticed *int64                `json:"lastPracticed"`
}

func (s *Server) listPoems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := s.lib.Summaries(ctx)
	if err != nil {
		s.log.Warn("server: list poems", "err", err)
		writeError(w, http.StatusServiceUnavailable, "poem index unavailable")
		return
	}
	for i := range list {
		if ms, ok := s.svc.LastPracticed(ctx, list[i].Filename); ok {
			list[i].LastPracticed = &ms
		}
	}

	list = s.searcher.Search(list, r.URL.Query().Get("q"))
	library.Sort(list, library.ParseSortMode(r.URL.Query().Get("sort")))
	writeJSON(w, http.StatusOK, list)
}

// loadStatus maps a library error to an HTTP status.
func loadStatus(err error) int {
	var le *library.LoadError
	switch {
	case errors.Is(err, library.ErrInvalidName):
		return http.StatusBadRequest
	case errors.As(err, &le) && le.NotFound():
		return http.StatusNotFound
	case errors.Is(err, match.ErrNoPoem):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func (s *Server) getPoem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("filename")
	p, err := s.lib.Load(ctx, name)
	if err != nil {
		writeError(w, loadStatus(err), err.Error())
		return
	}

	etag := `"` + p.Fingerprint + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body := poemBody{
		Filename:    name,
		Title:       p.Document.Title,
		Author:      p.Document.Author,
		Format:      p.Format,
		Lines:       p.Document.Lines(),
		Metadata:    p.Document.Metadata(),
		Validation:  p.Validation,
		Fingerprint: p.Fingerprint,
	}
	if p.ParseErr != nil {
		body.ParseError = p.ParseErr.Error()
	}
	if ms, ok := s.svc.LastPracticed(ctx, name); ok {
		body.LastPracticed = &ms
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) markPracticed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("filename")
	if !library.ValidName(name) {
		writeError(w, http.StatusBadRequest, library.ErrInvalidName.Error())
		return
	}
	if !s.lib.Has(ctx, name) {
		writeError(w, http.StatusNotFound, "poem not in index")
		return
	}
	if !s.svc.MarkPracticed(ctx, name) {
		writeError(w, http.StatusServiceUnavailable, store.ErrUnavailable.Error())
		return
	}
	ms, _ := s.svc.LastPracticed(ctx, name)
	writeJSON(w, http.StatusOK, map[string]int64{"lastPracticed": ms})
}

func (s *Server) listPracticed(w http.ResponseWriter, r *http.Request) {
	list := s.svc.AllPracticed(r.Context())
	if list == nil {
		list = []store.Practiced{}
	}
	writeJSON(w, http.StatusOK, list)
}

// settingsBody is the effective practice preferences.
type settingsBody struct {
	Mode      string  `json:"mode"`
	ShowDots  bool    `json:"showDots"`
	ShowLine  bool    `json:"showLine"`
	HintDelay float64 `json:"hintDelay"`
	Prompt    string  `json:"prompt"`
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	def := s.sessions.Defaults()
	set := practice.LoadSettings(ctx, s.svc, def.Settings)
	writeJSON(w, http.StatusOK, settingsBody{
		Mode:      practice.LoadMode(ctx, s.svc, def.Mode).String(),
		ShowDots:  set.ShowDots,
		ShowLine:  set.ShowLine,
		HintDelay: set.HintDelay.Seconds(),
		Prompt:    string(set.Prompt),
	})
}

type settingValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (s *Server) getSetting(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	v, ok := s.svc.Get(r.Context(), store.KindSettings, name)
	if !ok {
		writeError(w, http.StatusNotFound, "setting not set")
		return
	}
	writeJSON(w, http.StatusOK, settingValue{Name: name, Value: v})
}

func (s *Server) putSetting(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var body settingValue
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSettingBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object with a value")
		return
	}
	if !s.svc.SetSetting(r.Context(), name, body.Value) {
		writeError(w, http.StatusServiceUnavailable, store.ErrUnavailable.Error())
		return
	}
	writeJSON(w, http.StatusOK, settingValue{Name: name, Value: body.Value})
}

func (s *Server) storeStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Stats(r.Context()))
}

func (s *Server) clearStore(w http.ResponseWriter, r *http.Request) {
	n := s.svc.ClearAll(r.Context())
	s.log.Info("store cleared", "keys", n)
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}
