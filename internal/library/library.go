// Package library serves the poem collection: the list.json index, poem
// texts and the per-poem metadata shown in the poem list.
//
// A [Library] reads from an [fs.FS], normally [os.DirFS] over the configured
// poem directory. Metadata for the whole index is loaded concurrently with a
// bounded number of readers; a poem that fails to load still appears in the
// list with fallback metadata, as the list view never drops entries.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gulley/versify/pkg/poem"
)

const (
	// DefaultIndexFile is the name of the poem index inside the poem
	// directory.
	DefaultIndexFile = "list.json"

	defaultMaxLoads = 8
	poemExt         = ".txt"
	unknownAuthor   = "Unknown"
)

// ErrInvalidName is returned for filenames that are not a single path element
// inside the poem directory.
var ErrInvalidName = errors.New("library: invalid poem filename")

// LoadError reports that a poem or the index could not be fetched. It is a
// transient, user-facing failure: the caller may retry or choose another
// poem.
type LoadError struct {
	Filename string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("library: load %s: %v", e.Filename, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NotFound reports whether the file does not exist.
func (e *LoadError) NotFound() bool { return errors.Is(e.Err, fs.ErrNotExist) }

// LoadObserver is told how long each poem load took and whether it failed.
type LoadObserver func(ctx context.Context, filename string, d time.Duration, err error)

// Option configures a [Library].
type Option func(*Library)

// WithIndexFile overrides [DefaultIndexFile].
func WithIndexFile(name string) Option {
	return func(l *Library) {
		if name != "" {
			l.indexFile = name
		}
	}
}

// WithMaxConcurrentLoads bounds the readers used by [Library.Summaries].
func WithMaxConcurrentLoads(n int) Option {
	return func(l *Library) {
		if n > 0 {
			l.maxLoads = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Library) {
		if log != nil {
			l.log = log
		}
	}
}

// WithLoadObserver registers fn to observe every poem load.
func WithLoadObserver(fn LoadObserver) Option {
	return func(l *Library) { l.observe = fn }
}

// Library reads poems from a file system. It holds no mutable state and is
// safe for concurrent use.
type Library struct {
	fsys      fs.FS
	indexFile string
	maxLoads  int
	log       *slog.Logger
	observe   LoadObserver
}

// New returns a library over fsys.
func New(fsys fs.FS, opts ...Option) *Library {
	l := &Library{
		fsys:      fsys,
		indexFile: DefaultIndexFile,
		maxLoads:  defaultMaxLoads,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Poem is a loaded poem with everything the practice view needs.
type Poem struct {
	Document    *poem.Document        `json:"document"`
	Format      string                `json:"format"`
	Validation  poem.ValidationResult `json:"validation"`
	Fingerprint string                `json:"fingerprint"`

	// ParseErr is the non-fatal parse problem, if any. Document is still
	// usable as a best-effort result.
	ParseErr error `json:"-"`
}

// Index returns the filenames listed in the index, in order.
func (l *Library) Index(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := fs.ReadFile(l.fsys, l.indexFile)
	if err != nil {
		return nil, &LoadError{Filename: l.indexFile, Err: err}
	}
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return nil, &LoadError{Filename: l.indexFile, Err: fmt.Errorf("decode index: %w", err)}
	}
	return names, nil
}

// ValidName reports whether filename names a file directly inside the poem
// directory.
func ValidName(filename string) bool {
	return filename != "" &&
		filename != "." && filename != ".." &&
		!strings.ContainsAny(filename, `/\`) &&
		fs.ValidPath(filename)
}

// Raw returns the unparsed text of filename.
func (l *Library) Raw(ctx context.Context, filename string) (string, error) {
	if !ValidName(filename) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := fs.ReadFile(l.fsys, filename)
	if err != nil {
		return "", &LoadError{Filename: filename, Err: err}
	}
	return string(b), nil
}

// Load reads and parses filename. A parse problem is not an error: it is
// reported in [Poem.ParseErr] next to the best-effort document.
func (l *Library) Load(ctx context.Context, filename string) (*Poem, error) {
	start := time.Now()
	p, err := l.load(ctx, filename)
	if l.observe != nil {
		l.observe(ctx, filename, time.Since(start), err)
	}
	if err != nil {
		l.log.Warn("poem load failed", "poem", filename, "err", err)
		return nil, err
	}
	return p, nil
}

func (l *Library) load(ctx context.Context, filename string) (*Poem, error) {
	raw, err := l.Raw(ctx, filename)
	if err != nil {
		return nil, err
	}
	doc, perr := poem.Parse(raw, filename)
	if perr != nil {
		l.log.Debug("poem parsed with problems", "poem", filename, "err", perr)
	}
	return &Poem{
		Document:    doc,
		Format:      doc.Format.String(),
		Validation:  poem.Validate(raw),
		Fingerprint: Fingerprint([]byte(raw)),
		ParseErr:    perr,
	}, nil
}

// Summary is the list-view metadata of one poem.
type Summary struct {
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Preview   string `json:"preview"`
	LineCount int    `json:"lineCount"`
	CharCount int    `json:"charCount"`

	// LastPracticed is Unix milliseconds, nil when never practised. The
	// library does not fill it; callers attach it from the store.
	LastPracticed *int64 `json:"lastPracticed"`

	Fingerprint string `json:"fingerprint,omitempty"`
}

// fallbackSummary is shown for a poem whose text could not be loaded.
func fallbackSummary(filename string) Summary {
	return Summary{
		Filename: filename,
		Title:    strings.TrimSuffix(filename, poemExt),
		Author:   unknownAuthor,
	}
}

// Summarize builds the list-view metadata of a loaded poem.
func Summarize(filename string, p *Poem) Summary {
	md := p.Document.Metadata()
	return Summary{
		Filename:    filename,
		Title:       p.Document.Title,
		Author:      p.Document.Author,
		Preview:     md.Preview,
		LineCount:   md.LineCount,
		CharCount:   md.CharCount,
		Fingerprint: p.Fingerprint,
	}
}

// Summaries loads metadata for every poem in the index, in index order.
// Poems that fail to load get fallback metadata; only a failure to read the
// index itself, or cancellation, is returned as an error.
func (l *Library) Summaries(ctx context.Context) ([]Summary, error) {
	names, err := l.Index(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxLoads)
	for i, name := range names {
		g.Go(func() error {
			p, err := l.Load(gctx, name)
			switch {
			case err == nil:
				out[i] = Summarize(name, p)
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				out[i] = fallbackSummary(name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("library: summaries: %w", err)
	}
	return out, nil
}

// Has reports whether filename is listed in the index.
func (l *Library) Has(ctx context.Context, filename string) bool {
	names, err := l.Index(ctx)
	if err != nil {
		return false
	}
	for _, n := range names {
		if n == filename {
			return true
		}
	}
	return false
}

// Check verifies that the index is readable. It backs the readiness probe.
func (l *Library) Check(ctx context.Context) error {
	_, err := l.Index(ctx)
	return err
}
