// Package workspace loads every Weave document of a workspace through a
// storage provider and runs the cross-document validation.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/starford/weave/internal/checksum"
	"github.com/starford/weave/internal/graph"
	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/parser"
	"github.com/starford/weave/internal/storage"
)

// Document is one loaded file. Section is nil when the file could not be
// parsed; the reason is then the first diagnostic.
type Document struct {
	Path        string              `json:"path"`
	Checksum    string              `json:"checksum"`
	Section     *models.Section     `json:"section,omitempty"`
	Links       []models.Link       `json:"links"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
	Source      []byte              `json:"-"`
}

// Workspace is the set of documents under one root, sorted by path.
type Workspace struct {
	Documents []*Document
}

// Option configures Load.
type Option func(*options)

type options struct {
	dir         string
	concurrency int
	logger      *slog.Logger
	parserOpts  []parser.Option
}

// WithDir restricts loading to a subdirectory of the provider root.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithConcurrency bounds the number of documents parsed at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger used for per-document reports.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithParserOptions passes options to the document parser.
func WithParserOptions(opts ...parser.Option) Option {
	return func(o *options) { o.parserOpts = append(o.parserOpts, opts...) }
}

// Load lists the documents of store and parses them concurrently. Parse
// failures become diagnostics on the document; only listing errors and
// cancellation are returned.
func Load(ctx context.Context, store storage.Provider, opts ...Option) (*Workspace, error) {
	o := options{concurrency: runtime.GOMAXPROCS(0), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	metas, err := store.List(o.dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: list: %w", err)
	}

	p := parser.New(o.parserOpts...)
	docs := make([]*Document, len(metas))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, meta := range metas {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			src, err := store.Read(meta.Path)
			if err != nil {
				o.logger.Warn("read document", slog.String("path", meta.Path), slog.String("error", err.Error()))
				docs[i] = unreadable(meta.Path, err)
				return nil
			}
			docs[i] = LoadDocument(p, meta.Path, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("workspace: load: %w", err)
	}

	o.logger.Debug("workspace loaded", slog.Int("documents", len(docs)))
	return &Workspace{Documents: docs}, nil
}

// LoadDocument parses one document's source. Fatal parse errors are
// recorded as an error diagnostic with the parser's code.
func LoadDocument(p *parser.Parser, path string, src []byte) *Document {
	doc := &Document{
		Path:        path,
		Checksum:    checksum.Sum(src),
		Links:       []models.Link{},
		Diagnostics: []models.Diagnostic{},
		Source:      src,
	}
	res, err := p.ParseTree(src)
	if err != nil {
		d := models.Diagnostic{Severity: models.SeverityError, Code: models.CodeFrontmatterInvalid, Message: err.Error(), FilePath: path}
		var perr *parser.Error
		if errors.As(err, &perr) {
			d.Code, d.Message = perr.Code, perr.Message
		}
		doc.Diagnostics = append(doc.Diagnostics, d)
		return doc
	}

	ast := parser.Compile(res.Tree, res.Frontmatter, res.BodyStart, res.Source, res.Diagnostics)
	doc.Section = &ast.Sections[0]
	doc.Links = ast.Links
	for _, d := range ast.Diagnostics {
		d.FilePath = path
		doc.Diagnostics = append(doc.Diagnostics, d)
	}
	return doc
}

func unreadable(path string, err error) *Document {
	return &Document{
		Path:  path,
		Links: []models.Link{},
		Diagnostics: []models.Diagnostic{{
			Severity: models.SeverityError,
			Code:     models.CodeDocumentUnreadable,
			Message:  err.Error(),
			FilePath: path,
		}},
	}
}

// Sections returns the parsed sections in path order, with the path each
// came from at the same index.
func (w *Workspace) Sections() ([]models.Section, []string) {
	var sections []models.Section
	var paths []string
	for _, d := range w.Documents {
		if d.Section == nil {
			continue
		}
		sections = append(sections, *d.Section)
		paths = append(paths, d.Path)
	}
	return sections, paths
}

// Links returns every link of every parsed document in path order.
func (w *Workspace) Links() []models.Link {
	var out []models.Link
	for _, d := range w.Documents {
		out = append(out, d.Links...)
	}
	return out
}

// Files maps section ids to the first file defining them.
func (w *Workspace) Files() map[string]string {
	out := make(map[string]string, len(w.Documents))
	for _, d := range w.Documents {
		if d.Section == nil {
			continue
		}
		if _, ok := out[d.Section.ID]; !ok {
			out[d.Section.ID] = d.Path
		}
	}
	return out
}

// Section returns the first section with id and the document defining it.
func (w *Workspace) Section(id string) (*Document, bool) {
	for _, d := range w.Documents {
		if d.Section != nil && d.Section.ID == id {
			return d, true
		}
	}
	return nil, false
}

// Document returns the document at path.
func (w *Workspace) Document(path string) (*Document, bool) {
	for _, d := range w.Documents {
		if d.Path == path {
			return d, true
		}
	}
	return nil, false
}

// Graph builds the reference graph of the workspace.
func (w *Workspace) Graph() *graph.Graph {
	sections, _ := w.Sections()
	return graph.Build(sections, w.Links())
}
