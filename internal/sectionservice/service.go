// Package sectionservice coordinates the document store, the section index
// and the parser for the API and MCP layers.
package sectionservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/weave/internal/apperr"
	"github.com/starford/weave/internal/checksum"
	"github.com/starford/weave/internal/graph"
	"github.com/starford/weave/internal/index"
	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/parser"
	"github.com/starford/weave/internal/storage"
	"github.com/starford/weave/internal/validate"
	"github.com/starford/weave/internal/workspace"
)

// SectionDetail is the full representation of an indexed section.
type SectionDetail struct {
	ID        string        `json:"id"`
	Title     string        `json:"title,omitempty"`
	Peek      string        `json:"peek,omitempty"`
	Body      string        `json:"body"`
	Path      string        `json:"path"`
	Checksum  string        `json:"checksum"`
	Links     []models.Link `json:"links"`
	Backlinks []string      `json:"backlinks"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SectionListItem is a lightweight item in a list response.
type SectionListItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Peek      string    `json:"peek,omitempty"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentDetail is a raw document together with its parse result.
type DocumentDetail struct {
	Path        string              `json:"path"`
	Content     string              `json:"content"`
	Checksum    string              `json:"checksum"`
	Section     *models.Section     `json:"section,omitempty"`
	Links       []models.Link       `json:"links"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
}

// Service coordinates storage, index and parser operations.
type Service struct {
	store   storage.Provider
	db      *index.DB
	indexer *index.Indexer
	parser  *parser.Parser
	logger  *slog.Logger

	dedupeCycles bool
}

// NewService creates a new section service.
func NewService(store storage.Provider, db *index.DB, logger *slog.Logger) *Service {
	p := parser.New()
	return &Service{
		store:   store,
		db:      db,
		indexer: index.NewIndexer(db, store, p, logger),
		parser:  p,
		logger:  logger,
	}
}

// SetDedupeCycles makes Cycles and Validate collapse rotations of the same
// cycle even when the caller does not ask for it.
func (s *Service) SetDedupeCycles(on bool) { s.dedupeCycles = on }

// Indexer returns the indexer shared with the watcher.
func (s *Service) Indexer() *index.Indexer { return s.indexer }

// GetSection returns the section with id, its outgoing links and backlinks.
func (s *Service) GetSection(_ context.Context, id string) (*SectionDetail, error) {
	row, err := s.db.GetSection(id)
	if err != nil {
		return nil, err
	}
	links, err := s.db.LinksFrom(id)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(id)
	if err != nil {
		return nil, err
	}
	return &SectionDetail{
		ID:        row.ID,
		Title:     row.Title,
		Peek:      row.Peek,
		Body:      row.Body,
		Path:      row.Path,
		Checksum:  row.Checksum,
		Links:     links,
		Backlinks: nonNilSlice(bl),
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// ListSections returns a page of sections ordered by path.
func (s *Service) ListSections(_ context.Context, limit, offset int) ([]SectionListItem, int, error) {
	rows, total, err := s.db.ListSections(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]SectionListItem, len(rows))
	for i, r := range rows {
		items[i] = SectionListItem{
			ID:        r.ID,
			Title:     parser.DisplayTitle(r.Section()),
			Peek:      r.Peek,
			Path:      r.Path,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Backlinks returns the ids of the sections linking to id. Unknown ids
// yield apperr.ErrNotFound.
func (s *Service) Backlinks(_ context.Context, id string) ([]string, error) {
	if _, err := s.db.GetSection(id); err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(id)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(bl), nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph builds the reference graph from the indexed sections and links.
func (s *Service) Graph(_ context.Context) (*graph.Graph, error) {
	sections, err := s.db.Sections()
	if err != nil {
		return nil, err
	}
	links, err := s.db.Links()
	if err != nil {
		return nil, err
	}
	return graph.Build(sections, links), nil
}

// Cycles returns the reference cycles of the indexed graph.
func (s *Service) Cycles(ctx context.Context, dedupe bool) ([][]string, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return nil, err
	}
	var opts []graph.CycleOption
	if dedupe || s.dedupeCycles {
		opts = append(opts, graph.WithDedupe())
	}
	cycles := graph.DetectCycles(g, opts...)
	if cycles == nil {
		cycles = [][]string{}
	}
	return cycles, nil
}

// GraphDOT renders the indexed graph in Graphviz DOT format, labelling
// nodes with section titles and marking broken targets.
func (s *Service) GraphDOT(ctx context.Context) (string, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return "", err
	}
	sections, err := s.db.Sections()
	if err != nil {
		return "", err
	}
	titles := make(map[string]string, len(sections))
	for _, sec := range sections {
		titles[sec.ID] = parser.DisplayTitle(sec)
	}
	return graph.DOT(g, graph.DOTOptions{Titles: titles, Broken: true}), nil
}

// GraphSVG renders the indexed graph as SVG.
func (s *Service) GraphSVG(ctx context.Context) ([]byte, error) {
	dot, err := s.GraphDOT(ctx)
	if err != nil {
		return nil, err
	}
	return graph.RenderSVG(ctx, dot)
}

// Diagnostics returns the stored per-document diagnostics of path.
func (s *Service) Diagnostics(_ context.Context, path string) ([]models.Diagnostic, error) {
	return s.db.Diagnostics(path)
}

// Validate loads the whole workspace from storage and runs every check.
func (s *Service) Validate(ctx context.Context, dedupeCycles bool) (*workspace.Report, error) {
	ws, err := workspace.Load(ctx, s.store, workspace.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	var opts []workspace.ValidateOption
	if dedupeCycles || s.dedupeCycles {
		opts = append(opts, workspace.WithCycleOptions(graph.WithDedupe()))
	}
	return workspace.Validate(ws, opts...), nil
}

// Parse parses a single document without touching the workspace.
func (s *Service) Parse(_ context.Context, content []byte, opts ...parser.Option) (*models.AST, error) {
	return parser.Parse(content, opts...)
}

// ExtractLinks runs the text-only link extractor.
func (s *Service) ExtractLinks(_ context.Context, content, filePath string) validate.ExtractResult {
	return validate.Extract(content, validate.WithFilePath(filePath))
}

// GetDocument reads a document from storage and parses it.
func (s *Service) GetDocument(_ context.Context, path string) (*DocumentDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	return s.detail(path, data), nil
}

// PutDocument creates or replaces a document and reindexes it. When ifMatch
// is non-empty it must equal the stored checksum. Content whose frontmatter
// cannot be parsed is rejected with apperr.ErrInvalidDocument. The boolean
// result reports whether the document was created.
func (s *Service) PutDocument(_ context.Context, path string, content []byte, ifMatch string) (*DocumentDetail, bool, error) {
	existing, err := s.store.Read(path)
	created := errors.Is(err, apperr.ErrNotFound)
	if err != nil && !created {
		return nil, false, err
	}
	if ifMatch != "" && (created || !checksum.Match(existing, ifMatch)) {
		return nil, false, apperr.ErrConflict
	}
	if _, err := s.parser.ParseTree(content); err != nil {
		return nil, false, fmt.Errorf("%w: %s", apperr.ErrInvalidDocument, err.Error())
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, false, err
	}
	if err := s.indexer.IndexFile(path, content, time.Now()); err != nil {
		return nil, false, err
	}
	return s.detail(path, content), created, nil
}

// DeleteDocument removes a document from storage and index.
func (s *Service) DeleteDocument(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		return err
	}
	return s.db.DeleteDocument(path)
}

// DocumentStatus reports the section id and the number of error-severity
// diagnostics indexed for path. A path that is not indexed yields "" and 0.
func (s *Service) DocumentStatus(_ context.Context, path string) (string, int, error) {
	row, err := s.db.GetDocument(path)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	diags, err := s.db.Diagnostics(path)
	if err != nil {
		return "", 0, err
	}
	errs := 0
	for _, d := range diags {
		if d.Severity == models.SeverityError {
			errs++
		}
	}
	return row.ID, errs, nil
}

// ListDocuments lists the documents stored under folder ("" for all).
func (s *Service) ListDocuments(_ context.Context, folder string) ([]models.DocumentMetadata, error) {
	metas, err := s.store.List(folder)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(metas), nil
}

// MoveDocument renames a document and moves its index entry.
func (s *Service) MoveDocument(_ context.Context, oldPath, newPath string) error {
	if err := s.store.Move(oldPath, newPath); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(oldPath); err != nil {
		return err
	}
	data, err := s.store.Read(newPath)
	if err != nil {
		return err
	}
	return s.indexer.IndexFile(newPath, data, time.Now())
}

func (s *Service) detail(path string, data []byte) *DocumentDetail {
	doc := workspace.LoadDocument(s.parser, path, data)
	return &DocumentDetail{
		Path:        path,
		Content:     string(data),
		Checksum:    doc.Checksum,
		Section:     doc.Section,
		Links:       doc.Links,
		Diagnostics: doc.Diagnostics,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
