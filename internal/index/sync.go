package index

import (
	"log/slog"
	"time"

	"github.com/starford/weave/internal/parser"
	"github.com/starford/weave/internal/storage"
	"github.com/starford/weave/internal/workspace"
)

// Indexer keeps a DB in step with a storage provider.
type Indexer struct {
	db     *DB
	store  storage.Provider
	parser *parser.Parser
	logger *slog.Logger
}

// NewIndexer creates an indexer. A nil parser uses the default one.
func NewIndexer(db *DB, store storage.Provider, p *parser.Parser, logger *slog.Logger) *Indexer {
	if p == nil {
		p = parser.New()
	}
	return &Indexer{db: db, store: store, parser: p, logger: logger}
}

// Sync walks the workspace and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func (ix *Indexer) Sync() error {
	metas, err := ix.store.List("")
	if err != nil {
		return err
	}

	checksums, err := ix.db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := ix.store.Read(m.Path)
		if err != nil {
			ix.logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := ix.IndexFile(m.Path, data, m.UpdatedAt); err != nil {
			ix.logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			ix.logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := ix.db.DeleteDocument(p); err != nil {
				ix.logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				ix.logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses data and upserts it. Documents that fail to parse are
// stored without a section so their diagnostics stay queryable.
func (ix *Indexer) IndexFile(path string, data []byte, updatedAt time.Time) error {
	doc := workspace.LoadDocument(ix.parser, path, data)
	row := DocumentRow{
		Path:      path,
		Checksum:  doc.Checksum,
		UpdatedAt: updatedAt,
	}
	if doc.Section != nil {
		row.ID = doc.Section.ID
		row.Title = doc.Section.Title
		row.Peek = doc.Section.Peek
		row.Body = doc.Section.Body
	}
	return ix.db.UpsertDocument(row, doc.Links, doc.Diagnostics)
}
