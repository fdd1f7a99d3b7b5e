package index

import "github.com/starford/weave/internal/models"

// SectionIndex is the read/write surface of the index used by the service
// layer.
type SectionIndex interface {
	UpsertDocument(d DocumentRow, links []models.Link, diags []models.Diagnostic) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	GetSection(id string) (*DocumentRow, error)
	GetDocument(path string) (*DocumentRow, error)
	ListSections(limit, offset int) ([]DocumentRow, int, error)
	Sections() ([]models.Section, error)
	Links() ([]models.Link, error)
	LinksFrom(sourceID string) ([]models.Link, error)
	Backlinks(targetID string) ([]string, error)
	Diagnostics(path string) ([]models.Diagnostic, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

var _ SectionIndex = (*DB)(nil)
