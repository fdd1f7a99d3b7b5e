//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the documents table is searched with LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _ DocumentRow) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches the query as a literal substring of the section id,
// title, peek or body. Sections whose id or title match come first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	like := "%" + likeEscaper.Replace(query) + "%"
	rows, err := db.conn.Query(`
		SELECT path, section_id, title, substr(body, 1, 200)
		FROM documents
		WHERE section_id != ''
		  AND (section_id LIKE ?1 ESCAPE '\' OR title LIKE ?1 ESCAPE '\'
		       OR peek LIKE ?1 ESCAPE '\' OR body LIKE ?1 ESCAPE '\')
		ORDER BY (section_id LIKE ?1 ESCAPE '\' OR title LIKE ?1 ESCAPE '\') DESC, path
		LIMIT ?2
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
