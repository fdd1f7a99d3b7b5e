//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS sections_fts USING fts5(
			path UNINDEXED,
			section_id,
			title,
			peek,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

// ftsUpsert replaces the FTS entry of a document. Documents without a
// section are not searchable.
func ftsUpsert(tx *sql.Tx, d DocumentRow) error {
	ftsDelete(tx, d.Path)
	if d.ID == "" {
		return nil
	}
	if _, err := tx.Exec(`INSERT INTO sections_fts (path, section_id, title, peek, body) VALUES (?, ?, ?, ?, ?)`,
		d.Path, d.ID, d.Title, d.Peek, d.Body); err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM sections_fts WHERE path = ?`, path)
}

// ftsQuery turns free text into an FTS5 query: every term is quoted so
// operators and punctuation match literally, and the last term matches as
// a prefix.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	if n := len(terms); n > 0 {
		terms[n-1] += "*"
	}
	return strings.Join(terms, " ")
}

// Search ranks sections by bm25 with id and title weighted above body text.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	match := ftsQuery(query)
	if match == "" {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.Query(`
		SELECT path, section_id, title,
		       snippet(sections_fts, 4, '<b>', '</b>', '...', 64)
		FROM sections_fts
		WHERE sections_fts MATCH ?
		ORDER BY bm25(sections_fts, 0.0, 10.0, 5.0, 2.0, 1.0)
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
