package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/weave/internal/apperr"
	"github.com/starford/weave/internal/models"
)

// DocumentRow represents a row in the documents table. ID is empty for a
// document whose frontmatter could not be parsed.
type DocumentRow struct {
	Path      string
	ID        string
	Title     string
	Peek      string
	Checksum  string
	Body      string
	UpdatedAt time.Time
}

// Section returns the row as a section.
func (r DocumentRow) Section() models.Section {
	return models.Section{ID: r.ID, Title: r.Title, Peek: r.Peek, Body: r.Body}
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	ID      string `json:"sectionId"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, fmt.Errorf("index: scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertDocument replaces a document row, its FTS entry, links and
// diagnostics within one transaction.
func (db *DB) UpsertDocument(d DocumentRow, links []models.Link, diags []models.Diagnostic) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (path, section_id, title, peek, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			section_id = excluded.section_id,
			title      = excluded.title,
			peek       = excluded.peek,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Path, d.ID, d.Title, d.Peek, d.Checksum, d.Body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, d); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO links (path, seq, source_id, target_id, data) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for i, l := range links {
			data, err := json.Marshal(l)
			if err != nil {
				return fmt.Errorf("index: encode link: %w", err)
			}
			if _, err := stmt.Exec(d.Path, i, l.SourceID, l.Ref.ID, string(data)); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	if _, err := tx.Exec(`DELETE FROM diagnostics WHERE path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear diagnostics: %w", err)
	}
	if len(diags) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO diagnostics (path, seq, severity, code, data) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare diagnostic insert: %w", err)
		}
		defer stmt.Close()
		for i, diag := range diags {
			data, err := json.Marshal(diag)
			if err != nil {
				return fmt.Errorf("index: encode diagnostic: %w", err)
			}
			if _, err := stmt.Exec(d.Path, i, string(diag.Severity), diag.Code, string(data)); err != nil {
				return fmt.Errorf("index: insert diagnostic: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, links and diagnostics.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM diagnostics WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string
// if it is not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

const documentColumns = `path, section_id, title, peek, checksum, body, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (DocumentRow, error) {
	var d DocumentRow
	err := row.Scan(&d.Path, &d.ID, &d.Title, &d.Peek, &d.Checksum, &d.Body, &d.UpdatedAt)
	return d, err
}

// GetSection returns the first document, by path, defining section id.
func (db *DB) GetSection(id string) (*DocumentRow, error) {
	row := db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE section_id = ? ORDER BY path LIMIT 1`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: section %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get section: %w", err)
	}
	return &d, nil
}

// GetDocument returns the document stored at path.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	row := db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE path = ?`, path)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %q: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// ListSections returns a page of parsed documents ordered by path and the
// total count.
func (db *DB) ListSections(limit, offset int) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents WHERE section_id != ''`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count sections: %w", err)
	}
	rows, err := db.conn.Query(`SELECT `+documentColumns+` FROM documents WHERE section_id != '' ORDER BY path LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list sections: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// Sections returns every parsed section ordered by path.
func (db *DB) Sections() ([]models.Section, error) {
	rows, err := db.conn.Query(`SELECT ` + documentColumns + ` FROM documents WHERE section_id != '' ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: sections: %w", err)
	}
	defer rows.Close()

	var out []models.Section
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d.Section())
	}
	return out, rows.Err()
}

// Links returns every link ordered by document path and position.
func (db *DB) Links() ([]models.Link, error) {
	return db.queryLinks(`SELECT data FROM links ORDER BY path, seq`)
}

// LinksFrom returns the links whose source is sourceID.
func (db *DB) LinksFrom(sourceID string) ([]models.Link, error) {
	return db.queryLinks(`SELECT data FROM links WHERE source_id = ? ORDER BY path, seq`, sourceID)
}

func (db *DB) queryLinks(query string, args ...any) ([]models.Link, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: links: %w", err)
	}
	defer rows.Close()

	out := []models.Link{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var l models.Link
		if err := json.Unmarshal([]byte(data), &l); err != nil {
			return nil, fmt.Errorf("index: decode link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Backlinks returns the sorted, distinct source ids linking to targetID.
func (db *DB) Backlinks(targetID string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source_id FROM links WHERE target_id = ? ORDER BY source_id`, targetID)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Diagnostics returns the stored diagnostics of path, or of every document
// when path is empty.
func (db *DB) Diagnostics(path string) ([]models.Diagnostic, error) {
	query := `SELECT data FROM diagnostics ORDER BY path, seq`
	var args []any
	if path != "" {
		query = `SELECT data FROM diagnostics WHERE path = ? ORDER BY seq`
		args = append(args, path)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: diagnostics: %w", err)
	}
	defer rows.Close()

	out := []models.Diagnostic{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var d models.Diagnostic
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			return nil, fmt.Errorf("index: decode diagnostic: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
