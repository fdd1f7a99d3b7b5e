package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/weave/internal/apperr"
	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "weave-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func link(source, target string) models.Link {
	return models.Link{SourceID: source, Ref: models.NodeRef{ID: target, Display: models.DisplayFootnote}}
}

func row(path, id, checksum, body string) DocumentRow {
	return DocumentRow{Path: path, ID: id, Title: id, Checksum: checksum, Body: body, UpdatedAt: time.Now()}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"documents", "links", "diagnostics"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertDocument(row("hello.md", "hello", "abc123", "Hello body."), nil, nil); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(row("a.md", "a", "1", "body"), []models.Link{link("a", "b"), link("a", "b")}, nil)
	_ = db.UpsertDocument(row("c.md", "c", "2", "body"), []models.Link{link("c", "b")}, nil)

	bl, err := db.Backlinks("b")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 || bl[0] != "a" || bl[1] != "c" {
		t.Fatalf("backlinks = %v, want [a c]", bl)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	diags := []models.Diagnostic{{Severity: models.SeverityInfo, Code: models.CodeFrontmatterUnknownField, Message: "m"}}
	_ = db.UpsertDocument(row("del.md", "del", "x", "body"), []models.Link{link("del", "target")}, diags)

	if err := db.DeleteDocument("del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("target")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
	got, _ := db.Diagnostics("del.md")
	if len(got) != 0 {
		t.Errorf("expected diagnostics removed, got %v", got)
	}
}

func TestUpsertReplacesLinksAndDiagnostics(t *testing.T) {
	db := testDB(t)
	old := []models.Diagnostic{{Severity: models.SeverityError, Code: models.CodeNodeURLInvalid, Message: "old"}}
	_ = db.UpsertDocument(row("up.md", "up", "1", "old body"), []models.Link{link("up", "x")}, old)
	_ = db.UpsertDocument(row("up.md", "up", "2", "new body"), []models.Link{link("up", "y")}, nil)

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	if bl, _ := db.Backlinks("x"); len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	if bl, _ := db.Backlinks("y"); len(bl) != 1 {
		t.Error("new link should exist")
	}
	if got, _ := db.Diagnostics("up.md"); len(got) != 0 {
		t.Errorf("old diagnostics should be removed, got %v", got)
	}
}

func TestLinksRoundTripRef(t *testing.T) {
	db := testDB(t)
	l := models.Link{
		SourceID: "a",
		Text:     "see",
		Ref: models.NodeRef{
			ID:      "b",
			Display: models.DisplaySidenote,
			Export:  models.ExportOmit,
			Extra:   map[string]models.ParamValue{"flag": models.FlagParam(), "k": models.StringParam("v")},
		},
		Start: &models.SourcePosition{Line: 3, Character: 4},
		End:   &models.SourcePosition{Line: 3, Character: 15},
	}
	if err := db.UpsertDocument(row("a.md", "a", "1", "body"), []models.Link{l}, nil); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	links, err := db.LinksFrom("a")
	if err != nil {
		t.Fatalf("LinksFrom: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("links = %d, want 1", len(links))
	}
	got := links[0]
	if !got.Ref.Equal(l.Ref) || got.Text != "see" || *got.Start != *l.Start || *got.End != *l.End {
		t.Errorf("link = %+v, want %+v", got, l)
	}
}

func TestGetSection(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(row("b/intro.md", "intro", "1", "second"), nil, nil)
	_ = db.UpsertDocument(row("a/intro.md", "intro", "2", "first"), nil, nil)

	d, err := db.GetSection("intro")
	if err != nil {
		t.Fatalf("GetSection: %v", err)
	}
	if d.Path != "a/intro.md" || d.Body != "first" {
		t.Errorf("GetSection = %+v, want first path by order", d)
	}

	_, err = db.GetSection("missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	_, err = db.GetDocument("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListSectionsSkipsUnparsed(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(row("a.md", "a", "1", ""), nil, nil)
	_ = db.UpsertDocument(row("b.md", "b", "2", ""), nil, nil)
	_ = db.UpsertDocument(row("broken.md", "", "3", ""), nil, nil)

	rows, total, err := db.ListSections(1, 1)
	if err != nil {
		t.Fatalf("ListSections: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if len(rows) != 1 || rows[0].ID != "b" {
		t.Errorf("page = %+v, want [b]", rows)
	}

	sections, err := db.Sections()
	if err != nil {
		t.Fatalf("Sections: %v", err)
	}
	if len(sections) != 2 {
		t.Errorf("sections = %d, want 2", len(sections))
	}
}

func TestDiagnosticsAllDocuments(t *testing.T) {
	db := testDB(t)
	pos := &models.SourcePosition{Line: 2, Character: 0}
	_ = db.UpsertDocument(row("b.md", "b", "1", ""), nil, []models.Diagnostic{
		{Severity: models.SeverityInfo, Code: models.CodeFrontmatterUnknownField, Message: "b1", Position: pos},
	})
	_ = db.UpsertDocument(row("a.md", "a", "2", ""), nil, []models.Diagnostic{
		{Severity: models.SeverityError, Code: models.CodeNodeURLInvalid, Message: "a1"},
		{Severity: models.SeverityWarning, Code: models.CodeInlineMathEmpty, Message: "a2"},
	})

	all, err := db.Diagnostics("")
	if err != nil {
		t.Fatalf("Diagnostics: %v", err)
	}
	if len(all) != 3 || all[0].Message != "a1" || all[1].Message != "a2" || all[2].Message != "b1" {
		t.Fatalf("diagnostics = %+v", all)
	}
	if all[2].Position == nil || *all[2].Position != *pos {
		t.Errorf("position not kept: %+v", all[2].Position)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(row("s.md", "s", "1", "uniqueword appears here"), nil, nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" || results[0].ID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestSearch_TitleBeforeBody(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "a.md", ID: "a", Title: "Alpha", Checksum: "1", Body: "graphs are mentioned in passing"}, nil, nil)
	_ = db.UpsertDocument(DocumentRow{Path: "z.md", ID: "z", Title: "Graphs", Checksum: "2", Body: "nothing else"}, nil, nil)

	results, err := db.Search("graphs", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].ID != "z" {
		t.Errorf("results = %+v, want z first", results)
	}
}

func TestSearch_QueryIsLiteral(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(row("p.md", "p", "1", "reached 100% of the goal"), nil, nil)

	results, err := db.Search("100%", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %+v, want 1", results)
	}
	if _, err := db.Search(`a" OR (b`, 10); err != nil {
		t.Errorf("operator characters: %v", err)
	}
	if results, err := db.Search("  ", 10); err != nil || len(results) != 0 {
		t.Errorf("blank query = %+v, %v", results, err)
	}
}

func TestSearch_SkipsUnparsable(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "bad.md", Checksum: "1", Body: "needle"}, nil, nil)

	results, err := db.Search("needle", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want none", results)
	}
}

func TestIndexerSync(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.md", "---\nid: a\ntitle: A\n---\nSee [b](node:b).\n")
	write("b.md", "---\nid: b\n---\nBack to [a](node:a?display=sidenote).\n")
	write("bad.md", "no frontmatter here\n")

	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	ix := NewIndexer(db, store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := ix.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	d, err := db.GetSection("a")
	if err != nil {
		t.Fatalf("GetSection: %v", err)
	}
	if d.Title != "A" || d.Path != "a.md" {
		t.Errorf("section a = %+v", d)
	}
	if bl, _ := db.Backlinks("a"); len(bl) != 1 || bl[0] != "b" {
		t.Errorf("backlinks(a) = %v", bl)
	}
	bad, err := db.GetDocument("bad.md")
	if err != nil {
		t.Fatalf("unparsable document should be indexed: %v", err)
	}
	if bad.ID != "" {
		t.Errorf("unparsable document id = %q", bad.ID)
	}
	diags, _ := db.Diagnostics("bad.md")
	if len(diags) != 1 || diags[0].Code != models.CodeFrontmatterMissing {
		t.Errorf("bad.md diagnostics = %+v", diags)
	}

	if err := os.Remove(filepath.Join(dir, "b.md")); err != nil {
		t.Fatal(err)
	}
	if err := ix.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if cs, _ := db.GetChecksum("b.md"); cs != "" {
		t.Error("removed file still indexed")
	}
	if bl, _ := db.Backlinks("a"); len(bl) != 0 {
		t.Errorf("backlinks(a) after removal = %v", bl)
	}
}
