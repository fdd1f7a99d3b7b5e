package workspace

import (
	"context"
	"slices"
	"testing"

	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/parser"
	"github.com/starford/weave/internal/storage"
)

func newStore(t *testing.T, files map[string]string) *storage.FS {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	for path, content := range files {
		if err := fs.Write(path, []byte(content)); err != nil {
			t.Fatalf("Write %s: %v", path, err)
		}
	}
	return fs
}

func mixedWorkspace(t *testing.T) *Workspace {
	t.Helper()
	store := newStore(t, map[string]string{
		"a.md":      "---\nid: a\ntitle: A\n---\nSee [b](node:b) and [x](node:missing).\n",
		"b.md":      "---\nid: b\n---\n[a](node:a)\n",
		"dup.md":    "---\nid: a\n---\n",
		"broken.md": "no frontmatter",
		"spaced.md": "---\nid: s\n---\n[x](node:has space)\n",
	})
	ws, err := Load(context.Background(), store, WithConcurrency(2))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ws
}

func TestLoad(t *testing.T) {
	ws := mixedWorkspace(t)
	var paths []string
	for _, d := range ws.Documents {
		paths = append(paths, d.Path)
	}
	want := []string{"a.md", "b.md", "broken.md", "dup.md", "spaced.md"}
	if !slices.Equal(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}

	broken, _ := ws.Document("broken.md")
	if broken.Section != nil {
		t.Errorf("broken document has a section: %+v", broken.Section)
	}
	if len(broken.Diagnostics) != 1 || broken.Diagnostics[0].Code != models.CodeFrontmatterMissing {
		t.Errorf("broken diagnostics = %+v", broken.Diagnostics)
	}

	a, ok := ws.Section("a")
	if !ok || a.Path != "a.md" || a.Section.Title != "A" {
		t.Fatalf("Section(a) = %+v, %v", a, ok)
	}
	if len(a.Links) != 2 || a.Links[0].SourceID != "a" {
		t.Errorf("links = %+v", a.Links)
	}
	if a.Checksum == "" {
		t.Error("checksum not set")
	}

	if files := ws.Files(); files["a"] != "a.md" || files["s"] != "spaced.md" {
		t.Errorf("Files = %v", files)
	}
}

func TestValidate_Mixed(t *testing.T) {
	rep := Validate(mixedWorkspace(t))
	if rep.Valid {
		t.Error("report should be invalid")
	}
	if rep.Sections != 4 {
		t.Errorf("sections = %d, want 4", rep.Sections)
	}
	if rep.Errors != 4 || rep.Warnings != 0 || rep.Info != 1 {
		t.Errorf("counts = %d/%d/%d, want 4/0/1\n%+v", rep.Errors, rep.Warnings, rep.Info, rep.Diagnostics)
	}

	codes := map[string]string{}
	for _, d := range rep.Diagnostics {
		codes[d.Code] = d.FilePath
	}
	for code, file := range map[string]string{
		models.CodeFrontmatterMissing:     "broken.md",
		models.CodeNodeURLInvalid:         "spaced.md",
		models.CodeFrontmatterIDDuplicate: "dup.md",
		models.CodeBrokenReference:        "a.md",
		models.CodeReferenceCycle:         "a.md",
	} {
		if codes[code] != file {
			t.Errorf("%s reported on %q, want %q", code, codes[code], file)
		}
	}
	if len(rep.Cycles) != 1 || !slices.Equal(rep.Cycles[0], []string{"a", "b", "a"}) {
		t.Errorf("cycles = %v", rep.Cycles)
	}
}

func TestValidate_Clean(t *testing.T) {
	store := newStore(t, map[string]string{
		"one.md": "---\nid: one\n---\nSee [two](node:two?display=footnote).\n",
		"two.md": "---\nid: two\n---\nLeaf with :math[x^2].\n",
	})
	ws, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rep := Validate(ws)
	if !rep.Valid || len(rep.Diagnostics) != 0 || rep.Sections != 2 {
		t.Errorf("report = %+v", rep)
	}
	if rep.Cycles == nil {
		t.Error("cycles should be an empty list, not nil")
	}
}

func TestValidate_ParserAndExtractorNotDuplicated(t *testing.T) {
	store := newStore(t, map[string]string{
		"a.md": "---\nid: a\n---\n[x](node:y?display=bad)\n",
		"y.md": "---\nid: y\n---\n",
	})
	ws, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rep := Validate(ws)
	if rep.Errors != 1 {
		t.Errorf("errors = %d, want 1: %+v", rep.Errors, rep.Diagnostics)
	}
}

func TestValidate_ExtractorErrorOnParserErrorLine(t *testing.T) {
	store := newStore(t, map[string]string{
		"a.md": "---\nid: a\n---\n[x](node:y?display=bad) and [z](node:has space)\n",
		"y.md": "---\nid: y\n---\n",
	})
	ws, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rep := Validate(ws)
	if rep.Errors != 2 {
		t.Fatalf("errors = %d, want 2: %+v", rep.Errors, rep.Diagnostics)
	}
	var chars []int
	for _, d := range rep.Diagnostics {
		if d.Code == models.CodeNodeURLInvalid && d.Position != nil {
			chars = append(chars, d.Position.Character)
		}
	}
	if !slices.Equal(chars, []int{0, 32}) {
		t.Errorf("error columns = %v, want [0 32]", chars)
	}
}

func TestReport_ByFile(t *testing.T) {
	rep := &Report{Diagnostics: []models.Diagnostic{
		{FilePath: "b.md", Message: "1"},
		{FilePath: "a.md", Message: "2"},
		{FilePath: "b.md", Message: "3"},
		{Message: "4"},
	}}
	groups := rep.ByFile()
	if len(groups) != 3 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Path != "b.md" || len(groups[0].Diagnostics) != 2 || groups[2].Path != "unknown" {
		t.Errorf("groups = %+v", groups)
	}
}

func TestLoad_Cancelled(t *testing.T) {
	store := newStore(t, map[string]string{"a.md": "---\nid: a\n---\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, store); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestLoadDocument_ParserOptions(t *testing.T) {
	doc := LoadDocument(parser.New(parser.WithStripPositions()), "x.md", []byte("---\nid: x\nextra: 1\n---\n[y](node:y)\n"))
	if doc.Section == nil || doc.Section.ID != "x" {
		t.Fatalf("section = %+v", doc.Section)
	}
	if len(doc.Diagnostics) != 1 || doc.Diagnostics[0].FilePath != "x.md" {
		t.Errorf("diagnostics = %+v", doc.Diagnostics)
	}
}
