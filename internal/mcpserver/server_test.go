package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/sectionservice"
	"github.com/starford/weave/internal/testutil"
	"github.com/starford/weave/internal/validate"
	"github.com/starford/weave/internal/workspace"
)

func testServer(t *testing.T, files map[string]string) *Server {
	t.Helper()
	_, store := testutil.TestWorkspace(t, files)
	svc := sectionservice.NewService(store, testutil.TestDB(t), testutil.DiscardLogger())
	if err := svc.Indexer().Sync(); err != nil {
		t.Fatal(err)
	}
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so dispatch to the handlers directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "parse_document":
		result, err = srv.parseDocument(ctx, req)
	case "extract_links":
		result, err = srv.extractLinks(ctx, req)
	case "validate_workspace":
		result, err = srv.validateWorkspace(ctx, req)
	case "read_section":
		result, err = srv.readSection(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "get_graph":
		result, err = srv.getGraph(ctx, req)
	case "search_sections":
		result, err = srv.searchSections(ctx, req)
	case "write_document":
		result, err = srv.writeDocument(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "get_syntax_contract":
		result, err = srv.getSyntaxContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

var pair = map[string]string{
	"a.md": "---\nid: a\ntitle: Alpha\n---\nSee [b](node:b) and [x](node:ghost).\n",
	"b.md": "---\nid: b\n---\nBack to [a](node:a?display=sidenote).\n",
}

func TestWriteAndReadSection(t *testing.T) {
	srv := testServer(t, nil)

	r := callTool(t, srv, "write_document", map[string]interface{}{
		"path":    "intro.md",
		"content": "---\nid: intro\ntitle: Intro\n---\nHello\n",
	})
	if r.IsError || !strings.HasPrefix(resultText(r), "created: intro.md") {
		t.Fatalf("write result = %q", resultText(r))
	}

	r = callTool(t, srv, "read_section", map[string]interface{}{"id": "intro"})
	if r.IsError {
		t.Fatalf("read error: %s", resultText(r))
	}
	var sec sectionservice.SectionDetail
	if err := json.Unmarshal([]byte(resultText(r)), &sec); err != nil {
		t.Fatal(err)
	}
	if sec.Title != "Intro" || sec.Path != "intro.md" {
		t.Errorf("section = %+v", sec)
	}

	r = callTool(t, srv, "write_document", map[string]interface{}{
		"path":    "intro.md",
		"content": "---\nid: intro\n---\nChanged\n",
	})
	if r.IsError || !strings.HasPrefix(resultText(r), "updated: intro.md") {
		t.Errorf("rewrite result = %q", resultText(r))
	}
}

func TestWriteDocumentRejectsInvalid(t *testing.T) {
	srv := testServer(t, nil)
	r := callTool(t, srv, "write_document", map[string]interface{}{
		"path":    "bad.md",
		"content": "# no frontmatter\n",
	})
	if !r.IsError {
		t.Fatal("expected error for content without frontmatter")
	}
	if !strings.Contains(resultText(r), models.CodeFrontmatterMissing) {
		t.Errorf("error = %q", resultText(r))
	}
}

func TestWriteDocumentIfMatch(t *testing.T) {
	srv := testServer(t, pair)
	r := callTool(t, srv, "write_document", map[string]interface{}{
		"path":    "a.md",
		"content": "---\nid: a\n---\n",
		"ifMatch": "stale",
	})
	if !r.IsError || !strings.Contains(resultText(r), "checksum mismatch") {
		t.Errorf("result = %q, want checksum mismatch", resultText(r))
	}
}

func TestWriteDocumentReportsDiagnostics(t *testing.T) {
	srv := testServer(t, nil)
	r := callTool(t, srv, "write_document", map[string]interface{}{
		"path":    "d.md",
		"content": "---\nid: d\nauthor: me\n---\n",
	})
	text := resultText(r)
	if r.IsError || !strings.Contains(text, models.CodeFrontmatterUnknownField) {
		t.Errorf("result = %q", text)
	}
}

func TestReadSectionMissing(t *testing.T) {
	srv := testServer(t, nil)
	r := callTool(t, srv, "read_section", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing section")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t, pair)

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "a"})
	if text := resultText(r); text != "b" {
		t.Errorf("backlinks = %q, want b", text)
	}

	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "ghost"})
	if !r.IsError {
		t.Error("expected error for undefined section")
	}
}

func TestListDocuments(t *testing.T) {
	srv := testServer(t, pair)
	r := callTool(t, srv, "list_documents", map[string]interface{}{})
	if text := resultText(r); text != "a.md\nb.md" {
		t.Errorf("list = %q", text)
	}
}

func TestParseDocument(t *testing.T) {
	srv := testServer(t, nil)

	r := callTool(t, srv, "parse_document", map[string]interface{}{
		"content":        "---\nid: p\n---\nSee [q](node:q).\n",
		"stripPositions": true,
	})
	if r.IsError {
		t.Fatalf("parse error: %s", resultText(r))
	}
	var ast models.AST
	if err := json.Unmarshal([]byte(resultText(r)), &ast); err != nil {
		t.Fatal(err)
	}
	if len(ast.Sections) != 1 || ast.Sections[0].ID != "p" {
		t.Errorf("sections = %+v", ast.Sections)
	}
	if len(ast.Links) != 1 || ast.Links[0].Ref.ID != "q" || ast.Links[0].Start != nil {
		t.Errorf("links = %+v", ast.Links)
	}

	r = callTool(t, srv, "parse_document", map[string]interface{}{
		"content": "---\nid: p\n---\nSee [q](node:).\n",
		"strict":  true,
	})
	if !r.IsError {
		t.Error("strict parse should fail on an invalid node URL")
	}
}

func TestExtractLinks(t *testing.T) {
	srv := testServer(t, nil)
	r := callTool(t, srv, "extract_links", map[string]interface{}{
		"content":  "[a](node:a) and [b](node:b?export=omit)\n",
		"filePath": "x.md",
	})
	var res validate.ExtractResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Links) != 2 || len(res.Errors) != 0 {
		t.Errorf("result = %+v", res)
	}
	if res.Links[1].Ref.Export != models.ExportOmit {
		t.Errorf("export = %q", res.Links[1].Ref.Export)
	}
}

func TestValidateWorkspace(t *testing.T) {
	srv := testServer(t, pair)
	r := callTool(t, srv, "validate_workspace", map[string]interface{}{"dedupe": true})
	var report workspace.Report
	if err := json.Unmarshal([]byte(resultText(r)), &report); err != nil {
		t.Fatal(err)
	}
	if report.Valid || report.Errors != 1 || report.Sections != 2 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Cycles) != 1 {
		t.Errorf("cycles = %v", report.Cycles)
	}
}

func TestGetGraph(t *testing.T) {
	srv := testServer(t, pair)

	r := callTool(t, srv, "get_graph", map[string]interface{}{})
	var g graphJSON
	if err := json.Unmarshal([]byte(resultText(r)), &g); err != nil {
		t.Fatal(err)
	}
	if strings.Join(g.Nodes, ",") != "a,b" || strings.Join(g.Broken, ",") != "ghost" {
		t.Errorf("graph = %+v", g)
	}
	if len(g.Edges) != 2 || len(g.Cycles) != 1 {
		t.Errorf("edges = %v, cycles = %v", g.Edges, g.Cycles)
	}

	r = callTool(t, srv, "get_graph", map[string]interface{}{"format": "dot"})
	if !strings.HasPrefix(resultText(r), "digraph weave {") {
		t.Errorf("dot = %q", resultText(r))
	}

	r = callTool(t, srv, "get_graph", map[string]interface{}{"format": "png"})
	if !r.IsError {
		t.Error("expected error for unknown format")
	}
}

func TestSearchSections(t *testing.T) {
	srv := testServer(t, pair)
	r := callTool(t, srv, "search_sections", map[string]interface{}{"query": "Back"})
	if r.IsError || !strings.Contains(resultText(r), "b.md") {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestSyntaxContract(t *testing.T) {
	srv := testServer(t, nil)
	r := callTool(t, srv, "get_syntax_contract", nil)
	if resultText(r) != SyntaxContract {
		t.Error("contract tool returned unexpected text")
	}

	contents, err := srv.readSyntaxResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != syntaxURI || tc.MIMEType != "text/markdown" {
		t.Errorf("resource = %+v", contents[0])
	}
}
