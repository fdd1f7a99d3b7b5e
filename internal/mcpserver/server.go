// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Weave tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/weave/internal/apperr"
	"github.com/starford/weave/internal/graph"
	"github.com/starford/weave/internal/parser"
	"github.com/starford/weave/internal/sectionservice"
)

const syntaxURI = "weave://syntax"

// Server wraps the MCP server with Weave tools.
type Server struct {
	mcp *server.MCPServer
	svc *sectionservice.Service
}

// New creates a new MCP server with all Weave tools registered.
func New(svc *sectionservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Weave",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("parse_document",
		mcp.WithDescription("Parse a single Weave document and return its sections, links and diagnostics."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full document text including frontmatter")),
		mcp.WithString("filePath", mcp.Description("Path stamped on diagnostics (optional)")),
		mcp.WithBoolean("strict", mcp.Description("Fail when any error-severity diagnostic is found")),
		mcp.WithBoolean("stripPositions", mcp.Description("Remove source positions from the result")),
	), s.parseDocument)

	s.mcp.AddTool(mcp.NewTool("extract_links",
		mcp.WithDescription("Extract node links from Markdown text without a full parse."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown text")),
		mcp.WithString("filePath", mcp.Description("Path used as the link source (optional)")),
	), s.extractLinks)

	s.mcp.AddTool(mcp.NewTool("validate_workspace",
		mcp.WithDescription("Validate every document in the workspace: parse errors, duplicate ids, "+
			"broken references and reference cycles."),
		mcp.WithBoolean("dedupe", mcp.Description("Report each cycle once regardless of its starting node")),
	), s.validateWorkspace)

	s.mcp.AddTool(mcp.NewTool("read_section",
		mcp.WithDescription("Read an indexed section by id, with its links and backlinks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Section id")),
	), s.readSection)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all sections that link to the specified section."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the section to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Return the section reference graph."),
		mcp.WithString("format", mcp.Description("Output format: json (default) or dot")),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("search_sections",
		mcp.WithDescription("Full-text search through section titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchSections)

	s.mcp.AddTool(mcp.NewTool("write_document",
		mcp.WithDescription("Create or replace a document at the specified path. "+
			"Content MUST follow the Weave document format. Read the contract first via "+
			"the get_syntax_contract tool or the "+syntaxURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the document (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document text following the Weave format")),
		mcp.WithString("ifMatch", mcp.Description("Checksum the stored document must have (optional)")),
	), s.writeDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents or the documents in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_syntax_contract",
		mcp.WithDescription("Returns the Weave document format contract. "+
			"Call this before writing documents to ensure correct structure."),
	), s.getSyntaxContract)

	s.mcp.AddResource(
		mcp.NewResource(syntaxURI, "Weave Syntax Contract",
			mcp.WithResourceDescription("Document format, node links, blocks and inline syntax."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
	)

	return s
}

// Listen serves the MCP protocol over in and out until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) parseDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var opts []parser.Option
	if fp := req.GetString("filePath", ""); fp != "" {
		opts = append(opts, parser.WithFilePath(fp))
	}
	if req.GetBool("strict", false) {
		opts = append(opts, parser.WithStrict())
	}
	if req.GetBool("stripPositions", false) {
		opts = append(opts, parser.WithStripPositions())
	}
	ast, err := s.svc.Parse(ctx, []byte(content), opts...)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ast), nil
}

func (s *Server) extractLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.ExtractLinks(ctx, content, req.GetString("filePath", ""))), nil
}

func (s *Server) validateWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Validate(ctx, req.GetBool("dedupe", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report), nil
}

func (s *Server) readSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sec, err := s.svc.GetSection(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("section not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sec), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("section not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

type graphJSON struct {
	Nodes  []string     `json:"nodes"`
	Edges  []graph.Edge `json:"edges"`
	Broken []string     `json:"broken"`
	Cycles [][]string   `json:"cycles"`
}

func (s *Server) getGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch format := req.GetString("format", "json"); format {
	case "dot":
		dot, err := s.svc.GraphDOT(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(dot), nil
	case "json", "":
		g, err := s.svc.Graph(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cycles, err := s.svc.Cycles(ctx, true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out := graphJSON{Nodes: g.IDs(), Edges: g.Edges(), Broken: g.Broken(), Cycles: cycles}
		return jsonResult(out), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q (want json or dot)", format)), nil
	}
}

func (s *Server) searchSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) writeDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, created, err := s.svc.PutDocument(ctx, path, []byte(content), req.GetString("ifMatch", ""))
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError(fmt.Sprintf("checksum mismatch: %s", path)), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}

	verb := "updated"
	if created {
		verb = "created"
	}
	msg := fmt.Sprintf("%s: %s (checksum %s)", verb, path, doc.Checksum)
	if n := len(doc.Diagnostics); n > 0 {
		msg += fmt.Sprintf("\n%d diagnostic(s):", n)
		for _, d := range doc.Diagnostics {
			msg += fmt.Sprintf("\n  %s %s: %s", d.Severity, d.Code, d.Message)
		}
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.svc.ListDocuments(ctx, req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	paths := make([]string, len(metas))
	for i, m := range metas {
		paths[i] = m.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getSyntaxContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SyntaxContract), nil
}

func (s *Server) readSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      syntaxURI,
			MIMEType: "text/markdown",
			Text:     SyntaxContract,
		},
	}, nil
}
