package api

import (
	"github.com/starford/weave/internal/graph"
	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/sectionservice"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 10 << 20

// SectionDetail is the full section response type (aliased from the domain layer).
type SectionDetail = sectionservice.SectionDetail

// SectionListItem is a lightweight item in a list response (aliased from the domain layer).
type SectionListItem = sectionservice.SectionListItem

// DocumentDetail is the raw document response type (aliased from the domain layer).
type DocumentDetail = sectionservice.DocumentDetail

// SectionListResponse wraps paginated section listings.
type SectionListResponse struct {
	Sections []SectionListItem `json:"sections" validate:"required"`
	Total    int               `json:"total" example:"42" validate:"required"`
}

// BacklinksResponse lists the sections linking to one section.
type BacklinksResponse struct {
	ID        string   `json:"id" example:"intro" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	ID      string `json:"id" example:"intro" validate:"required"`
	Path    string `json:"path" example:"chapters/intro.md" validate:"required"`
	Title   string `json:"title" example:"Introduction" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// GraphNode is a section in the reference graph.
type GraphNode struct {
	ID       string `json:"id" example:"intro" validate:"required"`
	Outgoing int    `json:"outgoing" example:"3"`
	Incoming int    `json:"incoming" example:"1"`
}

// GraphResponse is the reference graph: nodes in section order, counted
// edges and the ids that are linked but never defined.
type GraphResponse struct {
	Nodes  []GraphNode  `json:"nodes" validate:"required"`
	Edges  []graph.Edge `json:"edges" validate:"required"`
	Broken []string     `json:"broken" validate:"required"`
}

// CyclesResponse lists reference cycles, each closed by repeating its
// first id.
type CyclesResponse struct {
	Cycles [][]string `json:"cycles" validate:"required"`
}

// DiagnosticsResponse wraps a diagnostic list.
type DiagnosticsResponse struct {
	Diagnostics []models.Diagnostic `json:"diagnostics" validate:"required"`
}

// ParseRequest is the request body for parsing a single document.
type ParseRequest struct {
	Content        string `json:"content" example:"---\nid: intro\n---\nHello" validate:"required"`
	FilePath       string `json:"filePath,omitempty" example:"intro.md"`
	Strict         bool   `json:"strict,omitempty"`
	StripPositions bool   `json:"stripPositions,omitempty"`
}

// ExtractRequest is the request body for text-only link extraction.
type ExtractRequest struct {
	Content  string `json:"content" example:"See [b](node:b)." validate:"required"`
	FilePath string `json:"filePath,omitempty" example:"intro.md"`
}

// PutDocumentRequest is the request body for writing a document.
type PutDocumentRequest struct {
	Content string `json:"content" example:"---\nid: intro\n---\nHello" validate:"required"`
}

func graphResponse(g *graph.Graph) GraphResponse {
	ids := g.IDs()
	nodes := make([]GraphNode, len(ids))
	for i, id := range ids {
		n := g.Nodes[id]
		nodes[i] = GraphNode{ID: id, Outgoing: sum(n.Outgoing), Incoming: sum(n.Incoming)}
	}
	edges := g.Edges()
	if edges == nil {
		edges = []graph.Edge{}
	}
	broken := g.Broken()
	if broken == nil {
		broken = []string{}
	}
	return GraphResponse{Nodes: nodes, Edges: edges, Broken: broken}
}

func sum(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

// MoveDocumentRequest is the request body for renaming a document.
type MoveDocumentRequest struct {
	From string `json:"from" example:"drafts/intro.md" validate:"required"`
	To   string `json:"to" example:"chapters/intro.md" validate:"required"`
}
