// Package graph builds the reference graph of a workspace: one node per
// section, edge counts between known sections and every link occurrence
// keyed by its target id.
package graph

import (
	"maps"
	"slices"

	"github.com/starford/weave/internal/models"
)

// Node is one section in the graph. Outgoing and Incoming count links to
// and from other known sections.
type Node struct {
	ID       string         `json:"id"`
	Outgoing map[string]int `json:"outgoing"`
	Incoming map[string]int `json:"incoming"`

	// out keeps outgoing targets in first-seen order.
	out []string
}

// Targets returns the outgoing targets in the order they were first linked.
func (n *Node) Targets() []string {
	return slices.Clone(n.out)
}

// Graph is the aggregate of all sections and links of a workspace.
type Graph struct {
	Nodes       map[string]*Node         `json:"nodes"`
	Occurrences map[string][]models.Link `json:"occurrences"`

	order []string
}

// Build seeds a node for every section, records every link under its
// target id and counts an edge only when both ends are known sections.
func Build(sections []models.Section, links []models.Link) *Graph {
	g := &Graph{
		Nodes:       make(map[string]*Node, len(sections)),
		Occurrences: make(map[string][]models.Link, len(sections)),
	}
	for _, s := range sections {
		if _, ok := g.Nodes[s.ID]; ok {
			continue
		}
		g.Nodes[s.ID] = &Node{ID: s.ID, Outgoing: map[string]int{}, Incoming: map[string]int{}}
		g.Occurrences[s.ID] = []models.Link{}
		g.order = append(g.order, s.ID)
	}

	for _, l := range links {
		target := l.Ref.ID
		g.Occurrences[target] = append(g.Occurrences[target], l)

		src, ok := g.Nodes[l.SourceID]
		if !ok {
			continue
		}
		dst, ok := g.Nodes[target]
		if !ok {
			continue
		}
		if _, seen := src.Outgoing[target]; !seen {
			src.out = append(src.out, target)
		}
		src.Outgoing[target]++
		dst.Incoming[l.SourceID]++
	}
	return g
}

// IDs returns the section ids in the order they were given to Build.
func (g *Graph) IDs() []string {
	return slices.Clone(g.order)
}

// Broken returns the sorted ids that are linked to but name no section.
func (g *Graph) Broken() []string {
	var out []string
	for id := range g.Occurrences {
		if _, ok := g.Nodes[id]; !ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Backlinks returns the sorted ids of the sections linking to id.
func (g *Graph) Backlinks(id string) []string {
	n, ok := g.Nodes[id]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(n.Incoming))
}

// Edge is one counted edge between two known sections.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// Edges lists every counted edge, sources in section order and targets in
// first-seen order.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, id := range g.order {
		n := g.Nodes[id]
		for _, to := range n.out {
			out = append(out, Edge{From: id, To: to, Count: n.Outgoing[to]})
		}
	}
	return out
}
