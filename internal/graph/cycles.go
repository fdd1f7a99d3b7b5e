package graph

import (
	"slices"
	"strings"
)

// CycleOption configures DetectCycles.
type CycleOption func(*cycleOptions)

type cycleOptions struct {
	dedupe bool
}

// WithDedupe drops cycles that are rotations of one already reported.
func WithDedupe() CycleOption {
	return func(o *cycleOptions) { o.dedupe = true }
}

// DetectCycles runs a depth-first search from every unvisited section in
// section order, following outgoing edges in first-seen order. Each back
// edge to a node on the current path yields the path from that node to the
// back edge, closed by repeating the node: [A B C A]. The starting node of
// a reported cycle therefore depends on section order.
func DetectCycles(g *Graph, opts ...CycleOption) [][]string {
	var o cycleOptions
	for _, opt := range opts {
		opt(&o)
	}

	var (
		cycles  [][]string
		visited = make(map[string]bool, len(g.Nodes))
		onStack = make(map[string]bool)
		seen    = make(map[string]bool)
	)

	var dfs func(id string, path []string)
	dfs = func(id string, path []string) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		if n, ok := g.Nodes[id]; ok {
			for _, next := range n.out {
				switch {
				case !visited[next]:
					dfs(next, slices.Clone(path))
				case onStack[next]:
					i := slices.Index(path, next)
					cycle := append(slices.Clone(path[i:]), next)
					if o.dedupe {
						key := canonicalKey(cycle)
						if seen[key] {
							continue
						}
						seen[key] = true
					}
					cycles = append(cycles, cycle)
				}
			}
		}
		onStack[id] = false
	}

	for _, id := range g.order {
		if !visited[id] {
			dfs(id, nil)
		}
	}
	return cycles
}

// canonicalKey identifies a closed cycle independent of its starting node.
func canonicalKey(cycle []string) string {
	ring := cycle[:len(cycle)-1]
	start := 0
	for i, id := range ring {
		if id < ring[start] {
			start = i
		}
	}
	rotated := append(slices.Clone(ring[start:]), ring[:start]...)
	return strings.Join(rotated, "\x00")
}
