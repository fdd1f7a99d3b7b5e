package parser

import (
	"strings"

	"github.com/starford/weave/internal/models"
)

// Compile reduces a transformed tree and its frontmatter into the public
// document model. The section body is the original source after the
// frontmatter, trimmed, not a re-serialization of the tree.
func Compile(doc *Document, fm *Frontmatter, bodyStart int, source string, diags []models.Diagnostic) *models.AST {
	links := []models.Link{}
	Walk(doc, func(n Node) bool {
		nl, ok := n.(*NodeLink)
		if !ok {
			return true
		}
		text := PlainText(nl.Children)
		if strings.TrimSpace(text) == "" {
			text = ""
		}
		links = append(links, models.Link{
			Ref:      nl.Ref(),
			SourceID: fm.ID,
			Text:     text,
			Start:    toPosition(nl.Range.Start),
			End:      toPosition(nl.Range.End),
		})
		return false
	})

	if bodyStart > len(source) {
		bodyStart = len(source)
	}
	ast := &models.AST{
		Sections: []models.Section{{
			ID:    fm.ID,
			Title: fm.Title,
			Peek:  fm.Peek,
			Body:  strings.TrimSpace(source[bodyStart:]),
		}},
		Links: links,
	}
	if len(diags) > 0 {
		ast.Diagnostics = diags
	}
	return ast
}

// toPosition converts a 1-based point to the 0-based public contract.
func toPosition(p Point) *models.SourcePosition {
	if p.IsZero() {
		return nil
	}
	return &models.SourcePosition{Line: p.Line - 1, Character: p.Column - 1}
}

// PlainText flattens inline nodes: text as-is, code span content, image alt
// text, a hard break as one space, a soft break as a newline, containers
// recursively and anything else as nothing.
func PlainText(nodes []Node) string {
	var b strings.Builder
	writePlain(&b, nodes)
	return b.String()
}

func writePlain(b *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *Text:
			b.WriteString(n.Value)
			switch {
			case n.HardBreak:
				b.WriteByte(' ')
			case n.SoftBreak:
				b.WriteByte('\n')
			}
		case *CodeSpan:
			b.WriteString(n.Value)
		case *Image:
			b.WriteString(n.Alt)
		default:
			writePlain(b, children(n))
		}
	}
}

// StripDebugInfo removes link positions and diagnostics. It is safe to call
// repeatedly.
func StripDebugInfo(ast *models.AST) {
	ast.Diagnostics = nil
	for i := range ast.Links {
		ast.Links[i].Start = nil
		ast.Links[i].End = nil
	}
}
