package parser

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/starford/weave/internal/scan"
)

// KindInlineMath and KindSubstitution identify the inline nodes produced by
// the Weave directive parser.
var (
	KindInlineMath   = ast.NewNodeKind("WeaveInlineMath")
	KindSubstitution = ast.NewNodeKind("WeaveSubstitution")
)

// InlineMathNode is ":math[value]".
type InlineMathNode struct {
	ast.BaseInline
	Value   []byte
	Segment text.Segment
}

func (n *InlineMathNode) Kind() ast.NodeKind { return KindInlineMath }

func (n *InlineMathNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Value": string(n.Value)}, nil)
}

// SubstitutionNode is ":sub[initial]{replacement}".
type SubstitutionNode struct {
	ast.BaseInline
	Initial     []byte
	Replacement []byte
	Segment     text.Segment
}

func (n *SubstitutionNode) Kind() ast.NodeKind { return KindSubstitution }

func (n *SubstitutionNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Initial":     string(n.Initial),
		"Replacement": string(n.Replacement),
	}, nil)
}

type directiveParser struct{}

func (p *directiveParser) Trigger() []byte {
	return []byte{':'}
}

// Parse recognises a directive that closes on the current line. Anything
// else falls through so the ':' stays ordinary text.
func (p *directiveParser) Parse(_ ast.Node, block text.Reader, _ gmparser.Context) ast.Node {
	line, seg := block.PeekLine()
	s := string(line)
	span, status, ok := scan.Directive(s, 0)
	if !ok || status != scan.DirectiveOK {
		return nil
	}
	nodeSeg := text.NewSegment(seg.Start, seg.Start+span.End)
	block.Advance(span.End)

	if span.Name == scan.DirectiveMath {
		return &InlineMathNode{
			Value:   []byte(scan.Unescape(span.Content(s), "[]")),
			Segment: nodeSeg,
		}
	}
	return &SubstitutionNode{
		Initial:     []byte(scan.Unescape(span.Content(s), "[]")),
		Replacement: []byte(scan.Unescape(span.Arg(s), "{}")),
		Segment:     nodeSeg,
	}
}

// Directives is a goldmark extension registering the :math[] and :sub[]{}
// inline parsers.
var Directives goldmark.Extender = &directives{}

type directives struct{}

func (e *directives) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		gmparser.WithInlineParsers(
			util.Prioritized(&directiveParser{}, 150),
		),
	)
}
