package parser

import (
	"github.com/yuin/goldmark/ast"

	"github.com/starford/weave/internal/models"
)

// Point is a 1-based line/column location, column counted in code points.
type Point struct {
	Line   int
	Column int
}

// IsZero reports whether the point is unknown.
func (p Point) IsZero() bool { return p.Line == 0 }

// Range spans two points. A zero Start means the range is unknown.
type Range struct {
	Start Point
	End   Point
}

// Node is the closed set of nodes in a transformed Weave tree. The
// underlying goldmark tree is never mutated; ordinary Markdown passes
// through as *Markdown wrappers.
type Node interface {
	Pos() Range
	weaveNode()
}

type base struct {
	Range Range
}

func (b *base) Pos() Range { return b.Range }
func (b *base) weaveNode() {}

// Document is the root of a transformed tree.
type Document struct {
	base
	Children []Node
}

// Markdown wraps any goldmark node the transformer does not rewrite.
type Markdown struct {
	base
	Kind     ast.NodeKind
	Source   ast.Node
	Children []Node
}

// Text is literal text. SoftBreak and HardBreak mark the line break that
// follows it.
type Text struct {
	base
	Value     string
	SoftBreak bool
	HardBreak bool
}

// CodeSpan is inline code.
type CodeSpan struct {
	base
	Value string
}

// Image is an inline image; Alt is the plain text of its description.
type Image struct {
	base
	Destination string
	Alt         string
}

// NodeLink is a link whose destination uses the node: scheme.
type NodeLink struct {
	base
	TargetID string
	Display  models.DisplayType
	Export   models.ExportHint
	Unknown  map[string]models.ParamValue
	Children []Node
}

// Ref rebuilds the NodeRef the link was parsed from.
func (n *NodeLink) Ref() models.NodeRef {
	return models.NodeRef{ID: n.TargetID, Display: n.Display, Export: n.Export, Extra: n.Unknown}
}

// MathBlock is a ```math fenced block.
type MathBlock struct {
	base
	Value string
}

// Preformatted is a ```pre fenced block.
type Preformatted struct {
	base
	Value string
}

// Media block types.
const (
	MediaImage     = "image"
	MediaGallery   = "gallery"
	MediaAudio     = "audio"
	MediaVideo     = "video"
	MediaEmbed     = "embed"
	MediaVoiceover = "voiceover"
)

// MediaTypes lists the fenced block languages that carry a YAML config.
var MediaTypes = []string{MediaImage, MediaGallery, MediaAudio, MediaVideo, MediaEmbed, MediaVoiceover}

// MediaBlock is a fenced block whose body is a YAML configuration mapping.
type MediaBlock struct {
	base
	MediaType string
	Config    map[string]any
}

// InlineMath is ":math[value]".
type InlineMath struct {
	base
	Value string
}

// Substitution is ":sub[initial]{replacement}".
type Substitution struct {
	base
	Initial     string
	Replacement string
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range children(n) {
		Walk(c, fn)
	}
}

func children(n Node) []Node {
	switch n := n.(type) {
	case *Document:
		return n.Children
	case *Markdown:
		return n.Children
	case *NodeLink:
		return n.Children
	default:
		return nil
	}
}
