package parser

import (
	"bytes"
	"slices"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/util"

	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/nodeurl"
	"github.com/starford/weave/internal/scan"
)

// transformer builds a Weave tree from a goldmark tree. Diagnostics are
// appended in pre-order as nodes are visited.
//
// cursor is the body offset up to which the source has been consumed by
// visited nodes. It only moves forward, so searches for link delimiters
// never reach back into earlier blocks.
type transformer struct {
	src    []byte
	text   string
	offset int
	lines  *scan.LineIndex
	cursor int
	diags  []models.Diagnostic
}

// Transform rewrites the goldmark tree of a document body into a Weave
// tree. body is the text goldmark parsed, bodyStart its offset within the
// document indexed by lines.
func Transform(root ast.Node, body []byte, bodyStart int, lines *scan.LineIndex) (*Document, []models.Diagnostic) {
	t := &transformer{
		src:    body,
		text:   string(body),
		offset: bodyStart,
		lines:  lines,
	}
	doc := &Document{Children: t.children(root)}
	return doc, t.diags
}

func (t *transformer) children(n ast.Node) []Node {
	var out []Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, t.node(c))
	}
	return out
}

func (t *transformer) advance(to int) {
	if to > t.cursor && to <= len(t.src) {
		t.cursor = to
	}
}

// enterBlock moves the cursor to the start of a block, or past it when the
// block has no inline children (code, HTML).
func (t *transformer) enterBlock(n ast.Node) {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return
	}
	if n.HasChildren() {
		t.advance(lines.At(0).Start)
		return
	}
	t.advance(lines.At(lines.Len() - 1).Stop)
}

func (t *transformer) node(n ast.Node) Node {
	if n.Type() == ast.TypeBlock {
		t.enterBlock(n)
	}
	switch n := n.(type) {
	case *ast.Link:
		if nodeurl.IsNodeURL(string(n.Destination)) {
			r, end := t.linkRange(n)
			return t.nodeLink(string(n.Destination), r, end, func() []Node { return t.children(n) })
		}
	case *ast.AutoLink:
		if n.AutoLinkType == ast.AutoLinkURL && nodeurl.IsNodeURL(string(n.URL(t.src))) {
			label := string(n.Label(t.src))
			r, end := t.autoLinkRange(label)
			return t.nodeLink(string(n.URL(t.src)), r, end, func() []Node { return []Node{&Text{Value: label}} })
		}
	case *ast.FencedCodeBlock:
		if b := t.fencedBlock(n); b != nil {
			return b
		}
	case *ast.Text:
		t.advance(n.Segment.Stop)
		value := n.Segment.Value(t.src)
		if !n.IsRaw() {
			value = decodeText(value)
		}
		return &Text{
			Value:     string(value),
			SoftBreak: n.SoftLineBreak(),
			HardBreak: n.HardLineBreak(),
		}
	case *ast.String:
		return &Text{Value: string(n.Value)}
	case *ast.CodeSpan:
		if _, last, ok := segmentBounds(n); ok {
			t.advance(last)
		}
		return &CodeSpan{Value: t.rawText(n)}
	case *ast.Image:
		return &Image{Destination: string(n.Destination), Alt: PlainText(t.children(n))}
	case *InlineMathNode:
		t.advance(n.Segment.Stop)
		return &InlineMath{base: base{Range: t.segmentRange(n.Segment.Start, n.Segment.Stop)}, Value: string(n.Value)}
	case *SubstitutionNode:
		t.advance(n.Segment.Stop)
		return &Substitution{
			base:        base{Range: t.segmentRange(n.Segment.Start, n.Segment.Stop)},
			Initial:     string(n.Initial),
			Replacement: string(n.Replacement),
		}
	}
	return &Markdown{Kind: n.Kind(), Source: n, Children: t.children(n)}
}

// decodeText resolves backslash escapes and character references the way
// they render.
func decodeText(b []byte) []byte {
	return util.ResolveEntityNames(util.ResolveNumericReferences(util.UnescapePunctuations(b)))
}

// nodeLink builds a NodeLink for dest. end is the body offset just past
// the link source, or -1 when it is unknown.
func (t *transformer) nodeLink(dest string, r Range, end int, children func() []Node) Node {
	link := &NodeLink{base: base{Range: r}}
	ref, err := nodeurl.Parse(dest)
	if err != nil {
		link.TargetID = nodeurl.RawID(dest)
		t.report(models.SeverityError, models.CodeNodeURLInvalid, err.Error(), r.Start)
	} else {
		link.TargetID = ref.ID
		link.Display = ref.Display
		link.Export = ref.Export
		link.Unknown = ref.Extra
		for _, k := range ref.ExtraKeys() {
			t.report(models.SeverityInfo, models.CodeNodeURLUnknownParam, "Unknown node URL parameter: "+k, r.Start)
		}
	}
	link.Children = children()
	t.advance(end)
	return link
}

// segmentBounds returns the first start and last stop of the source
// segments below n.
func segmentBounds(n ast.Node) (first, last int, ok bool) {
	first = -1
	note := func(start, stop int) {
		if first < 0 {
			first = start
		}
		last = stop
	}
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			note(c.Segment.Start, c.Segment.Stop)
		case *ast.RawHTML:
			if c.Segments.Len() > 0 {
				note(c.Segments.At(0).Start, c.Segments.At(c.Segments.Len()-1).Stop)
			}
		case *InlineMathNode:
			note(c.Segment.Start, c.Segment.Stop)
		case *SubstitutionNode:
			note(c.Segment.Start, c.Segment.Stop)
		}
		return ast.WalkContinue, nil
	})
	return first, last, first >= 0
}

// linkRange locates the inline link [text](dest) n was parsed from: the
// opening bracket before its first text segment (or the next "[](" for an
// empty text) through the parenthesis closing the destination. It also
// returns the body offset past the link. Reference links have no
// destination in place and report a zero range and -1.
func (t *transformer) linkRange(n *ast.Link) (Range, int) {
	s := t.text
	first, last, ok := segmentBounds(n)
	open := -1
	if ok && first <= len(s) && first >= t.cursor {
		for i := first - 1; i >= t.cursor && s[i] != '\n'; i-- {
			if s[i] == '[' && !scan.IsEscaped(s, i) {
				open = i
				break
			}
		}
		last = t.textEnd(n, last)
	} else if !ok {
		for from := t.cursor; from < len(s); {
			i := strings.Index(s[from:], "[](")
			if i < 0 {
				break
			}
			if at := from + i; at == 0 || s[at-1] != '!' {
				open, last = at, at+1
				break
			}
			from += i + 1
		}
	}
	if open < 0 || last < 0 || last > len(s) {
		return Range{}, -1
	}
	end := t.destEnd(last)
	if end < 0 {
		return Range{}, -1
	}
	return t.segmentRange(open, end), end
}

// textEnd moves last past an image that closes the link text, whose
// destination would otherwise be taken for the link's own.
func (t *transformer) textEnd(n ast.Node, last int) int {
	for c := n.LastChild(); c != nil; c = c.LastChild() {
		if img, ok := c.(*ast.Image); ok {
			if _, stop, ok := segmentBounds(img); ok {
				return t.destEnd(stop)
			}
			return -1
		}
	}
	return last
}

// destEnd finds the first unescaped "](" at or after from on the same line
// and returns the offset past the parenthesis closing it, or -1.
func (t *transformer) destEnd(from int) int {
	s := t.text
	for i := from; i < len(s) && s[i] != '\n'; i++ {
		if s[i] != ']' || scan.IsEscaped(s, i) {
			continue
		}
		if i+1 >= len(s) || s[i+1] != '(' {
			return -1
		}
		if closeParen := scan.FindClosing(s, i+2, '(', ')'); closeParen >= 0 {
			return closeParen + 1
		}
		return -1
	}
	return -1
}

// autoLinkRange locates <label> at or after the cursor.
func (t *transformer) autoLinkRange(label string) (Range, int) {
	i := strings.Index(t.text[t.cursor:], "<"+label+">")
	if i < 0 {
		return Range{}, -1
	}
	start := t.cursor + i
	end := start + len(label) + 2
	return t.segmentRange(start, end), end
}

func (t *transformer) fencedBlock(n *ast.FencedCodeBlock) Node {
	lang := string(n.Language(t.src))
	var mediaType string
	switch {
	case lang == "math", lang == "pre":
	case slices.Contains(MediaTypes, lang):
		mediaType = lang
	default:
		return nil
	}

	value := t.blockValue(n)
	r := Range{Start: t.fenceStart(n)}
	switch lang {
	case "math":
		return &MathBlock{base: base{Range: r}, Value: value}
	case "pre":
		return &Preformatted{base: base{Range: r}, Value: value}
	}

	block := &MediaBlock{base: base{Range: r}, MediaType: mediaType}
	cfg, err := decodeMediaConfig(value)
	block.Config = cfg
	if err != nil {
		t.report(models.SeverityError, models.CodeMediaYAMLInvalid, "Invalid YAML: "+err.Error(), r.Start)
		return block
	}
	for _, is := range validateMedia(mediaType, cfg) {
		t.report(is.severity, models.CodeMediaConfigInvalid, is.message, r.Start)
	}
	return block
}

// blockValue joins the content lines of a fenced block without the final
// line terminator.
func (t *transformer) blockValue(n *ast.FencedCodeBlock) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(t.src))
	}
	v := buf.String()
	if strings.HasSuffix(v, "\r\n") {
		return v[:len(v)-2]
	}
	return strings.TrimSuffix(strings.TrimSuffix(v, "\n"), "\r")
}

// fenceStart locates the opening fence from the info string.
func (t *transformer) fenceStart(n *ast.FencedCodeBlock) Point {
	if n.Info == nil {
		return Point{}
	}
	o := n.Info.Segment.Start
	for o > 0 && (t.src[o-1] == ' ' || t.src[o-1] == '\t') {
		o--
	}
	for o > 0 && (t.src[o-1] == '`' || t.src[o-1] == '~') {
		o--
	}
	return t.point(t.offset + o)
}

func (t *transformer) segmentRange(start, stop int) Range {
	return Range{Start: t.point(t.offset + start), End: t.point(t.offset + stop)}
}

func (t *transformer) point(offset int) Point {
	line, char := t.lines.Position(offset)
	return Point{Line: line + 1, Column: char + 1}
}

func (t *transformer) report(sev models.Severity, code, msg string, at Point) {
	d := models.Diagnostic{Severity: sev, Code: code, Message: msg}
	if !at.IsZero() {
		d.Position = &models.SourcePosition{Line: at.Line - 1, Character: at.Column - 1}
	}
	t.diags = append(t.diags, d)
}

// rawText concatenates the literal text below n.
func (t *transformer) rawText(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(t.src))
		case *ast.String:
			b.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
