package parser

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/weave/internal/nodeurl"
	"github.com/starford/weave/internal/scan"
)

// Stringify renders a document from its frontmatter and body. Extra
// frontmatter fields are re-emitted in their original order, a title or
// peek that is not a string is kept as written, and node URLs in the body
// are written in canonical form.
func Stringify(fm *Frontmatter, body string) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
	}
	str := func(s string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	}
	add("id", str(fm.ID))
	switch {
	case fm.Title != "":
		add("title", str(fm.Title))
	case fm.TitleNode != nil:
		add("title", fm.TitleNode)
	}
	switch {
	case fm.Peek != "":
		add("peek", str(fm.Peek))
	case fm.PeekNode != nil:
		add("peek", fm.PeekNode)
	}
	for _, f := range fm.Extra {
		add(f.Key, f.Value)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	buf.WriteString(delim + "\n\n")

	body = CanonicalizeLinks(strings.TrimSpace(body))
	if body != "" {
		buf.WriteString(body)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Canonicalize re-renders a whole document through Stringify.
func Canonicalize(src []byte) ([]byte, error) {
	clean := string(StripBOM(src))
	fm, bodyStart, _, err := ExtractFrontmatter(clean)
	if err != nil {
		return nil, err
	}
	return Stringify(fm, clean[bodyStart:])
}

// CanonicalizeLinks rewrites every parseable node URL in text into the
// form produced by nodeurl.Format. Code spans and fenced blocks are left
// untouched, as are links the codec rejects.
func CanonicalizeLinks(text string) string {
	lines := scan.NewLineIndex(text)
	var b strings.Builder
	b.Grow(len(text))
	var fences scan.Fences
	last := 0
	for i := 0; i < lines.LineCount(); i++ {
		line := lines.LineText(i)
		if fences.Next(line) {
			continue
		}
		start, _ := lines.Line(i)
		for _, sp := range scan.Links(line) {
			dest := sp.Dest(line)
			if sp.Image || sp.Trailing || !nodeurl.IsNodeURL(dest) {
				continue
			}
			ref, err := nodeurl.Parse(dest)
			if err != nil {
				continue
			}
			b.WriteString(text[last : start+sp.DestStart])
			b.WriteString(nodeurl.Format(ref))
			last = start + sp.DestEnd
		}
	}
	b.WriteString(text[last:])
	return b.String()
}
