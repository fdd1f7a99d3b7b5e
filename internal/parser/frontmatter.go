package parser

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/scan"
)

const delim = "---"

var bom = []byte("\xEF\xBB\xBF")

// Field is one frontmatter entry outside the known id/title/peek set.
// Value is kept as a YAML node so Stringify can re-emit it faithfully.
type Field struct {
	Key   string
	Value *yaml.Node
}

// Frontmatter is the leading YAML block of a document. A title or peek
// that is not a string is reported and kept in TitleNode or PeekNode so it
// survives a rewrite.
type Frontmatter struct {
	ID    string
	Title string
	Peek  string
	Extra []Field

	TitleNode *yaml.Node
	PeekNode  *yaml.Node
}

// ExtraMap decodes the extra fields into plain Go values.
func (f *Frontmatter) ExtraMap() map[string]any {
	if len(f.Extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(f.Extra))
	for _, fld := range f.Extra {
		var v any
		if err := fld.Value.Decode(&v); err != nil {
			v = fld.Value.Value
		}
		out[fld.Key] = v
	}
	return out
}

// StripBOM removes a leading UTF-8 byte-order mark.
func StripBOM(src []byte) []byte {
	return bytes.TrimPrefix(src, bom)
}

// ExtractFrontmatter splits the leading frontmatter block off src, which
// must already be free of a byte-order mark. It returns the frontmatter,
// the byte offset where the body starts and informational diagnostics.
// Structural problems are returned as *Error.
func ExtractFrontmatter(src string) (*Frontmatter, int, []models.Diagnostic, error) {
	lines := scan.NewLineIndex(src)
	if lines.LineCount() < 2 || !isDelimiter(lines.LineText(0)) {
		return nil, 0, nil, errFrontmatterMissing()
	}
	closeLine := -1
	for i := 1; i < lines.LineCount(); i++ {
		if isDelimiter(lines.LineText(i)) {
			closeLine = i
			break
		}
	}
	if closeLine < 0 {
		return nil, 0, nil, errFrontmatterMissing()
	}

	yamlStart, _ := lines.Line(1)
	yamlEnd, _ := lines.Line(closeLine)
	bodyStart := len(src)
	if closeLine+1 < lines.LineCount() {
		bodyStart, _ = lines.Line(closeLine + 1)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src[yamlStart:yamlEnd]), &doc); err != nil {
		return nil, 0, nil, &Error{Code: models.CodeFrontmatterInvalid, Message: fmt.Sprintf("Frontmatter is not valid YAML: %v", err)}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, 0, nil, &Error{Code: models.CodeFrontmatterInvalid, Message: "Frontmatter must be a YAML object"}
	}
	root := doc.Content[0]

	fm := &Frontmatter{}
	var diags []models.Diagnostic
	idSeen := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "id":
			if !isString(value) || value.Value == "" {
				return nil, 0, nil, errIDMissing()
			}
			fm.ID = value.Value
			idSeen = true
		case "title", "peek":
			if value.Tag == "!!null" {
				continue
			}
			if !isString(value) {
				diags = append(diags, models.Diagnostic{
					Severity: models.SeverityError,
					Code:     models.CodeFrontmatterInvalid,
					Message:  fmt.Sprintf("Frontmatter field `%s` must be a string", key.Value),
					Position: yamlPosition(key),
				})
				if key.Value == "title" {
					fm.TitleNode = value
				} else {
					fm.PeekNode = value
				}
				continue
			}
			if key.Value == "title" {
				fm.Title = value.Value
			} else {
				fm.Peek = value.Value
			}
		default:
			fm.Extra = append(fm.Extra, Field{Key: key.Value, Value: value})
			diags = append(diags, models.Diagnostic{
				Severity: models.SeverityInfo,
				Code:     models.CodeFrontmatterUnknownField,
				Message:  "Unknown frontmatter field: " + key.Value,
				Position: yamlPosition(key),
			})
		}
	}
	if !idSeen {
		return nil, 0, nil, errIDMissing()
	}
	return fm, bodyStart, diags, nil
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t") == delim
}

func isString(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!str"
}

// yamlPosition converts a node position inside the frontmatter block into
// a document position. The block starts on line 1, after the opening
// delimiter.
func yamlPosition(n *yaml.Node) *models.SourcePosition {
	if n.Line == 0 {
		return nil
	}
	return &models.SourcePosition{Line: n.Line, Character: n.Column - 1}
}

func errFrontmatterMissing() error {
	return &Error{Code: models.CodeFrontmatterMissing, Message: "Document must start with YAML frontmatter"}
}

func errIDMissing() error {
	return &Error{Code: models.CodeFrontmatterIDMissing, Message: "Frontmatter must include a non-empty `id`"}
}

// DisplayTitle returns the section title, falling back to the first level-one
// heading of the body.
func DisplayTitle(s models.Section) string {
	if s.Title != "" {
		return s.Title
	}
	for _, line := range strings.Split(s.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return s.ID
}
