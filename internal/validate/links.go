// Package validate holds the text-level and workspace-level checks that run
// outside the full parse: the standalone link extractor, the inline
// directive validator and the cross-section validators.
package validate

import (
	"fmt"
	"strings"

	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/nodeurl"
	"github.com/starford/weave/internal/scan"
)

// invalidIDChars may not appear in a section id even when the codec
// accepts the URL.
const invalidIDChars = `@#$^&*()+=[]{}|\;:'",<>?`

// ExtractResult is the outcome of Extract.
type ExtractResult struct {
	Links  []models.Link       `json:"links"`
	Errors []models.Diagnostic `json:"errors"`
}

// ExtractOption configures Extract.
type ExtractOption func(*extractOptions)

type extractOptions struct {
	filePath string
	sourceID string
}

// WithFilePath stamps diagnostics with path. Without WithSourceID the path
// is also used as the source id of every link.
func WithFilePath(path string) ExtractOption {
	return func(o *extractOptions) { o.filePath = path }
}

// WithSourceID sets the source id of every extracted link.
func WithSourceID(id string) ExtractOption {
	return func(o *extractOptions) { o.sourceID = id }
}

// Extract finds node links line by line without a full Markdown parse.
// Lines inside fenced code blocks, code spans and images are skipped.
func Extract(markdown string, opts ...ExtractOption) ExtractResult {
	var o extractOptions
	for _, opt := range opts {
		opt(&o)
	}

	res := ExtractResult{Links: []models.Link{}, Errors: []models.Diagnostic{}}
	lines := scan.NewLineIndex(markdown)
	var fences scan.Fences
	for n := 0; n < lines.LineCount(); n++ {
		line := lines.LineText(n)
		if fences.Next(line) {
			continue
		}
		start, _ := lines.Line(n)
		for _, sp := range scan.Links(line) {
			dest := sp.Dest(line)
			if sp.Image || !nodeurl.IsNodeURL(dest) {
				continue
			}
			at := position(lines, start+sp.DestStart)
			if sp.Trailing {
				res.Errors = append(res.Errors, o.diag(at, "Invalid node URL: unexpected trailing content after URL"))
				continue
			}

			link := models.Link{
				SourceID: o.source(n),
				Text:     linkText(sp.Text(line)),
				Start:    position(lines, start+sp.Start),
				End:      position(lines, start+sp.End()),
			}
			ref, err := nodeurl.Parse(dest)
			switch {
			case err != nil:
				link.Ref = models.NodeRef{ID: nodeurl.RawID(dest)}
				res.Errors = append(res.Errors, o.diag(at, "Invalid node URL: "+err.Error()))
			case strings.ContainsAny(ref.ID, invalidIDChars):
				link.Ref = ref
				res.Errors = append(res.Errors, o.diag(at, fmt.Sprintf("Invalid node URL: invalid characters in node id %q", ref.ID)))
			default:
				link.Ref = ref
			}
			res.Links = append(res.Links, link)
		}
	}
	return res
}

func (o extractOptions) source(line int) string {
	switch {
	case o.sourceID != "":
		return o.sourceID
	case o.filePath != "":
		return o.filePath
	default:
		return fmt.Sprintf("line-%d", line+1)
	}
}

func (o extractOptions) diag(at *models.SourcePosition, msg string) models.Diagnostic {
	return models.Diagnostic{
		Severity: models.SeverityError,
		Code:     models.CodeNodeURLInvalid,
		Message:  msg,
		FilePath: o.filePath,
		Position: at,
	}
}

func linkText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return raw
}

func position(lines *scan.LineIndex, offset int) *models.SourcePosition {
	line, char := lines.Position(offset)
	return &models.SourcePosition{Line: line, Character: char}
}
