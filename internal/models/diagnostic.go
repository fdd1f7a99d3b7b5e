package models

import "fmt"

// Severity of a diagnostic.
type Severity string

// Severities, most severe first.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rank orders severities for sorting: error < warning < info.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Stable diagnostic codes.
const (
	CodeFrontmatterMissing      = "WEAVE_FRONTMATTER_MISSING"
	CodeFrontmatterInvalid      = "WEAVE_FRONTMATTER_INVALID"
	CodeFrontmatterIDMissing    = "WEAVE_FRONTMATTER_ID_MISSING"
	CodeFrontmatterUnknownField = "WEAVE_FRONTMATTER_UNKNOWN_FIELD"
	CodeNodeURLInvalid          = "WEAVE_NODE_URL_INVALID"
	CodeNodeURLUnknownParam     = "WEAVE_NODE_URL_UNKNOWN_PARAM"
	CodeMediaYAMLInvalid        = "WEAVE_MEDIA_YAML_INVALID"
	CodeMediaConfigInvalid      = "WEAVE_MEDIA_CONFIG_INVALID"

	CodeFrontmatterIDDuplicate = "WEAVE_FRONTMATTER_ID_DUPLICATE"
	CodeBrokenReference        = "WEAVE_BROKEN_REFERENCE"
	CodeReferenceCycle         = "WEAVE_REFERENCE_CYCLE"

	CodeInlineMathUnclosed    = "WEAVE_INLINE_MATH_UNCLOSED"
	CodeInlineMathEmpty       = "WEAVE_INLINE_MATH_EMPTY"
	CodeSubUnclosed           = "WEAVE_SUB_UNCLOSED"
	CodeSubReplacementMissing = "WEAVE_SUB_REPLACEMENT_MISSING"
	CodeSubEmpty              = "WEAVE_SUB_EMPTY"

	CodeDocumentUnreadable = "WEAVE_DOCUMENT_UNREADABLE"
)

// Diagnostic is a structured, non-fatal report about a document.
type Diagnostic struct {
	Severity Severity        `json:"severity"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	FilePath string          `json:"filePath,omitempty"`
	Position *SourcePosition `json:"position,omitempty"`
}

// String renders the diagnostic on one line.
func (d Diagnostic) String() string {
	loc := d.FilePath
	if d.Position != nil {
		loc = fmt.Sprintf("%s:%d:%d", loc, d.Position.Line+1, d.Position.Character+1)
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s: %s", d.Severity, loc, d.Code, d.Message)
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity returns the number of errors, warnings and infos.
func CountBySeverity(diags []Diagnostic) (errors, warnings, infos int) {
	for _, d := range diags {
		switch d.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		default:
			infos++
		}
	}
	return errors, warnings, infos
}
