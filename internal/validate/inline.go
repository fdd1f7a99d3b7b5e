package validate

import (
	"strings"

	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/scan"
)

// Inline checks the :math[] and :sub[]{} directives of markdown. Escaped
// triggers, code spans and fenced blocks are ignored.
func Inline(markdown, filePath string) []models.Diagnostic {
	diags := []models.Diagnostic{}
	lines := scan.NewLineIndex(markdown)
	var fences scan.Fences
	for n := 0; n < lines.LineCount(); n++ {
		line := lines.LineText(n)
		if fences.Next(line) {
			continue
		}
		start, _ := lines.Line(n)
		report := func(sev models.Severity, code, msg string, i int) {
			diags = append(diags, models.Diagnostic{
				Severity: sev,
				Code:     code,
				Message:  msg,
				FilePath: filePath,
				Position: position(lines, start+i),
			})
		}

		for i := 0; i < len(line); {
			if line[i] == '`' && !scan.IsEscaped(line, i) {
				if end := scan.CodeSpanEnd(line, i); end > 0 {
					i = end
					continue
				}
			}
			span, status, ok := scan.Directive(line, i)
			if !ok {
				i++
				continue
			}
			checkDirective(span, status, line, func(sev models.Severity, code, msg string) {
				report(sev, code, msg, i)
			})
			i = span.End
		}
	}
	return diags
}

func checkDirective(span scan.DirectiveSpan, status scan.DirectiveStatus, line string, report func(models.Severity, string, string)) {
	empty := strings.TrimSpace(scan.Unescape(span.Content(line), "[]")) == ""
	if span.Name == scan.DirectiveMath {
		switch {
		case status == scan.DirectiveUnclosed:
			report(models.SeverityError, models.CodeInlineMathUnclosed, "Inline math syntax :math[...] has unclosed bracket")
		case empty:
			report(models.SeverityWarning, models.CodeInlineMathEmpty, "Inline math syntax :math[...] is empty")
		}
		return
	}

	switch status {
	case scan.DirectiveUnclosed:
		report(models.SeverityError, models.CodeSubUnclosed, "Substitution syntax :sub[...] has unclosed bracket")
		return
	case scan.DirectiveArgMissing:
		report(models.SeverityError, models.CodeSubReplacementMissing, "Substitution syntax :sub[...] must be followed by {replacement}")
		return
	case scan.DirectiveArgUnclosed:
		report(models.SeverityError, models.CodeSubUnclosed, "Substitution syntax :sub[...]{...} has unclosed brace")
		return
	}
	if empty {
		report(models.SeverityWarning, models.CodeSubEmpty, "Substitution syntax :sub[...] has empty initial text")
	}
}
