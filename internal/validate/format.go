package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/weave/internal/models"
)

// Output formats accepted by Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Format renders diagnostics as indented JSON or as one line per
// diagnostic: "[ERROR] path:line:char: message" with 1-based positions.
func Format(diags []models.Diagnostic, format string) (string, error) {
	switch format {
	case FormatJSON:
		if diags == nil {
			diags = []models.Diagnostic{}
		}
		b, err := json.MarshalIndent(diags, "", "  ")
		if err != nil {
			return "", fmt.Errorf("validate: format json: %w", err)
		}
		return string(b), nil
	case FormatText, "":
		lines := make([]string, len(diags))
		for i, d := range diags {
			lines[i] = fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(d.Severity)), Location(d), d.Message)
		}
		return strings.Join(lines, "\n"), nil
	default:
		return "", fmt.Errorf("validate: unknown format %q", format)
	}
}

// Location renders "path:line:char" with 1-based positions, or "unknown"
// when the diagnostic has no file.
func Location(d models.Diagnostic) string {
	if d.FilePath == "" {
		return "unknown"
	}
	if d.Position == nil {
		return d.FilePath
	}
	return fmt.Sprintf("%s:%d:%d", d.FilePath, d.Position.Line+1, d.Position.Character+1)
}
