package parser

import (
	"fmt"
	"strings"

	"github.com/starford/weave/internal/models"
)

// Error is a fatal, structural parse failure. Only frontmatter problems
// are fatal; everything else is reported as a diagnostic.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrFrontmatterMissing   = &Error{Code: models.CodeFrontmatterMissing}
	ErrFrontmatterInvalid   = &Error{Code: models.CodeFrontmatterInvalid}
	ErrFrontmatterIDMissing = &Error{Code: models.CodeFrontmatterIDMissing}
)

// DiagnosticsError aggregates the error-severity diagnostics of a strict parse.
type DiagnosticsError struct {
	Diagnostics []models.Diagnostic
}

func (e *DiagnosticsError) Error() string {
	if len(e.Diagnostics) == 1 {
		return "parser: 1 error: " + e.Diagnostics[0].Message
	}
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Message
	}
	return fmt.Sprintf("parser: %d errors: %s", len(e.Diagnostics), strings.Join(msgs, "; "))
}
