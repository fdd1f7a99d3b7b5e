package scan

import "strings"

// Inline directive names.
const (
	DirectiveMath = "math"
	DirectiveSub  = "sub"
)

// DirectiveStatus reports how far a directive could be scanned.
type DirectiveStatus int

// Directive scan outcomes.
const (
	DirectiveOK DirectiveStatus = iota
	DirectiveUnclosed
	DirectiveArgMissing
	DirectiveArgUnclosed
)

// DirectiveSpan locates ":math[content]" or ":sub[content]{arg}".
type DirectiveSpan struct {
	Name         string
	Start        int // index of ':'
	ContentStart int
	ContentEnd   int // index of ']'
	ArgStart     int // first byte inside '{', -1 when absent
	ArgEnd       int // index of '}', -1 when absent
	End          int // index just past the directive
}

// Content returns the bracketed content.
func (d DirectiveSpan) Content(s string) string { return s[d.ContentStart:d.ContentEnd] }

// Arg returns the braced argument, or "" when absent.
func (d DirectiveSpan) Arg(s string) string {
	if d.ArgStart < 0 {
		return ""
	}
	return s[d.ArgStart:d.ArgEnd]
}

// DirectiveAt returns the directive name starting at s[i] when s[i:] begins
// with an unescaped ":math[" or ":sub[".
func DirectiveAt(s string, i int) (string, bool) {
	if i >= len(s) || s[i] != ':' || IsEscaped(s, i) {
		return "", false
	}
	for _, name := range []string{DirectiveMath, DirectiveSub} {
		if strings.HasPrefix(s[i+1:], name+"[") {
			return name, true
		}
	}
	return "", false
}

// Directive scans the directive starting at s[i]. The content and argument
// must close on the same string; callers pass a single line. ok is false
// when no directive starts at i.
func Directive(s string, i int) (span DirectiveSpan, status DirectiveStatus, ok bool) {
	name, ok := DirectiveAt(s, i)
	if !ok {
		return DirectiveSpan{}, DirectiveOK, false
	}
	span = DirectiveSpan{
		Name:         name,
		Start:        i,
		ContentStart: i + 1 + len(name) + 1,
		ArgStart:     -1,
		ArgEnd:       -1,
	}
	closeBracket := FindClosing(s, span.ContentStart, '[', ']')
	if closeBracket < 0 {
		span.ContentEnd = len(s)
		span.End = len(s)
		return span, DirectiveUnclosed, true
	}
	span.ContentEnd = closeBracket
	span.End = closeBracket + 1
	if name != DirectiveSub {
		return span, DirectiveOK, true
	}

	if span.End >= len(s) || s[span.End] != '{' {
		return span, DirectiveArgMissing, true
	}
	closeBrace := FindClosing(s, span.End+1, '{', '}')
	if closeBrace < 0 {
		span.ArgStart = span.End + 1
		span.ArgEnd = len(s)
		span.End = len(s)
		return span, DirectiveArgUnclosed, true
	}
	span.ArgStart = span.End + 1
	span.ArgEnd = closeBrace
	span.End = closeBrace + 1
	return span, DirectiveOK, true
}

// Unescape removes the backslash in front of the given delimiter bytes and
// in front of backslashes.
func Unescape(s string, delims string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || strings.IndexByte(delims, s[i+1]) >= 0) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
