// Package scan holds the escaping-aware delimiter scanning shared by the
// full-parse path and the text-only link extractor: bracket matching,
// code-span skipping, inline link spans, inline directives, fenced block
// tracking and a line-start index.
package scan

import "strings"

// IsEscaped reports whether s[i] is preceded by an odd run of backslashes.
func IsEscaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// FindClosing returns the index of the unescaped close delimiter matching an
// opener that sits just before from. Nested unescaped open/close pairs are
// balanced. It returns -1 when no match exists in s.
func FindClosing(s string, from int, open, close byte) int {
	depth := 1
	for i := from; i < len(s); i++ {
		c := s[i]
		if c != open && c != close {
			continue
		}
		if IsEscaped(s, i) {
			continue
		}
		if c == open && open != close {
			depth++
			continue
		}
		depth--
		if depth == 0 {
			return i
		}
	}
	return -1
}

// CodeSpanEnd returns the index just past the code span opened by the
// backtick run at s[i], or -1 when no closing run of the same length
// follows. An unmatched run is ordinary text.
func CodeSpanEnd(s string, i int) int {
	n := runLength(s, i, '`')
	if n == 0 {
		return -1
	}
	for j := i + n; j < len(s); {
		if s[j] != '`' {
			j++
			continue
		}
		m := runLength(s, j, '`')
		if m == n {
			return j + m
		}
		j += m
	}
	return -1
}

func runLength(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}

// LinkSpan locates an inline link "[text](destination)" within a string.
// All offsets are byte offsets into the scanned string.
type LinkSpan struct {
	Start     int  // index of '['
	TextStart int  // first byte of the link text
	TextEnd   int  // index of ']'
	DestStart int  // first non-space byte inside the parens
	DestEnd   int  // end of the destination token
	Close     int  // index of ')'
	Trailing  bool // non-space content follows the destination token
	Image     bool // the span is preceded by an unescaped '!'
}

// End returns the index just past the closing paren.
func (l LinkSpan) End() int { return l.Close + 1 }

// Text returns the raw link text.
func (l LinkSpan) Text(s string) string { return s[l.TextStart:l.TextEnd] }

// Dest returns the destination token.
func (l LinkSpan) Dest(s string) string { return s[l.DestStart:l.DestEnd] }

// Links scans s left to right and returns every inline link span. Code
// spans are skipped verbatim; escaped brackets are literal text.
func Links(s string) []LinkSpan {
	var out []LinkSpan
	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == '`' && !IsEscaped(s, i):
			if end := CodeSpanEnd(s, i); end > 0 {
				i = end
				continue
			}
			i += runLength(s, i, '`')
		case c == '[' && !IsEscaped(s, i):
			span, ok := linkAt(s, i)
			if !ok {
				i++
				continue
			}
			out = append(out, span)
			i = span.End()
		default:
			i++
		}
	}
	return out
}

func linkAt(s string, i int) (LinkSpan, bool) {
	closeBracket := FindClosing(s, i+1, '[', ']')
	if closeBracket < 0 || closeBracket+1 >= len(s) || s[closeBracket+1] != '(' {
		return LinkSpan{}, false
	}
	closeParen := FindClosing(s, closeBracket+2, '(', ')')
	if closeParen < 0 {
		return LinkSpan{}, false
	}

	ds := closeBracket + 2
	for ds < closeParen && isSpace(s[ds]) {
		ds++
	}
	de := ds
	for de < closeParen && !isSpace(s[de]) {
		de++
	}
	return LinkSpan{
		Start:     i,
		TextStart: i + 1,
		TextEnd:   closeBracket,
		DestStart: ds,
		DestEnd:   de,
		Close:     closeParen,
		Trailing:  strings.TrimSpace(s[de:closeParen]) != "",
		Image:     i > 0 && s[i-1] == '!' && !IsEscaped(s, i-1),
	}, true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
