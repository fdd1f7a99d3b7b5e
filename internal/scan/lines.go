package scan

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// LineIndex maps byte offsets to 0-based line/character positions. It is
// built once per document. Lines end at "\n", "\r\n" or "\r".
type LineIndex struct {
	src    string
	starts []int
}

// NewLineIndex indexes src.
func NewLineIndex(src string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{src: src, starts: starts}
}

// LineCount returns the number of lines, counting a trailing empty line.
func (x *LineIndex) LineCount() int { return len(x.starts) }

// Line returns the byte bounds of line n without its terminator.
func (x *LineIndex) Line(n int) (start, end int) {
	start = x.starts[n]
	if n+1 < len(x.starts) {
		end = x.starts[n+1]
	} else {
		end = len(x.src)
	}
	for end > start && (x.src[end-1] == '\n' || x.src[end-1] == '\r') {
		end--
	}
	return start, end
}

// LineText returns line n without its terminator.
func (x *LineIndex) LineText(n int) string {
	start, end := x.Line(n)
	return x.src[start:end]
}

// LineOf returns the 0-based line containing offset.
func (x *LineIndex) LineOf(offset int) int {
	return sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > offset }) - 1
}

// Position converts a byte offset into a 0-based line and a character
// column counted in Unicode code points.
func (x *LineIndex) Position(offset int) (line, character int) {
	if offset > len(x.src) {
		offset = len(x.src)
	}
	if offset < 0 {
		offset = 0
	}
	line = x.LineOf(offset)
	return line, utf8.RuneCountInString(x.src[x.starts[line]:offset])
}

// Fences tracks fenced code blocks while lines are fed in order.
type Fences struct {
	char byte
	size int
	open bool
	info string
}

// Next consumes one line (without terminator) and reports whether it is
// part of a fenced block, delimiters included.
func (f *Fences) Next(line string) bool {
	trimmed, ok := stripIndent(line)
	if f.open {
		if ok && f.closes(trimmed) {
			f.open = false
		}
		return true
	}
	if !ok {
		return false
	}
	c := byte(0)
	if trimmed != "" {
		c = trimmed[0]
	}
	if c != '`' && c != '~' {
		return false
	}
	n := runLength(trimmed, 0, c)
	if n < 3 {
		return false
	}
	info := trimmed[n:]
	if c == '`' && strings.IndexByte(info, '`') >= 0 {
		return false
	}
	f.char, f.size, f.open, f.info = c, n, true, strings.TrimSpace(info)
	return true
}

// Open reports whether a fenced block is currently open.
func (f *Fences) Open() bool { return f.open }

// Info returns the info string of the currently open fence.
func (f *Fences) Info() string { return f.info }

func (f *Fences) closes(trimmed string) bool {
	n := runLength(trimmed, 0, f.char)
	return n >= f.size && strings.TrimSpace(trimmed[n:]) == ""
}

// stripIndent removes up to three leading spaces; ok is false when the line
// is indented four or more columns.
func stripIndent(line string) (string, bool) {
	i := 0
	for i < len(line) && i < 4 && line[i] == ' ' {
		i++
	}
	if i == 4 {
		return line, false
	}
	return line[i:], true
}
