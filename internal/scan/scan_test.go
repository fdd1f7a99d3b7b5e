package scan

import "testing"

func TestIsEscaped(t *testing.T) {
	cases := []struct {
		s    string
		i    int
		want bool
	}{
		{`a]`, 1, false},
		{`\]`, 1, true},
		{`\\]`, 2, false},
		{`\\\]`, 3, true},
	}
	for _, c := range cases {
		if got := IsEscaped(c.s, c.i); got != c.want {
			t.Errorf("IsEscaped(%q, %d) = %v, want %v", c.s, c.i, got, c.want)
		}
	}
}

func TestFindClosing_Nested(t *testing.T) {
	s := "[a [b] c]"
	if got := FindClosing(s, 1, '[', ']'); got != 8 {
		t.Errorf("FindClosing = %d, want 8", got)
	}
}

func TestFindClosing_EscapedDelimiterIsLiteral(t *testing.T) {
	s := `[a \] b]`
	if got := FindClosing(s, 1, '[', ']'); got != 7 {
		t.Errorf("FindClosing = %d, want 7", got)
	}
	if got := FindClosing(`[a \]`, 1, '[', ']'); got != -1 {
		t.Errorf("FindClosing unmatched = %d, want -1", got)
	}
}

func TestCodeSpanEnd(t *testing.T) {
	if got := CodeSpanEnd("`a` b", 0); got != 3 {
		t.Errorf("single = %d, want 3", got)
	}
	if got := CodeSpanEnd("``a ` b`` c", 0); got != 9 {
		t.Errorf("double = %d, want 9", got)
	}
	if got := CodeSpanEnd("`no close", 0); got != -1 {
		t.Errorf("unmatched = %d, want -1", got)
	}
}

func TestLinks_Basic(t *testing.T) {
	s := "See [b](node:b) and [c](https://x)."
	spans := Links(s)
	if len(spans) != 2 {
		t.Fatalf("len = %d, want 2", len(spans))
	}
	if got := spans[0].Text(s); got != "b" {
		t.Errorf("text = %q, want b", got)
	}
	if got := spans[0].Dest(s); got != "node:b" {
		t.Errorf("dest = %q, want node:b", got)
	}
	if spans[0].Start != 4 || spans[0].End() != 15 {
		t.Errorf("bounds = %d..%d, want 4..15", spans[0].Start, spans[0].End())
	}
}

func TestLinks_SkipsCodeSpans(t *testing.T) {
	s := "`[x](node:x)` then [y](node:y)"
	spans := Links(s)
	if len(spans) != 1 || spans[0].Dest(s) != "node:y" {
		t.Fatalf("spans = %+v", spans)
	}
}

func TestLinks_UnmatchedBacktickIsText(t *testing.T) {
	s := "a ` b [y](node:y)"
	spans := Links(s)
	if len(spans) != 1 {
		t.Fatalf("len = %d, want 1", len(spans))
	}
}

func TestLinks_EscapedBracket(t *testing.T) {
	s := `\[x](node:x) [a\]b](node:y)`
	spans := Links(s)
	if len(spans) != 1 {
		t.Fatalf("len = %d, want 1", len(spans))
	}
	if got := spans[0].Text(s); got != `a\]b` {
		t.Errorf("text = %q", got)
	}
}

func TestLinks_NestedParens(t *testing.T) {
	s := "[a](node:x(1))"
	spans := Links(s)
	if len(spans) != 1 || spans[0].Dest(s) != "node:x(1)" {
		t.Fatalf("spans = %+v", spans)
	}
}

func TestLinks_TrailingContent(t *testing.T) {
	s := "[a](node:my id)"
	spans := Links(s)
	if len(spans) != 1 {
		t.Fatalf("len = %d, want 1", len(spans))
	}
	if !spans[0].Trailing {
		t.Error("expected trailing content")
	}
	if got := spans[0].Dest(s); got != "node:my" {
		t.Errorf("dest = %q, want node:my", got)
	}
}

func TestLinks_Image(t *testing.T) {
	s := "![alt](pic.png) [a](node:a)"
	spans := Links(s)
	if len(spans) != 2 {
		t.Fatalf("len = %d, want 2", len(spans))
	}
	if !spans[0].Image || spans[1].Image {
		t.Errorf("image flags = %v, %v", spans[0].Image, spans[1].Image)
	}
}

func TestDirective_Math(t *testing.T) {
	s := `x :math[a_\]b] y`
	span, status, ok := Directive(s, 2)
	if !ok || status != DirectiveOK {
		t.Fatalf("ok = %v, status = %v", ok, status)
	}
	if got := span.Content(s); got != `a_\]b` {
		t.Errorf("content = %q", got)
	}
	if s[span.End:] != " y" {
		t.Errorf("rest = %q", s[span.End:])
	}
}

func TestDirective_Sub(t *testing.T) {
	s := ":sub[old]{new}"
	span, status, ok := Directive(s, 0)
	if !ok || status != DirectiveOK {
		t.Fatalf("ok = %v, status = %v", ok, status)
	}
	if span.Content(s) != "old" || span.Arg(s) != "new" {
		t.Errorf("content = %q, arg = %q", span.Content(s), span.Arg(s))
	}
	if span.End != len(s) {
		t.Errorf("end = %d, want %d", span.End, len(s))
	}
}

func TestDirective_Failures(t *testing.T) {
	cases := []struct {
		s    string
		want DirectiveStatus
	}{
		{":math[x", DirectiveUnclosed},
		{":sub[x", DirectiveUnclosed},
		{":sub[x] y", DirectiveArgMissing},
		{":sub[x]{y", DirectiveArgUnclosed},
	}
	for _, c := range cases {
		_, status, ok := Directive(c.s, 0)
		if !ok || status != c.want {
			t.Errorf("Directive(%q) = %v, %v; want %v", c.s, status, ok, c.want)
		}
	}
	if _, _, ok := Directive(`\:math[x]`, 1); ok {
		t.Error("escaped colon should not start a directive")
	}
	if _, _, ok := Directive(":mathx[x]", 0); ok {
		t.Error("unknown name should not match")
	}
}

func TestUnescape(t *testing.T) {
	if got := Unescape(`a\]b\\c\d`, "[]"); got != `a]b\c\d` {
		t.Errorf("Unescape = %q", got)
	}
}
