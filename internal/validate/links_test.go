package validate

import (
	"strings"
	"testing"

	"github.com/starford/weave/internal/models"
)

func pos(line, char int) models.SourcePosition {
	return models.SourcePosition{Line: line, Character: char}
}

func TestExtract_Basic(t *testing.T) {
	res := Extract("See [b](node:b) and [c](node:c?display=inline).")
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if len(res.Links) != 2 {
		t.Fatalf("links = %d, want 2", len(res.Links))
	}
	l := res.Links[0]
	if l.Ref.ID != "b" || l.Text != "b" || l.SourceID != "line-1" {
		t.Errorf("link = %+v", l)
	}
	if *l.Start != pos(0, 4) || *l.End != pos(0, 15) {
		t.Errorf("span = %+v..%+v, want 0:4..0:15", *l.Start, *l.End)
	}
	if res.Links[1].Ref.Display != models.DisplayInline {
		t.Errorf("display = %q, want inline", res.Links[1].Ref.Display)
	}
}

func TestExtract_SourceIDDefaults(t *testing.T) {
	md := "x\n[a](node:a)"
	if got := Extract(md).Links[0].SourceID; got != "line-2" {
		t.Errorf("default source = %q, want line-2", got)
	}
	if got := Extract(md, WithFilePath("docs/x.md")).Links[0].SourceID; got != "docs/x.md" {
		t.Errorf("file source = %q", got)
	}
	if got := Extract(md, WithFilePath("docs/x.md"), WithSourceID("x")).Links[0].SourceID; got != "x" {
		t.Errorf("explicit source = %q", got)
	}
}

func TestExtract_TrailingContent(t *testing.T) {
	res := Extract("[x](node:has space)", WithFilePath("a.md"))
	if len(res.Links) != 0 {
		t.Errorf("links = %+v, want none", res.Links)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %+v, want 1", res.Errors)
	}
	d := res.Errors[0]
	if d.Code != models.CodeNodeURLInvalid || !strings.Contains(d.Message, "unexpected trailing content") {
		t.Errorf("diag = %+v", d)
	}
	if d.FilePath != "a.md" || d.Position == nil || *d.Position != pos(0, 4) {
		t.Errorf("diag location = %q %+v", d.FilePath, d.Position)
	}
}

func TestExtract_BestEffortOnCodecFailure(t *testing.T) {
	res := Extract("[x](node:y?display=bad)")
	if len(res.Links) != 1 || res.Links[0].Ref.ID != "y" {
		t.Fatalf("links = %+v", res.Links)
	}
	if len(res.Errors) != 1 || res.Errors[0].Severity != models.SeverityError {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if !strings.Contains(res.Errors[0].Message, "display") {
		t.Errorf("message = %q", res.Errors[0].Message)
	}
}

func TestExtract_InvalidIDCharacters(t *testing.T) {
	res := Extract("[x](node:a@b)")
	if len(res.Links) != 1 || res.Links[0].Ref.ID != "a@b" {
		t.Fatalf("links = %+v", res.Links)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, "invalid characters") {
		t.Errorf("errors = %+v", res.Errors)
	}
}

func TestExtract_Skips(t *testing.T) {
	cases := map[string]string{
		"code span":    "`[x](node:a)`",
		"image":        "![x](node:a)",
		"web link":     "[x](https://example.com)",
		"escaped":      `\[x](node:a)`,
		"no parens":    "[x] (node:a)",
		"fenced block": "```\n[x](node:a)\n```",
		"tilde fence":  "~~~md\n[x](node:a)\n~~~",
	}
	for name, md := range cases {
		t.Run(name, func(t *testing.T) {
			res := Extract(md)
			if len(res.Links) != 0 || len(res.Errors) != 0 {
				t.Errorf("Extract(%q) = %+v", md, res)
			}
		})
	}
}

func TestExtract_AfterFenceCloses(t *testing.T) {
	res := Extract("```\n[x](node:a)\n```\n[y](node:b)")
	if len(res.Links) != 1 || res.Links[0].Ref.ID != "b" {
		t.Fatalf("links = %+v", res.Links)
	}
	if *res.Links[0].Start != pos(3, 0) {
		t.Errorf("start = %+v, want 3:0", *res.Links[0].Start)
	}
}

func TestExtract_LinkText(t *testing.T) {
	res := Extract("[  ](node:a) [a [nested] b](node:b) [`x`](node:c)")
	if len(res.Links) != 3 {
		t.Fatalf("links = %d, want 3", len(res.Links))
	}
	want := []string{"", "a [nested] b", "`x`"}
	for i, w := range want {
		if res.Links[i].Text != w {
			t.Errorf("text[%d] = %q, want %q", i, res.Links[i].Text, w)
		}
	}
}

func TestExtract_UnicodeColumns(t *testing.T) {
	res := Extract("héllo [x](node:x)")
	if len(res.Links) != 1 {
		t.Fatalf("links = %d", len(res.Links))
	}
	if *res.Links[0].Start != pos(0, 6) {
		t.Errorf("start = %+v, want 0:6", *res.Links[0].Start)
	}
}
