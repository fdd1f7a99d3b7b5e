package nodeurl

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/weave/internal/models"
)

func TestParse_IDOnly(t *testing.T) {
	ref, err := Parse("node:intro")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ref.ID != "intro" {
		t.Errorf("id = %q, want %q", ref.ID, "intro")
	}
	if ref.Display != "" || ref.Export != "" || len(ref.Extra) != 0 {
		t.Errorf("unexpected params: %+v", ref)
	}
}

func TestParse_KnownParams(t *testing.T) {
	ref, err := Parse("node:a?display=sidenote&export=appendix")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ref.Display != models.DisplaySidenote {
		t.Errorf("display = %q, want sidenote", ref.Display)
	}
	if ref.Export != models.ExportAppendix {
		t.Errorf("export = %q, want appendix", ref.Export)
	}
}

func TestParse_NotNodeURL(t *testing.T) {
	_, err := Parse("https://example.com")
	if !errors.Is(err, ErrNotNodeURL) {
		t.Errorf("err = %v, want ErrNotNodeURL", err)
	}
}

func TestParse_MissingID(t *testing.T) {
	for _, href := range []string{"node:", "node:?display=inline"} {
		if _, err := Parse(href); !errors.Is(err, ErrMissingID) {
			t.Errorf("Parse(%q) err = %v, want ErrMissingID", href, err)
		}
	}
}

func TestParse_DuplicateDisplay(t *testing.T) {
	_, err := Parse("node:x?display=footnote&display=margin")
	if !errors.Is(err, ErrDuplicateParameter) {
		t.Fatalf("err = %v, want ErrDuplicateParameter", err)
	}
	if !strings.Contains(err.Error(), "display") {
		t.Errorf("error %q does not name the parameter", err)
	}
}

func TestParse_DuplicateExport(t *testing.T) {
	_, err := Parse("node:x?export=omit&export=omit")
	if !errors.Is(err, ErrDuplicateParameter) {
		t.Fatalf("err = %v, want ErrDuplicateParameter", err)
	}
	if !strings.Contains(err.Error(), "export") {
		t.Errorf("error %q does not name the parameter", err)
	}
}

func TestParse_InvalidValueNamesAllowedSet(t *testing.T) {
	_, err := Parse("node:x?display=popup")
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("err = %v, want ErrInvalidValue", err)
	}
	for _, want := range []string{"popup", "footnote", "stretch", "panel"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}

	_, err = Parse("node:x?export=footer")
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("err = %v, want ErrInvalidValue", err)
	}
	if !strings.Contains(err.Error(), "appendix, inline, omit") {
		t.Errorf("error %q does not list export values", err)
	}
}

func TestParse_ExtensionParams(t *testing.T) {
	ref, err := Parse("node:target?custom=1&flag&empty=&note=a+b%21")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := map[string]models.ParamValue{
		"custom": models.StringParam("1"),
		"flag":   models.FlagParam(),
		"empty":  models.FlagParam(),
		"note":   models.StringParam("a b!"),
	}
	if len(ref.Extra) != len(want) {
		t.Fatalf("extra = %+v, want %+v", ref.Extra, want)
	}
	for k, v := range want {
		if ref.Extra[k] != v {
			t.Errorf("extra[%q] = %+v, want %+v", k, ref.Extra[k], v)
		}
	}
}

func TestParse_EmptyKnownValueIsAbsent(t *testing.T) {
	ref, err := Parse("node:x?display=&export=")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ref.Display != "" || ref.Export != "" {
		t.Errorf("ref = %+v, want no display/export", ref)
	}
}

func TestParse_MalformedEscape(t *testing.T) {
	_, err := Parse("node:x?k=%zz")
	if !errors.Is(err, ErrMalformedQuery) {
		t.Errorf("err = %v, want ErrMalformedQuery", err)
	}
}

func TestParse_SplitsOnFirstQuestionMark(t *testing.T) {
	ref, err := Parse("node:x?q=a?b")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ref.ID != "x" || ref.Extra["q"].Str != "a?b" {
		t.Errorf("ref = %+v", ref)
	}
}

func TestFormat_CanonicalOrder(t *testing.T) {
	ref := models.NodeRef{
		ID:      "a",
		Display: models.DisplayOverlay,
		Export:  models.ExportOmit,
		Extra: map[string]models.ParamValue{
			"zeta":  models.StringParam("z z"),
			"alpha": models.FlagParam(),
		},
	}
	got := Format(ref)
	want := "node:a?display=overlay&export=omit&alpha&zeta=z+z"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormat_NoParams(t *testing.T) {
	if got := Format(models.NodeRef{ID: "plain"}); got != "node:plain" {
		t.Errorf("Format = %q, want node:plain", got)
	}
}

func TestRoundTrip(t *testing.T) {
	refs := []models.NodeRef{
		{ID: "a"},
		{ID: "b", Display: models.DisplayFootnote},
		{ID: "c", Export: models.ExportInline},
		{ID: "d", Display: models.DisplayPanel, Export: models.ExportAppendix, Extra: map[string]models.ParamValue{
			"k":     models.StringParam("v&w=x"),
			"flag":  models.FlagParam(),
			"space": models.StringParam("a b"),
			"utf":   models.StringParam("héllo"),
		}},
	}
	for _, ref := range refs {
		got, err := Parse(Format(ref))
		if err != nil {
			t.Errorf("Parse(Format(%+v)): %v", ref, err)
			continue
		}
		if !got.Equal(ref) {
			t.Errorf("round trip = %+v, want %+v", got, ref)
		}
	}
}

func TestRawID(t *testing.T) {
	cases := map[string]string{
		"node:x?display=bad": "x",
		"node:y":             "y",
		"node:":              "",
	}
	for in, want := range cases {
		if got := RawID(in); got != want {
			t.Errorf("RawID(%q) = %q, want %q", in, got, want)
		}
	}
}
