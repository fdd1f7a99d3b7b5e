package workspace

import (
	"github.com/starford/weave/internal/graph"
	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/validate"
)

// Report is the outcome of validating a workspace.
type Report struct {
	Valid       bool                `json:"valid"`
	Sections    int                 `json:"sections"`
	Errors      int                 `json:"errors"`
	Warnings    int                 `json:"warnings"`
	Info        int                 `json:"info"`
	Cycles      [][]string          `json:"cycles"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
}

// FileDiagnostics groups the diagnostics of one file.
type FileDiagnostics struct {
	Path        string
	Diagnostics []models.Diagnostic
}

// ValidateOption configures Validate.
type ValidateOption func(*validateOptions)

type validateOptions struct {
	cycleOpts []graph.CycleOption
}

// WithCycleOptions passes options to cycle detection.
func WithCycleOptions(opts ...graph.CycleOption) ValidateOption {
	return func(o *validateOptions) { o.cycleOpts = append(o.cycleOpts, opts...) }
}

// Validate runs every check on a loaded workspace: per-document parse
// diagnostics, text-level link and inline checks, duplicate ids, broken
// references and reference cycles. Diagnostics are ordered by document,
// then by check.
func Validate(w *Workspace, opts ...ValidateOption) *Report {
	var o validateOptions
	for _, opt := range opts {
		opt(&o)
	}

	diags := []models.Diagnostic{}
	for _, d := range w.Documents {
		diags = append(diags, d.Diagnostics...)
		if d.Section == nil {
			continue
		}
		src := string(d.Source)
		extracted := validate.Extract(src, validate.WithFilePath(d.Path), validate.WithSourceID(d.Section.ID))
		diags = append(diags, textOnly(extracted, d.Diagnostics)...)
		diags = append(diags, validate.Inline(src, d.Path)...)
	}

	sections, paths := w.Sections()
	files := w.Files()
	g := graph.Build(sections, w.Links())
	cycles := graph.DetectCycles(g, o.cycleOpts...)
	diags = append(diags, validate.Sections(sections, paths)...)
	diags = append(diags, validate.References(g, files)...)
	diags = append(diags, validate.Cycles(cycles, files)...)

	errs, warns, infos := models.CountBySeverity(diags)
	if cycles == nil {
		cycles = [][]string{}
	}
	return &Report{
		Valid:       errs == 0,
		Sections:    len(sections),
		Errors:      errs,
		Warnings:    warns,
		Info:        infos,
		Cycles:      cycles,
		Diagnostics: diags,
	}
}

// textOnly drops extractor errors already reported by the parser for the
// same link. Extractor errors sit on the destination and parser errors on
// the opening bracket, so each error is paired with the closest unclaimed
// extracted link before it on its line. Links the parser never sees, such
// as destinations with spaces, are only caught by the extractor.
func textOnly(extracted validate.ExtractResult, parsed []models.Diagnostic) []models.Diagnostic {
	reported := map[models.SourcePosition]bool{}
	for _, d := range parsed {
		if d.Code == models.CodeNodeURLInvalid && d.Position != nil {
			reported[*d.Position] = true
		}
	}
	claimed := map[int]bool{}
	var out []models.Diagnostic
	for _, d := range extracted.Errors {
		if i := linkBefore(extracted.Links, d.Position); i >= 0 && !claimed[i] {
			claimed[i] = true
			if reported[*extracted.Links[i].Start] {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

// linkBefore returns the index of the last link starting before at on the
// same line, or -1.
func linkBefore(links []models.Link, at *models.SourcePosition) int {
	best := -1
	if at == nil {
		return best
	}
	for i, l := range links {
		s := l.Start
		if s == nil || s.Line != at.Line || s.Character >= at.Character {
			continue
		}
		if best < 0 || s.Character > links[best].Start.Character {
			best = i
		}
	}
	return best
}

// ByFile groups the report's diagnostics by file in order of first
// appearance. Diagnostics without a file are grouped under "unknown".
func (r *Report) ByFile() []FileDiagnostics {
	var out []FileDiagnostics
	index := map[string]int{}
	for _, d := range r.Diagnostics {
		path := d.FilePath
		if path == "" {
			path = "unknown"
		}
		i, ok := index[path]
		if !ok {
			i = len(out)
			index[path] = i
			out = append(out, FileDiagnostics{Path: path})
		}
		out[i].Diagnostics = append(out[i].Diagnostics, d)
	}
	return out
}
