package validate

import (
	"fmt"
	"strings"

	"github.com/starford/weave/internal/graph"
	"github.com/starford/weave/internal/models"
)

// Sections reports empty and duplicate section ids. paths[i] is the file
// sections[i] was loaded from and may be shorter than sections.
func Sections(sections []models.Section, paths []string) []models.Diagnostic {
	diags := []models.Diagnostic{}
	seen := make(map[string]string, len(sections))
	for i, s := range sections {
		path := ""
		if i < len(paths) {
			path = paths[i]
		}
		if strings.TrimSpace(s.ID) == "" {
			diags = append(diags, models.Diagnostic{
				Severity: models.SeverityError,
				Code:     models.CodeFrontmatterIDMissing,
				Message:  "Section must have a non-empty id",
				FilePath: path,
			})
			continue
		}
		if first, ok := seen[s.ID]; ok {
			diags = append(diags, models.Diagnostic{
				Severity: models.SeverityError,
				Code:     models.CodeFrontmatterIDDuplicate,
				Message:  fmt.Sprintf("Duplicate section id %q (also in %s)", s.ID, orUnknown(first)),
				FilePath: path,
			})
			continue
		}
		seen[s.ID] = path
	}
	return diags
}

// References reports every link occurrence whose target is not a section.
// files maps a source section id to its file path. Targets are visited in
// sorted order, occurrences in link order.
func References(g *graph.Graph, files map[string]string) []models.Diagnostic {
	diags := []models.Diagnostic{}
	for _, target := range g.Broken() {
		for _, l := range g.Occurrences[target] {
			diags = append(diags, models.Diagnostic{
				Severity: models.SeverityError,
				Code:     models.CodeBrokenReference,
				Message:  "Reference to unknown section: " + target,
				FilePath: files[l.SourceID],
				Position: l.Start,
			})
		}
	}
	return diags
}

// Cycles reports each reference cycle as information. files maps the
// first section of a cycle to its file path.
func Cycles(cycles [][]string, files map[string]string) []models.Diagnostic {
	diags := []models.Diagnostic{}
	for _, c := range cycles {
		if len(c) == 0 {
			continue
		}
		diags = append(diags, models.Diagnostic{
			Severity: models.SeverityInfo,
			Code:     models.CodeReferenceCycle,
			Message:  "Reference cycle: " + strings.Join(c, " -> "),
			FilePath: files[c[0]],
		})
	}
	return diags
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
