package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/starford/weave/internal/graph"
	"github.com/starford/weave/internal/workspace"
)

func (c *CLI) validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate every document of a workspace",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "Exit with status 1 when any error is found"},
			&cli.BoolFlag{Name: "json", Usage: "Print the report as JSON"},
			&cli.BoolFlag{Name: "dedupe", Usage: "Report each reference cycle once"},
			verboseFlag(),
		},
		Action: c.runValidate,
	}
}

func (c *CLI) runValidate(ctx context.Context, cmd *cli.Command) error {
	ws, _, err := c.loadWorkspace(ctx, cmd, dirArg(cmd))
	if err != nil {
		return err
	}

	var opts []workspace.ValidateOption
	if cmd.Bool("dedupe") {
		opts = append(opts, workspace.WithCycleOptions(graph.WithDedupe()))
	}
	report := workspace.Validate(ws, opts...)

	if cmd.Bool("json") {
		if err := c.printJSON(report); err != nil {
			return err
		}
	} else {
		writeReport(c.out, report)
	}

	if cmd.Bool("strict") && report.Errors > 0 {
		return ErrValidationFailed
	}
	return nil
}

// writeReport prints diagnostics grouped by file followed by a summary.
func writeReport(w io.Writer, r *workspace.Report) {
	for _, group := range r.ByFile() {
		fmt.Fprintf(w, "\n%s\n", fileStyle.Render(group.Path))
		for _, d := range group.Diagnostics {
			loc := ""
			if d.Position != nil {
				loc = dimStyle.Render(fmt.Sprintf("%d:%d", d.Position.Line+1, d.Position.Character+1)) + " "
			}
			fmt.Fprintf(w, "  %s %s%s %s\n", severityMark(d.Severity), loc, dimStyle.Render("["+d.Code+"]"), d.Message)
		}
	}

	fmt.Fprintln(w)
	if r.Errors == 0 && r.Warnings == 0 {
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✓ Validation passed (%d sections)", r.Sections)))
		return
	}
	fmt.Fprintf(w, "Validation: %s, %s, %d info\n",
		errorStyle.Render(fmt.Sprintf("%d error(s)", r.Errors)),
		warningStyle.Render(fmt.Sprintf("%d warning(s)", r.Warnings)),
		r.Info)
}
