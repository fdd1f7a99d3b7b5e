package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/starford/weave/internal/graph"
	"github.com/starford/weave/internal/parser"
	"github.com/starford/weave/internal/workspace"
)

// graphReport is the JSON form of the reference graph.
type graphReport struct {
	Nodes  []string     `json:"nodes"`
	Edges  []graph.Edge `json:"edges"`
	Broken []string     `json:"broken"`
	Cycles [][]string   `json:"cycles"`
}

func (c *CLI) graphCommand() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Usage:     "Print the section reference graph",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json, dot or svg"},
			&cli.BoolFlag{Name: "dedupe", Usage: "Report each reference cycle once"},
			verboseFlag(),
		},
		Action: c.runGraph,
	}
}

func (c *CLI) runGraph(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	switch format {
	case "json", "dot", "svg":
	default:
		return fmt.Errorf("graph: unknown format %q (want json, dot or svg)", format)
	}

	ws, _, err := c.loadWorkspace(ctx, cmd, dirArg(cmd))
	if err != nil {
		return err
	}
	g := ws.Graph()

	if format == "json" {
		var opts []graph.CycleOption
		if cmd.Bool("dedupe") {
			opts = append(opts, graph.WithDedupe())
		}
		report := graphReport{
			Nodes:  nonNil(g.IDs()),
			Edges:  nonNil(g.Edges()),
			Broken: nonNil(g.Broken()),
			Cycles: nonNil(graph.DetectCycles(g, opts...)),
		}
		return c.printJSON(report)
	}

	dot := graph.DOT(g, graph.DOTOptions{Titles: titles(ws), Broken: true})
	if format == "dot" {
		_, err := fmt.Fprint(c.out, dot)
		return err
	}
	svg, err := graph.RenderSVG(ctx, dot)
	if err != nil {
		return err
	}
	_, err = c.out.Write(svg)
	return err
}

func titles(ws *workspace.Workspace) map[string]string {
	sections, _ := ws.Sections()
	out := make(map[string]string, len(sections))
	for _, s := range sections {
		out[s.ID] = parser.DisplayTitle(s)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
