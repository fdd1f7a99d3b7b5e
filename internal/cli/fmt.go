package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/starford/weave/internal/parser"
)

func (c *CLI) fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Usage:     "Rewrite documents in canonical form (lists changed files unless --write)",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "Write the result back to each file"},
			verboseFlag(),
		},
		Action: c.runFmt,
	}
}

func (c *CLI) runFmt(ctx context.Context, cmd *cli.Command) error {
	ws, store, err := c.loadWorkspace(ctx, cmd, dirArg(cmd))
	if err != nil {
		return err
	}
	write := cmd.Bool("write")

	for _, d := range ws.Documents {
		if d.Section == nil {
			c.Logger.Warn("Skipping unparsable document", "path", d.Path)
			continue
		}
		out, err := parser.Canonicalize(d.Source)
		if err != nil {
			c.Logger.Warn("Skipping document", "path", d.Path, "error", err)
			continue
		}
		if bytes.Equal(out, d.Source) {
			continue
		}
		if write {
			if err := store.Write(d.Path, out); err != nil {
				return fmt.Errorf("fmt: %w", err)
			}
		}
		fmt.Fprintln(c.out, d.Path)
	}
	return nil
}
