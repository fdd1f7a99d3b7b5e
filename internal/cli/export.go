package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/parser"
)

// astFile is the name of the combined AST written by export.
const astFile = "weave-ast.json"

// astExport is the content of astFile. Documents that fail to parse carry
// only an error.
type astExport struct {
	Sections map[string]astEntry `json:"sections"`
}

type astEntry struct {
	*models.AST
	Error string `json:"error,omitempty"`
}

func (c *CLI) exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write the AST of every section to " + astFile,
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "./dist", Usage: "Output directory"},
			verboseFlag(),
		},
		Action: c.runExport,
	}
}

func (c *CLI) runExport(ctx context.Context, cmd *cli.Command) error {
	ws, _, err := c.loadWorkspace(ctx, cmd, dirArg(cmd))
	if err != nil {
		return err
	}

	export := astExport{Sections: map[string]astEntry{}}
	for _, d := range ws.Documents {
		if d.Section == nil {
			continue
		}
		if _, dup := export.Sections[d.Section.ID]; dup {
			c.Logger.Warn("Duplicate section id, keeping first", "id", d.Section.ID, "path", d.Path)
			continue
		}
		ast, err := parser.Parse(d.Source, parser.WithStripPositions(), parser.WithFilePath(d.Path))
		if err != nil {
			c.Logger.Warn("Failed to parse", "path", d.Path, "error", err)
			export.Sections[d.Section.ID] = astEntry{Error: err.Error()}
			continue
		}
		export.Sections[d.Section.ID] = astEntry{AST: ast}
	}

	outDir := cmd.String("out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	path := filepath.Join(outDir, astFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	c.Logger.Info("Exported", "sections", len(export.Sections), "file", path)
	fmt.Fprintln(c.out, path)
	return nil
}
