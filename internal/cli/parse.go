package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/weave/internal/parser"
	"github.com/starford/weave/internal/validate"
)

func (c *CLI) parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Parse one document and print its AST as JSON",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "Fail when any error diagnostic is found"},
			&cli.BoolFlag{Name: "strip-positions", Usage: "Omit source positions"},
		},
		Action: c.runParse,
	}
}

func (c *CLI) runParse(_ context.Context, cmd *cli.Command) error {
	file := cmd.Args().First()
	if file == "" {
		return fmt.Errorf("parse: file argument is required")
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	opts := []parser.Option{parser.WithFilePath(file)}
	if cmd.Bool("strict") {
		opts = append(opts, parser.WithStrict())
	}
	if cmd.Bool("strip-positions") {
		opts = append(opts, parser.WithStripPositions())
	}

	ast, err := parser.Parse(src, opts...)
	var derr *parser.DiagnosticsError
	if errors.As(err, &derr) {
		text, ferr := validate.Format(derr.Diagnostics, validate.FormatText)
		if ferr != nil {
			return ferr
		}
		fmt.Fprintln(c.out, text)
		return ErrValidationFailed
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	return c.printJSON(ast)
}

func (c *CLI) linksCommand() *cli.Command {
	return &cli.Command{
		Name:      "links",
		Usage:     "Extract node links from a file without a full parse",
		ArgsUsage: "<file>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			file := cmd.Args().First()
			if file == "" {
				return fmt.Errorf("links: file argument is required")
			}
			src, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("links: %w", err)
			}
			return c.printJSON(validate.Extract(string(src), validate.WithFilePath(file)))
		},
	}
}

func (c *CLI) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
