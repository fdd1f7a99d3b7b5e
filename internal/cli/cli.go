// Package cli implements the weave command-line interface.
//
// Commands that read a workspace (validate, graph, fmt, export) take an
// optional directory argument defaulting to the current directory. The
// serve and mcp commands load the application configuration instead.
//
// Interactive commands log through charmbracelet/log; the logger is also
// exposed to the core packages as a slog handler.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/starford/weave/internal/storage"
	"github.com/starford/weave/internal/workspace"
)

// ErrValidationFailed is returned when a strict command found
// error-severity diagnostics. The report has already been printed.
var ErrValidationFailed = errors.New("validation failed")

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	out    io.Writer
}

// New creates a CLI that prints results to out and logs to logw.
func New(out, logw io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(logw, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		out: out,
	}
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cli.Command {
	return &cli.Command{
		Name:  "weave",
		Usage: "Parse, validate and serve Weave Markdown workspaces",
		Commands: []*cli.Command{
			c.validateCommand(),
			c.parseCommand(),
			c.linksCommand(),
			c.graphCommand(),
			c.fmtCommand(),
			c.exportCommand(),
			c.serveCommand(),
			c.mcpCommand(),
		},
	}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable debug logging",
	}
}

// slogger returns the CLI logger as a slog.Logger, at debug level when the
// command was run with --verbose.
func (c *CLI) slogger(cmd *cli.Command) *slog.Logger {
	if cmd.Bool("verbose") {
		c.Logger.SetLevel(log.DebugLevel)
	}
	return slog.New(c.Logger)
}

// dirArg returns the first positional argument or ".".
func dirArg(cmd *cli.Command) string {
	if dir := cmd.Args().First(); dir != "" {
		return dir
	}
	return "."
}

// loadWorkspace parses every document under dir.
func (c *CLI) loadWorkspace(ctx context.Context, cmd *cli.Command, dir string) (*workspace.Workspace, *storage.FS, error) {
	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	ws, err := workspace.Load(ctx, store, workspace.WithLogger(c.slogger(cmd)))
	if err != nil {
		return nil, nil, fmt.Errorf("load workspace: %w", err)
	}
	c.Logger.Debug("Loaded workspace",
		"root", store.Root(),
		"documents", len(ws.Documents),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return ws, store, nil
}
