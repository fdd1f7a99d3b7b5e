package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/weave/internal"
	pkgconfig "github.com/starford/weave/pkg/config"
)

const defaultConfigFile = "config/config.yaml"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file (.yaml or .toml)",
		DefaultText: defaultConfigFile,
		Value:       defaultConfigFile,
		Sources:     cli.EnvVars("WEAVE_CONFIG_FILE"),
	}
}

// loadConfig reads the config file named by --config. A missing default
// file falls back to the built-in defaults. A directory argument
// overrides the workspace path.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !cmd.IsSet("config") {
		if dir := cmd.Args().First(); dir != "" {
			cfg.Workspace.Path = dir
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
		return cfg, nil
	}

	if err := pkgconfig.Load(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if dir := cmd.Args().First(); dir != "" {
		cfg.Workspace.Path = dir
	}
	return cfg, nil
}

func (c *CLI) serveCommand() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Serve the HTTP API and live updates for a workspace",
		ArgsUsage: "[dir]",
		Flags:     []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func (c *CLI) mcpCommand() *cli.Command {
	return &cli.Command{
		Name:      "mcp",
		Usage:     "Serve the MCP tools over stdio",
		ArgsUsage: "[dir]",
		Flags:     []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// The CLI logger writes to stderr, leaving stdout to the protocol.
			opts := []internal.Option{
				internal.WithConfig(cfg),
				internal.WithLogger(slog.New(c.Logger)),
			}
			if err := internal.RunMCP(ctx, opts...); err != nil {
				return fmt.Errorf("mcp run error: %w", err)
			}
			return nil
		},
	}
}
