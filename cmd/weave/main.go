package main

import (
	"context"
	"errors"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/starford/weave/internal/cli"
)

func main() {
	app := cli.New(os.Stdout, os.Stderr, cli.LogInfo)

	if err := app.RootCommand().Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, cli.ErrValidationFailed) {
			app.Logger.Error("weave failed", "error", err)
		}
		os.Exit(1)
	}
}
