// Package main provides the flowbuilder command line tool.
package main

import (
	"context"
	"os"

	"github.com/dukex/flowbuilder/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:                  "flowbuilder",
		Usage:                 "Inspect chatbot flows and their events",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return log.WithLogger(ctx, log.WithModule("flowbuilder")), nil
		},
		Commands: []*cli.Command{
			NewValidateCommand(),
			NewWatchCommand(),
		},
	}
}

func main() {
	err := newRootCommand().Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("flowbuilder").Error("command failed", "error", err)
		os.Exit(1)
	}
}
