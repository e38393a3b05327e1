package main

import (
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var serveCmd = &cobra.Command{
	Use:                "serve",
	Short:              "Run the console and the reminder scheduler (default)",
	DisableFlagParsing: true,
	RunE:               runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, flush, err := setup()
	if err != nil {
		return err
	}
	defer flush()

	ctx := cmd.Context()
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	app, err := server.NewApp(ctx, cfg, logger, server.WithIO(os.Stdin, os.Stdout, interactive))
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		return err
	}

	return app.Run(ctx)
}
