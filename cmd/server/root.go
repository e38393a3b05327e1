package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "notekeeper",
	Short: "Encrypted notes, daily reminders and TOTP login behind a chat console",
	Long: `notekeeper keeps per-user notes encrypted at rest, fires one-shot and
daily reminders, and optionally guards the session with a TOTP second factor.

Settings come from defaults, a .env file and NOTEKEEPER_* variables, a JSON or
YAML file (-c) and finally the flags -r -d -m -s -l -w -t -i -u.`,
	SilenceUsage: true,
	// configuration flags are read from os.Args by the config package
	DisableFlagParsing: true,
	RunE:               runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and builds the logger it asks for. Logs go
// to stderr so the console keeps stdout.
func setup() (*config.Config, logging.Logger, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.New(cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, nil, nil, err
	}

	flush := func() {
		if s, ok := logger.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}
	return cfg, logger, flush, nil
}
