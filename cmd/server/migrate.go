package main

import (
	"github.com/dmitrijs2005/notekeeper/internal/server"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:                "migrate",
	Short:              "Apply pending database migrations and exit",
	Long:               `Open the configured database (-r, -d) and apply the embedded migrations for its dialect.`,
	DisableFlagParsing: true,
	RunE:               runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, flush, err := setup()
	if err != nil {
		return err
	}
	defer flush()

	ctx := cmd.Context()
	if err := server.Migrate(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "migration failed", "error", err)
		return err
	}
	logger.Info(ctx, "migrations applied")
	return nil
}
