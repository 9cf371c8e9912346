package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filevault/config"
	"github.com/sagarc03/filevault/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the metadata tables",
	Long: `Create the files and orphans tables in the configured metadata
backend and validate their schema. Running it again is a no-op.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if err := db.Validate(ctx); err != nil {
		return fmt.Errorf("validate database schema: %w", err)
	}

	slog.Info("migration complete",
		"type", cfg.Database.Type,
		"files_table", cfg.Database.Tables.Files,
		"orphans_table", cfg.Database.Tables.Orphans,
	)
	return nil
}
