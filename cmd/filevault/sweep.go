package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filevault/config"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete objects left behind by failed deletes",
	Long: `Remove objects whose metadata was deleted but whose object delete
failed at the time. Each such object was recorded in the orphan ledger.
This command:
  1. Deletes the object from the object store
  2. Resolves the ledger entry

It stops at the first object store error so a broken store is not hammered.
Run it periodically, e.g. from cron.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var sweepLimit int

func init() {
	sweepCmd.Flags().IntVar(&sweepLimit, "limit", 100, "number of orphans to process per batch")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("starting sweep", "limit", sweepLimit)

	swept, err := a.service.Sweep(ctx, sweepLimit)
	if err != nil {
		slog.Error("sweep stopped", "objects_swept", swept, "err", err)
		return fmt.Errorf("sweep: %w", err)
	}

	slog.Info("sweep complete", "objects_swept", swept)
	return nil
}
