package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/disclosure-cli/internal/config"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Re-resolve stored rows whose summary is empty or degenerate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initTracker(ctx, config.ModeRun)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Tracker.RunBackfill(ctx)
		env.notify(ctx, report)
		if werr := writeReport(cmd.OutOrStdout(), report); werr != nil && err == nil {
			err = werr
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
