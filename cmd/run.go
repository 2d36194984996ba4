package main

import (
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/tracker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation pass: ingest new disclosures, then backfill poor summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initTracker(ctx, config.ModeRun)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Tracker.Run(ctx)
		env.notify(ctx, report)
		if werr := writeReport(cmd.OutOrStdout(), report); werr != nil && err == nil {
			err = werr
		}
		return err
	},
}

// writeReport prints a run report as indented JSON.
func writeReport(w io.Writer, report *tracker.RunReport) error {
	if report == nil {
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return eris.Wrap(err, "encode report")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
