// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperwatch/internal/notify"
	"github.com/pdiddy/paperwatch/internal/store"
	"github.com/pdiddy/paperwatch/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Print the report of a past run",
	Long: `Report rebuilds the flagged-paper report for a run from the store and
prints it. Without a run ID the most recent run is used. Printing never
re-delivers the report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	var summary types.RunSummary
	if len(args) == 1 {
		summary, err = st.Run(ctx, args[0])
	} else {
		summary, err = st.LatestRun(ctx)
	}
	if err != nil {
		return err
	}

	entries, err := st.FlaggedInRun(ctx, summary.RunID)
	if err != nil {
		return err
	}
	report := notify.Build(summary.RunID, summary.Finished, entries)

	fmt.Print(notify.Render(report))
	printSummary(summary)
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
