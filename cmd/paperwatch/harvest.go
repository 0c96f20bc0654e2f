// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperwatch/internal/feed"
	"github.com/pdiddy/paperwatch/internal/scheduler"
	"github.com/pdiddy/paperwatch/internal/store"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Fetch new papers into the store without processing them",
	Long: `Harvest pulls newly announced papers for the configured categories into
the store and advances the per-category watermarks. Items wait in the
unprocessed state until the next run.`,
	RunE: runHarvest,
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	s := &scheduler.Scheduler{
		Store:      st,
		Feed:       feed.NewClient(cfg.Feed),
		Categories: cfg.Feed.Categories,
		Log:        slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}

	fetched, feedErrors, err := s.Harvest(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("fetched %d new items across %d categories\n", fetched, len(cfg.Feed.Categories))
	if len(feedErrors) > 0 {
		fmt.Printf("feed errors:\n  %s\n", strings.Join(feedErrors, "\n  "))
		return fmt.Errorf("%d categor(ies) failed to harvest", len(feedErrors))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(harvestCmd)
}
