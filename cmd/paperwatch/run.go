// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperwatch/internal/analyze"
	"github.com/pdiddy/paperwatch/internal/content"
	"github.com/pdiddy/paperwatch/internal/feed"
	"github.com/pdiddy/paperwatch/internal/notify"
	"github.com/pdiddy/paperwatch/internal/profile"
	"github.com/pdiddy/paperwatch/internal/relevance"
	"github.com/pdiddy/paperwatch/internal/scheduler"
	"github.com/pdiddy/paperwatch/internal/store"
	"github.com/pdiddy/paperwatch/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one full pipeline run (harvest, analyze, score, notify)",
	Long: `Run executes one end-to-end pipeline run: harvest new papers from the
configured feed categories, extract and analyze their content, score each
against the researcher profile, and deliver a ranked report of flagged
papers. The run summary is printed and persisted.`,
	RunE: runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	prof, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	engine, err := relevance.NewEngine(cfg.Relevance, prof)
	if err != nil {
		return err
	}

	transport, err := notify.NewTransport(cfg.Notify)
	if err != nil {
		return err
	}

	if cfg.Analysis.APIKey == "" {
		return fmt.Errorf("no AI API key: set analysis.api_key or .secrets/anthropic-api-key")
	}

	s := &scheduler.Scheduler{
		Store:      st,
		Feed:       feed.NewClient(cfg.Feed),
		Extractor:  content.NewExtractor(cfg.Content),
		Analyzer:   analyze.NewClient(analyze.NewClaudeBackend(cfg.Analysis.AIConfig), cfg.Analysis),
		Engine:     engine,
		Notifier:   &notify.Notifier{Transport: transport},
		Profile:    prof,
		Categories: cfg.Feed.Categories,
		Cfg:        cfg.Scheduler,
		ChunkSize:  cfg.Analysis.BatchSize,
		Log:        slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}

	summary, err := s.Run(context.Background())
	if err != nil {
		return err
	}

	printSummary(summary)
	if summary.Phase == types.PhasePartiallyFailed {
		return fmt.Errorf("run %s partially failed", summary.RunID)
	}
	return nil
}

func printSummary(s types.RunSummary) {
	fmt.Printf("run %s %s\n", s.RunID, s.Phase)
	fmt.Printf("fetched: %d, processed: %d, failed: %d, deferred: %d, flagged: %d\n",
		s.Fetched, s.Processed, s.Failed, s.Deferred, s.Flagged)
	if len(s.FeedErrors) > 0 {
		fmt.Printf("feed errors:\n  %s\n", strings.Join(s.FeedErrors, "\n  "))
	}
	if s.DeliveryWarning != "" {
		fmt.Printf("delivery warning: %s\n", s.DeliveryWarning)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
