// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scheduler orchestrates one pipeline run: harvest feed items into
// the store, claim a bounded batch, process it with concurrent workers
// (extract, analyze, score, commit), then deliver the report of flagged
// papers. Per-item failures never abort the run; only a broken store does.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/paperwatch/internal/analyze"
	"github.com/pdiddy/paperwatch/internal/notify"
	"github.com/pdiddy/paperwatch/internal/relevance"
	"github.com/pdiddy/paperwatch/internal/store"
	"github.com/pdiddy/paperwatch/pkg/types"
)

// Phase is the scheduler's position in the run state machine.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseHarvesting  Phase = "harvesting"
	PhaseDispatching Phase = "dispatching"
	PhaseDraining    Phase = "draining"
)

// Feed yields candidate items per category, resumable from a watermark.
type Feed interface {
	FetchSince(ctx context.Context, category string, since time.Time) ([]types.Item, time.Time, error)
}

// Extractor turns an item's content locator into plain text.
type Extractor interface {
	Extract(ctx context.Context, item types.Item) (string, error)
}

// Analyzer returns AI findings per item ID for a batch of extracted texts.
type Analyzer interface {
	Analyze(ctx context.Context, profile types.UserProfile, batch []analyze.Request) (map[string]types.AnalysisResult, error)
}

// Notifier delivers the run's report exactly once.
type Notifier interface {
	Deliver(ctx context.Context, report types.Report) error
}

// Scheduler runs the harvest, analyze, score, notify pipeline.
type Scheduler struct {
	Store      *store.Store
	Feed       Feed
	Extractor  Extractor
	Analyzer   Analyzer
	Engine     *relevance.Engine
	Notifier   Notifier
	Profile    types.UserProfile
	Categories []string
	Cfg        types.SchedulerConfig

	// ChunkSize groups claimed items into per-worker analysis batches.
	ChunkSize int

	Log *slog.Logger
}

// tally accumulates per-item outcomes across workers.
type tally struct {
	mu        sync.Mutex
	processed int
	failed    int
	deferred  int
	flagged   int
}

func (t *tally) add(processed, failed, deferred, flagged int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed += processed
	t.failed += failed
	t.deferred += deferred
	t.flagged += flagged
}

// Run executes one end-to-end pipeline run and returns its summary. The
// summary is always populated, also on error; an error means the store
// (or the whole feed) failed, not that individual items did.
func (s *Scheduler) Run(ctx context.Context) (types.RunSummary, error) {
	runID := uuid.NewString()
	log := s.logger().With("run_id", runID)

	summary := types.RunSummary{
		RunID:   runID,
		Phase:   types.PhaseCompleted,
		Started: time.Now().UTC(),
	}

	if s.Cfg.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Cfg.RunDeadline)
		defer cancel()
	}

	log.Info("run starting", "phase", PhaseHarvesting, "categories", s.Categories)
	deadlineHit := false
	if err := s.harvest(ctx, log, &summary); err != nil {
		if ctx.Err() == nil {
			return summary, err
		}
		// The deadline fired mid-harvest; finish the run with what we have.
		deadlineHit = true
		log.Warn("harvest cut short by run deadline")
	}

	t := &tally{}
	if !deadlineHit {
		log.Info("dispatching", "phase", PhaseDispatching, "fetched", summary.Fetched)
		if err := s.dispatch(ctx, log, runID, t); err != nil {
			if ctx.Err() == nil {
				return summary, err
			}
			deadlineHit = true
			log.Warn("dispatch cut short by run deadline")
		}
	}

	// Draining already happened inside dispatch (workers joined). Claims
	// left behind by the deadline revert so a later run can retry them.
	released, err := s.Store.ReleaseRunClaims(context.Background(), runID)
	if err != nil {
		return summary, err
	}
	if released > 0 {
		log.Warn("abandoned claims released", "count", released)
		t.add(0, 0, released, 0)
	}

	summary.Processed = t.processed
	summary.Failed = t.failed
	summary.Deferred = t.deferred
	summary.Flagged = t.flagged
	if deadlineHit || released > 0 || len(summary.FeedErrors) > 0 {
		summary.Phase = types.PhasePartiallyFailed
	}

	// Notification proceeds for whatever completed, even on a partially
	// failed run.
	if err := s.deliver(log, runID, &summary); err != nil {
		return summary, err
	}

	summary.Finished = time.Now().UTC()
	if err := s.Store.SaveRun(context.Background(), summary); err != nil {
		return summary, err
	}

	log.Info("run finished",
		"phase", summary.Phase,
		"fetched", summary.Fetched,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"deferred", summary.Deferred,
		"flagged", summary.Flagged,
	)
	return summary, nil
}

// Harvest runs the harvest stage alone: fetch each category, upsert, and
// advance watermarks. It returns the fetched count and per-category feed
// errors.
func (s *Scheduler) Harvest(ctx context.Context) (int, []string, error) {
	var summary types.RunSummary
	if err := s.harvest(ctx, s.logger(), &summary); err != nil {
		return summary.Fetched, summary.FeedErrors, err
	}
	return summary.Fetched, summary.FeedErrors, nil
}

// harvest pulls new items per category and records them durably before
// advancing that category's watermark. A category whose feed is down is
// skipped and reported; the others continue.
func (s *Scheduler) harvest(ctx context.Context, log *slog.Logger, summary *types.RunSummary) error {
	for _, category := range s.Categories {
		wm, err := s.Store.Watermark(ctx, category)
		if err != nil {
			return err
		}

		items, next, err := s.Feed.FetchSince(ctx, category, wm.Seen)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("category harvest failed", "category", category, "error", err)
			summary.FeedErrors = append(summary.FeedErrors, err.Error())
			continue
		}

		for _, item := range items {
			if err := s.Store.UpsertItem(ctx, item); err != nil {
				return err
			}
		}
		summary.Fetched += len(items)

		if err := s.Store.SetWatermark(ctx, types.Watermark{Category: category, Seen: next}); err != nil {
			return err
		}
		log.Info("category harvested", "category", category, "items", len(items), "watermark", next)
	}
	return nil
}

// dispatch claims a bounded batch and fans the items out to workers in
// analysis-sized chunks. It returns after all workers have drained.
func (s *Scheduler) dispatch(ctx context.Context, log *slog.Logger, runID string, t *tally) error {
	maxBatch := s.Cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 100
	}

	batch, err := s.Store.ClaimableBatch(ctx, maxBatch)
	if err != nil {
		return err
	}

	var claimed []types.Item
	for _, item := range batch {
		err := s.Store.Claim(ctx, item.ID, runID)
		if errors.Is(err, store.ErrConflict) {
			// Another run owns it.
			continue
		}
		if err != nil {
			return err
		}
		claimed = append(claimed, item)
	}
	log.Info("batch claimed", "claimed", len(claimed), "candidates", len(batch))
	if len(claimed) == 0 {
		return nil
	}

	chunkSize := s.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 10
	}
	workers := s.Cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	chunks := make(chan []types.Item)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range chunks {
				s.processChunk(ctx, log, runID, chunk, t)
			}
		}()
	}

send:
	for start := 0; start < len(claimed); start += chunkSize {
		end := start + chunkSize
		if end > len(claimed) {
			end = len(claimed)
		}
		select {
		case chunks <- claimed[start:end]:
		case <-ctx.Done():
			break send
		}
	}
	close(chunks)
	wg.Wait()
	return nil
}

// processChunk runs one chunk through extraction, a single analysis call,
// and per-item scoring and commit. All failures here are item-scoped.
func (s *Scheduler) processChunk(ctx context.Context, log *slog.Logger, runID string, chunk []types.Item, t *tally) {
	byID := make(map[string]types.Item, len(chunk))
	var reqs []analyze.Request

	for _, item := range chunk {
		if ctx.Err() != nil {
			// Deadline or shutdown: leave the claim for the final release.
			return
		}
		text, err := s.Extractor.Extract(ctx, item)
		if err != nil {
			log.Warn("extraction failed", "item", item.ID, "error", err)
			s.markFailed(log, item.ID, types.FailureExtraction, t)
			continue
		}
		byID[item.ID] = item
		reqs = append(reqs, analyze.Request{
			ItemID:  item.ID,
			Title:   item.Title,
			Authors: item.Authors,
			Text:    text,
		})
	}
	if len(reqs) == 0 {
		return
	}

	results, analyzeErr := s.Analyzer.Analyze(ctx, s.Profile, reqs)

	for _, req := range reqs {
		analysis, ok := results[req.ItemID]
		if ok {
			s.commit(log, runID, byID[req.ItemID], analysis, t)
			continue
		}

		switch {
		case errors.Is(analyzeErr, analyze.ErrQuotaExceeded):
			// Deferred, not failed: the claim reverts with its budget intact.
			if err := s.Store.ReleaseClaim(context.Background(), req.ItemID); err != nil {
				log.Error("releasing deferred claim", "item", req.ItemID, "error", err)
				continue
			}
			t.add(0, 0, 1, 0)
		case ctx.Err() != nil:
			// Run cancelled mid-call; the final release handles the claim.
		default:
			// Service failure after retry, or the service silently skipped
			// the item in an otherwise successful response.
			s.markFailed(log, req.ItemID, types.FailureAnalysis, t)
		}
	}
	if analyzeErr != nil && !errors.Is(analyzeErr, ctx.Err()) {
		log.Warn("analysis incomplete", "items", len(reqs), "reported", len(results), "error", analyzeErr)
	}
}

// commit scores one analyzed item and atomically records the outcome.
func (s *Scheduler) commit(log *slog.Logger, runID string, item types.Item, analysis types.AnalysisResult, t *tally) {
	score, err := s.Engine.Score(item, analysis, s.Profile)
	if err != nil {
		var malformed *relevance.MalformedError
		if errors.As(err, &malformed) {
			s.markFailed(log, item.ID, types.FailureMalformed, t)
			return
		}
		s.markFailed(log, item.ID, types.FailureAnalysis, t)
		return
	}

	err = s.Store.CommitResult(context.Background(), runID, analysis, score)
	if errors.Is(err, store.ErrConflict) {
		// Claim lost since dispatch; whoever owns it now writes the result.
		log.Warn("commit lost claim", "item", item.ID)
		return
	}
	if err != nil {
		log.Error("commit failed", "item", item.ID, "error", err)
		return
	}

	flagged := 0
	if score.Flagged {
		flagged = 1
		log.Info("paper flagged", "item", item.ID, "score", score.Score)
	}
	t.add(1, 0, 0, flagged)
}

func (s *Scheduler) markFailed(log *slog.Logger, itemID string, reason types.FailureReason, t *tally) {
	if err := s.Store.MarkFailed(context.Background(), itemID, reason); err != nil {
		log.Error("marking item failed", "item", itemID, "reason", reason, "error", err)
		return
	}
	t.add(0, 1, 0, 0)
}

// deliver builds the run report and sends it once. A delivery failure is
// recorded as a run-level warning, never retried.
func (s *Scheduler) deliver(log *slog.Logger, runID string, summary *types.RunSummary) error {
	entries, err := s.Store.FlaggedInRun(context.Background(), runID)
	if err != nil {
		return err
	}
	report := notify.Build(runID, time.Now().UTC(), entries)

	if s.Notifier == nil {
		return nil
	}
	if err := s.Notifier.Deliver(context.Background(), report); err != nil {
		log.Warn("report delivery failed", "error", err)
		summary.DeliveryWarning = err.Error()
	}
	return nil
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
