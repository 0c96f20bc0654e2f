package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/paperwatch/internal/analyze"
	"github.com/pdiddy/paperwatch/internal/content"
	"github.com/pdiddy/paperwatch/internal/relevance"
	"github.com/pdiddy/paperwatch/internal/store"
	"github.com/pdiddy/paperwatch/pkg/types"
)

type stubFeed struct {
	items map[string][]types.Item
	errs  map[string]error
}

func (f *stubFeed) FetchSince(ctx context.Context, category string, since time.Time) ([]types.Item, time.Time, error) {
	if err := f.errs[category]; err != nil {
		return nil, since, err
	}
	next := since
	for _, it := range f.items[category] {
		if it.Updated.After(next) {
			next = it.Updated
		}
	}
	return f.items[category], next, nil
}

type stubExtractor struct {
	fail map[string]bool
}

func (e *stubExtractor) Extract(ctx context.Context, item types.Item) (string, error) {
	if e.fail[item.ID] {
		return "", &content.Error{ItemID: item.ID, Err: errors.New("content unreachable")}
	}
	return "plain text for " + item.ID, nil
}

type stubAnalyzer struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, batch []analyze.Request) (map[string]types.AnalysisResult, error)
}

func (a *stubAnalyzer) Analyze(ctx context.Context, profile types.UserProfile, batch []analyze.Request) (map[string]types.AnalysisResult, error) {
	a.mu.Lock()
	a.calls++
	call := a.calls
	a.mu.Unlock()
	return a.fn(call, batch)
}

// confidences builds an analyzer that reports a fixed confidence per item.
func confidences(conf map[string]float64) func(int, []analyze.Request) (map[string]types.AnalysisResult, error) {
	return func(call int, batch []analyze.Request) (map[string]types.AnalysisResult, error) {
		out := map[string]types.AnalysisResult{}
		for _, r := range batch {
			if c, ok := conf[r.ItemID]; ok {
				out[r.ItemID] = types.AnalysisResult{ItemID: r.ItemID, Confidence: c, Summary: "findings for " + r.ItemID}
			}
		}
		return out, nil
	}
}

type stubNotifier struct {
	mu      sync.Mutex
	reports []types.Report
	err     error
}

func (n *stubNotifier) Deliver(ctx context.Context, report types.Report) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, report)
	return n.err
}

func feedItem(id string, updated time.Time) types.Item {
	return types.Item{
		ID:         id,
		Title:      "Paper " + id,
		Authors:    []string{"Solo Author"},
		Abstract:   "An abstract.",
		Categories: []string{"hep-th"},
		Published:  updated,
		Updated:    updated,
		ContentURL: "https://arxiv.org/pdf/" + id + ".pdf",
	}
}

// newTestScheduler wires a scheduler over a real temp-dir store. Scoring
// uses an AI-only weight so the stub analyzer's confidence is the score;
// threshold 0.5 decides flagging.
func newTestScheduler(t *testing.T, feed *stubFeed, an *stubAnalyzer) (*Scheduler, *store.Store, *stubNotifier) {
	t.Helper()
	st, err := store.Open(types.StoreConfig{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		MaxAttempts: 3,
	})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	profile := types.UserProfile{Name: "Alice Smith", Keywords: []string{"testing"}}
	engine, err := relevance.NewEngine(types.RelevanceConfig{
		Threshold: 0.5,
		AIWeight:  1.0,
	}, profile)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	notifier := &stubNotifier{}
	var categories []string
	for cat := range feed.items {
		categories = append(categories, cat)
	}
	for cat := range feed.errs {
		categories = append(categories, cat)
	}

	return &Scheduler{
		Store:      st,
		Feed:       feed,
		Extractor:  &stubExtractor{},
		Analyzer:   an,
		Engine:     engine,
		Notifier:   notifier,
		Profile:    profile,
		Categories: categories,
		Cfg:        types.SchedulerConfig{Workers: 2, MaxBatch: 100},
		ChunkSize:  2,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, st, notifier
}

func TestRunEndToEnd(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	feed := &stubFeed{items: map[string][]types.Item{
		"hep-th": {feedItem("2608.00001", now)},
		"gr-qc":  {feedItem("2608.00002", now)},
	}}
	an := &stubAnalyzer{fn: confidences(map[string]float64{
		"2608.00001": 0.9,
		"2608.00002": 0.2,
	})}
	s, st, notifier := newTestScheduler(t, feed, an)

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Phase != types.PhaseCompleted {
		t.Errorf("Phase = %s", summary.Phase)
	}
	if summary.Fetched != 2 || summary.Processed != 2 || summary.Failed != 0 || summary.Flagged != 1 {
		t.Errorf("summary = %+v", summary)
	}

	if len(notifier.reports) != 1 {
		t.Fatalf("delivered %d reports, want 1", len(notifier.reports))
	}
	report := notifier.reports[0]
	if len(report.Entries) != 1 || report.Entries[0].Item.ID != "2608.00001" {
		t.Errorf("report entries = %+v", report.Entries)
	}

	wm, err := st.Watermark(context.Background(), "hep-th")
	if err != nil {
		t.Fatal(err)
	}
	if !wm.Seen.Equal(now) {
		t.Errorf("watermark = %v, want %v", wm, now)
	}

	saved, err := st.Run(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("saved run: %v", err)
	}
	if saved.Processed != 2 || saved.Flagged != 1 {
		t.Errorf("saved summary = %+v", saved)
	}

	// A second run over the same feed must not reprocess anything and must
	// not duplicate report entries.
	summary2, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary2.Processed != 0 || summary2.Flagged != 0 {
		t.Errorf("second run reprocessed items: %+v", summary2)
	}
	if len(notifier.reports) != 2 || len(notifier.reports[1].Entries) != 0 {
		t.Errorf("second report should be empty: %+v", notifier.reports)
	}
}

func TestFeedFailureIsolatesCategory(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	feed := &stubFeed{
		items: map[string][]types.Item{"hep-th": {feedItem("2608.00001", now)}},
		errs:  map[string]error{"gr-qc": errors.New("feed unavailable for category gr-qc: HTTP 503")},
	}
	an := &stubAnalyzer{fn: confidences(map[string]float64{"2608.00001": 0.9})}
	s, _, _ := newTestScheduler(t, feed, an)

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.FeedErrors) != 1 {
		t.Fatalf("FeedErrors = %v", summary.FeedErrors)
	}
	if summary.Phase != types.PhasePartiallyFailed {
		t.Errorf("Phase = %s, want partially-failed", summary.Phase)
	}
	if summary.Processed != 1 || summary.Flagged != 1 {
		t.Errorf("healthy category did not complete: %+v", summary)
	}
}

func TestAnalysisFailureMarksChunkFailed(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	feed := &stubFeed{items: map[string][]types.Item{
		"hep-th": {feedItem("2608.00001", now), feedItem("2608.00002", now)},
	}}
	an := &stubAnalyzer{fn: func(call int, batch []analyze.Request) (map[string]types.AnalysisResult, error) {
		return nil, &analyze.ServiceError{Err: errors.New("deadline exceeded")}
	}}
	s, st, notifier := newTestScheduler(t, feed, an)

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 2 || summary.Processed != 0 || summary.Flagged != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(notifier.reports) != 1 || len(notifier.reports[0].Entries) != 0 {
		t.Errorf("report should be empty: %+v", notifier.reports)
	}
	for _, id := range []string{"2608.00001", "2608.00002"} {
		state, reason, attempts, err := st.ItemState(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if state != types.StateFailed || reason != types.FailureAnalysis || attempts != 1 {
			t.Errorf("%s: state=%s reason=%q attempts=%d", id, state, reason, attempts)
		}
	}
}

func TestQuotaExhaustedDefersItems(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	feed := &stubFeed{items: map[string][]types.Item{
		"hep-th": {feedItem("2608.00001", now), feedItem("2608.00002", now)},
	}}
	// One item reported before the quota window closed.
	an := &stubAnalyzer{fn: func(call int, batch []analyze.Request) (map[string]types.AnalysisResult, error) {
		out := map[string]types.AnalysisResult{
			"2608.00001": {ItemID: "2608.00001", Confidence: 0.9},
		}
		return out, fmt.Errorf("acquiring quota: %w", analyze.ErrQuotaExceeded)
	}}
	s, st, _ := newTestScheduler(t, feed, an)
	s.Cfg.Workers = 1

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.Deferred != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}

	state, _, attempts, err := st.ItemState(context.Background(), "2608.00002")
	if err != nil {
		t.Fatal(err)
	}
	if state != types.StateUnprocessed {
		t.Errorf("deferred item state = %s, want unprocessed", state)
	}
	if attempts != 0 {
		t.Errorf("deferred item attempts = %d, deferral must not consume budget", attempts)
	}
}

func TestExtractionFailureIsItemScoped(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	feed := &stubFeed{items: map[string][]types.Item{
		"hep-th": {feedItem("2608.00001", now), feedItem("2608.00002", now)},
	}}
	an := &stubAnalyzer{fn: confidences(map[string]float64{
		"2608.00001": 0.9,
		"2608.00002": 0.9,
	})}
	s, st, _ := newTestScheduler(t, feed, an)
	s.Extractor = &stubExtractor{fail: map[string]bool{"2608.00002": true}}

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	state, reason, _, err := st.ItemState(context.Background(), "2608.00002")
	if err != nil {
		t.Fatal(err)
	}
	if state != types.StateFailed || reason != types.FailureExtraction {
		t.Errorf("state=%s reason=%q", state, reason)
	}
}

func TestRunDeadlineReleasesClaims(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var items []types.Item
	for i := 0; i < 10; i++ {
		items = append(items, feedItem(fmt.Sprintf("2608.%05d", i+1), now))
	}
	feed := &stubFeed{items: map[string][]types.Item{"hep-th": items}}

	// The first seven calls succeed; the eighth blocks until the run
	// deadline fires.
	an := &stubAnalyzer{fn: func(call int, batch []analyze.Request) (map[string]types.AnalysisResult, error) {
		if call > 7 {
			<-time.After(time.Second)
			return nil, context.DeadlineExceeded
		}
		out := map[string]types.AnalysisResult{}
		for _, r := range batch {
			out[r.ItemID] = types.AnalysisResult{ItemID: r.ItemID, Confidence: 0.9}
		}
		return out, nil
	}}

	s, st, notifier := newTestScheduler(t, feed, an)
	s.Cfg.Workers = 1
	s.Cfg.RunDeadline = 300 * time.Millisecond
	s.ChunkSize = 1

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Phase != types.PhasePartiallyFailed {
		t.Errorf("Phase = %s, want partially-failed", summary.Phase)
	}
	if summary.Processed != 7 {
		t.Errorf("Processed = %d, want 7", summary.Processed)
	}
	if summary.Deferred != 3 {
		t.Errorf("Deferred = %d, want 3 (released claims)", summary.Deferred)
	}

	// Report contains only the completed flagged items.
	if len(notifier.reports) != 1 || len(notifier.reports[0].Entries) != 7 {
		t.Fatalf("report = %+v", notifier.reports)
	}

	// Nothing may remain claimed after the run.
	claimable, err := st.ClaimableBatch(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(claimable) != 3 {
		t.Errorf("claimable after run = %d, want the 3 released items", len(claimable))
	}
}

func TestDeadlineDuringHarvestStillProducesSummary(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	feed := &stubFeed{items: map[string][]types.Item{
		"hep-th": {feedItem("2608.00001", now)},
	}}
	an := &stubAnalyzer{fn: confidences(map[string]float64{"2608.00001": 0.9})}
	s, st, notifier := newTestScheduler(t, feed, an)
	s.Cfg.RunDeadline = time.Nanosecond

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Phase != types.PhasePartiallyFailed {
		t.Errorf("Phase = %s, want partially-failed", summary.Phase)
	}

	// Even a run cut off in harvest delivers its (empty) report and
	// persists a summary.
	if len(notifier.reports) != 1 || len(notifier.reports[0].Entries) != 0 {
		t.Errorf("reports = %+v, want one empty report", notifier.reports)
	}
	saved, err := st.Run(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("summary not persisted: %v", err)
	}
	if saved.Phase != types.PhasePartiallyFailed {
		t.Errorf("saved phase = %s", saved.Phase)
	}
}

func TestDeliveryFailureIsRunWarning(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	feed := &stubFeed{items: map[string][]types.Item{
		"hep-th": {feedItem("2608.00001", now)},
	}}
	an := &stubAnalyzer{fn: confidences(map[string]float64{"2608.00001": 0.9})}
	s, st, notifier := newTestScheduler(t, feed, an)
	notifier.err = errors.New("webhook returned HTTP 502")

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.DeliveryWarning == "" {
		t.Error("DeliveryWarning not set")
	}
	if summary.Phase != types.PhaseCompleted {
		t.Errorf("Phase = %s, delivery failure must not fail the run", summary.Phase)
	}
	if len(notifier.reports) != 1 {
		t.Errorf("delivered %d times, must be exactly once", len(notifier.reports))
	}

	saved, err := st.Run(context.Background(), summary.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if saved.DeliveryWarning != summary.DeliveryWarning {
		t.Errorf("saved warning = %q", saved.DeliveryWarning)
	}
}
