// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// timeLayout is RFC 3339 with fixed nine-digit fractional seconds so the
// stored strings compare lexicographically in timestamp order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func decodeStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	return v
}

// UpsertItem inserts a newly harvested item in the unprocessed state. An
// existing row is only touched when the incoming revision is strictly
// newer; the metadata is then replaced and the item returns to the
// unprocessed state with a fresh attempt budget. Re-harvesting an
// unchanged item is a no-op that preserves processing state.
func (s *Store) UpsertItem(ctx context.Context, item types.Item) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, title, authors, abstract, categories, published, updated, content_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, abstract=excluded.abstract,
			categories=excluded.categories, published=excluded.published,
			updated=excluded.updated, content_url=excluded.content_url,
			state='unprocessed', failure_reason=NULL, attempts=0,
			claimed_by=NULL, claimed_at=NULL
		 WHERE excluded.updated > items.updated`,
		item.ID, item.Title, encodeStrings(item.Authors), item.Abstract,
		encodeStrings(item.Categories), encodeTime(item.Published),
		encodeTime(item.Updated), item.ContentURL,
	)
	if err != nil {
		return fmt.Errorf("upserting item %s: %w", item.ID, err)
	}
	return nil
}

// ClaimableBatch returns up to limit items eligible for processing:
// unprocessed items plus failed items with retry budget remaining, oldest
// announcements first.
func (s *Store) ClaimableBatch(ctx context.Context, limit int) ([]types.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, authors, abstract, categories, published, updated, content_url
		 FROM items
		 WHERE state = ? OR (state = ? AND attempts < ?)
		 ORDER BY published ASC, id ASC
		 LIMIT ?`,
		types.StateUnprocessed, types.StateFailed, s.maxAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying claimable items: %w", err)
	}
	defer rows.Close()

	var items []types.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (types.Item, error) {
	var item types.Item
	var authors, categories, published, updated string
	var abstract, contentURL sql.NullString
	err := row.Scan(&item.ID, &item.Title, &authors, &abstract, &categories,
		&published, &updated, &contentURL)
	if err != nil {
		return types.Item{}, fmt.Errorf("scanning item: %w", err)
	}
	item.Authors = decodeStrings(authors)
	item.Abstract = abstract.String
	item.Categories = decodeStrings(categories)
	item.Published = decodeTime(published)
	item.Updated = decodeTime(updated)
	item.ContentURL = contentURL.String
	return item, nil
}

// Claim transitions a claimable item to in-progress on behalf of runID.
// Claimable means unprocessed, or failed with retry budget remaining.
// Exactly one concurrent caller succeeds; the rest get ErrConflict.
func (s *Store) Claim(ctx context.Context, itemID, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET state = ?, claimed_by = ?, claimed_at = ?
		 WHERE id = ? AND (state = ? OR (state = ? AND attempts < ?))`,
		types.StateInProgress, runID, encodeTime(time.Now()),
		itemID, types.StateUnprocessed, types.StateFailed, s.maxAttempts,
	)
	if err != nil {
		return fmt.Errorf("claiming item %s: %w", itemID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claiming item %s: %w", itemID, err)
	}
	if n == 0 {
		return fmt.Errorf("claiming item %s: %w", itemID, ErrConflict)
	}
	return nil
}

// ReleaseClaim returns an in-progress item to the unprocessed state
// without consuming attempt budget. Used for deferred items.
func (s *Store) ReleaseClaim(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE items SET state = ?, claimed_by = NULL, claimed_at = NULL
		 WHERE id = ? AND state = ?`,
		types.StateUnprocessed, itemID, types.StateInProgress,
	)
	if err != nil {
		return fmt.Errorf("releasing claim on %s: %w", itemID, err)
	}
	return nil
}

// ReleaseRunClaims returns every item still claimed by runID to the
// unprocessed state. Called when a run hits its deadline.
func (s *Store) ReleaseRunClaims(ctx context.Context, runID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET state = ?, claimed_by = NULL, claimed_at = NULL
		 WHERE claimed_by = ? AND state = ?`,
		types.StateUnprocessed, runID, types.StateInProgress,
	)
	if err != nil {
		return 0, fmt.Errorf("releasing claims for run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("releasing claims for run %s: %w", runID, err)
	}
	return int(n), nil
}

// CommitResult atomically records the analysis and score for an item
// claimed by runID and marks it processed. Either all three writes land
// or none do. ErrConflict means the claim was lost in the meantime.
func (s *Store) CommitResult(ctx context.Context, runID string, analysis types.AnalysisResult, score types.RelevanceScore) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE items SET state = ?, failure_reason = NULL, claimed_by = NULL, claimed_at = NULL
		 WHERE id = ? AND state = ? AND claimed_by = ?`,
		types.StateProcessed, score.ItemID, types.StateInProgress, runID,
	)
	if err != nil {
		return fmt.Errorf("marking %s processed: %w", score.ItemID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking %s processed: %w", score.ItemID, err)
	}
	if n == 0 {
		return fmt.Errorf("committing result for %s: %w", score.ItemID, ErrConflict)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analyses (item_id, key_concepts, summary, confidence)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET
			key_concepts=excluded.key_concepts, summary=excluded.summary,
			confidence=excluded.confidence`,
		score.ItemID, encodeStrings(analysis.KeyConcepts), analysis.Summary, analysis.Confidence,
	)
	if err != nil {
		return fmt.Errorf("storing analysis for %s: %w", score.ItemID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scores (item_id, run_id, score, flagged, text_similarity,
			collaborator_match, matched_collaborators, ai_confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET
			run_id=excluded.run_id, score=excluded.score, flagged=excluded.flagged,
			text_similarity=excluded.text_similarity,
			collaborator_match=excluded.collaborator_match,
			matched_collaborators=excluded.matched_collaborators,
			ai_confidence=excluded.ai_confidence`,
		score.ItemID, runID, score.Score, score.Flagged, score.TextSimilarity,
		score.CollaboratorMatch, encodeStrings(score.MatchedCollaborators), score.AIConfidence,
	)
	if err != nil {
		return fmt.Errorf("storing score for %s: %w", score.ItemID, err)
	}

	return tx.Commit()
}

// MarkFailed records a processing failure: the item enters the failed
// state with the reason and one attempt consumed. It stays claimable until
// the budget runs out. Malformed items exhaust their budget at once since
// re-running cannot repair them.
func (s *Store) MarkFailed(ctx context.Context, itemID string, reason types.FailureReason) error {
	var err error
	if reason == types.FailureMalformed {
		_, err = s.db.ExecContext(ctx,
			`UPDATE items SET state = ?, failure_reason = ?,
				attempts = MAX(attempts + 1, ?),
				claimed_by = NULL, claimed_at = NULL
			 WHERE id = ?`,
			types.StateFailed, reason, s.maxAttempts, itemID,
		)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE items SET state = ?, failure_reason = ?,
				attempts = attempts + 1,
				claimed_by = NULL, claimed_at = NULL
			 WHERE id = ?`,
			types.StateFailed, reason, itemID,
		)
	}
	if err != nil {
		return fmt.Errorf("marking %s failed: %w", itemID, err)
	}
	return nil
}

// ItemState reports the lifecycle fields of one item.
func (s *Store) ItemState(ctx context.Context, itemID string) (types.ProcessingState, types.FailureReason, int, error) {
	var state string
	var reason sql.NullString
	var attempts int
	err := s.db.QueryRowContext(ctx,
		`SELECT state, failure_reason, attempts FROM items WHERE id = ?`, itemID,
	).Scan(&state, &reason, &attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", 0, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return "", "", 0, fmt.Errorf("reading item %s: %w", itemID, err)
	}
	return types.ProcessingState(state), types.FailureReason(reason.String), attempts, nil
}

// FlaggedInRun returns the report entries for every item flagged during
// runID, ordered by score descending, then published descending, then ID
// ascending.
func (s *Store) FlaggedInRun(ctx context.Context, runID string) ([]types.ReportEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.title, i.authors, i.abstract, i.categories, i.published, i.updated, i.content_url,
			sc.score, sc.flagged, sc.text_similarity, sc.collaborator_match,
			sc.matched_collaborators, sc.ai_confidence,
			a.key_concepts, a.summary, a.confidence
		 FROM scores sc
		 JOIN items i ON i.id = sc.item_id
		 JOIN analyses a ON a.item_id = sc.item_id
		 WHERE sc.run_id = ? AND sc.flagged = 1
		 ORDER BY sc.score DESC, i.published DESC, i.id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying flagged items for run %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []types.ReportEntry
	for rows.Next() {
		var e types.ReportEntry
		var authors, categories, published, updated, matched, concepts string
		var abstract, contentURL, summary sql.NullString
		err := rows.Scan(&e.Item.ID, &e.Item.Title, &authors, &abstract, &categories,
			&published, &updated, &contentURL,
			&e.Score.Score, &e.Score.Flagged, &e.Score.TextSimilarity,
			&e.Score.CollaboratorMatch, &matched, &e.Score.AIConfidence,
			&concepts, &summary, &e.Analysis.Confidence)
		if err != nil {
			return nil, fmt.Errorf("scanning report entry: %w", err)
		}
		e.Item.Authors = decodeStrings(authors)
		e.Item.Abstract = abstract.String
		e.Item.Categories = decodeStrings(categories)
		e.Item.Published = decodeTime(published)
		e.Item.Updated = decodeTime(updated)
		e.Item.ContentURL = contentURL.String
		e.Score.ItemID = e.Item.ID
		e.Score.MatchedCollaborators = decodeStrings(matched)
		e.Analysis.ItemID = e.Item.ID
		e.Analysis.KeyConcepts = decodeStrings(concepts)
		e.Analysis.Summary = summary.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Watermark returns the recorded resume point for a category. Seen is the
// zero time when the category has never been harvested.
func (s *Store) Watermark(ctx context.Context, category string) (types.Watermark, error) {
	wm := types.Watermark{Category: category}
	var seen string
	err := s.db.QueryRowContext(ctx,
		`SELECT seen FROM watermarks WHERE category = ?`, category,
	).Scan(&seen)
	if errors.Is(err, sql.ErrNoRows) {
		return wm, nil
	}
	if err != nil {
		return wm, fmt.Errorf("reading watermark for %s: %w", category, err)
	}
	wm.Seen = decodeTime(seen)
	return wm, nil
}

// SetWatermark advances the category watermark. It never moves backwards.
func (s *Store) SetWatermark(ctx context.Context, wm types.Watermark) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watermarks (category, seen) VALUES (?, ?)
		 ON CONFLICT(category) DO UPDATE SET seen=excluded.seen
		 WHERE excluded.seen > watermarks.seen`,
		wm.Category, encodeTime(wm.Seen),
	)
	if err != nil {
		return fmt.Errorf("setting watermark for %s: %w", wm.Category, err)
	}
	return nil
}

// SaveRun persists the run summary.
func (s *Store) SaveRun(ctx context.Context, summary types.RunSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, phase, started, finished, fetched, processed,
			failed, deferred, flagged, feed_errors, delivery_warning)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			phase=excluded.phase, finished=excluded.finished,
			fetched=excluded.fetched, processed=excluded.processed,
			failed=excluded.failed, deferred=excluded.deferred,
			flagged=excluded.flagged, feed_errors=excluded.feed_errors,
			delivery_warning=excluded.delivery_warning`,
		summary.RunID, summary.Phase, encodeTime(summary.Started),
		encodeTime(summary.Finished), summary.Fetched, summary.Processed,
		summary.Failed, summary.Deferred, summary.Flagged,
		encodeStrings(summary.FeedErrors), summary.DeliveryWarning,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", summary.RunID, err)
	}
	return nil
}

// Run returns the summary of a past run, or ErrNotFound.
func (s *Store) Run(ctx context.Context, runID string) (types.RunSummary, error) {
	var summary types.RunSummary
	var phase, started, finished, feedErrors string
	var warning sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, phase, started, finished, fetched, processed, failed,
			deferred, flagged, feed_errors, delivery_warning
		 FROM runs WHERE id = ?`, runID,
	).Scan(&summary.RunID, &phase, &started, &finished, &summary.Fetched,
		&summary.Processed, &summary.Failed, &summary.Deferred,
		&summary.Flagged, &feedErrors, &warning)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RunSummary{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return types.RunSummary{}, fmt.Errorf("reading run %s: %w", runID, err)
	}
	summary.Phase = types.RunPhase(phase)
	summary.Started = decodeTime(started)
	summary.Finished = decodeTime(finished)
	summary.FeedErrors = decodeStrings(feedErrors)
	summary.DeliveryWarning = warning.String
	return summary, nil
}

// LatestRun returns the most recently finished run summary, or ErrNotFound
// when no run has been recorded.
func (s *Store) LatestRun(ctx context.Context) (types.RunSummary, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs ORDER BY finished DESC LIMIT 1`,
	).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RunSummary{}, ErrNotFound
	}
	if err != nil {
		return types.RunSummary{}, fmt.Errorf("reading latest run: %w", err)
	}
	return s.Run(ctx, runID)
}
