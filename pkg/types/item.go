// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ProcessingState tracks where an Item is in its processing lifecycle.
type ProcessingState string

const (
	StateUnprocessed ProcessingState = "unprocessed"
	StateInProgress  ProcessingState = "in-progress"
	StateProcessed   ProcessingState = "processed"
	StateFailed      ProcessingState = "failed"
)

// FailureReason classifies why an Item ended up in StateFailed.
type FailureReason string

const (
	FailureExtraction FailureReason = "extraction"
	FailureAnalysis   FailureReason = "analysis"
	FailureMalformed  FailureReason = "malformed"
)

// Item is a candidate paper discovered from the feed.
type Item struct {
	// ID is the stable external identifier (e.g. "2301.07041"),
	// unique and immutable once created.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title with newlines collapsed.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract. May be empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Categories holds the feed categories the item was announced under.
	Categories []string `json:"categories" yaml:"categories"`

	// Published is the original announcement timestamp.
	Published time.Time `json:"published" yaml:"published"`

	// Updated is the latest revision timestamp; equal to Published for
	// first announcements. A changed Updated triggers reprocessing.
	Updated time.Time `json:"updated" yaml:"updated"`

	// ContentURL locates the full content (PDF). Must be HTTPS.
	ContentURL string `json:"content_url" yaml:"content_url"`
}

// AnalysisResult holds the structured findings the AI service produced for
// one Item. Immutable once written; superseded on reprocessing.
type AnalysisResult struct {
	ItemID      string   `json:"item_id" yaml:"item_id"`
	KeyConcepts []string `json:"key_concepts" yaml:"key_concepts"`
	Summary     string   `json:"summary" yaml:"summary"`

	// Confidence is the service's own relevance estimate in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// RelevanceScore is the derived score attached to an Item's latest
// AnalysisResult.
type RelevanceScore struct {
	ItemID string `json:"item_id" yaml:"item_id"`

	// Score is the weighted composite in [0,1].
	Score float64 `json:"score" yaml:"score"`

	// Flagged is true when Score met the configured threshold.
	Flagged bool `json:"flagged" yaml:"flagged"`

	// Components records the inputs that produced the score, for the report.
	TextSimilarity       float64  `json:"text_similarity" yaml:"text_similarity"`
	CollaboratorMatch    bool     `json:"collaborator_match" yaml:"collaborator_match"`
	MatchedCollaborators []string `json:"matched_collaborators,omitempty" yaml:"matched_collaborators,omitempty"`
	AIConfidence         float64  `json:"ai_confidence" yaml:"ai_confidence"`
}

// Watermark is the per-category resume point for incremental harvesting:
// the maximum announcement timestamp durably recorded in the store.
type Watermark struct {
	Category string    `json:"category" yaml:"category"`
	Seen     time.Time `json:"seen" yaml:"seen"`
}
