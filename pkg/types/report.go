// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunPhase is the terminal phase a pipeline run reached.
type RunPhase string

const (
	PhaseCompleted       RunPhase = "completed"
	PhasePartiallyFailed RunPhase = "partially-failed"
)

// ReportEntry is one flagged paper in the outbound report.
type ReportEntry struct {
	Item     Item           `json:"item" yaml:"item"`
	Score    RelevanceScore `json:"score" yaml:"score"`
	Analysis AnalysisResult `json:"analysis" yaml:"analysis"`
}

// Report is the ranked, deduplicated notification for one run, ordered by
// score descending, ties broken by published timestamp descending then
// item ID ascending.
type Report struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Generated time.Time     `json:"generated" yaml:"generated"`
	Entries   []ReportEntry `json:"entries" yaml:"entries"`
}

// RunSummary holds the counts a run always produces, even when empty.
type RunSummary struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	Phase     RunPhase  `json:"phase" yaml:"phase"`
	Started   time.Time `json:"started" yaml:"started"`
	Finished  time.Time `json:"finished" yaml:"finished"`
	Fetched   int       `json:"fetched" yaml:"fetched"`
	Processed int       `json:"processed" yaml:"processed"`
	Failed    int       `json:"failed" yaml:"failed"`
	Deferred  int       `json:"deferred" yaml:"deferred"`
	Flagged   int       `json:"flagged" yaml:"flagged"`

	// FeedErrors records category-scoped harvest failures.
	FeedErrors []string `json:"feed_errors,omitempty" yaml:"feed_errors,omitempty"`

	// DeliveryWarning is set when the report could not be delivered.
	DeliveryWarning string `json:"delivery_warning,omitempty" yaml:"delivery_warning,omitempty"`
}
