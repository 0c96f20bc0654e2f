// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance combines profile similarity, collaborator detection,
// and AI findings into a single bounded score. All functions are pure:
// identical inputs always produce identical scores.
package relevance

import (
	"fmt"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// MalformedError reports an Item or UserProfile missing required identity
// fields. It is fatal to that item only, never to the run.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed input: %s", e.Reason)
}

// Engine scores items against one researcher profile. Construct once per
// run; the profile fingerprint is precomputed.
type Engine struct {
	cfg types.RelevanceConfig
	fp  fingerprint
}

// NewEngine validates the profile and precomputes its corpus fingerprint.
// A profile with no corpus entries and no keywords cannot be scored
// against and is rejected as malformed.
func NewEngine(cfg types.RelevanceConfig, profile types.UserProfile) (*Engine, error) {
	applyDefaults(&cfg)

	if len(profile.Corpus) == 0 && len(profile.Keywords) == 0 {
		return nil, &MalformedError{Reason: "profile has an entirely empty corpus"}
	}

	var titles, abstracts []string
	for _, c := range profile.Corpus {
		titles = append(titles, c.Title)
		abstracts = append(abstracts, c.Abstract)
	}

	return &Engine{
		cfg: cfg,
		fp:  buildFingerprint(profile.Keywords, titles, abstracts),
	}, nil
}

func applyDefaults(cfg *types.RelevanceConfig) {
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.7
	}
	if cfg.TextWeight == 0 && cfg.CollaboratorWeight == 0 && cfg.AIWeight == 0 {
		cfg.TextWeight = 0.40
		cfg.CollaboratorWeight = 0.25
		cfg.AIWeight = 0.35
	}
	if cfg.CollaboratorBoost == 0 {
		cfg.CollaboratorBoost = 0.15
	}
	if cfg.NameMatchThreshold == 0 {
		cfg.NameMatchThreshold = 0.85
	}
}

// Score computes the item's relevance against the profile used to build
// the engine. Missing optional data (empty abstract, no collaborators, no
// findings) lowers components to zero but never errors; only a missing
// item identifier is malformed.
func (e *Engine) Score(item types.Item, analysis types.AnalysisResult, profile types.UserProfile) (types.RelevanceScore, error) {
	if item.ID == "" {
		return types.RelevanceScore{}, &MalformedError{Reason: "item has no identifier"}
	}

	textSim := textSimilarity(item.Abstract, e.fp)
	matched := matchCollaborators(item.Authors, profile.Collaborators, e.cfg.NameMatchThreshold)

	collabComponent := 0.0
	if len(matched) > 0 {
		collabComponent = 1.0
	}

	score := e.cfg.TextWeight*textSim +
		e.cfg.CollaboratorWeight*collabComponent +
		e.cfg.AIWeight*analysis.Confidence
	if len(matched) > 0 {
		score += e.cfg.CollaboratorBoost
	}
	score = clamp01(score)

	return types.RelevanceScore{
		ItemID:               item.ID,
		Score:                score,
		Flagged:              score >= e.cfg.Threshold,
		TextSimilarity:       textSim,
		CollaboratorMatch:    len(matched) > 0,
		MatchedCollaborators: matched,
		AIConfidence:         analysis.Confidence,
	}, nil
}

// matchCollaborators returns the names of collaborators whose name matches
// any author above the similarity threshold, each collaborator counted at
// most once.
func matchCollaborators(authors []string, collaborators []types.Collaborator, threshold float64) []string {
	var matched []string
	for _, c := range collaborators {
		if c.Name == "" {
			continue
		}
		for _, author := range authors {
			if NameSimilarity(c.Name, author) >= threshold {
				matched = append(matched, c.Name)
				break
			}
		}
	}
	return matched
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
