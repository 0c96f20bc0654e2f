// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify builds the per-run report of flagged papers and delivers
// it over a configured transport.
package notify

import (
	"sort"
	"time"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// Build assembles the report for one run: entries deduplicated by item
// identifier and ordered by score descending, ties broken by published
// timestamp descending then item ID ascending.
func Build(runID string, generated time.Time, entries []types.ReportEntry) types.Report {
	seen := map[string]bool{}
	var kept []types.ReportEntry
	for _, e := range entries {
		if seen[e.Item.ID] {
			continue
		}
		seen[e.Item.ID] = true
		kept = append(kept, e)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Score.Score != b.Score.Score {
			return a.Score.Score > b.Score.Score
		}
		if !a.Item.Published.Equal(b.Item.Published) {
			return a.Item.Published.After(b.Item.Published)
		}
		return a.Item.ID < b.Item.ID
	})

	return types.Report{
		RunID:     runID,
		Generated: generated,
		Entries:   kept,
	}
}
