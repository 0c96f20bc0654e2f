// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"fmt"
	"strings"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// highCutoff separates the high-relevance bucket from the rest.
const highCutoff = 0.8

// Render produces the plain-text report body. Entries are grouped into a
// high-relevance bucket (score above highCutoff) and a medium bucket, with
// collaborator papers called out by the matched names.
func Render(r types.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "paperwatch report %s\n", r.Generated.Format("2006-01-02"))
	fmt.Fprintf(&b, "run %s, %d papers flagged\n", r.RunID, len(r.Entries))

	if len(r.Entries) == 0 {
		b.WriteString("\nNo new relevant papers this run.\n")
		return b.String()
	}

	var high, medium []types.ReportEntry
	for _, e := range r.Entries {
		if e.Score.Score > highCutoff {
			high = append(high, e)
		} else {
			medium = append(medium, e)
		}
	}

	if len(high) > 0 {
		b.WriteString("\nHigh relevance\n")
		for _, e := range high {
			renderEntry(&b, e)
		}
	}
	if len(medium) > 0 {
		b.WriteString("\nMedium relevance\n")
		for _, e := range medium {
			renderEntry(&b, e)
		}
	}

	return b.String()
}

func renderEntry(b *strings.Builder, e types.ReportEntry) {
	fmt.Fprintf(b, "\n  [%.2f] %s\n", e.Score.Score, e.Item.Title)
	fmt.Fprintf(b, "    %s\n", strings.Join(e.Item.Authors, ", "))
	if e.Score.CollaboratorMatch {
		fmt.Fprintf(b, "    collaborators: %s\n", strings.Join(e.Score.MatchedCollaborators, ", "))
	}
	if e.Analysis.Summary != "" {
		fmt.Fprintf(b, "    %s\n", e.Analysis.Summary)
	}
	if len(e.Analysis.KeyConcepts) > 0 {
		fmt.Fprintf(b, "    concepts: %s\n", strings.Join(e.Analysis.KeyConcepts, ", "))
	}
	fmt.Fprintf(b, "    https://arxiv.org/abs/%s\n", e.Item.ID)
}
