// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// Atom feed XML structures for the arXiv query API.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// parseAtom decodes one feed page into Items. Entries without a usable
// identifier are skipped; the feed category is always included in the
// item's category set.
func parseAtom(r io.Reader, category string) ([]types.Item, error) {
	var f atomFeed
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing feed response: %w", err)
	}

	var items []types.Item
	for _, entry := range f.Entries {
		id := extractID(entry.ID)
		if id == "" {
			continue
		}

		it := types.Item{
			ID:         id,
			Title:      collapse(entry.Title),
			Abstract:   collapse(entry.Summary),
			ContentURL: fmt.Sprintf("https://arxiv.org/pdf/%s.pdf", id),
		}

		for _, a := range entry.Authors {
			it.Authors = append(it.Authors, strings.TrimSpace(a.Name))
		}

		cats := map[string]bool{category: true}
		it.Categories = append(it.Categories, category)
		for _, c := range entry.Categories {
			if c.Term != "" && !cats[c.Term] {
				cats[c.Term] = true
				it.Categories = append(it.Categories, c.Term)
			}
		}

		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			it.Published = t
		}
		if t, err := time.Parse(time.RFC3339, entry.Updated); err == nil {
			it.Updated = t
		} else {
			it.Updated = it.Published
		}

		items = append(items, it)
	}
	return items, nil
}

// collapse trims an Atom text field and folds internal newlines to spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// extractID pulls the identifier from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v2" -> "2301.07041").
func extractID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
