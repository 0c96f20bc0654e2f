// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feed harvests newly announced papers from the arXiv API.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/paperwatch/internal/httputil"
	"github.com/pdiddy/paperwatch/pkg/types"
)

// apiBase is the arXiv query endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://export.arxiv.org/api/query"

// UnavailableError reports that one category's feed could not be fetched.
// Other categories continue harvesting.
type UnavailableError struct {
	Category string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("feed unavailable for category %s: %v", e.Category, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Client fetches candidate items per category, resumable from a watermark.
// It performs no writes beyond network I/O.
type Client struct {
	HTTP *http.Client
	Cfg  types.FeedConfig
}

// NewClient builds a feed client with the configured HTTP timeout.
func NewClient(cfg types.FeedConfig) *Client {
	return &Client{
		HTTP: &http.Client{Timeout: cfg.Timeout},
		Cfg:  cfg,
	}
}

// FetchSince returns all items in category announced or revised after the
// watermark, deduplicated by identifier (the upstream feed repeats items
// across adjacent pages), together with the advanced watermark. The result
// is finite per call and restartable from any watermark.
func (c *Client) FetchSince(ctx context.Context, category string, since time.Time) ([]types.Item, time.Time, error) {
	pageSize := c.Cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	seen := make(map[string]int)
	var items []types.Item
	next := since

	for start := 0; ; start += pageSize {
		if start > 0 && c.Cfg.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, since, ctx.Err()
			case <-time.After(c.Cfg.RequestDelay):
			}
		}

		page, err := c.fetchPage(ctx, category, start, pageSize)
		if err != nil {
			return nil, since, &UnavailableError{Category: category, Err: err}
		}

		exhausted := len(page) < pageSize
		added := 0
		for _, it := range page {
			if !it.Updated.After(since) {
				// Sorted newest-first: everything past here predates the
				// watermark.
				exhausted = true
				break
			}
			if idx, ok := seen[it.ID]; ok {
				// Pagination overlap; keep the newer revision.
				if it.Updated.After(items[idx].Updated) {
					items[idx] = it
				}
				continue
			}
			seen[it.ID] = len(items)
			items = append(items, it)
			added++
			if it.Updated.After(next) {
				next = it.Updated
			}
		}

		// An upstream that ignores start= would serve the same page forever;
		// a page contributing nothing unseen ends the walk.
		if exhausted || added == 0 {
			break
		}
	}

	return items, next, nil
}

// fetchPage requests one page of the category feed sorted newest-first.
func (c *Client) fetchPage(ctx context.Context, category string, start, pageSize int) ([]types.Item, error) {
	url := fmt.Sprintf("%s?search_query=cat:%s&start=%d&max_results=%d&sortBy=lastUpdatedDate&sortOrder=descending",
		apiBase, category, start, pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.Cfg.UserAgent)
	if c.Cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.Cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.Cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned HTTP %d", resp.StatusCode)
	}

	return parseAtom(resp.Body, category)
}
