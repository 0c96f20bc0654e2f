// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package content downloads candidate paper content and extracts plain text.
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/paperwatch/internal/httputil"
	"github.com/pdiddy/paperwatch/pkg/types"
)

const (
	defaultMaxPayload = 20 << 20
	defaultMaxRunes   = 32768
)

// Error is an item-scoped extraction failure. It never aborts a batch; the
// affected item is excluded from scoring instead.
type Error struct {
	ItemID string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extracting content for %s: %v", e.ItemID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Extractor retrieves full content for an item and produces plain text.
type Extractor struct {
	HTTP *http.Client
	Cfg  types.ContentConfig
}

// NewExtractor builds an extractor with the configured HTTP timeout.
func NewExtractor(cfg types.ContentConfig) *Extractor {
	return &Extractor{
		HTTP: &http.Client{Timeout: cfg.Timeout},
		Cfg:  cfg,
	}
}

// Extract downloads the item's content and returns its plain text. The
// content locator must resolve over HTTPS and the payload is size-capped.
// When the payload yields no usable text the abstract stands in, so a
// scanned or malformed PDF degrades the analysis input rather than failing
// the item. All failures come back as *Error.
func (e *Extractor) Extract(ctx context.Context, item types.Item) (string, error) {
	u, err := url.Parse(item.ContentURL)
	if err != nil {
		return "", &Error{ItemID: item.ID, Err: fmt.Errorf("invalid content locator: %w", err)}
	}
	if u.Scheme != "https" {
		return "", &Error{ItemID: item.ID, Err: fmt.Errorf("content locator must be HTTPS, got %q", u.Scheme)}
	}

	maxPayload := e.Cfg.MaxPayloadBytes
	if maxPayload <= 0 {
		maxPayload = defaultMaxPayload
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.ContentURL, nil)
	if err != nil {
		return "", &Error{ItemID: item.ID, Err: err}
	}
	req.Header.Set("User-Agent", e.Cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, e.HTTP, req, 1)
	if err != nil {
		return "", &Error{ItemID: item.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{ItemID: item.ID, Err: fmt.Errorf("content fetch returned HTTP %d", resp.StatusCode)}
	}
	if resp.ContentLength > maxPayload {
		return "", &Error{ItemID: item.ID, Err: fmt.Errorf("payload %d bytes exceeds cap %d", resp.ContentLength, maxPayload)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload+1))
	if err != nil {
		return "", &Error{ItemID: item.ID, Err: fmt.Errorf("reading payload: %w", err)}
	}
	if int64(len(data)) > maxPayload {
		return "", &Error{ItemID: item.ID, Err: fmt.Errorf("payload exceeds cap %d bytes", maxPayload)}
	}

	maxRunes := e.Cfg.MaxTextRunes
	if maxRunes <= 0 {
		maxRunes = defaultMaxRunes
	}

	var text string
	if isPDF(data) {
		text = pdfText(data, maxRunes)
	} else {
		text = truncateRunes(string(data), maxRunes)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = strings.TrimSpace(item.Abstract)
	}
	if text == "" {
		return "", &Error{ItemID: item.ID, Err: fmt.Errorf("no extractable text")}
	}
	return text, nil
}

func isPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
