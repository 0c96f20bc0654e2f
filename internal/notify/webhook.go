// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// webhookTransport posts the report body to an ntfy-compatible endpoint,
// with the subject carried in the Title header.
type webhookTransport struct {
	url    string
	client *http.Client
}

func newWebhookTransport(cfg types.NotifyConfig) (*webhookTransport, error) {
	if cfg.Destination == "" {
		return nil, fmt.Errorf("webhook transport requires a destination URL")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &webhookTransport{
		url:    cfg.Destination,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (t *webhookTransport) Send(ctx context.Context, subject, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Title", subject)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
