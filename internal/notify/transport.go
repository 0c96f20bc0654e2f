// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"fmt"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// Transport sends one rendered report to a destination.
type Transport interface {
	Send(ctx context.Context, subject, body string) error
}

// NewTransport selects the delivery transport from configuration. An empty
// transport name selects a no-op sender so a pipeline without delivery
// configured still completes its runs.
func NewTransport(cfg types.NotifyConfig) (Transport, error) {
	switch cfg.Transport {
	case "smtp":
		return newSMTPTransport(cfg)
	case "webhook":
		return newWebhookTransport(cfg)
	case "":
		return noopTransport{}, nil
	default:
		return nil, fmt.Errorf("unknown notification transport %q", cfg.Transport)
	}
}

type noopTransport struct{}

func (noopTransport) Send(ctx context.Context, subject, body string) error { return nil }

// Notifier renders a report and delivers it exactly once. Delivery
// failures surface as an error the run records as a warning; there is no
// internal retry, so a flaky transport can never double-send.
type Notifier struct {
	Transport Transport
}

// Deliver sends the report over the configured transport.
func (n *Notifier) Deliver(ctx context.Context, report types.Report) error {
	subject := fmt.Sprintf("paperwatch: %d papers flagged (%s)",
		len(report.Entries), report.Generated.Format("2006-01-02"))
	return n.Transport.Send(ctx, subject, Render(report))
}
