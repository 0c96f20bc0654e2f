// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// smtpSend is swappable so tests capture the outbound message instead of
// dialing a mail server.
var smtpSend = smtp.SendMail

type smtpTransport struct {
	addr string
	auth smtp.Auth
	from string
	to   string
}

func newSMTPTransport(cfg types.NotifyConfig) (*smtpTransport, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp transport requires smtp_host")
	}
	if cfg.Destination == "" {
		return nil, fmt.Errorf("smtp transport requires a destination address")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	from := cfg.From
	if from == "" {
		from = cfg.SMTPUser
	}

	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}

	return &smtpTransport{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, port),
		auth: auth,
		from: from,
		to:   cfg.Destination,
	}, nil
}

func (t *smtpTransport) Send(ctx context.Context, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", t.from)
	fmt.Fprintf(&msg, "To: %s\r\n", t.to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	if err := smtpSend(t.addr, t.auth, t.from, []string{t.to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("sending mail via %s: %w", t.addr, err)
	}
	return nil
}
