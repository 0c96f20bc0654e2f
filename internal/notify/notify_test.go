package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperwatch/pkg/types"
)

func entry(id string, score float64, published time.Time, matched ...string) types.ReportEntry {
	return types.ReportEntry{
		Item: types.Item{
			ID:        id,
			Title:     "Paper " + id,
			Authors:   []string{"Alice Smith"},
			Published: published,
		},
		Score: types.RelevanceScore{
			ItemID:               id,
			Score:                score,
			Flagged:              true,
			CollaboratorMatch:    len(matched) > 0,
			MatchedCollaborators: matched,
		},
		Analysis: types.AnalysisResult{ItemID: id, Summary: "summary " + id},
	}
}

func TestBuildOrdersAndDeduplicates(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	entries := []types.ReportEntry{
		entry("b", 0.8, base.Add(time.Hour)),
		entry("a", 0.8, base.Add(time.Hour)),
		entry("d", 0.95, base),
		entry("c", 0.8, base),
		entry("a", 0.8, base.Add(time.Hour)), // duplicate id
	}

	r := Build("run-1", base, entries)

	var ids []string
	for _, e := range r.Entries {
		ids = append(ids, e.Item.ID)
	}
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids)
	assert.Equal(t, "run-1", r.RunID)
}

func TestBuildEmptyRun(t *testing.T) {
	r := Build("run-1", time.Now(), nil)
	assert.Empty(t, r.Entries)

	body := Render(r)
	assert.Contains(t, body, "No new relevant papers")
}

func TestRenderBuckets(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	r := Build("run-1", base, []types.ReportEntry{
		entry("high1", 0.92, base),
		entry("med1", 0.75, base, "Carol Jones"),
	})

	body := Render(r)
	highIdx := strings.Index(body, "High relevance")
	medIdx := strings.Index(body, "Medium relevance")
	require.True(t, highIdx >= 0 && medIdx >= 0, "both buckets present:\n%s", body)
	assert.Less(t, highIdx, medIdx)
	assert.Contains(t, body, "Paper high1")
	assert.Contains(t, body, "collaborators: Carol Jones")
	assert.Contains(t, body, "https://arxiv.org/abs/med1")
}

func TestWebhookTransportSend(t *testing.T) {
	var gotTitle, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
	}))
	defer srv.Close()

	tr, err := NewTransport(types.NotifyConfig{Transport: "webhook", Destination: srv.URL})
	require.NoError(t, err)

	n := &Notifier{Transport: tr}
	r := Build("run-1", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		[]types.ReportEntry{entry("a", 0.9, time.Now())})
	require.NoError(t, n.Deliver(context.Background(), r))

	assert.Equal(t, "paperwatch: 1 papers flagged (2026-08-01)", gotTitle)
	assert.Contains(t, gotBody, "Paper a")
}

func TestWebhookTransportServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tr, err := NewTransport(types.NotifyConfig{Transport: "webhook", Destination: srv.URL})
	require.NoError(t, err)

	err = tr.Send(context.Background(), "subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSMTPTransportSend(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	orig := smtpSend
	smtpSend = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}
	defer func() { smtpSend = orig }()

	tr, err := NewTransport(types.NotifyConfig{
		Transport:   "smtp",
		Destination: "alice@example.org",
		SMTPHost:    "mail.example.org",
		SMTPUser:    "watcher@example.org",
	})
	require.NoError(t, err)

	require.NoError(t, tr.Send(context.Background(), "test subject", "the body"))
	assert.Equal(t, "mail.example.org:587", gotAddr)
	assert.Equal(t, "watcher@example.org", gotFrom)
	assert.Equal(t, []string{"alice@example.org"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: test subject\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nthe body")
}

func TestNewTransportSelection(t *testing.T) {
	tr, err := NewTransport(types.NotifyConfig{})
	require.NoError(t, err)
	require.NoError(t, tr.Send(context.Background(), "s", "b"))

	_, err = NewTransport(types.NotifyConfig{Transport: "carrier-pigeon"})
	require.Error(t, err)

	_, err = NewTransport(types.NotifyConfig{Transport: "smtp"})
	require.Error(t, err)
}
