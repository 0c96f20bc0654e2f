// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// analysisPromptTmpl instructs the model to assess a batch of papers
// against the researcher's profile and answer with strict JSON.
var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`You are a research assistant screening newly announced papers for a specific researcher.

RESEARCHER PROFILE:
Keywords: {{.Keywords}}
Own work (titles): {{.Corpus}}

For each paper below, assess how relevant it is to the researcher's work. Provide:
- confidence: a float between 0.0 and 1.0, your relevance estimate
- key_concepts: lowercase topic labels drawn from the paper's vocabulary
- summary: a brief technical summary of the main contribution (2-3 sentences)

Respond with a JSON object containing a "papers" array. Each element must carry the paper's "id" unchanged plus the fields above. Do not include any text outside the JSON object.

Example response:
{"papers": [{"id": "2301.07041", "confidence": 0.82, "key_concepts": ["holography", "entanglement-entropy"], "summary": "Derives a bound on ..."}]}

PAPERS:
{{range .Papers}}---
id: {{.ItemID}}
title: {{.Title}}
authors: {{.AuthorList}}
text: {{.Text}}
{{end}}`))

// claudeAPIURL is the Claude API endpoint. Package-level var for test
// substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Claude Messages API for one batch of papers.
type ClaudeBackend struct {
	APIKey string
	Model  string
	Client *http.Client

	// MaxTextRunes truncates each paper's text in the prompt (default 6000).
	MaxTextRunes int
}

// NewClaudeBackend builds a backend from the shared AI configuration.
func NewClaudeBackend(cfg types.AIConfig) *ClaudeBackend {
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &ClaudeBackend{
		APIKey: cfg.APIKey,
		Model:  model,
		Client: &http.Client{},
	}
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// findingsResponse is the JSON document the prompt asks for.
type findingsResponse struct {
	Papers []findingsPaper `json:"papers"`
}

type findingsPaper struct {
	ID          string   `json:"id"`
	Confidence  float64  `json:"confidence"`
	KeyConcepts []string `json:"key_concepts"`
	Summary     string   `json:"summary"`
}

// Analyze sends one batch to the Claude API and maps the reported papers
// back to their items. Papers the model omits are absent from the map.
func (b *ClaudeBackend) Analyze(ctx context.Context, profile types.UserProfile, batch []Request) (map[string]types.AnalysisResult, error) {
	prompt, err := b.renderPrompt(profile, batch)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := claudeRequest{
		Model:     b.Model,
		MaxTokens: 4096,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", b.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling analysis API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("analysis API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return nil, fmt.Errorf("decoding API response: %w", err)
	}

	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		return parseFindings(block.Text, batch)
	}
	return nil, fmt.Errorf("no text content in API response")
}

// parseFindings decodes the model's JSON and keeps only papers that belong
// to the request batch, clamping confidence into [0,1].
func parseFindings(text string, batch []Request) (map[string]types.AnalysisResult, error) {
	var fr findingsResponse
	if err := json.Unmarshal([]byte(text), &fr); err != nil {
		return nil, fmt.Errorf("parsing findings JSON: %w", err)
	}

	requested := make(map[string]bool, len(batch))
	for _, r := range batch {
		requested[r.ItemID] = true
	}

	results := make(map[string]types.AnalysisResult, len(fr.Papers))
	for _, p := range fr.Papers {
		if !requested[p.ID] {
			continue
		}
		conf := p.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		results[p.ID] = types.AnalysisResult{
			ItemID:      p.ID,
			KeyConcepts: p.KeyConcepts,
			Summary:     p.Summary,
			Confidence:  conf,
		}
	}
	return results, nil
}

// promptPaper is the per-paper view the template renders.
type promptPaper struct {
	ItemID     string
	Title      string
	AuthorList string
	Text       string
}

func (b *ClaudeBackend) renderPrompt(profile types.UserProfile, batch []Request) (string, error) {
	maxRunes := b.MaxTextRunes
	if maxRunes <= 0 {
		maxRunes = 6000
	}

	papers := make([]promptPaper, 0, len(batch))
	for _, r := range batch {
		text := r.Text
		if runes := []rune(text); len(runes) > maxRunes {
			text = string(runes[:maxRunes])
		}
		papers = append(papers, promptPaper{
			ItemID:     r.ItemID,
			Title:      r.Title,
			AuthorList: strings.Join(r.Authors, ", "),
			Text:       text,
		})
	}

	titles := make([]string, 0, len(profile.Corpus))
	for _, c := range profile.Corpus {
		titles = append(titles, c.Title)
	}

	var buf bytes.Buffer
	err := analysisPromptTmpl.Execute(&buf, struct {
		Keywords string
		Corpus   string
		Papers   []promptPaper
	}{
		Keywords: strings.Join(profile.Keywords, ", "),
		Corpus:   strings.Join(titles, "; "),
		Papers:   papers,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
