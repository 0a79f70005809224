// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides the completion client for the Claude Messages API.
// Implements: prd001-planning R5.1, prd005-synthesis R5.1;
//
//	docs/ARCHITECTURE § External Interfaces.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// claudeAPIURL is the Claude Messages endpoint. Declared as a var so tests
// can substitute an httptest server.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// Completer abstracts the completion API so the planner and synthesizer can
// be tested with stubs.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Client calls the Claude Messages API.
type Client struct {
	Model  string
	APIKey string

	// HTTPClient is used for requests; http.DefaultClient when nil.
	HTTPClient *http.Client
}

// New constructs a Client from the AI configuration. A missing API key is a
// setup error: it is the only failure class that aborts the pipeline.
func New(cfg types.AIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI API key is not configured")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	return &Client{
		Model:      model,
		APIKey:     cfg.APIKey,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the request.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends one prompt and returns the concatenated text blocks of the
// response. The caller supplies the token cap and temperature because the
// planner and synthesizer use different settings against the same client.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	reqBody := claudeRequest{
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	var buf bytes.Buffer
	for _, block := range cResp.Content {
		if block.Type == "text" {
			buf.WriteString(block.Text)
		}
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("Claude API returned no text content")
	}
	return buf.String(), nil
}
