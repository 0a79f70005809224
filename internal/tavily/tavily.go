// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tavily queries the Tavily search API and returns scored sources.
// Implements: prd006-search-backend (R1-R5);
//
//	docs/ARCHITECTURE § Retrieval Backend.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/cache"
	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// defaultAPIBase is the Tavily endpoint. Overridable through
// SearchBackendConfig.BaseURL so tests can substitute an httptest server.
const defaultAPIBase = "https://api.tavily.com"

// maxSnippetLen bounds the content excerpt carried per source.
const maxSnippetLen = 400

// defaultScore is assigned when the API omits a relevance score.
const defaultScore = 0.5

// numericLookupTerms triggers the shallow auto-tune: odds, prices, and rates
// are answered by the first few hits, so a deep crawl is wasted effort.
var numericLookupTerms = []string{"odds", "price", "rate", "オッズ", "価格", "倍率"}

// Client calls the Tavily search API, optionally reading through a SQLite
// response cache.
type Client struct {
	cfg    types.SearchBackendConfig
	client *http.Client
	store  *cache.Store
	log    *zap.Logger
}

// NewClient constructs a Tavily client. A missing API key is a setup error.
// The cache store may be nil, in which case every call goes to the network.
func NewClient(cfg types.SearchBackendConfig, store *cache.Store, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("search API key is not configured")
	}
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		store:  store,
		log:    log,
	}, nil
}

// searchRequest is the Tavily wire request.
type searchRequest struct {
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	MaxResults    int    `json:"max_results"`
	Topic         string `json:"topic,omitempty"`
	Days          int    `json:"days,omitempty"`
	IncludeAnswer bool   `json:"include_answer"`
}

// searchResponse is the Tavily wire response.
type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search issues one query and returns the scored sources plus the backend's
// narrative summary (empty when none was produced). Results come back
// untagged; the stage executor attaches topic and query text.
func (c *Client) Search(ctx context.Context, q types.SearchQuery) ([]types.Source, string, error) {
	wire := buildRequest(q, c.cfg)

	// The cache key excludes the API key so rotating credentials keeps
	// the cache warm.
	keyBytes, err := json.Marshal(wire)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling search request: %w", err)
	}
	cacheKey := cache.Key(keyBytes)

	if c.store != nil {
		if payload, ok, err := c.store.Get(cacheKey); err != nil {
			c.log.Warn("cache read failed", zap.Error(err))
		} else if ok {
			var resp searchResponse
			if err := json.Unmarshal(payload, &resp); err == nil {
				c.log.Debug("cache hit", zap.String("query", q.Text))
				sources, summary := convertResponse(resp)
				return sources, summary, nil
			}
		}
	}

	body, err := c.post(ctx, wire)
	if err != nil {
		return nil, "", err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("parsing search response: %w", err)
	}

	if c.store != nil {
		if err := c.store.Put(cacheKey, q.Text, body); err != nil {
			c.log.Warn("cache write failed", zap.Error(err))
		}
	}

	sources, summary := convertResponse(resp)
	return sources, summary, nil
}

// post sends the request with 429 retry and returns the raw response body.
func (c *Client) post(ctx context.Context, wire searchRequest) ([]byte, error) {
	type authedRequest struct {
		searchRequest
		APIKey string `json:"api_key"`
	}
	payload, err := json.Marshal(authedRequest{searchRequest: wire, APIKey: c.cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	base := c.cfg.BaseURL
	if base == "" {
		base = defaultAPIBase
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("search API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}
	return body, nil
}

// buildRequest maps a SearchQuery onto the Tavily wire parameters, applying
// the numeric-lookup auto-tune.
func buildRequest(q types.SearchQuery, cfg types.SearchBackendConfig) searchRequest {
	depth := "basic"
	if q.Depth == types.DepthDeep {
		depth = "advanced"
	}
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	if isNumericLookup(q.Text) {
		depth = "basic"
		if maxResults > 3 {
			maxResults = 3
		}
	}

	includeAnswer := true
	if cfg.IncludeAnswer != nil {
		includeAnswer = *cfg.IncludeAnswer
	}

	wire := searchRequest{
		Query:         q.Text,
		SearchDepth:   depth,
		MaxResults:    maxResults,
		IncludeAnswer: includeAnswer,
	}
	if q.Category != "" {
		wire.Topic = string(q.Category)
	}
	if q.FreshnessDays > 0 {
		wire.Days = q.FreshnessDays
	}
	return wire
}

// isNumericLookup reports whether the query asks for a simple numeric fact.
func isNumericLookup(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range numericLookupTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// convertResponse maps the wire response onto Source values.
func convertResponse(resp searchResponse) ([]types.Source, string) {
	var sources []types.Source
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		score := r.Score
		if score == 0 {
			score = defaultScore
		}
		sources = append(sources, types.Source{
			URL:            r.URL,
			Title:          r.Title,
			Snippet:        truncateSnippet(r.Content),
			RelevanceScore: score,
		})
	}
	return sources, resp.Answer
}

// truncateSnippet bounds the excerpt to maxSnippetLen characters with an
// ellipsis. The cut counts runes, not bytes, so CJK content never ends up
// split mid-character.
func truncateSnippet(s string) string {
	runes := []rune(s)
	if len(runes) <= maxSnippetLen {
		return s
	}
	return string(runes[:maxSnippetLen-3]) + "..."
}
