// Package websearch provides the Tavily-backed tavily_search/
// tavily_extract tools plus per-sub-agent Searcher adapters
// (sentiment.Searcher, mediabias.Searcher, livemonitor.Searcher), all
// built on one shared HTTP client. Grounded on the domain-restricted
// fetch pattern in internal/tool/webtool/web_request.go, specialized
// for Tavily's fixed /search and /extract endpoints rather than an
// arbitrary-URL tool.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/polanalyst/workbench/internal/httpclient"
)

const defaultBaseURL = "https://api.tavily.com"

// Result is one search hit, shared across every consumer (tool output,
// sub-agent Searcher adapters).
type Result struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
	ImageURL string  `json:"image_url,omitempty"`
}

// ExtractedPage is one URL's extracted main content.
type ExtractedPage struct {
	URL     string `json:"url"`
	Content string `json:"raw_content"`
}

// Client wraps Tavily's REST API.
type Client struct {
	apiKey  string
	baseURL string
	hc      *httpclient.Client
}

// Config configures a Client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// New builds a Tavily client from Config, defaulting BaseURL and Timeout
// when unset. MaxRetries is passed to the HTTP client as given.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	hc := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
	)
	return &Client{apiKey: cfg.APIKey, baseURL: cfg.BaseURL, hc: hc}
}

type searchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeImages  bool     `json:"include_images,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	SearchDepth    string   `json:"search_depth,omitempty"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
	Images []string `json:"images,omitempty"`
}

// Search issues one Tavily /search call. includeDomains, when non-empty,
// restricts results to those domains (used for named-outlet searches).
func (c *Client) Search(ctx context.Context, query string, maxResults int, includeDomains []string) ([]Result, error) {
	body, err := json.Marshal(searchRequest{
		APIKey: c.apiKey, Query: query, MaxResults: maxResults,
		IncludeImages: true, IncludeDomains: includeDomains, SearchDepth: "basic",
	})
	if err != nil {
		return nil, fmt.Errorf("websearch: encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("websearch: build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: search request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("websearch: read search response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("websearch: search returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("websearch: decode search response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for i, r := range parsed.Results {
		img := ""
		if i < len(parsed.Images) {
			img = parsed.Images[i]
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score, ImageURL: img})
	}
	return results, nil
}

type extractRequest struct {
	APIKey string   `json:"api_key"`
	URLs   []string `json:"urls"`
}

type extractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
	Failed []struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	} `json:"failed_results,omitempty"`
}

// Extract issues one Tavily /extract call for one or more URLs.
func (c *Client) Extract(ctx context.Context, urls []string) ([]ExtractedPage, error) {
	body, err := json.Marshal(extractRequest{APIKey: c.apiKey, URLs: urls})
	if err != nil {
		return nil, fmt.Errorf("websearch: encode extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("websearch: build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: extract request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("websearch: read extract response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("websearch: extract returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed extractResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("websearch: decode extract response: %w", err)
	}

	pages := make([]ExtractedPage, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		pages = append(pages, ExtractedPage{URL: r.URL, Content: r.RawContent})
	}
	return pages, nil
}
