package websearch

import (
	"context"
	"fmt"
)

const (
	defaultMaxResults = 10
	// ToolSearchName and ToolExtractName are the planner-facing tool
	// names the Strategic Planner selects by (§4.3/§6.2).
	ToolSearchName  = "tavily_search"
	ToolExtractName = "tavily_extract"
)

// SearchTool adapts Client.Search to master.Tool for the Tool Executor.
type SearchTool struct {
	client *Client
}

// NewSearchTool builds the tavily_search tool.
func NewSearchTool(client *Client) *SearchTool { return &SearchTool{client: client} }

func (t *SearchTool) Name() string { return ToolSearchName }

// Call searches for query, reading an optional positive int
// "max_results" from extras (default 10), and returns Tavily's results as
// a generic map, per master.Tool's contract.
func (t *SearchTool) Call(ctx context.Context, query string, extras map[string]any) (map[string]any, error) {
	maxResults := defaultMaxResults
	if v, ok := extras["max_results"].(int); ok && v > 0 {
		maxResults = v
	}

	results, err := t.client.Search(ctx, query, maxResults, nil)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]any{
			"title": r.Title, "url": r.URL, "content": r.Content, "score": r.Score, "image_url": r.ImageURL,
		})
	}
	return map[string]any{"results": out}, nil
}

// ExtractTool adapts Client.Extract to master.Tool.
type ExtractTool struct {
	client *Client
}

// NewExtractTool builds the tavily_extract tool.
func NewExtractTool(client *Client) *ExtractTool { return &ExtractTool{client: client} }

func (t *ExtractTool) Name() string { return ToolExtractName }

// Call expects extras["urls"] ([]string or []any of strings); query is
// ignored since extraction targets specific URLs, not a search term.
func (t *ExtractTool) Call(ctx context.Context, query string, extras map[string]any) (map[string]any, error) {
	urls, ok := toStringSlice(extras["urls"])
	if !ok || len(urls) == 0 {
		return nil, fmt.Errorf("tavily_extract: extras.urls must be a non-empty string list")
	}

	pages, err := t.client.Extract(ctx, urls)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(pages))
	for _, p := range pages {
		out = append(out, map[string]any{"url": p.URL, "content": p.Content})
	}
	return map[string]any{"results": out}, nil
}

func toStringSlice(v any) ([]string, bool) {
	switch vv := v.(type) {
	case []string:
		return vv, true
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
