package websearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/polanalyst/workbench/internal/subagent/livemonitor"
	"github.com/polanalyst/workbench/internal/subagent/mediabias"
	"github.com/polanalyst/workbench/internal/subagent/sentiment"
)

// CountrySearcher adapts Client to sentiment.Searcher: one Tavily query
// per country, the country name folded into the query text since
// Tavily has no first-class country filter.
type CountrySearcher struct {
	client *Client
}

// NewCountrySearcher builds the sentiment_analysis_agent's Searcher.
func NewCountrySearcher(client *Client) *CountrySearcher { return &CountrySearcher{client: client} }

func (s *CountrySearcher) Search(ctx context.Context, query, country string, maxResults int) ([]sentiment.SearchResult, error) {
	results, err := s.client.Search(ctx, fmt.Sprintf("%s %s news coverage", country, query), maxResults, nil)
	if err != nil {
		return nil, err
	}
	out := make([]sentiment.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, sentiment.SearchResult{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score})
	}
	return out, nil
}

// OutletSearcher adapts Client to mediabias.Searcher: when outlet looks
// like a domain it restricts via include_domains, otherwise it folds the
// outlet name into the query text.
type OutletSearcher struct {
	client *Client
}

// NewOutletSearcher builds the media_bias_detector_agent's Searcher.
func NewOutletSearcher(client *Client) *OutletSearcher { return &OutletSearcher{client: client} }

func (s *OutletSearcher) Search(ctx context.Context, query, outlet string, maxResults int) ([]mediabias.Article, error) {
	var domains []string
	queryText := fmt.Sprintf("%s %s", outlet, query)
	if looksLikeDomain(outlet) {
		domains = []string{outlet}
		queryText = query
	}

	results, err := s.client.Search(ctx, queryText, maxResults, domains)
	if err != nil {
		return nil, err
	}
	out := make([]mediabias.Article, 0, len(results))
	for _, r := range results {
		out = append(out, mediabias.Article{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	return out, nil
}

// KeywordSearcher adapts Client to livemonitor.Searcher: a direct
// per-keyword Tavily query, image URL carried through for the Live
// Monitor's topic cards.
type KeywordSearcher struct {
	client *Client
}

// NewKeywordSearcher builds the live_political_monitor_agent's Searcher.
func NewKeywordSearcher(client *Client) *KeywordSearcher { return &KeywordSearcher{client: client} }

func (s *KeywordSearcher) Search(ctx context.Context, keyword string, maxResults int) ([]livemonitor.Article, error) {
	results, err := s.client.Search(ctx, keyword, maxResults, nil)
	if err != nil {
		return nil, err
	}
	out := make([]livemonitor.Article, 0, len(results))
	for _, r := range results {
		out = append(out, livemonitor.Article{Title: r.Title, URL: r.URL, Content: r.Content, ImageURL: r.ImageURL})
	}
	return out, nil
}

func looksLikeDomain(s string) bool {
	return !strings.ContainsRune(s, ' ') && strings.ContainsRune(s, '.')
}
