// Package livemonitor implements the live_political_monitor_agent
// sub-agent: it surfaces the most "explosive" current topics for a set
// of keywords, scored 0-100 and banded into a classification. It is
// reachable both as a planner-selected sub-agent and directly via
// POST /api/live-monitor/explosive-topics, each path sharing the same
// scoring logic and a dedicated freshness cache.
package livemonitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/llm"
	"github.com/polanalyst/workbench/internal/subagent"
)

// AgentName is the registry key this sub-agent is installed under.
const AgentName = "live_political_monitor_agent"

const defaultMaxResults = 20

// Topic is one ranked, scored item in an explosive-topics report.
type Topic struct {
	Rank               int      `json:"rank"`
	Topic              string   `json:"topic"`
	ExplosivenessScore float64  `json:"explosiveness_score"`
	Classification     string   `json:"classification"`
	Frequency          int      `json:"frequency"`
	ImageURL           string   `json:"image_url,omitempty"`
	Entities           []string `json:"entities,omitempty"`
	Reasoning          string   `json:"reasoning"`
}

// Classify bands a 0-100 explosiveness score into the fixed
// classification set.
func Classify(score float64) string {
	switch {
	case score >= 75:
		return "critical"
	case score >= 60:
		return "explosive"
	case score >= 45:
		return "trending"
	default:
		return "normal"
	}
}

// Article is one search hit fed to the scoring pass.
type Article struct {
	Title    string
	URL      string
	Content  string
	ImageURL string
}

// Searcher issues one keyword search across current news.
type Searcher interface {
	Search(ctx context.Context, keyword string, maxResults int) ([]Article, error)
}

// CachedReport is one persisted explosive-topics result, keyed by the
// requested keyword set and freshness window.
type CachedReport struct {
	Topics                []Topic
	TotalArticlesAnalyzed int
	CachedAt              time.Time
}

// CacheStore persists explosive-topics reports independently of the
// query-fingerprint cache: its key is the keyword set and TTL window,
// not a whole query's text.
type CacheStore interface {
	Get(ctx context.Context, key string) (*CachedReport, error)
	Put(ctx context.Context, key string, report CachedReport) error
}

// Report is the result of one explosive-topics run, matching the
// POST /api/live-monitor/explosive-topics response shape.
type Report struct {
	Source                  string  `json:"source"` // "fresh" or "cache"
	CachedAt                *time.Time `json:"cached_at,omitempty"`
	CacheExpiresInMinutes   *int    `json:"cache_expires_in_minutes,omitempty"`
	Topics                  []Topic `json:"topics"`
	TotalArticlesAnalyzed   int     `json:"total_articles_analyzed"`
	ProcessingTimeSeconds   float64 `json:"processing_time_seconds"`
}

// Agent is the live_political_monitor_agent sub-agent.
type Agent struct {
	provider llm.Provider
	searcher Searcher
	cache    CacheStore
}

// New returns a Factory producing live_political_monitor_agent
// instances. cache may be nil to disable freshness caching.
func New(provider llm.Provider, searcher Searcher, cache CacheStore) subagent.Factory {
	return func() subagent.Agent {
		return &Agent{provider: provider, searcher: searcher, cache: cache}
	}
}

// Name identifies this sub-agent in the registry.
func (a *Agent) Name() string { return AgentName }

// Run adapts the uniform sub-agent call contract onto Explore, reading
// keywords/cache_hours/max_results from extras.
func (a *Agent) Run(ctx context.Context, in subagent.Input) domain.SubAgentResult {
	keywords, _ := toStringSlice(in.Extras["keywords"])
	if len(keywords) == 0 {
		keywords = []string{in.Query}
	}
	cacheHours := intOr(in.Extras["cache_hours"], 1)
	maxResults := intOr(in.Extras["max_results"], defaultMaxResults)

	report, err := a.Explore(ctx, keywords, cacheHours, maxResults)
	if err != nil {
		return domain.SubAgentResult{Success: false, Error: err.Error()}
	}

	return domain.SubAgentResult{
		Success: true,
		Data: map[string]any{
			"source":                  report.Source,
			"topics":                  report.Topics,
			"total_articles_analyzed": report.TotalArticlesAnalyzed,
		},
		Confidence: topicsConfidence(report.Topics),
	}
}

// Explore runs (or reuses a cached) explosive-topics scan for keywords.
// cacheHours of 0 or less disables the cache for this call.
func (a *Agent) Explore(ctx context.Context, keywords []string, cacheHours, maxResults int) (Report, error) {
	start := time.Now()
	cacheKey := fmt.Sprintf("%v|%dh", keywords, cacheHours)

	if a.cache != nil && cacheHours > 0 {
		if cached, err := a.cache.Get(ctx, cacheKey); err == nil && cached != nil {
			expiresAt := cached.CachedAt.Add(time.Duration(cacheHours) * time.Hour)
			if time.Now().Before(expiresAt) {
				minutesLeft := int(time.Until(expiresAt).Minutes())
				cachedAt := cached.CachedAt
				return Report{
					Source:                "cache",
					CachedAt:              &cachedAt,
					CacheExpiresInMinutes: &minutesLeft,
					Topics:                cached.Topics,
					TotalArticlesAnalyzed: cached.TotalArticlesAnalyzed,
					ProcessingTimeSeconds: time.Since(start).Seconds(),
				}, nil
			}
		}
	}

	var articles []Article
	for _, kw := range keywords {
		found, err := a.searcher.Search(ctx, kw, maxResults)
		if err != nil {
			return Report{}, fmt.Errorf("livemonitor: searching %q: %w", kw, err)
		}
		articles = append(articles, found...)
	}

	topics, err := a.scoreTopics(ctx, keywords, articles)
	if err != nil {
		return Report{}, err
	}

	if a.cache != nil && cacheHours > 0 {
		_ = a.cache.Put(ctx, cacheKey, CachedReport{Topics: topics, TotalArticlesAnalyzed: len(articles), CachedAt: time.Now()})
	}

	return Report{
		Source:                "fresh",
		Topics:                topics,
		TotalArticlesAnalyzed: len(articles),
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}, nil
}

type topicResponse struct {
	Topic              string   `json:"topic"`
	ExplosivenessScore float64  `json:"explosiveness_score"`
	Frequency          int      `json:"frequency"`
	Entities           []string `json:"entities,omitempty"`
	Reasoning          string   `json:"reasoning"`
}

type topicsResponse struct {
	Topics []topicResponse `json:"topics"`
}

func (a *Agent) scoreTopics(ctx context.Context, keywords []string, articles []Article) ([]Topic, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topics": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"topic":               map[string]any{"type": "string"},
						"explosiveness_score": map[string]any{"type": "number"},
						"frequency":           map[string]any{"type": "integer"},
						"entities":            map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"reasoning":           map[string]any{"type": "string"},
					},
					"required": []string{"topic", "explosiveness_score", "frequency", "reasoning"},
				},
			},
		},
		"required": []string{"topics"},
	}

	resp, err := a.provider.GenerateStructured(ctx, []llm.Message{
		{Role: "system", Content: "Identify the distinct news topics across these articles and score how explosive (viral, breaking, escalating) each is from 0 to 100."},
		{Role: "user", Content: fmt.Sprintf("Keywords: %v\nArticles:\n%s", keywords, formatArticles(articles))},
	}, 0.2, llm.StructuredOutputConfig{Name: "explosive_topics", Schema: schema})
	if err != nil {
		return nil, fmt.Errorf("livemonitor: scoring topics: %w", err)
	}

	var parsed topicsResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return nil, fmt.Errorf("livemonitor: parsing model output: %w", err)
	}

	imageByTopic := firstImagePerArticle(articles)
	topics := make([]Topic, len(parsed.Topics))
	for i, t := range parsed.Topics {
		topics[i] = Topic{
			Rank:               i + 1,
			Topic:              t.Topic,
			ExplosivenessScore: t.ExplosivenessScore,
			Classification:     Classify(t.ExplosivenessScore),
			Frequency:          t.Frequency,
			Entities:           t.Entities,
			Reasoning:          t.Reasoning,
			ImageURL:           imageByTopic,
		}
	}
	return topics, nil
}

func firstImagePerArticle(articles []Article) string {
	for _, a := range articles {
		if a.ImageURL != "" {
			return a.ImageURL
		}
	}
	return ""
}

func topicsConfidence(topics []Topic) float64 {
	if len(topics) == 0 {
		return 0
	}
	var sum float64
	for _, t := range topics {
		sum += t.ExplosivenessScore / 100
	}
	return sum / float64(len(topics))
}

func formatArticles(articles []Article) string {
	out := ""
	for i, a := range articles {
		out += fmt.Sprintf("[%d] %s (%s)\n%s\n\n", i+1, a.Title, a.URL, a.Content)
	}
	return out
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

func intOr(v any, fallback int) int {
	switch vv := v.(type) {
	case int:
		return vv
	case float64:
		return int(vv)
	default:
		return fallback
	}
}
