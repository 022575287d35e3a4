// Package sentiment implements the reference sub-agent named in the
// Sub-Agent Framework (sentiment_analysis_agent): a six-node mini-graph
// (query_analyzer -> search_executor -> sentiment_scorer -> bias_detector
// -> synthesizer -> visualizer) that scores per-country sentiment and
// framing bias for a subject, with per-country search and scoring run in
// parallel.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/polanalyst/workbench/internal/artifact"
	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/llm"
	"github.com/polanalyst/workbench/internal/subagent"
)

// AgentName is the registry key this sub-agent is installed under.
const AgentName = "sentiment_analysis_agent"

// BiasTaxonomy is the fixed bias_types vocabulary the bias_detector node
// is restricted to. Exported so media_bias_detector_agent (internal/
// subagent/mediabias) can apply the same fixed set to named outlets.
var BiasTaxonomy = []string{"selection", "framing", "source", "temporal", "geographic", "confirmation", "language"}

// defaultMaxResultsPerCountry bounds the search_executor fan-out.
const defaultMaxResultsPerCountry = 10

// trimFraction is the fraction removed from each end of the sorted
// article-score slice before averaging.
const trimFraction = 0.1

// SearchResult is one article returned by a single country-scoped search.
type SearchResult struct {
	Title   string
	URL     string
	Content string
	Score   float64
}

// Searcher issues one country-scoped web search. Implemented by
// internal/websearch's Tavily-backed tool.
type Searcher interface {
	Search(ctx context.Context, query, country string, maxResults int) ([]SearchResult, error)
}

// Visualizer renders a finished artifact from structured data. Implemented
// by internal/artifact's Visualizer.
type Visualizer interface {
	Render(ctx context.Context, kind domain.ArtifactType, title string, data map[string]any) (domain.Artifact, error)
}

// Config tunes the per-country search fan-out.
type Config struct {
	MaxResultsPerCountry int
}

func (c Config) withDefaults() Config {
	if c.MaxResultsPerCountry <= 0 {
		c.MaxResultsPerCountry = defaultMaxResultsPerCountry
	}
	return c
}

// Agent is the sentiment_analysis_agent sub-agent. A fresh Agent is
// constructed per call by its Factory, so the goroutines it starts across
// countries never share state with another concurrent invocation beyond
// the injected collaborators, which are themselves stateless.
type Agent struct {
	provider   llm.Provider
	searcher   Searcher
	visualizer Visualizer
	cfg        Config
}

// New returns a Factory that produces sentiment_analysis_agent instances
// bound to provider, searcher, and visualizer.
func New(provider llm.Provider, searcher Searcher, visualizer Visualizer, cfg Config) subagent.Factory {
	cfg = cfg.withDefaults()
	return func() subagent.Agent {
		return &Agent{provider: provider, searcher: searcher, visualizer: visualizer, cfg: cfg}
	}
}

// Name identifies this sub-agent in the registry.
func (a *Agent) Name() string { return AgentName }

type countryScore struct {
	Country       string   `json:"country"`
	Score         float64  `json:"score"`
	Sentiment     string   `json:"sentiment"`
	Reasoning     string   `json:"reasoning"`
	PositivePct   float64  `json:"positive_pct"`
	NegativePct   float64  `json:"negative_pct"`
	NeutralPct    float64  `json:"neutral_pct"`
	SourceType    string   `json:"source_type"`
	Credibility   float64  `json:"credibility"`
	articleScores []float64
}

type countryBias struct {
	Country      string   `json:"country"`
	BiasTypes    []string `json:"bias_types"`
	BiasSeverity float64  `json:"bias_severity"`
	OverallBias  string   `json:"overall_bias"`
	BiasNotes    string   `json:"bias_notes"`
	Examples     []string `json:"examples"`
}

// Run executes the six-node mini-graph. Any node failure is folded into
// a failed SubAgentResult rather than propagated, per the uniform call
// contract.
func (a *Agent) Run(ctx context.Context, in subagent.Input) (result domain.SubAgentResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.SubAgentResult{Success: false, Error: fmt.Sprintf("sentiment agent panic: %v", r)}
		}
	}()

	var log []domain.TraceRecord
	trace := func(step, status string) {
		log = append(log, domain.TraceRecord{Step: step, Status: status})
	}

	trace("query_analyzer", "start")
	countries, subject, err := a.queryAnalyzer(ctx, in)
	trace("query_analyzer", "end")
	if err != nil {
		return domain.SubAgentResult{Success: false, Error: err.Error(), ExecutionLog: log}
	}
	if len(countries) == 0 {
		return domain.SubAgentResult{Success: false, Error: "no countries identified for sentiment analysis", ExecutionLog: log}
	}

	trace("search_executor", "start")
	results, err := a.searchExecutor(ctx, subject, countries)
	trace("search_executor", "end")
	if err != nil {
		return domain.SubAgentResult{Success: false, Error: err.Error(), ExecutionLog: log}
	}

	trace("sentiment_scorer", "start")
	scores, err := a.sentimentScorer(ctx, subject, results)
	trace("sentiment_scorer", "end")
	if err != nil {
		return domain.SubAgentResult{Success: false, Error: err.Error(), ExecutionLog: log}
	}

	trace("bias_detector", "start")
	biases, err := a.biasDetector(ctx, subject, results)
	trace("bias_detector", "end")
	if err != nil {
		return domain.SubAgentResult{Success: false, Error: err.Error(), ExecutionLog: log}
	}

	trace("synthesizer", "start")
	summary, keyFindings, confidence := synthesize(scores, biases)
	trace("synthesizer", "end")

	trace("visualizer", "start")
	artifacts := a.visualize(ctx, subject, scores, in.Extras)
	trace("visualizer", "end")

	return domain.SubAgentResult{
		Success: true,
		Data: map[string]any{
			"subject":      subject,
			"countries":    countries,
			"scores":       scores,
			"biases":       biases,
			"summary":      summary,
			"key_findings": keyFindings,
		},
		Artifacts:    artifacts,
		Confidence:   confidence,
		ExecutionLog: log,
	}
}

type queryAnalysis struct {
	Countries []string `json:"countries"`
	Subject   string   `json:"subject"`
}

// queryAnalyzer extracts the country list and subject phrase. A
// user-supplied country list (extras["countries"]) is deterministic and
// bypasses the LLM call entirely.
func (a *Agent) queryAnalyzer(ctx context.Context, in subagent.Input) ([]string, string, error) {
	if raw, ok := in.Extras["countries"]; ok {
		if list, ok := toStringSlice(raw); ok && len(list) > 0 {
			return list, in.Query, nil
		}
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"countries": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"subject":   map[string]any{"type": "string"},
		},
		"required": []string{"countries", "subject"},
	}
	resp, err := a.provider.GenerateStructured(ctx, []llm.Message{
		{Role: "system", Content: "Extract the list of countries and the subject phrase from a political sentiment analysis request. Use ISO country names."},
		{Role: "user", Content: in.Query},
	}, 0, llm.StructuredOutputConfig{Name: "query_analysis", Schema: schema})
	if err != nil {
		return nil, "", fmt.Errorf("query_analyzer: %w", err)
	}

	var parsed queryAnalysis
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return nil, "", fmt.Errorf("query_analyzer: parsing model output: %w", err)
	}
	return parsed.Countries, parsed.Subject, nil
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

// searchExecutor issues one country-scoped search per country, in
// parallel (§5 parallelism point #2).
func (a *Agent) searchExecutor(ctx context.Context, subject string, countries []string) (map[string][]SearchResult, error) {
	results := make(map[string][]SearchResult, len(countries))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, country := range countries {
		country := country
		g.Go(func() error {
			res, err := a.searcher.Search(gctx, subject, country, a.cfg.MaxResultsPerCountry)
			if err != nil {
				return fmt.Errorf("search_executor(%s): %w", country, err)
			}
			mu.Lock()
			results[country] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type articleScoreResponse struct {
	ArticleScores []float64 `json:"article_scores"`
	Sentiment     string    `json:"sentiment"`
	Reasoning     string    `json:"reasoning"`
	PositivePct   float64   `json:"positive_pct"`
	NegativePct   float64   `json:"negative_pct"`
	NeutralPct    float64   `json:"neutral_pct"`
	SourceType    string    `json:"source_type"`
	Credibility   float64   `json:"credibility"`
}

// sentimentScorer runs one structured LLM call per country, in parallel
// (§5 parallelism point #3), at temperature 0. The model scores each
// article individually; the final per-country score is a trimmed mean
// over those article-level scores to suppress outliers.
func (a *Agent) sentimentScorer(ctx context.Context, subject string, results map[string][]SearchResult) ([]countryScore, error) {
	countries := sortedKeys(results)
	scores := make([]countryScore, len(countries))

	g, gctx := errgroup.WithContext(ctx)
	for i, country := range countries {
		i, country := i, country
		g.Go(func() error {
			resp, err := a.scoreCountry(gctx, subject, country, results[country])
			if err != nil {
				return fmt.Errorf("sentiment_scorer(%s): %w", country, err)
			}
			scores[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func (a *Agent) scoreCountry(ctx context.Context, subject, country string, articles []SearchResult) (countryScore, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"article_scores": map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
			"sentiment":       map[string]any{"type": "string", "enum": []string{"negative", "neutral", "positive"}},
			"reasoning":       map[string]any{"type": "string"},
			"positive_pct":    map[string]any{"type": "number"},
			"negative_pct":    map[string]any{"type": "number"},
			"neutral_pct":     map[string]any{"type": "number"},
			"source_type":     map[string]any{"type": "string"},
			"credibility":     map[string]any{"type": "number"},
		},
		"required": []string{"article_scores", "sentiment", "reasoning", "credibility"},
	}
	resp, err := a.provider.GenerateStructured(ctx, []llm.Message{
		{Role: "system", Content: "Score each article's sentiment toward the subject on a -1..1 scale (article_scores), then summarize the country's overall sentiment."},
		{Role: "user", Content: fmt.Sprintf("Subject: %s\nCountry: %s\nArticles:\n%s", subject, country, formatArticles(articles))},
	}, 0, llm.StructuredOutputConfig{Name: "sentiment_score", Schema: schema})
	if err != nil {
		return countryScore{}, err
	}

	var parsed articleScoreResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return countryScore{}, fmt.Errorf("parsing model output: %w", err)
	}

	return countryScore{
		Country:       country,
		Score:         trimmedMean(parsed.ArticleScores, trimFraction),
		Sentiment:     parsed.Sentiment,
		Reasoning:     parsed.Reasoning,
		PositivePct:   parsed.PositivePct,
		NegativePct:   parsed.NegativePct,
		NeutralPct:    parsed.NeutralPct,
		SourceType:    parsed.SourceType,
		Credibility:   parsed.Credibility,
		articleScores: parsed.ArticleScores,
	}, nil
}

type biasResponse struct {
	BiasTypes    []string `json:"bias_types"`
	BiasSeverity float64  `json:"bias_severity"`
	OverallBias  string   `json:"overall_bias"`
	BiasNotes    string   `json:"bias_notes"`
	Examples     []string `json:"examples"`
}

// biasDetector runs one structured LLM call per country, in parallel,
// restricted to the fixed bias taxonomy.
func (a *Agent) biasDetector(ctx context.Context, subject string, results map[string][]SearchResult) ([]countryBias, error) {
	countries := sortedKeys(results)
	biases := make([]countryBias, len(countries))

	g, gctx := errgroup.WithContext(ctx)
	for i, country := range countries {
		i, country := i, country
		g.Go(func() error {
			resp, err := a.detectBias(gctx, subject, country, results[country])
			if err != nil {
				return fmt.Errorf("bias_detector(%s): %w", country, err)
			}
			biases[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return biases, nil
}

func (a *Agent) detectBias(ctx context.Context, subject, country string, articles []SearchResult) (countryBias, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"bias_types":    map[string]any{"type": "array", "items": map[string]any{"type": "string", "enum": BiasTaxonomy}},
			"bias_severity": map[string]any{"type": "number"},
			"overall_bias":  map[string]any{"type": "string"},
			"bias_notes":    map[string]any{"type": "string"},
			"examples":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"bias_types", "bias_severity", "overall_bias"},
	}
	resp, err := a.provider.GenerateStructured(ctx, []llm.Message{
		{Role: "system", Content: "Identify framing/selection bias in this country's coverage of the subject. bias_types must come only from: selection, framing, source, temporal, geographic, confirmation, language."},
		{Role: "user", Content: fmt.Sprintf("Subject: %s\nCountry: %s\nArticles:\n%s", subject, country, formatArticles(articles))},
	}, 0, llm.StructuredOutputConfig{Name: "bias_detection", Schema: schema})
	if err != nil {
		return countryBias{}, err
	}

	var parsed biasResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return countryBias{}, fmt.Errorf("parsing model output: %w", err)
	}
	return countryBias{
		Country:      country,
		BiasTypes:    parsed.BiasTypes,
		BiasSeverity: parsed.BiasSeverity,
		OverallBias:  parsed.OverallBias,
		BiasNotes:    parsed.BiasNotes,
		Examples:     parsed.Examples,
	}, nil
}

// synthesize produces the summary, key findings, and overall confidence.
// Confidence is the mean, across countries, of credibility times an
// agreement measure derived from the spread of that country's
// article-level scores: low spread (reviewers agree) raises confidence.
func synthesize(scores []countryScore, biases []countryBias) (summary string, keyFindings []string, confidence float64) {
	if len(scores) == 0 {
		return "", nil, 0
	}

	biasByCountry := make(map[string]countryBias, len(biases))
	for _, b := range biases {
		biasByCountry[b.Country] = b
	}

	var confidenceSum float64
	for _, s := range scores {
		agreement := 1 - math.Min(1, stddev(s.articleScores))
		confidenceSum += s.Credibility * agreement
		keyFindings = append(keyFindings, fmt.Sprintf("%s: %s sentiment (score %.2f, credibility %.2f)", s.Country, s.Sentiment, s.Score, s.Credibility))
		if b, ok := biasByCountry[s.Country]; ok && b.BiasSeverity > 0.5 {
			keyFindings = append(keyFindings, fmt.Sprintf("%s: elevated %s bias (%.2f)", s.Country, b.OverallBias, b.BiasSeverity))
		}
	}
	confidence = confidenceSum / float64(len(scores))
	summary = fmt.Sprintf("Sentiment analyzed across %d countries.", len(scores))
	return summary, keyFindings, confidence
}

// visualize always emits the table and bar chart defaults (§4.10.1); any
// additional kind named in extras["requested_visualizations"] is produced
// on top of those. Render failures are dropped rather than fatal: a
// missing chart never invalidates the sub-agent's analytical result.
func (a *Agent) visualize(ctx context.Context, subject string, scores []countryScore, extras map[string]any) []domain.Artifact {
	if a.visualizer == nil {
		return nil
	}

	scoreMaps, err := artifact.ToScoreMaps(scores)
	if err != nil {
		return nil
	}

	kinds := []domain.ArtifactType{domain.ArtifactTable, domain.ArtifactBarChart}
	if requested, ok := toStringSlice(extras["requested_visualizations"]); ok {
		for _, kind := range requested {
			kinds = append(kinds, domain.ArtifactType(kind))
		}
	}

	artifacts := make([]domain.Artifact, 0, len(kinds))
	for _, kind := range kinds {
		data := artifact.BuildChartData(kind, scoreMaps)
		rendered, err := a.visualizer.Render(ctx, kind, fmt.Sprintf("Sentiment toward %s", subject), data)
		if err != nil {
			continue
		}
		artifacts = append(artifacts, rendered)
	}
	return artifacts
}

func formatArticles(articles []SearchResult) string {
	out := ""
	for i, a := range articles {
		out += fmt.Sprintf("[%d] %s (%s)\n%s\n\n", i+1, a.Title, a.URL, a.Content)
	}
	return out
}

func sortedKeys(m map[string][]SearchResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// trimmedMean drops frac of the values from each end of the sorted slice
// before averaging. Falls back to a plain mean when too few values
// remain for trimming to make sense.
func trimmedMean(values []float64, frac float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	trim := int(float64(len(sorted)) * frac)
	if trim*2 >= len(sorted) {
		trim = 0
	}
	kept := sorted[trim : len(sorted)-trim]

	var sum float64
	for _, v := range kept {
		sum += v
	}
	return sum / float64(len(kept))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
