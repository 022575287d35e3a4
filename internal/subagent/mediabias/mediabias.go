// Package mediabias implements the media_bias_detector_agent sub-agent:
// it reuses the sentiment sub-agent's fixed bias taxonomy and per-item
// LLM scoring shape, applied across named outlets instead of countries,
// to compare how different publishers frame the same subject.
package mediabias

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/llm"
	"github.com/polanalyst/workbench/internal/subagent"
	"github.com/polanalyst/workbench/internal/subagent/sentiment"
)

// AgentName is the registry key this sub-agent is installed under.
const AgentName = "media_bias_detector_agent"

const defaultMaxResultsPerOutlet = 10

// Article is one outlet's piece of coverage.
type Article struct {
	Title   string
	URL     string
	Content string
}

// Searcher issues one outlet-scoped search for coverage of a subject.
type Searcher interface {
	Search(ctx context.Context, query, outlet string, maxResults int) ([]Article, error)
}

// OutletBias is one outlet's bias analysis.
type OutletBias struct {
	Outlet       string   `json:"outlet"`
	BiasTypes    []string `json:"bias_types"`
	BiasSeverity float64  `json:"bias_severity"`
	OverallBias  string   `json:"overall_bias"`
	BiasNotes    string   `json:"bias_notes"`
	Examples     []string `json:"examples"`
}

// Config tunes per-outlet search fan-out.
type Config struct {
	MaxResultsPerOutlet int
}

func (c Config) withDefaults() Config {
	if c.MaxResultsPerOutlet <= 0 {
		c.MaxResultsPerOutlet = defaultMaxResultsPerOutlet
	}
	return c
}

// Agent is the media_bias_detector_agent sub-agent.
type Agent struct {
	provider llm.Provider
	searcher Searcher
	cfg      Config
}

// New returns a Factory producing media_bias_detector_agent instances.
func New(provider llm.Provider, searcher Searcher, cfg Config) subagent.Factory {
	cfg = cfg.withDefaults()
	return func() subagent.Agent {
		return &Agent{provider: provider, searcher: searcher, cfg: cfg}
	}
}

// Name identifies this sub-agent in the registry.
func (a *Agent) Name() string { return AgentName }

// Run expects extras["outlets"] to name the publishers to compare; falls
// back to failing cleanly when none are supplied, since bias comparison
// is meaningless without a named set of outlets.
func (a *Agent) Run(ctx context.Context, in subagent.Input) (result domain.SubAgentResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.SubAgentResult{Success: false, Error: fmt.Sprintf("media bias agent panic: %v", r)}
		}
	}()

	outlets, ok := toStringSlice(in.Extras["outlets"])
	if !ok || len(outlets) == 0 {
		return domain.SubAgentResult{Success: false, Error: "media_bias_detector_agent requires a named outlet list"}
	}

	var log []domain.TraceRecord
	trace := func(step, status string) {
		log = append(log, domain.TraceRecord{Step: step, Status: status})
	}

	trace("outlet_search", "start")
	results, err := a.searchOutlets(ctx, in.Query, outlets)
	trace("outlet_search", "end")
	if err != nil {
		return domain.SubAgentResult{Success: false, Error: err.Error(), ExecutionLog: log}
	}

	trace("bias_comparator", "start")
	biases, err := a.compareBias(ctx, in.Query, results)
	trace("bias_comparator", "end")
	if err != nil {
		return domain.SubAgentResult{Success: false, Error: err.Error(), ExecutionLog: log}
	}

	return domain.SubAgentResult{
		Success: true,
		Data: map[string]any{
			"subject": in.Query,
			"outlets": outlets,
			"biases":  biases,
		},
		Confidence:   meanSeverityConfidence(biases),
		ExecutionLog: log,
	}
}

func (a *Agent) searchOutlets(ctx context.Context, subject string, outlets []string) (map[string][]Article, error) {
	results := make(map[string][]Article, len(outlets))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, outlet := range outlets {
		outlet := outlet
		g.Go(func() error {
			found, err := a.searcher.Search(gctx, subject, outlet, a.cfg.MaxResultsPerOutlet)
			if err != nil {
				return fmt.Errorf("outlet_search(%s): %w", outlet, err)
			}
			mu.Lock()
			results[outlet] = found
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Agent) compareBias(ctx context.Context, subject string, results map[string][]Article) ([]OutletBias, error) {
	outlets := sortedKeys(results)
	biases := make([]OutletBias, len(outlets))

	g, gctx := errgroup.WithContext(ctx)
	for i, outlet := range outlets {
		i, outlet := i, outlet
		g.Go(func() error {
			b, err := a.scoreOutlet(gctx, subject, outlet, results[outlet])
			if err != nil {
				return fmt.Errorf("bias_comparator(%s): %w", outlet, err)
			}
			biases[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return biases, nil
}

type outletBiasResponse struct {
	BiasTypes    []string `json:"bias_types"`
	BiasSeverity float64  `json:"bias_severity"`
	OverallBias  string   `json:"overall_bias"`
	BiasNotes    string   `json:"bias_notes"`
	Examples     []string `json:"examples"`
}

func (a *Agent) scoreOutlet(ctx context.Context, subject, outlet string, articles []Article) (OutletBias, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"bias_types":    map[string]any{"type": "array", "items": map[string]any{"type": "string", "enum": sentiment.BiasTaxonomy}},
			"bias_severity": map[string]any{"type": "number"},
			"overall_bias":  map[string]any{"type": "string"},
			"bias_notes":    map[string]any{"type": "string"},
			"examples":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"bias_types", "bias_severity", "overall_bias"},
	}
	resp, err := a.provider.GenerateStructured(ctx, []llm.Message{
		{Role: "system", Content: "Identify framing/selection bias in this outlet's coverage of the subject. bias_types must come only from: selection, framing, source, temporal, geographic, confirmation, language."},
		{Role: "user", Content: fmt.Sprintf("Subject: %s\nOutlet: %s\nArticles:\n%s", subject, outlet, formatArticles(articles))},
	}, 0, llm.StructuredOutputConfig{Name: "outlet_bias", Schema: schema})
	if err != nil {
		return OutletBias{}, err
	}

	var parsed outletBiasResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return OutletBias{}, fmt.Errorf("parsing model output: %w", err)
	}
	return OutletBias{
		Outlet:       outlet,
		BiasTypes:    parsed.BiasTypes,
		BiasSeverity: parsed.BiasSeverity,
		OverallBias:  parsed.OverallBias,
		BiasNotes:    parsed.BiasNotes,
		Examples:     parsed.Examples,
	}, nil
}

func meanSeverityConfidence(biases []OutletBias) float64 {
	if len(biases) == 0 {
		return 0
	}
	var sum float64
	for _, b := range biases {
		sum += 1 - b.BiasSeverity
	}
	return sum / float64(len(biases))
}

func formatArticles(articles []Article) string {
	out := ""
	for i, a := range articles {
		out += fmt.Sprintf("[%d] %s (%s)\n%s\n\n", i+1, a.Title, a.URL, a.Content)
	}
	return out
}

func sortedKeys(m map[string][]Article) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
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
