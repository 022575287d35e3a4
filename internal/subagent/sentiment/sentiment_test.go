package sentiment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/llm"
	"github.com/polanalyst/workbench/internal/subagent"
)

type fakeProvider struct {
	responses map[string]string // keyed by StructuredOutputConfig.Name
}

func (f *fakeProvider) Generate(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, temperature float64) (llm.Response, error) {
	return llm.Response{}, nil
}

func (f *fakeProvider) GenerateStructured(ctx context.Context, messages []llm.Message, temperature float64, cfg llm.StructuredOutputConfig) (llm.Response, error) {
	return llm.Response{Content: f.responses[cfg.Name]}, nil
}

func (f *fakeProvider) ModelName() string { return "fake" }

type fakeSearcher struct{}

func (f *fakeSearcher) Search(ctx context.Context, query, country string, maxResults int) ([]SearchResult, error) {
	return []SearchResult{
		{Title: "Article 1", URL: "https://example.com/1", Content: "coverage of " + country},
		{Title: "Article 2", URL: "https://example.com/2", Content: "more coverage of " + country},
	}, nil
}

type fakeVisualizer struct{ calls []domain.ArtifactType }

func (f *fakeVisualizer) Render(ctx context.Context, kind domain.ArtifactType, title string, data map[string]any) (domain.Artifact, error) {
	f.calls = append(f.calls, kind)
	return domain.Artifact{ArtifactID: "abc123", Type: kind, Title: title}, nil
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestRunProducesScoresAndDefaultArtifacts(t *testing.T) {
	provider := &fakeProvider{responses: map[string]string{
		"sentiment_score": mustJSON(t, articleScoreResponse{
			ArticleScores: []float64{0.2, 0.4},
			Sentiment:     "positive",
			Reasoning:     "mostly favorable coverage",
			PositivePct:   60, NegativePct: 10, NeutralPct: 30,
			SourceType: "news", Credibility: 0.8,
		}),
		"bias_detection": mustJSON(t, biasResponse{
			BiasTypes: []string{"framing"}, BiasSeverity: 0.3, OverallBias: "mild", BiasNotes: "minor framing differences",
		}),
	}}
	visualizer := &fakeVisualizer{}

	agent := New(provider, &fakeSearcher{}, visualizer, Config{})()

	result := agent.Run(context.Background(), subagent.Input{
		Query:  "sentiment on trade policy",
		Extras: map[string]any{"countries": []string{"France", "Germany"}},
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, []string{"France", "Germany"}, result.Data["countries"])
	assert.Len(t, result.Artifacts, 2)
	assert.ElementsMatch(t, []domain.ArtifactType{domain.ArtifactTable, domain.ArtifactBarChart}, visualizer.calls)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestRunFailsWithoutCountries(t *testing.T) {
	provider := &fakeProvider{responses: map[string]string{
		"query_analysis": mustJSON(t, queryAnalysis{Countries: nil, Subject: "trade policy"}),
	}}
	agent := New(provider, &fakeSearcher{}, nil, Config{})()

	result := agent.Run(context.Background(), subagent.Input{Query: "sentiment on trade policy"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no countries")
}

func TestTrimmedMeanSuppressesOutliers(t *testing.T) {
	values := []float64{-1, 0.1, 0.2, 0.3, 1}
	mean := trimmedMean(values, 0.2)
	assert.InDelta(t, 0.2, mean, 0.15)
}

func TestTrimmedMeanFallsBackWithFewValues(t *testing.T) {
	assert.Equal(t, 0.5, trimmedMean([]float64{0.5}, 0.2))
}
