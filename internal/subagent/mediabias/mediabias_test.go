package mediabias

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polanalyst/workbench/internal/llm"
	"github.com/polanalyst/workbench/internal/subagent"
)

type fakeProvider struct{ content string }

func (f *fakeProvider) Generate(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, temperature float64) (llm.Response, error) {
	return llm.Response{}, nil
}

func (f *fakeProvider) GenerateStructured(ctx context.Context, messages []llm.Message, temperature float64, cfg llm.StructuredOutputConfig) (llm.Response, error) {
	return llm.Response{Content: f.content}, nil
}

func (f *fakeProvider) ModelName() string { return "fake" }

type fakeSearcher struct{}

func (f *fakeSearcher) Search(ctx context.Context, query, outlet string, maxResults int) ([]Article, error) {
	return []Article{{Title: "coverage", URL: "https://example.com", Content: outlet + " coverage of " + query}}, nil
}

func TestRunRequiresOutlets(t *testing.T) {
	agent := New(&fakeProvider{}, &fakeSearcher{}, Config{})()
	result := agent.Run(context.Background(), subagent.Input{Query: "tariffs"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "outlet list")
}

func TestRunComparesNamedOutlets(t *testing.T) {
	b, err := json.Marshal(outletBiasResponse{
		BiasTypes: []string{"framing"}, BiasSeverity: 0.4, OverallBias: "center-left leaning", BiasNotes: "headline framing differs",
	})
	require.NoError(t, err)

	agent := New(&fakeProvider{content: string(b)}, &fakeSearcher{}, Config{})()
	result := agent.Run(context.Background(), subagent.Input{
		Query:  "tariffs",
		Extras: map[string]any{"outlets": []string{"Outlet A", "Outlet B"}},
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, []string{"Outlet A", "Outlet B"}, result.Data["outlets"])
	biases, ok := result.Data["biases"].([]OutletBias)
	require.True(t, ok)
	assert.Len(t, biases, 2)
	assert.InDelta(t, 0.6, result.Confidence, 0.01)
}
