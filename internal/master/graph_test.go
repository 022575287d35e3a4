package master

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/llm"
)

type scriptedProvider struct {
	byName map[string]string
}

func (p *scriptedProvider) Generate(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, temperature float64) (llm.Response, error) {
	return llm.Response{}, nil
}

func (p *scriptedProvider) GenerateStructured(ctx context.Context, messages []llm.Message, temperature float64, cfg llm.StructuredOutputConfig) (llm.Response, error) {
	return llm.Response{Content: p.byName[cfg.Name]}, nil
}

func (p *scriptedProvider) ModelName() string { return "scripted" }

type fakeTool struct {
	name   string
	output map[string]any
	err    error
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Call(ctx context.Context, query string, extras map[string]any) (map[string]any, error) {
	return f.output, f.err
}

type fakeCaller struct {
	names   []string
	results map[string]domain.SubAgentResult
}

func (f *fakeCaller) Call(ctx context.Context, agentName, query string, extras map[string]any) domain.SubAgentResult {
	return f.results[agentName]
}

func (f *fakeCaller) Names() []string { return f.names }

type fakeCreator struct{ artifact *domain.Artifact }

func (f *fakeCreator) Create(ctx context.Context, decision domain.ArtifactDecision, state *domain.AgentState) (*domain.Artifact, error) {
	return f.artifact, nil
}

type recordingEmitter struct {
	statuses []string
	content  []string
}

func (r *recordingEmitter) Status(node, message string) { r.statuses = append(r.statuses, node) }
func (r *recordingEmitter) Content(text string)          { r.content = append(r.content, text) }
func (r *recordingEmitter) Citation(domain.Citation)     {}
func (r *recordingEmitter) Artifact(domain.Artifact)     {}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestGraphRunProceedsOnDirectAnswer(t *testing.T) {
	provider := &scriptedProvider{byName: map[string]string{
		"plan":              mustJSON(t, domain.Plan{CanAnswerDirectly: true}),
		"synthesis":         mustJSON(t, map[string]any{"response": "the answer", "confidence": 0.9}),
		"artifact_decision": mustJSON(t, domain.ArtifactDecision{ShouldCreate: false}),
	}}

	graph := New(provider, provider, provider, nil, nil, nil, Config{MaxIterations: 3, ToolTimeout: time.Second, SubAgentTimeout: time.Second, MaxHistoryTurns: 10})

	state := domain.NewAgentState("session-1", "what is the capital of France", nil)
	emitter := &recordingEmitter{}

	err := graph.Run(context.Background(), state, emitter)
	require.NoError(t, err)
	assert.Equal(t, "the answer", state.FinalResponse)
	assert.InDelta(t, 0.9, state.Confidence, 0.01)
	assert.Contains(t, emitter.statuses, "response_synthesizer")
	assert.Nil(t, state.Artifact)
}

func TestGraphRunDispatchesToolsAndSubAgents(t *testing.T) {
	provider := &scriptedProvider{byName: map[string]string{
		"plan":              mustJSON(t, domain.Plan{ToolsToUse: []string{"tavily_search", "sentiment_analysis_agent"}}),
		"synthesis":         mustJSON(t, map[string]any{"response": "combined answer", "confidence": 0.8}),
		"artifact_decision": mustJSON(t, domain.ArtifactDecision{ShouldCreate: false}),
	}}

	tool := &fakeTool{name: "tavily_search", output: map[string]any{"answer": "fresh info"}}
	caller := &fakeCaller{
		names: []string{"sentiment_analysis_agent"},
		results: map[string]domain.SubAgentResult{
			"sentiment_analysis_agent": {Success: true, Confidence: 0.7},
		},
	}

	graph := New(provider, provider, provider, []Tool{tool}, caller, nil, Config{MaxIterations: 3, ToolTimeout: time.Second, SubAgentTimeout: time.Second})

	state := domain.NewAgentState("session-2", "sentiment on trade in France and Germany", nil)
	err := graph.Run(context.Background(), state, nil)
	require.NoError(t, err)

	assert.Contains(t, state.ToolResults, "tavily_search")
	assert.True(t, state.SubAgentResults["sentiment_analysis_agent"].Success)
}

func TestGraphRunFailsTurnOnSynthesisError(t *testing.T) {
	provider := &scriptedProvider{byName: map[string]string{
		"plan": mustJSON(t, domain.Plan{CanAnswerDirectly: true}),
		// "synthesis" intentionally left unset -> empty string fails json.Unmarshal
	}}

	graph := New(provider, provider, provider, nil, nil, nil, Config{MaxIterations: 1})
	state := domain.NewAgentState("session-3", "anything", nil)

	err := graph.Run(context.Background(), state, nil)
	assert.Error(t, err)
	assert.NotEmpty(t, state.ErrorLog)
}

func TestGraphRunCreatesArtifactWhenRequested(t *testing.T) {
	artifact := &domain.Artifact{ArtifactID: "abc123def456", Type: domain.ArtifactBarChart}
	provider := &scriptedProvider{byName: map[string]string{
		"plan":              mustJSON(t, domain.Plan{CanAnswerDirectly: true}),
		"synthesis":         mustJSON(t, map[string]any{"response": "answer", "confidence": 0.5}),
		"artifact_decision": mustJSON(t, domain.ArtifactDecision{ShouldCreate: true, ChartType: "bar_chart"}),
	}}

	graph := New(provider, provider, provider, nil, nil, &fakeCreator{artifact: artifact}, Config{MaxIterations: 1})
	state := domain.NewAgentState("session-4", "show me a chart", nil)

	err := graph.Run(context.Background(), state, nil)
	require.NoError(t, err)
	require.NotNil(t, state.Artifact)
	assert.Equal(t, "abc123def456", state.Artifact.ArtifactID)
}

func TestDescribeStructureMatchesNodeCount(t *testing.T) {
	structure := DescribeStructure()
	assert.Len(t, structure.Nodes, 7)
	assert.NotEmpty(t, structure.Edges)
}
