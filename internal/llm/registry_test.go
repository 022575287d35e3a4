package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polanalyst/workbench/internal/config"
)

type fakeProvider struct {
	model      string
	response   Response
	err        error
	generated  int
	structured int
}

func (f *fakeProvider) ModelName() string { return f.model }

func (f *fakeProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64) (Response, error) {
	f.generated++
	return f.response, f.err
}

func (f *fakeProvider) GenerateStructured(ctx context.Context, messages []Message, temperature float64, cfg StructuredOutputConfig) (Response, error) {
	f.structured++
	return f.response, f.err
}

func TestBuildRejectsEmptyName(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Build("", config.LLMConfig{Type: "anthropic"})
	assert.Error(t, err)
}

func TestBuildRejectsUnknownType(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Build("planner", config.LLMConfig{Type: "not-a-real-provider"})
	assert.Error(t, err)
}

func TestBuildPropagatesProviderConstructionError(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Build("planner", config.LLMConfig{Type: "anthropic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic")
}

func TestInstrumentedProviderPassesThroughGenerate(t *testing.T) {
	fake := &fakeProvider{model: "test-model", response: Response{Content: "hello", Usage: Usage{PromptTokens: 10, CompletionTokens: 5}}}
	p := &instrumentedProvider{Provider: fake}

	resp, err := p.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, 0)

	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 1, fake.generated)
	assert.Equal(t, "test-model", p.ModelName())
}

func TestInstrumentedProviderPassesThroughGenerateStructured(t *testing.T) {
	fake := &fakeProvider{model: "test-model", response: Response{Content: `{"ok":true}`}}
	p := &instrumentedProvider{Provider: fake}

	resp, err := p.GenerateStructured(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0, StructuredOutputConfig{Name: "decision"})

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, 1, fake.structured)
}

func TestInstrumentedProviderPropagatesError(t *testing.T) {
	fake := &fakeProvider{model: "test-model", err: assert.AnError}
	p := &instrumentedProvider{Provider: fake}

	_, err := p.Generate(context.Background(), nil, nil, 0)

	assert.ErrorIs(t, err, assert.AnError)
}
