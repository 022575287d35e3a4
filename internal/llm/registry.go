package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/polanalyst/workbench/internal/config"
	"github.com/polanalyst/workbench/internal/observability"
	"github.com/polanalyst/workbench/internal/registry"
)

// Registry is a closed, name-keyed set of configured providers. The master
// graph and every sub-agent resolve their LLM by name through this registry
// rather than constructing clients themselves.
type Registry struct {
	*registry.BaseRegistry[Provider]
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Provider]()}
}

// Build instantiates a Provider from an LLMConfig entry and registers it.
func (r *Registry) Build(name string, cfg config.LLMConfig) (Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("llm name cannot be empty")
	}

	var provider Provider
	var err error

	switch cfg.Type {
	case "anthropic":
		provider, err = NewAnthropicProvider(cfg)
	case "openai":
		provider, err = NewOpenAIProvider(cfg)
	case "gemini":
		provider, err = NewGeminiProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("build llm %q: %w", name, err)
	}

	instrumented := &instrumentedProvider{Provider: provider}
	if err := r.Register(name, instrumented); err != nil {
		return nil, err
	}
	return instrumented, nil
}

// instrumentedProvider wraps a Provider so every completion records
// RecordLLMCall, regardless of which backend answered it.
type instrumentedProvider struct {
	Provider
}

func (p *instrumentedProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64) (Response, error) {
	start := time.Now()
	resp, err := p.Provider.Generate(ctx, messages, tools, temperature)
	observability.GetGlobalMetrics().RecordLLMCall(ctx, p.Provider.ModelName(), time.Since(start), resp.Usage.PromptTokens, resp.Usage.CompletionTokens, err)
	return resp, err
}

func (p *instrumentedProvider) GenerateStructured(ctx context.Context, messages []Message, temperature float64, cfg StructuredOutputConfig) (Response, error) {
	start := time.Now()
	resp, err := p.Provider.GenerateStructured(ctx, messages, temperature, cfg)
	observability.GetGlobalMetrics().RecordLLMCall(ctx, p.Provider.ModelName(), time.Since(start), resp.Usage.PromptTokens, resp.Usage.CompletionTokens, err)
	return resp, err
}
