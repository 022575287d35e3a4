package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/polanalyst/workbench/internal/config"
)

// OpenAIProvider wraps the official OpenAI SDK client.
type OpenAIProvider struct {
	sdk       openai.Client
	model     string
	maxTokens int64
}

func NewOpenAIProvider(cfg config.LLMConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: api key required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &OpenAIProvider{
		sdk:       openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (p *OpenAIProvider) ModelName() string { return p.model }

func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64) (Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:               p.model,
		Messages:            toOpenAIMessages(messages),
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(p.maxTokens),
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	resp, err := p.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("openai generate: %w", err)
	}
	return fromOpenAICompletion(resp), nil
}

func (p *OpenAIProvider) GenerateStructured(ctx context.Context, messages []Message, temperature float64, cfg StructuredOutputConfig) (Response, error) {
	name := cfg.Name
	if name == "" {
		name = "structured_output"
	}
	params := openai.ChatCompletionNewParams{
		Model:               p.model,
		Messages:            toOpenAIMessages(messages),
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(p.maxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: cfg.Schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	resp, err := p.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("openai structured generate: %w", err)
	}
	return fromOpenAICompletion(resp), nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "user":
			out = append(out, openai.UserMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		case "tool":
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

func toOpenAITools(tools []ToolDefinition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  t.Parameters,
		}))
	}
	return out
}

func fromOpenAICompletion(resp *openai.ChatCompletion) Response {
	var out Response
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	out.Content = choice.Message.Content
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
			RawArgs:   tc.Function.Arguments,
		})
	}
	out.Usage = Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return out
}
