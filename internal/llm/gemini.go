package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/polanalyst/workbench/internal/config"
)

// GeminiProvider wraps the official Google genai SDK client.
type GeminiProvider struct {
	sdk       *genai.Client
	model     string
	maxTokens int32
}

func NewGeminiProvider(cfg config.LLMConfig) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: api key required")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	maxTokens := int32(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &GeminiProvider{sdk: client, model: model, maxTokens: maxTokens}, nil
}

func (p *GeminiProvider) ModelName() string { return p.model }

func (p *GeminiProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition, temperature float64) (Response, error) {
	sys, contents := toGeminiContents(messages)
	temp := float32(temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: p.maxTokens,
	}
	if sys != "" {
		cfg.SystemInstruction = genai.NewContentFromText(sys, genai.RoleUser)
	}
	if len(tools) > 0 {
		cfg.Tools = []*genai.Tool{toGeminiTool(tools)}
	}

	resp, err := p.sdk.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate: %w", err)
	}
	return fromGeminiResponse(resp), nil
}

func (p *GeminiProvider) GenerateStructured(ctx context.Context, messages []Message, temperature float64, cfg StructuredOutputConfig) (Response, error) {
	sys, contents := toGeminiContents(messages)
	temp := float32(temperature)
	gcfg := &genai.GenerateContentConfig{
		Temperature:      &temp,
		MaxOutputTokens:  p.maxTokens,
		ResponseMIMEType: "application/json",
	}
	if sys != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(sys, genai.RoleUser)
	}

	resp, err := p.sdk.Models.GenerateContent(ctx, p.model, contents, gcfg)
	if err != nil {
		return Response{}, fmt.Errorf("gemini structured generate: %w", err)
	}
	return fromGeminiResponse(resp), nil
}

func toGeminiContents(messages []Message) (string, []*genai.Content) {
	var sys strings.Builder
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			if sys.Len() > 0 {
				sys.WriteString("\n")
			}
			sys.WriteString(m.Content)
		case "user", "tool":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		}
	}
	return sys.String(), contents
}

func toGeminiTool(tools []ToolDefinition) *genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		})
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) Response {
	var out Response
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        part.FunctionCall.Name,
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
				RawArgs:   string(args),
			})
		}
	}
	out.Content = text.String()
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out
}
