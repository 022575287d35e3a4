package master

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/llm"
)

var synthesizerSchema = generateSchema[domain.SynthesisOutput]()

const synthesizerSystemPrompt = `You are the Response Synthesizer for a political research assistant. Using the tool results and sub-agent results provided, write the final answer.

Rules:
- Quote no source verbatim beyond short spans; paraphrase.
- Attribute every factual claim to at least one citation index, e.g. [1].
- If any tool or sub-agent failed, explicitly acknowledge the gap ("I could not retrieve X; based on Y, ...") and lower confidence accordingly.
- Estimate confidence in [0,1] from agreement across sources and sub-agent confidences.`

// responseSynthesizer runs the one LLM call whose failure is fatal for
// the turn (§4.1 failure policy, §4.6).
func responseSynthesizer(ctx context.Context, provider llm.Provider, state *domain.AgentState) error {
	state.AppendTrace("response_synthesizer", "start", nil)
	defer state.AppendTrace("response_synthesizer", "end", nil)

	resp, err := provider.GenerateStructured(ctx, []llm.Message{
		{Role: "system", Content: synthesizerSystemPrompt},
		{Role: "user", Content: synthesisContext(state)},
	}, 0.2, llm.StructuredOutputConfig{Name: "synthesis", Schema: synthesizerSchema})
	if err != nil {
		state.AppendError(fmt.Sprintf("response_synthesizer: %v", err))
		return fmt.Errorf("response_synthesizer: %w", err)
	}

	var parsed domain.SynthesisOutput
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		state.AppendError(fmt.Sprintf("response_synthesizer: parsing model output: %v", err))
		return fmt.Errorf("response_synthesizer: parsing model output: %w", err)
	}

	state.FinalResponse = parsed.Response
	state.Citations = dedupeCitations(parsed.Citations)
	state.Confidence = clamp01(adjustConfidence(parsed.Confidence, state))
	return nil
}

func synthesisContext(state *domain.AgentState) string {
	ctx := map[string]any{
		"user_query":        state.UserQuery,
		"tool_results":      state.ToolResults,
		"sub_agent_results":  state.SubAgentResults,
		"message_history":    state.MessageHistory,
	}
	b, _ := json.Marshal(ctx)
	return string(b)
}

// dedupeCitations keeps the first occurrence of each URL, then orders the
// citations by descending score (equal scores keep the model's order).
func dedupeCitations(citations []domain.Citation) []domain.Citation {
	seen := make(map[string]bool, len(citations))
	out := make([]domain.Citation, 0, len(citations))
	for _, c := range citations {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// adjustConfidence lowers the model's self-reported confidence
// proportionally to the share of failed tools/sub-agents (§7 user-visible
// behavior: "confidence is reduced proportionally" on non-terminal
// failures).
func adjustConfidence(reported float64, state *domain.AgentState) float64 {
	total := len(state.ToolResults) + len(state.SubAgentResults)
	if total == 0 {
		return reported
	}

	failed := 0
	for _, r := range state.ToolResults {
		if r.Error != "" {
			failed++
		}
	}
	for _, r := range state.SubAgentResults {
		if !r.Success {
			failed++
		}
	}
	if failed == 0 {
		return reported
	}
	penalty := float64(failed) / float64(total)
	return reported * (1 - penalty)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
