package master

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/llm"
)

var plannerSchema = generateSchema[domain.Plan]()

const plannerSystemPrompt = `You are the Strategic Planner for a political research assistant. Decide whether the current question can be answered directly from prior sub-agent results, or which tools/sub-agents must run.

Selection rules (authoritative):
- If sub_agent_results already contain the data the user now wants visualized (keywords: "map", "chart", "visualize", "plot", "show"), set can_answer_directly=true and tools_to_use=[]. Do not re-run analysis.
- If the query names countries plus a political subject and no prior sentiment data exists, select sentiment_analysis_agent.
- If the query asks for bias/framing comparison across named outlets, select media_bias_detector_agent.
- If the query asks for current/breaking/explosive events, select tavily_search and optionally live_political_monitor_agent.
- Otherwise, select tavily_search and/or tavily_extract.

Respond with can_answer_directly, tools_to_use (a subset of the allowed tool/agent names), reasoning, and expected_entities.`

// strategicPlanner runs one LLM call (temperature 0) producing a
// strictly-typed Plan, then discards any tool name not in allowedTools.
func strategicPlanner(ctx context.Context, provider llm.Provider, state *domain.AgentState, allowedTools []string, entities []string) error {
	state.AppendTrace("strategic_planner", "start", nil)
	defer state.AppendTrace("strategic_planner", "end", nil)

	prompt := fmt.Sprintf("Allowed tool/agent names: %s\nKnown entities from context: %s\nUser query: %s",
		strings.Join(allowedTools, ", "), strings.Join(entities, ", "), state.UserQuery)

	resp, err := provider.GenerateStructured(ctx, []llm.Message{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: prompt},
	}, 0, llm.StructuredOutputConfig{Name: "plan", Schema: plannerSchema})
	if err != nil {
		state.AppendError(fmt.Sprintf("strategic_planner: %v", err))
		return err
	}

	var plan domain.Plan
	if err := json.Unmarshal([]byte(resp.Content), &plan); err != nil {
		state.AppendError(fmt.Sprintf("strategic_planner: parsing model output: %v", err))
		return err
	}

	plan.ToolsToUse = filterAllowed(plan.ToolsToUse, allowedTools, state)
	state.Plan = plan
	return nil
}

// filterAllowed drops any tool/agent name not in the closed registry,
// recording a warning for each one discarded (§4.3 output constraints).
func filterAllowed(requested, allowed []string, state *domain.AgentState) []string {
	allowedSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = true
	}

	kept := make([]string, 0, len(requested))
	for _, name := range requested {
		if allowedSet[name] {
			kept = append(kept, name)
			continue
		}
		state.AppendError(fmt.Sprintf("strategic_planner: discarding unknown tool %q", name))
	}
	return kept
}
