package master

import (
	"strings"

	"github.com/polanalyst/workbench/internal/domain"
)

// decisionGate is pure logic, no LLM. Returns true when the graph should
// proceed to synthesis, false when it should loop back to the planner.
func decisionGate(state *domain.AgentState, cfg Config) bool {
	state.AppendTrace("decision_gate", "start", nil)
	defer state.AppendTrace("decision_gate", "end", nil)

	if state.Iteration >= cfg.MaxIterations {
		return true
	}
	if state.Plan.CanAnswerDirectly {
		return true
	}
	if hasUsefulResult(state) && !strings.Contains(strings.ToUpper(state.Plan.Reasoning), "INSUFFICIENT") {
		return true
	}
	if allFailed(state) {
		return true
	}
	if len(state.Plan.ToolsToUse) == 0 && !state.Plan.CanAnswerDirectly {
		return true
	}

	state.Iteration++
	return false
}

func hasUsefulResult(state *domain.AgentState) bool {
	for _, r := range state.ToolResults {
		if r.Error == "" && len(r.Output) > 0 {
			return true
		}
	}
	for _, r := range state.SubAgentResults {
		if r.Success {
			return true
		}
	}
	return false
}

func allFailed(state *domain.AgentState) bool {
	total := len(state.ToolResults) + len(state.SubAgentResults)
	if total == 0 {
		return false
	}
	for _, r := range state.ToolResults {
		if r.Error == "" {
			return false
		}
	}
	for _, r := range state.SubAgentResults {
		if r.Success {
			return false
		}
	}
	return true
}
