package master

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polanalyst/workbench/internal/domain"
)

func newTestState() *domain.AgentState {
	return domain.NewAgentState("s", "q", nil)
}

func TestDecisionGateProceedsAtMaxIterations(t *testing.T) {
	state := newTestState()
	state.Iteration = 3
	assert.True(t, decisionGate(state, Config{MaxIterations: 3}))
}

func TestDecisionGateProceedsOnUsefulResult(t *testing.T) {
	state := newTestState()
	state.ToolResults["tavily_search"] = domain.ToolResult{Output: map[string]any{"answer": "x"}}
	assert.True(t, decisionGate(state, Config{MaxIterations: 3}))
}

func TestDecisionGateIteratesWhenReasoningSaysInsufficient(t *testing.T) {
	state := newTestState()
	state.Plan.Reasoning = "INSUFFICIENT data gathered so far"
	state.ToolResults["tavily_search"] = domain.ToolResult{Output: map[string]any{"answer": "x"}}
	state.Plan.ToolsToUse = []string{"tavily_search"}
	assert.False(t, decisionGate(state, Config{MaxIterations: 3}))
	assert.Equal(t, 1, state.Iteration)
}

func TestDecisionGateProceedsWhenAllToolsFailed(t *testing.T) {
	state := newTestState()
	state.ToolResults["tavily_search"] = domain.ToolResult{Error: "timeout"}
	assert.True(t, decisionGate(state, Config{MaxIterations: 3}))
}

func TestDecisionGateProceedsOnEmptyPlan(t *testing.T) {
	state := newTestState()
	assert.True(t, decisionGate(state, Config{MaxIterations: 3}))
}

func TestConversationManagerBoundsHistory(t *testing.T) {
	state := newTestState()
	for i := 0; i < 20; i++ {
		state.MessageHistory = append(state.MessageHistory, domain.Turn{Role: "user", Content: "turn"})
	}
	conversationManager(state, Config{MaxHistoryTurns: 10})
	assert.Len(t, state.MessageHistory, 10)
	assert.Equal(t, 0, state.Iteration)
}
