package master

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/llm"
)

var artifactDecisionSchema = generateSchema[domain.ArtifactDecision]()

const artifactDecisionSystemPrompt = `Decide whether this turn's answer warrants a visualization. Trigger when the user's message contains visualization intent (map, chart, visualize, plot, show, graph, table) or when sub_agent_results already carry structured data likely to be visualized (e.g. per-country sentiment scores).

chart_type must be one of: bar_chart, line_chart, map_chart, mind_map, table, radar_chart.
If prior sub-agent data already supplies the fields a chart needs, you may omit data and let the creator extract it.`

// artifactDecision runs one LLM call producing an ArtifactDecision
// (§4.8).
func artifactDecision(ctx context.Context, provider llm.Provider, state *domain.AgentState) error {
	state.AppendTrace("artifact_decision", "start", nil)
	defer state.AppendTrace("artifact_decision", "end", nil)

	resp, err := provider.GenerateStructured(ctx, []llm.Message{
		{Role: "system", Content: artifactDecisionSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("User query: %s\nFinal response: %s\nSub-agent results: %s", state.UserQuery, state.FinalResponse, marshalSubAgentResults(state))},
	}, 0, llm.StructuredOutputConfig{Name: "artifact_decision", Schema: artifactDecisionSchema})
	if err != nil {
		state.AppendError(fmt.Sprintf("artifact_decision: %v", err))
		return nil // artifact decision failure is non-fatal; the turn still has a final_response.
	}

	var decision domain.ArtifactDecision
	if err := json.Unmarshal([]byte(resp.Content), &decision); err != nil {
		state.AppendError(fmt.Sprintf("artifact_decision: parsing model output: %v", err))
		return nil
	}
	state.ArtifactDecision = decision
	return nil
}

func marshalSubAgentResults(state *domain.AgentState) string {
	b, _ := json.Marshal(state.SubAgentResults)
	return string(b)
}

// artifactCreator resolves state.ArtifactDecision into a persisted
// Artifact. A creator failure is non-fatal: the turn already has its
// final_response (§4.1's "once final_response is non-empty, downstream
// nodes may only add the artifact").
func artifactCreator(ctx context.Context, creator ArtifactCreator, state *domain.AgentState) {
	if !state.ArtifactDecision.ShouldCreate || creator == nil {
		return
	}

	state.AppendTrace("artifact_creator", "start", nil)
	defer state.AppendTrace("artifact_creator", "end", nil)

	artifact, err := creator.Create(ctx, state.ArtifactDecision, state)
	if err != nil {
		state.AppendError(fmt.Sprintf("artifact_creator: %v", err))
		return
	}
	state.Artifact = artifact
}
