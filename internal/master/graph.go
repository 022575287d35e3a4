package master

import (
	"context"
	"fmt"

	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/llm"
)

// Graph wires the seven master nodes together. It holds no per-turn
// state: everything mutable lives in the domain.AgentState passed to
// Run, so a single Graph value is safe to share across concurrent
// sessions.
type Graph struct {
	planner     llm.Provider
	synthesizer llm.Provider
	artifact    llm.Provider

	tools    map[string]Tool
	caller   SubAgentCaller
	creator  ArtifactCreator

	cfg Config
}

// New builds a Graph. planner/synthesizer/artifact may be the same
// Provider value; they are accepted separately because deployments can
// route each node to a different model tier.
func New(planner, synthesizer, artifact llm.Provider, tools []Tool, caller SubAgentCaller, creator ArtifactCreator, cfg Config) *Graph {
	toolMap := make(map[string]Tool, len(tools))
	for _, t := range tools {
		toolMap[t.Name()] = t
	}
	return &Graph{
		planner:     planner,
		synthesizer: synthesizer,
		artifact:    artifact,
		tools:       toolMap,
		caller:      caller,
		creator:     creator,
		cfg:         cfg,
	}
}

// AllowedNames is the closed registry of tool/sub-agent names the
// planner may select from (§4.3 output constraints).
func (g *Graph) AllowedNames() []string {
	names := make([]string, 0, len(g.tools))
	for name := range g.tools {
		names = append(names, name)
	}
	if g.caller != nil {
		names = append(names, g.caller.Names()...)
	}
	return names
}

// Run executes the graph for one turn against state, emitting status
// events through emitter as each node transitions. Returns an error only
// when synthesis fails (§4.1's "only a synthesizer failure is fatal");
// every other node failure is recorded in state.ErrorLog and the turn
// continues best-effort.
func (g *Graph) Run(ctx context.Context, state *domain.AgentState, emitter Emitter) error {
	if emitter == nil {
		emitter = NoopEmitter()
	}

	emitter.Status("conversation_manager", "assembling context")
	entities := conversationManager(state, g.cfg)

	allowed := g.AllowedNames()

	for {
		emitter.Status("strategic_planner", "planning next step")
		if err := strategicPlanner(ctx, g.planner, state, allowed, entities); err != nil {
			// planner failures are non-fatal: fall through to the gate,
			// which will see an empty plan and proceed to synthesis.
		}

		if len(state.Plan.ToolsToUse) > 0 {
			emitter.Status("tool_executor", fmt.Sprintf("running %d tool(s)", len(state.Plan.ToolsToUse)))
			toolExecutor(ctx, state, g.tools, g.caller, g.cfg)
		}

		emitter.Status("decision_gate", "evaluating")
		if proceed := decisionGate(state, g.cfg); proceed {
			break
		}
	}

	emitter.Status("response_synthesizer", "writing final answer")
	if err := responseSynthesizer(ctx, g.synthesizer, state); err != nil {
		return err
	}
	emitter.Content(state.FinalResponse)
	for _, c := range state.Citations {
		emitter.Citation(c)
	}

	emitter.Status("artifact_decision", "checking for visualization")
	_ = artifactDecision(ctx, g.artifact, state)

	if state.ArtifactDecision.ShouldCreate {
		emitter.Status("artifact_creator", "building artifact")
		artifactCreator(ctx, g.creator, state)
		if state.Artifact != nil {
			emitter.Artifact(*state.Artifact)
		}
	}

	return nil
}
