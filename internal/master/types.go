// Package master implements the seven-node Master Agent Orchestrator
// graph: Conversation Manager -> Strategic Planner -> Tool Executor ->
// Decision Gate -> Response Synthesizer -> Artifact Decision -> Artifact
// Creator, with a conditional back-edge from the Decision Gate to the
// Strategic Planner bounded by MaxIterations.
package master

import (
	"context"
	"time"

	"github.com/polanalyst/workbench/internal/domain"
)

// Tool is a built-in tool the Tool Executor can dispatch (tavily_search,
// tavily_extract). Sub-agents are dispatched separately through
// SubAgentCaller; Tool covers only the two web-search primitives.
type Tool interface {
	Name() string
	Call(ctx context.Context, query string, extras map[string]any) (map[string]any, error)
}

// SubAgentCaller is the uniform call contract the Tool Executor uses to
// reach the Sub-Agent Framework (internal/subagent). Implemented by
// *subagent.Caller.
type SubAgentCaller interface {
	Call(ctx context.Context, agentName, query string, extras map[string]any) domain.SubAgentResult
	Names() []string
}

// ArtifactCreator resolves an ArtifactDecision into a persisted Artifact.
// Implemented by internal/artifact.
type ArtifactCreator interface {
	Create(ctx context.Context, decision domain.ArtifactDecision, state *domain.AgentState) (*domain.Artifact, error)
}

// Emitter bridges graph execution to the streaming dispatcher
// (internal/stream). Every method must be safe to call from the node
// goroutine that owns a given session; the graph never calls an Emitter
// concurrently for the same session, matching the "no two master nodes
// run concurrently" ordering guarantee.
type Emitter interface {
	Status(node, message string)
	Content(text string)
	Citation(c domain.Citation)
	Artifact(a domain.Artifact)
}

// noopEmitter discards every event; used when the caller has no
// streaming transport attached (e.g. the non-streaming /api/analyze path).
type noopEmitter struct{}

func (noopEmitter) Status(string, string)      {}
func (noopEmitter) Content(string)             {}
func (noopEmitter) Citation(domain.Citation)   {}
func (noopEmitter) Artifact(domain.Artifact)   {}

// NoopEmitter returns an Emitter that discards all events.
func NoopEmitter() Emitter { return noopEmitter{} }

// Config mirrors config.GraphConfig's fields the graph needs at run
// time, kept local to avoid a dependency from internal/master on
// internal/config.
type Config struct {
	MaxIterations          int
	ToolTimeout            time.Duration
	SubAgentTimeout        time.Duration
	MaxHistoryTurns        int
}
