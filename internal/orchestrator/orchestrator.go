// Package orchestrator ties the master graph, the session/cache/query
// layers, and the streaming transport into one entry point per turn:
// Run resolves a cache hit first (§4.7: "the orchestrator short-circuits
// after the conversation manager, emitting the cached events in the same
// order a live run would"), else drives the full master graph and
// persists the result.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/polanalyst/workbench/internal/cache"
	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/master"
	"github.com/polanalyst/workbench/internal/query"
	"github.com/polanalyst/workbench/internal/session"
)

// Emitter extends master.Emitter with the turn-lifecycle events
// (session_start, complete, error) that sit outside the graph's own
// node events (§6.1).
type Emitter interface {
	master.Emitter
	SessionStart(queryText string)
	Complete(confidence float64)
	Error(reason, message string)
}

type noopEmitter struct{}

func (noopEmitter) Status(string, string)    {}
func (noopEmitter) Content(string)           {}
func (noopEmitter) Citation(domain.Citation) {}
func (noopEmitter) Artifact(domain.Artifact) {}
func (noopEmitter) SessionStart(string)      {}
func (noopEmitter) Complete(float64)         {}
func (noopEmitter) Error(string, string)     {}

// NoopEmitter returns an Emitter that discards every event, for the
// non-streaming /api/analyze path.
func NoopEmitter() Emitter { return noopEmitter{} }

// Orchestrator wires one master.Graph to persistence and caching.
type Orchestrator struct {
	graph    *master.Graph
	cache    *cache.Cache
	sessions session.Service
	store    query.Store
}

// New builds an Orchestrator.
func New(graph *master.Graph, c *cache.Cache, sessions session.Service, store query.Store) *Orchestrator {
	return &Orchestrator{graph: graph, cache: c, sessions: sessions, store: store}
}

// Run executes one user turn against sessionID (created if unknown),
// emitting every event through emitter and persisting the outcome.
func (o *Orchestrator) Run(ctx context.Context, sessionID, queryText string, emitter Emitter) (*domain.AgentState, error) {
	if emitter == nil {
		emitter = NoopEmitter()
	}

	q, err := query.New(queryText, sessionID)
	if err != nil {
		emitter.Error("invalid_query", err.Error())
		return nil, err
	}

	sess, err := o.sessions.Get(ctx, sessionID)
	if err == session.ErrSessionNotFound {
		sess, err = o.sessions.Create(ctx, sessionID)
	}
	if err != nil {
		emitter.Error("internal_error", fmt.Sprintf("session: %v", err))
		return nil, err
	}

	emitter.SessionStart(queryText)

	if err := o.store.InsertQuery(ctx, q); err != nil {
		// Persistence failures never block the turn (§7 persistence_failure).
		emitter.Status("conversation_manager", fmt.Sprintf("query persistence failed: %v", err))
	}

	if cached, err := o.cache.Get(ctx, q.Fingerprint); err == nil && cached != nil {
		return o.serveCached(ctx, sess, q, *cached, emitter)
	}

	state := domain.NewAgentState(sessionID, queryText, sess.History(0))
	if err := o.graph.Run(ctx, state, emitter); err != nil {
		_ = query.Fail(ctx, o.store, q, state.ExecutionLog)
		if ctx.Err() != nil {
			// The orchestrator owns the single terminal event per turn
			// (§4.9/§8): a client cancel must surface as "cancelled", not
			// whatever context-cancellation error the graph's last node
			// happened to return.
			emitter.Error("cancelled", "turn cancelled by client")
		} else {
			emitter.Error("internal_error", err.Error())
		}
		return state, err
	}

	sess.AppendTurn(domain.Turn{Role: "user", Content: queryText, Timestamp: time.Now()})
	sess.AppendTurn(domain.Turn{Role: "assistant", Content: state.FinalResponse, Timestamp: time.Now()})
	for _, rec := range state.ExecutionLog {
		sess.AppendTrace(rec)
	}

	if err := query.Complete(ctx, o.store, q, state.Confidence, state.ExecutionLog); err != nil {
		emitter.Status("response_synthesizer", fmt.Sprintf("execution log persistence failed: %v", err))
	}

	o.writeCache(ctx, q.Fingerprint, state)

	emitter.Complete(state.Confidence)
	return state, nil
}

// serveCached replays a prior turn's outcome from the fingerprint cache,
// matching the event order of a live run minus the graph's own node
// status events.
func (o *Orchestrator) serveCached(ctx context.Context, sess *session.Session, q domain.Query, cached domain.CacheEntry, emitter Emitter) (*domain.AgentState, error) {
	emitter.Status("conversation_manager", "serving cached response")
	emitter.Content(cached.Response)
	for _, c := range cached.Citations {
		emitter.Citation(c)
	}

	state := domain.NewAgentState(sess.ID(), q.QueryText, sess.History(0))
	state.FinalResponse = cached.Response
	state.Citations = cached.Citations
	state.Confidence = cached.Confidence

	sess.AppendTurn(domain.Turn{Role: "user", Content: q.QueryText, Timestamp: time.Now()})
	sess.AppendTurn(domain.Turn{Role: "assistant", Content: cached.Response, Timestamp: time.Now()})

	if err := query.Complete(ctx, o.store, q, cached.Confidence, nil); err != nil {
		emitter.Status("conversation_manager", fmt.Sprintf("execution log persistence failed: %v", err))
	}

	emitter.Complete(cached.Confidence)
	return state, nil
}

// writeCache stores a completed turn's outcome for future fingerprint
// hits. Failures are non-fatal: the turn already succeeded for this
// caller.
func (o *Orchestrator) writeCache(ctx context.Context, fingerprint string, state *domain.AgentState) {
	if !o.cache.Enabled() {
		return
	}
	artifactRefs := []string{}
	if state.Artifact != nil {
		artifactRefs = append(artifactRefs, state.Artifact.ArtifactID)
	}
	toolsUsed := make([]string, 0, len(state.ToolResults)+len(state.SubAgentResults))
	for name := range state.ToolResults {
		toolsUsed = append(toolsUsed, name)
	}
	for name := range state.SubAgentResults {
		toolsUsed = append(toolsUsed, name)
	}

	_ = o.cache.Put(ctx, fingerprint, domain.CacheEntry{
		Response:     state.FinalResponse,
		Citations:    state.Citations,
		ArtifactRefs: artifactRefs,
		ToolsUsed:    toolsUsed,
		Confidence:   state.Confidence,
	})
}
