// Package domain holds the core entities shared across the master graph,
// sub-agents, the session/cache/query stores, and the HTTP/WebSocket
// surface: Turn, TraceRecord, Citation, Artifact, SubAgentResult, and the
// AgentState threaded through every graph node. Keeping them in one leaf
// package (imported by, never importing, master/session/cache/store/
// httpapi) avoids import cycles between those packages.
package domain

import "time"

// Turn is one exchange in a session's message history.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TraceRecord is one entry/exit marker emitted by a graph node. A node
// emits at least one record on entry and one on exit; duration is
// derived at read time from the first and last record for that step
// (§4.1 timing contract), never stored directly.
type TraceRecord struct {
	Step      string         `json:"step"`
	Timestamp time.Time      `json:"timestamp"`
	Status    string         `json:"status"` // "start", "end", "error"
	Details   map[string]any `json:"details,omitempty"`
}

// Citation is a deduplicated (by URL) source reference attached to the
// synthesized response.
type Citation struct {
	URL     string  `json:"url" jsonschema:"required"`
	Title   string  `json:"title,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score,omitempty"`
	Domain  string  `json:"domain,omitempty"`
}

// ArtifactType enumerates the closed set of visualization kinds.
type ArtifactType string

const (
	ArtifactBarChart   ArtifactType = "bar_chart"
	ArtifactLineChart  ArtifactType = "line_chart"
	ArtifactMapChart   ArtifactType = "map_chart"
	ArtifactRadarChart ArtifactType = "radar_chart"
	ArtifactTable      ArtifactType = "table"
	ArtifactMindMap    ArtifactType = "mind_map"
	ArtifactJSONExport ArtifactType = "json_export"
)

// Artifact is a deterministic, content-addressed visualization export.
// Immutable after creation: regenerating from identical inputs must
// yield the same ArtifactID and the same primary HTML bytes.
type Artifact struct {
	ArtifactID  string            `json:"artifact_id"` // 12 hex chars
	Type        ArtifactType      `json:"type"`
	Title       string            `json:"title"`
	FormatPaths map[string]string `json:"format_paths"` // format -> storage URI, at least "html"
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SubAgentResult is the uniform shape every sub-agent returns to the Tool
// Executor, whatever its internal mini-graph looks like.
type SubAgentResult struct {
	Success      bool           `json:"success"`
	Data         map[string]any `json:"data,omitempty"`
	Artifacts    []Artifact     `json:"artifacts,omitempty"`
	Confidence   float64        `json:"confidence"`
	ExecutionLog []TraceRecord  `json:"execution_log,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// ToolResult is the uniform shape a built-in tool (tavily_search,
// tavily_extract) returns to the Tool Executor.
type ToolResult struct {
	Output   map[string]any `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Plan is the Strategic Planner's structured output (§4.3).
type Plan struct {
	CanAnswerDirectly bool     `json:"can_answer_directly" jsonschema:"required,description=True if prior sub-agent results already answer the query"`
	ToolsToUse        []string `json:"tools_to_use" jsonschema:"required,description=Subset of the allowed tool/agent names to run"`
	Reasoning         string   `json:"reasoning" jsonschema:"required,description=Short justification for the selection"`
	ExpectedEntities  []string `json:"expected_entities,omitempty" jsonschema:"description=Countries, outlets, or topics the query names"`
}

// ArtifactDecision is the Artifact Decision node's structured output
// (§4.8).
type ArtifactDecision struct {
	ShouldCreate bool           `json:"should_create" jsonschema:"required,description=True if the turn warrants a visualization"`
	ChartType    string         `json:"chart_type,omitempty" jsonschema:"enum=bar_chart,enum=line_chart,enum=map_chart,enum=mind_map,enum=table,enum=radar_chart"`
	Title        string         `json:"title,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// SynthesisOutput is the Response Synthesizer's structured output
// (§4.6).
type SynthesisOutput struct {
	Response   string     `json:"response" jsonschema:"required,description=The final answer, with citation markers like [1]"`
	Citations  []Citation `json:"citations,omitempty" jsonschema:"description=Sources backing the response's factual claims"`
	Confidence float64    `json:"confidence" jsonschema:"required,minimum=0,maximum=1,description=Model self-reported confidence before §7 adjustment"`
}

// QueryStatus is the closed set of Query lifecycle states.
type QueryStatus string

const (
	QueryProcessing QueryStatus = "processing"
	QueryCompleted  QueryStatus = "completed"
	QueryFailed     QueryStatus = "failed"
)

// AgentState is the object threaded through every master-graph node
// (§3). Nodes read and append; only the owning node at each step
// mutates its own section, per §5's "no two master nodes run
// concurrently for the same session" ordering guarantee.
type AgentState struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id,omitempty"`

	UserQuery      string  `json:"user_query"`
	MessageHistory []Turn  `json:"message_history"`
	Iteration      int     `json:"iteration"`
	Plan           Plan    `json:"plan"`

	ToolResults     map[string]ToolResult     `json:"tool_results"`
	SubAgentResults map[string]SubAgentResult `json:"sub_agent_results"`

	Citations []Citation `json:"citations"`

	FinalResponse    string           `json:"final_response"`
	Confidence       float64          `json:"confidence"`
	ArtifactDecision ArtifactDecision `json:"artifact_decision"`
	Artifact         *Artifact        `json:"artifact,omitempty"`

	ExecutionLog []TraceRecord `json:"execution_log"`
	ErrorLog     []string      `json:"error_log"`
}

// NewAgentState initializes an AgentState for a fresh turn, satisfying
// the "tool_results keys ∩ sub_agent_results keys = ∅" and "iteration
// starts at 0" invariants.
func NewAgentState(sessionID, query string, history []Turn) *AgentState {
	return &AgentState{
		SessionID:       sessionID,
		UserQuery:       query,
		MessageHistory:  history,
		Iteration:       0,
		ToolResults:     make(map[string]ToolResult),
		SubAgentResults: make(map[string]SubAgentResult),
	}
}

// AppendTrace appends a trace record. Per the "never mutate prior
// entries" invariant, this is the only mutation the execution log
// permits.
func (s *AgentState) AppendTrace(step, status string, details map[string]any) {
	s.ExecutionLog = append(s.ExecutionLog, TraceRecord{
		Step:      step,
		Timestamp: time.Now(),
		Status:    status,
		Details:   details,
	})
}

// AppendError records a node-local failure without aborting the turn.
func (s *AgentState) AppendError(msg string) {
	s.ErrorLog = append(s.ErrorLog, msg)
}

// Query is one user turn's persisted record (§3).
type Query struct {
	QueryID     string        `json:"query_id"`
	QueryText   string        `json:"query_text"`
	UserSession string        `json:"user_session"`
	Fingerprint string        `json:"fingerprint"`
	Status      QueryStatus   `json:"status"`
	Timings     map[string]int64 `json:"timings,omitempty"` // step -> duration_ms
	ToolsUsed   []string      `json:"tools_used,omitempty"`
	Confidence  float64       `json:"confidence"`
	CreatedAt   time.Time     `json:"created_at"`
}

// CacheEntry is one fingerprint-keyed query cache row (§4.7).
type CacheEntry struct {
	Fingerprint  string     `json:"fingerprint"`
	Response     string     `json:"response"`
	Citations    []Citation `json:"citations"`
	ArtifactRefs []string   `json:"artifact_refs"`
	ToolsUsed    []string   `json:"tools_used"`
	Timings      map[string]int64 `json:"timings,omitempty"`
	Confidence   float64    `json:"confidence"`
	CachedAt     time.Time  `json:"cached_at"`
}
