// Package httpapi wires the REST and WebSocket surface (§6.2) over
// chi, grounded on the teacher's chi-middleware usage
// (pkg/transport/http_metrics_middleware.go) and its functional-options
// server constructor (pkg/server/http.go).
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	workbench "github.com/polanalyst/workbench"
	"github.com/polanalyst/workbench/internal/artifact"
	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/master"
	"github.com/polanalyst/workbench/internal/observability"
	"github.com/polanalyst/workbench/internal/orchestrator"
	"github.com/polanalyst/workbench/internal/query"
	"github.com/polanalyst/workbench/internal/ratelimit"
	"github.com/polanalyst/workbench/internal/session"
	"github.com/polanalyst/workbench/internal/stream"
	"github.com/polanalyst/workbench/internal/subagent/livemonitor"
)

// ArtifactStore is the read side of the Record Store the artifact
// download endpoint needs.
type ArtifactStore interface {
	GetArtifact(ctx context.Context, artifactID string) (*domain.Artifact, error)
}

// ArtifactBytes reads back a stored object payload by key.
type ArtifactBytes interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Server holds every dependency the HTTP/WebSocket surface dispatches
// against.
type Server struct {
	orch        *orchestrator.Orchestrator
	sessions    session.Service
	artifacts   ArtifactStore
	objects     ArtifactBytes
	liveMonitor *livemonitor.Agent
	corsOrigins []string
}

// New builds the chi router with every route from §6.2 mounted. limiter
// may be nil, in which case no rate limiting is applied; scope is only
// consulted when limiter is non-nil.
func New(orch *orchestrator.Orchestrator, sessions session.Service, artifacts ArtifactStore, objects ArtifactBytes, liveMonitor *livemonitor.Agent, corsOrigins []string, limiter ratelimit.RateLimiter, scope ratelimit.Scope) http.Handler {
	s := &Server{orch: orch, sessions: sessions, artifacts: artifacts, objects: objects, liveMonitor: liveMonitor, corsOrigins: corsOrigins}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)
	r.Use(s.logRequests)
	r.Use(observability.HTTPMiddleware(nil, observability.GetGlobalMetrics()))
	if limiter != nil {
		r.Use(ratelimit.Middleware(ratelimit.MiddlewareConfig{
			Limiter:        limiter,
			IdentifierFunc: sessionIdentifierFunc(scope),
			ExcludedPaths:  []string{"/health"},
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Get("/ws/analyze", s.handleWSAnalyze)
	r.Get("/api/graph/structure", s.handleGraphStructure)
	r.Get("/api/graph/execution/{session_id}", s.handleGraphExecution)
	r.Get("/api/artifacts/{artifact_id}", s.handleArtifact)
	r.Post("/api/live-monitor/explosive-topics", s.handleExplosiveTopics)

	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.corsOrigins) > 0 {
			origin = s.corsOrigins[0]
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("http request", "method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	agentStatus := "ready"
	if s.orch == nil {
		agentStatus = "unavailable"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "ok",
		"agent_status": agentStatus,
		"version":      workbench.Version,
	})
}

func (s *Server) handleGraphStructure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, master.DescribeStructure())
}

type analyzeRequest struct {
	UserSession string `json:"user_session"`
	Query       string `json:"query"`
}

type analyzeResponse struct {
	Success           bool                 `json:"success"`
	Response          string               `json:"response"`
	Citations         []domain.Citation    `json:"citations"`
	Artifact          *domain.Artifact     `json:"artifact,omitempty"`
	SubAgentArtifacts []domain.Artifact    `json:"sub_agent_artifacts,omitempty"`
	ToolsUsed         []string             `json:"tools_used"`
	Confidence        float64              `json:"confidence"`
	ExecutionLog      []domain.TraceRecord `json:"execution_log"`
	SessionID         string               `json:"session_id"`
	ProcessingTimeMS  int64                `json:"processing_time_ms"`
}

// handleAnalyze is the non-streaming request/response path: it runs the
// full turn synchronously and returns the final state, for callers that
// don't need incremental node events.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.UserSession == "" {
		req.UserSession = uuid.NewString()
	}
	if err := query.Validate(req.Query); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	start := time.Now()
	state, err := s.orch.Run(r.Context(), req.UserSession, req.Query, orchestrator.NoopEmitter())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Success:           true,
		Response:          state.FinalResponse,
		Citations:         state.Citations,
		Artifact:          state.Artifact,
		SubAgentArtifacts: subAgentArtifacts(state),
		ToolsUsed:         toolsUsed(state),
		Confidence:        state.Confidence,
		ExecutionLog:      state.ExecutionLog,
		SessionID:         req.UserSession,
		ProcessingTimeMS:  time.Since(start).Milliseconds(),
	})
}

// toolsUsed names every tool and sub-agent the turn actually dispatched,
// merging both result maps since §6.2's tools_used covers either kind.
func toolsUsed(state *domain.AgentState) []string {
	used := make([]string, 0, len(state.ToolResults)+len(state.SubAgentResults))
	for name := range state.ToolResults {
		used = append(used, name)
	}
	for name := range state.SubAgentResults {
		used = append(used, name)
	}
	return used
}

// subAgentArtifacts collects any artifacts a sub-agent rendered directly
// (§4.10.1), separate from the single master-graph Artifact Creator
// output already carried on state.Artifact.
func subAgentArtifacts(state *domain.AgentState) []domain.Artifact {
	var artifacts []domain.Artifact
	for _, result := range state.SubAgentResults {
		artifacts = append(artifacts, result.Artifacts...)
	}
	return artifacts
}

// handleWSAnalyze upgrades to a streaming socket and runs a single turn
// for the first {"query": "..."} message, emitting every event from §6.1
// in order and honoring a cooperative {"type":"cancel"}.
func (s *Server) handleWSAnalyze(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := stream.Upgrade(w, r, sessionID)
	if err != nil {
		slog.Warn("httpapi: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	conn.OnCancel(cancel)
	go conn.ReadLoop()

	var msg struct {
		Query string `json:"query"`
	}
	if err := conn.ReadQuery(&msg); err != nil {
		return
	}

	// orchestrator.Run owns the single terminal event per turn (§4.9/§8:
	// "exactly one terminal event") and emits it on every path, error or
	// not, through conn itself; there is nothing left to emit here.
	if _, err := s.orch.Run(ctx, sessionID, msg.Query, conn); err != nil {
		slog.Debug("httpapi: ws turn ended with error", "session_id", sessionID, "error", err)
	}
}

func (s *Server) handleGraphExecution(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err == session.ErrSessionNotFound {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	records := sess.ExecutionLog()
	steps := domain.StepNames(records)
	durations := make(map[string]int64, len(steps))
	for _, step := range steps {
		durations[step] = domain.StepDuration(records, step).Milliseconds()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":        sessionID,
		"steps":             steps,
		"step_durations_ms": durations,
		"records":           records,
	})
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	id, format := splitArtifactParam(chi.URLParam(r, "artifact_id"))

	a, err := s.artifacts.GetArtifact(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if a == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "artifact not found"})
		return
	}

	if format == "" {
		writeJSON(w, http.StatusOK, a)
		return
	}

	key := "artifacts/" + id + "." + format
	data, err := s.objects.Get(r.Context(), key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "format not available for this artifact"})
		return
	}
	w.Header().Set("Content-Type", artifact.ContentTypeFor(format))
	w.Write(data)
}

type explosiveTopicsRequest struct {
	Keywords   []string `json:"keywords"`
	CacheHours int      `json:"cache_hours"`
	MaxResults int      `json:"max_results"`
}

// handleExplosiveTopics is the independent Live Monitor path (§6.2),
// sharing the same freshness cache as the planner-selected sub-agent.
func (s *Server) handleExplosiveTopics(w http.ResponseWriter, r *http.Request) {
	var req explosiveTopicsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Keywords) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "keywords must not be empty"})
		return
	}

	report, err := s.liveMonitor.Explore(r.Context(), req.Keywords, req.CacheHours, req.MaxResults)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sessionIdentifierFunc builds an IdentifierFunc that keys rate limits
// off the request's session_id (query param, falling back to the
// X-Session-ID header), rather than ratelimit's own default of header-
// only extraction, since this API carries the session in the URL for
// GET/WS routes and in the JSON body for POST /api/analyze. Under
// ScopeUser an X-User-ID header, when present, is the key instead.
func sessionIdentifierFunc(scope ratelimit.Scope) ratelimit.IdentifierFunc {
	return func(r *http.Request) (string, ratelimit.Scope) {
		if scope == ratelimit.ScopeUser {
			if userID := r.Header.Get("X-User-ID"); userID != "" {
				return userID, scope
			}
		}
		if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
			return sessionID, scope
		}
		if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
			return sessionID, scope
		}
		return r.RemoteAddr, scope
	}
}

func splitArtifactParam(raw string) (id, format string) {
	for i := len(raw) - 1; i >= 0; i-- {
		if raw[i] == '.' {
			return raw[:i], raw[i+1:]
		}
	}
	return raw, ""
}
