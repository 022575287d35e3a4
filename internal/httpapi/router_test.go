package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polanalyst/workbench/internal/cache"
	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/llm"
	"github.com/polanalyst/workbench/internal/master"
	"github.com/polanalyst/workbench/internal/orchestrator"
	"github.com/polanalyst/workbench/internal/ratelimit"
	"github.com/polanalyst/workbench/internal/session"
	"github.com/polanalyst/workbench/internal/subagent/livemonitor"
)

// scriptedProvider answers every structured call by schema name so the
// graph can run end to end without reaching a real LLM backend,
// grounded on internal/master's own graph_test.go fixture.
type scriptedProvider struct {
	byName map[string]string
}

func (p *scriptedProvider) Generate(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, temperature float64) (llm.Response, error) {
	return llm.Response{}, nil
}

func (p *scriptedProvider) GenerateStructured(ctx context.Context, messages []llm.Message, temperature float64, cfg llm.StructuredOutputConfig) (llm.Response, error) {
	return llm.Response{Content: p.byName[cfg.Name]}, nil
}

func (p *scriptedProvider) ModelName() string { return "scripted" }

func directAnswerProvider() *scriptedProvider {
	return &scriptedProvider{byName: map[string]string{
		"plan":              `{"can_answer_directly": true}`,
		"synthesis":         `{"response": "the answer", "confidence": 0.9}`,
		"artifact_decision": `{"should_create": false}`,
	}}
}

type stubCaller struct{}

func (stubCaller) Call(ctx context.Context, agentName, query string, extras map[string]any) domain.SubAgentResult {
	return domain.SubAgentResult{Success: true}
}
func (stubCaller) Names() []string { return nil }

type stubArtifactCreator struct{}

func (stubArtifactCreator) Create(ctx context.Context, decision domain.ArtifactDecision, state *domain.AgentState) (*domain.Artifact, error) {
	return nil, nil
}

type memCacheStore struct {
	entries map[string]domain.CacheEntry
}

func (m *memCacheStore) CacheGet(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	e, ok := m.entries[fingerprint]
	if !ok {
		return nil, nil
	}
	return &e, nil
}
func (m *memCacheStore) CachePut(ctx context.Context, entry domain.CacheEntry) error {
	m.entries[entry.Fingerprint] = entry
	return nil
}

type memQueryStore struct {
	memCacheStore
	queries map[string]domain.Query
}

func (m *memQueryStore) InsertQuery(ctx context.Context, q domain.Query) error {
	m.queries[q.QueryID] = q
	return nil
}
func (m *memQueryStore) UpdateQueryStatus(ctx context.Context, queryID string, status domain.QueryStatus, confidence float64) error {
	return nil
}
func (m *memQueryStore) InsertExecutionLog(ctx context.Context, queryID string, records []domain.TraceRecord) error {
	return nil
}

type memArtifactStore struct {
	artifacts map[string]domain.Artifact
}

func (m *memArtifactStore) GetArtifact(ctx context.Context, artifactID string) (*domain.Artifact, error) {
	a, ok := m.artifacts[artifactID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

type memObjectStore struct {
	objects map[string][]byte
}

func (m *memObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, http.ErrNoCookie
	}
	return data, nil
}

func newTestServer(t *testing.T) (http.Handler, *memArtifactStore, *memObjectStore) {
	t.Helper()
	provider := directAnswerProvider()
	graph := master.New(provider, provider, provider, nil, stubCaller{}, stubArtifactCreator{}, master.Config{MaxIterations: 1})
	qStore := &memQueryStore{memCacheStore: memCacheStore{entries: map[string]domain.CacheEntry{}}, queries: map[string]domain.Query{}}
	c := cache.New(cache.Config{Enabled: true, TTL: time.Hour}, qStore)
	sessions := session.NewInMemoryService()
	orch := orchestrator.New(graph, c, sessions, qStore)

	artifacts := &memArtifactStore{artifacts: map[string]domain.Artifact{}}
	objects := &memObjectStore{objects: map[string][]byte{}}
	liveAgent := livemonitor.New(directAnswerProvider(), nil, nil)().(*livemonitor.Agent)

	return New(orch, sessions, artifacts, objects, liveAgent, nil, nil, ratelimit.ScopeSession), artifacts, objects
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ready", body["agent_status"])
	assert.NotEmpty(t, body["version"])
}

func TestAnalyzeEndpointReturnsFullResponseShape(t *testing.T) {
	router, _, _ := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"user_session": "s1", "query": "what is happening in the region"})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "the answer", resp.Response)
	assert.Equal(t, "s1", resp.SessionID)
	assert.GreaterOrEqual(t, resp.ProcessingTimeMS, int64(0))
}

func TestGraphStructureEndpoint(t *testing.T) {
	router, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/graph/structure", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var structure master.Structure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &structure))
	assert.NotEmpty(t, structure.Nodes)
	assert.NotEmpty(t, structure.Edges)
}

func TestAnalyzeEndpointRejectsEmptyQuery(t *testing.T) {
	router, _, _ := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"session_id": "s1", "query": ""})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArtifactEndpointReturns404ForUnknownID(t *testing.T) {
	router, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/artifacts/doesnotexist.html", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArtifactEndpointStreamsStoredFormat(t *testing.T) {
	router, artifacts, objects := newTestServer(t)
	artifacts.artifacts["abc123"] = domain.Artifact{ArtifactID: "abc123", Type: domain.ArtifactBarChart}
	objects.objects["artifacts/abc123.html"] = []byte("<html></html>")

	req := httptest.NewRequest(http.MethodGet, "/api/artifacts/abc123.html", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html></html>", rec.Body.String())
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
}

func TestExplosiveTopicsRejectsEmptyKeywords(t *testing.T) {
	router, _, _ := newTestServer(t)
	body, _ := json.Marshal(map[string]any{"keywords": []string{}})
	req := httptest.NewRequest(http.MethodPost, "/api/live-monitor/explosive-topics", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraphExecutionReturns404ForUnknownSession(t *testing.T) {
	router, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/graph/execution/unknown-session", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
