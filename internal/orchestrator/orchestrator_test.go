package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachepkg "github.com/polanalyst/workbench/internal/cache"
	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/session"
)

type memStore struct {
	queries map[string]domain.Query
	logs    map[string][]domain.TraceRecord
	cacheMu map[string]domain.CacheEntry
}

func newMemStore() *memStore {
	return &memStore{queries: map[string]domain.Query{}, logs: map[string][]domain.TraceRecord{}, cacheMu: map[string]domain.CacheEntry{}}
}

func (m *memStore) InsertQuery(ctx context.Context, q domain.Query) error { m.queries[q.QueryID] = q; return nil }
func (m *memStore) UpdateQueryStatus(ctx context.Context, queryID string, status domain.QueryStatus, confidence float64) error {
	q := m.queries[queryID]
	q.Status = status
	q.Confidence = confidence
	m.queries[queryID] = q
	return nil
}
func (m *memStore) InsertExecutionLog(ctx context.Context, queryID string, records []domain.TraceRecord) error {
	m.logs[queryID] = records
	return nil
}
func (m *memStore) CacheGet(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	e, ok := m.cacheMu[fingerprint]
	if !ok {
		return nil, nil
	}
	return &e, nil
}
func (m *memStore) CachePut(ctx context.Context, entry domain.CacheEntry) error {
	m.cacheMu[entry.Fingerprint] = entry
	return nil
}

type recordingEmitter struct {
	events []string
}

func (r *recordingEmitter) Status(node, msg string)      { r.events = append(r.events, "status:"+node) }
func (r *recordingEmitter) Content(text string)          { r.events = append(r.events, "content") }
func (r *recordingEmitter) Citation(c domain.Citation)   { r.events = append(r.events, "citation") }
func (r *recordingEmitter) Artifact(a domain.Artifact)   { r.events = append(r.events, "artifact") }
func (r *recordingEmitter) SessionStart(q string)        { r.events = append(r.events, "session_start") }
func (r *recordingEmitter) Complete(confidence float64)  { r.events = append(r.events, "complete") }
func (r *recordingEmitter) Error(reason, message string) { r.events = append(r.events, "error:"+reason) }

func TestServeCachedSkipsGraphAndEmitsInOrder(t *testing.T) {
	store := newMemStore()
	c := cachepkg.New(cachepkg.Config{Enabled: true, TTL: time.Hour}, store)
	sessions := session.NewInMemoryService()

	fp := cachepkg.Fingerprint("what happened in france", "sess-1")
	require.NoError(t, c.Put(context.Background(), fp, domain.CacheEntry{
		Response: "cached answer", Confidence: 0.7,
	}))

	o := New(nil, c, sessions, store)
	emitter := &recordingEmitter{}

	q, err := newQueryForTest("what happened in france", "sess-1")
	require.NoError(t, err)
	sess, err := sessions.Create(context.Background(), "sess-1")
	require.NoError(t, err)

	state, err := o.serveCached(context.Background(), sess, q, domain.CacheEntry{Response: "cached answer", Confidence: 0.7}, emitter)
	require.NoError(t, err)
	assert.Equal(t, "cached answer", state.FinalResponse)
	assert.Contains(t, emitter.events, "content")
	assert.Contains(t, emitter.events, "complete")
	assert.Equal(t, []string{"status:conversation_manager", "content", "complete"}, emitter.events)
}

func newQueryForTest(text, sessionID string) (domain.Query, error) {
	return domain.Query{
		QueryID: "q-test", QueryText: text, UserSession: sessionID,
		Fingerprint: cachepkg.Fingerprint(text, sessionID), Status: domain.QueryProcessing,
	}, nil
}
