package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polanalyst/workbench/internal/domain"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndUpdateQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	q := domain.Query{
		QueryID: "q1", QueryText: "what is happening in ukraine",
		UserSession: "sess-1", Fingerprint: "fp1", Status: domain.QueryProcessing,
	}
	require.NoError(t, s.InsertQuery(ctx, q))
	require.NoError(t, s.UpdateQueryStatus(ctx, "q1", domain.QueryCompleted, 0.9))
}

func TestExecutionLogRoundTripsInOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []domain.TraceRecord{
		{Step: "conversation_manager", Status: "start", Timestamp: time.Now()},
		{Step: "conversation_manager", Status: "end", Timestamp: time.Now(), Details: map[string]any{"entities": []string{"Ukraine"}}},
		{Step: "strategic_planner", Status: "start", Timestamp: time.Now()},
	}
	require.NoError(t, s.InsertExecutionLog(ctx, "q1", records))

	got, err := s.GetExecutionLog(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "conversation_manager", got[0].Step)
	assert.Equal(t, "strategic_planner", got[2].Step)
}

func TestCachePutAndGetRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entry := domain.CacheEntry{
		Fingerprint: "fp1", Response: "cached answer",
		Citations:  []domain.Citation{{URL: "https://example.com", Title: "Example"}},
		ToolsUsed:  []string{"tavily_search"},
		Confidence: 0.75, CachedAt: time.Now(),
	}
	require.NoError(t, s.CachePut(ctx, entry))

	got, err := s.CacheGet(ctx, "fp1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "cached answer", got.Response)
	assert.Equal(t, []string{"tavily_search"}, got.ToolsUsed)
	require.Len(t, got.Citations, 1)
	assert.Equal(t, "https://example.com", got.Citations[0].URL)
}

func TestCacheGetMissReturnsNilNil(t *testing.T) {
	s := openTestStore(t)
	got, err := s.CacheGet(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveAndGetArtifact(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := domain.Artifact{
		ArtifactID: "abc123def456", Type: domain.ArtifactBarChart, Title: "Sentiment by country",
		FormatPaths: map[string]string{"html": "file:///artifacts/abc123def456.html"},
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.Save(ctx, a))

	got, err := s.GetArtifact(ctx, "abc123def456")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.ArtifactBarChart, got.Type)
	assert.Equal(t, "file:///artifacts/abc123def456.html", got.FormatPaths["html"])
}
