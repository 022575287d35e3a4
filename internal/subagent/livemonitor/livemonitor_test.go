package livemonitor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polanalyst/workbench/internal/llm"
)

type fakeProvider struct{ content string }

func (f *fakeProvider) Generate(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, temperature float64) (llm.Response, error) {
	return llm.Response{}, nil
}

func (f *fakeProvider) GenerateStructured(ctx context.Context, messages []llm.Message, temperature float64, cfg llm.StructuredOutputConfig) (llm.Response, error) {
	return llm.Response{Content: f.content}, nil
}

func (f *fakeProvider) ModelName() string { return "fake" }

type fakeSearcher struct{ articles []Article }

func (f *fakeSearcher) Search(ctx context.Context, keyword string, maxResults int) ([]Article, error) {
	return f.articles, nil
}

type memCache struct {
	data map[string]CachedReport
}

func newMemCache() *memCache { return &memCache{data: make(map[string]CachedReport)} }

func (m *memCache) Get(ctx context.Context, key string) (*CachedReport, error) {
	r, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memCache) Put(ctx context.Context, key string, report CachedReport) error {
	m.data[key] = report
	return nil
}

func TestClassifyBands(t *testing.T) {
	assert.Equal(t, "critical", Classify(80))
	assert.Equal(t, "explosive", Classify(65))
	assert.Equal(t, "trending", Classify(50))
	assert.Equal(t, "normal", Classify(10))
}

func TestExploreFreshThenCached(t *testing.T) {
	resp := topicsResponse{Topics: []topicResponse{
		{Topic: "election fraud claims", ExplosivenessScore: 82, Frequency: 14, Reasoning: "rapid spread"},
	}}
	b, err := json.Marshal(resp)
	require.NoError(t, err)

	provider := &fakeProvider{content: string(b)}
	searcher := &fakeSearcher{articles: []Article{{Title: "A", URL: "https://x", Content: "coverage"}}}
	cache := newMemCache()

	agent := New(provider, searcher, cache)().(*Agent)

	first, err := agent.Explore(context.Background(), []string{"election"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "fresh", first.Source)
	require.Len(t, first.Topics, 1)
	assert.Equal(t, "critical", first.Topics[0].Classification)

	second, err := agent.Explore(context.Background(), []string{"election"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "cache", second.Source)
	assert.NotNil(t, second.CacheExpiresInMinutes)
}

func TestExploreSkipsCacheWhenHoursZero(t *testing.T) {
	provider := &fakeProvider{content: `{"topics":[]}`}
	searcher := &fakeSearcher{articles: nil}
	cache := newMemCache()

	agent := New(provider, searcher, cache)().(*Agent)

	report, err := agent.Explore(context.Background(), []string{"x"}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "fresh", report.Source)
	assert.Empty(t, cache.data)
}
