package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "test-key", BaseURL: srv.URL})
}

func TestSearchParsesResultsAndImages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-key", req.APIKey)

		json.NewEncoder(w).Encode(searchResponse{
			Results: []struct {
				Title   string  `json:"title"`
				URL     string  `json:"url"`
				Content string  `json:"content"`
				Score   float64 `json:"score"`
			}{
				{Title: "Article", URL: "https://example.com/a", Content: "body", Score: 0.9},
			},
			Images: []string{"https://example.com/a.jpg"},
		})
	})

	results, err := client.Search(context.Background(), "ukraine", 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Article", results[0].Title)
	assert.Equal(t, "https://example.com/a.jpg", results[0].ImageURL)
}

func TestSearchNonOKStatusIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid key"}`))
	})

	_, err := client.Search(context.Background(), "ukraine", 5, nil)
	assert.Error(t, err)
}

func TestExtractParsesPages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		json.NewEncoder(w).Encode(extractResponse{
			Results: []struct {
				URL        string `json:"url"`
				RawContent string `json:"raw_content"`
			}{
				{URL: "https://example.com/a", RawContent: "full text"},
			},
		})
	})

	pages, err := client.Extract(context.Background(), []string{"https://example.com/a"})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "full text", pages[0].Content)
}

func TestOutletSearcherRestrictsDomainForDottedOutlet(t *testing.T) {
	var gotDomains []string
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotDomains = req.IncludeDomains
		gotQuery = req.Query
		json.NewEncoder(w).Encode(searchResponse{})
	})

	searcher := NewOutletSearcher(client)
	_, err := searcher.Search(context.Background(), "tariffs", "reuters.com", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"reuters.com"}, gotDomains)
	assert.Equal(t, "tariffs", gotQuery)
}

func TestOutletSearcherFoldsNameIntoQueryForNonDomain(t *testing.T) {
	var gotDomains []string
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotDomains = req.IncludeDomains
		gotQuery = req.Query
		json.NewEncoder(w).Encode(searchResponse{})
	})

	searcher := NewOutletSearcher(client)
	_, err := searcher.Search(context.Background(), "tariffs", "Reuters", 5)
	require.NoError(t, err)
	assert.Empty(t, gotDomains)
	assert.Equal(t, "Reuters tariffs", gotQuery)
}
