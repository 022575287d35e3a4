package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polanalyst/workbench/internal/domain"
)

type memStore struct {
	entries map[string]domain.CacheEntry
}

func newMemStore() *memStore { return &memStore{entries: make(map[string]domain.CacheEntry)} }

func (m *memStore) CacheGet(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	e, ok := m.entries[fingerprint]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memStore) CachePut(ctx context.Context, entry domain.CacheEntry) error {
	m.entries[entry.Fingerprint] = entry
	return nil
}

func TestFingerprintNormalizesCaseAndWhitespace(t *testing.T) {
	a := Fingerprint("  Sentiment on Hamas in US  ", "session-1")
	b := Fingerprint("sentiment on hamas in us", "session-1")
	assert.Equal(t, a, b)
}

func TestFingerprintScopesByTag(t *testing.T) {
	a := Fingerprint("same query", "session-1")
	b := Fingerprint("same query", "session-2")
	assert.NotEqual(t, a, b)
}

func TestCacheDisabledAlwaysMisses(t *testing.T) {
	store := newMemStore()
	c := New(Config{Enabled: false, TTL: time.Hour}, store)

	fp := Fingerprint("query", "")
	require.NoError(t, c.Put(context.Background(), fp, domain.CacheEntry{Response: "answer"}))

	entry, err := c.Get(context.Background(), fp)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestCacheWriteThenReadWithinTTL(t *testing.T) {
	store := newMemStore()
	c := New(Config{Enabled: true, TTL: time.Hour}, store)

	fp := Fingerprint("query", "")
	require.NoError(t, c.Put(context.Background(), fp, domain.CacheEntry{Response: "answer"}))

	entry, err := c.Get(context.Background(), fp)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "answer", entry.Response)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	store := newMemStore()
	c := New(Config{Enabled: true, TTL: time.Millisecond}, store)

	fp := Fingerprint("query", "")
	require.NoError(t, c.Put(context.Background(), fp, domain.CacheEntry{Response: "answer"}))

	time.Sleep(5 * time.Millisecond)
	entry, err := c.Get(context.Background(), fp)
	require.NoError(t, err)
	assert.Nil(t, entry)
}
