package stream

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polanalyst/workbench/internal/domain"
)

func newTestServer(t *testing.T, handler func(*Conn)) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r, "sess-1")
		require.NoError(t, err)
		go conn.ReadLoop()
		handler(conn)
	}))
	wsURL := "ws" + srv.URL[len("http"):]
	return srv, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws
}

func TestEventOrderMatchesTurnLifecycle(t *testing.T) {
	srv, url := newTestServer(t, func(c *Conn) {
		c.SessionStart("what is happening in france")
		c.Status("strategic_planner", "planning")
		c.Content("France is experiencing...")
		c.Citation(domain.Citation{URL: "https://example.com", Title: "Example"})
		c.Artifact(domain.Artifact{ArtifactID: "abc123"})
		c.Complete(0.8)
	})
	defer srv.Close()

	client := dial(t, url)
	defer client.Close()

	wantOrder := []EventType{
		EventConnected, EventSessionStart, EventStatus, EventContent,
		EventCitation, EventArtifact, EventComplete,
	}
	for _, want := range wantOrder {
		var evt Event
		require.NoError(t, client.ReadJSON(&evt))
		assert.Equal(t, want, evt.Type)
		assert.Equal(t, "sess-1", evt.SessionID)
	}
}

func TestErrorEventCarriesReason(t *testing.T) {
	srv, url := newTestServer(t, func(c *Conn) {
		c.Error("cancelled", "client requested cancellation")
	})
	defer srv.Close()

	client := dial(t, url)
	defer client.Close()

	var connected Event
	require.NoError(t, client.ReadJSON(&connected))

	var errEvt Event
	require.NoError(t, client.ReadJSON(&errEvt))
	assert.Equal(t, EventError, errEvt.Type)
	data, ok := errEvt.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cancelled", data["reason"])
}

func TestOnCancelFiresOnClientCancelMessage(t *testing.T) {
	fired := make(chan struct{}, 1)
	srv, url := newTestServer(t, func(c *Conn) {
		c.OnCancel(func() { fired <- struct{}{} })
	})
	defer srv.Close()

	client := dial(t, url)
	defer client.Close()

	var connected Event
	require.NoError(t, client.ReadJSON(&connected))
	require.NoError(t, client.WriteJSON(map[string]string{"type": "cancel"}))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel callback did not fire")
	}
}
