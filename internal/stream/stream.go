// Package stream implements the WebSocket streaming surface for one
// analysis turn (§6.1): a closed set of event types delivered in a
// fixed order, plus cooperative client-cancel handling. The per-
// connection write path is grounded on the teacher pack's WSHub
// pattern (codeready-toolchain-tarsy/pkg/api/websocket.go), simplified
// to one connection per session since each /ws/analyze socket serves
// exactly one turn rather than a shared broadcast hub.
package stream

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/polanalyst/workbench/internal/domain"
)

// EventType is the closed set of messages sent over an analyze socket
// (§6.1). Clients never see a type outside this set.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventSessionStart EventType = "session_start"
	EventStatus       EventType = "status"
	EventContent      EventType = "content"
	EventCitation     EventType = "citation"
	EventArtifact     EventType = "artifact"
	EventComplete     EventType = "complete"
	EventError        EventType = "error"
)

// Event is the wire shape of every message on an analyze socket.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Conn wraps one /ws/analyze socket. gorilla/websocket forbids
// concurrent writes on the same connection, so every Send goes through
// writeMu.
type Conn struct {
	ws        *websocket.Conn
	sessionID string
	writeMu   sync.Mutex

	cancelMu sync.Mutex
	canceled bool
	onCancel func()
}

// Upgrade promotes an HTTP request to a streaming Conn and sends the
// initial "connected" event, matching the teacher's handshake-then-
// welcome-message order.
func Upgrade(w http.ResponseWriter, r *http.Request, sessionID string) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c := &Conn{ws: ws, sessionID: sessionID}
	c.send(Event{Type: EventConnected, SessionID: sessionID})
	return c, nil
}

// send marshals and writes one event, logging (never panicking) on a
// write failure since the orchestrator must keep running the turn even
// if the client already vanished.
func (c *Conn) send(evt Event) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(evt); err != nil {
		slog.Warn("stream: write failed", "session_id", c.sessionID, "type", evt.Type, "error", err)
	}
}

// Status implements master.Emitter.
func (c *Conn) Status(node, message string) {
	c.send(Event{Type: EventStatus, SessionID: c.sessionID, Data: map[string]any{"node": node, "message": message}})
}

// Content implements master.Emitter.
func (c *Conn) Content(text string) {
	c.send(Event{Type: EventContent, SessionID: c.sessionID, Data: map[string]any{"text": text}})
}

// Citation implements master.Emitter.
func (c *Conn) Citation(cite domain.Citation) {
	c.send(Event{Type: EventCitation, SessionID: c.sessionID, Data: cite})
}

// Artifact implements master.Emitter.
func (c *Conn) Artifact(a domain.Artifact) {
	c.send(Event{Type: EventArtifact, SessionID: c.sessionID, Data: a})
}

// SessionStart announces the turn before the graph starts running.
func (c *Conn) SessionStart(query string) {
	c.send(Event{Type: EventSessionStart, SessionID: c.sessionID, Data: map[string]any{"query": query}})
}

// Complete sends the terminal success event and must be the last event
// on the socket (§6.1 ordering invariant).
func (c *Conn) Complete(confidence float64) {
	c.send(Event{Type: EventComplete, SessionID: c.sessionID, Data: map[string]any{"confidence": confidence}})
}

// Error sends the terminal failure event. reason is a short machine
// code ("cancelled", "internal_error", ...); message is human-readable.
func (c *Conn) Error(reason, message string) {
	c.send(Event{Type: EventError, SessionID: c.sessionID, Data: map[string]any{"reason": reason, "message": message}})
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// OnCancel registers the callback to run when the client sends a
// {"type":"cancel"} message. Only one callback is kept; a later call
// replaces the earlier one.
func (c *Conn) OnCancel(fn func()) {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	c.onCancel = fn
}

// ReadQuery blocks for exactly one incoming JSON message and decodes it
// into v. Callers read the turn's initiating {"query": "..."} message
// this way before handing the socket off to ReadLoop for the rest of
// the turn's cancel watching.
func (c *Conn) ReadQuery(v any) error {
	return c.ws.ReadJSON(v)
}

// ReadLoop blocks reading client control messages (currently just
// "cancel") until the socket closes or errs. Run it in its own
// goroutine; it never touches writeMu so it never blocks Send.
func (c *Conn) ReadLoop() {
	for {
		var msg map[string]any
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}
		kind, _ := msg["type"].(string)
		if kind != "cancel" {
			continue
		}
		c.cancelMu.Lock()
		already := c.canceled
		c.canceled = true
		cb := c.onCancel
		c.cancelMu.Unlock()
		if !already && cb != nil {
			cb()
		}
	}
}
