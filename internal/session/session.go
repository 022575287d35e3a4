// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session manages the lifecycle of one WebSocket conversation
// (§3): its message history and append-only execution log. Sessions live
// in memory for the lifetime of a connection; execution logs are
// persisted per query through the record store.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/polanalyst/workbench/internal/domain"
)

// ErrSessionNotFound is returned when a session ID is unknown to the
// service.
var ErrSessionNotFound = errors.New("session not found")

// Session is one WS connection's accumulated state.
type Session struct {
	id        string
	createdAt time.Time

	mu             sync.RWMutex
	messageHistory []domain.Turn
	executionLog   []domain.TraceRecord
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// AppendTurn records one user or assistant turn.
func (s *Session) AppendTurn(turn domain.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageHistory = append(s.messageHistory, turn)
}

// History returns the last n turns (0 means all), oldest first. Bounding
// here implements the Conversation Manager's default-10-turns context
// window (§4.2).
func (s *Session) History(n int) []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n >= len(s.messageHistory) {
		out := make([]domain.Turn, len(s.messageHistory))
		copy(out, s.messageHistory)
		return out
	}
	start := len(s.messageHistory) - n
	out := make([]domain.Turn, n)
	copy(out, s.messageHistory[start:])
	return out
}

// AppendTrace adds one entry to the session's execution log. The log is
// append-only: no method exists to mutate or remove a prior entry.
func (s *Session) AppendTrace(record domain.TraceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executionLog = append(s.executionLog, record)
}

// ExecutionLog returns a snapshot of the accumulated trace records.
func (s *Session) ExecutionLog() []domain.TraceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TraceRecord, len(s.executionLog))
	copy(out, s.executionLog)
	return out
}

// Service manages session lifecycle: created on WS connect, destroyed on
// disconnect.
type Service interface {
	Create(ctx context.Context, sessionID string) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Close(ctx context.Context, sessionID string) error
}

type inMemoryService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryService returns a Service backed by an in-process map. This
// is the only Service implementation the spec calls for: sessions are
// explicitly scoped to "lives in memory" (§3 Lifecycle).
func NewInMemoryService() Service {
	return &inMemoryService{sessions: make(map[string]*Session)}
}

func (s *inMemoryService) Create(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{id: sessionID, createdAt: time.Now()}
	s.sessions[sessionID] = sess
	return sess, nil
}

func (s *inMemoryService) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *inMemoryService) Close(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

var _ Service = (*inMemoryService)(nil)
