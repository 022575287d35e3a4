// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package query manages one user turn's lifecycle (§3 Query entity):
// validation, fingerprinting, status transitions, and persistence through
// the record store.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/polanalyst/workbench/internal/cache"
	"github.com/polanalyst/workbench/internal/domain"
)

const (
	minQueryLen = 1
	maxQueryLen = 2000
)

// ErrEmptyQuery and ErrQueryTooLong are the two boundary validation
// failures named in §8: empty queries and queries over 2000 characters
// are rejected before any graph node runs.
var (
	ErrEmptyQuery   = errors.New("query text must not be empty")
	ErrQueryTooLong = fmt.Errorf("query text must not exceed %d characters", maxQueryLen)
)

// Validate checks the 1..2000 character bound (§3, §8 boundary
// behaviors). Length is measured in runes, not bytes, so multi-byte
// UTF-8 queries are not penalized.
func Validate(text string) error {
	n := len([]rune(strings.TrimSpace(text)))
	if n < minQueryLen {
		return ErrEmptyQuery
	}
	if n > maxQueryLen {
		return ErrQueryTooLong
	}
	return nil
}

// Store persists Query records and execution logs. Implemented by
// internal/store's Record Store.
type Store interface {
	InsertQuery(ctx context.Context, q domain.Query) error
	UpdateQueryStatus(ctx context.Context, queryID string, status domain.QueryStatus, confidence float64) error
	InsertExecutionLog(ctx context.Context, queryID string, records []domain.TraceRecord) error
}

// New constructs a Query for a fresh user turn. The fingerprint is
// computed against the raw (non-trimmed-for-validation) text since
// cache.Fingerprint performs its own normalization.
func New(text, sessionID string) (domain.Query, error) {
	if err := Validate(text); err != nil {
		return domain.Query{}, err
	}
	return domain.Query{
		QueryID:     uuid.NewString(),
		QueryText:   text,
		UserSession: sessionID,
		Fingerprint: cache.Fingerprint(text, sessionID),
		Status:      domain.QueryProcessing,
	}, nil
}

// Complete marks a query finished and persists its final status,
// confidence, and execution log.
func Complete(ctx context.Context, store Store, q domain.Query, confidence float64, log []domain.TraceRecord) error {
	if err := store.UpdateQueryStatus(ctx, q.QueryID, domain.QueryCompleted, confidence); err != nil {
		return err
	}
	return store.InsertExecutionLog(ctx, q.QueryID, log)
}

// Fail marks a query failed. Per §7, persistence failures here are
// logged by the caller but never surfaced as the user-visible answer.
func Fail(ctx context.Context, store Store, q domain.Query, log []domain.TraceRecord) error {
	if err := store.UpdateQueryStatus(ctx, q.QueryID, domain.QueryFailed, 0); err != nil {
		return err
	}
	return store.InsertExecutionLog(ctx, q.QueryID, log)
}
