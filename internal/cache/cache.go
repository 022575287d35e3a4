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

// Package cache implements the fingerprint-keyed query cache (§4.7): a
// cross-cutting short-circuit the orchestrator consults right after the
// Conversation Manager and writes to right after synthesis. Disabled by
// default in production for freshness.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/polanalyst/workbench/internal/domain"
)

// Config controls cache behavior, mirroring the ENABLE_QUERY_CACHE and
// CACHE_TTL_HOURS options (§6.3).
type Config struct {
	Enabled bool
	TTL     time.Duration
}

// Fingerprint computes the cache key: SHA-256 over the lowercased,
// whitespace-trimmed query text, optionally scoped to a user/session tag.
// Two queries differing only in case or leading/trailing whitespace
// collapse to the same fingerprint.
func Fingerprint(queryText, scope string) string {
	normalized := strings.ToLower(strings.TrimSpace(queryText))
	sum := sha256.Sum256([]byte(normalized + "\x00" + scope))
	return hex.EncodeToString(sum[:])
}

// Store is the subset of the record store the cache reads and writes
// through. Implemented by internal/store's Record Store so the cache
// itself holds no persistence logic.
type Store interface {
	CacheGet(ctx context.Context, fingerprint string) (*domain.CacheEntry, error)
	CachePut(ctx context.Context, entry domain.CacheEntry) error
}

// Cache wraps a Store with the TTL and enabled/disabled policy.
type Cache struct {
	cfg   Config
	store Store
}

func New(cfg Config, store Store) *Cache {
	return &Cache{cfg: cfg, store: store}
}

func (c *Cache) Enabled() bool { return c.cfg.Enabled }

// Get returns the cached entry for fingerprint if present and not
// expired. A cache miss (including "disabled") is not an error per the
// §7 error taxonomy; callers treat a nil, nil return as normal flow.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	if !c.cfg.Enabled {
		return nil, nil
	}
	entry, err := c.store.CacheGet(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	if time.Since(entry.CachedAt) > c.cfg.TTL {
		return nil, nil
	}
	return entry, nil
}

// Put writes an entry under fingerprint. Writes are last-writer-wins: the
// same fingerprint always carries the same payload for a given query, so
// concurrent writers racing on the same key are benign (§5 shared
// resources).
func (c *Cache) Put(ctx context.Context, fingerprint string, entry domain.CacheEntry) error {
	if !c.cfg.Enabled {
		return nil
	}
	entry.Fingerprint = fingerprint
	entry.CachedAt = time.Now()
	return c.store.CachePut(ctx, entry)
}
