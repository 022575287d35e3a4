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

package ratelimit

import (
	"database/sql"
	"fmt"

	"github.com/polanalyst/workbench/internal/config"
)

// NewRateLimiterFromConfig builds a RateLimiter from a RateLimitConfig. db
// and dialect are only consulted when cfg.Backend is "sql"; polwatchd
// passes the same *sql.DB its record store already opened rather than a
// second connection pool. Returns (nil, nil) when rate limiting is
// disabled.
func NewRateLimiterFromConfig(cfg config.RateLimitConfig, db *sql.DB, dialect string) (RateLimiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var store Store
	switch cfg.Backend {
	case "sql":
		if db == nil {
			return nil, fmt.Errorf("a database connection is required for the sql rate limit backend")
		}
		s, err := NewSQLStore(db, dialect)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQL store: %w", err)
		}
		store = s
	case "memory", "":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.Backend)
	}

	limits := make([]LimitRule, len(cfg.Limits))
	for i, l := range cfg.Limits {
		limits[i] = LimitRule{
			Type:   ParseLimitType(l.Type),
			Window: ParseTimeWindow(l.Window),
			Limit:  l.Limit,
		}
	}

	limiterCfg := &Config{Enabled: cfg.Enabled, Limits: limits}
	return NewRateLimiter(limiterCfg, store)
}

// ScopeFromConfig returns the rate limiting scope from configuration.
func ScopeFromConfig(cfg config.RateLimitConfig) Scope {
	if cfg.Scope == "" {
		return ScopeSession
	}
	return ParseScope(cfg.Scope)
}
