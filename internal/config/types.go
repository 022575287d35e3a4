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

// Package config loads and validates the workbench's runtime configuration:
// named LLM backends, the record/object stores, the master graph's
// iteration and timeout knobs, and the HTTP/WebSocket surface. Layering
// follows koanf conventions: compiled-in defaults, then an optional YAML
// file, then POLWATCH_-prefixed environment variables, each overriding the
// last.
package config

import "fmt"

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`

	// LLMs is a named set of model backends. The master graph and every
	// sub-agent resolve "planner", "synthesizer", etc. through this map
	// rather than hardcoding a provider.
	LLMs map[string]LLMConfig `yaml:"llms"`

	Store       StoreConfig       `yaml:"store"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Search      SearchConfig      `yaml:"search"`
	Graph       GraphConfig       `yaml:"graph"`
	Cache       CacheConfig       `yaml:"cache"`
	Logger      LoggerConfig      `yaml:"logger"`
	RateLimit   RateLimitConfig   `yaml:"rate_limiting"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig controls the HTTP/WebSocket listener.
type ServerConfig struct {
	// Host is the bind address. Default: "0.0.0.0".
	Host string `yaml:"host,omitempty"`
	// Port is the listen port. Default: 8080.
	Port int `yaml:"port,omitempty"`
	// CORSOrigins is the allowed-origins list for the HTTP API and the
	// WebSocket upgrade check. Default: ["*"].
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// LLMConfig configures a single named model backend.
type LLMConfig struct {
	// Type selects the provider: "anthropic", "openai", or "gemini".
	Type string `yaml:"type"`
	// APIKey authenticates against the provider. Usually supplied via
	// environment variable, never committed to a config file.
	APIKey string `yaml:"api_key,omitempty"`
	// Model is the provider-specific model identifier. Each provider
	// substitutes a sane default when empty.
	Model string `yaml:"model,omitempty"`
	// BaseURL overrides the provider's default API endpoint, for
	// self-hosted or proxy deployments.
	BaseURL string `yaml:"base_url,omitempty"`
	// MaxTokens bounds the completion length. Default: 4096.
	MaxTokens int `yaml:"max_tokens,omitempty"`
}

// StoreConfig configures the record store (queries, execution logs, cache
// entries).
type StoreConfig struct {
	// Driver selects the backing database: "sqlite" or "postgres".
	// Default: "sqlite".
	Driver string `yaml:"driver,omitempty"`
	// DSN is the driver-specific connection string. For sqlite this is a
	// file path; for postgres, a libpq connection URL.
	DSN string `yaml:"dsn,omitempty"`
}

// ObjectStoreConfig configures artifact byte storage.
type ObjectStoreConfig struct {
	// Driver selects the backing implementation. Only "local" (disk
	// under BasePath) is currently implemented.
	Driver string `yaml:"driver,omitempty"`
	// BasePath is the root directory for locally stored artifacts.
	BasePath string `yaml:"base_path,omitempty"`
}

// SearchConfig configures the Tavily search/extract tools.
type SearchConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
	// MaxResults caps results per country search in the sentiment
	// sub-agent (SEARCH_MAX_RESULTS). The tavily_search tool and the other
	// sub-agents use their own limits.
	MaxResults int `yaml:"max_results,omitempty"`
}

// GraphConfig holds the master graph's iteration and timeout knobs (§6.3).
type GraphConfig struct {
	// MaxIterations bounds planner/tool-executor/decision-gate loops.
	MaxIterations int `yaml:"max_iterations,omitempty"`
	// ToolTimeoutSeconds bounds a single tool invocation.
	ToolTimeoutSeconds int `yaml:"tool_timeout_s,omitempty"`
	// SubAgentTimeoutSeconds bounds a single sub-agent invocation.
	SubAgentTimeoutSeconds int `yaml:"subagent_timeout_s,omitempty"`
	// TurnTimeoutSeconds holds a per-turn ceiling (default 180). No
	// component reads it: a user turn as a whole has no deadline, only the
	// per-tool and per-sub-agent timeouts bound its parts.
	TurnTimeoutSeconds int `yaml:"turn_timeout_s,omitempty"`
	// MaxHistoryTurns bounds how much conversation history is fed back
	// into the planner's context window.
	MaxHistoryTurns int `yaml:"max_history_turns,omitempty"`
}

// CacheConfig controls the fingerprint-keyed query cache (§4.7).
type CacheConfig struct {
	// Enabled turns on cache lookups before planning and writes after
	// synthesis. Default: false (off in production).
	Enabled bool `yaml:"enable_query_cache,omitempty"`
	// TTLHours is how long a cache entry remains valid.
	TTLHours int `yaml:"cache_ttl_hours,omitempty"`
}

// RateLimitConfig controls per-identifier request throttling on the
// HTTP API, an ambient concern independent of the master graph's own
// iteration/timeout budget.
type RateLimitConfig struct {
	// Enabled turns on the rate limit middleware. Default: false.
	Enabled bool `yaml:"enabled,omitempty"`
	// Backend selects the usage store: "memory" or "sql". Default: "memory".
	Backend string `yaml:"backend,omitempty"`
	// Scope is "session" (per WebSocket/HTTP session) or "user" (per
	// X-User-ID header, across sessions). Default: "session".
	Scope string `yaml:"scope,omitempty"`
	// Limits are the enforced rate rules, evaluated independently; a
	// request is denied if any rule is exceeded.
	Limits []RateLimitRule `yaml:"limits,omitempty"`
}

// RateLimitRule is a single (type, window, limit) rate rule.
type RateLimitRule struct {
	// Type is "count" (requests) or "token" (estimated LLM tokens).
	Type string `yaml:"type"`
	// Window is "minute", "hour", "day", "week", or "month".
	Window string `yaml:"window"`
	Limit  int64  `yaml:"limit"`
}

// ObservabilityConfig controls the node/tool span and duration metrics
// surfaced by internal/observability, independent of this package's own
// config shape (kept self-contained so it can be reused outside polwatchd).
type ObservabilityConfig struct {
	// TracingEnabled turns on OpenTelemetry span export. Default: false.
	TracingEnabled bool `yaml:"tracing_enabled,omitempty"`
	// TracingEndpoint is the OTLP collector endpoint.
	TracingEndpoint string `yaml:"tracing_endpoint,omitempty"`
	// MetricsEnabled turns on the Prometheus /metrics endpoint. Default: false.
	MetricsEnabled bool `yaml:"metrics_enabled,omitempty"`
	// MetricsNamespace prefixes every exported metric name. Default: "polwatch".
	MetricsNamespace string `yaml:"metrics_namespace,omitempty"`
}

// Validate checks structural invariants that defaults alone cannot fix:
// required fields, recognized enum values, and internally consistent
// ranges. Called once after defaults and overrides are merged.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if len(c.LLMs) == 0 {
		return fmt.Errorf("at least one llms entry is required")
	}
	for name, llm := range c.LLMs {
		switch llm.Type {
		case "anthropic", "openai", "gemini":
		default:
			return fmt.Errorf("llms.%s: unknown type %q (want anthropic, openai, or gemini)", name, llm.Type)
		}
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}
	if c.Graph.MaxIterations < 1 {
		return fmt.Errorf("graph.max_iterations must be >= 1, got %d", c.Graph.MaxIterations)
	}
	if c.Cache.Enabled && c.Cache.TTLHours <= 0 {
		return fmt.Errorf("cache.cache_ttl_hours must be > 0 when caching is enabled")
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case "memory", "sql":
		default:
			return fmt.Errorf("rate_limiting.backend must be memory or sql, got %q", c.RateLimit.Backend)
		}
		switch c.RateLimit.Scope {
		case "session", "user":
		default:
			return fmt.Errorf("rate_limiting.scope must be session or user, got %q", c.RateLimit.Scope)
		}
		for i, rule := range c.RateLimit.Limits {
			if rule.Limit <= 0 {
				return fmt.Errorf("rate_limiting.limits[%d]: limit must be > 0", i)
			}
		}
	}
	return nil
}
