package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validBaseConfig() Config {
	cfg := Config{
		LLMs: map[string]LLMConfig{
			"planner": {Type: "anthropic"},
		},
		Store: StoreConfig{Driver: "sqlite", DSN: "test.db"},
	}
	cfg.SetDefaults()
	return cfg
}

func TestRateLimitConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		rl      RateLimitConfig
		wantErr bool
	}{
		{
			name:    "disabled with no limits",
			rl:      RateLimitConfig{Enabled: false},
			wantErr: false,
		},
		{
			name: "valid enabled config",
			rl: RateLimitConfig{
				Enabled: true,
				Backend: "memory",
				Scope:   "session",
				Limits:  []RateLimitRule{{Type: "token", Window: "day", Limit: 1000}},
			},
			wantErr: false,
		},
		{
			name:    "enabled with unknown backend",
			rl:      RateLimitConfig{Enabled: true, Backend: "redis", Scope: "session", Limits: []RateLimitRule{{Type: "count", Window: "minute", Limit: 5}}},
			wantErr: true,
		},
		{
			name:    "enabled with unknown scope",
			rl:      RateLimitConfig{Enabled: true, Backend: "memory", Scope: "tenant", Limits: []RateLimitRule{{Type: "count", Window: "minute", Limit: 5}}},
			wantErr: true,
		},
		{
			name:    "enabled with zero limit",
			rl:      RateLimitConfig{Enabled: true, Backend: "memory", Scope: "session", Limits: []RateLimitRule{{Type: "count", Window: "minute", Limit: 0}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			cfg.RateLimit = tt.rl
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRateLimitDefaultsToMemoryAndSession(t *testing.T) {
	cfg := validBaseConfig()
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, "session", cfg.RateLimit.Scope)
	assert.False(t, cfg.RateLimit.Enabled)
}
