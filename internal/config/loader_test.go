package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
llms:
  planner:
    type: anthropic
    api_key: test-key
store:
  driver: sqlite
  dsn: test.db
`)

	cfg, err := Load(LoaderOptions{Type: SourceFile, Path: path})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 3, cfg.Graph.MaxIterations)
	assert.Equal(t, 60, cfg.Graph.ToolTimeoutSeconds)
	assert.Equal(t, 3, cfg.Cache.TTLHours)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 4096, cfg.LLMs["planner"].MaxTokens)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9000
llms:
  planner:
    type: anthropic
    api_key: from-file
store:
  driver: sqlite
  dsn: test.db
`)

	t.Setenv("POLWATCH_SERVER.PORT", "9100")

	cfg, err := Load(LoaderOptions{Type: SourceFile, Path: path, EnvPrefix: "POLWATCH_"})
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadRejectsMissingLLMs(t *testing.T) {
	path := writeTempConfig(t, `
store:
  driver: sqlite
  dsn: test.db
`)
	_, err := Load(LoaderOptions{Type: SourceFile, Path: path})
	assert.Error(t, err)
}

func TestLoadRejectsUnknownLLMType(t *testing.T) {
	path := writeTempConfig(t, `
llms:
  planner:
    type: fake-provider
store:
  driver: sqlite
  dsn: test.db
`)
	_, err := Load(LoaderOptions{Type: SourceFile, Path: path})
	assert.Error(t, err)
}

func TestParseSourceType(t *testing.T) {
	v, err := ParseSourceType("consul")
	require.NoError(t, err)
	assert.Equal(t, SourceConsul, v)

	_, err = ParseSourceType("bogus")
	assert.Error(t, err)
}
