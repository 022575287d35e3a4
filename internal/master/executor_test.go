package master

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/polanalyst/workbench/internal/domain"
)

type erroringTool struct{ name string }

func (e *erroringTool) Name() string { return e.name }

func (e *erroringTool) Call(ctx context.Context, query string, extras map[string]any) (map[string]any, error) {
	return nil, errors.New("boom")
}

type slowTool struct{ name string }

func (s *slowTool) Name() string { return s.name }

func (s *slowTool) Call(ctx context.Context, query string, extras map[string]any) (map[string]any, error) {
	select {
	case <-time.After(50 * time.Millisecond):
		return map[string]any{"ok": true}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestToolExecutorRecordsFailureWithoutAbortingOthers(t *testing.T) {
	state := newTestState()
	state.Plan.ToolsToUse = []string{"broken", "tavily_search"}

	tools := map[string]Tool{
		"broken":       &erroringTool{name: "broken"},
		"tavily_search": &fakeTool{name: "tavily_search", output: map[string]any{"answer": "ok"}},
	}

	toolExecutor(context.Background(), state, tools, nil, Config{ToolTimeout: time.Second, SubAgentTimeout: time.Second})

	assert.NotEmpty(t, state.ToolResults["broken"].Error)
	assert.Empty(t, state.ToolResults["tavily_search"].Error)
	assert.Equal(t, "ok", state.ToolResults["tavily_search"].Output["answer"])
	assert.NotEmpty(t, state.ErrorLog)
}

func TestToolExecutorTimesOutSlowTool(t *testing.T) {
	state := newTestState()
	state.Plan.ToolsToUse = []string{"slow"}

	tools := map[string]Tool{"slow": &slowTool{name: "slow"}}

	toolExecutor(context.Background(), state, tools, nil, Config{ToolTimeout: 5 * time.Millisecond, SubAgentTimeout: time.Second})

	assert.Contains(t, state.ToolResults["slow"].Error, "timeout")
}

func TestToolExecutorUnknownNameRecordsError(t *testing.T) {
	state := newTestState()
	state.Plan.ToolsToUse = []string{"nonexistent"}

	toolExecutor(context.Background(), state, map[string]Tool{}, nil, Config{ToolTimeout: time.Second})

	assert.NotEmpty(t, state.ErrorLog)
	assert.Empty(t, state.ToolResults)
}
