package subagent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polanalyst/workbench/internal/domain"
)

type echoAgent struct {
	name  string
	delay time.Duration
}

func (e *echoAgent) Name() string { return e.name }

func (e *echoAgent) Run(ctx context.Context, in Input) domain.SubAgentResult {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return domain.SubAgentResult{Success: false, Error: ctx.Err().Error()}
		}
	}
	return domain.SubAgentResult{Success: true, Data: map[string]any{"query": in.Query}, Confidence: 1}
}

func TestCallRunsRegisteredAgent(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("sentiment_analysis_agent", func() Agent { return &echoAgent{name: "sentiment_analysis_agent"} }))

	caller := NewCaller(reg, time.Second)
	result := caller.Call(context.Background(), "sentiment_analysis_agent", "sentiment on X", nil)

	assert.True(t, result.Success)
	assert.Equal(t, "sentiment on X", result.Data["query"])
}

func TestCallUnknownAgentFails(t *testing.T) {
	caller := NewCaller(NewRegistry(), time.Second)
	result := caller.Call(context.Background(), "nonexistent_agent", "q", nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown agent")
}

func TestCallTimesOut(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("slow_agent", func() Agent { return &echoAgent{name: "slow_agent", delay: 50 * time.Millisecond} }))

	caller := NewCaller(reg, 5*time.Millisecond)
	result := caller.Call(context.Background(), "slow_agent", "q", nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out")
}

func TestNamesReflectsRegistrations(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("a", func() Agent { return &echoAgent{name: "a"} }))
	require.NoError(t, reg.Register("b", func() Agent { return &echoAgent{name: "b"} }))

	caller := NewCaller(reg, time.Second)
	assert.ElementsMatch(t, []string{"a", "b"}, caller.Names())
}
