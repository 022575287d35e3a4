package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsRecording(t *testing.T) {
	ctx := context.Background()
	metrics, err := NewMetrics(&MetricsConfig{Enabled: true, Namespace: "test_agent"})
	require.NoError(t, err)

	metrics.RecordAgentCall(ctx, 100*time.Millisecond, 150, nil)
	metrics.RecordAgentCall(ctx, 200*time.Millisecond, 200, errors.New("boom"))
}

func TestToolMetricsRecording(t *testing.T) {
	ctx := context.Background()
	metrics, err := NewMetrics(&MetricsConfig{Enabled: true, Namespace: "test_tool"})
	require.NoError(t, err)

	metrics.RecordToolExecution(ctx, "search", 50*time.Millisecond, nil)
	metrics.RecordToolExecution(ctx, "extract", 100*time.Millisecond, nil)
}

func TestLLMMetricsRecording(t *testing.T) {
	ctx := context.Background()
	metrics, err := NewMetrics(&MetricsConfig{Enabled: true, Namespace: "test_llm"})
	require.NoError(t, err)

	metrics.RecordLLMCall(ctx, "claude-sonnet", 500*time.Millisecond, 100, 50, nil)
	metrics.RecordLLMCall(ctx, "gpt-4o", 600*time.Millisecond, 150, 75, nil)
}

func TestNoopMetrics(t *testing.T) {
	ctx := context.Background()
	var metrics Metrics = NoopMetrics{}

	metrics.RecordAgentCall(ctx, 100*time.Millisecond, 150, nil)
	metrics.RecordToolExecution(ctx, "test", 50*time.Millisecond, nil)
	metrics.RecordLLMCall(ctx, "test-model", 300*time.Millisecond, 10, 5, nil)
}

func TestNoopTracer(t *testing.T) {
	var tracer NoopTracer

	ctx := context.Background()
	_, span := tracer.Start(ctx, "test_span")
	defer span.End()

	require.Nil(t, tracer.DebugExporter())
	require.NoError(t, tracer.Shutdown(ctx))
}

func TestGlobalMetrics(t *testing.T) {
	ctx := context.Background()

	require.NotNil(t, GetGlobalMetrics())

	noopMetrics := NoopMetrics{}
	SetGlobalMetrics(noopMetrics)

	retrieved := GetGlobalMetrics()
	require.NotNil(t, retrieved)
	retrieved.RecordAgentCall(ctx, 100*time.Millisecond, 50, nil)
}

func BenchmarkMetricsRecording(b *testing.B) {
	ctx := context.Background()
	metrics, err := NewMetrics(&MetricsConfig{Enabled: true, Namespace: "bench"})
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.RecordAgentCall(ctx, 100*time.Millisecond, 50, nil)
	}
}
