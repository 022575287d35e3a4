package observability

import (
	"context"
	"sync"
	"time"
)

var (
	globalMetrics Metrics
	metricsMu     sync.RWMutex
)

// Metrics is the call-site contract every node in the master graph and
// every HTTP handler records against, regardless of which backend (or
// none) is wired in behind GetGlobalMetrics.
type Metrics interface {
	RecordAgentCall(ctx context.Context, duration time.Duration, tokens int, err error)
	RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error)
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error)

	// HTTP metrics
	RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration, responseSize int)

	// gRPC metrics (unused by this module's HTTP-only transport; kept so
	// a future transport can record against the same Metrics contract)
	RecordGRPCCall(ctx context.Context, service, method, statusCode string, duration time.Duration, err error)

	// Business KPI metrics
	RecordSession(ctx context.Context, agentName string, duration time.Duration, successful bool)
	RecordConversationTurn(ctx context.Context, agentName string, turnCount int)
}

// SetGlobalMetrics installs the process-wide Metrics recorder. Called
// once from cmd/polwatchd after the observability Manager is built, so
// every package instruments through GetGlobalMetrics without threading
// a Metrics value through every constructor.
func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

// GetGlobalMetrics returns the installed recorder, or a no-op when none
// has been installed (tests, or metrics disabled in config).
func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if globalMetrics == nil {
		return &NoopMetrics{}
	}
	return globalMetrics
}
