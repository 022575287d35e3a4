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

package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromCollector is the Prometheus-backed implementation of Metrics: one
// registry per process, one counter/histogram family per call kind in
// the planner/tool/sub-agent graph plus the HTTP surface in front of it.
type PromCollector struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	agentCalls        *prometheus.CounterVec
	agentCallDuration *prometheus.HistogramVec
	agentErrors       *prometheus.CounterVec

	llmCalls        *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec
	llmTokensInput  *prometheus.CounterVec
	llmTokensOutput *prometheus.CounterVec
	llmErrors       *prometheus.CounterVec

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpResponseSize *prometheus.HistogramVec

	grpcCalls    *prometheus.CounterVec
	grpcDuration *prometheus.HistogramVec
	grpcErrors   *prometheus.CounterVec

	sessionTotal      *prometheus.CounterVec
	sessionDuration   *prometheus.HistogramVec
	conversationTurns *prometheus.HistogramVec
}

// NewMetrics creates the Prometheus collector from configuration.
func NewMetrics(cfg *MetricsConfig) (*PromCollector, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	cfg.SetDefaults()

	m := &PromCollector{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}

	m.initAgentMetrics()
	m.initLLMMetrics()
	m.initToolMetrics()
	m.initHTTPMetrics()
	m.initGRPCMetrics()
	m.initSessionMetrics()

	return m, nil
}

func (m *PromCollector) initAgentMetrics() {
	m.agentCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "agent", Name: "calls_total",
		Help: "Total number of sub-agent invocations",
	}, []string{"agent"})
	m.agentCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "agent", Name: "call_duration_seconds",
		Help: "Sub-agent invocation duration in seconds", Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"agent"})
	m.agentErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "agent", Name: "errors_total",
		Help: "Total number of sub-agent call failures",
	}, []string{"agent"})
	m.registry.MustRegister(m.agentCalls, m.agentCallDuration, m.agentErrors)
}

func (m *PromCollector) initLLMMetrics() {
	m.llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "calls_total",
		Help: "Total number of LLM backend calls",
	}, []string{"model"})
	m.llmCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "call_duration_seconds",
		Help: "LLM call duration in seconds", Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"model"})
	m.llmTokensInput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "tokens_input_total",
		Help: "Total input tokens sent to LLM backends",
	}, []string{"model"})
	m.llmTokensOutput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "tokens_output_total",
		Help: "Total output tokens received from LLM backends",
	}, []string{"model"})
	m.llmErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "errors_total",
		Help: "Total number of LLM backend errors",
	}, []string{"model"})
	m.registry.MustRegister(m.llmCalls, m.llmCallDuration, m.llmTokensInput, m.llmTokensOutput, m.llmErrors)
}

func (m *PromCollector) initToolMetrics() {
	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "calls_total",
		Help: "Total number of built-in tool invocations",
	}, []string{"tool"})
	m.toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "call_duration_seconds",
		Help: "Tool execution duration in seconds", Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
	}, []string{"tool"})
	m.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "errors_total",
		Help: "Total number of tool call failures",
	}, []string{"tool"})
	m.registry.MustRegister(m.toolCalls, m.toolCallDuration, m.toolErrors)
}

func (m *PromCollector) initHTTPMetrics() {
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "http", Name: "requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help: "HTTP request duration in seconds", Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
	m.httpResponseSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "http", Name: "response_size_bytes",
		Help: "HTTP response size in bytes", Buckets: prometheus.ExponentialBuckets(100, 10, 7),
	}, []string{"method", "path"})
	m.registry.MustRegister(m.httpRequests, m.httpDuration, m.httpResponseSize)
}

func (m *PromCollector) initGRPCMetrics() {
	m.grpcCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "grpc", Name: "calls_total",
		Help: "Total number of gRPC calls",
	}, []string{"service", "method", "status"})
	m.grpcDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "grpc", Name: "call_duration_seconds",
		Help: "gRPC call duration in seconds", Buckets: prometheus.DefBuckets,
	}, []string{"service", "method"})
	m.grpcErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "grpc", Name: "errors_total",
		Help: "Total number of gRPC call failures",
	}, []string{"service", "method"})
	m.registry.MustRegister(m.grpcCalls, m.grpcDuration, m.grpcErrors)
}

func (m *PromCollector) initSessionMetrics() {
	m.sessionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "session", Name: "turns_total",
		Help: "Total number of completed analysis turns",
	}, []string{"agent", "successful"})
	m.sessionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "session", Name: "turn_duration_seconds",
		Help: "Analysis turn duration in seconds", Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"agent", "successful"})
	m.conversationTurns = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "session", Name: "turn_count",
		Help: "Turn count observed per session at completion time", Buckets: prometheus.LinearBuckets(1, 5, 10),
	}, []string{"agent"})
	m.registry.MustRegister(m.sessionTotal, m.sessionDuration, m.conversationTurns)
}

func (m *PromCollector) RecordAgentCall(ctx context.Context, duration time.Duration, tokens int, err error) {
	if m == nil {
		return
	}
	m.agentCalls.WithLabelValues("subagent").Inc()
	m.agentCallDuration.WithLabelValues("subagent").Observe(duration.Seconds())
	if err != nil {
		m.agentErrors.WithLabelValues("subagent").Inc()
	}
}

func (m *PromCollector) RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if err != nil {
		m.toolErrors.WithLabelValues(tool).Inc()
	}
}

func (m *PromCollector) RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(model).Inc()
	m.llmCallDuration.WithLabelValues(model).Observe(duration.Seconds())
	m.llmTokensInput.WithLabelValues(model).Add(float64(inputTokens))
	m.llmTokensOutput.WithLabelValues(model).Add(float64(outputTokens))
	if err != nil {
		m.llmErrors.WithLabelValues(model).Inc()
	}
}

func (m *PromCollector) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration, responseSize int) {
	if m == nil {
		return
	}
	status := statusCodeLabel(statusCode)
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if responseSize > 0 {
		m.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

func statusCodeLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

func (m *PromCollector) RecordGRPCCall(ctx context.Context, service, method, statusCode string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.grpcCalls.WithLabelValues(service, method, statusCode).Inc()
	m.grpcDuration.WithLabelValues(service, method).Observe(duration.Seconds())
	if err != nil {
		m.grpcErrors.WithLabelValues(service, method).Inc()
	}
}

func (m *PromCollector) RecordSession(ctx context.Context, agentName string, duration time.Duration, successful bool) {
	if m == nil {
		return
	}
	label := "true"
	if !successful {
		label = "false"
	}
	m.sessionTotal.WithLabelValues(agentName, label).Inc()
	m.sessionDuration.WithLabelValues(agentName, label).Observe(duration.Seconds())
}

func (m *PromCollector) RecordConversationTurn(ctx context.Context, agentName string, turnCount int) {
	if m == nil {
		return
	}
	m.conversationTurns.WithLabelValues(agentName).Observe(float64(turnCount))
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (m *PromCollector) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *PromCollector) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

var _ Metrics = (*PromCollector)(nil)
