// Command polwatchd starts the Political Analyst Workbench's HTTP and
// WebSocket server: it loads configuration, wires the record/object
// stores, the named LLM backends, the Tavily search client, the
// Sub-Agent Framework, and the Master Agent Orchestrator graph, then
// serves internal/httpapi until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/polanalyst/workbench/internal/artifact"
	"github.com/polanalyst/workbench/internal/cache"
	"github.com/polanalyst/workbench/internal/config"
	"github.com/polanalyst/workbench/internal/httpapi"
	"github.com/polanalyst/workbench/internal/llm"
	"github.com/polanalyst/workbench/internal/master"
	"github.com/polanalyst/workbench/internal/observability"
	"github.com/polanalyst/workbench/internal/orchestrator"
	"github.com/polanalyst/workbench/internal/ratelimit"
	"github.com/polanalyst/workbench/internal/session"
	"github.com/polanalyst/workbench/internal/store"
	"github.com/polanalyst/workbench/internal/subagent"
	"github.com/polanalyst/workbench/internal/subagent/livemonitor"
	"github.com/polanalyst/workbench/internal/subagent/mediabias"
	"github.com/polanalyst/workbench/internal/subagent/sentiment"
	"github.com/polanalyst/workbench/internal/websearch"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional; POLWATCH_ env vars always apply)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("polwatchd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if err := config.LoadDotEnvForConfig(configPath); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(config.LoaderOptions{Type: config.SourceFile, Path: configPath})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	initLogger(cfg.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	records, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer records.Close()

	objects, err := store.NewLocalObjectStore(cfg.ObjectStore.BasePath)
	if err != nil {
		return fmt.Errorf("open object store: %w", err)
	}

	registry := llm.NewRegistry()
	for name, llmCfg := range cfg.LLMs {
		if _, err := registry.Build(name, llmCfg); err != nil {
			return fmt.Errorf("build llm %q: %w", name, err)
		}
	}
	planner, err := resolveLLM(registry, "planner")
	if err != nil {
		return err
	}
	synthesizer, err := resolveLLM(registry, "synthesizer")
	if err != nil {
		return err
	}
	artifactLLM, err := resolveLLM(registry, "artifact")
	if err != nil {
		return err
	}

	searchClient := websearch.New(websearch.Config{APIKey: cfg.Search.APIKey})
	searchTool := websearch.NewSearchTool(searchClient)
	extractTool := websearch.NewExtractTool(searchClient)

	creator := artifact.NewCreator(objects, records)
	visualizer := artifact.NewVisualizer(creator)

	sentimentLLM, err := resolveLLM(registry, "sentiment")
	if err != nil {
		return err
	}
	mediabiasLLM, err := resolveLLM(registry, "mediabias")
	if err != nil {
		return err
	}
	livemonitorLLM, err := resolveLLM(registry, "livemonitor")
	if err != nil {
		return err
	}

	subAgents := subagent.NewRegistry()
	if err := subAgents.Register(sentiment.AgentName, sentiment.New(sentimentLLM, websearch.NewCountrySearcher(searchClient), visualizer, sentiment.Config{MaxResultsPerCountry: cfg.Search.MaxResults})); err != nil {
		return fmt.Errorf("register %s: %w", sentiment.AgentName, err)
	}
	if err := subAgents.Register(mediabias.AgentName, mediabias.New(mediabiasLLM, websearch.NewOutletSearcher(searchClient), mediabias.Config{})); err != nil {
		return fmt.Errorf("register %s: %w", mediabias.AgentName, err)
	}
	liveMonitorFactory := livemonitor.New(livemonitorLLM, websearch.NewKeywordSearcher(searchClient), livemonitor.NewMemoryCacheStore())
	if err := subAgents.Register(livemonitor.AgentName, liveMonitorFactory); err != nil {
		return fmt.Errorf("register %s: %w", livemonitor.AgentName, err)
	}
	liveMonitorAgent, ok := liveMonitorFactory().(*livemonitor.Agent)
	if !ok {
		return fmt.Errorf("live monitor factory did not produce *livemonitor.Agent")
	}

	subAgentTimeout := durationOr(cfg.Graph.SubAgentTimeoutSeconds, 30*time.Second)
	caller := subagent.NewCaller(subAgents, subAgentTimeout)

	graph := master.New(planner, synthesizer, artifactLLM,
		[]master.Tool{searchTool, extractTool}, caller, creator,
		master.Config{
			MaxIterations:   cfg.Graph.MaxIterations,
			ToolTimeout:     durationOr(cfg.Graph.ToolTimeoutSeconds, 15*time.Second),
			SubAgentTimeout: subAgentTimeout,
			MaxHistoryTurns: cfg.Graph.MaxHistoryTurns,
		},
	)

	sessions := session.NewInMemoryService()
	queryCache := cache.New(cache.Config{Enabled: cfg.Cache.Enabled, TTL: time.Duration(cfg.Cache.TTLHours) * time.Hour}, records)
	orch := orchestrator.New(graph, queryCache, sessions, records)

	limiter, err := ratelimit.NewRateLimiterFromConfig(cfg.RateLimit, records.DB(), records.Dialect())
	if err != nil {
		return fmt.Errorf("build rate limiter: %w", err)
	}

	obsManager, err := observability.NewManager(ctx, observabilityConfig(cfg.Observability))
	if err != nil {
		return fmt.Errorf("build observability manager: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obsManager.Shutdown(shutdownCtx); err != nil {
			slog.Warn("observability shutdown failed", "error", err)
		}
	}()
	observability.SetGlobalMetrics(obsManager.Metrics())

	apiHandler := httpapi.New(orch, sessions, records, objects, liveMonitorAgent, cfg.Server.CORSOrigins, limiter, ratelimit.ScopeFromConfig(cfg.RateLimit))
	mux := http.NewServeMux()
	mux.Handle(obsManager.MetricsEndpoint(), obsManager.MetricsHandler())
	mux.Handle("/", apiHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("polwatchd listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func resolveLLM(registry *llm.Registry, name string) (llm.Provider, error) {
	provider, ok := registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("llms.%s is not configured", name)
	}
	return provider, nil
}

// observabilityConfig adapts our own config.ObservabilityConfig section
// into observability.Config, which is intentionally self-contained and
// knows nothing about this module's config package.
func observabilityConfig(cfg config.ObservabilityConfig) *observability.Config {
	return &observability.Config{
		Tracing: observability.TracingConfig{
			Enabled:  cfg.TracingEnabled,
			Endpoint: cfg.TracingEndpoint,
		},
		Metrics: observability.MetricsConfig{
			Enabled:   cfg.MetricsEnabled,
			Namespace: cfg.MetricsNamespace,
		},
	}
}

func durationOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func initLogger(cfg config.LoggerConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stderr
	if cfg.File != "" {
		if f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			slog.SetDefault(slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})))
			return
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
}
