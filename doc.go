// Package workbench is a research assistant that answers political and
// geopolitical questions by routing a query through a directed graph of
// AI agents and real-time web search.
//
// # Quick Start
//
// Build the server:
//
//	go build -o polwatchd ./cmd/polwatchd
//
// Provide a config file (see config/ for an example) naming at least one
// LLM backend and a record-store DSN, then run:
//
//	./polwatchd --config polwatch.yaml
//
// Clients connect to /ws/analyze for a streamed conversation, or POST to
// /api/analyze for a single non-streaming turn.
//
// # Architecture
//
// A query enters the master graph (internal/master): Conversation
// Manager → Strategic Planner → Tool Executor → Decision Gate →
// Response Synthesizer → Artifact Decision → Artifact Creator, with a
// conditional back-edge from the Decision Gate to the Strategic Planner
// bounded by MAX_ITERATIONS. The Tool Executor dispatches built-in tools
// (Tavily search/extract) and sub-agents (internal/subagent) concurrently
// and merges their results back into the shared AgentState
// (internal/domain).
//
// # Status
//
// This module is under active development; interfaces may still change.
package workbench
